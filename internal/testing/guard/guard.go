package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TRIPORA_TEST_MODE") == "" {
			_ = os.Setenv("TRIPORA_TEST_MODE", "1")
		}
	})
}
