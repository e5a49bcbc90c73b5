package authz

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Mode selects how a multi-permission requirement combines.
type Mode string

const (
	// ModeAny passes when at least one required permission is held.
	ModeAny Mode = "any"
	// ModeAll passes only when every required permission is held.
	ModeAll Mode = "all"
)

// Requirement describes what a protected operation demands. When both Roles
// and Permissions are supplied, a role match wins and the permission check
// is the fallback.
type Requirement struct {
	Roles       []string
	Permissions []string
	Mode        Mode
}

// Gate is the allow/deny decision point in front of request handlers. It
// never treats a denial as an error; callers translate false into their own
// access-denied response.
type Gate struct {
	repo    Repository
	cache   *Cache
	metrics Metrics
}

// NewGate constructs a Gate.
func NewGate(repo Repository, cache *Cache, metrics Metrics) *Gate {
	return &Gate{repo: repo, cache: cache, metrics: metrics}
}

// Authorize reports whether the account satisfies the requirement. Role
// checks compare against the account's single role name and never touch the
// permission cache. Errors are reserved for structural failures such as a
// missing account.
func (g *Gate) Authorize(ctx context.Context, accountID uuid.UUID, req Requirement) (bool, error) {
	if len(req.Roles) == 0 && len(req.Permissions) == 0 {
		return true, nil
	}

	if len(req.Roles) > 0 {
		ref, err := g.repo.AccountRef(ctx, accountID)
		if err != nil {
			return false, err
		}
		if !ref.IsActive {
			return g.decide(false), nil
		}
		for _, role := range req.Roles {
			if strings.EqualFold(ref.RoleName, strings.TrimSpace(role)) {
				return g.decide(true), nil
			}
		}
		if len(req.Permissions) == 0 {
			return g.decide(false), nil
		}
	}

	set, err := g.cache.Get(ctx, accountID)
	if err != nil {
		return false, err
	}

	var allowed bool
	switch req.Mode {
	case ModeAny:
		allowed = set.HasAny(req.Permissions)
	default:
		allowed = set.HasAll(req.Permissions)
	}
	return g.decide(allowed), nil
}

func (g *Gate) decide(allowed bool) bool {
	if g.metrics != nil {
		g.metrics.AuthzDecision(allowed)
	}
	return allowed
}
