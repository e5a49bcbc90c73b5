package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/tripora/tripora/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]Account, int, error)
	Get(ctx context.Context, id uuid.UUID) (Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// CacheInvalidator drops one account from the permission cache.
type CacheInvalidator interface {
	Invalidate(accountID uuid.UUID)
}

// Service handles account administration.
type Service struct {
	repo  RepositoryPort
	cache CacheInvalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns a page of accounts plus pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Account, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = shared.DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	list, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Activate re-enables an account.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, true)
}

// Deactivate disables an account and drops its cached permissions so the
// change takes effect without waiting out the TTL.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
	return nil
}
