package staff

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tripora/tripora/internal/authz"
	"github.com/tripora/tripora/internal/roles"
	"github.com/tripora/tripora/internal/shared"
)

type memoryStaffRepo struct {
	// mu serializes transactions the way the database's unique indexes
	// would, so concurrent onboarding resolves to one winner.
	mu       sync.Mutex
	accounts map[uuid.UUID]Account
	byEmail  map[string]uuid.UUID
	byPhone  map[string]uuid.UUID
	profiles map[uuid.UUID]Profile
	roles    map[uuid.UUID]roles.Role

	failProfile bool
}

func newMemoryStaffRepo() *memoryStaffRepo {
	return &memoryStaffRepo{
		accounts: make(map[uuid.UUID]Account),
		byEmail:  make(map[string]uuid.UUID),
		byPhone:  make(map[string]uuid.UUID),
		profiles: make(map[uuid.UUID]Profile),
		roles:    make(map[uuid.UUID]roles.Role),
	}
}

func (r *memoryStaffRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := &txStaffRepo{base: r}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	staged.commit()
	return nil
}

// txStaffRepo buffers writes so a failing transaction leaves the base
// untouched, mirroring database transaction semantics.
type txStaffRepo struct {
	base     *memoryStaffRepo
	accounts []Account
	profiles []Profile
}

func (t *txStaffRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, t)
}

func (t *txStaffRepo) InsertAccount(ctx context.Context, account Account) error {
	if _, taken := t.base.byEmail[account.Email]; taken {
		return fmt.Errorf("%w: email or phone", shared.ErrConflict)
	}
	if _, taken := t.base.byPhone[account.Phone]; taken {
		return fmt.Errorf("%w: email or phone", shared.ErrConflict)
	}
	t.accounts = append(t.accounts, account)
	return nil
}

func (t *txStaffRepo) InsertProfile(ctx context.Context, profile Profile) error {
	if t.base.failProfile {
		return fmt.Errorf("%w: staff profile", shared.ErrConflict)
	}
	t.profiles = append(t.profiles, profile)
	return nil
}

func (t *txStaffRepo) View(ctx context.Context, accountID uuid.UUID) (View, error) {
	return t.base.view(accountID)
}

func (t *txStaffRepo) commit() {
	for _, account := range t.accounts {
		t.base.accounts[account.ID] = account
		t.base.byEmail[account.Email] = account.ID
		t.base.byPhone[account.Phone] = account.ID
	}
	for _, profile := range t.profiles {
		t.base.profiles[profile.AccountID] = profile
	}
}

func (r *memoryStaffRepo) InsertAccount(ctx context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &txStaffRepo{base: r}
	if err := tx.InsertAccount(ctx, account); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (r *memoryStaffRepo) InsertProfile(ctx context.Context, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &txStaffRepo{base: r}
	if err := tx.InsertProfile(ctx, profile); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (r *memoryStaffRepo) View(ctx context.Context, accountID uuid.UUID) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view(accountID)
}

func (r *memoryStaffRepo) view(accountID uuid.UUID) (View, error) {
	account, ok := r.accounts[accountID]
	if !ok {
		return View{}, shared.ErrNotFound
	}
	profile, ok := r.profiles[accountID]
	if !ok {
		return View{}, shared.ErrNotFound
	}
	role := r.roles[account.RoleID]
	return View{Account: account, Profile: profile, RoleName: role.Name}, nil
}

func (r *memoryStaffRepo) Get(ctx context.Context, id uuid.UUID) (roles.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *memoryStaffRepo) addBusinessRole(businessID uuid.UUID) uuid.UUID {
	roleID := uuid.New()
	r.roles[roleID] = roles.Role{ID: roleID, Name: "front-desk", Kind: authz.RoleKindBusiness, BusinessID: &businessID}
	return roleID
}

type invalidateSpy struct {
	invalidated []uuid.UUID
}

func (s *invalidateSpy) Invalidate(accountID uuid.UUID) {
	s.invalidated = append(s.invalidated, accountID)
}

type inviteSpy struct {
	emails []string
	tokens []string
	err    error
}

func (s *inviteSpy) EnqueueStaffInvite(ctx context.Context, email, firstName, token string) error {
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, email)
	s.tokens = append(s.tokens, token)
	return nil
}

func validParams(repo *memoryStaffRepo) OnboardParams {
	businessID := uuid.New()
	roleID := repo.addBusinessRole(businessID)
	return OnboardParams{
		AccountID:    uuid.New(),
		StaffID:      uuid.New(),
		Email:        "maya@tripora.local",
		Phone:        "+628111222333",
		PasswordHash: "$2a$10$hash",
		FirstName:    "Maya",
		LastName:     "Sari",
		BusinessID:   businessID,
		RoleID:       roleID,
	}
}

func TestOnboardCreatesAccountAndProfile(t *testing.T) {
	repo := newMemoryStaffRepo()
	notifier := &inviteSpy{}
	service := NewService(repo, repo, nil, notifier, nil, nil)
	params := validParams(repo)

	view, err := service.Onboard(context.Background(), uuid.New(), params)
	require.NoError(t, err)

	require.Equal(t, params.AccountID, view.Account.ID)
	require.True(t, view.Account.MustChangePassword)
	require.False(t, view.Account.ProfileCompleted)
	require.True(t, view.Account.IsVerified)
	require.True(t, view.Account.IsActive)
	require.Equal(t, "front-desk", view.RoleName)
	require.Equal(t, params.BusinessID, view.Profile.BusinessID)

	stored := repo.accounts[params.AccountID]
	require.NotNil(t, stored.InvitationToken)
	require.NotNil(t, stored.InvitationExpiry)
	require.WithinDuration(t, time.Now().Add(InvitationTTL), *stored.InvitationExpiry, time.Minute)

	require.Equal(t, []string{"maya@tripora.local"}, notifier.emails)
	require.Len(t, notifier.tokens, 1)
	require.Equal(t, *stored.InvitationToken, notifier.tokens[0])
}

func TestOnboardDefaultsTitle(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)
	params := validParams(repo)

	view, err := service.Onboard(context.Background(), uuid.New(), params)
	require.NoError(t, err)
	require.Equal(t, DefaultTitle, view.Profile.Title)
}

func TestOnboardKeepsExplicitTitle(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)
	params := validParams(repo)
	params.Title = " Shift Lead "

	view, err := service.Onboard(context.Background(), uuid.New(), params)
	require.NoError(t, err)
	require.Equal(t, "Shift Lead", view.Profile.Title)
}

func TestOnboardIsAtomic(t *testing.T) {
	repo := newMemoryStaffRepo()
	repo.failProfile = true
	service := NewService(repo, repo, nil, nil, nil, nil)
	params := validParams(repo)

	_, err := service.Onboard(context.Background(), uuid.New(), params)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, repo.accounts)
	require.Empty(t, repo.profiles)
}

func TestOnboardDuplicateEmailConflicts(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)
	params := validParams(repo)

	_, err := service.Onboard(context.Background(), uuid.New(), params)
	require.NoError(t, err)

	second := validParams(repo)
	second.Email = params.Email
	_, err = service.Onboard(context.Background(), uuid.New(), second)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestOnboardConcurrentDuplicateEmail(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)

	first := validParams(repo)
	second := validParams(repo)
	second.Email = first.Email
	second.Phone = "+628999888777"

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, params := range []OnboardParams{first, second} {
		wg.Add(1)
		go func(params OnboardParams) {
			defer wg.Done()
			_, err := service.Onboard(context.Background(), uuid.New(), params)
			errs <- err
		}(params)
	}
	wg.Wait()
	close(errs)

	var conflicts, successes int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, shared.ErrConflict)
		conflicts++
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, conflicts)
	require.Len(t, repo.accounts, 1)
	require.Len(t, repo.profiles, 1)
}

func TestOnboardRejectsNonBusinessRole(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)
	params := validParams(repo)

	presetID := uuid.New()
	repo.roles[presetID] = roles.Role{ID: presetID, Name: "shop-manager", Kind: authz.RoleKindPreset}
	params.RoleID = presetID

	_, err := service.Onboard(context.Background(), uuid.New(), params)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOnboardRejectsRoleOwnedByAnotherBusiness(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)
	params := validParams(repo)
	params.RoleID = repo.addBusinessRole(uuid.New())

	_, err := service.Onboard(context.Background(), uuid.New(), params)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOnboardValidatesRequiredFields(t *testing.T) {
	repo := newMemoryStaffRepo()
	service := NewService(repo, repo, nil, nil, nil, nil)

	for name, mutate := range map[string]func(*OnboardParams){
		"missing email":      func(p *OnboardParams) { p.Email = " " },
		"missing phone":      func(p *OnboardParams) { p.Phone = "" },
		"missing hash":       func(p *OnboardParams) { p.PasswordHash = "" },
		"missing first name": func(p *OnboardParams) { p.FirstName = "" },
		"missing business":   func(p *OnboardParams) { p.BusinessID = uuid.Nil },
		"missing role":       func(p *OnboardParams) { p.RoleID = uuid.Nil },
		"missing account id": func(p *OnboardParams) { p.AccountID = uuid.Nil },
	} {
		params := validParams(repo)
		mutate(&params)
		_, err := service.Onboard(context.Background(), uuid.New(), params)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestOnboardInvalidatesCacheEntry(t *testing.T) {
	repo := newMemoryStaffRepo()
	spy := &invalidateSpy{}
	service := NewService(repo, repo, spy, nil, nil, nil)
	params := validParams(repo)

	_, err := service.Onboard(context.Background(), uuid.New(), params)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{params.AccountID}, spy.invalidated)
}

func TestOnboardSurvivesNotifierFailure(t *testing.T) {
	repo := newMemoryStaffRepo()
	notifier := &inviteSpy{err: fmt.Errorf("broker down")}
	service := NewService(repo, repo, nil, notifier, nil, nil)
	params := validParams(repo)

	view, err := service.Onboard(context.Background(), uuid.New(), params)
	require.NoError(t, err)
	require.Equal(t, params.AccountID, view.Account.ID)
}
