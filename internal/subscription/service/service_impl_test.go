package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/orgcontext"
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
	"github.com/stackspendlabs/stackspend/internal/subscription/domain"
	"github.com/stackspendlabs/stackspend/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -- Mocks --

type clientRepoMock struct {
	mock.Mock
}

func (m *clientRepoMock) Insert(ctx context.Context, db *gorm.DB, client *clientdomain.Client) error {
	return nil
}

func (m *clientRepoMock) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*clientdomain.Client, error) {
	args := m.Called(ctx, orgID, id)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*clientdomain.Client), args.Error(1)
}

func (m *clientRepoMock) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*clientdomain.Client, error) {
	return nil, nil
}

func (m *clientRepoMock) Update(ctx context.Context, db *gorm.DB, client *clientdomain.Client) error {
	return nil
}

func (m *clientRepoMock) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return nil
}

func (m *clientRepoMock) Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	return 0, nil
}

type projectRepoMock struct {
	mock.Mock
}

func (m *projectRepoMock) Insert(ctx context.Context, db *gorm.DB, project *projectdomain.Project) error {
	return nil
}

func (m *projectRepoMock) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*projectdomain.Project, error) {
	args := m.Called(ctx, orgID, id)
	res := args.Get(0)
	if res == nil {
		return nil, args.Error(1)
	}
	return res.(*projectdomain.Project), args.Error(1)
}

func (m *projectRepoMock) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*projectdomain.Project, error) {
	return nil, nil
}

func (m *projectRepoMock) Update(ctx context.Context, db *gorm.DB, project *projectdomain.Project) error {
	return nil
}

func (m *projectRepoMock) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return nil
}

// -- Helpers --

func newTestService(t *testing.T, now time.Time) (domain.Service, *clientRepoMock, *projectRepoMock, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Subscription{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clientRepo := &clientRepoMock{}
	projectRepo := &projectRepoMock{}

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.Fixed{T: now},
		Repo:        repository.Provide(),
		ClientRepo:  clientRepo,
		ProjectRepo: projectRepo,
	})

	return svc, clientRepo, projectRepo, node.Generate()
}

func orgCtx(orgID snowflake.ID) context.Context {
	return orgcontext.WithOrgID(context.Background(), orgID)
}

// -- Tests --

func TestCreate_DerivedFields(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	view, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "Datadog",
		Amount:       100,
		BillingCycle: "monthly",
		StartDate:    "2024-01-15",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusActive, view.Status)
	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "2024-04-15", view.NextBillingDate)
	assert.Equal(t, "Apr 15, 2024", view.NextBillingDisplay)
	assert.Equal(t, 26, view.DaysUntilDue)
	// 65 elapsed days on a 30.44-day period: a full period has passed.
	assert.Equal(t, 100.0, view.AccruedThisPeriod)
	assert.InDelta(t, 100.0*(65.0/30.44), view.AccumulatedCost, 0.01)
}

func TestCreate_Validation(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name        string
		req         domain.CreateSubscriptionRequest
		expectedErr error
	}{
		{
			name:        "empty name",
			req:         domain.CreateSubscriptionRequest{Name: "  ", Amount: 10, BillingCycle: "monthly", StartDate: "2024-01-15"},
			expectedErr: domain.ErrInvalidName,
		},
		{
			name:        "negative amount",
			req:         domain.CreateSubscriptionRequest{Name: "x", Amount: -1, BillingCycle: "monthly", StartDate: "2024-01-15"},
			expectedErr: domain.ErrInvalidAmount,
		},
		{
			name:        "unknown cycle rejected at the boundary",
			req:         domain.CreateSubscriptionRequest{Name: "x", Amount: 10, BillingCycle: "fortnightly", StartDate: "2024-01-15"},
			expectedErr: domain.ErrInvalidBillingCycle,
		},
		{
			name:        "slash-separated date",
			req:         domain.CreateSubscriptionRequest{Name: "x", Amount: 10, BillingCycle: "monthly", StartDate: "01/15/2024"},
			expectedErr: domain.ErrInvalidStartDate,
		},
		{
			name:        "date outside the one-year window",
			req:         domain.CreateSubscriptionRequest{Name: "x", Amount: 10, BillingCycle: "monthly", StartDate: "2021-01-15"},
			expectedErr: domain.ErrInvalidStartDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, orgID := newTestService(t, now)
			_, err := svc.Create(orgCtx(orgID), tt.req)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestCreate_MissingOrganization(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, _ := newTestService(t, now)

	_, err := svc.Create(context.Background(), domain.CreateSubscriptionRequest{
		Name:         "x",
		Amount:       10,
		BillingCycle: "monthly",
		StartDate:    "2024-01-15",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreate_Idempotency(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	req := domain.CreateSubscriptionRequest{
		Name:           "GitHub",
		Amount:         21,
		BillingCycle:   "monthly",
		StartDate:      "2024-02-01",
		IdempotencyKey: "create-github",
	}

	first, err := svc.Create(ctx, req)
	require.NoError(t, err)

	second, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreate_UnknownClientRejected(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, clientRepo, _, orgID := newTestService(t, now)

	clientRepo.On("FindByID", mock.Anything, orgID, mock.Anything).Return(nil, nil)

	_, err := svc.Create(orgCtx(orgID), domain.CreateSubscriptionRequest{
		Name:         "x",
		Amount:       10,
		BillingCycle: "monthly",
		StartDate:    "2024-01-15",
		ClientID:     "12345",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)
}

func TestGetByID_NotFound(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)

	_, err := svc.GetByID(orgCtx(orgID), "99999")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestGetByID_ScopedToOrganization(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)

	created, err := svc.Create(orgCtx(orgID), domain.CreateSubscriptionRequest{
		Name:         "Vercel",
		Amount:       20,
		BillingCycle: "monthly",
		StartDate:    "2024-02-10",
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	otherOrg := node.Generate()

	_, err = svc.GetByID(orgCtx(otherOrg), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestUpdate_RecomputesDerivedFields(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	created, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "Linear",
		Amount:       10,
		BillingCycle: "monthly",
		StartDate:    "2024-01-15",
	})
	require.NoError(t, err)

	cycle := "annual"
	updated, err := svc.Update(ctx, domain.UpdateSubscriptionRequest{
		SubscriptionID: created.ID.String(),
		BillingCycle:   &cycle,
	})
	require.NoError(t, err)

	assert.Equal(t, "annual", updated.BillingCycle)
	assert.Equal(t, "2025-01-15", updated.NextBillingDate)
}

func TestUpdate_NegativeAmount(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	created, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "Notion",
		Amount:       8,
		BillingCycle: "monthly",
		StartDate:    "2024-02-01",
	})
	require.NoError(t, err)

	amount := -5.0
	_, err = svc.Update(ctx, domain.UpdateSubscriptionRequest{
		SubscriptionID: created.ID.String(),
		Amount:         &amount,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestTransition_Lifecycle(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	created, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "Slack",
		Amount:       15,
		BillingCycle: "monthly",
		StartDate:    "2024-02-01",
	})
	require.NoError(t, err)
	id := created.ID.String()

	// ACTIVE -> PAUSED
	require.NoError(t, svc.Transition(ctx, id, domain.SubscriptionStatusPaused))
	view, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPaused, view.Status)
	assert.NotNil(t, view.PausedAt)

	// Repeating the current status is a no-op.
	require.NoError(t, svc.Transition(ctx, id, domain.SubscriptionStatusPaused))

	// PAUSED -> ACTIVE
	require.NoError(t, svc.Transition(ctx, id, domain.SubscriptionStatusActive))
	view, err = svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, view.Status)
	assert.NotNil(t, view.ResumedAt)

	// ACTIVE -> CANCELED, then everything is rejected.
	require.NoError(t, svc.Transition(ctx, id, domain.SubscriptionStatusCanceled))
	err = svc.Transition(ctx, id, domain.SubscriptionStatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	err = svc.Transition(ctx, id, domain.SubscriptionStatusPaused)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransition_InvalidTarget(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)

	err := svc.Transition(orgCtx(orgID), "12345", domain.SubscriptionStatus("EXPIRED"))
	assert.ErrorIs(t, err, domain.ErrInvalidTargetStatus)
}

func TestDelete(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	created, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "Figma",
		Amount:       12,
		BillingCycle: "monthly",
		StartDate:    "2024-02-01",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	err = svc.Delete(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestList_StatusFilter(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	first, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "AWS",
		Amount:       300,
		BillingCycle: "monthly",
		StartDate:    "2024-01-01",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateSubscriptionRequest{
		Name:         "GCP",
		Amount:       150,
		BillingCycle: "monthly",
		StartDate:    "2024-01-01",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Transition(ctx, first.ID.String(), domain.SubscriptionStatusPaused))

	resp, err := svc.List(ctx, domain.ListSubscriptionRequest{Status: "paused"})
	require.NoError(t, err)
	require.Len(t, resp.Subscriptions, 1)
	assert.Equal(t, "AWS", resp.Subscriptions[0].Name)

	resp, err = svc.List(ctx, domain.ListSubscriptionRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Subscriptions, 2)
}

func TestList_CursorPagination(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	svc, _, _, orgID := newTestService(t, now)
	ctx := orgCtx(orgID)

	// The fixed clock gives every row the same created_at, so the keyset
	// predicate must fall through to the id tiebreak.
	for _, name := range []string{"AWS", "GCP", "Hetzner"} {
		_, err := svc.Create(ctx, domain.CreateSubscriptionRequest{
			Name:         name,
			Amount:       100,
			BillingCycle: "monthly",
			StartDate:    "2024-01-01",
		})
		require.NoError(t, err)
	}

	page1, err := svc.List(ctx, domain.ListSubscriptionRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1.Subscriptions, 2)
	require.True(t, page1.PageInfo.HasMore)
	require.NotEmpty(t, page1.PageInfo.NextPageToken)

	page2, err := svc.List(ctx, domain.ListSubscriptionRequest{
		PageSize:  2,
		PageToken: page1.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page2.Subscriptions, 1)
	assert.False(t, page2.PageInfo.HasMore)

	seen := map[string]bool{
		page1.Subscriptions[0].Name: true,
		page1.Subscriptions[1].Name: true,
	}
	assert.False(t, seen[page2.Subscriptions[0].Name],
		"second page must not repeat first-page rows")
	seen[page2.Subscriptions[0].Name] = true
	assert.Len(t, seen, 3)
}
