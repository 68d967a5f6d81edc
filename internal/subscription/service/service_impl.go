package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/internal/billing"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/orgcontext"
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
	"github.com/stackspendlabs/stackspend/pkg/db"
	"github.com/stackspendlabs/stackspend/pkg/db/option"
	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
	"github.com/stackspendlabs/stackspend/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultCurrency = "USD"

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID            *snowflake.Node
	clock            clock.Clock
	repo             subscriptiondomain.Repository
	clientRepo       clientdomain.Repository
	projectRepo      projectdomain.Repository
	subscriptionRepo repository.Repository[subscriptiondomain.Subscription]
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        subscriptiondomain.Repository
	ClientRepo  clientdomain.Repository
	ProjectRepo projectdomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("subscription.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		clientRepo:       p.ClientRepo,
		projectRepo:      p.ProjectRepo,
		subscriptionRepo: repository.ProvideStore[subscriptiondomain.Subscription](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidOrganization
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
		if err != nil {
			return subscriptiondomain.View{}, err
		}
		if existing != nil {
			return s.decorate(ctx, *existing), nil
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidName
	}
	if req.Amount < 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidAmount
	}

	cycle, err := normalizeBillingCycle(req.BillingCycle)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	now := s.clock.Now(ctx)
	validation := billing.ValidateDateFormat(strings.TrimSpace(req.StartDate), now)
	if !validation.Valid {
		return subscriptiondomain.View{}, fmt.Errorf("%w: %s", subscriptiondomain.ErrInvalidStartDate, validation.Message)
	}

	clientID, err := s.resolveClientID(ctx, orgID, req.ClientID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}
	projectID, err := s.resolveProjectID(ctx, orgID, req.ProjectID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	subscription := subscriptiondomain.Subscription{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		ClientID:     clientID,
		ProjectID:    projectID,
		Name:         name,
		Amount:       req.Amount,
		Currency:     normalizeCurrency(req.Currency),
		BillingCycle: string(cycle),
		StartDate:    validation.Date,
		Status:       subscriptiondomain.SubscriptionStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	subscription.Vendor = trimmedPtr(req.Vendor)
	subscription.Category = trimmedPtr(req.Category)
	subscription.Notes = trimmedPtr(req.Notes)
	if req.Metadata != nil {
		subscription.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if idempotencyKey != "" {
		subscription.IdempotencyKey = &idempotencyKey
	}

	if err := s.repo.Insert(ctx, s.db, &subscription); err != nil {
		if idempotencyKey != "" && db.IsDuplicateKey(err) {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
			if findErr != nil {
				return subscriptiondomain.View{}, findErr
			}
			if existing != nil {
				return s.decorate(ctx, *existing), nil
			}
		}
		return subscriptiondomain.View{}, err
	}

	return s.decorate(ctx, subscription), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (subscriptiondomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidOrganization
	}

	subscriptionID, err := s.parseID(id)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, subscriptionID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}
	if item == nil {
		return subscriptiondomain.View{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	return s.decorate(ctx, *item), nil
}

func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidOrganization
	}

	filter := &subscriptiondomain.Subscription{OrgID: orgID}

	if status := strings.TrimSpace(req.Status); status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
		filter.Status = parsed
	}
	if req.ClientID != "" {
		clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
		if err != nil || clientID == 0 {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidClient
		}
		filter.ClientID = &clientID
	}
	if req.ProjectID != "" {
		projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
		if err != nil || projectID == 0 {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidProject
		}
		filter.ProjectID = &projectID
	}
	if category := strings.TrimSpace(req.Category); category != "" {
		filter.Category = &category
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	options := []option.QueryOption{
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy("created_at desc, id desc"),
	}
	if req.CreatedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    *req.CreatedFrom,
		}))
	}
	if req.CreatedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    *req.CreatedTo,
		}))
	}

	items, err := s.subscriptionRepo.Find(ctx, filter, options...)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *subscriptiondomain.Subscription) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt,
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	views := make([]subscriptiondomain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, s.decorate(ctx, *item))
	}

	resp := subscriptiondomain.ListSubscriptionResponse{Subscriptions: views}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req subscriptiondomain.UpdateSubscriptionRequest) (subscriptiondomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidOrganization
	}

	subscriptionID, err := s.parseID(req.SubscriptionID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, subscriptionID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}
	if item == nil {
		return subscriptiondomain.View{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Vendor != nil {
		item.Vendor = trimmedPtr(*req.Vendor)
	}
	if req.Category != nil {
		item.Category = trimmedPtr(*req.Category)
	}
	if req.Amount != nil {
		if *req.Amount < 0 {
			return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidAmount
		}
		item.Amount = *req.Amount
	}
	if req.Currency != nil {
		item.Currency = normalizeCurrency(*req.Currency)
	}
	if req.BillingCycle != nil {
		cycle, err := normalizeBillingCycle(*req.BillingCycle)
		if err != nil {
			return subscriptiondomain.View{}, err
		}
		item.BillingCycle = string(cycle)
	}
	if req.StartDate != nil {
		validation := billing.ValidateDateFormat(strings.TrimSpace(*req.StartDate), s.clock.Now(ctx))
		if !validation.Valid {
			return subscriptiondomain.View{}, fmt.Errorf("%w: %s", subscriptiondomain.ErrInvalidStartDate, validation.Message)
		}
		item.StartDate = validation.Date
	}
	if req.ClientID != nil {
		clientID, err := s.resolveClientID(ctx, orgID, *req.ClientID)
		if err != nil {
			return subscriptiondomain.View{}, err
		}
		item.ClientID = clientID
	}
	if req.ProjectID != nil {
		projectID, err := s.resolveProjectID(ctx, orgID, *req.ProjectID)
		if err != nil {
			return subscriptiondomain.View{}, err
		}
		item.ProjectID = projectID
	}
	if req.Notes != nil {
		item.Notes = trimmedPtr(*req.Notes)
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	item.UpdatedAt = s.clock.Now(ctx)

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return subscriptiondomain.View{}, err
	}
	return s.decorate(ctx, *item), nil
}

func (s *Service) Transition(ctx context.Context, id string, target subscriptiondomain.SubscriptionStatus) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.ErrInvalidOrganization
	}

	subscriptionID, err := s.parseID(id)
	if err != nil {
		return err
	}

	if !isValidStatus(target) {
		return subscriptiondomain.ErrInvalidTargetStatus
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, subscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		// Repeating the current status is a no-op, not an error.
		if subscription.Status == target {
			return nil
		}
		if !isTransitionAllowed(subscription.Status, target) {
			return subscriptiondomain.ErrInvalidTransition
		}

		now := s.clock.Now(ctx)
		switch target {
		case subscriptiondomain.SubscriptionStatusActive:
			subscription.ResumedAt = &now
		case subscriptiondomain.SubscriptionStatusPaused:
			subscription.PausedAt = &now
		case subscriptiondomain.SubscriptionStatusCanceled:
			subscription.CanceledAt = &now
		}

		subscription.Status = target
		subscription.UpdatedAt = now

		return s.repo.UpdateLifecycle(ctx, tx, subscription)
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.ErrInvalidOrganization
	}

	subscriptionID, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, subscriptionID)
	if err != nil {
		return err
	}
	if item == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}

	return s.repo.Delete(ctx, s.db, orgID, subscriptionID)
}

// decorate computes the engine-derived read fields against the current clock.
// Derived fields are never persisted, so they cannot drift from the anchor.
func (s *Service) decorate(ctx context.Context, subscription subscriptiondomain.Subscription) subscriptiondomain.View {
	now := s.clock.Now(ctx)
	cycle := billing.ParseCycle(subscription.BillingCycle)

	next := billing.NextBillingDate(subscription.StartDate, cycle, now)

	return subscriptiondomain.View{
		Subscription:       subscription,
		NextBillingDate:    billing.FormatDateForInput(next),
		NextBillingDisplay: billing.FormatDateForDisplay(next, billing.StyleUS),
		DaysUntilDue:       billing.DaysUntil(now, next),
		AccruedThisPeriod:  billing.ProRatedAmount(subscription.Amount, subscription.StartDate, cycle, now),
		AccumulatedCost:    billing.AccumulatedCost(subscription.Amount, subscription.StartDate, cycle, now),
	}
}

func (s *Service) resolveClientID(ctx context.Context, orgID snowflake.ID, value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	clientID, err := snowflake.ParseString(value)
	if err != nil || clientID == 0 {
		return nil, subscriptiondomain.ErrInvalidClient
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, subscriptiondomain.ErrInvalidClient
	}
	return &clientID, nil
}

func (s *Service) resolveProjectID(ctx context.Context, orgID snowflake.ID, value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	projectID, err := snowflake.ParseString(value)
	if err != nil || projectID == 0 {
		return nil, subscriptiondomain.ErrInvalidProject
	}

	project, err := s.projectRepo.FindByID(ctx, s.db, orgID, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, subscriptiondomain.ErrInvalidProject
	}
	return &projectID, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, subscriptiondomain.ErrInvalidSubscription
	}
	return id, nil
}

// normalizeBillingCycle is strict at the write boundary. The engine's monthly
// fallback covers values that predate validation, not fresh input.
func normalizeBillingCycle(value string) (billing.Cycle, error) {
	cycle := billing.Cycle(strings.ToLower(strings.TrimSpace(value)))
	if !cycle.Valid() {
		return "", subscriptiondomain.ErrInvalidBillingCycle
	}
	return cycle, nil
}

func normalizeCurrency(value string) string {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		return defaultCurrency
	}
	return currency
}

func trimmedPtr(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

func isValidStatus(status subscriptiondomain.SubscriptionStatus) bool {
	switch status {
	case subscriptiondomain.SubscriptionStatusActive,
		subscriptiondomain.SubscriptionStatusPaused,
		subscriptiondomain.SubscriptionStatusCanceled:
		return true
	default:
		return false
	}
}

func isTransitionAllowed(current, target subscriptiondomain.SubscriptionStatus) bool {
	switch current {
	case subscriptiondomain.SubscriptionStatusActive:
		return target == subscriptiondomain.SubscriptionStatusPaused ||
			target == subscriptiondomain.SubscriptionStatusCanceled
	case subscriptiondomain.SubscriptionStatusPaused:
		return target == subscriptiondomain.SubscriptionStatusActive ||
			target == subscriptiondomain.SubscriptionStatusCanceled
	default:
		// CANCELED is terminal.
		return false
	}
}

func parseStatus(value string) (subscriptiondomain.SubscriptionStatus, error) {
	status := subscriptiondomain.SubscriptionStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !isValidStatus(status) {
		return "", subscriptiondomain.ErrInvalidStatus
	}
	return status, nil
}
