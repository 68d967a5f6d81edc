package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/internal/billing"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	"github.com/stackspendlabs/stackspend/internal/clock"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	"github.com/stackspendlabs/stackspend/internal/orgcontext"
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

	genID      *snowflake.Node
	clock      clock.Clock
	repo       dealdomain.Repository
	clientRepo clientdomain.Repository
	dealRepo   repository.Repository[dealdomain.LifetimeDeal]
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       dealdomain.Repository
	ClientRepo clientdomain.Repository
}

func NewService(p ServiceParam) dealdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("lifetimedeal.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		dealRepo:   repository.ProvideStore[dealdomain.LifetimeDeal](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req dealdomain.CreateDealRequest) (dealdomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return dealdomain.View{}, dealdomain.ErrInvalidOrganization
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
		if err != nil {
			return dealdomain.View{}, err
		}
		if existing != nil {
			return s.decorate(ctx, *existing), nil
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return dealdomain.View{}, dealdomain.ErrInvalidName
	}
	if req.Amount < 0 {
		return dealdomain.View{}, dealdomain.ErrInvalidAmount
	}
	if req.RefundWindowDays < 0 {
		return dealdomain.View{}, dealdomain.ErrInvalidRefundWindow
	}

	now := s.clock.Now(ctx)
	purchaseDate, err := s.parsePurchaseDate(req.PurchaseDate, now)
	if err != nil {
		return dealdomain.View{}, err
	}

	clientID, err := s.resolveClientID(ctx, orgID, req.ClientID)
	if err != nil {
		return dealdomain.View{}, err
	}

	deal := dealdomain.LifetimeDeal{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		ClientID:         clientID,
		Name:             name,
		Amount:           req.Amount,
		Currency:         normalizeCurrency(req.Currency),
		PurchaseDate:     purchaseDate,
		RefundWindowDays: req.RefundWindowDays,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if v := strings.TrimSpace(req.Vendor); v != "" {
		deal.Vendor = &v
	}
	if req.Metadata != nil {
		deal.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if idempotencyKey != "" {
		deal.IdempotencyKey = &idempotencyKey
	}

	if err := s.repo.Insert(ctx, s.db, &deal); err != nil {
		if idempotencyKey != "" && db.IsDuplicateKey(err) {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
			if findErr != nil {
				return dealdomain.View{}, findErr
			}
			if existing != nil {
				return s.decorate(ctx, *existing), nil
			}
		}
		return dealdomain.View{}, err
	}

	return s.decorate(ctx, deal), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (dealdomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return dealdomain.View{}, dealdomain.ErrInvalidOrganization
	}

	dealID, err := s.parseID(id)
	if err != nil {
		return dealdomain.View{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, dealID)
	if err != nil {
		return dealdomain.View{}, err
	}
	if item == nil {
		return dealdomain.View{}, dealdomain.ErrDealNotFound
	}
	return s.decorate(ctx, *item), nil
}

func (s *Service) List(ctx context.Context, req dealdomain.ListDealRequest) (dealdomain.ListDealResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return dealdomain.ListDealResponse{}, dealdomain.ErrInvalidOrganization
	}

	filter := &dealdomain.LifetimeDeal{OrgID: orgID}
	if req.ClientID != "" {
		clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
		if err != nil || clientID == 0 {
			return dealdomain.ListDealResponse{}, dealdomain.ErrInvalidClient
		}
		filter.ClientID = &clientID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.dealRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy("created_at desc, id desc"),
	)
	if err != nil {
		return dealdomain.ListDealResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *dealdomain.LifetimeDeal) string {
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

	views := make([]dealdomain.View, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, s.decorate(ctx, *item))
	}

	resp := dealdomain.ListDealResponse{Deals: views}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req dealdomain.UpdateDealRequest) (dealdomain.View, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return dealdomain.View{}, dealdomain.ErrInvalidOrganization
	}

	dealID, err := s.parseID(req.DealID)
	if err != nil {
		return dealdomain.View{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, dealID)
	if err != nil {
		return dealdomain.View{}, err
	}
	if item == nil {
		return dealdomain.View{}, dealdomain.ErrDealNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return dealdomain.View{}, dealdomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Vendor != nil {
		item.Vendor = trimmedPtr(*req.Vendor)
	}
	if req.Amount != nil {
		if *req.Amount < 0 {
			return dealdomain.View{}, dealdomain.ErrInvalidAmount
		}
		item.Amount = *req.Amount
	}
	if req.Currency != nil {
		item.Currency = normalizeCurrency(*req.Currency)
	}
	if req.PurchaseDate != nil {
		purchaseDate, err := s.parsePurchaseDate(*req.PurchaseDate, s.clock.Now(ctx))
		if err != nil {
			return dealdomain.View{}, err
		}
		item.PurchaseDate = purchaseDate
	}
	if req.RefundWindowDays != nil {
		if *req.RefundWindowDays < 0 {
			return dealdomain.View{}, dealdomain.ErrInvalidRefundWindow
		}
		item.RefundWindowDays = *req.RefundWindowDays
	}
	if req.ClientID != nil {
		clientID, err := s.resolveClientID(ctx, orgID, *req.ClientID)
		if err != nil {
			return dealdomain.View{}, err
		}
		item.ClientID = clientID
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	item.UpdatedAt = s.clock.Now(ctx)

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return dealdomain.View{}, err
	}
	return s.decorate(ctx, *item), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return dealdomain.ErrInvalidOrganization
	}

	dealID, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, dealID)
	if err != nil {
		return err
	}
	if item == nil {
		return dealdomain.ErrDealNotFound
	}

	return s.repo.Delete(ctx, s.db, orgID, dealID)
}

func (s *Service) decorate(ctx context.Context, deal dealdomain.LifetimeDeal) dealdomain.View {
	now := s.clock.Now(ctx)
	daysSince := billing.DaysUntil(deal.PurchaseDate, now)

	return dealdomain.View{
		LifetimeDeal:      deal,
		DaysSincePurchase: daysSince,
		RefundEligible:    deal.RefundWindowDays > 0 && daysSince <= deal.RefundWindowDays,
	}
}

// parsePurchaseDate accepts any strict ISO date up to today. Unlike
// subscription anchors there is no one-year floor: old purchases are normal.
func (s *Service) parsePurchaseDate(value string, now time.Time) (time.Time, error) {
	purchaseDate, err := billing.ParseISODate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", dealdomain.ErrInvalidPurchaseDate, err)
	}
	if purchaseDate.After(billing.Midnight(now)) {
		return time.Time{}, fmt.Errorf("%w: purchase date cannot be in the future", dealdomain.ErrInvalidPurchaseDate)
	}
	return purchaseDate, nil
}

func (s *Service) resolveClientID(ctx context.Context, orgID snowflake.ID, value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	clientID, err := snowflake.ParseString(value)
	if err != nil || clientID == 0 {
		return nil, dealdomain.ErrInvalidClient
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, dealdomain.ErrInvalidClient
	}
	return &clientID, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, dealdomain.ErrInvalidDeal
	}
	return id, nil
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
