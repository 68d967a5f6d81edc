package service

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/orgcontext"
	"github.com/stackspendlabs/stackspend/pkg/db/option"
	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
	"github.com/stackspendlabs/stackspend/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock     clock.Clock
	repo      activitydomain.Repository
	eventRepo repository.Repository[activitydomain.Event]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  activitydomain.Repository
}

func NewService(p ServiceParam) activitydomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("activity.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		eventRepo: repository.ProvideStore[activitydomain.Event](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, req activitydomain.RecordEventRequest) (activitydomain.Event, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return activitydomain.Event{}, activitydomain.ErrInvalidOrganization
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		return activitydomain.Event{}, activitydomain.ErrInvalidAction
	}
	entityType := strings.TrimSpace(req.EntityType)
	if entityType == "" {
		return activitydomain.Event{}, activitydomain.ErrInvalidEntityType
	}

	now := s.clock.Now(ctx)
	event := activitydomain.Event{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		OrgID:      orgID,
		Action:     action,
		EntityType: entityType,
		CreatedAt:  now,
	}
	if actor := strings.TrimSpace(req.Actor); actor != "" {
		event.Actor = &actor
	}
	if entityID := strings.TrimSpace(req.EntityID); entityID != "" {
		event.EntityID = &entityID
	}
	if req.Payload != nil {
		event.Payload = datatypes.JSONMap(req.Payload)
	}

	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		return activitydomain.Event{}, err
	}
	return event, nil
}

func (s *Service) List(ctx context.Context, req activitydomain.ListEventRequest) (activitydomain.ListEventResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return activitydomain.ListEventResponse{}, activitydomain.ErrInvalidOrganization
	}

	filter := &activitydomain.Event{
		OrgID:      orgID,
		EntityType: strings.TrimSpace(req.EntityType),
		Action:     strings.TrimSpace(req.Action),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.eventRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy("created_at desc, id desc"),
	)
	if err != nil {
		return activitydomain.ListEventResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *activitydomain.Event) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID,
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

	events := make([]activitydomain.Event, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}

	resp := activitydomain.ListEventResponse{Events: events}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Prune removes events older than the retention window across all
// organizations. It runs from the scheduler, not a request path, so there is
// no org scoping here.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.clock.Now(ctx).Add(-retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("pruned activity events",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
