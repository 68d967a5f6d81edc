package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	"github.com/stackspendlabs/stackspend/internal/clock"
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

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	repo       clientdomain.Repository
	clientRepo repository.Repository[clientdomain.Client]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  clientdomain.Repository
}

func NewService(p ServiceParam) clientdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("client.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		clientRepo: repository.ProvideStore[clientdomain.Client](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req clientdomain.CreateClientRequest) (clientdomain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return clientdomain.Client{}, clientdomain.ErrInvalidOrganization
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
		if err != nil {
			return clientdomain.Client{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return clientdomain.Client{}, clientdomain.ErrInvalidName
	}

	now := s.clock.Now(ctx)
	client := clientdomain.Client{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		client.Email = &v
	}
	if v := strings.TrimSpace(req.Company); v != "" {
		client.Company = &v
	}
	if v := strings.TrimSpace(req.Notes); v != "" {
		client.Notes = &v
	}
	if req.Metadata != nil {
		client.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if idempotencyKey != "" {
		client.IdempotencyKey = &idempotencyKey
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		if db.IsDuplicateKey(err) {
			if idempotencyKey != "" {
				existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
				if findErr != nil {
					return clientdomain.Client{}, findErr
				}
				if existing != nil {
					return *existing, nil
				}
			}
			// Slug collision: retry once with the ID suffix.
			client.Slug = fmt.Sprintf("%s-%s", client.Slug, client.ID.String())
			if err := s.repo.Insert(ctx, s.db, &client); err != nil {
				return clientdomain.Client{}, err
			}
			return client, nil
		}
		return clientdomain.Client{}, err
	}

	return client, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (clientdomain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return clientdomain.Client{}, clientdomain.ErrInvalidOrganization
	}

	clientID, err := s.parseID(id)
	if err != nil {
		return clientdomain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return clientdomain.Client{}, err
	}
	if item == nil {
		return clientdomain.Client{}, clientdomain.ErrClientNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req clientdomain.ListClientRequest) (clientdomain.ListClientResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return clientdomain.ListClientResponse{}, clientdomain.ErrInvalidOrganization
	}

	filter := &clientdomain.Client{OrgID: orgID}
	if name := strings.TrimSpace(req.Name); name != "" {
		filter.Name = name
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.clientRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy("created_at desc, id desc"),
	)
	if err != nil {
		return clientdomain.ListClientResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *clientdomain.Client) string {
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

	clients := make([]clientdomain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}

	resp := clientdomain.ListClientResponse{Clients: clients}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req clientdomain.UpdateClientRequest) (clientdomain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return clientdomain.Client{}, clientdomain.ErrInvalidOrganization
	}

	clientID, err := s.parseID(req.ClientID)
	if err != nil {
		return clientdomain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return clientdomain.Client{}, err
	}
	if item == nil {
		return clientdomain.Client{}, clientdomain.ErrClientNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return clientdomain.Client{}, clientdomain.ErrInvalidName
		}
		item.Name = name
		item.Slug = slug.Make(name)
	}
	if req.Email != nil {
		item.Email = trimmedPtr(*req.Email)
	}
	if req.Company != nil {
		item.Company = trimmedPtr(*req.Company)
	}
	if req.Notes != nil {
		item.Notes = trimmedPtr(*req.Notes)
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	item.UpdatedAt = s.clock.Now(ctx)

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return clientdomain.Client{}, err
	}
	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return clientdomain.ErrInvalidOrganization
	}

	clientID, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return err
	}
	if item == nil {
		return clientdomain.ErrClientNotFound
	}

	return s.repo.Delete(ctx, s.db, orgID, clientID)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, clientdomain.ErrInvalidClient
	}
	return id, nil
}

func trimmedPtr(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
