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
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
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

	genID       *snowflake.Node
	clock       clock.Clock
	repo        projectdomain.Repository
	clientRepo  clientdomain.Repository
	projectRepo repository.Repository[projectdomain.Project]
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       projectdomain.Repository
	ClientRepo clientdomain.Repository
}

func NewService(p ServiceParam) projectdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("project.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		clientRepo:  p.ClientRepo,
		projectRepo: repository.ProvideStore[projectdomain.Project](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req projectdomain.CreateProjectRequest) (projectdomain.Project, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return projectdomain.Project{}, projectdomain.ErrInvalidOrganization
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
		if err != nil {
			return projectdomain.Project{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return projectdomain.Project{}, projectdomain.ErrInvalidName
	}

	clientID, err := s.resolveClientID(ctx, orgID, req.ClientID)
	if err != nil {
		return projectdomain.Project{}, err
	}

	now := s.clock.Now(ctx)
	project := projectdomain.Project{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		ClientID:  clientID,
		Name:      name,
		Slug:      slug.Make(name),
		Status:    projectdomain.ProjectStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Metadata != nil {
		project.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if idempotencyKey != "" {
		project.IdempotencyKey = &idempotencyKey
	}

	if err := s.repo.Insert(ctx, s.db, &project); err != nil {
		if db.IsDuplicateKey(err) {
			if idempotencyKey != "" {
				existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, orgID, idempotencyKey)
				if findErr != nil {
					return projectdomain.Project{}, findErr
				}
				if existing != nil {
					return *existing, nil
				}
			}
			project.Slug = fmt.Sprintf("%s-%s", project.Slug, project.ID.String())
			if err := s.repo.Insert(ctx, s.db, &project); err != nil {
				return projectdomain.Project{}, err
			}
			return project, nil
		}
		return projectdomain.Project{}, err
	}

	return project, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (projectdomain.Project, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return projectdomain.Project{}, projectdomain.ErrInvalidOrganization
	}

	projectID, err := s.parseID(id)
	if err != nil {
		return projectdomain.Project{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, projectID)
	if err != nil {
		return projectdomain.Project{}, err
	}
	if item == nil {
		return projectdomain.Project{}, projectdomain.ErrProjectNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req projectdomain.ListProjectRequest) (projectdomain.ListProjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return projectdomain.ListProjectResponse{}, projectdomain.ErrInvalidOrganization
	}

	filter := &projectdomain.Project{OrgID: orgID}

	if status := strings.TrimSpace(req.Status); status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return projectdomain.ListProjectResponse{}, err
		}
		filter.Status = parsed
	}
	if req.ClientID != "" {
		clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
		if err != nil || clientID == 0 {
			return projectdomain.ListProjectResponse{}, projectdomain.ErrInvalidClient
		}
		filter.ClientID = &clientID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.projectRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy("created_at desc, id desc"),
	)
	if err != nil {
		return projectdomain.ListProjectResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *projectdomain.Project) string {
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

	projects := make([]projectdomain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}

	resp := projectdomain.ListProjectResponse{Projects: projects}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req projectdomain.UpdateProjectRequest) (projectdomain.Project, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return projectdomain.Project{}, projectdomain.ErrInvalidOrganization
	}

	projectID, err := s.parseID(req.ProjectID)
	if err != nil {
		return projectdomain.Project{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, projectID)
	if err != nil {
		return projectdomain.Project{}, err
	}
	if item == nil {
		return projectdomain.Project{}, projectdomain.ErrProjectNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return projectdomain.Project{}, projectdomain.ErrInvalidName
		}
		item.Name = name
		item.Slug = slug.Make(name)
	}
	if req.Status != nil {
		parsed, err := parseStatus(*req.Status)
		if err != nil {
			return projectdomain.Project{}, err
		}
		item.Status = parsed
	}
	if req.ClientID != nil {
		clientID, err := s.resolveClientID(ctx, orgID, *req.ClientID)
		if err != nil {
			return projectdomain.Project{}, err
		}
		item.ClientID = clientID
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}
	item.UpdatedAt = s.clock.Now(ctx)

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return projectdomain.Project{}, err
	}
	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return projectdomain.ErrInvalidOrganization
	}

	projectID, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, projectID)
	if err != nil {
		return err
	}
	if item == nil {
		return projectdomain.ErrProjectNotFound
	}

	return s.repo.Delete(ctx, s.db, orgID, projectID)
}

// resolveClientID validates an optional client reference. Empty input clears
// the link.
func (s *Service) resolveClientID(ctx context.Context, orgID snowflake.ID, value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	clientID, err := snowflake.ParseString(value)
	if err != nil || clientID == 0 {
		return nil, projectdomain.ErrInvalidClient
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, projectdomain.ErrInvalidClient
	}
	return &clientID, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, projectdomain.ErrInvalidProject
	}
	return id, nil
}

func parseStatus(value string) (projectdomain.ProjectStatus, error) {
	status := projectdomain.ProjectStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case projectdomain.ProjectStatusActive, projectdomain.ProjectStatusArchived:
		return status, nil
	default:
		return "", projectdomain.ErrInvalidStatus
	}
}
