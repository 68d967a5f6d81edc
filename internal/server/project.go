package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
)

type createProjectRequest struct {
	Name     string         `json:"name"`
	ClientID string         `json:"client_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// @Summary      Create Project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        X-Org-ID         header  string  true   "Organization ID"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body createProjectRequest true "Create Project Request"
// @Success      200  {object}  DataResponse
// @Router       /projects [post]
func (s *Server) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), projectdomain.CreateProjectRequest{
		Name:           strings.TrimSpace(req.Name),
		ClientID:       strings.TrimSpace(req.ClientID),
		Metadata:       req.Metadata,
		IdempotencyKey: idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "project.created", "project", resp.ID.String(), map[string]any{
		"name": resp.Name,
	})
	respondData(c, resp)
}

// @Summary      List Projects
// @Tags         projects
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Success      200  {object}  ListResponse
// @Router       /projects [get]
func (s *Server) ListProjects(c *gin.Context) {
	resp, err := s.projectSvc.List(c.Request.Context(), projectdomain.ListProjectRequest{
		Status:    c.Query("status"),
		ClientID:  strings.TrimSpace(c.Query("client_id")),
		PageToken: c.Query("page_token"),
		PageSize:  pageSizeFromQuery(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Projects, &resp.PageInfo)
}

// @Summary      Get Project
// @Tags         projects
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Project ID"
// @Success      200  {object}  DataResponse
// @Router       /projects/{id} [get]
func (s *Server) GetProject(c *gin.Context) {
	resp, err := s.projectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

type updateProjectRequest struct {
	Name     *string        `json:"name,omitempty"`
	Status   *string        `json:"status,omitempty"`
	ClientID *string        `json:"client_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// @Summary      Update Project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Project ID"
// @Param        request   body    updateProjectRequest true "Update Project Request"
// @Success      200  {object}  DataResponse
// @Router       /projects/{id} [patch]
func (s *Server) UpdateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), projectdomain.UpdateProjectRequest{
		ProjectID: c.Param("id"),
		Name:      req.Name,
		Status:    req.Status,
		ClientID:  req.ClientID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "project.updated", "project", resp.ID.String(), nil)
	respondData(c, resp)
}

// @Summary      Delete Project
// @Tags         projects
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Project ID"
// @Success      200  {object}  DataResponse
// @Router       /projects/{id} [delete]
func (s *Server) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := s.projectSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "project.deleted", "project", id, nil)
	respondData(c, gin.H{"deleted": true})
}
