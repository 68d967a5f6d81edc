package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
)

type createClientRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email,omitempty"`
	Company  string         `json:"company,omitempty"`
	Notes    string         `json:"notes,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// @Summary      Create Client
// @Description  Create a new client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        X-Org-ID         header  string  true   "Organization ID"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body createClientRequest true "Create Client Request"
// @Success      200  {object}  DataResponse
// @Router       /clients [post]
func (s *Server) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.Create(c.Request.Context(), clientdomain.CreateClientRequest{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Company:        strings.TrimSpace(req.Company),
		Notes:          req.Notes,
		Metadata:       req.Metadata,
		IdempotencyKey: idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "client.created", "client", resp.ID.String(), map[string]any{
		"name": resp.Name,
	})
	respondData(c, resp)
}

// @Summary      List Clients
// @Tags         clients
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Success      200  {object}  ListResponse
// @Router       /clients [get]
func (s *Server) ListClients(c *gin.Context) {
	resp, err := s.clientSvc.List(c.Request.Context(), clientdomain.ListClientRequest{
		Name:      strings.TrimSpace(c.Query("name")),
		PageToken: c.Query("page_token"),
		PageSize:  pageSizeFromQuery(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Clients, &resp.PageInfo)
}

// @Summary      Get Client
// @Tags         clients
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Client ID"
// @Success      200  {object}  DataResponse
// @Router       /clients/{id} [get]
func (s *Server) GetClient(c *gin.Context) {
	resp, err := s.clientSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

type updateClientRequest struct {
	Name     *string        `json:"name,omitempty"`
	Email    *string        `json:"email,omitempty"`
	Company  *string        `json:"company,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// @Summary      Update Client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Client ID"
// @Param        request   body    updateClientRequest true "Update Client Request"
// @Success      200  {object}  DataResponse
// @Router       /clients/{id} [patch]
func (s *Server) UpdateClient(c *gin.Context) {
	var req updateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.Update(c.Request.Context(), clientdomain.UpdateClientRequest{
		ClientID: c.Param("id"),
		Name:     req.Name,
		Email:    req.Email,
		Company:  req.Company,
		Notes:    req.Notes,
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "client.updated", "client", resp.ID.String(), nil)
	respondData(c, resp)
}

// @Summary      Delete Client
// @Tags         clients
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Client ID"
// @Success      200  {object}  DataResponse
// @Router       /clients/{id} [delete]
func (s *Server) DeleteClient(c *gin.Context) {
	id := c.Param("id")
	if err := s.clientSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "client.deleted", "client", id, nil)
	respondData(c, gin.H{"deleted": true})
}
