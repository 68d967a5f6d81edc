package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
)

type createSubscriptionRequest struct {
	Name         string         `json:"name"`
	Vendor       string         `json:"vendor,omitempty"`
	Category     string         `json:"category,omitempty"`
	Amount       float64        `json:"amount"`
	Currency     string         `json:"currency,omitempty"`
	BillingCycle string         `json:"billing_cycle"`
	StartDate    string         `json:"start_date"`
	ClientID     string         `json:"client_id,omitempty"`
	ProjectID    string         `json:"project_id,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// @Summary      Create Subscription
// @Description  Create a recurring subscription; the response carries derived billing fields
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        X-Org-ID         header  string  true   "Organization ID"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body createSubscriptionRequest true "Create Subscription Request"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions [post]
func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateSubscriptionRequest{
		Name:           strings.TrimSpace(req.Name),
		Vendor:         req.Vendor,
		Category:       req.Category,
		Amount:         req.Amount,
		Currency:       req.Currency,
		BillingCycle:   req.BillingCycle,
		StartDate:      strings.TrimSpace(req.StartDate),
		ClientID:       strings.TrimSpace(req.ClientID),
		ProjectID:      strings.TrimSpace(req.ProjectID),
		Notes:          req.Notes,
		Metadata:       req.Metadata,
		IdempotencyKey: idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "subscription.created", "subscription", resp.ID.String(), map[string]any{
		"name":          resp.Name,
		"billing_cycle": resp.BillingCycle,
	})
	s.invalidateReports(c)
	respondData(c, resp)
}

// @Summary      List Subscriptions
// @Tags         subscriptions
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        status    query   string  false "Filter by status"
// @Success      200  {object}  ListResponse
// @Router       /subscriptions [get]
func (s *Server) ListSubscriptions(c *gin.Context) {
	req := subscriptiondomain.ListSubscriptionRequest{
		Status:    c.Query("status"),
		ClientID:  strings.TrimSpace(c.Query("client_id")),
		ProjectID: strings.TrimSpace(c.Query("project_id")),
		Category:  strings.TrimSpace(c.Query("category")),
		PageToken: c.Query("page_token"),
		PageSize:  pageSizeFromQuery(c),
	}

	if raw := strings.TrimSpace(c.Query("created_from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("created_from", "invalid_timestamp", "expected RFC 3339 timestamp"))
			return
		}
		req.CreatedFrom = &from
	}
	if raw := strings.TrimSpace(c.Query("created_to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("created_to", "invalid_timestamp", "expected RFC 3339 timestamp"))
			return
		}
		req.CreatedTo = &to
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Subscriptions, &resp.PageInfo)
}

// @Summary      Get Subscription
// @Tags         subscriptions
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id} [get]
func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

type updateSubscriptionRequest struct {
	Name         *string        `json:"name,omitempty"`
	Vendor       *string        `json:"vendor,omitempty"`
	Category     *string        `json:"category,omitempty"`
	Amount       *float64       `json:"amount,omitempty"`
	Currency     *string        `json:"currency,omitempty"`
	BillingCycle *string        `json:"billing_cycle,omitempty"`
	StartDate    *string        `json:"start_date,omitempty"`
	ClientID     *string        `json:"client_id,omitempty"`
	ProjectID    *string        `json:"project_id,omitempty"`
	Notes        *string        `json:"notes,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// @Summary      Update Subscription
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Subscription ID"
// @Param        request   body    updateSubscriptionRequest true "Update Subscription Request"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id} [patch]
func (s *Server) UpdateSubscription(c *gin.Context) {
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Update(c.Request.Context(), subscriptiondomain.UpdateSubscriptionRequest{
		SubscriptionID: c.Param("id"),
		Name:           req.Name,
		Vendor:         req.Vendor,
		Category:       req.Category,
		Amount:         req.Amount,
		Currency:       req.Currency,
		BillingCycle:   req.BillingCycle,
		StartDate:      req.StartDate,
		ClientID:       req.ClientID,
		ProjectID:      req.ProjectID,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "subscription.updated", "subscription", resp.ID.String(), nil)
	s.invalidateReports(c)
	respondData(c, resp)
}

// @Summary      Delete Subscription
// @Tags         subscriptions
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id} [delete]
func (s *Server) DeleteSubscription(c *gin.Context) {
	id := c.Param("id")
	if err := s.subscriptionSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "subscription.deleted", "subscription", id, nil)
	s.invalidateReports(c)
	respondData(c, gin.H{"deleted": true})
}

// @Summary      Pause Subscription
// @Tags         subscriptions
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/pause [post]
func (s *Server) PauseSubscription(c *gin.Context) {
	s.transitionSubscription(c, subscriptiondomain.SubscriptionStatusPaused, "subscription.paused")
}

// @Summary      Resume Subscription
// @Tags         subscriptions
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/resume [post]
func (s *Server) ResumeSubscription(c *gin.Context) {
	s.transitionSubscription(c, subscriptiondomain.SubscriptionStatusActive, "subscription.resumed")
}

// @Summary      Cancel Subscription
// @Tags         subscriptions
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Subscription ID"
// @Success      200  {object}  DataResponse
// @Router       /subscriptions/{id}/cancel [post]
func (s *Server) CancelSubscription(c *gin.Context) {
	s.transitionSubscription(c, subscriptiondomain.SubscriptionStatusCanceled, "subscription.canceled")
}

func (s *Server) transitionSubscription(c *gin.Context, target subscriptiondomain.SubscriptionStatus, action string) {
	id := c.Param("id")
	if err := s.subscriptionSvc.Transition(c.Request.Context(), id, target); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, action, "subscription", id, nil)
	s.invalidateReports(c)

	resp, err := s.subscriptionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
