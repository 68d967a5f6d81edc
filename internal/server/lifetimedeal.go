package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
)

type createLifetimeDealRequest struct {
	Name             string         `json:"name"`
	Vendor           string         `json:"vendor,omitempty"`
	Amount           float64        `json:"amount"`
	Currency         string         `json:"currency,omitempty"`
	PurchaseDate     string         `json:"purchase_date"`
	RefundWindowDays int            `json:"refund_window_days,omitempty"`
	ClientID         string         `json:"client_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// @Summary      Create Lifetime Deal
// @Tags         lifetime-deals
// @Accept       json
// @Produce      json
// @Param        X-Org-ID         header  string  true   "Organization ID"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body createLifetimeDealRequest true "Create Lifetime Deal Request"
// @Success      200  {object}  DataResponse
// @Router       /lifetime-deals [post]
func (s *Server) CreateLifetimeDeal(c *gin.Context) {
	var req createLifetimeDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dealSvc.Create(c.Request.Context(), dealdomain.CreateDealRequest{
		Name:             strings.TrimSpace(req.Name),
		Vendor:           req.Vendor,
		Amount:           req.Amount,
		Currency:         req.Currency,
		PurchaseDate:     strings.TrimSpace(req.PurchaseDate),
		RefundWindowDays: req.RefundWindowDays,
		ClientID:         strings.TrimSpace(req.ClientID),
		Metadata:         req.Metadata,
		IdempotencyKey:   idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "lifetime_deal.created", "lifetime_deal", resp.ID.String(), map[string]any{
		"name": resp.Name,
	})
	s.invalidateReports(c)
	respondData(c, resp)
}

// @Summary      List Lifetime Deals
// @Tags         lifetime-deals
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Success      200  {object}  ListResponse
// @Router       /lifetime-deals [get]
func (s *Server) ListLifetimeDeals(c *gin.Context) {
	resp, err := s.dealSvc.List(c.Request.Context(), dealdomain.ListDealRequest{
		ClientID:  strings.TrimSpace(c.Query("client_id")),
		PageToken: c.Query("page_token"),
		PageSize:  pageSizeFromQuery(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Deals, &resp.PageInfo)
}

// @Summary      Get Lifetime Deal
// @Tags         lifetime-deals
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Deal ID"
// @Success      200  {object}  DataResponse
// @Router       /lifetime-deals/{id} [get]
func (s *Server) GetLifetimeDeal(c *gin.Context) {
	resp, err := s.dealSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

type updateLifetimeDealRequest struct {
	Name             *string        `json:"name,omitempty"`
	Vendor           *string        `json:"vendor,omitempty"`
	Amount           *float64       `json:"amount,omitempty"`
	Currency         *string        `json:"currency,omitempty"`
	PurchaseDate     *string        `json:"purchase_date,omitempty"`
	RefundWindowDays *int           `json:"refund_window_days,omitempty"`
	ClientID         *string        `json:"client_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// @Summary      Update Lifetime Deal
// @Tags         lifetime-deals
// @Accept       json
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Deal ID"
// @Param        request   body    updateLifetimeDealRequest true "Update Lifetime Deal Request"
// @Success      200  {object}  DataResponse
// @Router       /lifetime-deals/{id} [patch]
func (s *Server) UpdateLifetimeDeal(c *gin.Context) {
	var req updateLifetimeDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dealSvc.Update(c.Request.Context(), dealdomain.UpdateDealRequest{
		DealID:           c.Param("id"),
		Name:             req.Name,
		Vendor:           req.Vendor,
		Amount:           req.Amount,
		Currency:         req.Currency,
		PurchaseDate:     req.PurchaseDate,
		RefundWindowDays: req.RefundWindowDays,
		ClientID:         req.ClientID,
		Metadata:         req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "lifetime_deal.updated", "lifetime_deal", resp.ID.String(), nil)
	s.invalidateReports(c)
	respondData(c, resp)
}

// @Summary      Delete Lifetime Deal
// @Tags         lifetime-deals
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Param        id        path    string  true  "Deal ID"
// @Success      200  {object}  DataResponse
// @Router       /lifetime-deals/{id} [delete]
func (s *Server) DeleteLifetimeDeal(c *gin.Context) {
	id := c.Param("id")
	if err := s.dealSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, "lifetime_deal.deleted", "lifetime_deal", id, nil)
	s.invalidateReports(c)
	respondData(c, gin.H{"deleted": true})
}
