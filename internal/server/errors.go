package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
	reportdomain "github.com/stackspendlabs/stackspend/internal/report/domain"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Message }

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Field:   field,
		Code:    code,
		Message: message,
	}
}

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

var notFoundErrors = []error{
	clientdomain.ErrClientNotFound,
	projectdomain.ErrProjectNotFound,
	subscriptiondomain.ErrSubscriptionNotFound,
	dealdomain.ErrDealNotFound,
}

var validationErrors = []error{
	clientdomain.ErrInvalidClient,
	clientdomain.ErrInvalidName,
	projectdomain.ErrInvalidProject,
	projectdomain.ErrInvalidName,
	projectdomain.ErrInvalidClient,
	projectdomain.ErrInvalidStatus,
	subscriptiondomain.ErrInvalidSubscription,
	subscriptiondomain.ErrInvalidName,
	subscriptiondomain.ErrInvalidAmount,
	subscriptiondomain.ErrInvalidBillingCycle,
	subscriptiondomain.ErrInvalidStartDate,
	subscriptiondomain.ErrInvalidStatus,
	subscriptiondomain.ErrInvalidTargetStatus,
	subscriptiondomain.ErrInvalidClient,
	subscriptiondomain.ErrInvalidProject,
	dealdomain.ErrInvalidDeal,
	dealdomain.ErrInvalidName,
	dealdomain.ErrInvalidAmount,
	dealdomain.ErrInvalidPurchaseDate,
	dealdomain.ErrInvalidRefundWindow,
	dealdomain.ErrInvalidClient,
	activitydomain.ErrInvalidAction,
	activitydomain.ErrInvalidEntityType,
}

var organizationErrors = []error{
	clientdomain.ErrInvalidOrganization,
	projectdomain.ErrInvalidOrganization,
	subscriptiondomain.ErrInvalidOrganization,
	dealdomain.ErrInvalidOrganization,
	activitydomain.ErrInvalidOrganization,
	reportdomain.ErrInvalidOrganization,
}

// AbortWithError maps domain errors to HTTP statuses. Unknown errors become
// opaque 500s so internals never leak to clients.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	for _, known := range notFoundErrors {
		if errors.Is(err, known) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": gin.H{
				"code":    "not_found",
				"message": known.Error(),
			}})
			return
		}
	}

	if errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": gin.H{
			"code":    "invalid_transition",
			"message": err.Error(),
		}})
		return
	}

	for _, known := range validationErrors {
		if errors.Is(err, known) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"code":    "validation_failed",
				"message": err.Error(),
			}})
			return
		}
	}

	for _, known := range organizationErrors {
		if errors.Is(err, known) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"code":    "invalid_organization",
				"message": known.Error(),
			}})
			return
		}
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	}})
}
