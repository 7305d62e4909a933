package controllers

import (
	"errors"
	"net/http"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/middleware"
	"github.com/buildmart/marketplace-api/services"
	"github.com/buildmart/marketplace-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusFor maps a domain error kind to its HTTP status
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindInsufficientStock, services.KindIllegalTransition, services.KindConflict:
		return http.StatusConflict
	case services.KindUnauthorized:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError renders err in the standard error envelope. Domain and upload
// errors keep their code and message; anything else is logged and reported
// as a generic 500.
func respondError(c *gin.Context, err error) {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(statusFor(domainErr.Kind), gin.H{
			"success": false,
			"error": gin.H{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			},
		})
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    uploadErr.Code,
				"message": uploadErr.Message,
			},
		})
		return
	}

	log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		},
	})
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// principal returns the acting principal, writing a 401 when it is missing
func principal(c *gin.Context) (services.Principal, bool) {
	p, err := middleware.GetPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return services.Principal{}, false
	}
	return p, true
}

// idParam parses the :id path parameter, writing a 400 when it is invalid
func idParam(c *gin.Context) (uint, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid ID format",
			},
		})
		return 0, false
	}
	return id, true
}

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB())
}

func orderService() *services.OrderService {
	restock := false
	if cfg := config.GetConfig(); cfg != nil {
		restock = cfg.RestockOnCancel
	}
	return services.NewOrderService(config.GetDB(), services.GetEventBus(), restock)
}

func ledgerService() *services.LedgerService {
	return services.NewLedgerService(config.GetDB(), services.GetSummaryCache())
}
