package middleware

import (
	"errors"
	"net/http"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const principalKey = "principal"

// LoadPrincipal resolves the token subject to a stored user and makes it the
// acting principal for the rest of the request. It must run after
// EnsureValidToken.
func LoadPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			return
		}

		var user models.User
		if err := config.GetDB().WithContext(c.Request.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "USER_NOT_FOUND",
						"message": "User profile not found. Please create a profile first.",
					},
				})
				return
			}
			log.Error().Err(err).Str("auth0_id", auth0ID).Msg("failed to load principal")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "An unexpected error occurred",
				},
			})
			return
		}

		c.Set(principalKey, services.PrincipalFor(user))
		c.Next()
	}
}

// GetPrincipal returns the principal stored by LoadPrincipal
func GetPrincipal(c *gin.Context) (services.Principal, error) {
	value, exists := c.Get(principalKey)
	if !exists {
		return services.Principal{}, &AuthError{Code: "MISSING_PRINCIPAL", Message: "Principal not found in context"}
	}
	principal, ok := value.(services.Principal)
	if !ok {
		return services.Principal{}, &AuthError{Code: "INVALID_PRINCIPAL", Message: "Principal is not in the expected format"}
	}
	return principal, nil
}

// SetPrincipal stores a principal on the context (primarily for testing)
func SetPrincipal(c *gin.Context, principal services.Principal) {
	c.Set(principalKey, principal)
}

// RequireRole lets the request through only when the principal has one of roles
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Your role does not allow this action",
			},
		})
	}
}
