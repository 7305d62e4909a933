package controllers

import (
	"net/http"
	"strings"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/middleware"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateUser handles POST /users - creates the caller's profile. Name and
// email come from the token claims, or from Auth0's /userinfo endpoint when
// the token does not carry them.
func CreateUser(c *gin.Context) {
	// Get the Auth0 user ID from the validated JWT
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user ID from token",
			},
		})
		return
	}

	claims := middleware.GetCustomClaims(c)
	name, email := claims.Name, claims.Email

	if name == "" || email == "" {
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Access token not found",
				},
			})
			return
		}

		cfg := config.GetConfig()
		if cfg == nil || cfg.Auth0Domain == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_PROFILE_CLAIMS",
					"message": "Token carries no name or email and no identity provider is configured",
				},
			})
			return
		}

		userInfo, err := services.NewAuth0Service(cfg).GetUserInfo(c.Request.Context(), accessToken)
		if err != nil {
			log.Error().Err(err).Str("auth0_id", auth0ID).Msg("failed to fetch userinfo")
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUTH0_ERROR",
					"message": "Failed to fetch user information from Auth0",
				},
			})
			return
		}
		if name == "" {
			name = userInfo.Name
		}
		if email == "" {
			email = userInfo.Email
		}
	}

	// Validate that required fields are present
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_EMAIL",
				"message": "Email not provided by the identity provider",
			},
		})
		return
	}
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_NAME",
				"message": "Name not provided by the identity provider",
			},
		})
		return
	}

	// suppliers are made by POST /supplier/createProfile, never by a claim
	role := models.RoleCustomer
	if models.UserRole(claims.Role) == models.RoleProfessional {
		role = models.RoleProfessional
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    name,
		Email:   email,
		Role:    role,
	}

	db := config.GetDB()
	if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "USER_EXISTS",
					"message": "A user with this Auth0 ID or email already exists",
				},
			})
			return
		}
		respondError(c, err)
		return
	}

	log.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	respondData(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/me - the caller's profile
func GetMyProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var user models.User
	if err := config.GetDB().WithContext(c.Request.Context()).First(&user, p.UserID).Error; err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/me - updates the caller's name or email
func UpdateMyProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if len(updates) > 0 {
		if err := db.Model(&models.User{}).Where("id = ?", p.UserID).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "EMAIL_EXISTS",
						"message": "A user with this email already exists",
					},
				})
				return
			}
			respondError(c, err)
			return
		}
	}

	var user models.User
	if err := db.First(&user, p.UserID).Error; err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// isUniqueViolation works with both PostgreSQL and SQLite error texts
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
