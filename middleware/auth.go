package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/buildmart/marketplace-api/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string `json:"scope"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Validate satisfies validator.CustomClaims; role values are checked
// where they are used.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// With AUTH0_DOMAIN set tokens are RS256 and verified against the tenant's
// JWKS; otherwise they are HS256 signed with JWT_SECRET.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	jwtValidator, err := newValidator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Encountered error while validating JWT")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Error().Err(writeErr).Msg("Failed to write error response")
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		authenticated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			authenticated = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set("user_id", token.RegisteredClaims.Subject)
			c.Set("validated_claims", token)
			if customClaims, ok := token.CustomClaims.(*CustomClaims); ok {
				c.Set("custom_claims", customClaims)
			}
			if accessToken, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
				c.Set("access_token", accessToken)
			}

			c.Request = r
			c.Next()
		}

		// Use the JWT middleware to check the token
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !authenticated {
			c.Abort()
		}
	}
}

func newValidator(cfg *config.Config) (*validator.Validator, error) {
	customClaims := validator.WithCustomClaims(func() validator.CustomClaims {
		return &CustomClaims{}
	})
	audience := []string{cfg.TokenAudience()}

	if cfg.UsesAuth0() {
		issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
		if err != nil {
			return nil, err
		}
		provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
		return validator.New(
			provider.KeyFunc,
			validator.RS256,
			issuerURL.String(),
			audience,
			customClaims,
			validator.WithAllowedClockSkew(time.Minute),
		)
	}

	secret := []byte(cfg.JWTSecret)
	return validator.New(
		func(context.Context) (interface{}, error) { return secret, nil },
		validator.HS256,
		cfg.JWTIssuer,
		audience,
		customClaims,
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetCustomClaims returns the token's custom claims, or empty claims when
// the token carried none
func GetCustomClaims(c *gin.Context) *CustomClaims {
	if value, exists := c.Get("custom_claims"); exists {
		if claims, ok := value.(*CustomClaims); ok {
			return claims
		}
	}
	return &CustomClaims{}
}

// GetAccessToken returns the raw bearer token of the request
func GetAccessToken(c *gin.Context) (string, error) {
	value, exists := c.Get("access_token")
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}
	token, ok := value.(string)
	if !ok || token == "" {
		return "", &AuthError{Code: "INVALID_TOKEN", Message: "Access token is not a string"}
	}
	return token, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
