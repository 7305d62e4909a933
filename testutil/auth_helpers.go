package testutil

import (
	"testing"
	"time"

	"github.com/buildmart/marketplace-api/config"
	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret is the HS256 secret used by tests; it satisfies the minimum length check
const TestJWTSecret = "test-secret-that-is-at-least-32-characters"

// TestConfig returns a configuration for HS256 tokens signed with TestJWTSecret
func TestConfig() *config.Config {
	return &config.Config{
		DatabaseURL:     "sqlite://:memory:",
		Port:            "8080",
		GoEnv:           "test",
		JWTSecret:       TestJWTSecret,
		JWTIssuer:       "buildmart",
		KafkaOrderTopic: "order-events",
		KafkaGroupID:    "budget-ledger",
		SummaryCacheTTL: 5 * time.Minute,
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
	}
}

// SignToken mints an HS256 token for subject that cfg's validator accepts.
// extra claims (scope, role, email, name) are merged in.
func SignToken(t *testing.T, cfg *config.Config, subject string, extra map[string]interface{}) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": cfg.JWTIssuer,
		"aud": cfg.TokenAudience(),
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for key, value := range extra {
		claims[key] = value
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}
