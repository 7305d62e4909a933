package services

import "github.com/buildmart/marketplace-api/models"

// Principal is the authenticated actor on whose behalf an operation runs.
// It is always derived from the validated token, never from request input.
type Principal struct {
	UserID  uint
	Auth0ID string
	Role    models.UserRole
}

// PrincipalFor builds the principal for a stored user
func PrincipalFor(user models.User) Principal {
	return Principal{UserID: user.ID, Auth0ID: user.Auth0ID, Role: user.Role}
}
