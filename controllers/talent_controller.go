package controllers

import (
	"net/http"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TalentProfileRequest is the body of POST /talent/createProfile
type TalentProfileRequest struct {
	Headline        string           `json:"headline" binding:"required"`
	Skills          []string         `json:"skills"`
	HourlyRate      *decimal.Decimal `json:"hourlyRate"`
	YearsExperience int              `json:"yearsExperience"`
	Location        string           `json:"location"`
}

// InviteRequest is the body of POST /talent/invite/:id where :id is the profile
type InviteRequest struct {
	ProjectID uint   `json:"projectId" binding:"required"`
	Message   string `json:"message"`
}

// RespondInviteRequest is the body of PUT /talent/respondInvite/:id
type RespondInviteRequest struct {
	Status models.InviteStatus `json:"status" binding:"required"`
}

// CreateTalentProfile handles POST /talent/createProfile
func CreateTalentProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req TalentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	profile, err := services.NewTalentService(config.GetDB()).CreateProfile(c.Request.Context(), p, services.TalentProfileInput{
		Headline:        req.Headline,
		Skills:          req.Skills,
		HourlyRate:      req.HourlyRate,
		YearsExperience: req.YearsExperience,
		Location:        req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, profile)
}

// GetTalentProfiles handles GET /talent/getProfiles?skill=
func GetTalentProfiles(c *gin.Context) {
	profiles, err := services.NewTalentService(config.GetDB()).ListProfiles(c.Request.Context(), c.Query("skill"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, profiles)
}

// SendInvite handles POST /talent/invite/:id
func SendInvite(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	profileID, ok := idParam(c)
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	invite, err := services.NewTalentService(config.GetDB()).SendInvite(c.Request.Context(), p, profileID, req.ProjectID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, invite)
}

// RespondInvite handles PUT /talent/respondInvite/:id
func RespondInvite(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req RespondInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	invite, err := services.NewTalentService(config.GetDB()).RespondInvite(c.Request.Context(), p, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, invite)
}
