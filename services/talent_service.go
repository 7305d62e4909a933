package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buildmart/marketplace-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TalentService manages professional profiles and project invitations
type TalentService struct {
	db *gorm.DB
}

// NewTalentService creates a talent service backed by db
func NewTalentService(db *gorm.DB) *TalentService {
	return &TalentService{db: db}
}

// TalentProfileInput holds the fields of a new talent profile
type TalentProfileInput struct {
	Headline        string
	Skills          []string
	HourlyRate      *decimal.Decimal
	YearsExperience int
	Location        string
}

// CreateProfile creates the principal's talent profile. Each user has at most one.
func (s *TalentService) CreateProfile(ctx context.Context, p Principal, in TalentProfileInput) (*models.TalentProfile, error) {
	headline := strings.TrimSpace(in.Headline)
	if headline == "" {
		return nil, ErrMissingField.WithMessage("headline is required")
	}
	if in.YearsExperience < 0 {
		return nil, ErrInvalidAmount.WithMessage("years_experience cannot be negative")
	}
	if in.HourlyRate != nil && in.HourlyRate.IsNegative() {
		return nil, ErrInvalidAmount.WithMessage("hourly_rate cannot be negative")
	}

	profile := models.TalentProfile{
		UserID:          p.UserID,
		Headline:        headline,
		Skills:          normalizeSkills(in.Skills),
		YearsExperience: in.YearsExperience,
		Location:        strings.TrimSpace(in.Location),
	}
	if in.HourlyRate != nil {
		profile.HourlyRate = decimal.NewNullDecimal(*in.HourlyRate)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.TalentProfile{}).Where("user_id = ?", p.UserID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check talent profile: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateProfile.WithMessage("A talent profile already exists for this user")
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create talent profile: %w", err)
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND role = ?", p.UserID, models.RoleCustomer).
			Update("role", models.RoleProfessional).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfiles returns talent profiles, optionally those listing skill
func (s *TalentService) ListProfiles(ctx context.Context, skill string) ([]models.TalentProfile, error) {
	profiles := []models.TalentProfile{}
	if err := s.db.WithContext(ctx).Preload("User").Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list talent profiles: %w", err)
	}

	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill == "" {
		return profiles, nil
	}
	// skills live in a JSON column, so match in Go rather than per-dialect SQL
	matched := []models.TalentProfile{}
	for _, profile := range profiles {
		for _, have := range profile.Skills {
			if have == skill {
				matched = append(matched, profile)
				break
			}
		}
	}
	return matched, nil
}

// SendInvite invites a professional to a project the principal owns
func (s *TalentService) SendInvite(ctx context.Context, p Principal, profileID, projectID uint, message string) (*models.Invite, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadOwnedProject(db, p.UserID, projectID); err != nil {
		return nil, err
	}

	var profile models.TalentProfile
	if err := db.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load talent profile %d: %w", profileID, err)
	}

	invite := models.Invite{
		ProjectID:   projectID,
		ProfileID:   profile.ID,
		InvitedByID: p.UserID,
		Message:     strings.TrimSpace(message),
		Status:      models.InvitePending,
	}
	if err := db.Create(&invite).Error; err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	invite.Profile = &profile
	return &invite, nil
}

// RespondInvite accepts or rejects a pending invite addressed to the
// principal. Accepting makes the principal a project member.
func (s *TalentService) RespondInvite(ctx context.Context, p Principal, inviteID uint, status models.InviteStatus) (*models.Invite, error) {
	if status != models.InviteAccepted && status != models.InviteRejected {
		return nil, ErrInvalidStatus.WithMessage("Status must be ACCEPTED or REJECTED")
	}

	var invite models.Invite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Profile").First(&invite, inviteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("load invite %d: %w", inviteID, err)
		}
		if invite.Profile == nil || invite.Profile.UserID != p.UserID {
			return ErrForbidden.WithMessage("This invite is addressed to someone else")
		}
		if invite.Status != models.InvitePending {
			return ErrIllegalTransition.WithMessage("Invite was already %s", invite.Status)
		}

		result := tx.Model(&models.Invite{}).
			Where("id = ? AND status = ?", invite.ID, models.InvitePending).
			Update("status", status)
		if result.Error != nil {
			return fmt.Errorf("update invite %d: %w", inviteID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrIllegalTransition.WithMessage("Invite was answered concurrently")
		}
		invite.Status = status

		if status == models.InviteAccepted {
			member := models.ProjectMember{ProjectID: invite.ProjectID, UserID: p.UserID}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func normalizeSkills(skills []string) []string {
	seen := map[string]bool{}
	normalized := []string{}
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		normalized = append(normalized, skill)
	}
	return normalized
}
