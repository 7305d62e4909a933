package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TalentProfile is a professional's public profile, one per user
type TalentProfile struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	UserID          uint                        `gorm:"uniqueIndex;not null" json:"user_id"`
	User            *User                       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Headline        string                      `gorm:"not null" json:"headline"`
	Skills          datatypes.JSONSlice[string] `json:"skills"`
	HourlyRate      decimal.NullDecimal         `gorm:"type:decimal(10,2)" json:"hourly_rate"`
	YearsExperience int                         `gorm:"not null;default:0" json:"years_experience"`
	Location        string                      `json:"location"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for the TalentProfile model
func (TalentProfile) TableName() string {
	return "talent_profiles"
}

// InviteStatus is the state of a project invitation
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRejected InviteStatus = "REJECTED"
)

// Invite asks a professional to join a project
type Invite struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProjectID   uint           `gorm:"not null;index" json:"project_id"`
	ProfileID   uint           `gorm:"not null;index" json:"profile_id"`
	Profile     *TalentProfile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	InvitedByID uint           `gorm:"not null" json:"invited_by_id"`
	Message     string         `gorm:"type:text" json:"message"`
	Status      InviteStatus   `gorm:"not null;default:'PENDING'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the Invite model
func (Invite) TableName() string {
	return "invites"
}
