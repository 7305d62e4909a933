package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildmart/marketplace-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddressService manages a user's delivery addresses
type AddressService struct {
	db *gorm.DB
}

// NewAddressService creates an address service backed by db
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// AddressInput holds the fields of a new address
type AddressInput struct {
	AddressName   string
	FullAddress   string
	ContactName   string
	ContactNumber string
	IsDefault     bool
}

// AddAddress stores an address for the principal. A user has at most one
// default address; the first address always becomes the default.
func (s *AddressService) AddAddress(ctx context.Context, p Principal, in AddressInput) (*models.Address, error) {
	address := models.Address{
		UserID:        p.UserID,
		AddressName:   strings.TrimSpace(in.AddressName),
		FullAddress:   strings.TrimSpace(in.FullAddress),
		ContactName:   strings.TrimSpace(in.ContactName),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		IsDefault:     in.IsDefault,
	}
	switch {
	case address.AddressName == "":
		return nil, ErrMissingField.WithMessage("addressName is required")
	case address.FullAddress == "":
		return nil, ErrMissingField.WithMessage("fullAddress is required")
	case address.ContactName == "":
		return nil, ErrMissingField.WithMessage("contactName is required")
	case address.ContactNumber == "":
		return nil, ErrMissingField.WithMessage("contactNumber is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serialises address writes per user
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&owner, p.UserID).Error; err != nil {
			return fmt.Errorf("lock user %d: %w", p.UserID, err)
		}

		var existing int64
		if err := tx.Model(&models.Address{}).Where("user_id = ?", p.UserID).Count(&existing).Error; err != nil {
			return fmt.Errorf("count addresses: %w", err)
		}
		if existing == 0 {
			address.IsDefault = true
		}
		if address.IsDefault && existing > 0 {
			err := tx.Model(&models.Address{}).
				Where("user_id = ? AND is_default = ?", p.UserID, true).
				Update("is_default", false).Error
			if err != nil {
				return fmt.Errorf("clear default address: %w", err)
			}
		}
		if err := tx.Create(&address).Error; err != nil {
			return fmt.Errorf("create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// ListAddresses returns the principal's addresses, default first
func (s *AddressService) ListAddresses(ctx context.Context, p Principal) ([]models.Address, error) {
	addresses := []models.Address{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", p.UserID).
		Order("is_default DESC").Order("created_at ASC").
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}
