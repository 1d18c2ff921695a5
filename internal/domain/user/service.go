// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = apperror.NotFound("user not found")
	ErrMissingUser  = apperror.Integrity("referenced user no longer exists")
)

// Service reads and updates the parts of a user the checkout flow needs
type Service struct {
	db *gorm.DB
}

// NewService creates a new user service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// WithTx returns a service bound to tx
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx}
}

// GetProfile retrieves a user by ID
func (s *Service) GetProfile(ctx context.Context, userID uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &u, nil
}

// GetShippingAddress returns the address on file, zero if none was saved
func (s *Service) GetShippingAddress(ctx context.Context, userID uint) (address.Address, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return address.Address{}, err
	}
	return u.ShippingAddress, nil
}

// SaveShippingAddress overwrites the address on file. A missing user is an
// integrity failure: the caller holds an identity for a user that is gone.
func (s *Service) SaveShippingAddress(ctx context.Context, userID uint, addr address.Address) error {
	addr = addr.Normalize()

	// map form so that empty optional fields overwrite old values
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"shipping_line1":       addr.Line1,
			"shipping_line2":       addr.Line2,
			"shipping_city":        addr.City,
			"shipping_state":       addr.State,
			"shipping_postal_code": addr.PostalCode,
			"shipping_country":     addr.Country,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save shipping address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMissingUser.WithDetail("user_id", userID)
	}
	return nil
}
