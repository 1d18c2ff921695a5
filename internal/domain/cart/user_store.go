// internal/domain/cart/user_store.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userStore keeps registered carts in the database. Quantity changes are
// single relative UPDATE or upsert statements, so concurrent clicks on the
// same line accumulate instead of overwriting each other.
type userStore struct {
	db *gorm.DB
}

// cartID returns the id of the user's cart row, creating it when create is
// set. Without create, a missing cart yields 0.
func (u *userStore) cartID(ctx context.Context, userID uint, create bool) (uint, error) {
	db := u.db.WithContext(ctx)

	if create {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&Cart{UserID: userID}).Error
		if err != nil {
			return 0, fmt.Errorf("failed to create cart: %w", err)
		}
	}

	var c Cart
	err := db.Select("id").Where("user_id = ?", userID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load cart: %w", err)
	}
	return c.ID, nil
}

func (u *userStore) lines(ctx context.Context, userID uint) ([]Line, error) {
	id, err := u.cartID(ctx, userID, false)
	if err != nil || id == 0 {
		return []Line{}, err
	}

	var items []CartItem
	if err := u.db.WithContext(ctx).Where("cart_id = ?", id).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart items: %w", err)
	}

	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = item.line()
	}
	return lines, nil
}

func (u *userStore) add(ctx context.Context, userID uint, line Line) error {
	id, err := u.cartID(ctx, userID, true)
	if err != nil {
		return err
	}

	item := CartItem{
		CartID:    id,
		ProductID: line.ProductID,
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
	}
	err = u.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"unit_price": gorm.Expr("excluded.unit_price"),
			"name":       gorm.Expr("excluded.name"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (u *userStore) set(ctx context.Context, userID, productID uint, quantity int) error {
	id, err := u.cartID(ctx, userID, false)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrLineNotFound
	}

	result := u.db.WithContext(ctx).Model(&CartItem{}).
		Where("cart_id = ? AND product_id = ?", id, productID).
		Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (u *userStore) adjust(ctx context.Context, userID, productID uint, delta int) error {
	id, err := u.cartID(ctx, userID, false)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrLineNotFound
	}

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CartItem{}).
			Where("cart_id = ? AND product_id = ?", id, productID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
		if result.Error != nil {
			return fmt.Errorf("failed to adjust cart item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLineNotFound
		}
		if delta < 0 {
			if err := tx.Where("cart_id = ? AND product_id = ? AND quantity <= 0", id, productID).
				Delete(&CartItem{}).Error; err != nil {
				return fmt.Errorf("failed to remove emptied cart item: %w", err)
			}
		}
		return nil
	})
}

func (u *userStore) removeLine(ctx context.Context, userID, productID uint) error {
	id, err := u.cartID(ctx, userID, false)
	if err != nil || id == 0 {
		return err
	}
	if err := u.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", id, productID).
		Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (u *userStore) clear(ctx context.Context, userID uint) error {
	id, err := u.cartID(ctx, userID, false)
	if err != nil || id == 0 {
		return err
	}
	if err := u.db.WithContext(ctx).Where("cart_id = ?", id).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// deleteCart removes the lines and then the cart row. Returns whether a
// cart existed.
func (u *userStore) deleteCart(ctx context.Context, userID uint) (bool, error) {
	id, err := u.cartID(ctx, userID, false)
	if err != nil || id == 0 {
		return false, err
	}

	db := u.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", id).Delete(&CartItem{}).Error; err != nil {
		return false, fmt.Errorf("failed to delete cart items: %w", err)
	}
	if err := db.Where("id = ?", id).Delete(&Cart{}).Error; err != nil {
		return false, fmt.Errorf("failed to delete cart: %w", err)
	}
	return true, nil
}
