// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/address"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&product.Product{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.Line{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes the list queries rely on
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(payment_status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_products_active_name ON products(is_active, name)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart_created ON cart_items(cart_id, created_at)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("Failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Database indexes ensured")
	if failed > 0 {
		return fmt.Errorf("%d indexes could not be created", failed)
	}
	return nil
}

// SeedInitialData inserts development users and products. Existing rows
// are left untouched.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("Seeding initial data")

	if err := m.seedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.logger.Info("Initial data seeded")
	return nil
}

func (m *Migration) seedUsers() error {
	users := []user.User{
		{Email: "admin@example.com", IsAdmin: true},
		{
			Email: "test1@example.com",
			ShippingAddress: address.Address{
				Line1:      "221B Baker Street",
				City:       "London",
				PostalCode: "NW1 6XE",
				Country:    "GB",
			},
		},
	}

	for _, u := range users {
		var existing user.User
		err := m.db.Where("email = ?", u.Email).First(&existing).Error
		if err == nil {
			m.logger.WithField("email", u.Email).Debug("User already exists")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := m.db.Create(&u).Error; err != nil {
			return err
		}
		m.logger.WithFields(logrus.Fields{"email": u.Email, "id": u.ID}).Info("Created user")
	}
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.logger.Debug("Products already exist")
		return nil
	}

	products := []product.Product{
		{SKU: "MUG-001", Name: "Stoneware Mug", Price: 1000, StockQuantity: 50, IsActive: true},
		{SKU: "TEA-001", Name: "Loose Leaf Tea", Price: 500, StockQuantity: 100, IsActive: true},
		{SKU: "KTL-001", Name: "Gooseneck Kettle", Price: 4999, StockQuantity: 3, IsActive: true},
		{SKU: "OLD-001", Name: "Discontinued Teapot", Price: 2500, StockQuantity: 0, IsActive: false},
	}
	if err := m.db.Create(&products).Error; err != nil {
		return err
	}
	m.logger.WithField("count", len(products)).Info("Created products")
	return nil
}
