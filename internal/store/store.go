package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"order-assistant/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetTenantSettings retrieves a tenant with its checkout settings. Returns nil when absent.
func (s *Store) GetTenantSettings(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if !isUUID(tenantID) {
		return nil, nil
	}

	var tenant models.Tenant
	err := s.db.GetContext(ctx, &tenant, `
		SELECT id, name, timezone, minimum_order, delivery_fee, business_hours, created_at
		FROM tenants WHERE id = $1`, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}
	return &tenant, nil
}

// GetProductPricing retrieves the authoritative price table of a product. Returns nil when absent.
func (s *Store) GetProductPricing(ctx context.Context, tenantID, productID string) (*models.ProductPricing, error) {
	if !isUUID(tenantID) || !isUUID(productID) {
		return nil, nil
	}

	var pricing models.ProductPricing

	err := s.db.GetContext(ctx, &pricing.Product, `
		SELECT id, tenant_id, name, base_price, is_available
		FROM products WHERE id = $1 AND tenant_id = $2`, productID, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}

	err = s.db.SelectContext(ctx, &pricing.Variations, `
		SELECT id, product_id, name, price_delta
		FROM product_variations WHERE product_id = $1 ORDER BY name`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variations for product %s: %w", productID, err)
	}

	err = s.db.SelectContext(ctx, &pricing.Addons, `
		SELECT id, product_id, name, price, max_quantity
		FROM product_addons WHERE product_id = $1 ORDER BY name`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get addons for product %s: %w", productID, err)
	}

	return &pricing, nil
}

// isUUID guards uuid columns so malformed ids read as missing rather than as query errors
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
