package service

import (
	"context"
	"errors"
	"fmt"

	"order-assistant/internal/apperr"
	"order-assistant/internal/cart"
	"order-assistant/internal/models"
	"order-assistant/internal/pricing"
	"order-assistant/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService exposes the cart tools. Every item is re-priced from the
// catalog before it reaches the cart, and the delivery fee always comes from
// the tenant settings.
type CartService struct {
	store     cart.Store
	settings  SettingsReader
	validator *pricing.Validator
	logger    *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store cart.Store, settings SettingsReader, validator *pricing.Validator) *CartService {
	return &CartService{
		store:     store,
		settings:  settings,
		validator: validator,
		logger:    util.GetLogger(),
	}
}

// AddItemRequest represents a request to add an item to the cart
type AddItemRequest struct {
	ProductID   string           `json:"product_id" binding:"required"`
	Quantity    int              `json:"quantity" binding:"max=99"`
	VariationID string           `json:"variation_id,omitempty"`
	Addons      []AddonSelection `json:"addons,omitempty" binding:"omitempty,max=20,dive"`
	Notes       string           `json:"notes,omitempty" binding:"max=280"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

// AddonSelection selects an addon of the product
type AddonSelection struct {
	AddonID  string `json:"addon_id" binding:"required"`
	Quantity int    `json:"quantity,omitempty"`
}

// UpdateQuantityRequest represents a request to change an item's quantity
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"max=99"`
}

// AddItem validates the line against the catalog and appends it with trusted prices
func (s *CartService) AddItem(ctx context.Context, tenantID, sessionID string, req *AddItemRequest) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	line, err := s.validator.ValidateLine(ctx, tenantID, toLineRequest(req))
	if err != nil {
		s.record("add_item", err)
		return nil, err
	}

	tenant, err := s.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		err = fmt.Errorf("failed to load tenant settings: %w", err)
		s.record("add_item", err)
		return nil, err
	}
	if tenant == nil {
		s.record("add_item", apperr.ErrTenantNotFound)
		return nil, apperr.ErrTenantNotFound
	}

	m := s.manager(tenantID, sessionID)
	if err := m.SetDeliveryFee(tenant.DeliveryFee); err != nil {
		err = fmt.Errorf("tenant %s has an invalid delivery fee %s: %v", tenantID, tenant.DeliveryFee, err)
		s.record("add_item", err)
		return nil, err
	}

	item, err := m.AddItem(toAddItemInput(line))
	s.record("add_item", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Item added to cart",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sessionID),
		zap.String("item_id", item.ID),
		zap.String("product_id", item.ProductID),
		zap.Int("quantity", item.Quantity))
	return item, nil
}

// RemoveItem removes an item from the cart
func (s *CartService) RemoveItem(ctx context.Context, tenantID, sessionID, itemID string) (*models.Cart, error) {
	_, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	m := s.manager(tenantID, sessionID)
	err := m.RemoveItem(itemID)
	s.record("remove_item", err)
	if err != nil {
		return nil, err
	}
	return m.GetCart(), nil
}

// UpdateItemQuantity sets the quantity of an item in the cart
func (s *CartService) UpdateItemQuantity(ctx context.Context, tenantID, sessionID, itemID string, quantity int) (*models.CartItem, error) {
	_, span := util.StartSpan(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	item, err := s.manager(tenantID, sessionID).UpdateItemQuantity(itemID, quantity)
	s.record("update_quantity", err)
	return item, err
}

// GetCart returns the session cart
func (s *CartService) GetCart(ctx context.Context, tenantID, sessionID string) *models.Cart {
	return s.manager(tenantID, sessionID).GetCart()
}

// GetSummary returns the display projection of the session cart
func (s *CartService) GetSummary(ctx context.Context, tenantID, sessionID string) cart.Summary {
	return s.manager(tenantID, sessionID).GetSummary()
}

// ClearCart drops the session cart. Returns false when there was none.
func (s *CartService) ClearCart(ctx context.Context, tenantID, sessionID string) bool {
	cleared := s.manager(tenantID, sessionID).Clear()
	s.record("clear", nil)
	return cleared
}

func (s *CartService) manager(tenantID, sessionID string) *cart.Manager {
	return cart.NewManager(s.store, tenantID, sessionID)
}

func (s *CartService) record(operation string, err error) {
	result := "success"
	if err != nil {
		result = "rejected"
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			result = "error"
			s.logger.Error("Cart operation failed",
				zap.String("operation", operation),
				zap.Error(err))
		}
	}
	util.CartOperationsTotal.WithLabelValues(operation, result).Inc()
}

func toLineRequest(req *AddItemRequest) pricing.LineRequest {
	line := pricing.LineRequest{
		ProductID:        req.ProductID,
		Quantity:         req.Quantity,
		VariationID:      req.VariationID,
		Notes:            req.Notes,
		ClaimedUnitPrice: req.UnitPrice,
		Addons:           make([]pricing.AddonRequest, 0, len(req.Addons)),
	}
	for _, a := range req.Addons {
		line.Addons = append(line.Addons, pricing.AddonRequest{AddonID: a.AddonID, Quantity: a.Quantity})
	}
	return line
}

func toAddItemInput(line *pricing.ValidatedLine) cart.AddItemInput {
	in := cart.AddItemInput{
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		BasePrice:   line.BasePrice,
		Quantity:    line.Quantity,
		Variation:   line.Variation,
		Notes:       line.Notes,
		Addons:      make([]cart.AddonInput, 0, len(line.Addons)),
	}
	for _, a := range line.Addons {
		in.Addons = append(in.Addons, cart.AddonInput{ID: a.ID, Name: a.Name, Price: a.Price, Quantity: a.Quantity})
	}
	return in
}
