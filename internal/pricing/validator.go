package pricing

import (
	"context"
	"fmt"

	"order-assistant/internal/apperr"
	"order-assistant/internal/models"
	"order-assistant/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CatalogReader resolves the authoritative price table of a product.
// It returns (nil, nil) when the product does not exist for the tenant.
type CatalogReader interface {
	GetProductPricing(ctx context.Context, tenantID, productID string) (*models.ProductPricing, error)
}

// LineRequest is a cart line as declared by a client or an agent tool call.
// ClaimedUnitPrice is never used for pricing.
type LineRequest struct {
	ProductID        string
	Quantity         int
	VariationID      string
	Addons           []AddonRequest
	Notes            string
	ClaimedUnitPrice *decimal.Decimal
}

// AddonRequest selects an addon; a zero quantity means one
type AddonRequest struct {
	AddonID  string
	Quantity int
}

// ValidatedLine is a line re-priced from the catalog
type ValidatedLine struct {
	ProductID   string
	ProductName string
	BasePrice   decimal.Decimal
	Variation   *models.CartItemVariation
	Addons      []models.CartItemAddon
	Quantity    int
	Notes       string
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// LineResult holds either a validated line or the reason it was rejected
type LineResult struct {
	Index int
	Line  *ValidatedLine
	Err   error
}

// Result is the outcome of validating a set of lines
type Result struct {
	Lines []LineResult
	Total decimal.Decimal
}

// Valid reports whether every line passed
func (r *Result) Valid() bool {
	return r.FirstError() == nil
}

// FirstError returns the rejection of the first failing line, in input order
func (r *Result) FirstError() error {
	for _, l := range r.Lines {
		if l.Err != nil {
			return l.Err
		}
	}
	return nil
}

// Validator re-derives line prices from trusted catalog data
type Validator struct {
	catalog       CatalogReader
	maxConcurrent int
	logger        *zap.Logger
}

// Option configures a Validator
type Option func(*Validator)

// WithMaxConcurrent bounds parallel catalog lookups
func WithMaxConcurrent(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxConcurrent = n
		}
	}
}

// NewValidator creates a validator backed by the given catalog
func NewValidator(catalog CatalogReader, opts ...Option) *Validator {
	v := &Validator{
		catalog:       catalog,
		maxConcurrent: 8,
		logger:        util.GetLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateLine prices a single line. Rejections are *apperr.Error values;
// any other error comes from the catalog.
func (v *Validator) ValidateLine(ctx context.Context, tenantID string, req LineRequest) (*ValidatedLine, error) {
	if _, err := uuid.Parse(req.ProductID); err != nil {
		return nil, v.reject(apperr.New(apperr.CodeProductNotFound, "product %q not found", req.ProductID))
	}

	pricing, err := v.catalog.GetProductPricing(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing for product %s: %w", req.ProductID, err)
	}
	if pricing == nil || !pricing.Product.IsAvailable {
		return nil, v.reject(apperr.New(apperr.CodeProductNotFound, "product %q not found", req.ProductID))
	}

	return v.price(pricing, req)
}

// ValidateLines prices every line concurrently. The result keeps input order
// and has one entry per input.
func (v *Validator) ValidateLines(ctx context.Context, tenantID string, reqs []LineRequest) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "PricingValidator.ValidateLines")
	defer span.End()

	results := make([]LineResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxConcurrent)

	for idx := range reqs {
		idx := idx
		g.Go(func() error {
			line, err := v.ValidateLine(gctx, tenantID, reqs[idx])
			results[idx] = LineResult{Index: idx, Line: line}
			if err != nil {
				if _, ok := err.(*apperr.Error); !ok {
					return err
				}
				results[idx].Err = err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, r := range results {
		if r.Line != nil {
			total = total.Add(r.Line.LineTotal)
		}
	}

	return &Result{Lines: results, Total: total}, nil
}

func (v *Validator) price(pricing *models.ProductPricing, req LineRequest) (*ValidatedLine, error) {
	if req.Quantity <= 0 {
		return nil, v.reject(apperr.New(apperr.CodeInvalidQuantity, "quantity for %s must be a positive integer", pricing.Product.Name))
	}

	line := &ValidatedLine{
		ProductID:   pricing.Product.ID,
		ProductName: pricing.Product.Name,
		BasePrice:   pricing.Product.BasePrice,
		Quantity:    req.Quantity,
		Notes:       req.Notes,
		Addons:      make([]models.CartItemAddon, 0, len(req.Addons)),
	}
	unit := pricing.Product.BasePrice

	if req.VariationID != "" {
		variation, ok := pricing.Variation(req.VariationID)
		if !ok {
			return nil, v.reject(apperr.New(apperr.CodeInvalidVariation, "variation %q is not available for %s", req.VariationID, pricing.Product.Name))
		}
		line.Variation = &models.CartItemVariation{
			ID:         variation.ID,
			Name:       variation.Name,
			PriceDelta: variation.PriceDelta,
		}
		unit = unit.Add(variation.PriceDelta)
	}

	for _, sel := range req.Addons {
		addon, ok := pricing.Addon(sel.AddonID)
		if !ok {
			return nil, v.reject(apperr.New(apperr.CodeAddonNotFound, "addon %q is not available for %s", sel.AddonID, pricing.Product.Name))
		}
		qty := sel.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, v.reject(apperr.New(apperr.CodeInvalidQuantity, "quantity for addon %s must be a positive integer", addon.Name))
		}
		if addon.MaxQuantity > 0 && qty > addon.MaxQuantity {
			return nil, v.reject(apperr.New(apperr.CodeAddonQuantityExceeded, "at most %d of %s allowed", addon.MaxQuantity, addon.Name))
		}
		subtotal := addon.Price.Mul(decimal.NewFromInt(int64(qty)))
		line.Addons = append(line.Addons, models.CartItemAddon{
			ID:       addon.ID,
			Name:     addon.Name,
			Price:    addon.Price,
			Quantity: qty,
			Subtotal: subtotal,
		})
		unit = unit.Add(subtotal)
	}

	line.UnitPrice = unit
	line.LineTotal = unit.Mul(decimal.NewFromInt(int64(req.Quantity)))

	if req.ClaimedUnitPrice != nil && !req.ClaimedUnitPrice.Equal(unit) {
		util.PriceMismatchesTotal.Inc()
		v.logger.Debug("Ignoring client-supplied price",
			zap.String("product_id", pricing.Product.ID),
			zap.String("claimed", req.ClaimedUnitPrice.String()),
			zap.String("trusted", unit.String()))
	}

	return line, nil
}

func (v *Validator) reject(err *apperr.Error) error {
	util.PricingRejectionsTotal.WithLabelValues(string(err.Code)).Inc()
	return err
}
