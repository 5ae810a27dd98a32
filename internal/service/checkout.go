package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"order-assistant/internal/apperr"
	"order-assistant/internal/cart"
	"order-assistant/internal/models"
	"order-assistant/internal/pricing"
	"order-assistant/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxOrderNumberAttempts = 3
	maxRollbackAttempts    = 3
	rollbackBackoff        = 100 * time.Millisecond
	finalizeTimeout        = 5 * time.Second
)

// CheckoutService turns a session cart into a persisted order
type CheckoutService struct {
	carts          cart.Store
	settings       SettingsReader
	orders         OrderRepository
	validator      *pricing.Validator
	hours          *HoursService
	publisher      EventPublisher
	defaultMinimum decimal.Decimal
	now            func() time.Time
	orderNumber    func(time.Time) string
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service. publisher may be nil.
func NewCheckoutService(
	carts cart.Store,
	settings SettingsReader,
	orders OrderRepository,
	validator *pricing.Validator,
	hoursService *HoursService,
	publisher EventPublisher,
	defaultMinimum decimal.Decimal,
) *CheckoutService {
	return &CheckoutService{
		carts:          carts,
		settings:       settings,
		orders:         orders,
		validator:      validator,
		hours:          hoursService,
		publisher:      publisher,
		defaultMinimum: defaultMinimum,
		now:            time.Now,
		orderNumber:    NewOrderNumber,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest carries the customer snapshot for the order
type CheckoutRequest struct {
	CustomerName    string  `json:"customer_name" binding:"required,max=120"`
	CustomerPhone   string  `json:"customer_phone" binding:"required,max=32"`
	CustomerAddress *string `json:"customer_address,omitempty" binding:"omitempty,max=300"`
	Notes           *string `json:"notes,omitempty" binding:"omitempty,max=500"`
	PaymentMethod   *string `json:"payment_method,omitempty" binding:"omitempty,max=32"`
}

// CheckoutResult is returned for every checkout attempt that reached the pipeline
type CheckoutResult struct {
	Success       bool             `json:"success"`
	Code          apperr.Code      `json:"code,omitempty"`
	OrderID       string           `json:"order_id,omitempty"`
	OrderNumber   string           `json:"order_number,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	Message       string           `json:"message"`
	IsStoreClosed bool             `json:"is_store_closed,omitempty"`
	NextOpenTime  string           `json:"next_open_time,omitempty"`
}

// Checkout runs the order creation pipeline for a session. Business rejections
// return a non-nil result together with an *apperr.Error; the cart is left
// untouched on every failure.
func (s *CheckoutService) Checkout(ctx context.Context, tenantID, sessionID string, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	result, err := s.checkout(ctx, tenantID, sessionID, req)
	switch {
	case err == nil:
		util.CheckoutsTotal.WithLabelValues("success").Inc()
	case errors.As(err, new(*apperr.Error)):
		util.CheckoutsTotal.WithLabelValues(strings.ToLower(string(result.Code))).Inc()
	default:
		util.CheckoutsTotal.WithLabelValues("error").Inc()
	}
	return result, err
}

func (s *CheckoutService) checkout(ctx context.Context, tenantID, sessionID string, req *CheckoutRequest) (*CheckoutResult, error) {
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" || phone == "" {
		return reject(apperr.New(apperr.CodeInvalidRequest, "customer name and phone are required"))
	}

	tenant, err := s.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	if tenant == nil {
		return reject(apperr.ErrTenantNotFound)
	}

	status := s.hours.StatusFor(tenant)
	if !status.IsOpen {
		result, err := reject(apperr.New(apperr.CodeStoreClosed, "%s", status.Message))
		result.IsStoreClosed = true
		result.NextOpenTime = status.NextOpenTime
		return result, err
	}

	key := cart.Key(tenantID, sessionID)
	unlock := cart.LockCart(s.carts, key)
	defer unlock()

	c, ok := s.carts.Get(key)
	if !ok || len(c.Items) == 0 {
		return reject(apperr.ErrEmptyCart)
	}

	priced, err := s.validator.ValidateLines(ctx, tenantID, cartLineRequests(c))
	if err != nil {
		return nil, fmt.Errorf("failed to revalidate cart: %w", err)
	}
	if err := priced.FirstError(); err != nil {
		var appErr *apperr.Error
		errors.As(err, &appErr)
		return reject(appErr)
	}

	// The stored fee is only a display copy
	subtotal := priced.Total
	deliveryFee := tenant.DeliveryFee
	total := subtotal.Add(deliveryFee)

	minimum := s.defaultMinimum
	if tenant.MinimumOrder.Valid {
		minimum = tenant.MinimumOrder.Decimal
	}
	if total.LessThan(minimum) {
		return reject(apperr.New(apperr.CodeBelowMinimumOrder,
			"the minimum order is %s and your total is %s", minimum.StringFixed(2), total.StringFixed(2)))
	}

	order := &models.Order{
		TenantID:        tenantID,
		CustomerName:    name,
		CustomerPhone:   phone,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.OrderStatusPending,
		Subtotal:        subtotal,
		DeliveryFee:     deliveryFee,
		Total:           total,
	}

	customerID, err := s.orders.UpsertCustomer(ctx, tenantID, phone, name)
	if err != nil {
		s.logger.Warn("Failed to upsert customer, continuing without customer reference",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	} else {
		order.CustomerID = &customerID
	}

	if err := s.insertOrder(ctx, order); err != nil {
		s.logger.Error("Failed to create order",
			zap.String("tenant_id", tenantID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return reject(apperr.ErrOrderCreationFailed)
	}

	lines := orderLines(order.ID, priced)
	if err := s.orders.InsertOrderLines(ctx, order.ID, lines); err != nil {
		s.logger.Error("Failed to create order lines, rolling back order",
			zap.String("order_id", order.ID),
			zap.Error(err))
		s.rollback(ctx, order.ID)
		return reject(apperr.ErrOrderLineCreationFailed)
	}

	s.carts.Delete(key)
	unlock()
	util.OrdersCreatedTotal.Inc()

	s.logger.Info("Order created",
		zap.String("tenant_id", tenantID),
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", total.StringFixed(2)))

	s.publish(ctx, order, lines)

	return &CheckoutResult{
		Success:     true,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Total:       &total,
		Message:     fmt.Sprintf("Order %s confirmed. Total: %s", order.OrderNumber, total.StringFixed(2)),
	}, nil
}

// insertOrder retries with a fresh number when the generated one is already taken
func (s *CheckoutService) insertOrder(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.orderNumber(s.now())
		err = s.orders.InsertOrder(ctx, order)
		if !errors.Is(err, apperr.ErrDuplicateOrderNumber) {
			return err
		}
		s.logger.Warn("Order number collision, regenerating",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt))
	}
	return err
}

// rollback deletes the order header. It survives caller cancellation and only logs its own failure.
func (s *CheckoutService) rollback(ctx context.Context, orderID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= maxRollbackAttempts; attempt++ {
		if err = s.orders.DeleteOrder(ctx, orderID); err == nil {
			util.OrderRollbacksTotal.WithLabelValues("success").Inc()
			return
		}
		s.logger.Warn("Compensating delete failed",
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < maxRollbackAttempts {
			select {
			case <-ctx.Done():
				attempt = maxRollbackAttempts
			case <-time.After(rollbackBackoff * time.Duration(attempt)):
			}
		}
	}

	util.OrderRollbacksTotal.WithLabelValues("failed").Inc()
	s.logger.Error("Order left without lines after failed rollback",
		zap.String("order_id", orderID),
		zap.Error(err))
}

func (s *CheckoutService) publish(ctx context.Context, order *models.Order, lines []models.OrderLine) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.NewString(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: s.now().UTC(),
		},
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TenantID:      order.TenantID,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Total:         order.Total,
		Items:         make([]models.OrderItemData, 0, len(lines)),
	}
	for _, l := range lines {
		event.Items = append(event.Items, models.OrderItemData{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish order created event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

// NewOrderNumber encodes the time in base36 and appends a short random suffix
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36) + suffix)
}

func reject(err *apperr.Error) (*CheckoutResult, error) {
	return &CheckoutResult{Code: err.Code, Message: err.Message}, err
}

func cartLineRequests(c *models.Cart) []pricing.LineRequest {
	reqs := make([]pricing.LineRequest, 0, len(c.Items))
	for _, item := range c.Items {
		req := pricing.LineRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			Addons:    make([]pricing.AddonRequest, 0, len(item.Addons)),
		}
		if item.Variation != nil {
			req.VariationID = item.Variation.ID
		}
		for _, a := range item.Addons {
			req.Addons = append(req.Addons, pricing.AddonRequest{AddonID: a.ID, Quantity: a.Quantity})
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func orderLines(orderID string, priced *pricing.Result) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(priced.Lines))
	for _, r := range priced.Lines {
		l := r.Line
		line := models.OrderLine{
			OrderID:     orderID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.LineTotal,
			Notes:       lineNotes(l),
		}
		if l.Variation != nil {
			id, name := l.Variation.ID, l.Variation.Name
			line.VariationID = &id
			line.VariationName = &name
		}
		lines = append(lines, line)
	}
	return lines
}

// lineNotes folds addon names into the free-text note
func lineNotes(l *pricing.ValidatedLine) *string {
	var parts []string
	if len(l.Addons) > 0 {
		parts = append(parts, "Addons: "+cart.AddonNames(models.CartItem{Addons: l.Addons}))
	}
	if note := strings.TrimSpace(l.Notes); note != "" {
		parts = append(parts, note)
	}
	if len(parts) == 0 {
		return nil
	}
	notes := strings.Join(parts, " | ")
	return &notes
}
