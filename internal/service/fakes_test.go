package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"order-assistant/internal/cart"
	"order-assistant/internal/models"
	"order-assistant/internal/pricing"

	"github.com/shopspring/decimal"
)

const (
	tenantID  = "11111111-1111-4111-8111-111111111111"
	sessionID = "chat-session-1"

	burgerID = "22222222-2222-4222-8222-222222222222"
	friesID  = "33333333-3333-4333-8333-333333333333"
	doubleID = "44444444-4444-4444-8444-444444444444"
	baconID  = "55555555-5555-4555-8555-555555555555"

	otherTenantID = "77777777-7777-4777-8777-777777777777"
)

var cartKey = cart.Key(tenantID, sessionID)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Monday 2024-01-01 12:00 UTC
var noon = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeSettings struct {
	tenant *models.Tenant
	others []*models.Tenant
	err    error
}

func (f *fakeSettings) GetTenantSettings(ctx context.Context, id string) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, tenant := range append([]*models.Tenant{f.tenant}, f.others...) {
		if tenant != nil && tenant.ID == id {
			t := *tenant
			return &t, nil
		}
	}
	return nil, nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.ProductPricing
	err      error

	// when set, lookups signal entered and wait for release to close
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCatalog) GetProductPricing(ctx context.Context, tenant, productID string) (*models.ProductPricing, error) {
	f.mu.Lock()
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.products[productID], nil
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]*models.ProductPricing{
		burgerID: {
			Product: models.Product{ID: burgerID, TenantID: tenantID, Name: "Burger", BasePrice: money("25.00"), IsAvailable: true},
			Variations: []models.ProductVariation{
				{ID: doubleID, ProductID: burgerID, Name: "Double", PriceDelta: money("8.00")},
			},
			Addons: []models.ProductAddon{
				{ID: baconID, ProductID: burgerID, Name: "Bacon", Price: money("4.00"), MaxQuantity: 3},
			},
		},
		friesID: {
			Product: models.Product{ID: friesID, TenantID: tenantID, Name: "Fries", BasePrice: money("15.00"), IsAvailable: true},
		},
	}}
}

type fakeOrders struct {
	mu sync.Mutex

	upsertErr  error
	insertErrs []error
	linesErr   error
	deleteErrs []error

	inserted     []models.Order
	insertedKeys []string
	lines        map[string][]models.OrderLine
	deleted      []string
	deleteCalls  int
	nextID       int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{lines: map[string][]models.OrderLine{}}
}

func (f *fakeOrders) UpsertCustomer(ctx context.Context, tenant, phone, name string) (string, error) {
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	return "customer-" + phone, nil
}

func (f *fakeOrders) InsertOrder(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedKeys = append(f.insertedKeys, order.OrderNumber)
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	order.ID = fmt.Sprintf("order-%d", f.nextID)
	order.CreatedAt = noon
	f.inserted = append(f.inserted, *order)
	return nil
}

func (f *fakeOrders) InsertOrderLines(ctx context.Context, orderID string, lines []models.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linesErr != nil {
		return f.linesErr
	}
	f.lines[orderID] = append([]models.OrderLine(nil), lines...)
	return nil
}

func (f *fakeOrders) DeleteOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	f.deleted = append(f.deleted, orderID)
	return nil
}

func (f *fakeOrders) GetOrderByID(ctx context.Context, tenant, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.inserted {
		if f.inserted[i].ID == orderID && f.inserted[i].TenantID == tenant {
			o := f.inserted[i]
			return &o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) GetOrderLines(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[orderID], nil
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []*models.OrderCreatedEvent
	err       error
	onPublish func()
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	if f.onPublish != nil {
		f.onPublish()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type fixture struct {
	carts     *cart.MemoryStore
	settings  *fakeSettings
	catalog   *fakeCatalog
	orders    *fakeOrders
	publisher *fakePublisher
	cartSvc   *CartService
	hoursSvc  *HoursService
	checkout  *CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		carts: cart.NewMemoryStore(cart.WithClock(func() time.Time { return noon })),
		settings: &fakeSettings{tenant: &models.Tenant{
			ID:          tenantID,
			Name:        "Burger Place",
			DeliveryFee: decimal.Zero,
		}},
		catalog:   newCatalog(),
		orders:    newFakeOrders(),
		publisher: &fakePublisher{},
	}

	validator := pricing.NewValidator(f.catalog)
	f.cartSvc = NewCartService(f.carts, f.settings, validator)
	f.hoursSvc = NewHoursService(f.settings, time.UTC)
	f.hoursSvc.now = func() time.Time { return noon }
	f.checkout = NewCheckoutService(f.carts, f.settings, f.orders, validator, f.hoursSvc, f.publisher, money("10.00"))
	f.checkout.now = func() time.Time { return noon }
	return f
}

func (f *fixture) addDoubleBurger(t *testing.T, quantity int) *models.CartItem {
	t.Helper()
	item, err := f.cartSvc.AddItem(context.Background(), tenantID, sessionID, &AddItemRequest{
		ProductID:   burgerID,
		Quantity:    quantity,
		VariationID: doubleID,
		Addons:      []AddonSelection{{AddonID: baconID}},
		Notes:       "no onions",
	})
	if err != nil {
		t.Fatalf("add burger: %v", err)
	}
	return item
}

func customer() *CheckoutRequest {
	return &CheckoutRequest{CustomerName: "Ana", CustomerPhone: "+5511999990000"}
}
