package cart

import (
	"time"

	"order-assistant/internal/apperr"
	"order-assistant/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Manager performs cart operations for one (tenant, session) pair. Managers
// built for the same pair operate on the same stored cart.
type Manager struct {
	store     Store
	tenantID  string
	sessionID string
	key       string
	now       func() time.Time
	newID     func() string
}

// AddItemInput carries trusted prices for a new cart item
type AddItemInput struct {
	ProductID   string
	ProductName string
	BasePrice   decimal.Decimal
	Quantity    int
	Variation   *models.CartItemVariation
	Addons      []AddonInput
	Notes       string
}

// AddonInput is an addon selection with its trusted unit price
type AddonInput struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// NewManager creates a manager bound to a session
func NewManager(store Store, tenantID, sessionID string) *Manager {
	return &Manager{
		store:     store,
		tenantID:  tenantID,
		sessionID: sessionID,
		key:       Key(tenantID, sessionID),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// GetCart returns the session cart, creating an empty one on first access
func (m *Manager) GetCart() *models.Cart {
	unlock := m.lock()
	defer unlock()

	cart, ok := m.store.Get(m.key)
	if ok {
		return cart
	}
	cart = m.newCart()
	m.store.Set(m.key, cart)
	return cart
}

// AddItem appends an item built from trusted prices and returns it
func (m *Manager) AddItem(in AddItemInput) (*models.CartItem, error) {
	if in.Quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}
	for _, a := range in.Addons {
		if a.Quantity <= 0 {
			return nil, apperr.New(apperr.CodeInvalidQuantity, "addon %s quantity must be a positive integer", a.Name)
		}
	}

	unlock := m.lock()
	defer unlock()

	cart := m.load()
	now := m.now()

	item := models.CartItem{
		ID:          m.newID(),
		ProductID:   in.ProductID,
		ProductName: in.ProductName,
		BasePrice:   in.BasePrice,
		Quantity:    in.Quantity,
		Addons:      make([]models.CartItemAddon, 0, len(in.Addons)),
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Variation != nil {
		v := *in.Variation
		item.Variation = &v
	}
	for _, a := range in.Addons {
		item.Addons = append(item.Addons, models.CartItemAddon{
			ID:       a.ID,
			Name:     a.Name,
			Price:    a.Price,
			Quantity: a.Quantity,
			Subtotal: a.Price.Mul(decimal.NewFromInt(int64(a.Quantity))),
		})
	}

	cart.Items = append(cart.Items, item)
	m.save(cart, now)

	added := cart.Items[len(cart.Items)-1]
	return &added, nil
}

// RemoveItem deletes an item from the cart
func (m *Manager) RemoveItem(itemID string) error {
	unlock := m.lock()
	defer unlock()

	cart := m.load()
	idx := indexOf(cart, itemID)
	if idx < 0 {
		return apperr.ErrItemNotFound
	}

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	m.save(cart, m.now())
	return nil
}

// UpdateItemQuantity sets the quantity of an item. Removal goes through RemoveItem.
func (m *Manager) UpdateItemQuantity(itemID string, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, apperr.ErrInvalidQuantity
	}

	unlock := m.lock()
	defer unlock()

	cart := m.load()
	idx := indexOf(cart, itemID)
	if idx < 0 {
		return nil, apperr.ErrItemNotFound
	}

	now := m.now()
	cart.Items[idx].Quantity = quantity
	cart.Items[idx].UpdatedAt = now
	m.save(cart, now)

	updated := cart.Items[idx]
	return &updated, nil
}

// SetDeliveryFee overwrites the delivery fee
func (m *Manager) SetDeliveryFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return apperr.ErrInvalidDeliveryFee
	}

	unlock := m.lock()
	defer unlock()

	cart := m.load()
	cart.DeliveryFee = fee
	m.save(cart, m.now())
	return nil
}

// GetSummary returns the display projection of the cart
func (m *Manager) GetSummary() Summary {
	return Summarize(m.GetCart())
}

// Clear removes the cart from the store entirely
func (m *Manager) Clear() bool {
	unlock := m.lock()
	defer unlock()

	return m.store.Delete(m.key)
}

// Recalculate recomputes every derived amount of the cart from its items and delivery fee
func Recalculate(cart *models.Cart) {
	subtotal := decimal.Zero
	count := 0
	for i := range cart.Items {
		cart.Items[i].ItemTotal = ItemTotal(cart.Items[i])
		subtotal = subtotal.Add(cart.Items[i].ItemTotal)
		count += cart.Items[i].Quantity
	}
	cart.Subtotal = subtotal
	cart.ItemCount = count
	cart.Total = subtotal.Add(cart.DeliveryFee)
}

// ItemTotal is (base + variation delta + addon subtotals) * quantity
func ItemTotal(item models.CartItem) decimal.Decimal {
	unit := item.BasePrice
	if item.Variation != nil {
		unit = unit.Add(item.Variation.PriceDelta)
	}
	for _, a := range item.Addons {
		unit = unit.Add(a.Price.Mul(decimal.NewFromInt(int64(a.Quantity))))
	}
	return unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func (m *Manager) load() *models.Cart {
	if cart, ok := m.store.Get(m.key); ok {
		return cart
	}
	return m.newCart()
}

func (m *Manager) save(cart *models.Cart, now time.Time) {
	Recalculate(cart)
	cart.UpdatedAt = now
	m.store.Set(m.key, cart)
}

func (m *Manager) newCart() *models.Cart {
	now := m.now()
	return &models.Cart{
		SessionID:   m.sessionID,
		TenantID:    m.tenantID,
		Items:       []models.CartItem{},
		Subtotal:    decimal.Zero,
		DeliveryFee: decimal.Zero,
		Total:       decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (m *Manager) lock() func() {
	return LockCart(m.store, m.key)
}

// LockCart takes the lock of one cart when the store supports it. The lock is
// not reentrant: Manager methods must not be called while it is held.
func LockCart(store Store, key string) func() {
	if l, ok := store.(Locker); ok {
		return l.Lock(key)
	}
	return func() {}
}

func indexOf(cart *models.Cart, itemID string) int {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
