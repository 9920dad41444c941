package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"
)

// インメモリのrepo一式。usecaseの振る舞いをDBなしで検証する。
type memStore struct {
	mu sync.Mutex

	products   map[int64]model.Product
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	carts      map[int64]model.Cart
	cartItems  map[int64][]model.CartItem
	events     map[string]model.PaymentEvent
	addresses  map[int64]model.Address
	auditLogs  []model.AuditLog

	//監査ログ書き込みを失敗させてTxのロールバックを検証する
	auditCreateErr error

	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[int64]model.Product{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64][]model.CartItem{},
		events:     map[string]model.PaymentEvent{},
		addresses:  map[int64]model.Address{},
		nextID:     0,
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	c.nextID = s.nextID
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = append([]model.CartItem(nil), v...)
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	c.auditLogs = append([]model.AuditLog(nil), s.auditLogs...)
	return c
}

func (s *memStore) restore(from *memStore) {
	s.nextID = from.nextID
	s.products = from.products
	s.orders = from.orders
	s.orderItems = from.orderItems
	s.carts = from.carts
	s.cartItems = from.cartItems
	s.events = from.events
	s.addresses = from.addresses
	s.auditLogs = from.auditLogs
}

// --- test data helpers ---

func (s *memStore) addProduct(name string, price, stock int64) model.Product {
	p := model.Product{ID: s.id(), Name: name, Price: price, Stock: stock, IsActive: true}
	s.products[p.ID] = p
	return p
}

func (s *memStore) addAddress(userID int64) model.Address {
	a := model.Address{ID: s.id(), UserID: userID, PostalCode: "100-0001", Prefecture: "東京都", City: "千代田区", Line1: "1-1", Name: "テスト太郎"}
	s.addresses[a.ID] = a
	return a
}

func (s *memStore) addActiveCart(userID int64, items ...model.CartItem) model.Cart {
	cart := model.Cart{ID: s.id(), UserID: userID, Status: model.CartStatusActive}
	s.carts[cart.ID] = cart
	for _, it := range items {
		it.ID = s.id()
		it.CartID = cart.ID
		s.cartItems[cart.ID] = append(s.cartItems[cart.ID], it)
	}
	return cart
}

func (s *memStore) addPendingOrder(userID int64, total int64, paymentRef string, items ...model.OrderItem) model.Order {
	o := model.Order{
		ID:         s.id(),
		UserID:     userID,
		AddressID:  1,
		Status:     model.OrderStatusPending,
		TotalPrice: total,
		PaymentRef: paymentRef,
		CreatedAt:  time.Now(),
	}
	s.orders[o.ID] = o
	for _, it := range items {
		it.ID = s.id()
		it.OrderID = o.ID
		s.orderItems[o.ID] = append(s.orderItems[o.ID], it)
	}
	return o
}

// --- TransactionManager ---

type memTxManager struct {
	s *memStore
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	//ロールバック＝スナップショット復元
	snap := m.s.snapshot()
	if err := fn(&memTxRepos{s: m.s}); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type memTxRepos struct {
	s *memStore
}

func (r *memTxRepos) Orders() repo.OrderRepository               { return &memOrderRepo{s: r.s} }
func (r *memTxRepos) OrderItems() repo.OrderItemRepository       { return &memOrderItemRepo{s: r.s} }
func (r *memTxRepos) Carts() repo.CartRepository                 { return &memCartRepo{s: r.s} }
func (r *memTxRepos) CartItems() repo.CartItemRepository         { return &memCartItemRepo{s: r.s} }
func (r *memTxRepos) Inventory() repo.InventoryRepository        { return &memInventoryRepo{s: r.s} }
func (r *memTxRepos) Products() repo.ProductRepository           { return &memProductRepo{s: r.s} }
func (r *memTxRepos) PaymentEvents() repo.PaymentEventRepository { return &memPaymentEventRepo{s: r.s} }
func (r *memTxRepos) AuditLogs() repo.AuditLogRepository         { return &memAuditLogRepo{s: r.s} }

// --- repos ---

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *memProductRepo) FindBySKU(ctx context.Context, sku string) (model.Product, error) {
	for _, p := range r.s.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (r *memProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = r.s.id()
	r.s.products[p.ID] = p
	return p, nil
}

func (r *memProductRepo) Update(ctx context.Context, p model.Product) error {
	if _, ok := r.s.products[p.ID]; !ok {
		return repo.ErrNotFound
	}
	r.s.products[p.ID] = p
	return nil
}

func (r *memProductRepo) SoftDelete(ctx context.Context, id int64) error {
	if _, ok := r.s.products[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

type memInventoryRepo struct{ s *memStore }

func (r *memInventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.products[productID] = p
	return true, nil
}

func (r *memInventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.s.products[productID] = p
	return nil
}

func (r *memInventoryRepo) SetStock(ctx context.Context, productID int64, newStock int64) error {
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.s.products[productID] = p
	return nil
}

func (r *memInventoryRepo) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return nil
}

type memCartRepo struct{ s *memStore }

func (r *memCartRepo) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range r.s.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, nil
		}
	}
	c := model.Cart{ID: r.s.id(), UserID: userID, Status: model.CartStatusActive}
	r.s.carts[c.ID] = c
	return c, nil
}

func (r *memCartRepo) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range r.s.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r *memCartRepo) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	c, ok := r.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Status = status
	r.s.carts[cartID] = c
	return nil
}

func (r *memCartRepo) Clear(ctx context.Context, cartID int64) error {
	delete(r.s.cartItems, cartID)
	return nil
}

type memCartItemRepo struct{ s *memStore }

func (r *memCartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	return append([]model.CartItem(nil), r.s.cartItems[cartID]...), nil
}

func (r *memCartItemRepo) UpsertByCartAndProduct(ctx context.Context, cartID, productID, addQty, unitPriceSnapshot int64) error {
	items := r.s.cartItems[cartID]
	for i, it := range items {
		if it.ProductID == productID {
			items[i].Quantity += addQty
			return nil
		}
	}
	r.s.cartItems[cartID] = append(items, model.CartItem{
		ID:                r.s.id(),
		CartID:            cartID,
		ProductID:         productID,
		Quantity:          addQty,
		UnitPriceSnapshot: unitPriceSnapshot,
	})
	return nil
}

func (r *memCartItemRepo) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	for cartID, items := range r.s.cartItems {
		for i, it := range items {
			if it.ID == cartItemID {
				r.s.cartItems[cartID][i].Quantity = qty
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

func (r *memCartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	for cartID, items := range r.s.cartItems {
		for i, it := range items {
			if it.ID == cartItemID {
				r.s.cartItems[cartID] = append(items[:i], items[i+1:]...)
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

func (r *memCartItemRepo) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	for _, items := range r.s.cartItems {
		for _, it := range items {
			if it.ID == cartItemID {
				return it, nil
			}
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r *memCartItemRepo) IsOwnedByUser(ctx context.Context, cartItemID, userID int64) (bool, error) {
	for cartID, items := range r.s.cartItems {
		for _, it := range items {
			if it.ID == cartItemID {
				cart := r.s.carts[cartID]
				return cart.UserID == userID, nil
			}
		}
	}
	return false, nil
}

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *memOrderRepo) FindByPaymentRefForUpdate(ctx context.Context, paymentRef string) (model.Order, error) {
	for _, o := range r.s.orders {
		if o.PaymentRef != "" && o.PaymentRef == paymentRef {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r *memOrderRepo) ListByUserID(ctx context.Context, userID int64, page, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	for _, o := range r.s.orders {
		if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
			return 0, repo.ErrDuplicateKey
		}
	}
	order.ID = r.s.id()
	r.s.orders[order.ID] = order
	return order.ID, nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	r.s.orders[orderID] = o
	return nil
}

func (r *memOrderRepo) UpdatePaymentRef(ctx context.Context, orderID int64, paymentRef string) error {
	o, ok := r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.PaymentRef = paymentRef
	r.s.orders[orderID] = o
	return nil
}

func (r *memOrderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	for _, o := range r.s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r *memOrderRepo) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Order, error) {
	var out []model.Order
	for _, o := range r.s.orders {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(before) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderRepo) ListPendingWithoutPaymentRef(ctx context.Context, limit int) ([]model.Order, error) {
	var out []model.Order
	for _, o := range r.s.orders {
		if o.Status == model.OrderStatusPending && o.PaymentRef == "" {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

type memOrderItemRepo struct{ s *memStore }

func (r *memOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		it.ID = r.s.id()
		it.OrderID = orderID
		r.s.orderItems[orderID] = append(r.s.orderItems[orderID], it)
	}
	return nil
}

func (r *memOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem(nil), r.s.orderItems[orderID]...), nil
}

type memPaymentEventRepo struct{ s *memStore }

func (r *memPaymentEventRepo) InsertIfNew(ctx context.Context, ev model.PaymentEvent) (bool, error) {
	if _, ok := r.s.events[ev.EventID]; ok {
		return false, nil
	}
	ev.ID = r.s.id()
	r.s.events[ev.EventID] = ev
	return true, nil
}

func (r *memPaymentEventRepo) FindByEventID(ctx context.Context, eventID string) (model.PaymentEvent, error) {
	ev, ok := r.s.events[eventID]
	if !ok {
		return model.PaymentEvent{}, repo.ErrNotFound
	}
	return ev, nil
}

func (r *memPaymentEventRepo) ListUnprocessed(ctx context.Context, limit int) ([]model.PaymentEvent, error) {
	var out []model.PaymentEvent
	for _, ev := range r.s.events {
		if !ev.Processed {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPaymentEventRepo) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	ev, ok := r.s.events[eventID]
	if !ok {
		return repo.ErrNotFound
	}
	ev.Processed = true
	ev.ProcessedAt = &at
	r.s.events[eventID] = ev
	return nil
}

type memAuditLogRepo struct{ s *memStore }

func (r *memAuditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	if r.s.auditCreateErr != nil {
		return r.s.auditCreateErr
	}
	log.ID = r.s.id()
	r.s.auditLogs = append(r.s.auditLogs, log)
	return nil
}

func (r *memAuditLogRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	return append([]model.AuditLog(nil), r.s.auditLogs...), nil
}

type memAddressRepo struct{ s *memStore }

func (r *memAddressRepo) Create(ctx context.Context, address model.Address) (model.Address, error) {
	address.ID = r.s.id()
	r.s.addresses[address.ID] = address
	return address, nil
}

func (r *memAddressRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	var out []model.Address
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAddressRepo) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	a, ok := r.s.addresses[addressID]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r *memAddressRepo) Update(ctx context.Context, address model.Address) error {
	if _, ok := r.s.addresses[address.ID]; !ok {
		return repo.ErrNotFound
	}
	r.s.addresses[address.ID] = address
	return nil
}

func (r *memAddressRepo) Delete(ctx context.Context, addressID int64) error {
	if _, ok := r.s.addresses[addressID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.addresses, addressID)
	return nil
}

func (r *memAddressRepo) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	a, ok := r.s.addresses[addressID]
	return ok && a.UserID == userID, nil
}

func (r *memAddressRepo) SetDefault(ctx context.Context, userID, addressID int64) error {
	for id, a := range r.s.addresses {
		if a.UserID == userID {
			a.IsDefault = id == addressID
			r.s.addresses[id] = a
		}
	}
	return nil
}

// --- gateway fake ---

type fakeGateway struct {
	mu          sync.Mutex
	unavailable bool
	created     []int64
	event       payment.VerifiedEvent
}

func (g *fakeGateway) CreateIntent(ctx context.Context, orderID int64, amount int64, currency string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unavailable {
		return "", payment.ErrGatewayUnavailable
	}
	g.created = append(g.created, orderID)
	return fmt.Sprintf("pi_test_%d", orderID), nil
}

func (g *fakeGateway) VerifyWebhook(payload []byte, signature string) (payment.VerifiedEvent, error) {
	if signature != "valid" {
		return payment.VerifiedEvent{}, payment.ErrInvalidSignature
	}
	return g.event, nil
}
