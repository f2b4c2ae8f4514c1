package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"StoreProAPI/internal/config"
	"StoreProAPI/internal/events"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memDB is an in-memory stand-in for the Postgres repositories. Every store
// view shares one mutex so multi-aggregate operations stay atomic like the
// real transactions.
type memDB struct {
	mu         sync.Mutex
	nextID     int64
	writes     int
	users      map[int64]*model.User
	categories map[int64]*model.Category
	products   map[int64]*model.Product
	carts      map[int64]*model.Cart // keyed by user id
	orders     map[int64]*model.Order
	payments   map[int64]*model.Payment
}

func newMemDB() *memDB {
	return &memDB{
		users:      map[int64]*model.User{},
		categories: map[int64]*model.Category{},
		products:   map[int64]*model.Product{},
		carts:      map[int64]*model.Cart{},
		orders:     map[int64]*model.Order{},
		payments:   map[int64]*model.Payment{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) writeCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.writes
}

func (db *memDB) stock(productID int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.products[productID].StockQuantity
}

// ---- users ----

type memUsers struct{ *memDB }

func copyUser(u *model.User) *model.User {
	c := *u
	c.Addresses = append([]model.Address{}, u.Addresses...)
	return &c
}

func (s memUsers) Create(_ context.Context, u *model.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Email == u.Email {
			return 0, repository.ErrDuplicate
		}
	}
	s.writes++
	c := copyUser(u)
	c.UserID = s.id()
	c.Active = true
	s.users[c.UserID] = c
	return c.UserID, nil
}

func (s memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && u.Active {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) GetByResetToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Active && u.ResetTokenHash != nil && *u.ResetTokenHash == hash &&
			u.ResetExpiresAt != nil && u.ResetExpiresAt.After(now) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) List(_ context.Context, _ repository.ListQuery) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.User{}
	for _, u := range s.users {
		if u.Active {
			out = append(out, *copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s memUsers) UpdateProfile(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.UserID]
	if !ok || !cur.Active {
		return repository.ErrNotFound
	}
	for id, other := range s.users {
		if id != u.UserID && other.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	s.writes++
	cur.Name, cur.Email, cur.Phone, cur.Role = u.Name, u.Email, u.Phone, u.Role
	cur.Addresses = append([]model.Address{}, u.Addresses...)
	return nil
}

func (s memUsers) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.writes++
	u.Active = active
	return nil
}

func (s memUsers) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range s.orders {
		if o.UserID == id {
			return repository.ErrInUse
		}
	}
	s.writes++
	delete(s.users, id)
	return nil
}

func (s memUsers) SetPassword(_ context.Context, id int64, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.writes++
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.ResetTokenHash, u.ResetExpiresAt = nil, nil
	return nil
}

func (s memUsers) SetResetToken(_ context.Context, id int64, hash *string, expires *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.writes++
	u.ResetTokenHash, u.ResetExpiresAt = hash, expires
	return nil
}

// ---- categories ----

type memCategories struct{ *memDB }

func (s memCategories) Create(_ context.Context, c *model.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.categories {
		if other.Name == c.Name {
			return 0, repository.ErrDuplicate
		}
	}
	s.writes++
	cp := *c
	cp.CategoryID = s.id()
	s.categories[cp.CategoryID] = &cp
	return cp.CategoryID, nil
}

func (s memCategories) GetByID(_ context.Context, id int64) (*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s memCategories) List(_ context.Context, _ repository.ListQuery) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Category{}
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s memCategories) Children(_ context.Context, id int64) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Category{}
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s memCategories) Update(_ context.Context, c *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.CategoryID]; !ok {
		return repository.ErrNotFound
	}
	s.writes++
	cp := *c
	s.categories[c.CategoryID] = &cp
	return nil
}

func (s memCategories) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return repository.ErrNotFound
	}
	s.writes++
	delete(s.categories, id)
	return nil
}

func (s memCategories) IsDescendant(_ context.Context, rootID, candidateID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frontier := []int64{rootID}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, c := range s.categories {
			if c.ParentID != nil && *c.ParentID == cur {
				if c.CategoryID == candidateID {
					return true, nil
				}
				frontier = append(frontier, c.CategoryID)
			}
		}
	}
	return false, nil
}

func (s memCategories) HasChildren(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

// ---- products ----

type memProducts struct{ *memDB }

func (s memProducts) copyOut(p *model.Product) model.Product {
	cp := *p
	cp.Images = append([]string{}, p.Images...)
	cp.Specs = append([]string{}, p.Specs...)
	cp.Variants = append([]model.Variant{}, p.Variants...)
	if c, ok := s.categories[p.CategoryID]; ok {
		cp.CategoryName = c.Name
	}
	return cp
}

func (s memProducts) Create(_ context.Context, p *model.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	cp := *p
	cp.ProductID = s.id()
	s.products[cp.ProductID] = &cp
	return cp.ProductID, nil
}

func (s memProducts) GetByID(_ context.Context, id int64) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.copyOut(p)
	return &out, nil
}

func (s memProducts) sorted(keep func(*model.Product) bool) []model.Product {
	out := []model.Product{}
	for _, p := range s.products {
		if keep(p) {
			out = append(out, s.copyOut(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (s memProducts) List(_ context.Context, q repository.ListQuery) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted(func(*model.Product) bool { return true })
	if q.Offset >= len(all) {
		return []model.Product{}, nil
	}
	all = all[q.Offset:]
	if q.Limit > 0 && len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

func (s memProducts) ListByCategory(_ context.Context, categoryID int64) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(p *model.Product) bool { return p.CategoryID == categoryID }), nil
}

func (s memProducts) Search(_ context.Context, term string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	term = strings.ToLower(term)
	return s.sorted(func(p *model.Product) bool {
		return strings.Contains(strings.ToLower(p.Name+" "+p.Description), term)
	}), nil
}

func (s memProducts) Update(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[p.ProductID]
	if !ok {
		return repository.ErrNotFound
	}
	s.writes++
	cp := *p
	if p.Variants == nil {
		cp.Variants = cur.Variants
	}
	s.products[p.ProductID] = &cp
	return nil
}

func (s memProducts) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range s.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return repository.ErrInUse
			}
		}
	}
	s.writes++
	delete(s.products, id)
	return nil
}

func (s memProducts) CountInCategory(_ context.Context, categoryID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// ---- carts ----

type memCarts struct{ *memDB }

func (s memCarts) copyOut(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = make([]model.CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if p, ok := s.products[it.ProductID]; ok {
			it.ProductName = p.Name
		}
		cp.Items = append(cp.Items, it)
	}
	return &cp
}

func (s memCarts) byCartID(cartID int64) *model.Cart {
	for _, c := range s.carts {
		if c.CartID == cartID {
			return c
		}
	}
	return nil
}

func (s memCarts) GetByUserID(_ context.Context, userID int64) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.copyOut(c), nil
}

func (s memCarts) Create(_ context.Context, userID int64) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[userID]; ok {
		return s.copyOut(c), nil
	}
	s.writes++
	c := &model.Cart{CartID: s.id(), UserID: userID, Items: []model.CartItem{}}
	s.carts[userID] = c
	return s.copyOut(c), nil
}

func (s memCarts) AddOrIncrementItem(_ context.Context, cartID int64, it model.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byCartID(cartID)
	if c == nil {
		return repository.ErrNotFound
	}
	s.writes++
	if i := c.FindItem(it.ProductID, it.Variant); i >= 0 {
		c.Items[i].Quantity += it.Quantity
		c.Items[i].PriceAtAdd = it.PriceAtAdd
		return nil
	}
	it.CartItemID = s.id()
	c.Items = append(c.Items, it)
	return nil
}

func (s memCarts) SetItemQuantity(_ context.Context, cartID, itemID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byCartID(cartID)
	if c == nil {
		return repository.ErrNotFound
	}
	i := c.ItemByID(itemID)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.writes++
	c.Items[i].Quantity = qty
	return nil
}

func (s memCarts) RemoveItem(_ context.Context, cartID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byCartID(cartID)
	if c == nil {
		return repository.ErrNotFound
	}
	i := c.ItemByID(itemID)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.writes++
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

func (s memCarts) ClearItems(_ context.Context, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byCartID(cartID)
	if c == nil {
		return repository.ErrNotFound
	}
	s.writes++
	c.Items = []model.CartItem{}
	return nil
}

// ---- orders ----

type memOrders struct{ *memDB }

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem{}, o.Items...)
	return &cp
}

func (s memOrders) CreateFromCart(_ context.Context, o *model.Order, cartID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid, qty := range o.QuantityByProduct() {
		p, ok := s.products[pid]
		if !ok {
			return 0, repository.ErrNotFound
		}
		if p.StockQuantity < qty {
			return 0, fmt.Errorf("%w: %s", repository.ErrInsufficientStock, p.Name)
		}
	}
	s.writes++
	cp := copyOrder(o)
	cp.OrderID = s.id()
	for i := range cp.Items {
		cp.Items[i].OrderItemID = s.id()
	}
	s.orders[cp.OrderID] = cp
	if c := (memCarts{s.memDB}).byCartID(cartID); c != nil {
		c.Items = []model.CartItem{}
	}
	return cp.OrderID, nil
}

func (s memOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s memOrders) List(_ context.Context, userID *int64, _ repository.ListQuery) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.orders {
		if userID == nil || o.UserID == *userID {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (s memOrders) UpdateStatus(_ context.Context, id int64, status string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if status == model.OrderDelivered && o.OrderStatus != model.OrderDelivered {
		wanted := o.QuantityByProduct()
		for _, it := range o.Items {
			if p := s.products[it.ProductID]; p == nil || p.StockQuantity < wanted[it.ProductID] {
				return fmt.Errorf("%w: %s", repository.ErrInsufficientStock, it.Name)
			}
		}
		for pid, qty := range wanted {
			s.products[pid].StockQuantity -= qty
		}
		o.DeliveredAt = &at
	}
	s.writes++
	o.OrderStatus = status
	return nil
}

func (s memOrders) Cancel(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if o.OrderStatus == model.OrderShipped || o.OrderStatus == model.OrderDelivered {
		return false, nil
	}
	s.writes++
	o.OrderStatus = model.OrderCancelled
	return true, nil
}

func (s memOrders) Stats(_ context.Context, userID int64) (*model.OrderStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &model.OrderStats{}
	for _, o := range s.orders {
		if o.UserID == userID {
			st.TotalOrders++
			st.TotalSpent += o.TotalAmount
		}
	}
	if st.TotalOrders > 0 {
		st.AvgOrderValue = st.TotalSpent / float64(st.TotalOrders)
	}
	return st, nil
}

// ---- payments ----

type memPayments struct{ *memDB }

func (s memPayments) copyOut(p *model.Payment) *model.Payment {
	cp := *p
	if o, ok := s.orders[p.OrderID]; ok {
		cp.OrderUserID = o.UserID
	}
	return &cp
}

func (s memPayments) Create(_ context.Context, p *model.Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.payments {
		if other.OrderID == p.OrderID || other.TransactionID == p.TransactionID {
			return 0, repository.ErrDuplicate
		}
	}
	s.writes++
	cp := *p
	cp.PaymentID = s.id()
	s.payments[cp.PaymentID] = &cp
	return cp.PaymentID, nil
}

func (s memPayments) GetByID(_ context.Context, id int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.copyOut(p), nil
}

func (s memPayments) GetByOrderID(_ context.Context, orderID int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.OrderID == orderID {
			return s.copyOut(p), nil
		}
	}
	return nil, nil
}

func (s memPayments) GetByTransactionID(_ context.Context, ref string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.TransactionID == ref {
			return s.copyOut(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memPayments) List(_ context.Context, _ repository.ListQuery) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Payment{}
	for _, p := range s.payments {
		out = append(out, *s.copyOut(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentID < out[j].PaymentID })
	return out, nil
}

func (s memPayments) Transition(_ context.Context, t repository.PaymentTransition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[t.PaymentID]
	if !ok || p.Status != t.From {
		return false, nil
	}
	s.writes++
	p.Status = t.To
	if len(t.Payload) > 0 {
		p.ProviderResponse = t.Payload
	}
	if t.RefundReason != nil {
		p.RefundReason = t.RefundReason
	}
	at := t.At
	switch t.To {
	case model.PaymentSuccess:
		p.PaidAt = &at
	case model.PaymentFailed:
		p.FailedAt = &at
	case model.PaymentRefunded:
		p.RefundedAt = &at
	}
	if o, ok := s.orders[t.OrderID]; ok {
		o.PaymentStatus = model.OrderPaymentStatus(t.To)
		if t.To == model.PaymentSuccess {
			o.PaidAt = &at
		}
	}
	return true, nil
}

// ---- collaborators ----

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "midtrans" }

func (m *mockProvider) Initialize(ctx context.Context, req ChargeRequest) (*ChargeSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeSession), args.Error(1)
}

func (m *mockProvider) Verify(ctx context.Context, reference string) (*ChargeStatus, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeStatus), args.Error(1)
}

func (m *mockProvider) Refund(ctx context.Context, reference string, amount float64, reason string) (json.RawMessage, error) {
	args := m.Called(ctx, reference, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockProvider) ParseWebhook(body []byte) (*ChargeStatus, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeStatus), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	return m.Called(ctx, toEmail, resetURL).Error(0)
}

type mockImages struct {
	mock.Mock
}

func (m *mockImages) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// ---- environment ----

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *memDB
	provider   *mockProvider
	mailer     *mockMailer
	images     *mockImages
	events     *recordingPublisher
	auth       *AuthService
	users      *UserService
	categories *CategoryService
	products   *ProductService
	carts      *CartService
	orders     *OrderService
	payments   *PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newMemDB()
	env := &testEnv{
		db:       db,
		provider: new(mockProvider),
		mailer:   new(mockMailer),
		images:   new(mockImages),
		events:   &recordingPublisher{},
	}
	users, cats, prods := memUsers{db}, memCategories{db}, memProducts{db}
	carts, orders, pays := memCarts{db}, memOrders{db}, memPayments{db}

	env.auth = NewAuthService(users, env.mailer, nil, "https://shop.test/reset-password/")
	env.auth.Now = func() time.Time { return testNow }
	env.users = NewUserService(users)
	env.categories = NewCategoryService(cats, prods)
	env.products = NewProductService(prods, cats, env.images)
	env.carts = NewCartService(carts, prods)
	env.orders = NewOrderService(orders, carts, prods, env.events)
	env.orders.Now = func() time.Time { return testNow }
	env.payments = NewPaymentService(pays, orders, env.provider, env.events, config.PaymentConfig{
		Provider:    "midtrans",
		Currency:    "IDR",
		CallbackURL: "https://api.shop.test/api/payments/verify",
		FrontendURL: "https://shop.test/",
	})
	env.payments.Now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) seedUser(t *testing.T, email, role string) *model.User {
	t.Helper()
	id, err := memUsers{e.db}.Create(context.Background(), &model.User{
		Name: strings.Split(email, "@")[0], Email: email, Role: role, PasswordHash: "x",
	})
	require.NoError(t, err)
	u, err := memUsers{e.db}.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) seedCategory(t *testing.T, name string, parent *int64) int64 {
	t.Helper()
	id, err := memCategories{e.db}.Create(context.Background(), &model.Category{Name: name, Description: name, ParentID: parent})
	require.NoError(t, err)
	return id
}

func (e *testEnv) seedProduct(t *testing.T, name string, price float64, discount *float64, stock int) int64 {
	t.Helper()
	cat := e.seedCategory(t, "cat-"+name, nil)
	id, err := memProducts{e.db}.Create(context.Background(), &model.Product{
		Name: name, Description: name + " description", CategoryID: cat,
		Price: price, DiscountPrice: discount, StockQuantity: stock, Images: []string{"/img/products/" + name + ".jpg"},
	})
	require.NoError(t, err)
	return id
}

func (e *testEnv) setPrice(productID int64, price float64, discount *float64) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.products[productID].Price = price
	e.db.products[productID].DiscountPrice = discount
}

func (e *testEnv) setStock(productID int64, stock int) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.products[productID].StockQuantity = stock
}

func fptr(f float64) *float64 { return &f }

func sptr(s string) *string { return &s }
