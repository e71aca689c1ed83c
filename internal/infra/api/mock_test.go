//go:build !integration

package api

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
	red "subscriber-payments/internal/infra/redis"
	"subscriber-payments/internal/usecase"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- use cases ---

type mockRequestsUC struct {
	CreateFunc     func(ctx context.Context, userID, email string, plan model.PlanSnapshot, t model.PaymentType, seed *model.PaymentDetails) (*model.PaymentRequest, error)
	GetByIDFunc    func(ctx context.Context, id string) (*model.PaymentRequest, error)
	GetByCodeFunc  func(ctx context.Context, code string) (*model.PaymentRequest, error)
	ListFunc       func(ctx context.Context, userID string, f repository.ListFilter) ([]*model.PaymentRequest, error)
	TransitionFunc func(ctx context.Context, id string, c model.Change) (*model.PaymentRequest, error)
	ClaimFunc      func(ctx context.Context, userID, id string, note *string) (*model.PaymentRequest, error)
	SubscribeFunc  func(ctx context.Context, id string, fn func(*model.PaymentRequest)) (func(), error)
}

func (m *mockRequestsUC) Create(ctx context.Context, userID, email string, plan model.PlanSnapshot, t model.PaymentType, seed *model.PaymentDetails) (*model.PaymentRequest, error) {
	return m.CreateFunc(ctx, userID, email, plan, t, seed)
}
func (m *mockRequestsUC) GetByID(ctx context.Context, id string) (*model.PaymentRequest, error) {
	if m.GetByIDFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}
func (m *mockRequestsUC) GetByReferenceCode(ctx context.Context, code string) (*model.PaymentRequest, error) {
	if m.GetByCodeFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.GetByCodeFunc(ctx, code)
}
func (m *mockRequestsUC) ListByUser(ctx context.Context, userID string, f repository.ListFilter) ([]*model.PaymentRequest, error) {
	return m.ListFunc(ctx, userID, f)
}
func (m *mockRequestsUC) Transition(ctx context.Context, id string, c model.Change) (*model.PaymentRequest, error) {
	return m.TransitionFunc(ctx, id, c)
}
func (m *mockRequestsUC) Claim(ctx context.Context, userID, id string, note *string) (*model.PaymentRequest, error) {
	return m.ClaimFunc(ctx, userID, id, note)
}
func (m *mockRequestsUC) Subscribe(ctx context.Context, id string, fn func(*model.PaymentRequest)) (func(), error) {
	return m.SubscribeFunc(ctx, id, fn)
}
func (m *mockRequestsUC) ExpireStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	return 0, nil
}

type mockPlansUC struct {
	plans map[string]*model.SubscriptionPlan
}

func newMockPlansUC(plans ...*model.SubscriptionPlan) *mockPlansUC {
	m := &mockPlansUC{plans: map[string]*model.SubscriptionPlan{}}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *mockPlansUC) Create(ctx context.Context, id, name string, price int64, currency string, features []string) (*model.SubscriptionPlan, error) {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	p, err := model.NewSubscriptionPlan(id, name, price, currency, features)
	if err != nil {
		return nil, err
	}
	m.plans[id] = p
	return p, nil
}
func (m *mockPlansUC) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
func (m *mockPlansUC) List(ctx context.Context, activeOnly bool) ([]*model.SubscriptionPlan, error) {
	var out []*model.SubscriptionPlan
	for _, p := range m.plans {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
func (m *mockPlansUC) Snapshot(ctx context.Context, id string) (model.PlanSnapshot, error) {
	p, ok := m.plans[id]
	if !ok || !p.Active {
		return model.PlanSnapshot{}, domain.NewValidationError("plan_id")
	}
	return p.Snapshot(), nil
}

type mockUsersUC struct {
	mu    sync.Mutex
	seen  []string
	Error error
}

func (m *mockUsersUC) EnsureUser(ctx context.Context, id, email string) (*model.User, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	m.mu.Lock()
	m.seen = append(m.seen, id)
	m.mu.Unlock()
	return &model.User{ID: id, Email: email}, nil
}
func (m *mockUsersUC) Get(ctx context.Context, id string) (*model.User, error) {
	return &model.User{ID: id}, nil
}

type mockSubscriptionsUC struct {
	activated map[string]bool
	sub       *model.Subscription
}

func (m *mockSubscriptionsUC) Activate(ctx context.Context, tx repository.Tx, r *model.PaymentRequest) (bool, error) {
	return m.ActivateByRequestID(ctx, r.ID)
}
func (m *mockSubscriptionsUC) ActivateByRequestID(ctx context.Context, id string) (bool, error) {
	if m.activated == nil {
		m.activated = map[string]bool{}
	}
	if id == "missing" {
		return false, domain.ErrNotFound
	}
	first := !m.activated[id]
	m.activated[id] = true
	return first, nil
}
func (m *mockSubscriptionsUC) GetForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	if m.sub != nil {
		return m.sub, nil
	}
	return &model.Subscription{Status: model.SubscriptionStatusNone}, nil
}

// --- redis ---

type memRedis struct {
	mu     sync.Mutex
	values map[string]string
	GetErr error
}

var _ red.RedisClient = (*memRedis)(nil)

func newMemRedis() *memRedis { return &memRedis{values: map[string]string{}} }

func (m *memRedis) Ping(ctx context.Context) error { return nil }
func (m *memRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return nil
}
func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}
func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", red.Nil
	}
	return v, nil
}
func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.values[key], 10, 64)
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}
func (m *memRedis) Expire(ctx context.Context, key string, _ time.Duration) error { return nil }
func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
func (m *memRedis) Close() error { return nil }

// --- fixtures ---

const testSecret = "test-jwt-secret-0123456789"

func testRequest(id, userID string, status model.RequestStatus) *model.PaymentRequest {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.PaymentRequest{
		ID:            id,
		ReferenceCode: "PAY-ABC1234-XYZ12",
		UserID:        userID,
		UserEmail:     "user@example.com",
		Plan:          model.PlanSnapshot{ID: "plan-pro", Name: "Pro", Price: 999, Currency: "EUR"},
		Type:          model.PaymentTypeBankTransfer,
		Amount:        999,
		Currency:      "EUR",
		Status:        status,
		Notifications: model.Notifications{StatusUpdates: []model.StatusUpdate{{Status: status, Timestamp: now}}},
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
}

type testServer struct {
	*Server
	requests *mockRequestsUC
	plans    *mockPlansUC
	users    *mockUsersUC
	subs     *mockSubscriptionsUC
	cache    *memRedis
	auth     *AuthManager
}

func newTestServer() *testServer {
	reqs := &mockRequestsUC{}
	plan, _ := model.NewSubscriptionPlan("plan-pro", "Pro", 999, "EUR", []string{"hd"})
	plans := newMockPlansUC(plan)
	users := &mockUsersUC{}
	subs := &mockSubscriptionsUC{}
	cache := newMemRedis()
	auth := NewAuthManager(testSecret, "admin-key", time.Minute)
	tracking := usecase.NewTrackingUseCase(reqs, newTestLogger())
	srv := NewServer(reqs, tracking, plans, users, subs, auth, Options{
		Cache:          cache,
		Limiter:        red.NewRateLimiter(cache),
		RequestTimeout: time.Second,
	}, newTestLogger())
	return &testServer{Server: srv, requests: reqs, plans: plans, users: users, subs: subs, cache: cache, auth: auth}
}

func (ts *testServer) clientToken(userID string) string {
	tok, _ := ts.auth.MintClient(userID, userID+"@example.com", time.Hour)
	return "Bearer " + tok
}

func (ts *testServer) adminToken() string {
	tok, _, _ := ts.auth.MintAdmin("admin-key")
	return "Bearer " + tok
}
