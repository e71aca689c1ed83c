//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
	"subscriber-payments/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- In-memory PaymentRequestRepository ----

type MockPaymentRequestRepo struct {
	mu   sync.Mutex
	byID map[string]*model.PaymentRequest

	CreateFunc          func(ctx context.Context, tx repository.Tx, r *model.PaymentRequest) error
	UpdateIfVersionFunc func(ctx context.Context, tx repository.Tx, r *model.PaymentRequest, expected int64) (bool, error)
	// BeforeUpdate runs inside UpdateIfVersion before the version check; tests use it to race writers.
	BeforeUpdate func(id string)
}

var _ repository.PaymentRequestRepository = (*MockPaymentRequestRepo)(nil)

func NewMockPaymentRequestRepo() *MockPaymentRequestRepo {
	return &MockPaymentRequestRepo{byID: make(map[string]*model.PaymentRequest)}
}

func (m *MockPaymentRequestRepo) Create(ctx context.Context, tx repository.Tx, r *model.PaymentRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; ok {
		return domain.ErrAlreadyExists
	}
	for _, x := range m.byID {
		if x.ReferenceCode == r.ReferenceCode {
			return domain.ErrAlreadyExists
		}
	}
	m.byID[r.ID] = r.Clone()
	return nil
}

func (m *MockPaymentRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MockPaymentRequestRepo) FindByReferenceCode(ctx context.Context, tx repository.Tx, code string) (*model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.ReferenceCode == strings.ToUpper(code) {
			return r.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRequestRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.ListFilter) ([]*model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentRequest
	for _, r := range m.byID {
		if r.UserID != userID {
			continue
		}
		if f.Type != nil && r.Type != *f.Type {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MockPaymentRequestRepo) UpdateIfVersion(ctx context.Context, tx repository.Tx, r *model.PaymentRequest, expected int64) (bool, error) {
	if m.UpdateIfVersionFunc != nil {
		return m.UpdateIfVersionFunc(ctx, tx, r, expected)
	}
	if m.BeforeUpdate != nil {
		m.BeforeUpdate(r.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[r.ID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if cur.Version != expected {
		return false, nil
	}
	m.byID[r.ID] = r.Clone()
	return true, nil
}

func (m *MockPaymentRequestRepo) ListStale(ctx context.Context, tx repository.Tx, statuses []model.RequestStatus, olderThan time.Time, limit int) ([]*model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentRequest
	for _, r := range m.byID {
		match := false
		for _, s := range statuses {
			if r.Status == s {
				match = true
			}
		}
		if match && r.UpdatedAt.Before(olderThan) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// put stores r as is, bypassing Create.
func (m *MockPaymentRequestRepo) put(r *model.PaymentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[r.ID] = r.Clone()
}

// ---- In-memory UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) UpdateSubscription(ctx context.Context, tx repository.Tx, userID string, s model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		u = &model.User{ID: userID, RegisteredAt: time.Now()}
		m.users[userID] = u
	}
	u.Subscription = s
	return nil
}

// ---- In-memory ActivationRepository ----

type MockActivationRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Activation
}

var _ repository.ActivationRepository = (*MockActivationRepo)(nil)

func NewMockActivationRepo() *MockActivationRepo {
	return &MockActivationRepo{rows: make(map[string]*model.Activation)}
}

func (m *MockActivationRepo) Insert(ctx context.Context, tx repository.Tx, a *model.Activation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.RequestID]; ok {
		return false, nil
	}
	cp := *a
	m.rows[a.RequestID] = &cp
	return true, nil
}

func (m *MockActivationRepo) FindByRequestID(ctx context.Context, tx repository.Tx, requestID string) (*model.Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockActivationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---- In-memory SubscriptionPlanRepository ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.SubscriptionPlan
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: make(map[string]*model.SubscriptionPlan)}
}

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SubscriptionPlan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- In-memory ChangeFeed ----

type MockFeed struct {
	mu        sync.Mutex
	next      int
	listeners map[string]map[int]func(*model.PaymentRequest)
	Published []*model.PaymentRequest

	PublishErr error
}

var _ adapter.ChangeFeed = (*MockFeed)(nil)

func NewMockFeed() *MockFeed {
	return &MockFeed{listeners: make(map[string]map[int]func(*model.PaymentRequest))}
}

func (m *MockFeed) Publish(ctx context.Context, r *model.PaymentRequest) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	m.Published = append(m.Published, r.Clone())
	fns := make([]func(*model.PaymentRequest), 0, len(m.listeners[r.ID]))
	for _, fn := range m.listeners[r.ID] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(r.Clone())
	}
	return nil
}

func (m *MockFeed) Subscribe(requestID string, fn func(*model.PaymentRequest)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners[requestID] == nil {
		m.listeners[requestID] = make(map[int]func(*model.PaymentRequest))
	}
	m.next++
	key := m.next
	m.listeners[requestID][key] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[requestID], key)
	}
}

func (m *MockFeed) listenerCount(requestID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[requestID])
}

// ---- Recording AdminNotifier ----

type MockNotifier struct {
	mu      sync.Mutex
	New     []string
	Claimed []string
	Err     error
}

var _ adapter.AdminNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyNewRequest(ctx context.Context, r *model.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.New = append(m.New, r.ID)
	return m.Err
}

func (m *MockNotifier) NotifyPaymentClaimed(ctx context.Context, r *model.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Claimed = append(m.Claimed, r.ID)
	return m.Err
}

// ---- Pass-through TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func testPlan() model.PlanSnapshot {
	return model.PlanSnapshot{ID: "plan-pro", Name: "Pro", Price: 999, Currency: "EUR", Features: []string{"hd", "offline"}}
}

func strPtr(s string) *string { return &s }
