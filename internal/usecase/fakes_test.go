package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"booking-payments/internal/data/entity"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/lock"
	"booking-payments/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

// memStore backs every fake repository. Reads return copies so tests see
// only committed writes.
type memStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking
	payments map[uuid.UUID]*entity.Payment
	ledger   map[string]*entity.WebhookNotification
	creds    map[uuid.UUID]*entity.GatewayCredentials

	outcomeWrites int
	failCreate    bool
	failOutcome   bool
	// dropRecord deletes the payment record when a transition is attempted.
	dropRecord    bool
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[uuid.UUID]*entity.Booking),
		payments: make(map[uuid.UUID]*entity.Payment),
		ledger:   make(map[string]*entity.WebhookNotification),
		creds:    make(map[uuid.UUID]*entity.GatewayCredentials),
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Tx:         fakeTx{},
		Booking:    fakeBookings{m},
		Payment:    fakePayments{m},
		Webhook:    fakeLedger{m},
		Credential: fakeCredentials{m},
	}
}

func (m *memStore) booking(id uuid.UUID) *entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

func (m *memStore) paymentFor(bookingID uuid.UUID) *entity.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (m *memStore) ledgerSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger)
}

func (m *memStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomeWrites
}

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBookings struct{ *memStore }

func (f fakeBookings) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return f.booking(id), nil
}

func (f fakeBookings) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return f.booking(id), nil
}

func (f fakeBookings) FindConfirmedBySlot(ctx context.Context, userID uuid.UUID, date time.Time, slotTime string, excludeID uuid.UUID) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID != excludeID && b.UserID == userID && b.Date.Equal(date) && b.Time == slotTime &&
			b.Status == entity.BookingStatusConfirmed {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeBookings) LockSlot(ctx context.Context, slotKey string) error { return nil }

func (f fakeBookings) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID)
	}
	b.Status = status
	return nil
}

func (f fakeBookings) UpdateStatusIf(ctx context.Context, bookingID uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f fakeBookings) UpdatePaymentOutcome(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, paymentStatus string, paymentData json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOutcome {
		return errInjected
	}
	b, ok := f.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s not found", bookingID)
	}
	b.Status = status
	b.PaymentStatus = &paymentStatus
	b.PaymentData = paymentData
	f.outcomeWrites++
	return nil
}

func (f fakeBookings) UpdatePaymentStatus(ctx context.Context, bookingID uuid.UUID, paymentStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.Status.IsPaymentTerminal() {
		return false, nil
	}
	b.PaymentStatus = &paymentStatus
	return true, nil
}

type fakePayments struct{ *memStore }

func (f fakePayments) Create(ctx context.Context, payment *entity.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errInjected
	}
	for _, p := range f.payments {
		if p.BookingID == payment.BookingID {
			return fmt.Errorf("duplicate booking_id %s", payment.BookingID)
		}
	}
	cp := *payment
	f.payments[payment.ID] = &cp
	return nil
}

func (f fakePayments) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f fakePayments) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return f.paymentFor(bookingID), nil
}

func (f fakePayments) FindByPreferenceID(ctx context.Context, preferenceID string) (*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.PreferenceID == preferenceID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakePayments) FindPending(ctx context.Context) ([]*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Payment
	for _, p := range f.payments {
		if p.Status == entity.PaymentStatusPending {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f fakePayments) TransitionStatus(ctx context.Context, paymentID uuid.UUID, status entity.PaymentStatus, gatewayPaymentID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dropRecord {
		delete(f.payments, paymentID)
		return false, nil
	}
	p, ok := f.payments[paymentID]
	if !ok || p.Status != entity.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if gatewayPaymentID != nil {
		p.GatewayPaymentID = gatewayPaymentID
	}
	return true, nil
}

type fakeLedger struct{ *memStore }

func (f fakeLedger) FindByPaymentID(ctx context.Context, paymentID string) (*entity.WebhookNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.ledger[paymentID]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (f fakeLedger) Insert(ctx context.Context, notification *entity.WebhookNotification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ledger[notification.PaymentID]; ok {
		return false, nil
	}
	cp := *notification
	f.ledger[notification.PaymentID] = &cp
	return true, nil
}

func (f fakeLedger) Delete(ctx context.Context, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ledger, paymentID)
	return nil
}

type fakeCredentials struct{ *memStore }

func (f fakeCredentials) Get(ctx context.Context, ownerID uuid.UUID) (*entity.GatewayCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.creds[ownerID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f fakeCredentials) Has(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.creds[ownerID]
	return ok, nil
}

func (f fakeCredentials) Save(ctx context.Context, creds *entity.GatewayCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *creds
	f.creds[creds.OwnerID] = &cp
	return nil
}

// fakeGateway answers from in-memory payments keyed by id and by reference.
type fakeGateway struct {
	mu          sync.Mutex
	payments    map[string]*gateway.Payment
	prefs       []*gateway.PreferenceRequest
	prefErr     error
	getErr      error
	searchErr   map[string]error
	searchHook  func(ref string)
	getCalls    int
	searchCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:  make(map[string]*gateway.Payment),
		searchErr: make(map[string]error),
	}
}

func (g *fakeGateway) addPayment(id string, status gateway.Status, ref string) *gateway.Payment {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := &gateway.Payment{
		ID:                gateway.ID(id),
		Status:            status,
		ExternalReference: ref,
		TransactionAmount: decimal.RequireFromString("50.00"),
		Raw:               json.RawMessage(fmt.Sprintf(`{"id":%s,"status":%q}`, id, status)),
	}
	g.payments[id] = p
	return p
}

func (g *fakeGateway) CreatePreference(ctx context.Context, token string, req *gateway.PreferenceRequest) (*gateway.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	g.prefs = append(g.prefs, req)
	id := fmt.Sprintf("pref-%d", len(g.prefs))
	return &gateway.Preference{ID: id, InitPoint: "https://checkout.example.com/" + id}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, token, paymentID string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &gateway.APIError{StatusCode: 404, Message: "payment not found"}
	}
	cp := *p
	return &cp, nil
}

func (g *fakeGateway) SearchPayments(ctx context.Context, token, externalReference string) ([]*gateway.Payment, error) {
	g.mu.Lock()
	hook := g.searchHook
	g.searchCalls++
	err := g.searchErr[externalReference]
	var out []*gateway.Payment
	for _, p := range g.payments {
		if p.ExternalReference == externalReference {
			cp := *p
			out = append(out, &cp)
		}
	}
	g.mu.Unlock()

	if hook != nil {
		hook(externalReference)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store  *memStore
	gw     *fakeGateway
	clock  *fakeClock
	config *utils.Config
	svc    *Service
	owner  uuid.UUID
	user   uuid.UUID
}

var slotDate = time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	config := &utils.Config{
		Gateway: utils.GatewayConfig{
			NotificationURL: "https://api.example.com/payments/webhook",
			Currency:        "BRL",
		},
		Reconcile: utils.ReconcileConfig{PaymentTTL: 30 * time.Minute},
	}

	h := &harness{
		store:  newMemStore(),
		gw:     newFakeGateway(),
		clock:  &fakeClock{now: time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)},
		config: config,
		owner:  uuid.New(),
		user:   uuid.New(),
	}
	h.store.creds[h.owner] = &entity.GatewayCredentials{
		OwnerID:       h.owner,
		AccessToken:   "APP_USR-test-token",
		WebhookSecret: "whsec-test",
	}
	h.svc = newService(h.store.repository(), h.gw, lock.NewLocalLocker(), config, h.clock.Now, zap.NewNop())
	return h
}

func (h *harness) addBooking(slotTime string, status entity.BookingStatus) *entity.Booking {
	b := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: h.clock.Now(), UpdatedAt: h.clock.Now()},
		OwnerID:      h.owner,
		UserID:       h.user,
		Date:         slotDate,
		Time:         slotTime,
		Amount:       decimal.RequireFromString("50.00"),
		Status:       status,
	}
	h.store.mu.Lock()
	h.store.bookings[b.ID] = b
	h.store.mu.Unlock()
	cp := *b
	return &cp
}

// openPreference runs the issuer for booking and returns its payment record.
func (h *harness) openPreference(t *testing.T, booking *entity.Booking) *entity.Payment {
	t.Helper()

	_, err := h.svc.Preference.CreatePreference(context.Background(), newPreferenceRequest(h.owner, booking.ID))
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	record := h.store.paymentFor(booking.ID)
	if record == nil {
		t.Fatalf("Expected payment record for booking %s", booking.ID)
	}
	return record
}
