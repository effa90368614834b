package application

import (
	"context"
	"time"

	"github.com/paybridge/payments-gateway/internal/gateway/domain"
)

type fakeOrderStore struct {
	orders map[string]*domain.Order
	notes  map[string][]string
}

func newFakeOrderStore(orders ...domain.Order) *fakeOrderStore {
	s := &fakeOrderStore{
		orders: make(map[string]*domain.Order),
		notes:  make(map[string][]string),
	}
	for _, o := range orders {
		oc := o
		if oc.Meta == nil {
			oc.Meta = make(map[string]string)
		}
		s.orders[o.ID] = &oc
	}
	return s
}

func (s *fakeOrderStore) Get(ctx context.Context, orderID string) (domain.Order, error) {
	o := s.orders[orderID]
	out := *o
	out.Meta = make(map[string]string, len(o.Meta))
	for k, v := range o.Meta {
		out.Meta[k] = v
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateMeta(ctx context.Context, orderID, key, value string) error {
	s.orders[orderID].Meta[key] = value
	return nil
}

func (s *fakeOrderStore) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	s.orders[orderID].Status = status
	return nil
}

func (s *fakeOrderStore) AppendNote(ctx context.Context, orderID, content string) error {
	s.notes[orderID] = append(s.notes[orderID], content)
	return nil
}

func (s *fakeOrderStore) status(orderID string) domain.OrderStatus {
	return s.orders[orderID].Status
}

func (s *fakeOrderStore) meta(orderID, key string) string {
	return s.orders[orderID].Meta[key]
}

func (s *fakeOrderStore) lastNote(orderID string) string {
	notes := s.notes[orderID]
	if len(notes) == 0 {
		return ""
	}
	return notes[len(notes)-1]
}

type fakePaymentAPI struct {
	captureIntent domain.PaymentIntent
	captureErr    error
	cancelIntent  domain.PaymentIntent
	cancelErr     error
	getIntent     domain.PaymentIntent
	getErr        error
	refund        domain.Refund
	refundErr     error
	setupIntent   domain.SetupIntent
	setupErr      error
	newCustomerID string

	captureCalls        int
	cancelCalls         int
	getCalls            int
	refundCalls         int
	customerCreateCalls int
}

func (f *fakePaymentAPI) CaptureIntention(ctx context.Context, intentID string, amountMinor int64) (domain.PaymentIntent, error) {
	f.captureCalls++
	return f.captureIntent, f.captureErr
}

func (f *fakePaymentAPI) CancelIntention(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	f.cancelCalls++
	return f.cancelIntent, f.cancelErr
}

func (f *fakePaymentAPI) GetIntent(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	f.getCalls++
	return f.getIntent, f.getErr
}

func (f *fakePaymentAPI) RefundCharge(ctx context.Context, chargeID string, amountMinor int64, reason string) (domain.Refund, error) {
	f.refundCalls++
	return f.refund, f.refundErr
}

func (f *fakePaymentAPI) CreateCustomer(ctx context.Context, userID string) (string, error) {
	f.customerCreateCalls++
	return f.newCustomerID, nil
}

func (f *fakePaymentAPI) CreateAndConfirmSetupIntent(ctx context.Context, paymentMethodID, customerID string) (domain.SetupIntent, error) {
	return f.setupIntent, f.setupErr
}

func (f *fakePaymentAPI) GetSetupIntent(ctx context.Context, setupIntentID string) (domain.SetupIntent, error) {
	return f.setupIntent, f.setupErr
}

type fakeLocker struct {
	acquired []string
}

func (f *fakeLocker) Acquire(ctx context.Context, key string) (func(), error) {
	f.acquired = append(f.acquired, key)
	return func() {}, nil
}

type recordedEvent struct {
	orderID   string
	eventType string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) Record(ctx context.Context, orderID, eventType string, payload []byte) error {
	f.events = append(f.events, recordedEvent{orderID: orderID, eventType: eventType})
	return nil
}

type fakeScheduler struct {
	jobs []string
}

func (f *fakeScheduler) ScheduleJob(ctx context.Context, at time.Time, hook string, args map[string]string) error {
	f.jobs = append(f.jobs, hook)
	return nil
}

type fakeAccount struct {
	fraudServices map[string]map[string]string
}

func (f *fakeAccount) FraudServicesConfig(ctx context.Context) (map[string]map[string]string, error) {
	return f.fraudServices, nil
}

type fakeCustomerStore struct {
	customerID  string
	linked      []string
	lookupCalls int
}

func (f *fakeCustomerStore) CustomerIDByUser(ctx context.Context, userID string) (string, error) {
	f.lookupCalls++
	return f.customerID, nil
}

func (f *fakeCustomerStore) LinkCustomerToUser(ctx context.Context, userID, customerID string) error {
	f.linked = append(f.linked, customerID)
	f.customerID = customerID
	return nil
}

type fakeTokenStore struct {
	attached []string
}

func (f *fakeTokenStore) AddPaymentMethodToUser(ctx context.Context, userID, paymentMethodID string) error {
	f.attached = append(f.attached, paymentMethodID)
	return nil
}
