package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-catering-requests/internal/config"
	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
	"github.com/pesio-ai/be-catering-requests/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []domain.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.NotificationType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingBlobStore struct {
	storage.BlobStore
	puts int
}

func (c *countingBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	c.puts++
	return c.BlobStore.Put(ctx, key, data, contentType)
}

type harness struct {
	store         *repository.MemoryStore
	publisher     *recordingPublisher
	blobs         *countingBlobStore
	fs            afero.Fs
	users         *UserService
	requests      *RequestService
	invoices      *InvoiceService
	payments      *PaymentService
	attachments   *AttachmentService
	notifications *NotificationService
	reports       *ReportService
}

func newHarness(t *testing.T, policy domain.Policy) *harness {
	t.Helper()
	log := logger.Nop()
	store := repository.NewMemoryStore()
	pub := &recordingPublisher{}
	fs := afero.NewMemMapFs()
	blobs := &countingBlobStore{BlobStore: storage.NewFileStore(fs, "/uploads", "http://files.test")}
	emitter := NewEmitter(store, pub, log)

	return &harness{
		store:     store,
		publisher: pub,
		blobs:     blobs,
		fs:        fs,
		users: NewUserService(store, RoleRules{
			AdminEmails:          []string{"root@uni.edu"},
			FinanceOfficerEmails: []string{"bursar@uni.edu"},
		}, log),
		requests: NewRequestService(store, policy, emitter, log),
		invoices: NewInvoiceService(store, emitter, log),
		payments: NewPaymentService(store, emitter, log),
		attachments: NewAttachmentService(store, blobs, AttachmentPolicy{
			MaxBytes:     config.DefaultMaxAttachmentBytes,
			AllowedTypes: config.DefaultAllowedMIMETypes,
		}, policy, log),
		notifications: NewNotificationService(store, log),
		reports:       NewReportService(store, log),
	}
}

// actor stores a user with role and returns it as an actor.
func (h *harness) actor(t *testing.T, id string, role domain.Role) domain.Actor {
	t.Helper()
	ts := time.Now().UTC()
	err := h.store.InTransaction(context.Background(), func(q repository.Queries) error {
		return q.CreateUser(context.Background(), &domain.User{
			ID:        id,
			Email:     id + "@uni.edu",
			Name:      id,
			Role:      role,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	})
	require.NoError(t, err)
	return domain.NewActor(id, role)
}

func requestFields() RequestFields {
	return RequestFields{
		DepartmentName: "Chemistry",
		EventName:      "Faculty seminar lunch",
		EventDate:      time.Date(2026, 11, 20, 12, 0, 0, 0, time.UTC),
		Venue:          "Hall B",
		AttendeeCount:  50,
		EstimateAmount: dec("1000"),
		ServiceType:    "LUNCH",
		FundingSource:  "DEPARTMENT_BUDGET",
	}
}

func (h *harness) createRequest(t *testing.T, owner domain.Actor) *domain.ServiceRequest {
	t.Helper()
	sr, err := h.requests.CreateRequest(context.Background(), owner, &CreateRequestRequest{RequestFields: requestFields()})
	require.NoError(t, err)
	return sr
}

// approvedRequest returns an APPROVED request plus its owner and a finance actor.
func (h *harness) approvedRequest(t *testing.T) (*domain.ServiceRequest, domain.Actor, domain.Actor) {
	t.Helper()
	owner := h.actor(t, "owner-"+newID()[:8], domain.RoleRequester)
	approver := h.actor(t, "approver-"+newID()[:8], domain.RoleApprover)
	finance := h.actor(t, "finance-"+newID()[:8], domain.RoleFinanceOfficer)

	sr := h.createRequest(t, owner)
	sr, err := h.requests.ApproveRequest(context.Background(), approver, &TransitionRequest{ID: sr.ID})
	require.NoError(t, err)
	return sr, owner, finance
}

// invoice returns a SUBMITTED invoice for an approved request.
func (h *harness) invoice(t *testing.T, gross, tax string) (*domain.InvoiceView, domain.Actor) {
	t.Helper()
	sr, _, finance := h.approvedRequest(t)
	inv, err := h.invoices.CreateInvoice(context.Background(), finance, &CreateInvoiceRequest{
		RequestID:   sr.ID,
		InvoiceDate: time.Date(2026, 11, 21, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 12, 21, 0, 0, 0, 0, time.UTC),
		GrossAmount: dec(gross),
		TaxAmount:   dec(tax),
	})
	require.NoError(t, err)
	return inv, finance
}

func (h *harness) pay(actor domain.Actor, invoiceID, amount string) (*domain.Payment, error) {
	return h.payments.RecordPayment(context.Background(), actor, &RecordPaymentRequest{
		InvoiceID:   invoiceID,
		Amount:      dec(amount),
		Method:      domain.MethodTransfer,
		PaymentDate: time.Date(2026, 11, 25, 0, 0, 0, 0, time.UTC),
	})
}

func (h *harness) storedRequest(t *testing.T, id string) *domain.ServiceRequest {
	t.Helper()
	var sr *domain.ServiceRequest
	require.NoError(t, h.store.View(context.Background(), func(q repository.Queries) error {
		var err error
		sr, err = q.GetRequest(context.Background(), id)
		return err
	}))
	return sr
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
