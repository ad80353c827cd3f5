package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// MemoryStore keeps every aggregate in process memory. Transactions are
// serialised by a single mutex and run against a copy of the state that is
// swapped in only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	users         map[string]domain.User
	departments   map[string]domain.Department
	requests      map[string]domain.ServiceRequest
	history       map[string][]domain.RequestHistoryEntry
	invoices      map[string]domain.Invoice
	payments      map[string]domain.Payment
	paymentOrder  []string
	attachments   []domain.Attachment
	notifications map[string]domain.Notification
	notifOrder    []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:         make(map[string]domain.User),
		departments:   make(map[string]domain.Department),
		requests:      make(map[string]domain.ServiceRequest),
		history:       make(map[string][]domain.RequestHistoryEntry),
		invoices:      make(map[string]domain.Invoice),
		payments:      make(map[string]domain.Payment),
		notifications: make(map[string]domain.Notification),
	}}
}

// clone copies the maps. Slices are shared and only ever grown through
// appendClipped, so the original never observes staged writes.
func (s *memState) clone() *memState {
	return &memState{
		users:         maps.Clone(s.users),
		departments:   maps.Clone(s.departments),
		requests:      maps.Clone(s.requests),
		history:       maps.Clone(s.history),
		invoices:      maps.Clone(s.invoices),
		payments:      maps.Clone(s.payments),
		paymentOrder:  s.paymentOrder,
		attachments:   s.attachments,
		notifications: maps.Clone(s.notifications),
		notifOrder:    s.notifOrder,
	}
}

func appendClipped[T any](s []T, v T) []T {
	return append(slices.Clip(s), v)
}

// InTransaction runs fn against staged state and commits it on success.
func (m *MemoryStore) InTransaction(ctx context.Context, fn func(q Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "transaction cancelled")
	}

	staged := m.state.clone()
	if err := fn(&memQueries{s: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

// View runs fn against the current state under a read lock.
func (m *MemoryStore) View(ctx context.Context, fn func(q Queries) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "view cancelled")
	}
	return fn(&memQueries{s: m.state, readOnly: true})
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

type memQueries struct {
	s        *memState
	readOnly bool
}

func (q *memQueries) writable() error {
	if q.readOnly {
		return errors.Internal("write attempted in a read-only view", nil)
	}
	return nil
}

// Users -----------------------------------------------------------------------

func (q *memQueries) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := q.s.users[id]
	if !ok {
		return nil, errors.NotFound("user", id)
	}
	return &u, nil
}

func (q *memQueries) CreateUser(_ context.Context, u *domain.User) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, exists := q.s.users[u.ID]; exists {
		return errors.Conflict(fmt.Sprintf("user %s already exists", u.ID))
	}
	q.s.users[u.ID] = *u
	return nil
}

func (q *memQueries) UpdateUser(_ context.Context, u *domain.User) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.s.users[u.ID]; !ok {
		return errors.NotFound("user", u.ID)
	}
	q.s.users[u.ID] = *u
	return nil
}

func (q *memQueries) ListUsersByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range q.s.users {
		if u.Role == role {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Departments -----------------------------------------------------------------

func (q *memQueries) GetDepartment(_ context.Context, id string) (*domain.Department, error) {
	d, ok := q.s.departments[id]
	if !ok {
		return nil, errors.NotFound("department", id)
	}
	return &d, nil
}

func (q *memQueries) FindDepartmentByName(_ context.Context, name string) (*domain.Department, error) {
	for _, d := range q.s.departments {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			return &d, nil
		}
	}
	return nil, errors.NotFound("department", name)
}

func (q *memQueries) CreateDepartment(ctx context.Context, d *domain.Department) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, err := q.FindDepartmentByName(ctx, d.Name); err == nil {
		return errors.Conflict(fmt.Sprintf("department '%s' already exists", d.Name))
	}
	q.s.departments[d.ID] = *d
	return nil
}

func (q *memQueries) ListDepartments(_ context.Context) ([]*domain.Department, error) {
	out := make([]*domain.Department, 0, len(q.s.departments))
	for _, d := range q.s.departments {
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// Requests --------------------------------------------------------------------

func (q *memQueries) CreateRequest(_ context.Context, r *domain.ServiceRequest) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, exists := q.s.requests[r.ID]; exists {
		return errors.Conflict(fmt.Sprintf("request %s already exists", r.ID))
	}
	q.s.requests[r.ID] = *r.Clone()
	return nil
}

func (q *memQueries) GetRequest(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r, ok := q.s.requests[id]
	if !ok {
		return nil, errors.NotFound("request", id)
	}
	return r.Clone(), nil
}

func (q *memQueries) LockRequest(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return q.GetRequest(ctx, id)
}

func (q *memQueries) UpdateRequest(_ context.Context, r *domain.ServiceRequest) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.s.requests[r.ID]; !ok {
		return errors.NotFound("request", r.ID)
	}
	q.s.requests[r.ID] = *r.Clone()
	return nil
}

func (q *memQueries) ListRequests(_ context.Context, f RequestFilter) ([]*domain.ServiceRequest, error) {
	var out []*domain.ServiceRequest
	for _, r := range q.s.requests {
		if !q.matchRequest(&r, f) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (q *memQueries) matchRequest(r *domain.ServiceRequest, f RequestFilter) bool {
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.ExcludeRequesterID != "" && r.RequesterID == f.ExcludeRequesterID {
		return false
	}
	if f.DepartmentID != "" && r.DepartmentID != f.DepartmentID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if f.ApproverID != "" {
		d, ok := q.s.departments[r.DepartmentID]
		if ok && d.ApproverID != nil && *d.ApproverID != f.ApproverID {
			return false
		}
	}
	return true
}

func (q *memQueries) CountRequestsByStatus(_ context.Context) (map[domain.RequestStatus]int, error) {
	counts := make(map[domain.RequestStatus]int)
	for _, r := range q.s.requests {
		counts[r.Status]++
	}
	return counts, nil
}

// History ---------------------------------------------------------------------

func (q *memQueries) AppendHistory(_ context.Context, e *domain.RequestHistoryEntry) error {
	if err := q.writable(); err != nil {
		return err
	}
	q.s.history[e.RequestID] = appendClipped(q.s.history[e.RequestID], *e)
	return nil
}

func (q *memQueries) ListHistory(_ context.Context, requestID string) ([]*domain.RequestHistoryEntry, error) {
	entries := q.s.history[requestID]
	out := make([]*domain.RequestHistoryEntry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		out = append(out, &e)
	}
	return out, nil
}

// Invoices --------------------------------------------------------------------

func (q *memQueries) CreateInvoice(_ context.Context, inv *domain.Invoice) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.s.requests[inv.RequestID]; !ok {
		return errors.NotFound("request", inv.RequestID)
	}
	q.s.invoices[inv.ID] = *inv
	return nil
}

func (q *memQueries) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := q.s.invoices[id]
	if !ok {
		return nil, errors.NotFound("invoice", id)
	}
	return &inv, nil
}

func (q *memQueries) LockInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return q.GetInvoice(ctx, id)
}

func (q *memQueries) UpdateInvoice(_ context.Context, inv *domain.Invoice) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.s.invoices[inv.ID]; !ok {
		return errors.NotFound("invoice", inv.ID)
	}
	q.s.invoices[inv.ID] = *inv
	return nil
}

func (q *memQueries) ListInvoices(_ context.Context, f InvoiceFilter) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range q.s.invoices {
		if f.RequestID != "" && inv.RequestID != f.RequestID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (q *memQueries) InvoiceTotals(_ context.Context) (*InvoiceTotals, error) {
	totals := &InvoiceTotals{Net: decimal.Zero, Paid: decimal.Zero}
	for _, inv := range q.s.invoices {
		totals.Count++
		totals.Net = totals.Net.Add(inv.NetAmount)
	}
	for _, p := range q.s.payments {
		if p.Status.Counts() {
			totals.Paid = totals.Paid.Add(p.Amount)
		}
	}
	return totals, nil
}

// Payments --------------------------------------------------------------------

func (q *memQueries) CreatePayment(_ context.Context, p *domain.Payment) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.s.invoices[p.InvoiceID]; !ok {
		return errors.NotFound("invoice", p.InvoiceID)
	}
	q.s.payments[p.ID] = *p
	q.s.paymentOrder = appendClipped(q.s.paymentOrder, p.ID)
	return nil
}

func (q *memQueries) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := q.s.payments[id]
	if !ok {
		return nil, errors.NotFound("payment", id)
	}
	return &p, nil
}

func (q *memQueries) UpdatePayment(_ context.Context, p *domain.Payment) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.s.payments[p.ID]; !ok {
		return errors.NotFound("payment", p.ID)
	}
	q.s.payments[p.ID] = *p
	return nil
}

func (q *memQueries) ListPaymentsByInvoice(_ context.Context, invoiceID string) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, id := range q.s.paymentOrder {
		p := q.s.payments[id]
		if p.InvoiceID == invoiceID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (q *memQueries) ListPayments(_ context.Context, limit, offset int) ([]*domain.Payment, error) {
	out := make([]*domain.Payment, 0, len(q.s.paymentOrder))
	for i := len(q.s.paymentOrder) - 1; i >= 0; i-- {
		p := q.s.payments[q.s.paymentOrder[i]]
		out = append(out, &p)
	}
	return paginate(out, limit, offset), nil
}

// Attachments -----------------------------------------------------------------

func (q *memQueries) CreateAttachment(_ context.Context, a *domain.Attachment) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, _, err := a.Owner(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "invalid attachment owner")
	}
	q.s.attachments = appendClipped(q.s.attachments, *a)
	return nil
}

func (q *memQueries) ListAttachments(_ context.Context, owner domain.OwnerType, ownerID string) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	for i := range q.s.attachments {
		a := q.s.attachments[i]
		t, id, err := a.Owner()
		if err != nil || t != owner || id != ownerID {
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

// Notifications ---------------------------------------------------------------

func (q *memQueries) CreateNotification(_ context.Context, n *domain.Notification) error {
	if err := q.writable(); err != nil {
		return err
	}
	q.s.notifications[n.ID] = *n
	q.s.notifOrder = appendClipped(q.s.notifOrder, n.ID)
	return nil
}

func (q *memQueries) ListNotifications(_ context.Context, userID string, f NotificationFilter) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for i := len(q.s.notifOrder) - 1; i >= 0; i-- {
		n := q.s.notifications[q.s.notifOrder[i]]
		if n.UserID != userID || (f.UnreadOnly && n.Read) {
			continue
		}
		out = append(out, &n)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (q *memQueries) MarkNotificationRead(_ context.Context, id, userID string) (*domain.Notification, error) {
	if err := q.writable(); err != nil {
		return nil, err
	}
	n, ok := q.s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, errors.NotFound("notification", id)
	}
	if !n.Read {
		now := time.Now().UTC()
		n.Read = true
		n.ReadAt = &now
		q.s.notifications[id] = n
	}
	return &n, nil
}

func (q *memQueries) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	if err := q.writable(); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	var updated int64
	for id, n := range q.s.notifications {
		if n.UserID != userID || n.Read {
			continue
		}
		n.Read = true
		n.ReadAt = &now
		q.s.notifications[id] = n
		updated++
	}
	return updated, nil
}

func (q *memQueries) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range q.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
