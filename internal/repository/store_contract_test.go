package repository

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("rollback discards writes", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		owner := seedUser(t, store, domain.RoleRequester)

		boom := stderrors.New("boom")
		err := store.InTransaction(ctx, func(q Queries) error {
			u, err := q.GetUser(ctx, owner.ID)
			require.NoError(t, err)
			u.Role = domain.RoleAdmin
			require.NoError(t, q.UpdateUser(ctx, u))
			return boom
		})
		require.ErrorIs(t, err, boom)

		var got *domain.User
		require.NoError(t, store.View(ctx, func(q Queries) error {
			got, err = q.GetUser(ctx, owner.ID)
			return err
		}))
		assert.Equal(t, domain.RoleRequester, got.Role)
	})

	t.Run("missing rows are not found", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		err := store.View(ctx, func(q Queries) error {
			_, err := q.GetRequest(ctx, uuid.NewString())
			return err
		})
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	})

	t.Run("department names are unique ignoring case", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		seedDepartment(t, store, "Chemistry", nil)

		err := store.InTransaction(ctx, func(q Queries) error {
			d, err := q.FindDepartmentByName(ctx, "  chemistry ")
			require.NoError(t, err)
			assert.Equal(t, "Chemistry", d.Name)
			return q.CreateDepartment(ctx, &domain.Department{
				ID: uuid.NewString(), Name: "CHEMISTRY", Code: "CHE", CreatedAt: time.Now().UTC(),
			})
		})
		assert.True(t, errors.Is(err, errors.ErrCodeConflict))
	})

	t.Run("request round trip and filters", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice := seedUser(t, store, domain.RoleRequester)
		bob := seedUser(t, store, domain.RoleRequester)
		approver := seedUser(t, store, domain.RoleApprover)
		other := seedUser(t, store, domain.RoleApprover)

		mine := seedDepartment(t, store, "History", &approver.ID)
		theirs := seedDepartment(t, store, "Physics", &other.ID)
		open := seedDepartment(t, store, "Library", nil)

		r1 := seedRequest(t, store, alice.ID, mine.ID, domain.RequestSubmitted)
		r2 := seedRequest(t, store, bob.ID, theirs.ID, domain.RequestSubmitted)
		r3 := seedRequest(t, store, bob.ID, open.ID, domain.RequestNeedsRevision)
		seedRequest(t, store, alice.ID, open.ID, domain.RequestDraft)

		err := store.View(ctx, func(q Queries) error {
			got, err := q.GetRequest(ctx, r1.ID)
			require.NoError(t, err)
			assert.True(t, got.EstimateAmount.Equal(r1.EstimateAmount))
			assert.Equal(t, r1.EventName, got.EventName)
			assert.Equal(t, *r1.Description, *got.Description)

			byAlice, err := q.ListRequests(ctx, RequestFilter{RequesterID: alice.ID})
			require.NoError(t, err)
			assert.Len(t, byAlice, 2)

			pending, err := q.ListRequests(ctx, RequestFilter{
				Statuses:   []domain.RequestStatus{domain.RequestSubmitted, domain.RequestNeedsRevision},
				ApproverID: approver.ID,
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{r1.ID, r3.ID}, ids(pending))

			theirPending, err := q.ListRequests(ctx, RequestFilter{
				Statuses:   []domain.RequestStatus{domain.RequestSubmitted, domain.RequestNeedsRevision},
				ApproverID: other.ID,
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{r2.ID, r3.ID}, ids(theirPending))

			notBob, err := q.ListRequests(ctx, RequestFilter{
				Statuses:           []domain.RequestStatus{domain.RequestSubmitted},
				ExcludeRequesterID: bob.ID,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{r1.ID}, ids(notBob))

			counts, err := q.CountRequestsByStatus(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, counts[domain.RequestSubmitted])
			assert.Equal(t, 1, counts[domain.RequestDraft])
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("history is ordered oldest first", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice := seedUser(t, store, domain.RoleRequester)
		dept := seedDepartment(t, store, "Music", nil)
		r := seedRequest(t, store, alice.ID, dept.ID, domain.RequestDraft)

		base := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, store.InTransaction(ctx, func(q Queries) error {
			for i, a := range []domain.Action{domain.ActionCreate, domain.ActionSubmit} {
				if err := q.AppendHistory(ctx, &domain.RequestHistoryEntry{
					ID:        uuid.NewString(),
					RequestID: r.ID,
					Action:    a,
					ToStatus:  domain.RequestSubmitted,
					ActorID:   alice.ID,
					CreatedAt: base.Add(time.Duration(i) * time.Second),
				}); err != nil {
					return err
				}
			}
			return nil
		}))

		var entries []*domain.RequestHistoryEntry
		require.NoError(t, store.View(ctx, func(q Queries) (err error) {
			entries, err = q.ListHistory(ctx, r.ID)
			return err
		}))
		require.Len(t, entries, 2)
		assert.Equal(t, domain.ActionCreate, entries[0].Action)
		assert.Equal(t, domain.ActionSubmit, entries[1].Action)
	})

	t.Run("invoices payments and totals", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice := seedUser(t, store, domain.RoleRequester)
		clerk := seedUser(t, store, domain.RoleFinanceClerk)
		dept := seedDepartment(t, store, "Law", nil)
		r := seedRequest(t, store, alice.ID, dept.ID, domain.RequestApproved)

		now := time.Now().UTC().Truncate(time.Millisecond)
		inv := &domain.Invoice{
			ID: uuid.NewString(), RequestID: r.ID, Status: domain.InvoiceSubmitted, CreatedBy: clerk.ID,
			InvoiceDate: day(now), DueDate: day(now.AddDate(0, 0, 30)), CreatedAt: now, UpdatedAt: now,
		}
		inv.SetAmounts(decimal.RequireFromString("1000"), decimal.RequireFromString("150"))

		require.NoError(t, store.InTransaction(ctx, func(q Queries) error {
			if err := q.CreateInvoice(ctx, inv); err != nil {
				return err
			}
			for _, p := range []struct {
				amount string
				status domain.PaymentStatus
			}{{"500", domain.PaymentProcessed}, {"200", domain.PaymentCancelled}} {
				if err := q.CreatePayment(ctx, &domain.Payment{
					ID: uuid.NewString(), InvoiceID: inv.ID, Method: domain.MethodTransfer,
					PaymentDate: day(now), Amount: decimal.RequireFromString(p.amount), Status: p.status,
					CreatedBy: clerk.ID, CreatedAt: now, UpdatedAt: now,
				}); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, store.View(ctx, func(q Queries) error {
			got, err := q.GetInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assert.True(t, got.NetAmount.Equal(decimal.RequireFromString("1150")))

			payments, err := q.ListPaymentsByInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assert.Len(t, payments, 2)
			assert.True(t, domain.PaidTotal(payments).Equal(decimal.RequireFromString("500")))

			list, err := q.ListInvoices(ctx, InvoiceFilter{RequestID: r.ID, Status: domain.InvoiceSubmitted})
			require.NoError(t, err)
			assert.Len(t, list, 1)

			totals, err := q.InvoiceTotals(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, totals.Count)
			assert.True(t, totals.Net.Equal(decimal.RequireFromString("1150")))
			assert.True(t, totals.Paid.Equal(decimal.RequireFromString("500")))
			return nil
		}))
	})

	t.Run("attachments list by owner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice := seedUser(t, store, domain.RoleRequester)
		dept := seedDepartment(t, store, "Art", nil)
		r := seedRequest(t, store, alice.ID, dept.ID, domain.RequestSubmitted)

		a := &domain.Attachment{
			ID: uuid.NewString(), FileName: "menu.pdf", FileType: "application/pdf", FileSize: 42,
			URL: "/uploads/menu.pdf", UploadedBy: alice.ID, CreatedAt: time.Now().UTC(),
		}
		a.SetOwner(domain.OwnerRequest, r.ID)
		require.NoError(t, store.InTransaction(ctx, func(q Queries) error {
			return q.CreateAttachment(ctx, a)
		}))

		require.NoError(t, store.View(ctx, func(q Queries) error {
			list, err := q.ListAttachments(ctx, domain.OwnerRequest, r.ID)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "menu.pdf", list[0].FileName)
			assert.Nil(t, list[0].InvoiceID)

			none, err := q.ListAttachments(ctx, domain.OwnerInvoice, r.ID)
			require.NoError(t, err)
			assert.Empty(t, none)
			return nil
		}))
	})

	t.Run("notifications read state", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice := seedUser(t, store, domain.RoleRequester)
		bob := seedUser(t, store, domain.RoleRequester)

		var first string
		require.NoError(t, store.InTransaction(ctx, func(q Queries) error {
			for i := 0; i < 3; i++ {
				n := &domain.Notification{
					ID: uuid.NewString(), UserID: alice.ID, Type: domain.NotifyRequestApproved,
					Title: "Approved", Message: "ok", CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
				}
				if i == 0 {
					first = n.ID
				}
				if err := q.CreateNotification(ctx, n); err != nil {
					return err
				}
			}
			return nil
		}))

		err := store.InTransaction(ctx, func(q Queries) error {
			_, err := q.MarkNotificationRead(ctx, first, bob.ID)
			return err
		})
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

		require.NoError(t, store.InTransaction(ctx, func(q Queries) error {
			n, err := q.MarkNotificationRead(ctx, first, alice.ID)
			require.NoError(t, err)
			assert.True(t, n.Read)
			assert.NotNil(t, n.ReadAt)
			return nil
		}))

		require.NoError(t, store.View(ctx, func(q Queries) error {
			unread, err := q.CountUnreadNotifications(ctx, alice.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, unread)

			list, err := q.ListNotifications(ctx, alice.ID, NotificationFilter{})
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, first, list[2].ID, "newest first")
			return nil
		}))

		require.NoError(t, store.InTransaction(ctx, func(q Queries) error {
			n, err := q.MarkAllNotificationsRead(ctx, alice.ID)
			assert.Equal(t, int64(2), n)
			return err
		}))
	})
}

func seedUser(t *testing.T, store Store, role domain.Role) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	u := &domain.User{ID: id, Email: id + "@uni.edu", Name: "User " + id[:8], Role: role, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.InTransaction(context.Background(), func(q Queries) error {
		return q.CreateUser(context.Background(), u)
	}))
	return u
}

func seedDepartment(t *testing.T, store Store, name string, approverID *string) *domain.Department {
	t.Helper()
	d := &domain.Department{
		ID: uuid.NewString(), Name: name, Code: name[:3], ApproverID: approverID, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InTransaction(context.Background(), func(q Queries) error {
		return q.CreateDepartment(context.Background(), d)
	}))
	return d
}

func seedRequest(t *testing.T, store Store, requesterID, departmentID string, status domain.RequestStatus) *domain.ServiceRequest {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	desc := "Buffet lunch"
	r := &domain.ServiceRequest{
		ID:             uuid.NewString(),
		RequesterID:    requesterID,
		DepartmentID:   departmentID,
		EventName:      "Seminar",
		EventDate:      day(now.AddDate(0, 1, 0)),
		Venue:          "Main Hall",
		AttendeeCount:  50,
		EstimateAmount: decimal.RequireFromString("1000.50"),
		ServiceType:    "LUNCH",
		FundingSource:  "DEPARTMENT",
		Description:    &desc,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.InTransaction(context.Background(), func(q Queries) error {
		return q.CreateRequest(context.Background(), r)
	}))
	return r
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ids(rs []*domain.ServiceRequest) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
