package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

// DashboardSummary is the finance overview.
type DashboardSummary struct {
	RequestsByStatus map[domain.RequestStatus]int `json:"requestsByStatus"`
	PendingApprovals int                          `json:"pendingApprovals"`
	InvoiceCount     int                          `json:"invoiceCount"`
	InvoicedNet      decimal.Decimal              `json:"invoicedNet"`
	Paid             decimal.Decimal              `json:"paid"`
	Outstanding      decimal.Decimal              `json:"outstanding"`
}

// ReportService builds read-only summaries.
type ReportService struct {
	store repository.Store
	log   *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(store repository.Store, log *logger.Logger) *ReportService {
	return &ReportService{store: store, log: log}
}

// DashboardSummary aggregates request counts and invoice totals.
func (s *ReportService) DashboardSummary(ctx context.Context, actor domain.Actor) (*DashboardSummary, error) {
	if !actor.Caps.CanViewDashboard {
		return nil, errors.Forbidden(fmt.Sprintf("role %s cannot view the dashboard", actor.Role))
	}

	summary := &DashboardSummary{RequestsByStatus: make(map[domain.RequestStatus]int, len(domain.RequestStatuses))}
	err := s.store.View(ctx, func(q repository.Queries) error {
		counts, err := q.CountRequestsByStatus(ctx)
		if err != nil {
			return err
		}
		for _, st := range domain.RequestStatuses {
			summary.RequestsByStatus[st] = counts[st]
			if st.AwaitingApproval() {
				summary.PendingApprovals += counts[st]
			}
		}

		totals, err := q.InvoiceTotals(ctx)
		if err != nil {
			return err
		}
		summary.InvoiceCount = totals.Count
		summary.InvoicedNet = totals.Net
		summary.Paid = totals.Paid
		summary.Outstanding = totals.Net.Sub(totals.Paid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
