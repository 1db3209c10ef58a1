package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

const statementWindow = 30 * 24 * time.Hour

// StatementEntry is one settled milestone on the profile statement.
type StatementEntry struct {
	Date        time.Time `json:"date"`
	Project     string    `json:"project"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
}

// Profile is the client portal's account page: the client record plus the
// milestones settled over the last thirty days, newest first.
type Profile struct {
	Client          *models.Client   `json:"client"`
	RecentStatement []StatementEntry `json:"recentStatement"`
}

// ProfileForClient builds the portal profile for the given login email.
func (s *Service) ProfileForClient(ctx context.Context, email string) (*Profile, error) {
	client, err := s.FindClientByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-statementWindow)
	var statement []StatementEntry
	for _, p := range client.Projects {
		for _, m := range p.Milestones {
			if m.Status != models.MilestonePaid || m.PaidDate == nil || m.PaidDate.Before(cutoff) {
				continue
			}
			method := m.PaymentMethod
			if method == "" {
				method = "N/A"
			}
			statement = append(statement, StatementEntry{
				Date:        *m.PaidDate,
				Project:     p.Name,
				Description: m.Name,
				Amount:      m.Amount,
				Method:      method,
				Status:      "Settled",
			})
		}
	}
	sort.Slice(statement, func(i, j int) bool {
		return statement[i].Date.After(statement[j].Date)
	})
	return &Profile{Client: client, RecentStatement: statement}, nil
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalClients      int64   `json:"totalClients"`
	ActiveProjects    int     `json:"activeProjects"`
	CompletedProjects int     `json:"completedProjects"`
	TotalRevenue      float64 `json:"totalRevenue"`
	UnpaidInvoices    int     `json:"unpaidInvoices"`
	PaidInvoices      int     `json:"paidInvoices"`
	Outstanding       float64 `json:"outstanding"`
}

// Dashboard aggregates the admin overview numbers from the clients and
// invoices collections.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	total, err := s.clients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: count clients: %w", err)
	}
	stats.TotalClients = total

	clients, err := s.clients.List(ctx, store.ClientFilter{})
	if err != nil {
		return nil, fmt.Errorf("dashboard: list clients: %w", err)
	}
	for _, c := range clients {
		stats.TotalRevenue += c.TotalPaid
		for _, p := range c.Projects {
			switch p.Status {
			case models.ProjectActive:
				stats.ActiveProjects++
			case models.ProjectCompleted:
				stats.CompletedProjects++
			}
		}
	}

	invoices, err := s.invoices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: list invoices: %w", err)
	}
	for _, inv := range invoices {
		switch inv.Status {
		case models.InvoicePaid:
			stats.PaidInvoices++
		default:
			stats.UnpaidInvoices++
			stats.Outstanding += inv.RemainingDue
		}
	}
	return stats, nil
}
