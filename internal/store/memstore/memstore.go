// Package memstore is an in-memory implementation of the store contract with
// the same atomicity envelope as the document store: every method is one
// mutex-guarded mutation of one document. It backs the package tests and the
// STORE_DRIVER=memory development mode.
package memstore

import (
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

// Store holds all four collections behind a single lock.
type Store struct {
	mu       sync.Mutex
	clients  map[primitive.ObjectID]*models.Client
	invoices map[primitive.ObjectID]*models.Invoice
	users    map[primitive.ObjectID]*models.User
	settings *models.Settings
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		clients:  make(map[primitive.ObjectID]*models.Client),
		invoices: make(map[primitive.ObjectID]*models.Invoice),
		users:    make(map[primitive.ObjectID]*models.User),
	}
}

// Clients returns the clients collection store.
func (s *Store) Clients() store.ClientStore { return &memClients{s} }

// Invoices returns the invoices collection store.
func (s *Store) Invoices() store.InvoiceStore { return &memInvoices{s} }

// Users returns the users collection store.
func (s *Store) Users() store.UserStore { return &memUsers{s} }

// Settings returns the settings collection store.
func (s *Store) Settings() store.SettingsStore { return &memSettings{s} }

// --- copy helpers (documents never escape by reference) ---

func copyClient(c *models.Client) *models.Client {
	out := *c
	out.Projects = make([]models.Project, len(c.Projects))
	for i, p := range c.Projects {
		out.Projects[i] = copyProject(p)
	}
	return &out
}

func copyProject(p models.Project) models.Project {
	out := p
	out.Milestones = append([]models.Milestone(nil), p.Milestones...)
	return out
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	out := *inv
	out.Items = append([]models.InvoiceItem(nil), inv.Items...)
	return &out
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.MyCreatedInvoices = append([]models.InvoiceSummary(nil), u.MyCreatedInvoices...)
	out.InvoicesReceived = append([]models.InvoiceSummary(nil), u.InvoicesReceived...)
	return &out
}

func summaryList(u *models.User, list string) *[]models.InvoiceSummary {
	if list == store.ListCreated {
		return &u.MyCreatedInvoices
	}
	return &u.InvoicesReceived
}

func sortClientsByCreatedDesc(cs []models.Client) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].CreatedAt.After(cs[j].CreatedAt) })
}

func sortInvoicesByCreatedDesc(is []models.Invoice) {
	sort.Slice(is, func(i, j int) bool { return is[i].CreatedAt.After(is[j].CreatedAt) })
}
