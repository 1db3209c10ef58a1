// Package store defines the document-store contract consumed by the billing
// core. Each collection exposes only per-document atomic operations; there
// are no multi-document transactions anywhere in this contract, so every
// cross-collection sequence in the services above it is explicitly
// non-atomic and must tolerate partial completion.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/pkg/models"
)

// ClientFilter narrows client listings. Search matches name, email or
// company name; Status of "" or "All" matches every status.
type ClientFilter struct {
	Search string
	Status string
}

// InvoiceFilter narrows invoice listings. Exactly one of AdminEmail or
// ClientEmail is normally set: admins see invoices they issued, clients see
// invoices addressed to them.
type InvoiceFilter struct {
	Search      string
	Status      string
	AdminEmail  string
	ClientEmail string
}

// ClientPatch is a top-level merge for updateClient. Nil fields are left
// untouched. A non-nil Projects pointer REPLACES the entire embedded
// projects array — callers must always submit the full list.
type ClientPatch struct {
	Name        *string
	Email       *string
	PortalEmail *string
	Password    *string
	CompanyName *string
	Status      *string
	Projects    *[]models.Project
}

// MilestonePayment addresses one milestone by composite key
// (client, project, milestone) and carries the settlement details. The
// nested status fields and the totalPaid counter must be applied in one
// single-document write.
type MilestonePayment struct {
	ClientID    primitive.ObjectID
	ProjectID   string
	MilestoneID string
	Amount      float64
	Method      string
	Date        time.Time
}

// SummaryPatch carries the invoice fields propagated into an existing
// summary element on patch/status change.
type SummaryPatch struct {
	Status       string
	GrandTotal   float64
	ProjectTitle string
	ClientName   string
}

// ClientStore is the clients collection.
type ClientStore interface {
	Insert(ctx context.Context, c *models.Client) (primitive.ObjectID, error)
	// FindByID returns (nil, nil) when no document matches.
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Client, error)
	// FindByEmail matches either the contact email or the portal email.
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	// FindByProjectID locates the client owning the embedded project.
	FindByProjectID(ctx context.Context, projectID string) (*models.Client, error)
	List(ctx context.Context, f ClientFilter) ([]models.Client, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, patch ClientPatch) (matched bool, err error)
	// AppendProject pushes a project onto the embedded array.
	AppendProject(ctx context.Context, id primitive.ObjectID, p models.Project) (matched bool, err error)
	// MarkMilestonePaid sets the milestone's paid fields and increments the
	// client's totalPaid in one atomic document write. matched is false when
	// the composite key resolves to nothing.
	MarkMilestonePaid(ctx context.Context, mp MilestonePayment) (matched bool, err error)
	// SetProjectStep advances the 1-indexed milestone pointer.
	SetProjectStep(ctx context.Context, id primitive.ObjectID, projectID string, step int) (matched bool, err error)
	// SetProjectStatus updates an embedded project's status, addressed by
	// project id alone.
	SetProjectStatus(ctx context.Context, projectID, status string) (matched bool, err error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// InvoiceStore is the invoices collection.
type InvoiceStore interface {
	Insert(ctx context.Context, inv *models.Invoice) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error)
	// FindByNumber resolves the human-readable invoiceId.
	FindByNumber(ctx context.Context, invoiceID string) (*models.Invoice, error)
	List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error)
	ListAll(ctx context.Context) ([]models.Invoice, error)
	// Update applies the given fields verbatim via $set. Callers are
	// responsible for stripping immutable fields first.
	Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (matched bool, err error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserStore is the users collection, including the per-user summary lists
// maintained by the synchronization engine.
type UserStore interface {
	Insert(ctx context.Context, u *models.User) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, about string) (matched bool, err error)
	DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error

	// PushSummary appends a summary element to the named list.
	PushSummary(ctx context.Context, ownerEmail, list string, s models.InvoiceSummary) (matched bool, err error)
	// PatchSummary updates the one element whose id matches. matched is
	// false when either the owner or the element is absent; that is not an
	// error at this level.
	PatchSummary(ctx context.Context, ownerEmail, list string, invoiceID primitive.ObjectID, p SummaryPatch) (matched bool, err error)
	// PullSummary removes the matching element, if any.
	PullSummary(ctx context.Context, ownerEmail, list string, invoiceID primitive.ObjectID) error
	// ReplaceSummaries overwrites the whole named list; used by the
	// reconciliation pass that rebuilds projections from the ledger.
	ReplaceSummaries(ctx context.Context, ownerEmail, list string, summaries []models.InvoiceSummary) (matched bool, err error)
}

// SettingsStore is the single-document settings collection.
type SettingsStore interface {
	// Get returns (nil, nil) when no settings document exists yet.
	Get(ctx context.Context) (*models.Settings, error)
	Upsert(ctx context.Context, s models.Settings) error
}

// Summary list names on the user document.
const (
	ListCreated  = "myCreatedInvoices"
	ListReceived = "invoicesReceived"
)
