package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role values for user documents.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Client status values.
const (
	ClientActive   = "Active"
	ClientInactive = "Inactive"
)

// Project status values.
const (
	ProjectActive    = "Active"
	ProjectCompleted = "Completed"
)

// Milestone status values. A milestone is either waiting or settled;
// payability is derived from status + dueDate, never stored.
const (
	MilestonePending = "pending"
	MilestonePaid    = "Paid"
)

// Client is the root document of the clients collection. Projects (and their
// milestones) are embedded, so every nested mutation is a single-document
// atomic write.
type Client struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	PortalEmail string             `bson:"portalEmail" json:"portalEmail"`
	Password    string             `bson:"password" json:"-"` // bcrypt hash
	CompanyName string             `bson:"companyName,omitempty" json:"companyName,omitempty"`
	Status      string             `bson:"status" json:"status"`
	TotalPaid   float64            `bson:"totalPaid" json:"totalPaid"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Projects    []Project          `bson:"projects" json:"projects"`
}

// Project is embedded in Client. Its ID is generated at creation and is not
// the store's native document id. CurrentStep is a 1-indexed pointer into
// Milestones: the next milestone to invoice.
type Project struct {
	ID          string      `bson:"_id" json:"id"`
	Name        string      `bson:"name" json:"name"`
	Budget      float64     `bson:"budget" json:"budget"`
	Description string      `bson:"description" json:"description"`
	Type        string      `bson:"type,omitempty" json:"type,omitempty"`
	Status      string      `bson:"status" json:"status"`
	CurrentStep int         `bson:"currentStep" json:"currentStep"`
	Milestones  []Milestone `bson:"milestones" json:"milestones"`
	CreatedAt   time.Time   `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Milestone is embedded in Project.
type Milestone struct {
	ID            string     `bson:"_id" json:"id"`
	Name          string     `bson:"name" json:"name"`
	Amount        float64    `bson:"amount" json:"amount"`
	DueDate       *time.Time `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Status        string     `bson:"status" json:"status"`
	PaidDate      *time.Time `bson:"paidDate,omitempty" json:"paidDate,omitempty"`
	PaymentMethod string     `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
}

// PayableOn reports whether the milestone can be paid as of the given
// instant: not already paid, and either no due date or the due date
// (at midnight) has been reached.
func (m Milestone) PayableOn(now time.Time) bool {
	if m.Status == MilestonePaid {
		return false
	}
	if m.DueDate == nil {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	due := time.Date(m.DueDate.Year(), m.DueDate.Month(), m.DueDate.Day(), 0, 0, 0, 0, now.Location())
	return !today.Before(due)
}

// User is a summary-holder document in the users collection. Admin users
// accumulate myCreatedInvoices; client-role users accumulate
// invoicesReceived. Both lists are denormalized caches of the invoices
// collection, never the source of truth.
type User struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name              string              `bson:"name" json:"name"`
	Email             string              `bson:"email" json:"email"`
	Password          string              `bson:"password" json:"-"` // bcrypt hash
	Role              string              `bson:"role" json:"role"`
	About             string              `bson:"about,omitempty" json:"about,omitempty"`
	ProfilePic        string              `bson:"profilePic,omitempty" json:"profilePic,omitempty"`
	ClientID          *primitive.ObjectID `bson:"clientId,omitempty" json:"clientId,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	MyCreatedInvoices []InvoiceSummary    `bson:"myCreatedInvoices,omitempty" json:"myCreatedInvoices,omitempty"`
	InvoicesReceived  []InvoiceSummary    `bson:"invoicesReceived,omitempty" json:"invoicesReceived,omitempty"`
}

// Settings is the single site-wide configuration document, keyed by the
// fixed id "admin_config".
type Settings struct {
	Key          string    `bson:"id" json:"-"`
	PaypalLink   string    `bson:"paypalLink" json:"paypalLink"`
	Currency     string    `bson:"currency" json:"currency"`
	BusinessName string    `bson:"businessName" json:"businessName"`
	AdminEmail   string    `bson:"adminEmail" json:"adminEmail"`
	LastUpdated  time.Time `bson:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
}

// SettingsKey is the fixed lookup id of the settings document.
const SettingsKey = "admin_config"
