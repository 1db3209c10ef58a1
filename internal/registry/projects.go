package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/apperr"
	"github.com/vaultledger/server/internal/ledger"
	"github.com/vaultledger/server/internal/notifier"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/identity"
	"github.com/vaultledger/server/pkg/models"
)

// MilestoneInput is one milestone in a deployment request.
type MilestoneInput struct {
	Name    string     `json:"name"`
	Amount  float64    `json:"amount"`
	DueDate *time.Time `json:"dueDate"`
}

// PaymentTypeFull bills the whole budget on the first invoice instead of
// invoicing milestone by milestone.
const PaymentTypeFull = "Full Payment"

// DeployProjectInput starts a project for a client.
type DeployProjectInput struct {
	Name        string           `json:"name"`
	Budget      float64          `json:"budget"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	Currency    string           `json:"currency"`
	AdminEmail  string           `json:"adminEmail"`
	PaymentType string           `json:"paymentType"`
	Milestones  []MilestoneInput `json:"milestones"`
}

// DeployResult reports what deployment produced.
type DeployResult struct {
	Project      *models.Project
	FirstInvoice *models.Invoice
	Warnings     []string
}

// DeployProject attaches a new project to the client, positioned at its
// first milestone, then issues the opening invoice and queues the kickoff
// email. The opening invoice bills the full budget for Full Payment
// projects and the first milestone's amount otherwise. The project append
// is the authoritative write.
func (s *Service) DeployProject(ctx context.Context, clientID primitive.ObjectID, in DeployProjectInput) (*DeployResult, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("deploy project: name is required: %w", apperr.ErrValidation)
	}
	// Full-payment projects may carry no milestones; everything else is
	// invoiced milestone by milestone and needs at least one.
	if len(in.Milestones) == 0 && in.PaymentType != PaymentTypeFull {
		return nil, fmt.Errorf("deploy project: at least one milestone is required: %w", apperr.ErrValidation)
	}
	in.AdminEmail = identity.NormalizeEmail(in.AdminEmail)
	if in.AdminEmail == "" {
		return nil, fmt.Errorf("deploy project: admin email is required: %w", apperr.ErrValidation)
	}

	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	project := models.Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Budget:      in.Budget,
		Description: in.Description,
		Type:        in.Type,
		Status:      models.ProjectActive,
		CurrentStep: 1,
		CreatedAt:   now,
		Milestones:  make([]models.Milestone, len(in.Milestones)),
	}
	for i, m := range in.Milestones {
		project.Milestones[i] = models.Milestone{
			ID:      uuid.NewString(),
			Name:    m.Name,
			Amount:  m.Amount,
			DueDate: m.DueDate,
			Status:  models.MilestonePending,
		}
	}

	matched, err := s.clients.AppendProject(ctx, clientID, project)
	if err != nil {
		return nil, fmt.Errorf("deploy project: %w", err)
	}
	if !matched {
		return nil, fmt.Errorf("client %s: %w", clientID.Hex(), apperr.ErrNotFound)
	}

	res := &DeployResult{Project: &project}
	itemName := "Initial Milestone"
	amount := in.Budget
	if len(project.Milestones) > 0 {
		itemName = project.Milestones[0].Name
		if in.PaymentType != PaymentTypeFull {
			amount = project.Milestones[0].Amount
		}
	}
	created, err := s.ledger.Create(ctx, ledger.CreateInput{
		ProjectID:    project.ID,
		ProjectTitle: project.Name,
		AdminEmail:   in.AdminEmail,
		ClientEmail:  identity.LoginEmail(client.PortalEmail, client.Email),
		ClientName:   client.Name,
		Currency:     in.Currency,
		Items:        []models.InvoiceItem{{Name: itemName, Qty: 1, Price: amount}},
	})
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("issue first invoice: %v", err))
		return res, nil
	}
	res.FirstInvoice = created.Invoice
	res.Warnings = append(res.Warnings, created.Warnings...)

	if s.queue != nil {
		cfg, _ := s.settings.Get(ctx)
		payLink := notifier.ResolvePayLink(created.Invoice, cfg, "")
		to := identity.LoginEmail(client.PortalEmail, client.Email)
		msg, err := notifier.ProjectDeployedEmail(client.Name, to, project.Name, created.Invoice, payLink)
		if err == nil {
			err = s.queue.Send(ctx, msg)
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("queue kickoff email: %v", err))
		}
	}
	return res, nil
}

// normalizeProjects fills generated ids and default statuses on submitted
// projects. Every embedded project and milestone must carry an id before it
// is persisted; the id-keyed milestone addressing has nothing to match on
// otherwise.
func normalizeProjects(ps []models.Project, now time.Time) []models.Project {
	out := make([]models.Project, len(ps))
	for i, p := range ps {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Status == "" {
			p.Status = models.ProjectActive
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		for j, m := range p.Milestones {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if m.Status == "" {
				m.Status = models.MilestonePending
			}
			p.Milestones[j] = m
		}
		out[i] = p
	}
	return out
}

// PayMilestoneInput settles one milestone by its composite key.
type PayMilestoneInput struct {
	ProjectID   string  `json:"projectId"`
	MilestoneID string  `json:"milestoneId"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"method"`
}

// PayMilestone records a milestone payment: status, settlement details and
// the client's lifetime totalPaid move in one atomic document write. A key
// that resolves to nothing leaves the document untouched and reports not
// found.
func (s *Service) PayMilestone(ctx context.Context, clientID primitive.ObjectID, in PayMilestoneInput) error {
	matched, err := s.clients.MarkMilestonePaid(ctx, store.MilestonePayment{
		ClientID:    clientID,
		ProjectID:   in.ProjectID,
		MilestoneID: in.MilestoneID,
		Amount:      in.Amount,
		Method:      in.Method,
		Date:        s.now(),
	})
	if err != nil {
		return fmt.Errorf("pay milestone %s: %w", in.MilestoneID, err)
	}
	if !matched {
		return fmt.Errorf("milestone %s on project %s: %w", in.MilestoneID, in.ProjectID, apperr.ErrNotFound)
	}
	return nil
}

// UpdateProjectStatus sets an embedded project's status by project id.
func (s *Service) UpdateProjectStatus(ctx context.Context, projectID, status string) error {
	matched, err := s.clients.SetProjectStatus(ctx, projectID, status)
	if err != nil {
		return fmt.Errorf("update project %s: %w", projectID, err)
	}
	if !matched {
		return fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	return nil
}

// MilestoneView decorates a milestone with the portal's derived flags.
// Locked milestones are past the current step and cannot be paid yet;
// payability additionally requires the due date to have arrived.
type MilestoneView struct {
	models.Milestone
	IsPayable bool `json:"isPayable"`
	IsLocked  bool `json:"isLocked"`
}

// ProjectView is a project with decorated milestones and progress.
type ProjectView struct {
	models.Project
	Milestones []MilestoneView `json:"milestones"`
	Progress   int             `json:"progress"`
}

func (s *Service) projectView(p models.Project) ProjectView {
	now := s.now()
	view := ProjectView{Project: p, Milestones: make([]MilestoneView, len(p.Milestones))}
	paid := 0
	for i, m := range p.Milestones {
		locked := i+1 > p.CurrentStep
		view.Milestones[i] = MilestoneView{
			Milestone: m,
			IsLocked:  locked,
			IsPayable: !locked && m.PayableOn(now),
		}
		if m.Status == models.MilestonePaid {
			paid++
		}
	}
	if len(p.Milestones) > 0 {
		view.Progress = paid * 100 / len(p.Milestones)
	}
	return view
}

// ProjectsForClient returns the portal view of every project owned by the
// client with the given login email.
func (s *Service) ProjectsForClient(ctx context.Context, email string) ([]ProjectView, error) {
	client, err := s.FindClientByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, len(client.Projects))
	for i, p := range client.Projects {
		views[i] = s.projectView(p)
	}
	return views, nil
}

// ProjectDetails returns the portal view of one project and its owner.
func (s *Service) ProjectDetails(ctx context.Context, projectID string) (*models.Client, *ProjectView, error) {
	client, err := s.clients.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("find project %s: %w", projectID, err)
	}
	if client == nil {
		return nil, nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	for _, p := range client.Projects {
		if p.ID == projectID {
			view := s.projectView(p)
			return client, &view, nil
		}
	}
	return nil, nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
}
