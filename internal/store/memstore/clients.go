package memstore

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

type memClients struct{ s *Store }

func (m *memClients) Insert(_ context.Context, c *models.Client) (primitive.ObjectID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.s.clients[c.ID] = copyClient(c)
	return c.ID, nil
}

func (m *memClients) FindByID(_ context.Context, id primitive.ObjectID) (*models.Client, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.clients[id]
	if !ok {
		return nil, nil
	}
	return copyClient(c), nil
}

func (m *memClients) FindByEmail(_ context.Context, email string) (*models.Client, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, c := range m.s.clients {
		if c.Email == email || c.PortalEmail == email {
			return copyClient(c), nil
		}
	}
	return nil, nil
}

func (m *memClients) FindByProjectID(_ context.Context, projectID string) (*models.Client, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if c := m.s.findByProjectLocked(projectID); c != nil {
		return copyClient(c), nil
	}
	return nil, nil
}

func (s *Store) findByProjectLocked(projectID string) *models.Client {
	for _, c := range s.clients {
		for i := range c.Projects {
			if c.Projects[i].ID == projectID {
				return c
			}
		}
	}
	return nil
}

func (m *memClients) List(_ context.Context, f store.ClientFilter) ([]models.Client, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []models.Client
	search := strings.ToLower(f.Search)
	for _, c := range m.s.clients {
		if f.Status != "" && f.Status != "All" && c.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(strings.ToLower(c.CompanyName), search) {
			continue
		}
		out = append(out, *copyClient(c))
	}
	sortClientsByCreatedDesc(out)
	return out, nil
}

func (m *memClients) Count(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.clients)), nil
}

func (m *memClients) Update(_ context.Context, id primitive.ObjectID, patch store.ClientPatch) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.clients[id]
	if !ok {
		return false, nil
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.PortalEmail != nil {
		c.PortalEmail = *patch.PortalEmail
	}
	if patch.Password != nil {
		c.Password = *patch.Password
	}
	if patch.CompanyName != nil {
		c.CompanyName = *patch.CompanyName
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.Projects != nil {
		c.Projects = make([]models.Project, len(*patch.Projects))
		for i, p := range *patch.Projects {
			c.Projects[i] = copyProject(p)
		}
	}
	return true, nil
}

func (m *memClients) AppendProject(_ context.Context, id primitive.ObjectID, p models.Project) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.clients[id]
	if !ok {
		return false, nil
	}
	c.Projects = append(c.Projects, copyProject(p))
	return true, nil
}

func (m *memClients) MarkMilestonePaid(_ context.Context, mp store.MilestonePayment) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.clients[mp.ClientID]
	if !ok {
		return false, nil
	}
	for i := range c.Projects {
		if c.Projects[i].ID != mp.ProjectID {
			continue
		}
		for j := range c.Projects[i].Milestones {
			ms := &c.Projects[i].Milestones[j]
			if ms.ID != mp.MilestoneID {
				continue
			}
			date := mp.Date
			ms.Status = models.MilestonePaid
			ms.PaidDate = &date
			ms.PaymentMethod = mp.Method
			c.TotalPaid += mp.Amount
			return true, nil
		}
	}
	return false, nil
}

func (m *memClients) SetProjectStep(_ context.Context, id primitive.ObjectID, projectID string, step int) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.clients[id]
	if !ok {
		return false, nil
	}
	for i := range c.Projects {
		if c.Projects[i].ID == projectID {
			c.Projects[i].CurrentStep = step
			return true, nil
		}
	}
	return false, nil
}

func (m *memClients) SetProjectStatus(_ context.Context, projectID, status string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c := m.s.findByProjectLocked(projectID)
	if c == nil {
		return false, nil
	}
	for i := range c.Projects {
		if c.Projects[i].ID == projectID {
			c.Projects[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *memClients) Delete(_ context.Context, id primitive.ObjectID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	delete(m.s.clients, id)
	return nil
}
