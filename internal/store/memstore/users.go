package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/pkg/models"
)

type memUsers struct{ s *Store }

func (m *memUsers) Insert(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.s.users[u.ID] = copyUser(u)
	return u.ID, nil
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if u := m.s.userByEmailLocked(email); u != nil {
		return copyUser(u), nil
	}
	return nil, nil
}

func (s *Store) userByEmailLocked(email string) *models.User {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, name, about string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return false, nil
	}
	u.Name = name
	u.About = about
	u.UpdatedAt = time.Now()
	return true, nil
}

func (m *memUsers) DeleteByClientID(_ context.Context, clientID primitive.ObjectID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for id, u := range m.s.users {
		if u.ClientID != nil && *u.ClientID == clientID {
			delete(m.s.users, id)
			return nil
		}
	}
	return nil
}

func (m *memUsers) PushSummary(_ context.Context, ownerEmail, list string, sum models.InvoiceSummary) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u := m.s.userByEmailLocked(ownerEmail)
	if u == nil {
		return false, nil
	}
	l := summaryList(u, list)
	*l = append(*l, sum)
	return true, nil
}

func (m *memUsers) PatchSummary(_ context.Context, ownerEmail, list string, invoiceID primitive.ObjectID, p store.SummaryPatch) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u := m.s.userByEmailLocked(ownerEmail)
	if u == nil {
		return false, nil
	}
	l := summaryList(u, list)
	for i := range *l {
		if (*l)[i].ID == invoiceID {
			(*l)[i].Status = p.Status
			(*l)[i].GrandTotal = p.GrandTotal
			(*l)[i].ProjectTitle = p.ProjectTitle
			(*l)[i].ClientName = p.ClientName
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) PullSummary(_ context.Context, ownerEmail, list string, invoiceID primitive.ObjectID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u := m.s.userByEmailLocked(ownerEmail)
	if u == nil {
		return nil
	}
	l := summaryList(u, list)
	kept := (*l)[:0]
	for _, sum := range *l {
		if sum.ID != invoiceID {
			kept = append(kept, sum)
		}
	}
	*l = kept
	return nil
}

func (m *memUsers) ReplaceSummaries(_ context.Context, ownerEmail, list string, summaries []models.InvoiceSummary) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u := m.s.userByEmailLocked(ownerEmail)
	if u == nil {
		return false, nil
	}
	*summaryList(u, list) = append([]models.InvoiceSummary(nil), summaries...)
	return true, nil
}
