package memstore

import (
	"context"
	"time"

	"github.com/vaultledger/server/pkg/models"
)

type memSettings struct{ s *Store }

func (m *memSettings) Get(_ context.Context) (*models.Settings, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if m.s.settings == nil {
		return nil, nil
	}
	out := *m.s.settings
	return &out, nil
}

func (m *memSettings) Upsert(_ context.Context, in models.Settings) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	in.Key = models.SettingsKey
	in.LastUpdated = time.Now()
	m.s.settings = &in
	return nil
}
