// Package user aggregates population counts over the live connection table
// and the persisted identity store.
package user

import (
	"context"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
)

// Counts is the population snapshot served over the admin API and the binary
// globalData message.
type Counts struct {
	Total  int `json:"total"`
	Online int `json:"online"`
}

type onlineCounter interface {
	OnlineCount() int
}

// Manager answers population queries. Online comes from the connection
// registry, total from the store.
type Manager struct {
	online onlineCounter
	store  interfaces.Store
}

func NewManager(online onlineCounter, store interfaces.Store) *Manager {
	return &Manager{online: online, store: store}
}

// Counts returns the current population snapshot.
func (m *Manager) Counts(ctx context.Context) (Counts, error) {
	total, err := m.store.CountUsers(ctx)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Total: total, Online: m.online.OnlineCount()}, nil
}
