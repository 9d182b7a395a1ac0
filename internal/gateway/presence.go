package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Presence applies status mutations and fans them out to online friends.
type Presence struct {
	registry *Registry
	store    interfaces.Store
	log      *slog.Logger
}

// NewPresence wires the fan-out over the registry and the persistence
// collaborator.
func NewPresence(registry *Registry, store interfaces.Store, log *slog.Logger) *Presence {
	return &Presence{
		registry: registry,
		store:    store,
		log:      log.With("component", "presence"),
	}
}

// SetStatus replaces conn's presence value and pushes it to every online
// friend. The recipient set is computed from the mutator's own friend list
// only; it is not intersected with the recipient's list, so a non-mutual
// "friend" still gets notified.
func (p *Presence) SetStatus(ctx context.Context, conn interfaces.Conn, status types.Status) error {
	conn.UpdateStatus(status)

	user, err := p.store.GetUser(ctx, conn.Identity())
	if err != nil {
		return fmt.Errorf("presence: load friend list for %s: %w", conn.Identity(), err)
	}

	push, err := types.NewEnvelope(nil, types.ChannelStatusUpdate, types.StatusPush{
		UUID:   conn.Identity(),
		Status: status,
	})
	if err != nil {
		return err
	}

	// Delivery is per-recipient: one failed send must not stop the rest.
	for _, peer := range p.registry.Connections() {
		if peer.Identity() == conn.Identity() || !peer.Status().Online {
			continue
		}
		if !user.HasFriend(peer.Identity()) {
			continue
		}
		if err := peer.Send(push); err != nil {
			p.log.Warn("status fan-out delivery failed",
				"from", conn.Identity(), "to", peer.Identity(), "error", err)
		}
	}
	return nil
}
