package channel

import (
	"context"
	"encoding/json"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Users serves the user channel: live online flags for arbitrary identities.
type Users struct {
	presence interfaces.PresenceView
	mux      *Multiplexer
}

func NewUsers(presence interfaces.PresenceView, mux *Multiplexer) *Users {
	return &Users{presence: presence, mux: mux}
}

func (u *Users) Name() string { return types.ChannelUser }

func (u *Users) OnMessage(ctx context.Context, conn interfaces.Conn, env *types.Envelope) error {
	var req types.UserRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.Method == "" {
		return types.NewCodedError(types.CodeMalformedPacket, `missing property "method"`)
	}
	if req.Method != types.MethodGet {
		return types.NewCodedError(types.CodeUnknownMethod, req.Method)
	}

	entries := make([]types.UserEntry, 0, len(req.Users))
	for _, uuid := range req.Users {
		entries = append(entries, types.UserEntry{
			UUID:   uuid,
			Online: u.presence.IsOnline(uuid),
		})
	}

	return u.mux.Send(conn, types.ChannelUser, env.ID, types.UserList{
		Method: types.MethodGet,
		Users:  entries,
	})
}
