package channel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// StatusUpdate serves the statusUpdate channel: rich-presence style updates.
// Every accepted update replaces the connection's Status and triggers the
// friend fan-out; there is no reply envelope.
type StatusUpdate struct {
	presence interfaces.Presence
}

func NewStatusUpdate(presence interfaces.Presence) *StatusUpdate {
	return &StatusUpdate{presence: presence}
}

func (s *StatusUpdate) Name() string { return types.ChannelStatusUpdate }

func (s *StatusUpdate) OnMessage(ctx context.Context, conn interfaces.Conn, env *types.Envelope) error {
	var req types.StatusUpdateRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.UpdateType == "" {
		return types.NewCodedError(types.CodeMalformedPacket, `missing property "updateType"`)
	}

	status, err := buildStatus(&req)
	if err != nil {
		return err
	}
	return s.presence.SetStatus(ctx, conn, status)
}

func buildStatus(req *types.StatusUpdateRequest) (types.Status, error) {
	switch req.UpdateType {
	case types.UpdateOnline:
		var update types.OnlineUpdate
		if err := json.Unmarshal(req.Update, &update); err != nil {
			return types.Status{}, types.NewCodedError(types.CodeMalformedPacket, "invalid online update")
		}
		return types.Status{
			Online:      true,
			Title:       types.TitleOnline,
			Description: update.Location,
			Icon:        "online",
		}, nil

	case types.UpdateOffline:
		return types.OfflineStatus(), nil

	case types.UpdateInGame:
		var update types.InGameUpdate
		if err := json.Unmarshal(req.Update, &update); err != nil {
			return types.Status{}, types.NewCodedError(types.CodeMalformedPacket, "invalid inGame update")
		}
		return types.Status{
			Online:      true,
			Title:       types.TitleInGame,
			Description: fmt.Sprintf("%s %s/%s", update.Server, update.GameType, update.GameMode),
			Text:        fmt.Sprintf("%s (%d/%d)", update.Map, update.Players, update.MaxPlayers),
			Icon:        "ingame",
			StartedAt:   update.StartedAt,
		}, nil

	case types.UpdateInGameUnknown:
		var update types.InGameUnknownUpdate
		if err := json.Unmarshal(req.Update, &update); err != nil {
			return types.Status{}, types.NewCodedError(types.CodeMalformedPacket, "invalid inGameUnknown update")
		}
		return types.Status{
			Online:      true,
			Title:       types.TitleInGameUnknown,
			Description: update.Server,
			Text:        fmt.Sprintf("%s (%s)", update.WorldName, update.Gamemode),
			Icon:        "ingame",
			StartedAt:   update.StartedAt,
		}, nil

	default:
		return types.Status{}, types.NewCodedError(types.CodeMalformedPacket, "unknown updateType "+req.UpdateType)
	}
}
