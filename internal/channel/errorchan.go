package channel

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Errors serves the error channel. Outbound it carries every recoverable
// failure; inbound it only records what clients report.
type Errors struct {
	log *slog.Logger
}

func NewErrors(log *slog.Logger) *Errors {
	return &Errors{log: log.With("component", "error-channel")}
}

func (e *Errors) Name() string { return types.ChannelError }

func (e *Errors) OnMessage(_ context.Context, conn interfaces.Conn, env *types.Envelope) error {
	var data types.ErrorData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return types.NewCodedError(types.CodeMalformedPacket, `missing property "message"`)
	}
	e.log.Warn("client reported error", "identity", conn.Identity(), "message", data.Message)
	return nil
}
