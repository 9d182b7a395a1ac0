package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// PreConnection wraps a just-opened socket before its identity is known. It
// exists from socket-open until handshake success, when it is promoted to a
// Connection, or until socket close.
type PreConnection struct {
	id        string
	transport Transport
}

func newPreConnection(transport Transport) *PreConnection {
	return &PreConnection{
		id:        randomID(),
		transport: transport,
	}
}

// ID is the random opaque instance id keying the pre-connection table.
func (p *PreConnection) ID() string { return p.id }

// send writes an envelope directly. Pre-connections see so little traffic
// that a writer goroutine is not warranted.
func (p *PreConnection) send(env *types.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.transport.WriteMessage(data)
}

// randomID produces a short opaque token for pre-connections and connection
// ids.
func randomID() string {
	var buf [6]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
