// Package protocol implements the binary wire format: a fixed 9-byte frame
// header followed by a message-specific fixed-width payload, and the registry
// that maps (version, direction, id) triples to decoders.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the 3-byte ASCII constant opening every frame.
const Magic = "AXO"

// HeaderSize is the fixed frame header length in bytes.
const HeaderSize = 9

// Version1 is the first binary protocol version.
const Version1 byte = 1

// Direction tells which side emits a message. It doubles as the header's
// packet type byte.
type Direction byte

const (
	ServerToClient Direction = 0
	ClientToServer Direction = 1
)

func (d Direction) String() string {
	switch d {
	case ServerToClient:
		return "server-to-client"
	case ClientToServer:
		return "client-to-server"
	default:
		return fmt.Sprintf("direction(%d)", byte(d))
	}
}

var (
	ErrBadMagic = errors.New("frame does not start with magic constant")
)

// Header is the fixed frame prefix: magic, packet/direction type, protocol
// version and a little-endian message id.
type Header struct {
	Direction Direction
	Version   byte
	MessageID uint32
}

// ReadHeader consumes exactly HeaderSize bytes from r. It fails with
// ErrBadMagic when the magic constant is missing; the caller decides whether
// that tears down the stream.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	if string(buf[:3]) != Magic {
		return Header{}, fmt.Errorf("%w: %q", ErrBadMagic, buf[:3])
	}
	return Header{
		Direction: Direction(buf[3]),
		Version:   buf[4],
		MessageID: binary.LittleEndian.Uint32(buf[5:9]),
	}, nil
}

// WriteHeader emits the fixed frame prefix for h.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	copy(buf[:3], Magic)
	buf[3] = byte(h.Direction)
	buf[4] = h.Version
	binary.LittleEndian.PutUint32(buf[5:9], h.MessageID)
	_, err := w.Write(buf[:])
	return err
}
