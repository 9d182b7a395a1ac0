package protocol

import "io"

// Message is one typed wire message. Decode and Encode handle the payload
// only; the frame header is read and written by the transport.
type Message interface {
	// ID is the numeric message id, unique per (version, direction).
	ID() uint32

	// Name is the logical message name used for handler-table dispatch.
	Name() string

	// Direction tells which side emits this message.
	Direction() Direction

	// Decode reads the fixed-layout payload from r into the receiver.
	Decode(r io.Reader) error

	// Encode writes the fixed-layout payload to w.
	Encode(w io.Writer) error
}

// Write emits a complete frame, header plus payload, for m.
func Write(w io.Writer, version byte, m Message) error {
	h := Header{
		Direction: m.Direction(),
		Version:   version,
		MessageID: m.ID(),
	}
	if err := WriteHeader(w, h); err != nil {
		return err
	}
	return m.Encode(w)
}
