package protocol

import (
	"fmt"
)

type registryKey struct {
	version   byte
	direction Direction
	id        uint32
}

// Registry maps (version, direction, id) triples to message constructors. It
// is built once at startup by an explicit registration pass and immutable
// afterwards.
type Registry struct {
	factories map[registryKey]func() Message
}

// NewRegistry indexes the given constructors under version. A duplicate
// (version, direction, id) triple is a configuration error and fails the
// build; callers treat that as startup-fatal.
func NewRegistry(version byte, factories ...func() Message) (*Registry, error) {
	r := &Registry{factories: make(map[registryKey]func() Message)}
	if err := r.Add(version, factories...); err != nil {
		return nil, err
	}
	return r, nil
}

// Add indexes additional constructors, e.g. for a second protocol version
// coexisting during migration.
func (r *Registry) Add(version byte, factories ...func() Message) error {
	for _, f := range factories {
		proto := f()
		key := registryKey{version: version, direction: proto.Direction(), id: proto.ID()}
		if _, dup := r.factories[key]; dup {
			return fmt.Errorf("duplicate message registration %d:%s:0x%02x (%s)",
				version, proto.Direction(), proto.ID(), proto.Name())
		}
		r.factories[key] = f
	}
	return nil
}

// New returns a fresh message instance for the triple, or false when no
// decoder is registered for it.
func (r *Registry) New(version byte, direction Direction, id uint32) (Message, bool) {
	f, ok := r.factories[registryKey{version: version, direction: direction, id: id}]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Len reports the number of registered triples.
func (r *Registry) Len() int {
	return len(r.factories)
}
