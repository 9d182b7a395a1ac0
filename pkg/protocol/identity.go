package protocol

import "github.com/google/uuid"

// IdentityFromBytes maps a raw 16-byte identity value to its canonical
// hyphenated hexadecimal text form (separators after bytes 4, 6, 8 and 10).
func IdentityFromBytes(b []byte) (string, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// IdentityToBytes is the inverse of IdentityFromBytes: it strips separators
// and parses hex pairs back into 16 raw bytes.
func IdentityToBytes(s string) ([16]byte, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}, err
	}
	return [16]byte(u), nil
}
