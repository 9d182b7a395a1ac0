package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Header{Direction: ClientToServer, Version: Version1, MessageID: 0x0b}
	require.NoError(t, WriteHeader(&buf, in))
	require.Equal(t, HeaderSize, buf.Len())

	out, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, Header{
		Direction: ServerToClient,
		Version:   Version1,
		MessageID: 0x01020304,
	}))

	raw := buf.Bytes()
	assert.Equal(t, []byte("AXO"), raw[:3])
	assert.Equal(t, byte(ServerToClient), raw[3])
	assert.Equal(t, Version1, raw[4])
	// Message id is little-endian.
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, raw[5:9])
}

func TestReadHeaderBadMagic(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("XXX\x01\x01\x00\x00\x00\x00")))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestReadHeaderTruncated(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("AXO\x01")))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
