package protocol

import (
	"io"

	"github.com/google/uuid"
)

// Protocol v1 message definitions. Payload layouts are fixed-width per field;
// the only length-prefixed construct is the uuid list of CreateChannel.

// Logical message names, used as handler-table keys.
const (
	NameHandshake             = "Handshake"
	NameGlobalData            = "GlobalData"
	NameFriendsList           = "FriendsList"
	NameGetFriend             = "GetFriend"
	NameGetUser               = "GetUser"
	NameFriendRequestReaction = "FriendRequestReaction"
	NameStatusUpdate          = "StatusUpdate"
	NameCreateChannel         = "CreateChannel"
	NameGetPublicKey          = "GetPublicKey"
)

// Fixed slot widths.
const (
	serverIDWidth    = 40
	playerNameWidth  = 16
	statusTitleWidth = 64
	statusDescWidth  = 64
	statusIconWidth  = 32
	versionWidth     = 16
)

// HandshakeStatus is the result byte of the server handshake reply.
type HandshakeStatus byte

const (
	HandshakeSuccess HandshakeStatus = 0
	HandshakeFailure HandshakeStatus = 1
)

// Reaction is the response byte of FriendRequestReaction.
type Reaction byte

const (
	ReactionDeny   Reaction = 0x00
	ReactionAccept Reaction = 0x01
)

// V1ClientMessages returns the constructors for every client-to-server v1
// message, for the startup registration pass.
func V1ClientMessages() []func() Message {
	return []func() Message{
		func() Message { return &CHandshake{} },
		func() Message { return &CGlobalData{} },
		func() Message { return &CFriendsList{} },
		func() Message { return &CGetFriend{} },
		func() Message { return &CGetUser{} },
		func() Message { return &CFriendRequestReaction{} },
		func() Message { return &CStatusUpdate{} },
		func() Message { return &CCreateChannel{} },
		func() Message { return &CGetPublicKey{} },
	}
}

// V1ServerMessages returns the constructors for every server-to-client v1
// message.
func V1ServerMessages() []func() Message {
	return []func() Message{
		func() Message { return &SHandshake{} },
		func() Message { return &SGlobalData{} },
	}
}

// CHandshake initiates the placeholder identity exchange.
type CHandshake struct {
	UUID       uuid.UUID
	ServerID   string
	PlayerName string
}

func (*CHandshake) ID() uint32           { return 0x01 }
func (*CHandshake) Name() string         { return NameHandshake }
func (*CHandshake) Direction() Direction { return ClientToServer }

func (m *CHandshake) Decode(r io.Reader) error {
	var err error
	if m.UUID, err = readUUID(r); err != nil {
		return err
	}
	if m.ServerID, err = readFixedString(r, serverIDWidth); err != nil {
		return err
	}
	m.PlayerName, err = readFixedString(r, playerNameWidth)
	return err
}

func (m *CHandshake) Encode(w io.Writer) error {
	if err := writeUUID(w, m.UUID); err != nil {
		return err
	}
	if err := writeFixedString(w, m.ServerID, serverIDWidth); err != nil {
		return err
	}
	return writeFixedString(w, m.PlayerName, playerNameWidth)
}

// CGlobalData requests server-wide counters.
type CGlobalData struct{}

func (*CGlobalData) ID() uint32            { return 0x02 }
func (*CGlobalData) Name() string          { return NameGlobalData }
func (*CGlobalData) Direction() Direction  { return ClientToServer }
func (*CGlobalData) Decode(io.Reader) error { return nil }
func (*CGlobalData) Encode(io.Writer) error { return nil }

// CFriendsList requests the sender's friend list.
type CFriendsList struct{}

func (*CFriendsList) ID() uint32            { return 0x03 }
func (*CFriendsList) Name() string          { return NameFriendsList }
func (*CFriendsList) Direction() Direction  { return ClientToServer }
func (*CFriendsList) Decode(io.Reader) error { return nil }
func (*CFriendsList) Encode(io.Writer) error { return nil }

// CGetFriend requests one friend's details.
type CGetFriend struct {
	UUID uuid.UUID
}

func (*CGetFriend) ID() uint32           { return 0x04 }
func (*CGetFriend) Name() string         { return NameGetFriend }
func (*CGetFriend) Direction() Direction { return ClientToServer }

func (m *CGetFriend) Decode(r io.Reader) error {
	var err error
	m.UUID, err = readUUID(r)
	return err
}

func (m *CGetFriend) Encode(w io.Writer) error {
	return writeUUID(w, m.UUID)
}

// CGetUser requests one user's details.
type CGetUser struct {
	UUID uuid.UUID
}

func (*CGetUser) ID() uint32           { return 0x05 }
func (*CGetUser) Name() string         { return NameGetUser }
func (*CGetUser) Direction() Direction { return ClientToServer }

func (m *CGetUser) Decode(r io.Reader) error {
	var err error
	m.UUID, err = readUUID(r)
	return err
}

func (m *CGetUser) Encode(w io.Writer) error {
	return writeUUID(w, m.UUID)
}

// CFriendRequestReaction answers a pending friend request.
type CFriendRequestReaction struct {
	UUID     uuid.UUID
	Reaction Reaction
}

func (*CFriendRequestReaction) ID() uint32           { return 0x07 }
func (*CFriendRequestReaction) Name() string         { return NameFriendRequestReaction }
func (*CFriendRequestReaction) Direction() Direction { return ClientToServer }

func (m *CFriendRequestReaction) Decode(r io.Reader) error {
	var err error
	if m.UUID, err = readUUID(r); err != nil {
		return err
	}
	b, err := readUint8(r)
	m.Reaction = Reaction(b)
	return err
}

func (m *CFriendRequestReaction) Encode(w io.Writer) error {
	if err := writeUUID(w, m.UUID); err != nil {
		return err
	}
	return writeUint8(w, byte(m.Reaction))
}

// CStatusUpdate replaces the sender's presence value and doubles as a
// heartbeat.
type CStatusUpdate struct {
	Title       string
	Description string
	IconPath    string
}

func (*CStatusUpdate) ID() uint32           { return 0x0b }
func (*CStatusUpdate) Name() string         { return NameStatusUpdate }
func (*CStatusUpdate) Direction() Direction { return ClientToServer }

func (m *CStatusUpdate) Decode(r io.Reader) error {
	var err error
	if m.Title, err = readFixedString(r, statusTitleWidth); err != nil {
		return err
	}
	if m.Description, err = readFixedString(r, statusDescWidth); err != nil {
		return err
	}
	m.IconPath, err = readFixedString(r, statusIconWidth)
	return err
}

func (m *CStatusUpdate) Encode(w io.Writer) error {
	if err := writeFixedString(w, m.Title, statusTitleWidth); err != nil {
		return err
	}
	if err := writeFixedString(w, m.Description, statusDescWidth); err != nil {
		return err
	}
	return writeFixedString(w, m.IconPath, statusIconWidth)
}

// CCreateChannel carries a 1-byte member count followed by that many 16-byte
// identity values.
type CCreateChannel struct {
	Users []uuid.UUID
}

func (*CCreateChannel) ID() uint32           { return 0x0c }
func (*CCreateChannel) Name() string         { return NameCreateChannel }
func (*CCreateChannel) Direction() Direction { return ClientToServer }

func (m *CCreateChannel) Decode(r io.Reader) error {
	count, err := readUint8(r)
	if err != nil {
		return err
	}
	m.Users = make([]uuid.UUID, 0, count)
	for i := 0; i < int(count); i++ {
		u, err := readUUID(r)
		if err != nil {
			return err
		}
		m.Users = append(m.Users, u)
	}
	return nil
}

func (m *CCreateChannel) Encode(w io.Writer) error {
	if err := writeUint8(w, byte(len(m.Users))); err != nil {
		return err
	}
	for _, u := range m.Users {
		if err := writeUUID(w, u); err != nil {
			return err
		}
	}
	return nil
}

// CGetPublicKey requests the server's public key.
type CGetPublicKey struct{}

func (*CGetPublicKey) ID() uint32            { return 0x12 }
func (*CGetPublicKey) Name() string          { return NameGetPublicKey }
func (*CGetPublicKey) Direction() Direction  { return ClientToServer }
func (*CGetPublicKey) Decode(io.Reader) error { return nil }
func (*CGetPublicKey) Encode(io.Writer) error { return nil }

// SHandshake answers CHandshake with a result byte.
type SHandshake struct {
	Status HandshakeStatus
}

func (*SHandshake) ID() uint32           { return 0x01 }
func (*SHandshake) Name() string         { return NameHandshake }
func (*SHandshake) Direction() Direction { return ServerToClient }

func (m *SHandshake) Decode(r io.Reader) error {
	b, err := readUint8(r)
	m.Status = HandshakeStatus(b)
	return err
}

func (m *SHandshake) Encode(w io.Writer) error {
	return writeUint8(w, byte(m.Status))
}

// SGlobalData answers CGlobalData with player counters and the latest client
// version in a fixed 16-byte slot.
type SGlobalData struct {
	Status        HandshakeStatus
	TotalPlayers  uint32
	PlayersOnline uint32
	LatestVersion string
}

func (*SGlobalData) ID() uint32           { return 0x02 }
func (*SGlobalData) Name() string         { return NameGlobalData }
func (*SGlobalData) Direction() Direction { return ServerToClient }

func (m *SGlobalData) Decode(r io.Reader) error {
	b, err := readUint8(r)
	if err != nil {
		return err
	}
	m.Status = HandshakeStatus(b)
	if m.TotalPlayers, err = readUint32(r); err != nil {
		return err
	}
	if m.PlayersOnline, err = readUint32(r); err != nil {
		return err
	}
	m.LatestVersion, err = readFixedString(r, versionWidth)
	return err
}

func (m *SGlobalData) Encode(w io.Writer) error {
	if err := writeUint8(w, byte(m.Status)); err != nil {
		return err
	}
	if err := writeUint32(w, m.TotalPlayers); err != nil {
		return err
	}
	if err := writeUint32(w, m.PlayersOnline); err != nil {
		return err
	}
	return writeFixedString(w, m.LatestVersion, versionWidth)
}
