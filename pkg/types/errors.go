package types

// CodedError is a recoverable protocol failure reported to the client over
// the error channel. Code is a stable machine-readable token; Detail usually
// names the offending identity.
type CodedError struct {
	Code   string
	Detail string
}

func (e *CodedError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ":" + e.Detail
}

// NewCodedError builds a CodedError from a code and optional detail.
func NewCodedError(code, detail string) *CodedError {
	return &CodedError{Code: code, Detail: detail}
}

// Error codes reported on the error channel.
const (
	CodeMalformedPacket     = "MALFORMED_PACKET"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeInviteNotFound      = "INVITE_NOT_FOUND"
	CodeInviteExists        = "INVITE_ALREADY_EXISTS"
	CodeAlreadyFriends      = "ALREADY_FRIENDS"
	CodeUserBlocked         = "USER_BLOCKED"
	CodeAlreadyBlocked      = "ALREADY_BLOCKED"
	CodeNotBlocked          = "NOT_BLOCKED"
	CodeUnknownChannel      = "UNKNOWN_CHANNEL"
	CodeUnknownMethod       = "UNKNOWN_METHOD"
	CodeRateLimited         = "RATE_LIMITED"
	CodeHandshakeFailed     = "HANDSHAKE_FAILED"
	CodeInternalError       = "INTERNAL_ERROR"
)
