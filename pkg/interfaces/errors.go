package interfaces

import "errors"

// Collaborator sentinel errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInviteNotFound = errors.New("friend invite not found")
	ErrInviteExists   = errors.New("friend invite already exists for this pair")
	ErrNameNotFound   = errors.New("display name not found upstream")
)
