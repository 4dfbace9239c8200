package authz

import "errors"

// Typed rejection reasons. Handlers match these with errors.Is so the
// client sees a specific reason code rather than a generic failure.
var (
	// ErrPermissionDenied is returned when Decide denies an action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLastAdmin is returned when an edit would remove the admin role
	// from the only remaining admin account.
	ErrLastAdmin = errors.New("cannot remove the last admin")

	// ErrSelfBlock is returned when an actor tries to block their own
	// account.
	ErrSelfBlock = errors.New("cannot block own account")
)
