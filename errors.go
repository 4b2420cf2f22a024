package hallpass

import "errors"

var (
	// ErrStoreRequired is returned by NewEngine when no store is configured.
	ErrStoreRequired = errors.New("hallpass: store is required")

	// ErrInvalidPrincipal is returned when a principal reference is
	// internally inconsistent (wrong kind, missing ID, ID on Anyone).
	ErrInvalidPrincipal = errors.New("hallpass: invalid principal reference")

	// ErrUnknownGlobalPermission is returned when a global grant names a key
	// outside the closed global permission set.
	ErrUnknownGlobalPermission = errors.New("hallpass: unknown global permission key")

	// ErrInvalidProjectPermission is returned when a project grant names an
	// unusable permission key (empty or padded).
	ErrInvalidProjectPermission = errors.New("hallpass: invalid project permission key")
)
