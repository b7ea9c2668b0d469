package metadata

import "github.com/juju/errors"

// Catalog error kinds. Callers test them with errors.Is; DAOs and providers
// wrap them with fmt.Errorf("...: %w", ...) so the kind survives annotation.
const (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.ConstError("metadata not found")

	// ErrIDNotFound is returned when a lookup by id matches nothing.
	ErrIDNotFound = errors.ConstError("metadata id not found")

	// ErrNameNotFound is returned when a lookup by name matches nothing.
	ErrNameNotFound = errors.ConstError("metadata name not found")

	// ErrAlreadyExists is returned when an insert collides with an
	// existing record.
	ErrAlreadyExists = errors.ConstError("metadata already exists")

	// ErrTableNameAlreadyExists refines ErrAlreadyExists for table
	// registration racing on the same name.
	ErrTableNameAlreadyExists = errors.ConstError("table name already exists")

	// ErrInvalidParameter is returned for malformed input and for reads
	// that matched nothing where the contract requires at least one row.
	ErrInvalidParameter = errors.ConstError("invalid parameter")

	// ErrNotSupported is returned for lookup keys a DAO does not index.
	ErrNotSupported = errors.ConstError("not supported")

	// ErrInternal is returned for session misuse, such as committing
	// without an open transaction.
	ErrInternal = errors.ConstError("internal error")

	// ErrEndOfRow reports cursor exhaustion.
	ErrEndOfRow = errors.ConstError("end of row")
)

// NotFoundByKey maps a missed lookup to the taxonomy kind matching its key.
func NotFoundByKey(key Key) error {
	switch key {
	case KeyID:
		return ErrIDNotFound
	case KeyName:
		return ErrNameNotFound
	default:
		return ErrNotFound
	}
}
