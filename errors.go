package tableops

import (
	"errors"

	"github.com/openspm/tableops/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrPrimaryKeyRequired primary keys required
	ErrPrimaryKeyRequired = errors.New("primary key required")
	// ErrModelValueRequired model value required
	ErrModelValueRequired = errors.New("model value required")
	// ErrInvalidField invalid field
	ErrInvalidField = errors.New("invalid field")
	// ErrInvalidPage page and page size must be positive
	ErrInvalidPage = errors.New("invalid page")
	// ErrPlaceholderMismatch restriction placeholders and values differ in count
	ErrPlaceholderMismatch = errors.New("placeholder count does not match values")
	// ErrMissingRequired required field is empty
	ErrMissingRequired = errors.New("required value missing")
	// ErrValueTooLong string value exceeds the field size
	ErrValueTooLong = errors.New("value too long")
	// ErrDuplicatedKey occurs when there is a unique key constraint violation
	ErrDuplicatedKey = errors.New("duplicated key not allowed")
	// ErrForeignKeyViolated occurs when there is a foreign key constraint violation
	ErrForeignKeyViolated = errors.New("violates foreign key constraint")
	// ErrInvalidDB invalid db
	ErrInvalidDB = errors.New("invalid db")
)
