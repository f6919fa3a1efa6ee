package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing username.
	ErrUserAlreadyExists = errors.New("DUPLICATE_USERNAME")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("USER_NOT_FOUND")
	// ErrStoreUnavailable is returned when the backing database fails for any other reason.
	ErrStoreUnavailable = errors.New("DB_ERROR")
)

// NewUser is a user submitted for creation. It carries no identity yet.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// User is a stored user record.
type User struct {
	// ID is assigned by the backing store and only ever echoed back to clients:
	// an int64 surrogate key for relational stores, an ObjectID hex string for documents.
	ID       any    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserError is a store failure tagged with its kind and the username or cause it concerns.
type UserError struct {
	Kind     error  // One of ErrUserAlreadyExists, ErrUserNotFound, ErrStoreUnavailable
	Username string // Username the operation was about, if any
	Err      error  // Underlying driver error, if any
}

// NewDuplicateUsernameError reports that username is already taken.
func NewDuplicateUsernameError(username string, err error) *UserError {
	return &UserError{Kind: ErrUserAlreadyExists, Username: username, Err: err}
}

// NewUserNotFoundError reports that no user is stored under username.
func NewUserNotFoundError(username string, err error) *UserError {
	return &UserError{Kind: ErrUserNotFound, Username: username, Err: err}
}

// NewStoreUnavailableError reports a backend failure.
func NewStoreUnavailableError(username string, err error) *UserError {
	return &UserError{Kind: ErrStoreUnavailable, Username: username, Err: err}
}

// Error renders the machine-readable form sent to clients,
// e.g. "USER_NOT_FOUND: bob" or "DB_ERROR: connection refused".
func (e *UserError) Error() string {
	if errors.Is(e.Kind, ErrStoreUnavailable) {
		if e.Err == nil {
			return e.Kind.Error()
		}

		return e.Kind.Error() + ": " + e.Err.Error()
	}

	return e.Kind.Error() + ": " + e.Username
}

// Unwrap exposes both the kind and the driver error to errors.Is and errors.As.
func (e *UserError) Unwrap() []error {
	errs := make([]error, 0, 2)

	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}
