package auth

import "errors"

// Authentication errors.
var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotAdmin indicates valid credentials for an account without admin rights.
	ErrNotAdmin = errors.New("user is not an admin")

	// ErrUserExists indicates the username is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUnauthenticated indicates a missing, unknown or expired session token.
	ErrUnauthenticated = errors.New("not authenticated")

	ErrEmptyUsername = errors.New("username is required")
	ErrEmptyPassword = errors.New("password is required")
)

// IsUnauthenticated returns true if the caller has no valid session or credentials.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrInvalidCredentials)
}

// IsForbidden returns true if the caller is known but not allowed in.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrNotAdmin)
}
