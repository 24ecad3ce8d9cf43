package signin

import "fmt"

// AuthError marks authentication-specific failures (provider denials,
// cancelled consent, broken callbacks) so the outer error interceptor can
// classify them without string-matching internals.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
