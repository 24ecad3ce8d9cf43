package reconciler

// State identifies which branch of the external-login flow an operation
// ended on.
type State int

const (
	// StateSignedIn is terminal: a session was issued, redirect to the
	// return URL.
	StateSignedIn State = iota

	// StateLockedOut is terminal: the matched account is locked out and no
	// further attempts are made.
	StateLockedOut

	// StateCollectEmail asks the user to confirm an email address before an
	// account can be created or linked. Not an error.
	StateCollectEmail

	// StatePendingConfirmation is terminal: the account was created but
	// policy requires a confirmed email before sign-in.
	StatePendingConfirmation
)

// Outcome is the result of one reconciliation step. RedirectURL is set for
// StateSignedIn; Email carries the prefill candidate (StateCollectEmail) or
// the registered address (StatePendingConfirmation); Errors carries
// field-less validation messages for a re-rendered form.
type Outcome struct {
	State       State
	RedirectURL string
	Email       string
	Provider    string
	Errors      []string
}
