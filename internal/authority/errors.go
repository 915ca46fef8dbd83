package authority

// Configuration error codes reported by this package.
const (
	CodeInvalidAuthority        = "invalid_authority"
	CodeValidationNotSupported  = "authority_validation_not_supported"
	CodeAuthorityNotInValidList = "authority_not_in_valid_list"
)

// Error is a configuration problem with an authority. It is never retried.
type Error struct {
	Code    string
	Message string
	Err     error
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
