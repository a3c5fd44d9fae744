package codes

import "errors"

// ErrorCode represents structured bridge errors reported back to command callers.
type ErrorCode struct {
	Numeric int32
	Symbol  string
	Message string
}

var (
	// ErrNotConnected indicates a channel command issued before connect.
	ErrNotConnected = ErrorCode{Numeric: 40901, Symbol: "NOT_CONNECTED", Message: "no socket connection"}
	// ErrInvalidChannelHandle indicates an unknown or already left channel handle.
	ErrInvalidChannelHandle = ErrorCode{Numeric: 40401, Symbol: "INVALID_CHANNEL_HANDLE", Message: "invalid channel handle"}
	// ErrInvalidCommand indicates a malformed or unknown command.
	ErrInvalidCommand = ErrorCode{Numeric: 41001, Symbol: "INVALID_COMMAND", Message: "invalid command"}
	// ErrUnavailable indicates the bridge loop is stopped.
	ErrUnavailable = ErrorCode{Numeric: 50301, Symbol: "BRIDGE_UNAVAILABLE", Message: "bridge is not running"}
	// ErrInternal indicates unknown failure.
	ErrInternal = ErrorCode{Numeric: 50001, Symbol: "INTERNAL_ERROR", Message: "internal error"}
)

// Registry exposes a static list for validation or docs.
var Registry = []ErrorCode{
	ErrNotConnected,
	ErrInvalidChannelHandle,
	ErrInvalidCommand,
	ErrUnavailable,
	ErrInternal,
}

// Error pairs an ErrorCode with the underlying error.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.Message
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches code to err. A nil err yields nil.
func Wrap(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Of returns the code attached to err, or ErrInternal when none is.
func Of(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrInternal
}
