package domain

import "errors"

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrConfiguration      = errors.New("configuration error")
	ErrRemoteDelivery     = errors.New("remote delivery error")
	ErrStorage            = errors.New("storage error")
	ErrNotFound           = errors.New("not found")
)

// Error pairs one of the kinds above with a detail that is safe to show to
// API clients. Err, when set, is the underlying cause.
type Error struct {
	Kind   error
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidPhoneNumber(detail string, cause error) error {
	return &Error{Kind: ErrInvalidPhoneNumber, Detail: detail, Err: cause}
}

func ConfigurationError(detail string) error {
	return &Error{Kind: ErrConfiguration, Detail: detail}
}

func RemoteDeliveryError(detail string, cause error) error {
	return &Error{Kind: ErrRemoteDelivery, Detail: detail, Err: cause}
}

func StorageError(detail string, cause error) error {
	return &Error{Kind: ErrStorage, Detail: detail, Err: cause}
}

// Detail returns the client-facing text of err if it is an *Error, or
// fallback otherwise.
func Detail(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return fallback
}
