package nfz

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindTransport
	KindDecode
	KindBadRequest
	KindNotFound
	KindRateLimited
	KindServerError
	KindHTTPError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindBadRequest:
		return "bad request"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindServerError:
		return "server error"
	case KindHTTPError:
		return "http error"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest}
	ErrTransport      = &Error{Kind: KindTransport}
	ErrDecode         = &Error{Kind: KindDecode}
	ErrBadRequest     = &Error{Kind: KindBadRequest}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrServerError    = &Error{Kind: KindServerError}
	ErrHTTPError      = &Error{Kind: KindHTTPError}
)

// Error is returned by every Client operation.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("nfz api: %s (status %d): %v", e.Kind, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("nfz api: %s (status %d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("nfz api: %s: %v", e.Kind, e.Err)
	default:
		return "nfz api: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Status == 0 && t.Err == nil
}

// Retryable reports whether another attempt can succeed without changing the
// request.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindRateLimited, KindServerError:
		return true
	default:
		return false
	}
}

// Message is the Polish text shown to end users.
func (e *Error) Message() string {
	switch e.Kind {
	case KindInvalidRequest:
		return "Nieprawidłowe parametry zapytania"
	case KindTransport:
		return "Brak połączenia z serwerem NFZ"
	case KindDecode:
		if e.Err != nil {
			return "Błąd dekodowania danych: " + e.Err.Error()
		}
		return "Błąd dekodowania danych"
	case KindBadRequest:
		return "Nieprawidłowe zapytanie"
	case KindNotFound:
		return "Nie znaleziono danych"
	case KindRateLimited:
		return "Zbyt wiele zapytań. Spróbuj ponownie za chwilę."
	case KindServerError:
		return fmt.Sprintf("Błąd serwera (%d). Spróbuj ponownie później.", e.Status)
	default:
		return fmt.Sprintf("Błąd HTTP (%d)", e.Status)
	}
}

// statusError maps a non-2xx status to its error kind. It returns nil for 2xx.
func statusError(status int, body string) *Error {
	var kind Kind
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest:
		kind = KindBadRequest
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500 && status < 600:
		kind = KindServerError
	default:
		kind = KindHTTPError
	}

	e := &Error{Kind: kind, Status: status}
	if body != "" {
		e.Err = errors.New(body)
	}
	return e
}
