package domain

import "errors"

var (
	// Autenticação
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid session token")

	// Transferência (na ordem em que são validados)
	ErrInvalidAmount       = errors.New("amount is not a valid number")
	ErrInvalidPrecision    = errors.New("amount can have at most 2 decimal places")
	ErrBelowMinimum        = errors.New("amount is below the minimum of 1.00")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrSelfTransfer        = errors.New("cannot transfer to yourself")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Armazenamento
	ErrReadFailure     = errors.New("durable state is unreadable")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// ErrorKind agrupa os erros de domínio na taxonomia usada pelos handlers.
type ErrorKind string

const (
	KindAuth     ErrorKind = "auth"
	KindTransfer ErrorKind = "transfer"
	KindStorage  ErrorKind = "storage"
	KindUnknown  ErrorKind = "unknown"
)

// Kind classifica err. Erros embrulhados com %w também são reconhecidos.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return KindAuth
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidPrecision),
		errors.Is(err, ErrBelowMinimum),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrInsufficientBalance):
		return KindTransfer
	case errors.Is(err, ErrReadFailure):
		return KindStorage
	default:
		return KindUnknown
	}
}
