// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is used when a command finished without error.
	CategoryNoError Category = iota
	// CategoryFormat The input is malformed: a note string, an address, an amount
	// or a value that does not fit its fixed-width encoding.
	CategoryFormat
	// CategoryNotFound The requested deposit or record does not exist
	CategoryNotFound
	// CategoryNotSupported The requested instance or functionality is not supported
	CategoryNotSupported
	// CategoryAlreadySpent The nullifier of the deposit has already been used on-chain
	CategoryAlreadySpent
	// CategoryCorruptTree The cached deposit log does not reproduce a root the contract knows
	CategoryCorruptTree
	// CategorySync Fetching events or chain state from the RPC endpoint failed
	CategorySync
	// CategoryStorage Reading or writing the event cache failed
	CategoryStorage
	// CategoryProving The proving engine failed
	CategoryProving
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryNoError:
		return "CategoryNoError"
	case CategoryFormat:
		return "CategoryFormat"
	case CategoryNotFound:
		return "CategoryNotFound"
	case CategoryNotSupported:
		return "CategoryNotSupported"
	case CategoryAlreadySpent:
		return "CategoryAlreadySpent"
	case CategoryCorruptTree:
		return "CategoryCorruptTree"
	case CategorySync:
		return "CategorySync"
	case CategoryStorage:
		return "CategoryStorage"
	case CategoryProving:
		return "CategoryProving"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		if err.Message != "" {
			return err.Message + ": " + err.Err.Error()
		}
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is implements the custom condition to check an error is equal to a service error
func (err ServiceError) Is(target error) bool {
	var other *ServiceError
	if errors.As(target, &other) {
		return other.Category == err.Category && other.Message == err.Message
	}
	return false
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// CategoryOf returns the category of the outermost ServiceError in the chain,
// CategoryGeneralError for any other non-nil error.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNoError
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Category
	}
	return CategoryGeneralError
}

// IsInternalError checks that provided error is an internal system error
// rather than a problem with the caller's input or the deposit itself.
func IsInternalError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category < CategoryCorruptTree {
		return false
	}
	return true
}

func newError(cat Category, err error, message, fallback string) error {
	if err == nil {
		err = errors.New(fallback)
	}
	return &ServiceError{
		Category: cat,
		Message:  message,
		Err:      err,
	}
}

// GeneralError returns a general service error
func GeneralError(err error) error {
	return newError(CategoryGeneralError, err, "", "internal error")
}

// FormatError returns an error with category Format
func FormatError(err error, message string) error {
	return newError(CategoryFormat, err, message, "invalid format")
}

// NotFoundError returns an error with category NotFound
func NotFoundError(err error, message string) error {
	return newError(CategoryNotFound, err, message, "not found")
}

// NotSupportedError returns an error with category NotSupported
func NotSupportedError(err error, message string) error {
	return newError(CategoryNotSupported, err, message, "not supported")
}

// AlreadySpentError returns an error with category AlreadySpent
func AlreadySpentError(err error, message string) error {
	return newError(CategoryAlreadySpent, err, message, "already spent")
}

// CorruptTreeError returns an error with category CorruptTree.
// The cache for the affected key should be discarded and rebuilt.
func CorruptTreeError(err error, message string) error {
	return newError(CategoryCorruptTree, err, message, "corrupt tree")
}

// SyncError returns an error with category Sync
func SyncError(err error, message string) error {
	return newError(CategorySync, err, message, "sync failed")
}

// StorageError returns an error with category Storage
func StorageError(err error, message string) error {
	return newError(CategoryStorage, err, message, "storage failed")
}

// ProvingError returns an error with category Proving
func ProvingError(err error, message string) error {
	return newError(CategoryProving, err, message, "proving failed")
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryFormat:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryNotSupported:
		return http.StatusNotImplemented
	case CategoryAlreadySpent:
		return http.StatusConflict
	case CategoryCorruptTree:
		return http.StatusUnprocessableEntity
	case CategorySync:
		return http.StatusBadGateway
	case CategoryStorage, CategoryProving, CategoryGeneralError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps an error to a process exit status; 0 for nil.
func ExitCode(err error) int {
	switch CategoryOf(err) {
	case CategoryNoError:
		return 0
	case CategoryFormat:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryNotSupported:
		return 4
	case CategoryAlreadySpent:
		return 5
	case CategoryCorruptTree:
		return 6
	case CategorySync:
		return 7
	case CategoryStorage:
		return 8
	case CategoryProving:
		return 9
	default:
		return 1
	}
}
