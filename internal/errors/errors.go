package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeRemoteUnavailable ErrCode = "REMOTE_UNAVAILABLE"
	ErrCodeMirrorOpFailed    ErrCode = "MIRROR_OP_FAILED"
	ErrCodeConfigInvalid     ErrCode = "CONFIG_INVALID"
	ErrCodeStorage           ErrCode = "STORAGE_ERROR"
	ErrCodeNotFound          ErrCode = "NOT_FOUND"
	ErrCodeBadRequest        ErrCode = "BAD_REQUEST"
	ErrCodeConflict          ErrCode = "CONFLICT"
	ErrCodeInternal          ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Repo    string // repository the error relates to, if any
	Path    string // local mirror path, if any
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Repo != "" {
		msg = fmt.Sprintf("%s: %s", e.Repo, e.Message)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewRemoteUnavailableError creates an error for a failed repository listing
func NewRemoteUnavailableError(account string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRemoteUnavailable,
		Message: fmt.Sprintf("unable to list repositories of %q", account),
		Err:     err,
	}
}

// NewMirrorOpError creates an error for a failed mirror step of repo
func NewMirrorOpError(repo, op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeMirrorOpFailed,
		Message: op + " failed",
		Repo:    repo,
		Err:     err,
	}
}

// NewMirrorPathError creates an error for a failed mirror step on the
// mirror at path, before the repository name is known
func NewMirrorPathError(path, op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeMirrorOpFailed,
		Message: op + " failed",
		Path:    path,
		Err:     err,
	}
}

// WithRepo returns err with repo recorded on its AppError when none is set
func WithRepo(err error, repo string) error {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Repo != "" {
		return err
	}
	tagged := *appErr
	tagged.Repo = repo
	return &tagged
}

// NewConfigError creates a configuration error for field
func NewConfigError(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfigInvalid,
		Message: field + ": " + message,
	}
}

// NewStorageError creates a storage error
func NewStorageError(repo, message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: message,
		Repo:    repo,
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func hasCode(err error, code ErrCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRemoteUnavailable checks if the error is a listing failure
func IsRemoteUnavailable(err error) bool {
	return hasCode(err, ErrCodeRemoteUnavailable)
}

// IsMirrorOpFailed checks if the error is a mirror step failure
func IsMirrorOpFailed(err error) bool {
	return hasCode(err, ErrCodeMirrorOpFailed)
}

// IsConfigInvalid checks if the error is a configuration error
func IsConfigInvalid(err error) bool {
	return hasCode(err, ErrCodeConfigInvalid)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}
