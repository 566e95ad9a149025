package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	// Capture device errors
	ErrPermissionDenied  ErrorCode = "PERMISSION_DENIED"
	ErrCaptureStart      ErrorCode = "CAPTURE_START_FAILED"
	ErrCaptureFinalize   ErrorCode = "CAPTURE_FINALIZE_FAILED"
	ErrDeviceUnavailable ErrorCode = "DEVICE_UNAVAILABLE"

	// Catalog and file errors
	ErrDeleteFailed         ErrorCode = "DELETE_FAILED"
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"
	ErrListFailed           ErrorCode = "LIST_FAILED"
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"
	ErrAccessDenied         ErrorCode = "ACCESS_DENIED"
	ErrInvalidFilePath      ErrorCode = "INVALID_FILE_PATH"

	// Backup errors
	ErrBackupFailed        ErrorCode = "BACKUP_FAILED"
	ErrBackupNotConfigured ErrorCode = "BACKUP_NOT_CONFIGURED"
	ErrInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrS3BucketNotFound    ErrorCode = "S3_BUCKET_NOT_FOUND"
	ErrS3ObjectNotFound    ErrorCode = "S3_OBJECT_NOT_FOUND"
	ErrS3AccessDenied      ErrorCode = "S3_ACCESS_DENIED"

	// Network and connectivity errors
	ErrNetworkError        ErrorCode = "NETWORK_ERROR"
	ErrConnectionTimeout   ErrorCode = "CONNECTION_TIMEOUT"
	ErrOperationCanceled   ErrorCode = "OPERATION_CANCELED"
	ErrDNSResolutionFailed ErrorCode = "DNS_RESOLUTION_FAILED"

	// Validation and configuration errors
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	ErrInvalidConfig      ErrorCode = "INVALID_CONFIG"

	// Application state errors
	ErrInvalidState ErrorCode = "INVALID_STATE"

	// Generic errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
	ErrUnknownError  ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents an application-specific error with user-friendly messaging
type AppError struct {
	Code            ErrorCode              `json:"code"`
	Message         string                 `json:"message"`
	UserMessage     string                 `json:"user_message"`
	Cause           error                  `json:"-"`
	Context         map[string]interface{} `json:"context,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	Recoverable     bool                   `json:"recoverable"`
	SuggestedAction string                 `json:"suggested_action,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRecoverable returns whether the user can fix the condition and repeat the action
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// GetSuggestedAction returns a suggested action for the user
func (e *AppError) GetSuggestedAction() string {
	return e.SuggestedAction
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:            code,
		Message:         message,
		UserMessage:     getUserFriendlyMessage(code, message),
		Cause:           cause,
		Context:         make(map[string]interface{}),
		Timestamp:       time.Now(),
		Recoverable:     isRecoverable(code),
		SuggestedAction: getSuggestedAction(code),
	}
}

// NewAppErrorWithContext creates a new application error with context
func NewAppErrorWithContext(code ErrorCode, message string, cause error, context map[string]interface{}) *AppError {
	err := NewAppError(code, message, cause)
	if context != nil {
		err.Context = context
	}
	return err
}

// WrapError wraps an existing error with application error context
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the original code if not specified
	var appErr *AppError
	if stderrors.As(err, &appErr) && code == "" {
		return appErr
	}

	return NewAppError(code, message, err)
}

// HasCode reports whether err is, or wraps, an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// CodeOf returns the code of the outermost AppError in err's chain, or "" when there is none
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ClassifyError attempts to classify a generic error into an AppError
func ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewAppError(ErrConnectionTimeout, "Operation timed out", err)
	case stderrors.Is(err, context.Canceled):
		return NewAppError(ErrOperationCanceled, "Operation was canceled", err)
	case stderrors.Is(err, fs.ErrNotExist):
		return NewAppError(ErrFileNotFound, "File not found", err)
	case stderrors.Is(err, fs.ErrPermission):
		return NewAppError(ErrAccessDenied, "Permission denied", err)
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return NewAppError(ErrDNSResolutionFailed, "Failed to resolve DNS", err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewAppError(ErrConnectionTimeout, "Network operation timed out", err)
		}
		return NewAppError(ErrNetworkError, "Network error occurred", err)
	}

	errStr := strings.ToLower(err.Error())

	// S3 service errors surface as API error codes in the message
	switch {
	case strings.Contains(errStr, "nosuchbucket"):
		return NewAppError(ErrS3BucketNotFound, "S3 bucket not found", err)
	case strings.Contains(errStr, "nosuchkey") || strings.Contains(errStr, "notfound"):
		return NewAppError(ErrS3ObjectNotFound, "Clip not found in S3", err)
	case strings.Contains(errStr, "accessdenied"):
		return NewAppError(ErrS3AccessDenied, "Access denied to AWS S3", err)
	case strings.Contains(errStr, "invalidaccesskeyid") || strings.Contains(errStr, "signaturedoesnotmatch"):
		return NewAppError(ErrInvalidCredentials, "Invalid AWS credentials", err)
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return NewAppError(ErrNetworkError, "Network error occurred", err)
	}

	return NewAppError(ErrUnknownError, "An unexpected error occurred", err)
}

// getUserFriendlyMessage returns a user-friendly message for the error code
func getUserFriendlyMessage(code ErrorCode, originalMessage string) string {
	switch code {
	case ErrPermissionDenied:
		return "Camera access was refused. Grant permission to start recording."
	case ErrCaptureStart:
		return "The camera could not start recording."
	case ErrCaptureFinalize:
		return "The recording could not be saved."
	case ErrDeviceUnavailable:
		return "No usable camera was found."
	case ErrDeleteFailed:
		return "Failed to delete the clip."
	case ErrConfirmationRequired:
		return "Deleting a clip must be confirmed."
	case ErrListFailed:
		return "The clip folder could not be read."
	case ErrFileNotFound:
		return "The clip could not be found. It may have been moved or deleted."
	case ErrAccessDenied:
		return "You don't have permission to change this clip."
	case ErrBackupFailed:
		return "Failed to back up the clip. Please check your internet connection and try again."
	case ErrBackupNotConfigured:
		return "Clip backup is not configured."
	case ErrInvalidCredentials:
		return "Your AWS credentials are invalid. Please check your access key and secret key."
	case ErrS3BucketNotFound:
		return "The backup bucket could not be found. Please check your configuration."
	case ErrS3ObjectNotFound:
		return "The clip was not found in the backup bucket."
	case ErrS3AccessDenied:
		return "Access to the backup bucket was denied. Please check your permissions."
	case ErrNetworkError:
		return "A network error occurred. Please check your internet connection and try again."
	case ErrConnectionTimeout:
		return "The connection timed out. Please check your internet connection and try again."
	case ErrOperationCanceled:
		return "The operation was canceled."
	case ErrInvalidInput:
		return "The provided input is invalid. Please check your input and try again."
	case ErrConfigurationError, ErrInvalidConfig:
		return "There's a configuration error. Please check your settings."
	case ErrInvalidState:
		return "The operation cannot be performed in the current state."
	default:
		if originalMessage != "" {
			return originalMessage
		}
		return "An unexpected error occurred. Please try again."
	}
}

// isRecoverable determines if the user can resolve the error and repeat the action
func isRecoverable(code ErrorCode) bool {
	recoverableErrors := map[ErrorCode]bool{
		ErrPermissionDenied:  true,
		ErrNetworkError:      true,
		ErrConnectionTimeout: true,
		ErrDeleteFailed:      true,
		ErrBackupFailed:      true,
	}
	return recoverableErrors[code]
}

// getSuggestedAction returns a suggested action for the user
func getSuggestedAction(code ErrorCode) string {
	actions := map[ErrorCode]string{
		ErrPermissionDenied:    "Click 'Grant Permission' and allow camera access",
		ErrCaptureFinalize:     "Check free disk space and record again",
		ErrDeviceUnavailable:   "Connect a camera or check the capture settings",
		ErrDeleteFailed:        "Refresh the library and try again",
		ErrFileNotFound:        "Refresh the library",
		ErrBackupNotConfigured: "Go to Settings and enter an S3 bucket",
		ErrInvalidCredentials:  "Go to Settings and update your AWS credentials",
		ErrS3BucketNotFound:    "Go to Settings and verify your S3 bucket configuration",
		ErrNetworkError:        "Check your internet connection and try again",
		ErrConnectionTimeout:   "Check your internet connection and try again",
		ErrConfigurationError:  "Go to Settings and check your configuration",
	}
	return actions[code]
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	if HasCode(err, ErrConnectionTimeout) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return stderrors.Is(err, context.DeadlineExceeded)
}

// IsCanceled checks if an error is due to context cancellation
func IsCanceled(err error) bool {
	return HasCode(err, ErrOperationCanceled) || stderrors.Is(err, context.Canceled)
}

// IsNetworkError reports whether err comes from connectivity problems
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	switch ClassifyError(err).Code {
	case ErrNetworkError, ErrConnectionTimeout, ErrDNSResolutionFailed:
		return true
	}
	return false
}
