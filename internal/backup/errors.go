package backup

import (
	"fmt"
)

// BackupError represents errors that occur during backup operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeConfig      BackupErrorType = "CONFIG_ERROR"
	BackupErrorTypeCredentials BackupErrorType = "CREDENTIALS_ERROR"
	BackupErrorTypeArchive     BackupErrorType = "ARCHIVE_ERROR"
	BackupErrorTypeDump        BackupErrorType = "DUMP_ERROR"
	BackupErrorTypeSnapshot    BackupErrorType = "SNAPSHOT_ERROR"
	BackupErrorTypeStorage     BackupErrorType = "STORAGE_ERROR"
	BackupErrorTypeCompression BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeTool        BackupErrorType = "TOOL_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

func NewConfigError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfig, message, cause)
}

func NewCredentialsError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCredentials, message, cause)
}

func NewArchiveError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeArchive, message, cause)
}

func NewDumpError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDump, message, cause)
}

func NewSnapshotError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeSnapshot, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorage, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewToolError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeTool, message, cause)
}
