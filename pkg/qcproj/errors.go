package qcproj

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrMalformedFile indicates a project file with a bad magic number, a truncated
	// record or an invalid field encoding
	ErrMalformedFile = errors.New("malformed project file")

	// ErrUnsupportedVersion indicates data stamped with a compiler version newer than this reader
	ErrUnsupportedVersion = errors.New("unsupported compiler version")

	// ErrUnresolvedExtension indicates no installed extension handles a resource type/loader pair
	ErrUnresolvedExtension = errors.New("extension not installed")

	// ErrDuplicateCapabilityRegistration indicates two extensions claim the same resource type/loader pair
	ErrDuplicateCapabilityRegistration = errors.New("duplicate capability registration")

	// ErrIDGenerationExhausted indicates the random source could not produce an identifier
	ErrIDGenerationExhausted = errors.New("content id generation exhausted")

	// ErrStringTooLong indicates a string field does not fit its 16-bit length prefix
	ErrStringTooLong = errors.New("string too long for project file")

	// ErrInvalidString indicates a string field that is not valid UTF-8 text
	ErrInvalidString = errors.New("string is not valid UTF-8")

	// ErrFileNotFound indicates a path is missing from a file store
	ErrFileNotFound = errors.New("file not found")

	// ErrAccessNotGranted indicates a path was never added to the future access list
	ErrAccessNotGranted = errors.New("file access not granted")

	// ErrAccessEntryNotFound indicates an access list has no entry for a path or token
	ErrAccessEntryNotFound = errors.New("access entry not found")

	// ErrUnsupportedContent indicates an extension cannot open or save the given content
	ErrUnsupportedContent = errors.New("unsupported content")
)

// FormatError describes where decoding or encoding a project file failed.
type FormatError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("project format %s failed at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnresolvedExtensionError reports a resource type/loader pair with no installed extension
type UnresolvedExtensionError struct {
	ResourceTypeID uint16
	LoaderID       uint16
}

func (e *UnresolvedExtensionError) Error() string {
	return fmt.Sprintf("%v: resource type %d, loader %d", ErrUnresolvedExtension, e.ResourceTypeID, e.LoaderID)
}

func (e *UnresolvedExtensionError) Unwrap() error {
	return ErrUnresolvedExtension
}

// DuplicateCapabilityError reports an extension registered over an already claimed compound key
type DuplicateCapabilityError struct {
	ResourceTypeID uint16
	LoaderID       uint16
	Existing       string
	Rejected       string
}

func (e *DuplicateCapabilityError) Error() string {
	return fmt.Sprintf("%v: resource type %d, loader %d already claimed by %q, rejected %q",
		ErrDuplicateCapabilityRegistration, e.ResourceTypeID, e.LoaderID, e.Existing, e.Rejected)
}

func (e *DuplicateCapabilityError) Unwrap() error {
	return ErrDuplicateCapabilityRegistration
}

// ProjectError represents an error related to saving or loading a project file
type ProjectError struct {
	Path string
	Op   string
	Err  error
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *ProjectError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to file store operations
type StorageError struct {
	Backend string
	Path    string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for %s on backend %s: %v", e.Op, e.Path, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
