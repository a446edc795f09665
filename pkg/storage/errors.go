package storage

import "errors"

// Standard storage errors.
//
// These errors provide a consistent way to indicate failure conditions across
// all storage operations. The web layer checks for them with errors.Is and
// maps them to HTTP responses; nothing below this package ever panics on
// adversarial input.
//
// Error Wrapping:
// Operations wrap these sentinels with additional context:
//
//	if !info.Mode().IsRegular() {
//	    return fmt.Errorf("download %q: %w", rel, ErrNotAFile)
//	}
var (
	// ErrPolicyDenied indicates the operation is forbidden by the configured
	// privilege mode. This is distinct from "not found" and "bad input": the
	// request was well-formed, the server is just not running in a mode that
	// permits it.
	//
	// HTTP mapping: 403 Forbidden
	ErrPolicyDenied = errors.New("operation not permitted by server policy")

	// ErrNotFound indicates the resolved target does not exist.
	//
	// Traversal attempts also surface as ErrNotFound from the must-exist
	// resolvers: the sanitized path lands somewhere inside the root that has
	// nothing at it. Callers get no signal distinguishing "you escaped and we
	// stopped you" from "no such file".
	//
	// HTTP mapping: 404 Not Found
	ErrNotFound = errors.New("file or folder not found")

	// ErrNotADirectory indicates the resolved path exists but is not a
	// directory (or does not exist at all) where a directory was required.
	//
	// HTTP mapping: 404 Not Found
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotAFile indicates the resolved path exists but is a directory where
	// a regular file was required.
	//
	// HTTP mapping: 404 Not Found
	ErrNotAFile = errors.New("not a regular file")

	// ErrInvalidName indicates an empty or whitespace-only name was supplied
	// to an operation that creates an entry (upload, create folder), or a name
	// that sanitizes down to nothing.
	//
	// HTTP mapping: 400 Bad Request
	ErrInvalidName = errors.New("invalid name")
)
