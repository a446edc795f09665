package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathResolver turns untrusted, caller-supplied path strings into filesystem
// paths that are guaranteed to stay inside a single storage root.
//
// Every inbound path is treated as adversarial. Resolution works entirely
// through per-segment sanitization, normalization, and a prefix containment
// check - it never consults the filesystem's own traversal semantics, so
// symlinks or platform quirks cannot widen the reachable tree.
//
// Fail-Closed Contract:
// Resolve never returns an error. Input that tries to escape the root
// (".." segments, absolute-path injection, null bytes, control characters)
// degrades to the storage root itself. Traversal attempts are expected
// adversarial input, not exceptional program states, and probing must not
// receive distinguishable feedback.
//
// Thread Safety:
// The resolver is immutable after construction and safe for concurrent use.
type PathResolver struct {
	root string
}

// NewPathResolver creates a resolver confined to the given root directory.
//
// The root is made absolute and normalized once at construction; it never
// changes afterwards. The directory is created if it does not exist.
//
// Parameters:
//   - root: Directory all resolved paths will be confined to
//
// Returns:
//   - *PathResolver: Initialized resolver
//   - error: Returns error if the root cannot be made absolute or created
func NewPathResolver(root string) (*PathResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	abs = filepath.Clean(abs)

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &PathResolver{root: abs}, nil
}

// Root returns the absolute storage root directory.
func (p *PathResolver) Root() string {
	return p.root
}

// Resolve maps a raw relative path onto an absolute path inside the root.
//
// The raw path is split on "/", empty segments are dropped, and each
// remaining segment is run through SanitizeName. Segments that sanitize to
// nothing (including "." and "..") vanish rather than traverse. The joined
// result is normalized and checked for containment; anything that still
// lands outside the root collapses to the root itself.
//
// Resolve performs no I/O and cannot fail.
func (p *PathResolver) Resolve(raw string) string {
	parts := p.sanitizeSegments(raw)
	if len(parts) == 0 {
		return p.root
	}

	full := filepath.Clean(filepath.Join(p.root, filepath.Join(parts...)))

	// Sanitization alone should make escapes impossible; the containment
	// check is the invariant that holds even if it does not.
	if !p.contains(full) {
		return p.root
	}

	return full
}

// CleanRel returns the sanitized, slash-separated relative form of a raw
// path. The empty string denotes the root. This is the canonical relative
// path used for listing entries and breadcrumbs.
func (p *PathResolver) CleanRel(raw string) string {
	return strings.Join(p.sanitizeSegments(raw), "/")
}

// ResolveFile resolves a raw path that must name an existing regular file.
//
// Unlike Resolve, this variant consults the filesystem: download and delete
// need to distinguish "nothing there" from "there, but a directory", and
// silently falling back to the root would be misleading for them.
//
// Returns:
//   - string: Absolute path of the file
//   - error: ErrNotFound if nothing exists at the resolved path,
//     ErrNotAFile if the path exists but is not a regular file,
//     or a wrapped I/O error for other stat failures
func (p *PathResolver) ResolveFile(raw string) (string, error) {
	full := p.Resolve(raw)

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve %q: %w", raw, ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat %q: %w", raw, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("resolve %q: %w", raw, ErrNotAFile)
	}

	return full, nil
}

// ResolveDir resolves a raw path that must name an existing directory.
//
// Returns:
//   - string: Absolute path of the directory
//   - error: ErrNotFound if nothing exists at the resolved path,
//     ErrNotADirectory if the path exists but is not a directory,
//     or a wrapped I/O error for other stat failures
func (p *PathResolver) ResolveDir(raw string) (string, error) {
	full := p.Resolve(raw)

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve %q: %w", raw, ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat %q: %w", raw, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("resolve %q: %w", raw, ErrNotADirectory)
	}

	return full, nil
}

// sanitizeSegments splits a raw path on "/" and sanitizes each segment,
// dropping anything that collapses to the empty string.
func (p *PathResolver) sanitizeSegments(raw string) []string {
	segments := strings.Split(raw, "/")
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if safe := SanitizeName(segment); safe != "" {
			parts = append(parts, safe)
		}
	}
	return parts
}

// contains reports whether abs equals the root or is a proper descendant.
func (p *PathResolver) contains(abs string) bool {
	return abs == p.root || strings.HasPrefix(abs, p.root+string(filepath.Separator))
}

// SanitizeName collapses a single untrusted name to a token that is safe to
// place on the host filesystem.
//
// Rules:
//   - path separators ("/", "\") are treated as whitespace
//   - runs of whitespace collapse to a single underscore
//   - only ASCII letters, digits, "_", ".", "-" survive; everything else
//     (control characters, null bytes, shell metacharacters) is stripped
//   - "." and "_" are trimmed from both ends, so "." and ".." collapse to ""
//
// The result may be empty; callers must treat an empty result as an invalid
// name, never as "use the original".
func SanitizeName(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	return strings.Trim(b.String(), "._")
}
