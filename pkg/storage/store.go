package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/stashbox/stashd/internal/logger"
	"github.com/stashbox/stashd/pkg/metrics"
)

// Store orchestrates all file operations against the storage root.
//
// Every operation first consults the configured privilege mode, then resolves
// untrusted paths through the PathResolver, and only then touches the
// filesystem. The store implements no locking of its own: it relies on the
// filesystem's per-operation atomicity and accepts races across concurrent
// requests (last write wins, a delete racing a read degrades to ErrNotFound).
//
// Thread Safety:
// The store is immutable after construction and safe for concurrent use.
type Store struct {
	resolver *PathResolver
	policy   Privilege
	lister   *Lister
	archiver *Archiver
	metrics  metrics.StorageMetrics
}

// NewStore creates a store over the given resolver with the given privilege
// mode.
//
// Parameters:
//   - resolver: Root-confined path resolver
//   - policy: Privilege mode, fixed for the process lifetime
//   - archiver: Archiver used for folder downloads
//   - m: Storage metrics sink; nil selects a no-op implementation
func NewStore(resolver *PathResolver, policy Privilege, archiver *Archiver, m metrics.StorageMetrics) *Store {
	if m == nil {
		m = metrics.NewStorageMetrics()
	}
	return &Store{
		resolver: resolver,
		policy:   policy,
		lister:   NewLister(resolver),
		archiver: archiver,
		metrics:  m,
	}
}

// Resolver returns the store's path resolver.
func (s *Store) Resolver() *PathResolver {
	return s.resolver
}

// Policy returns the privilege mode the store enforces.
func (s *Store) Policy() Privilege {
	return s.policy
}

// List enumerates the files and folders directly under rawDir.
//
// Listing is never privilege-gated: reading the directory structure is
// allowed in every mode.
func (s *Store) List(ctx context.Context, rawDir string) (files []FileEntry, folders []FolderEntry, err error) {
	defer s.record("list", time.Now(), &err)
	files, folders, err = s.lister.List(ctx, rawDir)
	return files, folders, err
}

// Upload stores the bytes from r as a file named filename under rawDir,
// overwriting any existing file of the same name (last write wins, no
// versioning).
//
// The filename is sanitized independently of the directory path; the stored
// name may therefore differ from the requested one, and the caller receives
// the name actually used.
//
// Returns:
//   - string: The stored filename (post-sanitization)
//   - error: ErrPolicyDenied if uploads are not permitted,
//     ErrInvalidName if the filename is empty or sanitizes to nothing,
//     or a wrapped I/O error
func (s *Store) Upload(ctx context.Context, rawDir, filename string, r io.Reader) (stored string, err error) {
	defer s.record("upload", time.Now(), &err)

	if !s.policy.CanUpload() {
		return "", fmt.Errorf("upload: %w", ErrPolicyDenied)
	}

	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("upload: empty filename: %w", ErrInvalidName)
	}
	stored = SanitizeName(filename)
	if stored == "" {
		return "", fmt.Errorf("upload: filename %q sanitizes to nothing: %w", filename, ErrInvalidName)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.resolver.Resolve(rawDir), stored)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %q: %w", stored, err)
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Don't leave a truncated file behind.
		os.Remove(dst)
		return "", fmt.Errorf("failed to write %q: %w", stored, err)
	}

	s.metrics.RecordBytesTransferred("in", written)
	logger.Debug("Stored %d bytes as %q", written, stored)

	return stored, nil
}

// Download opens the regular file named by rawPath for reading.
//
// The returned reader is seekable (it is backed by the file itself) and must
// be closed by the caller. The FileEntry carries the name, size and modified
// time observed at open.
//
// Returns:
//   - io.ReadSeekCloser: Open file (must be closed by caller)
//   - FileEntry: Metadata for the file
//   - error: ErrPolicyDenied if downloads are not permitted, ErrNotFound /
//     ErrNotAFile from resolution, or a wrapped I/O error
func (s *Store) Download(ctx context.Context, rawPath string) (rc io.ReadSeekCloser, entry FileEntry, err error) {
	defer s.record("download", time.Now(), &err)

	if !s.policy.CanDownload() {
		return nil, FileEntry{}, fmt.Errorf("download: %w", ErrPolicyDenied)
	}

	if err := ctx.Err(); err != nil {
		return nil, FileEntry{}, err
	}

	full, err := s.resolver.ResolveFile(rawPath)
	if err != nil {
		return nil, FileEntry{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted between resolve and open.
			return nil, FileEntry{}, fmt.Errorf("download %q: %w", rawPath, ErrNotFound)
		}
		return nil, FileEntry{}, fmt.Errorf("failed to open %q: %w", rawPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, FileEntry{}, fmt.Errorf("failed to stat %q: %w", rawPath, err)
	}

	s.metrics.RecordBytesTransferred("out", info.Size())

	return f, FileEntry{
		Name:     info.Name(),
		Size:     info.Size(),
		Modified: info.ModTime(),
		Path:     s.resolver.CleanRel(rawPath),
	}, nil
}

// DownloadFolder packages the directory named by rawPath into a zip archive.
//
// The caller owns the returned archive and must Remove it after streaming.
//
// Returns:
//   - *Archive: Handle to the finished archive in the scratch location
//   - error: ErrPolicyDenied if downloads are not permitted, ErrNotFound /
//     ErrNotADirectory from resolution, or a context/I/O error
func (s *Store) DownloadFolder(ctx context.Context, rawPath string) (archive *Archive, err error) {
	defer s.record("download_folder", time.Now(), &err)

	if !s.policy.CanDownload() {
		return nil, fmt.Errorf("download folder: %w", ErrPolicyDenied)
	}

	dir, err := s.resolver.ResolveDir(rawPath)
	if err != nil {
		return nil, err
	}

	archive, err = s.archiver.BuildZip(ctx, dir)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBytesTransferred("out", archive.Size)

	return archive, nil
}

// CreateFolder creates a folder named name under rawDir.
//
// Folder creation is deliberately not gated on the privilege mode: any
// authenticated caller may create folders, even in download_only or
// upload_only deployments. This matches long-standing behavior and is a
// design choice, not an oversight.
//
// The operation is idempotent: creating a folder that already exists
// succeeds silently.
//
// Returns:
//   - error: ErrInvalidName if the name is blank or sanitizes to nothing,
//     or a wrapped I/O error
func (s *Store) CreateFolder(ctx context.Context, rawDir, name string) (err error) {
	defer s.record("create_folder", time.Now(), &err)

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("create folder: empty name: %w", ErrInvalidName)
	}
	safe := SanitizeName(name)
	if safe == "" {
		return fmt.Errorf("create folder: name %q sanitizes to nothing: %w", name, ErrInvalidName)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(s.resolver.Resolve(rawDir), safe)
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", safe, err)
	}

	return nil
}

// Delete removes the file or folder named by rawPath. Files are removed
// individually; folders are removed recursively with everything beneath
// them. Deletion is not staged and not reversible.
//
// The storage root itself is never deleted: a path that resolves to the root
// (including traversal attempts that failed closed) reports ErrNotFound.
//
// Returns:
//   - error: ErrPolicyDenied if deletes are not permitted, ErrNotFound if
//     nothing exists at the resolved path, or a wrapped I/O error
func (s *Store) Delete(ctx context.Context, rawPath string) (err error) {
	defer s.record("delete", time.Now(), &err)

	if !s.policy.CanDelete() {
		return fmt.Errorf("delete: %w", ErrPolicyDenied)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	full := s.resolver.Resolve(rawPath)
	if full == s.resolver.Root() {
		return fmt.Errorf("delete %q: %w", rawPath, ErrNotFound)
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete %q: %w", rawPath, ErrNotFound)
		}
		return fmt.Errorf("failed to stat %q: %w", rawPath, err)
	}

	if info.IsDir() {
		if err := os.RemoveAll(full); err != nil {
			return fmt.Errorf("failed to delete folder %q: %w", rawPath, err)
		}
		logger.Debug("Deleted folder %q", s.resolver.CleanRel(rawPath))
		return nil
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete %q: %w", rawPath, ErrNotFound)
		}
		return fmt.Errorf("failed to delete file %q: %w", rawPath, err)
	}
	logger.Debug("Deleted file %q", s.resolver.CleanRel(rawPath))

	return nil
}

// Breadcrumb is one step of the navigation trail for a listing page.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Breadcrumbs builds the navigation trail for a raw directory path, rooted
// at the storage root.
func (s *Store) Breadcrumbs(rawDir string) []Breadcrumb {
	crumbs := []Breadcrumb{{Name: "Storage", Path: ""}}

	rel := s.resolver.CleanRel(rawDir)
	if rel == "" {
		return crumbs
	}

	current := ""
	for _, part := range strings.Split(rel, "/") {
		current = path.Join(current, part)
		crumbs = append(crumbs, Breadcrumb{Name: part, Path: current})
	}

	return crumbs
}

// record reports one completed operation to the metrics sink.
func (s *Store) record(op string, start time.Time, err *error) {
	s.metrics.RecordOperation(op, time.Since(start), *err)
}
