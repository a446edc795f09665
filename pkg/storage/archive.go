package storage

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Archive is a transient zip file built in the scratch location, ready to be
// streamed to a caller. It is created per request and not reused; the owner
// must call Remove once the transfer completes (or fails).
type Archive struct {
	path string

	// Name is the suggested download filename, e.g. "photos.zip".
	Name string

	// Size is the archive size in bytes.
	Size int64
}

// Open opens the archive for reading. The caller must close the returned
// file.
func (a *Archive) Open() (*os.File, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return f, nil
}

// Path returns the scratch location of the archive file.
func (a *Archive) Path() string {
	return a.path
}

// Remove deletes the scratch file. Removing an already-removed archive is
// not an error.
func (a *Archive) Remove() error {
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove archive: %w", err)
	}
	return nil
}

// Archiver packages directories into deflate-compressed zip archives.
//
// Archives are built in a scratch directory, never inline in memory, because
// a folder download may span many gigabytes. Building is the one long-running
// operation in the system, so it is context-cancellable throughout and the
// scratch file is released on every exit path.
type Archiver struct {
	scratchDir string
}

// NewArchiver creates an archiver writing scratch files to scratchDir.
// An empty scratchDir falls back to the OS temp directory.
func NewArchiver(scratchDir string) *Archiver {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Archiver{scratchDir: scratchDir}
}

// BuildZip recursively packages the directory at dir (an already-resolved
// path inside the storage root) into a zip archive.
//
// Walk semantics:
//   - in-archive paths are relative to dir, so the folder name itself appears
//     only in the suggested download filename
//   - symlinks are never followed; only regular files are archived, which
//     keeps the walk confined to dir's subtree
//   - files that become unreadable mid-walk (deleted concurrently) are
//     skipped; the archive is a best-effort snapshot, not a transaction
//   - the scratch file itself is excluded, in case the scratch directory
//     sits inside dir
//   - an empty directory yields a structurally valid zero-entry archive
//
// Cancellation:
// The context is checked on every entry. On cancellation or any fatal error
// the partially written scratch file is removed before returning.
//
// Parameters:
//   - ctx: Context for cancellation
//   - dir: Resolved absolute path of the directory to package
//
// Returns:
//   - *Archive: Handle to the finished scratch file
//   - error: Context or I/O error; the scratch file is already cleaned up
func (a *Archiver) BuildZip(ctx context.Context, dir string) (archive *Archive, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scratch := filepath.Join(a.scratchDir, fmt.Sprintf("stashd-%s.zip", uuid.NewString()))

	f, err := os.Create(scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch archive: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(scratch)
		}
	}()

	zw := zip.NewWriter(f)

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == dir {
				// The directory being archived itself is unreadable.
				return walkErr
			}
			// An entry became unreadable mid-walk: skip it.
			return nil
		}

		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if d.IsDir() {
			return nil
		}

		// Only regular files. This skips symlinks outright, so links
		// pointing outside the subtree are never followed.
		if !d.Type().IsRegular() {
			return nil
		}

		if p == scratch {
			return nil
		}

		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		header := &zip.FileHeader{
			Name:     filepath.ToSlash(rel),
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		}

		w, createErr := zw.CreateHeader(header)
		if createErr != nil {
			return fmt.Errorf("failed to add %q to archive: %w", rel, createErr)
		}

		src, openErr := os.Open(p)
		if openErr != nil {
			// Vanished or lost permission after ReadDir: best-effort skip.
			// The header stays as a zero-length entry.
			return nil
		}

		_, copyErr := io.Copy(w, src)
		src.Close()
		if copyErr != nil {
			return fmt.Errorf("failed to archive %q: %w", rel, copyErr)
		}

		return nil
	})
	if err != nil {
		zw.Close()
		return nil, err
	}

	if err = zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err = f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	info, statErr := os.Stat(scratch)
	if statErr != nil {
		err = fmt.Errorf("failed to stat archive: %w", statErr)
		return nil, err
	}

	return &Archive{
		path: scratch,
		Name: filepath.Base(dir) + ".zip",
		Size: info.Size(),
	}, nil
}
