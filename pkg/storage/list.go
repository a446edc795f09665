package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"
)

// FileEntry describes a regular file found in a directory listing.
//
// Size and Modified are read at listing time and may be stale immediately
// afterwards; there is no locking against concurrent writers.
type FileEntry struct {
	// Name is the entry's base name.
	Name string `json:"name"`

	// Size is the file size in bytes at listing time.
	Size int64 `json:"size"`

	// Modified is the last-modification timestamp at listing time.
	Modified time.Time `json:"modified"`

	// Path is the slash-separated path relative to the storage root,
	// suitable for feeding back into download/delete operations.
	Path string `json:"path"`
}

// FolderEntry describes a subdirectory found in a directory listing.
type FolderEntry struct {
	// Name is the entry's base name.
	Name string `json:"name"`

	// Path is the slash-separated path relative to the storage root.
	Path string `json:"path"`
}

// Lister enumerates one level of a directory under the storage root.
type Lister struct {
	resolver *PathResolver
}

// NewLister creates a directory lister bound to the given resolver.
func NewLister(resolver *PathResolver) *Lister {
	return &Lister{resolver: resolver}
}

// List enumerates the files and folders directly under the directory named
// by rawDir. It never recurses; packaging a whole subtree is the archiver's
// job.
//
// Ordering follows os.ReadDir (sorted by filename), which is stable within a
// single call. Entries that vanish between the directory read and the stat
// (a delete racing the listing) are skipped rather than failing the whole
// listing. Anything that is not a directory (symlinks included) is listed as
// a file entry with whatever size and mtime the stat reports.
//
// Parameters:
//   - ctx: Context for cancellation
//   - rawDir: Untrusted directory path relative to the storage root
//
// Returns:
//   - []FileEntry: Files directly under the directory
//   - []FolderEntry: Subdirectories directly under the directory
//   - error: ErrNotFound/ErrNotADirectory if the path does not resolve to an
//     existing directory, or a wrapped I/O error
func (l *Lister) List(ctx context.Context, rawDir string) ([]FileEntry, []FolderEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	dir, err := l.resolver.ResolveDir(rawDir)
	if err != nil {
		return nil, nil, err
	}
	rel := l.resolver.CleanRel(rawDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %q: %w", rel, err)
	}

	files := make([]FileEntry, 0, len(entries))
	folders := make([]FolderEntry, 0, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		entryRel := path.Join(rel, entry.Name())

		if entry.IsDir() {
			folders = append(folders, FolderEntry{
				Name: entry.Name(),
				Path: entryRel,
			})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Entry disappeared between ReadDir and stat. Best-effort
			// snapshot: skip it.
			continue
		}

		files = append(files, FileEntry{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
			Path:     entryRel,
		})
	}

	return files, folders, nil
}
