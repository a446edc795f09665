package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a store over a fresh temp root with the given mode.
func newTestStore(t *testing.T, policy Privilege) *Store {
	t.Helper()
	resolver, err := NewPathResolver(t.TempDir())
	require.NoError(t, err)
	return NewStore(resolver, policy, NewArchiver(t.TempDir()), nil)
}

// TestStore_UploadDownloadRoundTrip verifies that uploaded bytes come back
// identical through download.
func TestStore_UploadDownloadRoundTrip(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()
	content := "the quick brown fox\x00binary\xffbytes"

	stored, err := store.Upload(ctx, "", "report.txt", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "report.txt", stored)

	rc, entry, err := store.Download(ctx, "report.txt")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	assert.Equal(t, "report.txt", entry.Name)
	assert.Equal(t, int64(len(content)), entry.Size)
	assert.False(t, entry.Modified.IsZero())
}

// TestStore_UploadSanitizesFilename verifies that the stored name reflects
// sanitization and is reported back to the caller.
func TestStore_UploadSanitizesFilename(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()

	stored, err := store.Upload(ctx, "", "../../my evil  name.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "my_evil_name.txt", stored)

	// The file must exist directly under the root, not anywhere above it.
	_, err = os.Stat(filepath.Join(store.Resolver().Root(), stored))
	assert.NoError(t, err)
}

// TestStore_UploadOverwrites verifies last-write-wins semantics.
func TestStore_UploadOverwrites(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()

	_, err := store.Upload(ctx, "", "a.txt", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Upload(ctx, "", "a.txt", strings.NewReader("second"))
	require.NoError(t, err)

	rc, entry, err := store.Download(ctx, "a.txt")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	assert.Equal(t, int64(len("second")), entry.Size)
}

// TestStore_UploadInvalidNames verifies rejection of names that are empty or
// sanitize to nothing.
func TestStore_UploadInvalidNames(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "..", "...", "@#$%"} {
		_, err := store.Upload(ctx, "", name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, "filename %q", name)
	}
}

// TestStore_PolicyDenials verifies that every gated operation reports
// ErrPolicyDenied in modes that exclude it.
func TestStore_PolicyDenials(t *testing.T) {
	ctx := context.Background()

	t.Run("download_only denies upload", func(t *testing.T) {
		store := newTestStore(t, PrivilegeDownloadOnly)
		_, err := store.Upload(ctx, "", "a.txt", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrPolicyDenied)
	})

	t.Run("upload_only denies download", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadOnly)
		_, _, err := store.Download(ctx, "a.txt")
		assert.ErrorIs(t, err, ErrPolicyDenied)
	})

	t.Run("upload_only denies folder download", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadOnly)
		_, err := store.DownloadFolder(ctx, "")
		assert.ErrorIs(t, err, ErrPolicyDenied)
	})

	t.Run("upload_only denies delete", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadOnly)
		err := store.Delete(ctx, "a.txt")
		assert.ErrorIs(t, err, ErrPolicyDenied)
	})

	t.Run("download_only denies delete", func(t *testing.T) {
		store := newTestStore(t, PrivilegeDownloadOnly)
		err := store.Delete(ctx, "a.txt")
		assert.ErrorIs(t, err, ErrPolicyDenied)
	})

	t.Run("policy is checked before existence", func(t *testing.T) {
		// A denied delete of a missing file must not leak whether it exists.
		store := newTestStore(t, PrivilegeUploadOnly)
		err := store.Delete(ctx, "definitely-missing.txt")
		assert.ErrorIs(t, err, ErrPolicyDenied)
	})
}

// TestStore_ListNeverGated verifies listing works in every privilege mode.
func TestStore_ListNeverGated(t *testing.T) {
	ctx := context.Background()

	for _, mode := range []Privilege{PrivilegeUploadOnly, PrivilegeDownloadOnly, PrivilegeUploadDownload} {
		t.Run(string(mode), func(t *testing.T) {
			store := newTestStore(t, mode)
			require.NoError(t, os.WriteFile(filepath.Join(store.Resolver().Root(), "a.txt"), []byte("x"), 0644))

			files, _, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, files, 1)
		})
	}
}

// TestStore_CreateFolder verifies folder creation is idempotent and never
// privilege-gated.
func TestStore_CreateFolder(t *testing.T) {
	ctx := context.Background()

	for _, mode := range []Privilege{PrivilegeUploadOnly, PrivilegeDownloadOnly, PrivilegeUploadDownload} {
		t.Run(string(mode), func(t *testing.T) {
			store := newTestStore(t, mode)

			require.NoError(t, store.CreateFolder(ctx, "", "photos"))
			// Creating it again succeeds silently.
			require.NoError(t, store.CreateFolder(ctx, "", "photos"))

			info, err := os.Stat(filepath.Join(store.Resolver().Root(), "photos"))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		})
	}

	t.Run("invalid names", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadDownload)
		assert.ErrorIs(t, store.CreateFolder(ctx, "", ""), ErrInvalidName)
		assert.ErrorIs(t, store.CreateFolder(ctx, "", ".."), ErrInvalidName)
	})

	t.Run("name is sanitized", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadDownload)
		require.NoError(t, store.CreateFolder(ctx, "", "my photos"))
		_, err := os.Stat(filepath.Join(store.Resolver().Root(), "my_photos"))
		assert.NoError(t, err)
	})
}

// TestStore_Delete verifies file and recursive folder deletion.
func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadDownload)
		_, err := store.Upload(ctx, "", "a.txt", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "a.txt"))
		_, _, err = store.Download(ctx, "a.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("folder recursively", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadDownload)
		require.NoError(t, store.CreateFolder(ctx, "", "docs"))
		_, err := store.Upload(ctx, "docs", "nested.txt", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "docs"))
		_, err = os.Stat(filepath.Join(store.Resolver().Root(), "docs"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing target", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadDownload)
		assert.ErrorIs(t, store.Delete(ctx, "missing.txt"), ErrNotFound)
	})

	t.Run("root is never deleted", func(t *testing.T) {
		store := newTestStore(t, PrivilegeUploadDownload)
		require.NoError(t, os.WriteFile(filepath.Join(store.Resolver().Root(), "keep.txt"), []byte("x"), 0644))

		// Both the empty path and traversal attempts resolve to the root.
		assert.ErrorIs(t, store.Delete(ctx, ""), ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "../../.."), ErrNotFound)

		_, err := os.Stat(filepath.Join(store.Resolver().Root(), "keep.txt"))
		assert.NoError(t, err, "root contents must survive")
	})
}

// TestStore_DownloadFolder verifies the zip pipeline end to end through the
// store.
func TestStore_DownloadFolder(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()

	require.NoError(t, store.CreateFolder(ctx, "", "docs"))
	_, err := store.Upload(ctx, "docs", "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	archive, err := store.DownloadFolder(ctx, "docs")
	require.NoError(t, err)
	defer archive.Remove()

	assert.Equal(t, "docs.zip", archive.Name)

	entries := readArchive(t, archive)
	assert.Equal(t, map[string]string{"notes.txt": "hello"}, entries)
}

// TestStore_DownloadFolderErrors verifies the taxonomy for bad zip targets.
func TestStore_DownloadFolderErrors(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()

	_, err := store.DownloadFolder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, uploadErr := store.Upload(ctx, "", "a.txt", strings.NewReader("x"))
	require.NoError(t, uploadErr)
	_, err = store.DownloadFolder(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotADirectory)
}

// TestStore_Breadcrumbs verifies the navigation trail construction.
func TestStore_Breadcrumbs(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)

	tests := []struct {
		name string
		raw  string
		want []Breadcrumb
	}{
		{
			name: "root",
			raw:  "",
			want: []Breadcrumb{{Name: "Storage", Path: ""}},
		},
		{
			name: "nested",
			raw:  "docs/reports",
			want: []Breadcrumb{
				{Name: "Storage", Path: ""},
				{Name: "docs", Path: "docs"},
				{Name: "reports", Path: "docs/reports"},
			},
		},
		{
			name: "traversal collapses",
			raw:  "../..",
			want: []Breadcrumb{{Name: "Storage", Path: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.Breadcrumbs(tt.raw))
		})
	}
}

// TestStore_FullWorkflow exercises a realistic session: create structure,
// upload into it, list, archive, then tear it down.
func TestStore_FullWorkflow(t *testing.T) {
	store := newTestStore(t, PrivilegeUploadDownload)
	ctx := context.Background()

	require.NoError(t, store.CreateFolder(ctx, "", "projects"))
	require.NoError(t, store.CreateFolder(ctx, "projects", "alpha"))

	_, err := store.Upload(ctx, "projects/alpha", "plan.md", strings.NewReader("# plan"))
	require.NoError(t, err)
	_, err = store.Upload(ctx, "projects/alpha", "data.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)

	files, folders, err := store.List(ctx, "projects/alpha")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Empty(t, folders)

	archive, err := store.DownloadFolder(ctx, "projects")
	require.NoError(t, err)
	defer archive.Remove()

	entries := readArchive(t, archive)
	assert.Equal(t, map[string]string{
		"alpha/plan.md":  "# plan",
		"alpha/data.csv": "a,b\n1,2\n",
	}, entries)

	require.NoError(t, store.Delete(ctx, "projects"))
	_, _, err = store.List(ctx, "projects")
	assert.ErrorIs(t, err, ErrNotFound)
}
