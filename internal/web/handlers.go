package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stashbox/stashd/internal/logger"
	"github.com/stashbox/stashd/pkg/storage"
)

// filesPage is the template payload for the listing view.
type filesPage struct {
	Flashes     []Flash
	Breadcrumbs []storage.Breadcrumb
	Files       []storage.FileEntry
	Folders     []storage.FolderEntry
	CurrentPath string
	CanUpload   bool
	CanDownload bool
	CanDelete   bool
}

// loginPage is the template payload for the login view.
type loginPage struct {
	Flashes []Flash
}

// handleIndex redirects the root path to the listing (or the login page, via
// the session middleware, if there is no session yet).
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/files", http.StatusSeeOther)
}

// handleLoginPage renders the login form.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", loginPage{Flashes: popFlashes(w, r)})
}

// handleLogin checks the submitted password against the configured secret and
// establishes a session on success.
//
// Both sides of the comparison are SHA-256 hex digests and the comparison is
// constant-time, so response timing reveals nothing about the password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "Invalid form submission.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sum := sha256.Sum256([]byte(r.PostFormValue("password")))
	submitted := []byte(hex.EncodeToString(sum[:]))

	if subtle.ConstantTimeCompare(submitted, s.passwordHash) != 1 {
		logger.Warn("Failed login attempt from %s", r.RemoteAddr)
		setFlash(w, "error", "Incorrect password.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := s.sessions.Create(r.Context())
	if err != nil {
		logger.Error("Failed to create session: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, token)
	logger.Info("Session established from %s", r.RemoteAddr)
	http.Redirect(w, r, "/files", http.StatusSeeOther)
}

// handleLogout destroys the current session and returns to the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if err := s.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			logger.Warn("Failed to destroy session: %v", err)
		}
	}

	s.clearSessionCookie(w)
	setFlash(w, "info", "Logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleList renders the listing page for the requested directory.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rawDir := chi.URLParam(r, "*")

	files, folders, err := s.store.List(r.Context(), rawDir)
	if err != nil {
		s.storageError(w, r, err)
		return
	}

	policy := s.store.Policy()
	s.render(w, "files.html", filesPage{
		Flashes:     popFlashes(w, r),
		Breadcrumbs: s.store.Breadcrumbs(rawDir),
		Files:       files,
		Folders:     folders,
		CurrentPath: s.store.Resolver().CleanRel(rawDir),
		CanUpload:   policy.CanUpload(),
		CanDownload: policy.CanDownload(),
		CanDelete:   policy.CanDelete(),
	})
}

// handleDownload streams a single file as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rawPath := chi.URLParam(r, "*")

	rc, entry, err := s.store.Download(r.Context(), rawPath)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", attachmentDisposition(entry.Name))
	http.ServeContent(w, r, entry.Name, entry.Modified, rc)
}

// handleDownloadFolder packages a directory into a zip archive and streams it.
// The scratch archive is removed once the transfer finishes.
func (s *Server) handleDownloadFolder(w http.ResponseWriter, r *http.Request) {
	rawPath := chi.URLParam(r, "*")

	archive, err := s.store.DownloadFolder(r.Context(), rawPath)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	defer func() {
		if err := archive.Remove(); err != nil {
			logger.Warn("Failed to remove scratch archive: %v", err)
		}
	}()

	f, err := archive.Open()
	if err != nil {
		logger.Error("Failed to open archive %q: %v", archive.Name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachmentDisposition(archive.Name))
	http.ServeContent(w, r, archive.Name, time.Now(), f)
}

// handleUpload accepts a multipart file upload into the current directory.
//
// Browsers submitting the form are redirected back to the listing with a
// flash message; callers sending X-Requested-With get a JSON response with
// the stored filename instead.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.uploadResult(w, r, "", "", fmt.Errorf("upload exceeds the %s limit", formatSize(maxErr.Limit)))
			return
		}
		s.uploadResult(w, r, "", "", errors.New("no file selected"))
		return
	}
	defer file.Close()

	rawDir := r.PostFormValue("current_path")

	stored, err := s.store.Upload(r.Context(), rawDir, header.Filename, file)
	if err != nil {
		s.uploadResult(w, r, rawDir, "", err)
		return
	}

	s.uploadResult(w, r, rawDir, stored, nil)
}

// uploadResult reports an upload outcome in the caller's preferred shape.
func (s *Server) uploadResult(w http.ResponseWriter, r *http.Request, rawDir, stored string, err error) {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(storageStatus(err))
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"filename": stored})
		return
	}

	if err != nil {
		setFlash(w, "error", "Upload failed: "+userMessage(err))
	} else {
		setFlash(w, "success", fmt.Sprintf("Uploaded %q.", stored))
	}
	s.redirectToListing(w, r, rawDir)
}

// handleCreateFolder creates a folder in the current directory.
func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "Invalid form submission.")
		http.Redirect(w, r, "/files", http.StatusSeeOther)
		return
	}

	rawDir := r.PostFormValue("current_path")
	name := r.PostFormValue("folder_name")

	if err := s.store.CreateFolder(r.Context(), rawDir, name); err != nil {
		setFlash(w, "error", "Could not create folder: "+userMessage(err))
	} else {
		setFlash(w, "success", "Folder created.")
	}
	s.redirectToListing(w, r, rawDir)
}

// handleDelete removes a file or folder and returns to its parent listing.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rawPath := chi.URLParam(r, "*")

	if err := s.store.Delete(r.Context(), rawPath); err != nil {
		setFlash(w, "error", "Could not delete: "+userMessage(err))
	} else {
		setFlash(w, "success", "Deleted.")
	}

	parent := path.Dir(s.store.Resolver().CleanRel(rawPath))
	if parent == "." {
		parent = ""
	}
	s.redirectToListing(w, r, parent)
}

// redirectToListing sends the browser back to the listing for rawDir.
func (s *Server) redirectToListing(w http.ResponseWriter, r *http.Request, rawDir string) {
	rel := s.store.Resolver().CleanRel(rawDir)
	target := "/files"
	if rel != "" {
		target += "/" + rel
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// render executes a template, logging failures server-side only.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("Failed to render %s: %v", name, err)
	}
}

// storageError translates a storage-layer error into an HTTP response.
func (s *Server) storageError(w http.ResponseWriter, r *http.Request, err error) {
	status := storageStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, userMessage(err), status)
}

// storageStatus maps the storage error taxonomy onto HTTP status codes.
func storageStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrPolicyDenied):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrNotAFile),
		errors.Is(err, storage.ErrNotADirectory):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// userMessage renders an error for end users, hiding internal detail behind a
// generic message for anything outside the known taxonomy.
func userMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrPolicyDenied):
		return "operation not permitted in this access mode"
	case errors.Is(err, storage.ErrNotFound):
		return "not found"
	case errors.Is(err, storage.ErrNotAFile):
		return "not a file"
	case errors.Is(err, storage.ErrNotADirectory):
		return "not a folder"
	case errors.Is(err, storage.ErrInvalidName):
		return "invalid name"
	default:
		return "internal error"
	}
}

// attachmentDisposition builds a Content-Disposition header that survives
// non-ASCII filenames.
func attachmentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name))
}
