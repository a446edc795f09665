package storage

import (
	"fmt"
	"strings"
)

// Privilege is the deployment-wide access mode restricting which operations
// the server permits. It is parsed once at startup and never changes for the
// lifetime of the process.
type Privilege string

const (
	// PrivilegeUploadOnly permits uploads but no downloads or deletes.
	PrivilegeUploadOnly Privilege = "upload_only"

	// PrivilegeDownloadOnly permits downloads but no uploads or deletes.
	PrivilegeDownloadOnly Privilege = "download_only"

	// PrivilegeUploadDownload permits uploads, downloads and deletes.
	// This is the default mode.
	PrivilegeUploadDownload Privilege = "upload_download"
)

// ParsePrivilege parses a privilege mode string.
//
// An empty string yields PrivilegeUploadDownload, matching the behavior of
// running without any access restriction configured. Any other unknown value
// is an error so that a typo in configuration cannot silently grant or
// withhold access.
func ParsePrivilege(s string) (Privilege, error) {
	switch Privilege(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return PrivilegeUploadDownload, nil
	case PrivilegeUploadOnly:
		return PrivilegeUploadOnly, nil
	case PrivilegeDownloadOnly:
		return PrivilegeDownloadOnly, nil
	case PrivilegeUploadDownload:
		return PrivilegeUploadDownload, nil
	default:
		return "", fmt.Errorf("unknown privilege mode %q (supported: upload_only, download_only, upload_download)", s)
	}
}

// CanUpload reports whether uploads are permitted in this mode.
func (p Privilege) CanUpload() bool {
	return p == PrivilegeUploadOnly || p == PrivilegeUploadDownload
}

// CanDownload reports whether downloads (single file or folder archive) are
// permitted in this mode.
func (p Privilege) CanDownload() bool {
	return p == PrivilegeDownloadOnly || p == PrivilegeUploadDownload
}

// CanDelete reports whether deletes are permitted. Only the full-access mode
// allows destructive operations.
func (p Privilege) CanDelete() bool {
	return p == PrivilegeUploadDownload
}

// String returns the configuration spelling of the mode.
func (p Privilege) String() string {
	return string(p)
}
