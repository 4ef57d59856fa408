// Package intake stages uploaded audio to temporary storage and measures
// its playback duration.
package intake

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileFieldName is the multipart form field that must carry the audio file
const FileFieldName = "file"

// StagedFile is an uploaded file staged on local disk for the lifetime of
// one ingestion request. The caller must Remove it on every exit path.
type StagedFile struct {
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}

// Stager writes uploaded files into a staging directory
type Stager struct {
	dir string
}

// NewStager creates a stager rooted at dir (created if missing)
func NewStager(dir string) (*Stager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Stager{dir: dir}, nil
}

// Stage copies a multipart upload to disk under a collision-resistant name
func (s *Stager) Stage(file multipart.File, header *multipart.FileHeader) (*StagedFile, error) {
	name := StagedName(time.Now(), header.Filename)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	size, err := io.Copy(dst, file)
	if closeErr := dst.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &StagedFile{
		Path:         path,
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         size,
	}, nil
}

// Remove deletes the staged file. Best-effort: callers log the returned
// error and never propagate it.
func (f *StagedFile) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	err := os.Remove(f.Path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Open reopens the staged file for reading
func (f *StagedFile) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// StagedName builds a timestamped, sanitized file name. Path separators and
// whitespace in the client-supplied name never reach the filesystem.
func StagedName(now time.Time, original string) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), SanitizeFilename(original))
}

// SanitizeFilename strips directory components and replaces whitespace with
// underscores
func SanitizeFilename(name string) string {
	// Strip any path component, whichever separator the client used.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload"
	}

	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "upload"
	}
	return strings.Join(fields, "_")
}
