package prescriptions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacare/pharmacare-backend/pkg/config"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
)

var extensionsByMime = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

// Upload carries an incoming prescription file and its declared metadata.
type Upload struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

// Store persists prescription files. Save runs before the order transaction;
// Delete is the compensation when that transaction fails.
type Store interface {
	Save(ctx context.Context, userID uuid.UUID, upload Upload) (string, error)
	Delete(ctx context.Context, filename string) error
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}

type diskStore struct {
	dir          string
	maxSizeBytes int64
	allowedTypes map[string]struct{}
	now          func() time.Time
}

// NewDiskStore builds a Store writing under the configured upload directory.
func NewDiskStore(cfg config.PrescriptionConfig) (Store, error) {
	if strings.TrimSpace(cfg.UploadDir) == "" {
		return nil, fmt.Errorf("prescription upload dir required")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating prescription upload dir: %w", err)
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, value := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(value))] = struct{}{}
	}

	return &diskStore{
		dir:          cfg.UploadDir,
		maxSizeBytes: cfg.MaxSizeBytes,
		allowedTypes: allowed,
		now:          time.Now,
	}, nil
}

// Save validates the upload and writes it as rx_<user>_<timestamp>.<ext>,
// returning the stored filename.
func (s *diskStore) Save(ctx context.Context, userID uuid.UUID, upload Upload) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if upload.Reader == nil {
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription file is required")
	}
	if upload.Size <= 0 {
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription file is empty")
	}
	if upload.Size > s.maxSizeBytes {
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription file is too large").
			WithDetails(map[string]any{"max_size_bytes": s.maxSizeBytes})
	}

	declared, err := parseMimeType(upload.ContentType)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription content type is invalid")
	}
	if _, ok := s.allowedTypes[declared]; !ok {
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription file type is not accepted").
			WithDetails(map[string]any{"accepted_types": s.acceptedTypes()})
	}

	// Sniff the first bytes so a renamed executable cannot pass as a PDF.
	head := make([]byte, 512)
	n, err := io.ReadFull(upload.Reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read prescription upload")
	}
	head = head[:n]
	sniffed, err := parseMimeType(http.DetectContentType(head))
	if err != nil || !s.mimeMatches(declared, sniffed) {
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription file content does not match its type")
	}

	filename := fmt.Sprintf("rx_%s_%d.%s", userID, s.now().Unix(), extensionsByMime[declared])
	path := filepath.Join(s.dir, filename)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create prescription file")
	}
	defer file.Close()

	limited := io.LimitReader(upload.Reader, s.maxSizeBytes-int64(len(head))+1)
	written, err := io.Copy(file, io.MultiReader(bytes.NewReader(head), limited))
	if err != nil {
		os.Remove(path)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write prescription file")
	}
	if written > s.maxSizeBytes {
		os.Remove(path)
		return "", pkgerrors.New(pkgerrors.CodePrescriptionInvalid, "prescription file is too large").
			WithDetails(map[string]any{"max_size_bytes": s.maxSizeBytes})
	}

	return filename, nil
}

// Delete removes a stored file. Missing files are treated as already deleted.
func (s *diskStore) Delete(ctx context.Context, filename string) error {
	clean := filepath.Base(strings.TrimSpace(filename))
	if clean == "" || clean == "." {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete prescription file")
	}
	return nil
}

// Open returns the stored file for admin review.
func (s *diskStore) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	clean := filepath.Base(strings.TrimSpace(filename))
	if clean == "" || clean == "." {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prescription filename is required")
	}
	file, err := os.Open(filepath.Join(s.dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription file not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open prescription file")
	}
	return file, nil
}

func (s *diskStore) acceptedTypes() []string {
	out := make([]string, 0, len(s.allowedTypes))
	for value := range s.allowedTypes {
		out = append(out, value)
	}
	return out
}

// mimeMatches compares the declared type with the sniffed one. JPEG and PNG
// sniff exactly; PDFs sniffed from only the magic bytes can come back as
// application/octet-stream, so both are accepted for a declared PDF.
func (s *diskStore) mimeMatches(declared, sniffed string) bool {
	if declared == sniffed {
		return true
	}
	if declared == "application/pdf" {
		return sniffed == "application/pdf" || sniffed == "application/octet-stream"
	}
	return false
}

func parseMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}
