// Package documents persists uploaded PDF documents under a per-applicant
// directory scheme. Only the database transaction is the atomicity boundary;
// a file already on disk whose submission later fails is acceptable collateral.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind is the document slot a file belongs to. The values double as directory
// names and public URL segments.
type Kind string

const (
	KindDPI         Kind = "dpi"
	KindContrato    Kind = "contratos"
	KindCertificado Kind = "certificados"
)

// ErrInvalidFileType reports a part that is neither PDF by MIME type nor by
// filename extension.
var ErrInvalidFileType = errors.New("invalid file type")

// UploadedPart is the single normalized shape for a multipart file part,
// resolved once at the HTTP boundary. Exactly one of Data (fully buffered) or
// Reader (streamed) is set; business logic never sees the transport's union
// shapes.
type UploadedPart struct {
	Filename string
	MimeType string
	Data     []byte
	Reader   io.Reader
}

// SavedFile describes a persisted document.
type SavedFile struct {
	RelPath   string
	MimeType  string
	SizeBytes int64
}

// Store writes documents below a base directory.
type Store struct {
	baseDir string
}

// NewStore creates the base directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save persists one PDF under {base}/{nationalID}/{kind}/{uuid}.pdf. A nil
// part means the optional slot was not supplied and yields (nil, nil); whether
// a slot is mandatory is the caller's business rule. Size is counted from the
// bytes actually written, never from client metadata.
func (s *Store) Save(ctx context.Context, part *UploadedPart, nationalID string, kind Kind) (*SavedFile, error) {
	if part == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !looksPDF(part.MimeType, part.Filename) {
		return nil, fmt.Errorf("%s %q: %w", kind, part.Filename, ErrInvalidFileType)
	}

	dir := filepath.Join(s.baseDir, nationalID, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}

	name := uuid.NewString() + ".pdf"
	abs := filepath.Join(dir, name)

	var size int64
	switch {
	case part.Data != nil:
		if err := os.WriteFile(abs, part.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write document: %w", err)
		}
		size = int64(len(part.Data))
	case part.Reader != nil:
		f, err := os.Create(abs)
		if err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
		size, err = io.Copy(f, part.Reader)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("stream document: %w", err)
		}
	default:
		// A part with no data in either shape is treated as absent.
		return nil, nil
	}

	mime := part.MimeType
	if mime == "" {
		mime = "application/pdf"
	}

	// Public path is forward-slash regardless of host OS conventions.
	rel := path.Join("/uploads", nationalID, string(kind), name)
	return &SavedFile{RelPath: rel, MimeType: mime, SizeBytes: size}, nil
}

// looksPDF accepts a part when either signal says PDF; upstreams are sloppy
// about one or the other.
func looksPDF(mimeType, filename string) bool {
	return strings.Contains(strings.ToLower(mimeType), "pdf") ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
