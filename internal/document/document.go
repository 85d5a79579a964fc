// Package document turns uploaded study materials into Gemini content
// parts. PDFs above the chunk size are split into page-range chunks and
// uploaded through the File API; images are uploaded whole; DOCX files are
// reduced to their text locally and passed inline.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
)

// Uploader is the slice of the LLM client the preparer needs.
type Uploader interface {
	Upload(ctx context.Context, path, mimeType string) (*genai.File, error)
}

// Material is one uploaded file, already read into memory.
type Material struct {
	Name string
	Data []byte
}

// Prepared is the result of content preparation: the parts to send to the
// model and the File API names to clean up afterwards.
type Prepared struct {
	Parts     []genai.Part
	FileNames []string
}

// Preparer converts materials into content parts.
type Preparer struct {
	uploader   Uploader
	chunkPages int
}

// NewPreparer creates a Preparer. chunkPages is the page-range size used
// when splitting large PDFs.
func NewPreparer(u Uploader, chunkPages int) *Preparer {
	if chunkPages <= 0 {
		chunkPages = 10
	}
	return &Preparer{uploader: u, chunkPages: chunkPages}
}

// Prepare processes each material by type. A material that fails to
// upload or extract is logged and skipped; Prepare fails only when nothing
// usable remains. Empty and unsupported files are the client's mistake and
// fail the request outright.
func (p *Preparer) Prepare(ctx context.Context, materials []Material) (*Prepared, error) {
	tmpDir, err := os.MkdirTemp("", "examgen-materials-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	var out Prepared
	for _, m := range materials {
		if len(m.Data) == 0 {
			return nil, fmt.Errorf("file %s is empty", m.Name)
		}
		mime := MIMEType(m.Name)
		var prepErr error
		switch {
		case mime == "application/pdf":
			prepErr = p.preparePDF(ctx, tmpDir, m, &out)
		case strings.HasPrefix(mime, "image/"):
			prepErr = p.uploadWhole(ctx, tmpDir, m, mime, &out)
		case mime == docxMIME:
			var text string
			text, prepErr = ExtractDocxText(m.Data)
			if prepErr == nil {
				out.Parts = append(out.Parts, genai.Text(text))
			}
		case mime == "text/plain" || mime == "text/markdown":
			out.Parts = append(out.Parts, genai.Text(string(m.Data)))
		default:
			return nil, fmt.Errorf("unsupported file type: %s", m.Name)
		}
		if prepErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("skipping unusable material", "file", m.Name, "error", prepErr)
		}
	}

	if len(out.Parts) == 0 {
		return nil, errors.New("no usable content in uploaded materials")
	}
	return &out, nil
}

// uploadWhole saves the material to a temp file and uploads it as a single
// File API part.
func (p *Preparer) uploadWhole(ctx context.Context, tmpDir string, m Material, mime string, out *Prepared) error {
	path := filepath.Join(tmpDir, uuid.NewString()+"_"+filepath.Base(m.Name))
	if err := os.WriteFile(path, m.Data, 0o600); err != nil {
		return fmt.Errorf("save temp file: %w", err)
	}
	f, err := p.uploader.Upload(ctx, path, mime)
	if err != nil {
		return err
	}
	out.Parts = append(out.Parts, genai.FileData{MIMEType: f.MIMEType, URI: f.URI})
	out.FileNames = append(out.FileNames, f.Name)
	return nil
}

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ExtractDocxText pulls the paragraph text out of a DOCX file.
func ExtractDocxText(data []byte) (string, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("extract docx text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("document contains no text")
	}
	return text, nil
}

// MIMEType maps a filename to the MIME type sent to the AI service.
func MIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".docx":
		return docxMIME
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
