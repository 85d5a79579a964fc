package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// preparePDF splits a PDF into page-range chunks and uploads each one. A
// PDF whose structure cannot be read is uploaded whole instead; a chunk
// that fails to extract or upload is skipped with a warning, and the
// material fails only when no chunk survives.
func (p *Preparer) preparePDF(ctx context.Context, tmpDir string, m Material, out *Prepared) error {
	src := filepath.Join(tmpDir, uuid.NewString()+".pdf")
	if err := os.WriteFile(src, m.Data, 0o600); err != nil {
		return fmt.Errorf("save temp file: %w", err)
	}

	pages, err := api.PageCountFile(src)
	if err != nil {
		slog.Warn("could not read PDF structure, uploading as single file",
			"file", m.Name, "error", err)
		return p.uploadWhole(ctx, tmpDir, m, "application/pdf", out)
	}

	uploaded := 0
	for _, r := range ChunkRanges(pages, p.chunkPages) {
		chunk := filepath.Join(tmpDir, fmt.Sprintf("chunk_%d_%d.pdf", r.First, r.Last))
		sel := []string{fmt.Sprintf("%d-%d", r.First, r.Last)}
		if err := api.TrimFile(src, chunk, sel, nil); err != nil {
			slog.Warn("failed to extract PDF chunk, skipping",
				"file", m.Name, "pages", sel[0], "error", err)
			continue
		}
		f, err := p.uploader.Upload(ctx, chunk, "application/pdf")
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("failed to upload PDF chunk, skipping",
				"file", m.Name, "pages", sel[0], "error", err)
			continue
		}
		out.Parts = append(out.Parts, genai.FileData{MIMEType: f.MIMEType, URI: f.URI})
		out.FileNames = append(out.FileNames, f.Name)
		uploaded++
	}

	if uploaded == 0 {
		return fmt.Errorf("no chunk of %s could be uploaded", m.Name)
	}
	slog.Info("uploaded PDF in chunks", "file", m.Name, "pages", pages, "chunks", uploaded)
	return nil
}

// PageRange is an inclusive 1-based page interval.
type PageRange struct {
	First int
	Last  int
}

// ChunkRanges splits a page count into consecutive ranges of at most size
// pages. A non-positive count yields no ranges.
func ChunkRanges(totalPages, size int) []PageRange {
	if totalPages <= 0 {
		return nil
	}
	if size <= 0 {
		size = totalPages
	}
	var ranges []PageRange
	for first := 1; first <= totalPages; first += size {
		last := first + size - 1
		if last > totalPages {
			last = totalPages
		}
		ranges = append(ranges, PageRange{First: first, Last: last})
	}
	return ranges
}
