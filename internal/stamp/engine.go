package stamp

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG for signature capture uploads
	"image/png"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xdraw "golang.org/x/image/draw"
)

// Engine embeds a signature bitmap into a PDF byte stream at a
// document-space rectangle and re-serializes the whole document. Each call
// yields a fresh byte stream; the engine performs no locking and is not
// re-entrant — the caller must not run two embeddings against the same entry
// concurrently, and must discard results superseded by a newer request.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Embed places signatureImage (PNG or JPEG bytes) on the given 1-based page
// at dst, which must already be in document space (bottom-left origin).
// The bitmap is resampled to fill dst exactly, then applied as an on-top
// image watermark to that single page.
func (e *Engine) Embed(ctx context.Context, pdfBytes []byte, page int, dst Rect, signatureImage []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dst.Width <= 0 || dst.Height <= 0 {
		return nil, ErrEmptyRect
	}
	count, err := api.PageCount(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if page < 1 || page > count {
		return nil, ErrBadPage
	}

	resampled, err := resampleToRect(signatureImage, dst)
	if err != nil {
		return nil, fmt.Errorf("prepare signature image: %w", err)
	}

	// The bitmap now measures exactly dst.Width x dst.Height points, so an
	// absolute scale of 1 places it at natural size; pos:bl plus the offset
	// anchors its bottom-left corner at (dst.X, dst.Y).
	desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:1 abs, rot:0", dst.X, dst.Y)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(resampled), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build watermark: %w", err)
	}

	var out bytes.Buffer
	marks := map[int]*model.Watermark{page: wm}
	if err := api.AddWatermarksMap(bytes.NewReader(pdfBytes), &out, marks, nil); err != nil {
		return nil, fmt.Errorf("embed signature: %w", err)
	}
	return out.Bytes(), nil
}

// resampleToRect decodes the bitmap and rescales it so one pixel equals one
// point of the target rectangle, letting the watermark stretch to the exact
// requested size regardless of the captured image's aspect ratio.
func resampleToRect(imageBytes []byte, dst Rect) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, err
	}
	w := int(math.Round(dst.Width))
	h := int(math.Round(dst.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PageDimensions returns the native page sizes of a document in points,
// 1-based index order. The viewer uses these together with its rendered
// pixel sizes to report render metrics.
func PageDimensions(pdfBytes []byte) ([]RenderMetrics, error) {
	dims, err := api.PageDims(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	out := make([]RenderMetrics, len(dims))
	for i, d := range dims {
		out[i] = RenderMetrics{DocumentPageWidth: d.Width, DocumentPageHeight: d.Height}
	}
	return out, nil
}
