// Package stamp converts on-screen signature placements into document-space
// rectangles and embeds the signature image into the PDF byte stream.
package stamp

import (
	"errors"
	"sync"
)

var (
	ErrNoMetrics   = errors.New("stamp: no render metrics recorded for page")
	ErrBadMetrics  = errors.New("stamp: render metrics have non-positive dimensions")
	ErrEmptyRect   = errors.New("stamp: placement rectangle has no area")
	ErrBadPage     = errors.New("stamp: page number out of range")
	ErrNoPlacement = errors.New("stamp: no pending placement")
)

// RenderMetrics captures the mapping between a rasterized page's on-screen
// pixel size and its native page size, recorded at the moment the page was
// rendered. Without it pointer coordinates cannot be mapped into the document.
type RenderMetrics struct {
	DocumentPageWidth  float64 `json:"documentPageWidth"`
	DocumentPageHeight float64 `json:"documentPageHeight"`
	RenderedWidth      float64 `json:"renderedWidth"`
	RenderedHeight     float64 `json:"renderedHeight"`
}

// Rect is a placement rectangle. In render space the origin is top-left with
// y increasing downward; in document space it is bottom-left with y up.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToDocumentSpace maps a render-space rectangle into document space using
// anisotropic scale factors and a y-axis flip:
//
//	docY = pageHeight - (y + height) * scaleY
//
// so the returned Y is the rectangle's bottom edge in the document's
// bottom-left coordinate system.
func ToDocumentSpace(m RenderMetrics, r Rect) (Rect, error) {
	if m.RenderedWidth <= 0 || m.RenderedHeight <= 0 || m.DocumentPageWidth <= 0 || m.DocumentPageHeight <= 0 {
		return Rect{}, ErrBadMetrics
	}
	if r.Width <= 0 || r.Height <= 0 {
		return Rect{}, ErrEmptyRect
	}
	scaleX := m.DocumentPageWidth / m.RenderedWidth
	scaleY := m.DocumentPageHeight / m.RenderedHeight
	return Rect{
		X:      r.X * scaleX,
		Y:      m.DocumentPageHeight - (r.Y+r.Height)*scaleY,
		Width:  r.Width * scaleX,
		Height: r.Height * scaleY,
	}, nil
}

type metricsKey struct {
	entryID string
	page    int
}

// MetricsRegistry holds per-page render metrics reported by the viewer.
// Placement against a page with no recorded metrics is rejected.
type MetricsRegistry struct {
	mu     sync.Mutex
	byPage map[metricsKey]RenderMetrics
}

func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{byPage: map[metricsKey]RenderMetrics{}}
}

func (r *MetricsRegistry) Record(entryID string, page int, m RenderMetrics) error {
	if m.RenderedWidth <= 0 || m.RenderedHeight <= 0 || m.DocumentPageWidth <= 0 || m.DocumentPageHeight <= 0 {
		return ErrBadMetrics
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPage[metricsKey{entryID, page}] = m
	return nil
}

func (r *MetricsRegistry) Get(entryID string, page int) (RenderMetrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byPage[metricsKey{entryID, page}]
	return m, ok
}

// Clear drops all metrics for an entry. Called when the viewer unloads it;
// stale metrics from a previous rasterization must not drive a placement.
func (r *MetricsRegistry) Clear(entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.byPage {
		if k.entryID == entryID {
			delete(r.byPage, k)
		}
	}
}
