package stamp

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
	"github.com/zarishnasir123/LawFlow-sub000/internal/render"
)

func testPDF(t *testing.T) []byte {
	t.Helper()
	data, err := render.DocumentPDF(bundle.Document{
		Title: "Settlement Agreement",
		StructuredContent: []bundle.Block{
			{Type: "paragraph", Text: "The parties agree to the terms set out below."},
		},
	})
	require.NoError(t, err)
	return data
}

func testSignaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 40))
	for x := 0; x < 120; x++ {
		img.Set(x, 20, color.RGBA{0, 0, 128, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEmbedProducesNewByteStream(t *testing.T) {
	pdf := testPDF(t)
	sig := testSignaturePNG(t)
	e := NewEngine()

	signed, err := e.Embed(context.Background(), pdf, 1, Rect{X: 100, Y: 620, Width: 200, Height: 80}, sig)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.NotEqual(t, pdf, signed)
	assert.True(t, bytes.HasPrefix(signed, []byte("%PDF")))

	// the signed stream is still a readable document with the same pages
	dims, err := PageDimensions(signed)
	require.NoError(t, err)
	assert.Len(t, dims, 1)

	// the input stream is untouched; each invocation yields an independent copy
	again, err := e.Embed(context.Background(), pdf, 1, Rect{X: 100, Y: 620, Width: 200, Height: 80}, sig)
	require.NoError(t, err)
	assert.NotEmpty(t, again)
}

func TestEmbedRejectsBadInput(t *testing.T) {
	pdf := testPDF(t)
	sig := testSignaturePNG(t)
	e := NewEngine()

	_, err := e.Embed(context.Background(), pdf, 1, Rect{X: 0, Y: 0, Width: 0, Height: 10}, sig)
	assert.ErrorIs(t, err, ErrEmptyRect)

	_, err = e.Embed(context.Background(), pdf, 5, Rect{X: 0, Y: 0, Width: 10, Height: 10}, sig)
	assert.ErrorIs(t, err, ErrBadPage)

	_, err = e.Embed(context.Background(), pdf, 1, Rect{X: 0, Y: 0, Width: 10, Height: 10}, []byte("not an image"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, pdf, 1, Rect{X: 0, Y: 0, Width: 10, Height: 10}, sig)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageDimensions(t *testing.T) {
	dims, err := PageDimensions(testPDF(t))
	require.NoError(t, err)
	require.Len(t, dims, 1)
	// A4 in points
	assert.InDelta(t, 595, dims[0].DocumentPageWidth, 1.0)
	assert.InDelta(t, 842, dims[0].DocumentPageHeight, 1.0)
}
