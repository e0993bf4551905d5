// Package render composes bundle documents into PDF byte streams for the
// viewer and for signing.
package render

import (
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
)

var ErrNoContent = errors.New("render: document has no content")

// DocumentPDF renders a document's structured content to PDF bytes. When only
// legacy markup is available it is converted transiently for display; the
// stored document is left untouched (conversion is persisted on first edit,
// not on render).
func DocumentPDF(doc bundle.Document) ([]byte, error) {
	blocks := doc.StructuredContent
	if len(blocks) == 0 && doc.LegacyMarkup != "" {
		blocks = bundle.ConvertLegacyMarkup(doc.LegacyMarkup)
	}
	if len(blocks) == 0 && doc.Title == "" {
		return nil, ErrNoContent
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(20).
		WithRightMargin(20).
		WithTopMargin(20).
		Build()
	m := maroto.New(cfg)

	if doc.Title != "" {
		m.AddRows(text.NewRow(14, doc.Title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}))
	}
	for _, b := range blocks {
		switch b.Type {
		case "heading":
			m.AddRows(text.NewRow(10, b.Text, props.Text{Size: 13, Style: fontstyle.Bold, Top: 3}))
		default:
			m.AddRows(text.NewRow(rowHeight(b.Text), b.Text, props.Text{Size: 11, Top: 2}))
		}
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

// rowHeight gives long paragraphs room to wrap instead of overflowing the row.
func rowHeight(text string) float64 {
	lines := len(text)/90 + 1
	return float64(6*lines + 2)
}
