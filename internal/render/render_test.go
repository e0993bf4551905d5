package render

import (
	"bytes"
	"testing"

	"github.com/zarishnasir123/LawFlow-sub000/internal/bundle"
)

func TestDocumentPDF(t *testing.T) {
	doc := bundle.Document{
		Title: "Engagement Letter",
		StructuredContent: []bundle.Block{
			{Type: "heading", Text: "Scope"},
			{Type: "paragraph", Text: "The firm will represent the client in the matter described below."},
		},
	}
	data, err := DocumentPDF(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestDocumentPDFLegacyMarkup(t *testing.T) {
	doc := bundle.Document{
		Title:        "Old Pleading",
		LegacyMarkup: "<p>Kept only until first edit.</p>",
	}
	data, err := DocumentPDF(doc)
	if err != nil {
		t.Fatalf("render legacy: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestDocumentPDFEmpty(t *testing.T) {
	if _, err := DocumentPDF(bundle.Document{}); err != ErrNoContent {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestDefaultTemplatesRender(t *testing.T) {
	tpls := DefaultTemplates()
	if len(tpls) == 0 {
		t.Fatal("no default templates")
	}
	for _, tpl := range tpls {
		if _, ok := TemplateByID(tpl.ID); !ok {
			t.Fatalf("template %s not resolvable by id", tpl.ID)
		}
		data, err := DocumentPDF(tpl)
		if err != nil {
			t.Fatalf("render %s: %v", tpl.ID, err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Fatalf("template %s did not render to PDF", tpl.ID)
		}
	}
}
