package bundle

import (
	"regexp"
	"strings"
)

var (
	tagRegex     = regexp.MustCompile(`<[^>]+>`)
	headingRegex = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	blockSplit   = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li)>|<br\s*/?>|\n{2,}`)
)

// ConvertLegacyMarkup turns legacy converter output (HTML-ish markup produced
// from office-format templates) into structured content blocks. Headings stay
// headings, everything else becomes paragraphs. Conversion is lazy by policy:
// callers invoke it on first edit, not on load.
func ConvertLegacyMarkup(markup string) []Block {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	headings := map[string]bool{}
	for _, m := range headingRegex.FindAllStringSubmatch(markup, -1) {
		if t := cleanText(m[1]); t != "" {
			headings[t] = true
		}
	}
	var blocks []Block
	for _, part := range blockSplit.Split(markup, -1) {
		t := cleanText(part)
		if t == "" {
			continue
		}
		typ := "paragraph"
		if headings[t] {
			typ = "heading"
		}
		blocks = append(blocks, Block{Type: typ, Text: t})
	}
	return blocks
}

// LegacyTitle extracts a display title from legacy markup: the first heading
// if present, else the first non-empty text line.
func LegacyTitle(markup string) string {
	if m := headingRegex.FindStringSubmatch(markup); m != nil {
		if t := cleanText(m[1]); t != "" {
			return t
		}
	}
	for _, b := range ConvertLegacyMarkup(markup) {
		if b.Text != "" {
			return b.Text
		}
	}
	return ""
}

func cleanText(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return strings.Join(strings.Fields(s), " ")
}
