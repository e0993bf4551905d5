package render

import "github.com/zarishnasir123/LawFlow-sub000/internal/bundle"

// DefaultTemplates is the default template set a new case bundle is seeded
// from. Each becomes a regular editable document once added to a bundle.
func DefaultTemplates() []bundle.Document {
	return []bundle.Document{
		{
			ID:         "tpl-engagement-letter",
			Title:      "Engagement Letter",
			IsTemplate: true,
			StructuredContent: []bundle.Block{
				{Type: "heading", Text: "Engagement Letter"},
				{Type: "paragraph", Text: "This letter confirms the terms under which the firm will represent the client in the matter described below."},
				{Type: "heading", Text: "Scope of Representation"},
				{Type: "paragraph", Text: "The firm agrees to provide legal services limited to the matter identified in this engagement. Additional matters require a separate written agreement."},
				{Type: "heading", Text: "Fees and Billing"},
				{Type: "paragraph", Text: "Fees are billed monthly at the agreed hourly rates. Disbursements and filing costs are invoiced at cost."},
			},
		},
		{
			ID:         "tpl-power-of-attorney",
			Title:      "Power of Attorney",
			IsTemplate: true,
			StructuredContent: []bundle.Block{
				{Type: "heading", Text: "Power of Attorney"},
				{Type: "paragraph", Text: "The undersigned hereby appoints the named attorney-in-fact to act on their behalf in the matter identified below, with full power to execute documents and take all lawful actions related to it."},
				{Type: "paragraph", Text: "This power of attorney remains in force until revoked in writing."},
			},
		},
		{
			ID:         "tpl-settlement-agreement",
			Title:      "Settlement Agreement",
			IsTemplate: true,
			StructuredContent: []bundle.Block{
				{Type: "heading", Text: "Settlement Agreement"},
				{Type: "paragraph", Text: "The parties, wishing to resolve all claims between them arising out of the matter described below, agree to the following terms."},
				{Type: "heading", Text: "Release"},
				{Type: "paragraph", Text: "Upon performance of the obligations in this agreement, each party releases the other from all claims arising out of the matter."},
				{Type: "heading", Text: "Confidentiality"},
				{Type: "paragraph", Text: "The terms of this agreement are confidential and may be disclosed only as required by law."},
			},
		},
	}
}

// TemplateByID returns the default template with the given id.
func TemplateByID(id string) (bundle.Document, bool) {
	for _, t := range DefaultTemplates() {
		if t.ID == id {
			return t, true
		}
	}
	return bundle.Document{}, false
}
