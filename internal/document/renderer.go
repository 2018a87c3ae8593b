// Package document renders canonical submissions into fax-ready PDF files.
package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/westmount/faxbridge/internal/forms"
)

// ContentTypePDF is the content type of every rendered document
const ContentTypePDF = "application/pdf"

// fixedTimestamp pins the embedded creation/modification dates so rendering
// the same submission twice yields byte-identical output.
var fixedTimestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// titles maps a form type to the document heading the pharmacy expects
var titles = map[forms.FormType]string{
	forms.FormRefillOrder: "Prescription Order Form",
	forms.FormSignup:      "Patient Registration Form",
}

// footers maps a form type to the static footer line
var footers = map[forms.FormType]string{
	forms.FormRefillOrder: "Generated automatically from Webflow Order Form",
	forms.FormSignup:      "Generated automatically from Webflow Registration Form",
}

// fileNames maps a form type to the name used when dispatching the fax
var fileNames = map[forms.FormType]string{
	forms.FormRefillOrder: "refill_order.pdf",
	forms.FormSignup:      "patient_signup.pdf",
}

// Document is a rendered artifact owned by a single submission for its
// lifetime. ID is caller-visible and used as the self-hosted registry key.
type Document struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
}

// NewID returns a short random document identifier. The ID becomes a public
// URL segment when self-hosting, so it stays short; eight hex characters are
// plenty for entries that live minutes.
func NewID() string {
	return uuid.New().String()[:8]
}

// Renderer produces PDF documents from canonical submissions
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// FileName returns the dispatch file name for a form type
func FileName(ft forms.FormType) string {
	if name, ok := fileNames[ft]; ok {
		return name
	}
	return "document.pdf"
}

// Render produces a paginated PDF: title, a two-column table listing every
// canonical field for the form type in schema order, then a footer line.
// Absent optional fields render as the literal "N/A", never an empty cell.
func (r *Renderer) Render(sub *forms.Submission) (*Document, error) {
	fields := forms.Fields(sub.Form)
	if fields == nil {
		return nil, fmt.Errorf("no schema for form type %q", sub.Form)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(fixedTimestamp)
	pdf.SetModificationDate(fixedTimestamp)
	pdf.SetTitle(titles[sub.Form], false)
	pdf.SetMargins(13, 13, 13)
	pdf.SetAutoPageBreak(true, 13)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, titles[sub.Form], "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetDrawColor(128, 128, 128)
	const labelWidth, valueWidth, rowHeight = 64.0, 120.0, 8.0

	for _, field := range fields {
		value, ok := sub.Get(field.Name)
		if !ok {
			value = "N/A"
		}

		pdf.SetFillColor(211, 211, 211)
		pdf.CellFormat(labelWidth, rowHeight, field.Label, "1", 0, "L", true, 0, "")
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(valueWidth, rowHeight, value, "1", 1, "L", true, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, footers[sub.Form], "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output failed: %w", err)
	}

	return &Document{
		ID:          NewID(),
		Name:        FileName(sub.Form),
		ContentType: ContentTypePDF,
		Data:        buf.Bytes(),
	}, nil
}
