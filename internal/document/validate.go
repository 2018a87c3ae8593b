package document

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ValidateFile checks that the file at path is structurally a readable PDF.
// Used on the send-from-file path so a corrupt upload is rejected before any
// hosting or dispatch call is made. Relaxed mode matches what fax providers
// accept in practice.
func ValidateFile(path string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("not a valid PDF: %w", err)
	}
	return nil
}
