// Package hosting makes rendered documents reachable by the fax provider.
// The provider fetches fax content by URL, so every dispatch needs a public
// address for bytes that only exist in this process. Two strategies cover
// that: an ordered fallback chain over free hosting services, and a
// self-hosted registry served from this process.
package hosting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/westmount/faxbridge/internal/document"
)

// Reference points at published content. The URL is dereferenceable the
// moment a Reference is returned; there is no partial or async publish.
type Reference struct {
	URL       string
	Service   string
	ExpiresAt *time.Time
}

// Strategy publishes a document and returns a reachable reference
type Strategy interface {
	// Name identifies the strategy in logs and results
	Name() string
	// Publish makes doc retrievable and returns its reference
	Publish(ctx context.Context, doc *document.Document) (*Reference, error)
}

// Attempt records one failed provider attempt inside a PublishError
type Attempt struct {
	Service string
	Err     error
}

// PublishError means every configured strategy failed. Each attempt keeps
// its own failure reason for operator diagnosis.
type PublishError struct {
	Attempts []Attempt
}

func (e *PublishError) Error() string {
	if len(e.Attempts) == 0 {
		return "publish failed: no hosting providers configured"
	}
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Service, a.Err))
	}
	return "all hosting providers failed: " + strings.Join(reasons, "; ")
}
