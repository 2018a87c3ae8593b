package hosting

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/westmount/faxbridge/internal/document"
)

// SelfHost serves documents from this process. Publishing stores the bytes
// in the registry and returns a URL under the configured public base
// address; the entry stays servable until the orchestrator evicts it.
type SelfHost struct {
	registry *Registry
	baseURL  string
	logger   *zap.Logger
}

// NewSelfHost creates the self-hosted strategy. baseURL is the externally
// reachable address of this service, e.g. "https://faxbridge.example.com".
func NewSelfHost(registry *Registry, baseURL string, logger *zap.Logger) *SelfHost {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelfHost{
		registry: registry,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// Name identifies the strategy
func (s *SelfHost) Name() string { return "selfhost" }

// Publish registers the document and returns its serving URL
func (s *SelfHost) Publish(ctx context.Context, doc *document.Document) (*Reference, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("selfhost: public base URL not configured")
	}

	s.registry.Put(doc)
	url := fmt.Sprintf("%s/files/%s", s.baseURL, doc.ID)

	s.logger.Debug("document registered for self-hosted serving",
		zap.String("document_id", doc.ID),
		zap.String("url", url))

	return &Reference{URL: url, Service: s.Name()}, nil
}
