// Package submission orchestrates one inbound form submission end to end:
// normalize the payload, render the PDF, publish it somewhere the fax
// provider can fetch it, dispatch the fax, then release temporary
// artifacts after a grace period.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/westmount/faxbridge/internal/document"
	"github.com/westmount/faxbridge/internal/fax"
	"github.com/westmount/faxbridge/internal/forms"
	"github.com/westmount/faxbridge/internal/hosting"
	"github.com/westmount/faxbridge/internal/infrastructure/postgres"
	"github.com/westmount/faxbridge/internal/infrastructure/redpanda"
	"github.com/westmount/faxbridge/internal/observability/metrics"
	"github.com/westmount/faxbridge/pkg/scheduler"
)

// Stage names the furthest point a submission reached
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StageRendered   Stage = "rendered"
	StagePublished  Stage = "published"
	StageDispatched Stage = "dispatched"
)

// Sender dispatches a published document to a fax destination
type Sender interface {
	Submit(ctx context.Context, destination string, content *hosting.Reference) *fax.DispatchResult
}

// EventPublisher publishes dispatch lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Config holds pipeline parameters
type Config struct {
	// Destination is the pharmacy fax number submissions are sent to
	Destination string
	// PipelineTimeout is the wall-clock ceiling for one submission
	PipelineTimeout time.Duration
	// GracePeriod is how long self-hosted content stays servable after
	// dispatch before eviction
	GracePeriod time.Duration
	// SaveDir is where permanently generated PDFs land
	SaveDir string
}

// Outcome reports how far a submission got and, once dispatched, the
// provider's verbatim result.
type Outcome struct {
	SubmissionID string
	Stage        Stage
	Dispatch     *fax.DispatchResult
}

// DispatchEvent is the payload published per dispatch outcome
type DispatchEvent struct {
	SubmissionID   string    `json:"submission_id"`
	FormType       string    `json:"form_type"`
	Destination    string    `json:"destination"`
	FaxID          string    `json:"fax_id,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	HostingService string    `json:"hosting_service"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Pipeline drives submissions through the fixed stage sequence. Shared
// collaborators (registry, cleanup scheduler) are injected so tests run
// without a real clock or network.
type Pipeline struct {
	config   Config
	renderer *document.Renderer
	strategy hosting.Strategy
	sender   Sender
	registry *hosting.Registry // nil unless self-hosting
	cleanup  *scheduler.Scheduler
	audit    *postgres.DispatchLog
	events   EventPublisher // nil when no broker configured
	metrics  *metrics.Metrics
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New creates a pipeline. registry may be nil when the hosting strategy
// does not serve content from this process; audit, events and metrics are
// optional.
func New(cfg Config, renderer *document.Renderer, strategy hosting.Strategy, sender Sender,
	registry *hosting.Registry, cleanup *scheduler.Scheduler, logger *zap.Logger) *Pipeline {
	if cfg.PipelineTimeout <= 0 {
		cfg.PipelineTimeout = 60 * time.Second
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:   cfg,
		renderer: renderer,
		strategy: strategy,
		sender:   sender,
		registry: registry,
		cleanup:  cleanup,
		logger:   logger,
		tracer:   otel.Tracer("submission-pipeline"),
	}
}

// WithAudit attaches the dispatch audit log
func (p *Pipeline) WithAudit(audit *postgres.DispatchLog) *Pipeline {
	p.audit = audit
	return p
}

// WithEvents attaches the dispatch event publisher
func (p *Pipeline) WithEvents(events EventPublisher) *Pipeline {
	p.events = events
	return p
}

// WithMetrics attaches application metrics
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Process runs the full sequence for one form payload. A ValidationError
// or PublishError comes back as the error; once the fax provider has been
// asked, the outcome carries the dispatch result verbatim and err is nil.
func (p *Pipeline) Process(ctx context.Context, ft forms.FormType, raw map[string]interface{}) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.PipelineTimeout)
	defer cancel()

	id := uuid.New().String()
	ctx, span := p.tracer.Start(ctx, "process_submission",
		trace.WithAttributes(
			attribute.String("submission_id", id),
			attribute.String("form_type", string(ft)),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		}
	}()

	outcome := &Outcome{SubmissionID: id, Stage: StageReceived}
	if p.metrics != nil {
		p.metrics.SubmissionsReceived.WithLabelValues(string(ft)).Inc()
	}

	sub, err := forms.Normalize(raw, ft)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ValidationFailures.WithLabelValues(string(ft)).Inc()
		}
		span.RecordError(err)
		return outcome, err
	}
	outcome.Stage = StageNormalized

	doc, err := p.renderer.Render(sub)
	if err != nil {
		// Rendering a valid submission has no expected failure mode;
		// anything here is an internal error.
		span.RecordError(err)
		return outcome, fmt.Errorf("render document: %w", err)
	}
	outcome.Stage = StageRendered
	if p.metrics != nil {
		p.metrics.DocumentsRendered.Inc()
	}

	result, err := p.dispatchDocument(ctx, id, string(ft), doc, p.config.Destination)
	if err != nil {
		span.RecordError(err)
		return outcome, err
	}
	outcome.Stage = StageDispatched
	outcome.Dispatch = result
	return outcome, nil
}

// DispatchFile sends an already-rendered PDF from disk. Used by the
// send-from-file endpoint; the file is structurally validated before any
// provider is contacted.
func (p *Pipeline) DispatchFile(ctx context.Context, path, destination, filename string) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.PipelineTimeout)
	defer cancel()

	id := uuid.New().String()
	ctx, span := p.tracer.Start(ctx, "dispatch_file",
		trace.WithAttributes(
			attribute.String("submission_id", id),
			attribute.String("path", path),
		))
	defer span.End()

	outcome := &Outcome{SubmissionID: id, Stage: StageReceived}

	if err := document.ValidateFile(path); err != nil {
		span.RecordError(err)
		return outcome, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		span.RecordError(err)
		return outcome, fmt.Errorf("read pdf: %w", err)
	}

	if filename == "" {
		filename = filepath.Base(path)
	}
	doc := &document.Document{
		ID:          document.NewID(),
		Name:        filename,
		ContentType: document.ContentTypePDF,
		Data:        data,
	}
	outcome.Stage = StageRendered

	result, err := p.dispatchDocument(ctx, id, "file", doc, destination)
	if err != nil {
		span.RecordError(err)
		return outcome, err
	}
	outcome.Stage = StageDispatched
	outcome.Dispatch = result
	return outcome, nil
}

// GeneratePDF renders a submission and saves it permanently, skipping
// hosting and dispatch entirely.
func (p *Pipeline) GeneratePDF(ctx context.Context, ft forms.FormType, raw map[string]interface{}) (string, error) {
	_, span := p.tracer.Start(ctx, "generate_pdf",
		trace.WithAttributes(attribute.String("form_type", string(ft))))
	defer span.End()

	sub, err := forms.Normalize(raw, ft)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	doc, err := p.renderer.Render(sub)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("render document: %w", err)
	}
	if p.metrics != nil {
		p.metrics.DocumentsRendered.Inc()
	}

	if err := os.MkdirAll(p.config.SaveDir, 0o750); err != nil {
		return "", fmt.Errorf("create save dir: %w", err)
	}

	stem := doc.Name[:len(doc.Name)-len(filepath.Ext(doc.Name))]
	path := filepath.Join(p.config.SaveDir,
		fmt.Sprintf("%s_%s.pdf", stem, time.Now().UTC().Format("20060102_150405")))
	if err := os.WriteFile(path, doc.Data, 0o640); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	p.logger.Info("pdf saved",
		zap.String("path", path),
		zap.String("form_type", string(ft)))
	return path, nil
}

// dispatchDocument publishes doc, submits the fax, records the outcome and
// schedules artifact cleanup. The dispatch result is returned verbatim,
// success or failure; only publish exhaustion comes back as an error.
func (p *Pipeline) dispatchDocument(ctx context.Context, id, formType string, doc *document.Document, destination string) (*fax.DispatchResult, error) {
	ref, err := p.strategy.Publish(ctx, doc)
	if err != nil {
		if p.metrics != nil {
			p.metrics.PublishFailures.Inc()
		}
		// The document may already be registered for serving; a failed
		// submission must not leave artifacts behind.
		p.evict(doc.ID)
		return nil, err
	}
	p.updateHostedGauge()

	result := p.sender.Submit(ctx, destination, ref)

	if p.metrics != nil {
		if result.Success {
			p.metrics.FaxesDispatched.Inc()
		} else {
			p.metrics.FaxesFailed.Inc()
		}
	}

	p.recordAudit(ctx, id, formType, result)
	p.publishEvent(ctx, id, formType, ref, result)
	p.scheduleCleanup(doc.ID)

	return result, nil
}

// recordAudit appends to the dispatch log; audit failures never fail a fax
func (p *Pipeline) recordAudit(ctx context.Context, id, formType string, result *fax.DispatchResult) {
	rec := &postgres.DispatchRecord{
		SubmissionID: id,
		FormType:     formType,
		Destination:  result.Destination,
		Stage:        string(StageDispatched),
		Success:      result.Success,
	}
	if result.FaxID != "" {
		rec.FaxID = &result.FaxID
	}
	if result.Err != "" {
		rec.Error = &result.Err
	}
	if result.RawResponse != nil {
		if payload, err := json.Marshal(result.RawResponse); err == nil {
			rec.ProviderPayload = payload
		}
	}
	if err := p.audit.Record(ctx, rec); err != nil {
		p.logger.Warn("dispatch audit failed", zap.String("submission_id", id), zap.Error(err))
	}
}

// publishEvent emits the dispatch outcome; best effort
func (p *Pipeline) publishEvent(ctx context.Context, id, formType string, ref *hosting.Reference, result *fax.DispatchResult) {
	if p.events == nil {
		return
	}

	event := DispatchEvent{
		SubmissionID:   id,
		FormType:       formType,
		Destination:    result.Destination,
		FaxID:          result.FaxID,
		Success:        result.Success,
		Error:          result.Err,
		HostingService: ref.Service,
		OccurredAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.events.Publish(ctx, redpanda.TopicFaxDispatches, id, payload); err != nil {
		p.logger.Warn("dispatch event publish failed", zap.String("submission_id", id), zap.Error(err))
	}
}

// scheduleCleanup defers eviction of self-hosted content by the grace
// period. The provider fetches content asynchronously after accepting a
// fax; there is no completion signal, so the delay is a heuristic. A fetch
// arriving after eviction gets a 404, which is accepted rather than
// papered over with a longer window.
func (p *Pipeline) scheduleCleanup(docID string) {
	if p.registry == nil || p.cleanup == nil {
		return
	}
	p.cleanup.Schedule("evict:"+docID, p.config.GracePeriod, func() {
		p.evict(docID)
	})
}

// evict removes self-hosted content immediately; safe to call twice
func (p *Pipeline) evict(docID string) {
	if p.registry == nil {
		return
	}
	if p.registry.Evict(docID) {
		p.logger.Debug("hosted content evicted", zap.String("document_id", docID))
	}
	p.updateHostedGauge()
}

func (p *Pipeline) updateHostedGauge() {
	if p.metrics != nil && p.registry != nil {
		p.metrics.HostedDocuments.Set(float64(p.registry.Len()))
	}
}
