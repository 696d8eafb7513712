package service

import (
	"bufio"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"logwarden/core"
	"logwarden/detect"
	"logwarden/ingest"
	"logwarden/metrics"
)

// EventSink persists canonical events beyond the window buffer.
// Failures are logged and never fail ingestion.
type EventSink interface {
	InsertEvent(ctx context.Context, event *core.Event) error
}

// LineReader yields raw log lines for bulk ingestion. The file transport
// is a collaborator; the pipeline only consumes lines.
type LineReader interface {
	Read(p []byte) (int, error)
}

// Options tunes the pipeline
type Options struct {
	SweepInterval   time.Duration
	SamplerEnabled  bool
	SamplerInterval time.Duration
}

// Pipeline is the facade the API boundary talks to. It owns the event
// window, the alert store, the classifier and the correlation engine, and
// schedules the periodic work on a shared worker pool.
type Pipeline struct {
	window     *core.EventWindow
	alerts     *core.AlertStore
	classifier *detect.Classifier
	engine     *detect.Engine
	sink       EventSink
	pool       *core.WorkerPool
	sampler    *Sampler
	opts       Options
	logger     *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

// NewPipeline wires the core components together. sink may be nil.
func NewPipeline(
	window *core.EventWindow,
	alerts *core.AlertStore,
	classifier *detect.Classifier,
	engine *detect.Engine,
	sink EventSink,
	pool *core.WorkerPool,
	opts Options,
	logger *zap.SugaredLogger,
) *Pipeline {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Second
	}
	if opts.SamplerInterval <= 0 {
		opts.SamplerInterval = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		window:     window,
		alerts:     alerts,
		classifier: classifier,
		engine:     engine,
		sink:       sink,
		pool:       pool,
		sampler:    NewSampler(),
		opts:       opts,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the periodic correlation sweep and, when enabled, the demo
// sampler. Both run as worker pool tasks driven by tickers.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return
	}
	p.active = true

	p.pool.Start()
	p.schedule("correlation-sweep", p.opts.SweepInterval, p.runSweep)
	if p.opts.SamplerEnabled {
		p.schedule("sampler", p.opts.SamplerInterval, p.runSampler)
	}
	p.logger.Infow("Pipeline started",
		"sweep_interval", p.opts.SweepInterval,
		"sampler_enabled", p.opts.SamplerEnabled)
}

// Stop halts periodic work and drains the worker pool
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.active = false

	p.cancel()
	p.wg.Wait()
	p.pool.Stop()
	p.logger.Infow("Pipeline stopped")
}

// schedule runs task on every tick until the pipeline stops. The tick only
// submits to the pool; a slow task never blocks the ticker.
func (p *Pipeline) schedule(name string, interval time.Duration, task func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				if err := p.pool.Submit(task); err != nil {
					p.logger.Warnw("Failed to schedule periodic task", "task", name, "error", err)
				}
			}
		}
	}()
}

// Ingest normalizes one raw line and appends it to the window.
// Returns nil for a blank line (a no-op, not an error).
func (p *Pipeline) Ingest(rawLine, sourceLabel string) *core.Event {
	event := ingest.Normalize(rawLine, sourceLabel)
	if event == nil {
		return nil
	}
	p.admit(event)
	return event
}

// IngestEvent admits an externally-built canonical event, filling in the
// identity fields the caller left empty.
func (p *Pipeline) IngestEvent(event *core.Event) *core.Event {
	if event == nil {
		return nil
	}
	base := core.NewEvent()
	if event.EventID == "" {
		event.EventID = base.EventID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = base.Timestamp
	}
	if event.Metadata == nil {
		event.Metadata = base.Metadata
	}
	if !event.Level.IsValid() {
		event.Level = ingest.CanonicalLevel(string(event.Level))
	}
	p.admit(event)
	return event
}

func (p *Pipeline) admit(event *core.Event) {
	p.window.Append(event)
	metrics.EventsIngested.WithLabelValues(event.Source).Inc()

	if p.sink != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Errorw("Event sink panicked", "panic", r)
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.sink.InsertEvent(ctx, event); err != nil {
				metrics.SinkFailures.WithLabelValues("event").Inc()
				p.logger.Warnw("Event sink write failed", "event_id", event.EventID, "error", err)
			}
		}()
	}
}

// ProcessFile ingests raw lines from r until EOF or context cancellation.
// On cancellation the already-ingested prefix stays in the window; there is
// no rollback. Returns the number of lines ingested.
func (p *Pipeline) ProcessFile(ctx context.Context, r LineReader, sourceLabel string) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	processed := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			p.logger.Infow("Bulk ingestion abandoned",
				"source", sourceLabel,
				"lines_kept", processed)
			return processed, err
		}
		if event := p.Ingest(scanner.Text(), sourceLabel); event != nil {
			processed++
		}
	}
	if err := scanner.Err(); err != nil {
		return processed, err
	}

	p.logger.Infow("Bulk ingestion finished", "source", sourceLabel, "lines", processed)
	return processed, nil
}

// Search queries the event window
func (p *Pipeline) Search(filter core.SearchFilter) []*core.Event {
	return p.window.Search(filter)
}

// ListAlerts lists buffered alerts, newest first
func (p *Pipeline) ListAlerts(filter core.AlertFilter) []*core.Alert {
	return p.alerts.List(filter)
}

// AcknowledgeAlert marks an alert acknowledged
func (p *Pipeline) AcknowledgeAlert(id, by string) (*core.Alert, error) {
	return p.alerts.Acknowledge(id, by)
}

// ResolveAlert marks an alert resolved
func (p *Pipeline) ResolveAlert(id, by, notes string) (*core.Alert, error) {
	return p.alerts.Resolve(id, by, notes)
}

// Classify exposes the signature classifier for the API boundary
func (p *Pipeline) Classify(event *core.Event) core.ThreatLevel {
	return p.classifier.Classify(event)
}

// Stats summarizes the pipeline's current state
type Stats struct {
	CountsByLevel        map[string]int64 `json:"counts_by_level"`
	TotalEvents          int64            `json:"total_events"`
	WindowSize           int              `json:"window_size"`
	UnresolvedAlertCount int              `json:"unresolved_alert_count"`
	CriticalAlertCount   int              `json:"critical_alert_count"`
}

// Stats returns derived read-only aggregation over window and alert store
func (p *Pipeline) Stats() Stats {
	counts := p.window.CountsByLevel()
	byLevel := make(map[string]int64, len(counts))
	var total int64
	for level, n := range counts {
		byLevel[level.String()] = n
		total += n
	}

	return Stats{
		CountsByLevel:        byLevel,
		TotalEvents:          total,
		WindowSize:           p.window.Len(),
		UnresolvedAlertCount: p.alerts.CountUnresolved(),
		CriticalAlertCount:   p.alerts.CountCriticalUnresolved(),
	}
}

// Sweep runs one correlation pass immediately and applies the surviving
// alert requests to the store. Periodic ticks call this; tests may too.
func (p *Pipeline) Sweep() []*core.Alert {
	requests := p.engine.Sweep()
	created := make([]*core.Alert, 0, len(requests))
	for _, req := range requests {
		alert, err := p.alerts.Create(req.Type, req.Severity, req.Message, req.Source, req.RelatedEvents)
		if err != nil {
			p.logger.Warnw("Failed to create alert from sweep",
				"type", req.Type,
				"identifier", req.Identifier,
				"error", err)
			continue
		}
		created = append(created, alert)
	}
	return created
}

func (p *Pipeline) runSweep() {
	p.Sweep()
}

func (p *Pipeline) runSampler() {
	for _, event := range p.sampler.Generate() {
		p.IngestEvent(event)
	}
}
