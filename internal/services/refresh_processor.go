package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RefreshProcessorConfig holds configuration for the refresh processor
type RefreshProcessorConfig struct {
	// Interval is how often the snapshot is refreshed (default: 15m)
	Interval time.Duration

	// RunOnStart imports once before the first tick (default: true)
	RunOnStart bool

	// AfterImport, if set, runs after every successful import.
	AfterImport func()
}

// DefaultRefreshProcessorConfig returns sensible defaults
func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// RefreshProcessor imports on a fixed interval.
type RefreshProcessor struct {
	importer *ImportService
	config   RefreshProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshProcessor(importer *ImportService, config RefreshProcessorConfig) *RefreshProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshProcessorConfig().Interval
	}
	return &RefreshProcessor{importer: importer, config: config}
}

// Start begins the refresh loop. Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh processor started",
		"interval", p.config.Interval,
		"source", p.importer.SourceName())
	return nil
}

// Stop gracefully stops the processor and waits for the current run.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.refresh(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *RefreshProcessor) refresh(ctx context.Context) {
	// Errors are logged by the import service.
	if _, err := p.importer.Import(ctx); err != nil {
		slog.DebugContext(ctx, "Periodic refresh did not complete", "error", err)
		return
	}
	if p.config.AfterImport != nil {
		p.config.AfterImport()
	}
}
