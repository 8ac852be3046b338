// Package engine runs application documents through the resolver and keeps
// the served application current. It owns the cross-cutting work around
// resolution: result caching, metrics, tracing, logging and snapshot
// history.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnera-dev/omnera/internal/cache"
	"github.com/omnera-dev/omnera/internal/document"
	"github.com/omnera-dev/omnera/internal/observability"
	"github.com/omnera-dev/omnera/internal/registry"
	"github.com/omnera-dev/omnera/internal/schema"
	"github.com/omnera-dev/omnera/internal/store"
	"github.com/omnera-dev/omnera/model"
)

// Reload statuses, also used as the reload metric label.
const (
	ReloadLoaded    = "loaded"
	ReloadUnchanged = "unchanged"
	ReloadRejected  = "rejected"
	ReloadFailed    = "failed"
)

// Engine resolves documents and serves the current application through a
// registry.
type Engine struct {
	registry *registry.Registry
	loader   *document.Loader
	path     string

	cache   cache.ResultCache
	store   store.SnapshotStore
	metrics *observability.Metrics
	logger  *zap.Logger

	// reloadMu serializes reloads so that two file events cannot install
	// applications out of order.
	reloadMu sync.Mutex
}

// Option configures optional dependencies.
type Option func(*Engine)

// WithCache sets the result cache used by Validate.
func WithCache(c cache.ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithStore sets the store that records every installed application.
func WithStore(s store.SnapshotStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine serving the document at path into reg.
func New(reg *registry.Registry, loader *document.Loader, path string, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		loader:   loader,
		path:     path,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the path of the served document.
func (e *Engine) Path() string {
	return e.path
}

// Resolve runs doc through the resolver. The only error is ctx's.
func (e *Engine) Resolve(ctx context.Context, doc *document.Document) (model.Result, error) {
	ctx, span := observability.StartSpan(ctx, "engine.resolve",
		observability.AttrChecksum.String(doc.Checksum),
		observability.AttrFormat.String(string(doc.Format)),
		observability.AttrSource.String(doc.Source),
	)

	start := time.Now()
	res, err := schema.ResolveContext(ctx, doc.Raw)
	elapsed := time.Since(start)
	if err != nil {
		e.recordResolution(observability.OutcomeCancelled, elapsed, nil)
		observability.EndSpanWithError(span, err)
		return model.Result{}, err
	}

	outcome := observability.OutcomeValid
	if !res.OK() {
		outcome = observability.OutcomeInvalid
	}
	e.recordResolution(outcome, elapsed, res.Issues())
	span.SetAttributes(
		observability.AttrOutcome.String(outcome),
		observability.AttrIssueCount.Int(len(res.Issues())),
	)
	span.End()

	observability.RequestLogger(ctx, e.logger).Debug("document resolved",
		zap.String("checksum", doc.Checksum),
		zap.String("outcome", outcome),
		zap.Int("issues", len(res.Issues())),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

// Validate parses data and resolves it without installing the result.
// Reports are cached by format and the checksum of data, since the same
// bytes can parse differently as JSON and YAML. A document that cannot be
// parsed is a BAD_REQUEST and is never cached.
func (e *Engine) Validate(ctx context.Context, data []byte, format document.Format) (*model.Report, error) {
	logger := observability.RequestLogger(ctx, e.logger)
	checksum := document.Checksum(data)
	key := cacheKey(format, checksum)

	if e.cache != nil {
		rep, found, err := e.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("result cache read failed", zap.String("key", key), zap.Error(err))
		case found:
			e.recordCache(true)
			return rep, nil
		}
		e.recordCache(false)
	}

	doc, err := e.loader.Parse(data, format)
	if err != nil {
		return nil, model.NewBadRequestError(err.Error())
	}
	res, err := e.Resolve(ctx, doc)
	if err != nil {
		return nil, err
	}
	rep, err := model.NewReport(res, checksum)
	if err != nil {
		return nil, fmt.Errorf("engine: render report: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, key, rep); err != nil {
			logger.Warn("result cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rep, nil
}

func cacheKey(format document.Format, checksum string) string {
	return string(format) + ":" + checksum
}

// ReloadResult describes one reload attempt.
type ReloadResult struct {
	Status     string       `json:"status"`
	Checksum   string       `json:"checksum,omitempty"`
	Warnings   model.Issues `json:"warnings,omitempty"`
	SnapshotID string       `json:"snapshot_id,omitempty"`
}

// Reload reads the document file and installs it when it resolves. A
// document with errors leaves the current application in place; the returned
// error is then a VALIDATION_ERROR envelope carrying every issue. An
// unchanged file is not resolved again.
func (e *Engine) Reload(ctx context.Context) (*ReloadResult, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	ctx, span := observability.StartSpan(ctx, "engine.reload",
		observability.AttrSource.String(e.path),
	)
	result, err := e.reload(ctx)
	if result != nil {
		span.SetAttributes(observability.AttrOutcome.String(result.Status))
	}
	observability.EndSpanWithError(span, err)
	return result, err
}

func (e *Engine) reload(ctx context.Context) (*ReloadResult, error) {
	logger := observability.RequestLogger(ctx, e.logger).With(zap.String("path", e.path))

	doc, err := e.loader.LoadFile(e.path)
	if err != nil {
		e.recordReload(ReloadFailed)
		logger.Error("document load failed", zap.Error(err))
		return &ReloadResult{Status: ReloadFailed}, fmt.Errorf("engine: %w", err)
	}

	if e.registry.Loaded() && e.registry.Checksum() == doc.Checksum {
		e.recordReload(ReloadUnchanged)
		logger.Debug("document unchanged", zap.String("checksum", doc.Checksum))
		return &ReloadResult{Status: ReloadUnchanged, Checksum: doc.Checksum}, nil
	}

	res, err := e.Resolve(ctx, doc)
	if err != nil {
		e.recordReload(ReloadFailed)
		return &ReloadResult{Status: ReloadFailed, Checksum: doc.Checksum}, err
	}

	if !res.OK() {
		e.recordReload(ReloadRejected)
		errs := res.Issues().Errors()
		for _, is := range res.Issues() {
			logger.Warn("document issue", observability.IssueFields(is)...)
		}
		logger.Warn("document rejected, keeping current application",
			zap.String("checksum", doc.Checksum),
			zap.Int("errors", len(errs)),
			zap.Bool("serving", e.registry.Loaded()),
		)
		return &ReloadResult{Status: ReloadRejected, Checksum: doc.Checksum}, model.NewValidationError(res.Issues())
	}

	app := res.Application()
	e.registry.Replace(app, doc.Checksum)
	e.recordReload(ReloadLoaded)
	if e.metrics != nil {
		e.metrics.SetEntitiesLoaded(app.EntityCount())
	}
	for _, is := range res.Warnings() {
		logger.Info("document warning", observability.IssueFields(is)...)
	}
	logger.Info("application loaded",
		zap.String("name", app.Name),
		zap.String("checksum", doc.Checksum),
		zap.Int("warnings", len(res.Warnings())),
	)

	result := &ReloadResult{Status: ReloadLoaded, Checksum: doc.Checksum, Warnings: res.Warnings()}
	result.SnapshotID = e.saveSnapshot(ctx, app, doc.Checksum, logger)
	return result, nil
}

// saveSnapshot records app in the store and returns the snapshot id, or ""
// when nothing was saved. Failures are logged; the application stays
// installed.
func (e *Engine) saveSnapshot(ctx context.Context, app *model.Application, checksum string, logger *zap.Logger) string {
	if e.store == nil {
		return ""
	}
	snap, err := store.NewSnapshot(app, checksum)
	if err == nil {
		err = e.store.Save(ctx, snap)
	}
	if err != nil {
		logger.Error("snapshot save failed", zap.String("checksum", checksum), zap.Error(err))
		return ""
	}
	return snap.ID.String()
}

// Snapshots returns up to limit installed applications, newest first.
func (e *Engine) Snapshots(ctx context.Context, limit int) ([]store.Snapshot, error) {
	if e.store == nil {
		return []store.Snapshot{}, nil
	}
	snaps, err := e.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("engine: list snapshots: %w", err)
	}
	return snaps, nil
}

// Snapshot returns one installed application by id.
func (e *Engine) Snapshot(ctx context.Context, id uuid.UUID) (store.Snapshot, error) {
	if e.store == nil {
		return store.Snapshot{}, model.NewNotFoundError(fmt.Sprintf("snapshot %q not found", id))
	}
	return e.store.Get(ctx, id)
}

func (e *Engine) recordResolution(outcome string, d time.Duration, issues model.Issues) {
	if e.metrics != nil {
		e.metrics.RecordResolution(outcome, d, issues)
	}
}

func (e *Engine) recordCache(hit bool) {
	if e.metrics == nil {
		return
	}
	if hit {
		e.metrics.RecordCacheHit()
	} else {
		e.metrics.RecordCacheMiss()
	}
}

func (e *Engine) recordReload(status string) {
	if e.metrics != nil {
		e.metrics.RecordDocumentReload(status)
	}
}
