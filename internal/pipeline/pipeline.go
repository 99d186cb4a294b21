// Package pipeline orchestrates one extraction end to end: acquire page
// text, build the instruction, invoke the inference chain, and reconcile
// the output into an ExtractionResult. Stages are strictly sequential
// per URL; independent URLs run concurrently under a bounded limit.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pagelens/internal/acquire"
	"github.com/sells-group/pagelens/internal/inference"
	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/parse"
	"github.com/sells-group/pagelens/internal/prompt"
	"github.com/sells-group/pagelens/internal/registry"
	"github.com/sells-group/pagelens/internal/store"
)

// Acquirer is the text acquisition stage.
type Acquirer interface {
	Acquire(ctx context.Context, req model.ExtractionRequest) (*model.AcquiredText, error)
}

// Invoker is the inference stage.
type Invoker interface {
	Run(ctx context.Context, instruction string) (string, []model.InferenceAttempt, error)
}

// Options carries per-stage deadlines and persistence.
type Options struct {
	// AcquireTimeout bounds the acquisition stage per URL.
	AcquireTimeout time.Duration
	// InferTimeout bounds the whole inference chain per URL, on top of
	// the per-attempt timeouts the backends enforce themselves.
	InferTimeout time.Duration
	// Store, when non-nil, records each run and its attempts.
	Store store.Store
}

// Pipeline wires the stages together.
type Pipeline struct {
	registry *registry.Registry
	acquirer Acquirer
	invoker  Invoker
	opts     Options
}

// New creates a Pipeline.
func New(reg *registry.Registry, acq Acquirer, inv Invoker, opts Options) *Pipeline {
	return &Pipeline{registry: reg, acquirer: acq, invoker: inv, opts: opts}
}

// Run processes a single request. It always returns a well-formed
// result: acquisition failure is the only fatal condition, reported in
// the result's error field with empty values; inference exhaustion
// degrades to pattern-only extraction with a warning.
func (p *Pipeline) Run(ctx context.Context, req model.ExtractionRequest) model.ExtractionResult {
	specs := p.registry.ResolveAll(req.FieldNames())

	run := p.beginRun(ctx, req)

	text, err := p.acquireStage(ctx, req)
	if err != nil {
		result := model.ExtractionResult{
			URL:    req.URL,
			Values: map[string]any{},
			Error:  err.Error(),
		}
		zap.L().Error("pipeline: acquisition failed",
			zap.String("url", req.URL),
			zap.Error(err),
		)
		p.finishRun(ctx, run, &result)
		return result
	}

	instruction := prompt.Build(specs, *text)

	attempts, warn := p.inferStage(ctx, instruction)

	result := parse.Parse(attempts, specs, *text)
	result.URL = req.URL
	if warn != "" {
		result.Warnings = append([]string{warn}, result.Warnings...)
	} else {
		p.diagnosticStage(ctx, specs, *text, &result)
	}

	zap.L().Info("pipeline: extraction complete",
		zap.String("url", req.URL),
		zap.String("source", string(result.Source)),
		zap.Int("fields", len(result.Values)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("attempts", len(result.Attempts)),
	)

	p.finishRun(ctx, run, &result)
	return result
}

// RunAll processes independent URLs concurrently, bounded by
// maxConcurrent. Result order matches request order; cancellation stops
// scheduling but finished results are kept.
func (p *Pipeline) RunAll(ctx context.Context, reqs []model.ExtractionRequest, maxConcurrent int) []model.ExtractionResult {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	results := make([]model.ExtractionResult, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, req := range reqs {
		g.Go(func() error {
			if gCtx.Err() != nil {
				results[i] = model.ExtractionResult{
					URL:    req.URL,
					Values: map[string]any{},
					Error:  gCtx.Err().Error(),
				}
				return nil
			}
			results[i] = p.Run(gCtx, req)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (p *Pipeline) acquireStage(ctx context.Context, req model.ExtractionRequest) (*model.AcquiredText, error) {
	if p.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer cancel()
	}
	return p.acquirer.Acquire(ctx, req)
}

// inferStage runs the chain and translates exhaustion into a warning so
// the parser can proceed pattern-only.
func (p *Pipeline) inferStage(ctx context.Context, instruction string) ([]model.InferenceAttempt, string) {
	if p.opts.InferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.InferTimeout)
		defer cancel()
	}

	_, attempts, err := p.invoker.Run(ctx, instruction)
	if err == nil {
		return attempts, ""
	}

	if errors.Is(err, inference.ErrUnavailable) {
		zap.L().Warn("pipeline: all inference backends exhausted, using pattern fallback only")
		return attempts, "inference: no backend available; pattern fallback only"
	}

	zap.L().Warn("pipeline: inference aborted", zap.Error(err))
	return attempts, "inference: aborted: " + err.Error()
}

// diagnosticStage runs one follow-up inference narrowed to the fields the
// first pass left null. It only runs after a successful first pass, and
// its failures are non-fatal; the first-pass result stands.
func (p *Pipeline) diagnosticStage(ctx context.Context, specs []model.FieldSpec, text model.AcquiredText, result *model.ExtractionResult) {
	var missing []string
	var missingSpecs []model.FieldSpec
	for _, spec := range specs {
		if result.Values[spec.Name] == nil {
			missing = append(missing, spec.Name)
			missingSpecs = append(missingSpecs, spec)
		}
	}
	if len(missing) == 0 {
		return
	}

	if p.opts.InferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.InferTimeout)
		defer cancel()
	}

	instruction := prompt.BuildDiagnostic(specs, text, missing)
	_, attempts, err := p.invoker.Run(ctx, instruction)
	result.Attempts = append(result.Attempts, attempts...)
	if err != nil {
		zap.L().Debug("pipeline: diagnostic pass failed", zap.Error(err))
		return
	}

	second := parse.Parse(attempts, missingSpecs, text)
	filled := 0
	for name, val := range second.Values {
		if val != nil && result.Values[name] == nil {
			result.Values[name] = val
			filled++
		}
	}
	result.Warnings = append(result.Warnings, second.Warnings...)
	if filled > 0 {
		zap.L().Info("pipeline: diagnostic pass filled fields",
			zap.String("url", result.URL),
			zap.Strings("missing", missing),
			zap.Int("filled", filled),
		)
	}
}

func (p *Pipeline) beginRun(ctx context.Context, req model.ExtractionRequest) *model.Run {
	if p.opts.Store == nil {
		return nil
	}
	run := &model.Run{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Fields:    req.FieldNames(),
		Status:    model.RunPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := p.opts.Store.CreateRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: create run record failed", zap.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *model.Run, result *model.ExtractionResult) {
	if p.opts.Store == nil || run == nil {
		return
	}
	run.Result = result
	run.Status = model.RunSucceeded
	if result.Error != "" {
		run.Status = model.RunFailed
	}
	run.UpdatedAt = time.Now().UTC()
	if err := p.opts.Store.FinishRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: finish run record failed", zap.Error(err))
	}
}

// Ensure the concrete stage implementations satisfy the interfaces.
var (
	_ Acquirer = (*acquire.Strategy)(nil)
	_ Invoker  = (*inference.Chain)(nil)
)
