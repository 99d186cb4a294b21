package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/pagelens/internal/acquire"
	"github.com/sells-group/pagelens/internal/capture"
	"github.com/sells-group/pagelens/internal/dom"
	"github.com/sells-group/pagelens/internal/inference"
	"github.com/sells-group/pagelens/internal/ocr"
	"github.com/sells-group/pagelens/internal/pipeline"
	"github.com/sells-group/pagelens/internal/registry"
	"github.com/sells-group/pagelens/internal/store"
)

// pipelineEnv holds the initialized registry, store, and pipeline shared
// by the run/batch/serve commands.
type pipelineEnv struct {
	Registry *registry.Registry
	Store    store.Store // nil when persistence is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline builds the registry, acquisition strategy, inference
// chain, and optional store from configuration. Callers should defer
// env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	reg := registry.New()
	if cfg.Registry.FieldsFile != "" {
		if err := reg.LoadExtensions(cfg.Registry.FieldsFile); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	domExtractor := dom.NewExtractor(
		time.Duration(cfg.DOM.TimeoutSecs)*time.Second,
		cfg.DOM.UserAgent,
	)

	var capturer capture.Capturer
	if cfg.Capture.ServiceURL != "" {
		capturer = capture.NewServiceCapturer(
			cfg.Capture.ServiceURL,
			cfg.Capture.TempDir,
			time.Duration(cfg.Capture.TimeoutSecs)*time.Second,
		)
	} else {
		zap.L().Info("no capture service configured; ocr fallback unavailable")
	}

	engines := ocr.NewEngines(cfg.OCR)

	strategy := acquire.NewStrategy(domExtractor, capturer, engines, cfg.Acquire.MinContentChars)
	chain := inference.NewChain(cfg.Inference)

	pipe := pipeline.New(reg, strategy, chain, pipeline.Options{
		AcquireTimeout: time.Duration(cfg.Capture.TimeoutSecs+cfg.OCR.TimeoutSecs+cfg.DOM.TimeoutSecs) * time.Second,
		InferTimeout:   time.Duration(cfg.Inference.TimeoutSecs) * time.Second,
		Store:          st,
	})

	return &pipelineEnv{Registry: reg, Store: st, Pipeline: pipe}, nil
}
