package main

import (
	"fmt"
	"time"

	"github.com/crucible-sim/crucible/internal/analysis"
	"github.com/crucible-sim/crucible/internal/config"
	"github.com/crucible-sim/crucible/internal/genai"
	"github.com/crucible-sim/crucible/internal/scenario"
	"github.com/crucible-sim/crucible/internal/simulation"
	"github.com/crucible-sim/crucible/internal/store"
)

// deps bundles the wired core components. Close releases the store.
type deps struct {
	cfg       *config.Config
	client    *genai.Client
	store     store.Store
	generator *scenario.Generator
	engine    *simulation.Engine
	analyzer  *analysis.Analyzer
}

func (d *deps) Close() error {
	return d.store.Close()
}

// buildDeps loads project config, reads the API key, and wires the client,
// store, and core services. Fails fast on a missing key or unknown backend.
func buildDeps() (*deps, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(genai.ClientOptions{
		APIKey:  apiKey,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.RequestTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	genCfg := genai.GenerateConfig{
		Temperature:     *cfg.Generation.Temperature,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
	}
	scoreCfg := genai.GenerateConfig{
		Temperature:     *cfg.Generation.ScoreTemperature,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
	}

	return &deps{
		cfg:       cfg,
		client:    client,
		store:     st,
		generator: scenario.NewGenerator(client, genCfg),
		engine:    simulation.NewEngine(st, client, genCfg, nil),
		analyzer:  analysis.NewAnalyzer(st, client, scoreCfg, nil),
	}, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileStore(cfg.Store.Dir)
	case "badger":
		return store.NewBadgerStore(cfg.Store.Dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
