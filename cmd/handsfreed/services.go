package main

import (
	"path/filepath"
	"runtime"
	"time"

	"handsfree/internal/config"
	"handsfree/internal/confirm"
	"handsfree/internal/controller"
	"handsfree/internal/engine"
	"handsfree/internal/gesture"
	"handsfree/internal/llm"
	"handsfree/internal/osexec"
	"handsfree/internal/resolve"
	"handsfree/internal/router"
	"handsfree/internal/webexec"
)

// services bundles every long-lived singleton the CLI subcommands need:
// the process-wide confirmation store, resolver, web executor, router,
// engine, and controller.
type services struct {
	cfg      *config.Config
	confirms *confirm.Store
	resolver *resolve.Resolver
	chain    *resolve.Chain
	executor *webexec.Executor
	rtr      *router.Router
	eng      *engine.Engine
	ctrl     *controller.Controller
	gestures *gesture.Store
}

// buildServices wires the full service graph, leaves first: cache,
// resolver, fallback chain, web executor, OS backends, router, interpreter,
// engine, controller.
func buildServices() (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Workspace == "" {
		cfg.Workspace = workspace
	}

	cache := resolve.NewCache(cfg.Cache.MaxSize, time.Duration(cfg.Cache.TTLSecs)*time.Second)
	resolver := resolve.NewResolver(resolve.ResolverConfig{
		Headless:          cfg.Browser.Headless,
		ProfileDir:        cfg.Browser.ResolverProfileDir,
		NavigationTimeout: cfg.Browser.NavigationTimeout(),
		SearchEngineURL:   cfg.Browser.SearchEngineURL,
	}, cache)

	chain := resolve.NewChain(resolver, resolve.FallbackConfig{
		EnableSearchFallback:   true,
		EnableHomepageFallback: true,
		SearchEngineURL:        cfg.Browser.SearchEngineURL,
	})

	executor := webexec.NewExecutor(webexec.Config{
		Headless:          cfg.Browser.Headless,
		ProfileDir:        cfg.Browser.ExecutorProfileDir,
		NavigationTimeout: cfg.Browser.NavigationTimeout(),
		SearchEngineURL:   cfg.Browser.SearchEngineURL,
		ScreenshotDir:     cfg.Browser.ScreenshotDir,
		EnableFormFilling: cfg.Browser.EnableFormFilling,
	}, chain)

	osBackend := osexec.New(runtime.GOOS)
	rtr := router.New(osBackend, osexec.NewGenericBackend(), executor)

	interp := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.TimeoutDuration())
	confirms := confirm.New()
	eng := engine.New(interp, confirms, rtr, cfg.Safety.SensitivePattern, cfg.Safety.AlwaysConfirmIntents)

	gestures, err := gesture.Load(
		filepath.Join(cfg.Workspace, ".handsfree", "hotkeys.json"),
		filepath.Join(cfg.Workspace, ".handsfree", "gestures.json"),
	)
	if err != nil {
		return nil, err
	}

	ctrl := controller.New(eng, gestures, nil, controller.Config{
		QueueCapacity:  cfg.Controller.QueueCapacity,
		CommandTimeout: cfg.Controller.CommandTimeout(),
	})

	return &services{
		cfg:      cfg,
		confirms: confirms,
		resolver: resolver,
		chain:    chain,
		executor: executor,
		rtr:      rtr,
		eng:      eng,
		ctrl:     ctrl,
		gestures: gestures,
	}, nil
}

// Close tears down both browser-backed singletons.
func (s *services) Close() {
	_ = s.resolver.Close()
	_ = s.executor.Close()
}
