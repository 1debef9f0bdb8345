// AdBrain - Profit-aware ad intelligence for Shopify storefronts.
// Copyright (c) 2025 shopify-ad-intelligence
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/brain"
	"github.com/shopify-ad-intelligence/adbrain/internal/bus"
	"github.com/shopify-ad-intelligence/adbrain/internal/cache"
	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/executor"
	"github.com/shopify-ad-intelligence/adbrain/internal/repository"
	"github.com/shopify-ad-intelligence/adbrain/internal/rules"
	"github.com/shopify-ad-intelligence/adbrain/internal/trend"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("ADBRAIN_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting adbrain",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("ADBRAIN_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	slog.Info("rule engine initialized")

	// Initialize Trend Service
	trendSvc := trend.NewService(repo)
	slog.Info("trend service initialized")

	// Initialize Brain Composer. No LLM completer is wired by the core
	// runtime; dispatchers that carry an LLM client inject it here. The
	// composer stays on the rule-based path without one.
	lookback := time.Duration(cfg.Brain.LookbackDays) * 24 * time.Hour
	composer := brain.NewComposer(engine, trendSvc, nil, lookback)
	slog.Info("brain composer initialized", "lookback_days", cfg.Brain.LookbackDays)

	// Initialize async Executor
	execCfg := cfg.Executor
	if envTenants := os.Getenv("ADBRAIN_TENANTS"); envTenants != "" {
		execCfg.TenantIDs = splitTenants(envTenants)
	}

	exec := executor.NewExecutor(busImpl, repo, cacheImpl, engine, composer, execCfg)
	if err := exec.Start(execCfg); err != nil {
		slog.Error("failed to start executor", "error", err)
		os.Exit(1)
	}
	slog.Info("executor started", "tenant_count", len(execCfg.TenantIDs))

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := exec.Stop(); err != nil {
		slog.Error("failed to stop executor", "error", err)
	}

	slog.Info("adbrain shutdown complete")
}

// splitTenants parses the comma-separated tenant list from the environment.
func splitTenants(s string) []string {
	parts := strings.Split(s, ",")
	tenants := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tenants = append(tenants, t)
		}
	}
	return tenants
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🧠 ADBRAIN                   ║")
	fmt.Println("  ║     Profit-Aware Ad Intelligence          ║")
	fmt.Println("  ║      Every dollar accounted for.          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Println()
	fmt.Println("  Topics:")
	fmt.Printf("    %-28s - Ingest a daily metrics snapshot\n", domain.TopicSnapshotIngested)
	fmt.Printf("    %-28s - Triggered rule evaluations\n", domain.TopicRuleTriggered)
	fmt.Printf("    %-28s - Alerts for notification dispatch\n", domain.TopicAlert)
	fmt.Printf("    %-28s - Ranked recommendations\n", domain.TopicRecommendation)
	fmt.Println()
}
