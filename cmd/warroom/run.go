// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rtai-hli/gtc-hackathon/pkg/agent"
	"github.com/rtai-hli/gtc-hackathon/pkg/commander"
	"github.com/rtai-hli/gtc-hackathon/pkg/config"
	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/journal"
	"github.com/rtai-hli/gtc-hackathon/pkg/llm"
	"github.com/rtai-hli/gtc-hackathon/pkg/mcp"
	"github.com/rtai-hli/gtc-hackathon/pkg/resilience"
	"github.com/rtai-hli/gtc-hackathon/pkg/scenario"
	"github.com/rtai-hli/gtc-hackathon/pkg/telemetry"
	"github.com/rtai-hli/gtc-hackathon/pkg/visualizer"
	"github.com/rtai-hli/gtc-hackathon/providers/openai"
)

const rule = "================================================================================"

func runRun(ctx context.Context, global globalFlags, stdout, stderr io.Writer) error {
	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		return NewConfigError(err, configPath(global.ConfigArgs))
	}
	logger := telemetry.ConfigureSlog(stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("warroom", version, telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
		Output:             stderr,
	})
	if err != nil {
		return NewConfigError(err, configPath(global.ConfigArgs))
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	scen, err := scenario.Resolve(global.Scenario)
	if err != nil {
		return err
	}

	store, closeStore, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("journal close", "error", err)
		}
	}()

	backend, err := createBackend(cfg, logger)
	if err != nil {
		return err
	}

	var viz *visualizer.Visualizer
	var display core.Listener
	if global.JSON {
		display = jsonLines(stdout)
	} else {
		viz = visualizer.New(stdout, visualizer.WithSimple(global.Simple))
		display = viz
		printBanner(stdout, scen, cfg, backend)
	}

	listeners := []core.Listener{display, journal.Listener(store)}
	if em, err := telemetry.NewEventMetrics(); err != nil {
		logger.Warn("event metrics disabled", "error", err)
	} else {
		listeners = append(listeners, em)
	}

	agentOpts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithListeners(listeners...),
		agent.WithErrorMetrics(agent.InitErrorMetrics(ctx)),
	}
	if backend != nil {
		agentOpts = append(agentOpts, agent.WithBackend(backend))
	}

	cmd, err := commander.New(
		commander.WithAgentOptions(agentOpts...),
		commander.WithPauses(cfg.Commander.DelegationWait(), cfg.Commander.CollectionWait()),
		commander.WithEvidenceTools(evidenceTools(cfg)),
		commander.WithBreakerConfig(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Commander.BreakerFailures,
			Timeout:          cfg.Commander.BreakerCooldown(),
		}),
	)
	if err != nil {
		return err
	}

	if err := scen.Register(cmd.Tools()); err != nil {
		return err
	}
	closeClients, err := registerMCPTools(ctx, cfg, cmd, logger)
	defer closeClients()
	if err != nil {
		return err
	}

	res, err := investigate(ctx, cmd, scen.Incident, global, logger)
	if err != nil {
		return err
	}

	if global.JSON {
		return writeJSONLine(stdout, map[string]any{"result": resultRecord(res, scen)})
	}
	if err := viz.PrintSummary(); err != nil {
		return err
	}
	printResult(stdout, res, scen)
	return nil
}

// investigate runs the commander under the --timeout and --retries budget.
// Only recoverable failures such as timeouts are retried.
func investigate(ctx context.Context, cmd *commander.Commander, inc commander.Incident, global globalFlags, logger *slog.Logger) (*commander.Result, error) {
	rc := resilience.DefaultRetryConfig().WithMaxAttempts(global.Retries + 1)
	attempt := 0
	return resilience.DoWithResult(ctx, rc, func(ctx context.Context) (*commander.Result, error) {
		attempt++
		if attempt > 1 {
			logger.WarnContext(ctx, "retrying investigation", "attempt", attempt)
		}
		return resilience.WithTimeout(ctx, global.Timeout, func(ctx context.Context) (*commander.Result, error) {
			return cmd.Run(ctx, inc)
		})
	})
}

// createBackend builds the configured reasoning backend. A nil backend means
// every run concludes on the rule-based path.
func createBackend(cfg *config.Config, logger *slog.Logger) (llm.Backend, error) {
	defaults := llm.Options{
		Model:             cfg.LLM.Model,
		MinThinkingTokens: cfg.LLM.MinThinkingTokens,
		MaxThinkingTokens: cfg.LLM.MaxThinkingTokens,
		Temperature:       cfg.LLM.Temperature,
		TopP:              cfg.LLM.TopP,
		MaxTokens:         cfg.LLM.MaxTokens,
	}

	switch cfg.LLM.Provider {
	case "openai":
		p, err := openai.New(
			openai.WithAPIKey(cfg.LLM.APIKey),
			openai.WithBaseURL(cfg.LLM.BaseURL),
			openai.WithDefaults(defaults),
			openai.WithThinkingDirective(cfg.LLM.ThinkingDirective),
			openai.WithMaxRetries(cfg.LLM.MaxRetries),
		)
		if err != nil {
			if errors.CodeOf(err) == errors.CodeConfig {
				logger.Warn("no API key for the reasoning backend, using rule-based analysis",
					"base_url", cfg.LLM.BaseURL)
				return nil, nil
			}
			return nil, err
		}
		return p, nil
	case "ollama":
		return llm.NewOllama(cfg.LLM.BaseURL, defaults), nil
	case "none", "":
		return nil, nil
	default:
		return nil, errors.New(errors.CodeConfig, "unknown llm provider", nil).
			WithContext("provider", cfg.LLM.Provider)
	}
}

// evidenceTools merges configured area mappings over the scenario defaults.
func evidenceTools(cfg *config.Config) map[string]string {
	m := scenario.EvidenceTools()
	for area, tool := range cfg.Commander.EvidenceTools {
		m[area] = tool
	}
	return m
}

func registerMCPTools(ctx context.Context, cfg *config.Config, cmd *commander.Commander, logger *slog.Logger) (func(), error) {
	var clients []*mcp.Client
	closeAll := func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}
	for _, name := range sortedServerNames(cfg) {
		client, err := newMCPClient(name, cfg.MCP.Servers[name])
		if err != nil {
			return closeAll, err
		}
		clients = append(clients, client)
		registered, err := mcp.RegisterTools(ctx, cmd.Tools(), client)
		if err != nil {
			return closeAll, err
		}
		logger.Info("mcp tools registered", "server", name, "tools", registered)
	}
	return closeAll, nil
}

func jsonLines(w io.Writer) core.Listener {
	return core.ListenerFunc(func(_ context.Context, ev core.Event) error {
		return writeJSONLine(w, eventRecord(ev))
	})
}

func eventRecord(ev core.Event) map[string]any {
	m := ev.ToMap()
	if ev.RunID != "" {
		m["run_id"] = ev.RunID
	}
	return m
}

func resultRecord(res *commander.Result, scen *scenario.Scenario) map[string]any {
	m := res.ToMap()
	m["run_id"] = res.RunID
	m["path"] = res.Path
	m["scenario"] = scen.Name
	if scen.RootCause != nil {
		m["matches_expected"] = scen.Matches(res.RootCause)
	}
	return m
}

func printBanner(w io.Writer, scen *scenario.Scenario, cfg *config.Config, backend llm.Backend) {
	inc := scen.Incident
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "WAR ROOM: %s\n", orDash(inc.ID))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Symptom:   %s\n", inc.Symptom)
	fmt.Fprintf(w, "Service:   %s (%s)\n", inc.Service, inc.Severity)
	if inc.Impact != "" {
		fmt.Fprintf(w, "Impact:    %s\n", inc.Impact)
	}
	if backend != nil {
		fmt.Fprintf(w, "Reasoning: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	} else {
		fmt.Fprintln(w, "Reasoning: rule-based analysis")
	}
	fmt.Fprintln(w)
}

func printResult(w io.Writer, res *commander.Result, scen *scenario.Scenario) {
	timeline := make([]string, len(res.Timeline))
	for i, p := range res.Timeline {
		timeline[i] = string(p)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INVESTIGATION RESULT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Status:     %s\n", res.Status)
	fmt.Fprintf(w, "Root cause: %s\n", res.RootCause)
	fmt.Fprintf(w, "Confidence: %.0f%% (%s)\n", res.Confidence*100, res.Path)
	fmt.Fprintf(w, "Timeline:   %s\n", strings.Join(timeline, " -> "))
	fmt.Fprintf(w, "Run ID:     %s\n", res.RunID)
	if scen.RootCause != nil {
		verdict := "differs from"
		if scen.Matches(res.RootCause) {
			verdict = "matches"
		}
		fmt.Fprintf(w, "Expected:   %s (%s)\n", scen.RootCause.Description, verdict)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// configPath returns the --config value among config args, if any.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
	}
	return ""
}
