package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/config"
	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/journal"
	"github.com/rtai-hli/gtc-hackathon/pkg/scenario"
)

const statusCheckTimeout = 10 * time.Second

type statusRow struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// runStatus checks what a run depends on without starting an investigation.
func runStatus(ctx context.Context, global globalFlags, stdout, stderr io.Writer) error {
	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		return NewConfigError(err, configPath(global.ConfigArgs))
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithTimeout(ctx, statusCheckTimeout)
	defer cancel()

	results, overall := statusChecks(cfg, global, logger).CheckAll(ctx)

	rows := make([]statusRow, 0, len(results))
	for _, r := range results {
		row := statusRow{Component: r.Component, Status: string(r.Status), Message: r.Message}
		if r.Error != nil {
			row.Error = r.Error.Error()
		}
		rows = append(rows, row)
	}

	if global.JSON {
		if err := writeJSON(stdout, map[string]any{"version": version, "status": overall, "components": rows}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(stdout, "warroom %s: %s\n\n", version, overall)
		w := newTabWriter(stdout)
		writeRow(w, "COMPONENT", "STATUS", "MESSAGE")
		for _, r := range rows {
			msg := r.Message
			if r.Error != "" {
				msg = r.Error
			}
			writeRow(w, r.Component, r.Status, msg)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if overall == core.HealthUnhealthy {
		return NewCLIError(errors.New(errors.CodeConfig, "war room is not ready", nil),
			"fix the unhealthy components listed above")
	}
	return nil
}

func statusChecks(cfg *config.Config, global globalFlags, logger *slog.Logger) *core.Health {
	h := core.NewHealth()

	h.Register("reasoning", core.HealthCheckFunc(func(context.Context) core.HealthResult {
		backend, err := createBackend(cfg, logger)
		switch {
		case err != nil:
			return core.HealthResult{Status: core.HealthUnhealthy, Error: err}
		case backend == nil:
			return core.HealthResult{Status: core.HealthDegraded, Message: "rule-based analysis only"}
		}
		return core.HealthResult{Message: fmt.Sprintf("%s %s at %s", cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL)}
	}))

	h.Register("journal", core.HealthCheckFunc(func(ctx context.Context) core.HealthResult {
		store, closeStore, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			return core.HealthResult{Error: err}
		}
		defer closeStore()
		if _, err := store.List(ctx, journal.Filter{Limit: 1}); err != nil {
			return core.HealthResult{Error: err}
		}
		return core.HealthResult{Message: cfg.Journal.Driver}
	}))

	h.Register("scenario", core.HealthCheckFunc(func(context.Context) core.HealthResult {
		scen, err := scenario.Resolve(global.Scenario)
		if err != nil {
			return core.HealthResult{Error: err}
		}
		return core.HealthResult{Message: fmt.Sprintf("%s (%d tools)", scen.Name, len(scen.Tools()))}
	}))

	for _, name := range sortedServerNames(cfg) {
		sc := cfg.MCP.Servers[name]
		h.Register("mcp:"+name, core.HealthCheckFunc(func(ctx context.Context) core.HealthResult {
			client, err := newMCPClient(name, sc)
			if err != nil {
				return core.HealthResult{Error: err}
			}
			defer client.Close()
			tools, err := client.ListTools(ctx)
			if err != nil {
				return core.HealthResult{Error: err}
			}
			return core.HealthResult{Message: fmt.Sprintf("%d tools", len(tools))}
		}))
	}
	return h
}
