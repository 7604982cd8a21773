// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/config"
	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/journal"
	"github.com/rtai-hli/gtc-hackathon/pkg/visualizer"
)

// runEvents replays journaled events. Only a persistent journal outlives the
// run that wrote it, so the memory driver is rejected.
func runEvents(ctx context.Context, global globalFlags, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	runID := fs.String("run", "", "Only events of this run id")
	agentName := fs.String("agent", "", "Only events from this agent")
	eventType := fs.String("type", "", "Only events of this type (thinking, action, observation, theory, challenge, decision)")
	since := fs.Duration("since", 0, "Only events newer than this duration")
	limit := fs.Int("limit", 0, "Maximum number of events (0 for all)")
	if err := fs.Parse(args); err != nil {
		return NewInvalidArgumentError("events", err.Error())
	}
	if fs.NArg() > 0 {
		return NewInvalidArgumentError("args", fmt.Sprintf("unexpected args: %v", fs.Args()))
	}

	filter := journal.Filter{RunID: *runID, Agent: *agentName, Limit: *limit}
	if *eventType != "" {
		t, err := core.ParseEventType(strings.ToLower(*eventType))
		if err != nil {
			return NewInvalidArgumentError("type", err.Error())
		}
		filter.Type = t
	}
	if *since > 0 {
		filter.Since = time.Now().Add(-*since)
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		return NewConfigError(err, configPath(global.ConfigArgs))
	}
	if strings.ToLower(cfg.Journal.Driver) != "sqlite" {
		we := errors.New(errors.CodeConfig, "events need a persistent journal", nil).
			WithContext("driver", cfg.Journal.Driver)
		return NewCLIError(we, "run with --set journal.driver=sqlite --set journal.dsn=file:warroom.db")
	}

	store, closeStore, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer closeStore()

	events, err := store.List(ctx, filter)
	if err != nil {
		return err
	}

	if global.JSON {
		for _, ev := range events {
			if err := writeJSONLine(stdout, eventRecord(ev)); err != nil {
				return err
			}
		}
		return nil
	}
	if len(events) == 0 {
		fmt.Fprintln(stdout, "no events")
		return nil
	}
	viz := visualizer.New(stdout, visualizer.WithSimple(true))
	for _, ev := range events {
		_ = viz.OnEvent(ctx, ev)
	}
	if !global.Simple {
		return viz.PrintSummary()
	}
	return nil
}
