// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Command warroom runs an incident investigation and narrates the commander's
// reasoning as it happens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultTimeout = 2 * time.Minute

type globalFlags struct {
	ConfigArgs []string
	Scenario   string
	Timeout    time.Duration
	Retries    int
	Simple     bool
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		exitWith(NewInvalidArgumentError("flags", err.Error()), false)
	}
	if global.Help {
		printUsage(os.Stdout)
		return
	}

	cmd := "run"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		ensureNoArgs(args, global.JSON)
		err = runRun(ctx, global, os.Stdout, os.Stderr)
	case "events":
		err = runEvents(ctx, global, args, os.Stdout)
	case "mcp":
		err = runMCP(ctx, global, args, os.Stdout)
	case "status":
		ensureNoArgs(args, global.JSON)
		err = runStatus(ctx, global, os.Stdout, os.Stderr)
	case "version":
		printVersion(os.Stdout)
	case "help":
		printUsage(os.Stdout)
	default:
		err = NewInvalidArgumentError("command", fmt.Sprintf("unknown command %q", cmd))
	}
	if err != nil {
		exitWith(err, global.JSON)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{Timeout: defaultTimeout}

	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("missing value for %s", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		name, inline, hasInline := strings.Cut(arg, "=")
		switch name {
		case "-h", "--help":
			flags.Help = true
			return flags, nil, nil
		case "--json":
			flags.JSON = true
		case "--simple":
			flags.Simple = true
		case "--config", "--set":
			if hasInline {
				flags.ConfigArgs = append(flags.ConfigArgs, arg)
				continue
			}
			v, err := value(i, name)
			if err != nil {
				return flags, nil, err
			}
			flags.ConfigArgs = append(flags.ConfigArgs, name, v)
			i++
		case "--scenario", "--timeout", "--retries":
			v := inline
			if !hasInline {
				var err error
				if v, err = value(i, name); err != nil {
					return flags, nil, err
				}
				i++
			}
			if err := flags.set(name, v); err != nil {
				return flags, nil, err
			}
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func (f *globalFlags) set(name, v string) error {
	switch name {
	case "--scenario":
		f.Scenario = v
	case "--timeout":
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		f.Timeout = d
	case "--retries":
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid --retries %q", v)
		}
		f.Retries = n
	}
	return nil
}

func writeJSON(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func writeJSONLine(w io.Writer, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(append(payload, '\n'))
	return err
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

func writeRow(w *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, version)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `War Room: live incident investigation

Usage:
  warroom [global flags] [command] [args]

Global flags:
  --config <path>      YAML configuration file
  --set key=value      Override config (repeatable)
  --scenario <name>    Built-in scenario name or incident file (default latency_spike)
  --simple             One line per event
  --json               JSON output
  --timeout <dur>      Investigation timeout (default 2m, 0 disables)
  --retries <n>        Retries for recoverable run failures (default 0)

Commands:
  run                  Investigate the scenario's incident (default)
  events [--run <id>] [--agent <name>] [--type <type>] [--since <dur>] [--limit N]
                       List journaled events (needs journal.driver=sqlite)
  mcp serve [--http <addr>]
                       Serve the scenario's tools over MCP (stdio by default)
  mcp list             List tools offered by configured MCP servers
  status               Check the reasoning backend, journal, scenario and MCP servers
  version
`)
}

func ensureNoArgs(args []string, asJSON bool) {
	if len(args) > 0 {
		exitWith(NewInvalidArgumentError("args", fmt.Sprintf("unexpected args: %v", args)), asJSON)
	}
}
