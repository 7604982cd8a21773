// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rtai-hli/gtc-hackathon/pkg/config"
	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
	"github.com/rtai-hli/gtc-hackathon/pkg/mcp"
	"github.com/rtai-hli/gtc-hackathon/pkg/scenario"
)

func runMCP(ctx context.Context, global globalFlags, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return NewInvalidArgumentError("mcp", "usage: warroom mcp serve|list")
	}
	switch args[0] {
	case "serve":
		return runMCPServe(global, args[1:])
	case "list":
		return runMCPList(ctx, global, args[1:], stdout)
	default:
		return NewInvalidArgumentError("mcp", fmt.Sprintf("unknown mcp command %q", args[0]))
	}
}

func runMCPServe(global globalFlags, args []string) error {
	fs := flag.NewFlagSet("mcp serve", flag.ContinueOnError)
	addr := fs.String("http", "", "Serve streamable HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return NewInvalidArgumentError("mcp serve", err.Error())
	}

	scen, err := scenario.Resolve(global.Scenario)
	if err != nil {
		return err
	}
	srv := mcp.NewScenarioServer(scen, version)
	if *addr != "" {
		return srv.ServeHTTP(*addr)
	}
	return srv.ServeStdio()
}

type toolRow struct {
	Server      string `json:"server"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// runMCPList prints the tools of every configured server. With no servers
// configured it lists the scenario's own tools through an in-process server.
func runMCPList(ctx context.Context, global globalFlags, args []string, stdout io.Writer) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("args", fmt.Sprintf("unexpected args: %v", args))
	}
	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		return NewConfigError(err, configPath(global.ConfigArgs))
	}

	var rows []toolRow
	if len(cfg.MCP.Servers) == 0 {
		scen, err := scenario.Resolve(global.Scenario)
		if err != nil {
			return err
		}
		client, err := mcp.NewInProcessClient(mcp.NewScenarioServer(scen, version))
		if err != nil {
			return err
		}
		rows = listServerTools(ctx, "scenario:"+scen.Name, client, nil)
	}
	for _, name := range sortedServerNames(cfg) {
		client, err := newMCPClient(name, cfg.MCP.Servers[name])
		rows = listServerTools(ctx, name, client, err)
	}

	if global.JSON {
		return writeJSON(stdout, rows)
	}
	w := newTabWriter(stdout)
	writeRow(w, "SERVER", "TOOL", "DESCRIPTION")
	for _, r := range rows {
		if r.Error != "" {
			writeRow(w, r.Server, "ERROR", r.Error)
			continue
		}
		writeRow(w, r.Server, r.Name, r.Description)
	}
	return w.Flush()
}

func listServerTools(ctx context.Context, server string, client *mcp.Client, err error) []toolRow {
	if err != nil {
		return []toolRow{{Server: server, Error: err.Error()}}
	}
	defer client.Close()
	tools, err := client.ListTools(ctx)
	if err != nil {
		return []toolRow{{Server: server, Error: err.Error()}}
	}
	rows := make([]toolRow, 0, len(tools))
	for _, t := range tools {
		rows = append(rows, toolRow{Server: server, Name: t.Name, Description: t.Description})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// newMCPClient connects to one configured server.
func newMCPClient(name string, sc config.MCPServerConfig) (*mcp.Client, error) {
	switch strings.ToLower(sc.Transport) {
	case "", "stdio":
		if sc.Command == "" {
			return nil, errors.New(errors.CodeConfig, "mcp stdio server needs a command", nil).
				WithContext("server", name)
		}
		return mcp.NewClientWithStdio(sc.Command, sc.Args)
	case "http":
		if sc.URL == "" {
			return nil, errors.New(errors.CodeConfig, "mcp http server needs a url", nil).
				WithContext("server", name)
		}
		return mcp.NewClientWithStreamableHTTP(sc.URL)
	default:
		return nil, errors.New(errors.CodeConfig, "unknown mcp transport", nil).
			WithContext("server", name).
			WithContext("transport", sc.Transport)
	}
}

func sortedServerNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.MCP.Servers))
	for name := range cfg.MCP.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
