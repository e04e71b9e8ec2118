// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command synergy starts the SynergyOS API server.
//
// SynergyOS is a project and task management backend built around a
// task dependency graph, impact-weighted progress propagation, and an
// append-only time ledger. The server exposes the full API under
// /v1/synergy.
//
// Usage:
//
//	synergy serve
//	synergy serve --config /etc/synergy/synergy.yaml
//	SYNERGY_PORT=9000 synergy serve
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8900/v1/synergy/health
//
//	# Create a project
//	curl -X POST http://localhost:8900/v1/synergy/projects \
//	  -H "Content-Type: application/json" -H "X-User-ID: alice" \
//	  -d '{"name": "Apollo", "status": "active"}'
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synergyos/synergy/services/synergy"
)

var rootCmd = &cobra.Command{
	Use:   "synergy",
	Short: "SynergyOS project and task management server",
	Long: "SynergyOS tracks projects, task dependency graphs, weighted progress,\n" +
		"milestones, and time ledgers, with webhooks, notifications, message\n" +
		"boards, and AI assistance layered on top.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("synergy %s\n", synergy.ServiceVersion)
	},
}

func main() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
