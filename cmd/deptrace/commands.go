// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/deptrace/pkg/logging"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string
	logJSON    bool

	// appLogger is built in the root PersistentPreRun and closed after
	// the command finishes. Subcommands log through appLogger.Slog().
	appLogger *logging.Logger

	// --- Simulate flags ---
	simTasks       int
	simReads       int
	simWrites      int
	simScopeEvery  int
	simQueryEvery  int
	simCapacity    int
	simShadow      bool
	simStrict      bool
	simRate        float64
	simMetricsAddr string
	simHistory     int

	// --- Bench flags ---
	benchMessages   int
	benchCapacities []int

	rootCmd = &cobra.Command{
		Use:   "deptrace",
		Short: "Drive and observe the asynchronous dependency-graph engine",
		Long: `deptrace runs synthetic workloads against the dependency tracking
engine: a producer records reads, writes and task nesting into a
double-buffered channel, a worker goroutine folds the stream into a
dependency graph, and snapshots are taken through the query barrier.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(configPath); err != nil {
				return err
			}
			// Machine-readable logs when stderr is not a terminal,
			// unless the operator said otherwise.
			if !cmd.Flags().Changed("log-json") && !isatty.IsTerminal(os.Stderr.Fd()) {
				logJSON = true
			}
			appLogger = logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				Service: "deptrace",
				JSON:    logJSON,
				LogDir:  globalConfig.LogDir,
			})
			slog.SetDefault(appLogger.Slog())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLogger != nil {
				appLogger.Close()
			}
		},
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic recording workload and print the resulting graph",
		RunE:  runSimulate, // Defined in simulate.go
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Sweep buffer capacities and report producer throughput",
		RunE:  runBench, // Defined in bench.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("deptrace %s (commit %s, built %s)\n", version, commit, date)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a deptrace.yaml (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	simulateCmd.Flags().IntVar(&simTasks, "tasks", 1000, "number of tasks to record")
	simulateCmd.Flags().IntVar(&simReads, "reads", 8, "reads recorded per task")
	simulateCmd.Flags().IntVar(&simWrites, "writes", 2, "writes recorded per task")
	simulateCmd.Flags().IntVar(&simScopeEvery, "scope-every", 10, "wrap every Nth task in a suppression scope (0 = never)")
	simulateCmd.Flags().IntVar(&simQueryEvery, "query-every", 0, "take a snapshot every N tasks (0 = only at the end)")
	simulateCmd.Flags().IntVar(&simCapacity, "capacity", 0, "buffer capacity (0 = engine default)")
	simulateCmd.Flags().BoolVar(&simShadow, "shadow", false, "run the shadow validator on the producer side")
	simulateCmd.Flags().BoolVar(&simStrict, "strict", false, "reject reads and writes outside any task")
	simulateCmd.Flags().Float64Var(&simRate, "rate", 0, "max tasks per second (0 = unthrottled)")
	simulateCmd.Flags().StringVar(&simMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	simulateCmd.Flags().IntVar(&simHistory, "history", 16, "buffer handoff records to retain and print")

	benchCmd.Flags().IntVar(&benchMessages, "messages", 1_000_000, "messages recorded per capacity")
	benchCmd.Flags().IntSliceVar(&benchCapacities, "capacities", []int{64, 256, 1024, 4096}, "buffer capacities to sweep")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(versionCmd)
}
