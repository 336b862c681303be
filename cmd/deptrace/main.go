// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// deptrace is the operational CLI for the asynchronous dependency-graph
// engine: synthetic workloads against a live tracking session, capacity
// sweeps, and a Prometheus metrics endpoint for watching the buffer ring
// under load.
//
// Run a workload:
//
//	deptrace simulate --tasks 500 --reads 16 --writes 4
//
// Watch the engine while it runs:
//
//	deptrace simulate --tasks 100000 --metrics-addr :9464
//	curl http://localhost:9464/metrics
//
// Sweep buffer capacities:
//
//	deptrace bench --messages 2000000
package main

import "log"

// Build-time identity, injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
