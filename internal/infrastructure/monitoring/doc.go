/*
Package monitoring provides Prometheus metrics for the shell server.

# Overview

Metrics cover tool calls (count, latency, rate-limit rejections), pty
process lifecycle (spawns, kills, timeouts), live sessions, tracked
background jobs, and history writes.

# Usage

	metrics := monitoring.NewMetrics()

	timer := monitoring.NewTimer(metrics, "execute_shell")
	// ... handle the call ...
	timer.Stop("success")

A nil *Metrics is accepted everywhere and records nothing.

# Metrics Endpoint

When METRICS_ADDR is set the server exposes:

	router := monitoring.Router(metrics)
	// GET /metrics  Prometheus exposition
	// GET /health   liveness probe
*/
package monitoring
