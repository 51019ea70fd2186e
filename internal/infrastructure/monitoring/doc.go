/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the host,
tracking HTTP requests, coordinator operations, lifecycle events, the side
service probe, and WebSocket connections.

# Features

- HTTP request metrics (latency, throughput, size)
- Coordinator operation counters and state gauges
- Lifecycle event counters (published, delivered, buffered)
- Side service probe state and duration
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.RecordOp("put")
	metrics.SetWindowsActive(3)

	// Time the side service probe
	timer := monitoring.NewTimer(metrics)
	// ... run probe ...
	timer.StopProbe()

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
