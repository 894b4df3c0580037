// Package buildinfo tracks process start time and version string for the
// /health endpoints of both services.
package buildinfo

import (
	"runtime"
	"time"
)

// Version is set at build time via -ldflags; defaults to "dev".
var Version = "dev"

var startTime = time.Now()

// UptimeSeconds returns seconds elapsed since process start.
func UptimeSeconds() int64 {
	return int64(time.Since(startTime).Seconds())
}

// MemStats returns current runtime memory figures.
func MemStats() (rss, heapTotal, heapUsed, external uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys, m.HeapSys, m.HeapAlloc, m.HeapIdle
}
