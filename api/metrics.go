package api

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var objectIDPattern = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)

// RouteMetrics aggregates timings for one method and normalized path
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsCollector aggregates request metrics per route
type MetricsCollector struct {
	mu           sync.RWMutex
	routeMetrics map[string]*RouteMetrics
}

// NewMetricsCollector returns an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{routeMetrics: make(map[string]*RouteMetrics)}
}

// Record adds one finished request
func (mc *MetricsCollector) Record(method, path string, status int, start time.Time, duration time.Duration) {
	path = normalizeRoutePath(path)
	key := method + " " + path

	mc.mu.Lock()
	defer mc.mu.Unlock()

	metrics, exists := mc.routeMetrics[key]
	if !exists {
		metrics = &RouteMetrics{Method: method, Path: path, MinTime: duration}
		mc.routeMetrics[key] = metrics
	}
	metrics.Count++
	metrics.TotalTime += duration
	metrics.AvgTime = metrics.TotalTime / time.Duration(metrics.Count)
	metrics.LastRequest = start
	if duration < metrics.MinTime {
		metrics.MinTime = duration
	}
	if duration > metrics.MaxTime {
		metrics.MaxTime = duration
	}
	if status >= 400 {
		metrics.ErrorCount++
	}
}

// Routes returns a copy of every route's metrics, slowest average first
func (mc *MetricsCollector) Routes() []RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	routes := make([]RouteMetrics, 0, len(mc.routeMetrics))
	for _, m := range mc.routeMetrics {
		routes = append(routes, *m)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].AvgTime == routes[j].AvgTime {
			return routes[i].Method+routes[i].Path < routes[j].Method+routes[j].Path
		}
		return routes[i].AvgTime > routes[j].AvgTime
	})
	return routes
}

// normalizeRoutePath replaces object ids with {id} so one route aggregates together
//   - /api/v1/complaints/507f1f77bcf86cd799439011 -> /api/v1/complaints/{id}
func normalizeRoutePath(path string) string {
	path = objectIDPattern.ReplaceAllString(path, "/{id}$1")
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
