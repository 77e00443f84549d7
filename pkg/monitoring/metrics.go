package monitoring

import (
	"sync"
	"time"
)

// MetricsCollector handles collecting and storing system metrics
type MetricsCollector struct {
	mutex         sync.RWMutex
	responseTime  map[string][]time.Duration
	errorCount    map[string]int64
	providerCalls map[string]int64
	providerErrs  map[string]int64
	systemMetrics SystemMetrics
	startTime     time.Time
}

// SystemMetrics represents overall system performance metrics
type SystemMetrics struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	AverageLatency     time.Duration `json:"average_latency"`
	ErrorRate          float64       `json:"error_rate"`
	ThroughputRPS      float64       `json:"throughput_rps"`
	Uptime             time.Duration `json:"uptime"`
}

// NewMetricsCollector creates a new metrics collector instance
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		responseTime:  make(map[string][]time.Duration),
		errorCount:    make(map[string]int64),
		providerCalls: make(map[string]int64),
		providerErrs:  make(map[string]int64),
		startTime:     time.Now(),
	}
}

// RecordAPIRequest records metrics for an API request
func (mc *MetricsCollector) RecordAPIRequest(endpoint, method string, duration time.Duration, statusCode int) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	key := method + "_" + endpoint

	mc.systemMetrics.TotalRequests++

	mc.responseTime[key] = append(mc.responseTime[key], duration)

	// Limit response time history to last 1000 entries
	if len(mc.responseTime[key]) > 1000 {
		mc.responseTime[key] = mc.responseTime[key][1:]
	}

	if statusCode < 400 {
		mc.systemMetrics.SuccessfulRequests++
	} else {
		mc.systemMetrics.FailedRequests++
		mc.errorCount[key]++
	}

	mc.updateDerivedMetrics()
}

// RecordProviderCall records the outcome of one market-data provider request
func (mc *MetricsCollector) RecordProviderCall(endpoint string, duration time.Duration, err error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.providerCalls[endpoint]++
	if err != nil {
		mc.providerErrs[endpoint]++
	}

	mc.responseTime["provider_"+endpoint] = append(mc.responseTime["provider_"+endpoint], duration)
	if len(mc.responseTime["provider_"+endpoint]) > 1000 {
		mc.responseTime["provider_"+endpoint] = mc.responseTime["provider_"+endpoint][1:]
	}
}

// GetMetrics returns current system metrics
func (mc *MetricsCollector) GetMetrics() map[string]interface{} {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	system := mc.systemMetrics
	system.Uptime = time.Since(mc.startTime)

	return map[string]interface{}{
		"system_metrics":   system,
		"endpoint_metrics": mc.getEndpointMetrics(),
		"provider_metrics": mc.getProviderMetrics(),
		"timestamp":        time.Now(),
	}
}

// updateDerivedMetrics calculates derived metrics (called with lock held)
func (mc *MetricsCollector) updateDerivedMetrics() {
	if mc.systemMetrics.TotalRequests > 0 {
		mc.systemMetrics.ErrorRate = float64(mc.systemMetrics.FailedRequests) / float64(mc.systemMetrics.TotalRequests)
	}

	var totalDuration time.Duration
	var totalCount int64
	for _, durations := range mc.responseTime {
		for _, duration := range durations {
			totalDuration += duration
			totalCount++
		}
	}
	if totalCount > 0 {
		mc.systemMetrics.AverageLatency = totalDuration / time.Duration(totalCount)
	}

	uptime := time.Since(mc.startTime)
	if uptime.Seconds() > 0 {
		mc.systemMetrics.ThroughputRPS = float64(mc.systemMetrics.TotalRequests) / uptime.Seconds()
	}
}

// getEndpointMetrics returns per-endpoint metrics (called with lock held)
func (mc *MetricsCollector) getEndpointMetrics() map[string]interface{} {
	endpointMetrics := make(map[string]interface{})

	for endpoint, durations := range mc.responseTime {
		if len(durations) == 0 {
			continue
		}
		var total time.Duration
		for _, d := range durations {
			total += d
		}
		endpointMetrics[endpoint] = map[string]interface{}{
			"request_count":   len(durations),
			"average_latency": total / time.Duration(len(durations)),
			"error_count":     mc.errorCount[endpoint],
		}
	}

	return endpointMetrics
}

// getProviderMetrics returns provider call metrics (called with lock held)
func (mc *MetricsCollector) getProviderMetrics() map[string]interface{} {
	providerMetrics := make(map[string]interface{})

	for endpoint, calls := range mc.providerCalls {
		providerMetrics[endpoint] = map[string]interface{}{
			"call_count":  calls,
			"error_count": mc.providerErrs[endpoint],
		}
	}

	return providerMetrics
}
