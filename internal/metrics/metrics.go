package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// latencyBuckets are the histogram upper bounds in seconds.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}

type httpKey struct {
	path   string
	status int
}

type histogram struct {
	bounds []float64
	counts []int64 // cumulative per bound; observations land in every bucket >= value
	sum    float64
	count  int64
}

func newHistogram(bounds []float64) histogram {
	sorted := make([]float64, 0, len(bounds))
	seen := make(map[float64]bool, len(bounds))
	for _, b := range bounds {
		if !seen[b] {
			seen[b] = true
			sorted = append(sorted, b)
		}
	}
	sort.Float64s(sorted)
	return histogram{
		bounds: sorted,
		counts: make([]int64, len(sorted)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for i, ub := range h.bounds {
		if value <= ub {
			h.counts[i]++
		}
	}
	// implicit +Inf bucket = count
}

// Recorder collects in-process counters and a request latency histogram.
// State lives for the process lifetime and resets on restart.
type Recorder struct {
	mu             sync.Mutex
	httpRequests   map[httpKey]int64
	webhookResults map[string]int64
	latency        histogram
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		httpRequests:   make(map[httpKey]int64),
		webhookResults: make(map[string]int64),
		latency:        newHistogram(latencyBuckets),
	}
}

// IncHTTP increments the request counter for a (path, status) pair.
func (r *Recorder) IncHTTP(path string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.httpRequests[httpKey{path: path, status: status}]++
}

// IncWebhook increments the webhook outcome counter for a result label.
func (r *Recorder) IncWebhook(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhookResults[result]++
}

// ObserveLatency records a request latency in seconds. Negative values are
// clamped to zero.
func (r *Recorder) ObserveLatency(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency.observe(seconds)
}

// RenderText renders counters and the latency histogram in the Prometheus
// text exposition format, sorted by key for deterministic output.
func (r *Recorder) RenderText() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder

	b.WriteString("# HELP http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE http_requests_total counter\n")
	httpKeys := make([]httpKey, 0, len(r.httpRequests))
	for k := range r.httpRequests {
		httpKeys = append(httpKeys, k)
	}
	sort.Slice(httpKeys, func(i, j int) bool {
		if httpKeys[i].path != httpKeys[j].path {
			return httpKeys[i].path < httpKeys[j].path
		}
		return httpKeys[i].status < httpKeys[j].status
	})
	for _, k := range httpKeys {
		b.WriteString(`http_requests_total{path="` + escapeLabel(k.path) + `",status="` + strconv.Itoa(k.status) + `"} `)
		b.WriteString(strconv.FormatInt(r.httpRequests[k], 10))
		b.WriteByte('\n')
	}

	b.WriteString("# HELP webhook_requests_total Webhook requests by result\n")
	b.WriteString("# TYPE webhook_requests_total counter\n")
	results := make([]string, 0, len(r.webhookResults))
	for k := range r.webhookResults {
		results = append(results, k)
	}
	sort.Strings(results)
	for _, k := range results {
		b.WriteString(`webhook_requests_total{result="` + escapeLabel(k) + `"} `)
		b.WriteString(strconv.FormatInt(r.webhookResults[k], 10))
		b.WriteByte('\n')
	}

	b.WriteString("# HELP request_latency_seconds Request latency\n")
	b.WriteString("# TYPE request_latency_seconds histogram\n")
	for i, ub := range r.latency.bounds {
		b.WriteString(`request_latency_seconds_bucket{le="` + formatFloat(ub) + `"} `)
		b.WriteString(strconv.FormatInt(r.latency.counts[i], 10))
		b.WriteByte('\n')
	}
	b.WriteString(`request_latency_seconds_bucket{le="+Inf"} `)
	b.WriteString(strconv.FormatInt(r.latency.count, 10))
	b.WriteByte('\n')
	b.WriteString("request_latency_seconds_sum " + formatFloat(r.latency.sum) + "\n")
	b.WriteString("request_latency_seconds_count " + strconv.FormatInt(r.latency.count, 10) + "\n")

	return b.String()
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
