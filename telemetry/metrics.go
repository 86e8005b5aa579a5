package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// labels definition
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

var (
	// provider requests by outcome
	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatohead_provider_requests_total",
			Help: "Total number of provider requests",
		}, []string{"provider", "service", "result"},
	)

	// provider request latency
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "potatohead_provider_request_duration_seconds",
			Help:    "Duration of provider requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider", "service"},
	)

	// tokens consumed, as reported by the provider
	providerTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatohead_provider_tokens_total",
			Help: "Total number of tokens reported by providers",
		}, []string{"provider", "kind"},
	)

	// HTTP responses by status code
	httpResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatohead_http_responses_total",
			Help: "Total number of HTTP responses by status code",
		}, []string{"code"},
	)

	// transport-level retries
	transportRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "potatohead_transport_retries_total",
			Help: "Total number of retried HTTP sends after connection or timeout failures",
		},
	)

	// workflow task outcomes
	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatohead_tasks_finished_total",
			Help: "Total number of finished task attempts",
		}, []string{"status"},
	)

	// task latency
	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "potatohead_task_duration_seconds",
			Help:    "Duration of task attempts in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"status"},
	)

	// tasks currently executing
	tasksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "potatohead_tasks_running",
			Help: "Current number of running tasks",
		},
	)

	// workflow runs by outcome
	workflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "potatohead_workflow_runs_total",
			Help: "Total number of workflow runs",
		}, []string{"result"},
	)
)

func init() {
	prometheus.MustRegister(providerRequests)
	prometheus.MustRegister(providerRequestDuration)
	prometheus.MustRegister(providerTokens)
	prometheus.MustRegister(httpResponses)
	prometheus.MustRegister(transportRetries)
	prometheus.MustRegister(tasksFinished)
	prometheus.MustRegister(taskDuration)
	prometheus.MustRegister(tasksRunning)
	prometheus.MustRegister(workflowRuns)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder funcs

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}

// RecordProviderRequest records one provider call.
func RecordProviderRequest(provider, service string, duration time.Duration, err error) {
	providerRequests.WithLabelValues(provider, service, Result(err)).Inc()
	providerRequestDuration.WithLabelValues(provider, service).Observe(duration.Seconds())
}

// RecordTokens adds prompt and completion token counts.
func RecordTokens(provider string, prompt, completion int64) {
	if prompt > 0 {
		providerTokens.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		providerTokens.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// RecordHTTPResponse counts a response status code.
func RecordHTTPResponse(code int) {
	httpResponses.WithLabelValues(strconv.Itoa(code)).Inc()
}

// RecordTransportRetry counts one retried send.
func RecordTransportRetry() {
	transportRetries.Inc()
}

// RecordTaskFinished records one finished task attempt.
func RecordTaskFinished(status string, duration time.Duration) {
	tasksFinished.WithLabelValues(status).Inc()
	taskDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncTasksRunning increments the running tasks gauge.
func IncTasksRunning() {
	tasksRunning.Inc()
}

// DecTasksRunning decrements the running tasks gauge.
func DecTasksRunning() {
	tasksRunning.Dec()
}

// RecordWorkflowRun records a finished workflow run.
func RecordWorkflowRun(err error) {
	workflowRuns.WithLabelValues(Result(err)).Inc()
}
