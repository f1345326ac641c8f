package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/killrvideo/vector-acceptor/types"
)

const (
	MetricsNamespace = "vector_acceptor"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cases_total",
		Help:      "Count of executed cases",
	}, []string{
		"surface",
		"state",
	})

	caseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "case_duration_seconds",
		Help:      "Duration of a single case against the backend",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{
		"surface",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Number of cases per state in the last run",
	}, []string{
		"run_id",
		"state",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the last run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordCase(surface types.ApiSurface, state types.ResultState, duration time.Duration) {
	if !slices.Contains(types.AllResultStates, state) {
		log.Error("RecordCase - invalid state", "state", state)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "cases_total",
			"surface", surface,
			"state", state)
	}
	casesTotal.WithLabelValues(string(surface), string(state)).Inc()
	caseDuration.WithLabelValues(string(surface)).Observe(duration.Seconds())
}

func RecordRun(
	runID string,
	passed int,
	failed int,
	expectedFailures int,
	unexpectedPasses int,
	duration time.Duration,
) {
	runResults.WithLabelValues(runID, string(types.StatePass)).Set(float64(passed))
	runResults.WithLabelValues(runID, string(types.StateFail)).Set(float64(failed))
	runResults.WithLabelValues(runID, string(types.StateExpectedFail)).Set(float64(expectedFailures))
	runResults.WithLabelValues(runID, string(types.StateUnexpectedPass)).Set(float64(unexpectedPasses))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
