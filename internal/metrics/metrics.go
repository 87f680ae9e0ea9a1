package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SessionsStarted counts exam sessions created, by mode.
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_sessions_started_total",
			Help: "Total number of exam sessions started",
		},
		[]string{"mode"},
	)

	// Submissions counts submitted sessions by outcome status and trigger.
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_submissions_total",
			Help: "Total number of exam submissions",
		},
		[]string{"status", "trigger"},
	)

	// TabSwitchEvents counts counted (non-debounced) visibility violations.
	TabSwitchEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hireflow_tab_switch_events_total",
			Help: "Total number of counted tab-switch violations",
		},
	)

	// Terminations counts proctoring terminations.
	Terminations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hireflow_terminations_total",
			Help: "Total number of sessions terminated by proctoring",
		},
	)

	// CodeRuns counts recorded code executions, by source.
	CodeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_code_runs_total",
			Help: "Total number of recorded code executions",
		},
		[]string{"source"},
	)

	// Exports counts applicant Excel exports by outcome.
	Exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_exports_total",
			Help: "Total number of applicant exports",
		},
		[]string{"status"},
	)

	// GradingDuration measures scoring time at submission.
	GradingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "hireflow_grading_duration_seconds",
			Help: "Time spent grading a submission",
		},
	)
)

// InitPrometheus registers all application metrics.
func InitPrometheus() {
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(Submissions)
	prometheus.MustRegister(TabSwitchEvents)
	prometheus.MustRegister(Terminations)
	prometheus.MustRegister(CodeRuns)
	prometheus.MustRegister(Exports)
	prometheus.MustRegister(GradingDuration)
}
