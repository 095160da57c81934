// Package metrics holds Prometheus instruments shared by the launcher.  All
// collectors are registered with the default registry, so serving
// promhttp.Handler() is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_tasks_started_total",
			Help: "Tasks accepted by a worker.",
		})

	TasksRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_tasks_rejected_total",
			Help: "Start requests ignored because a task was already running.",
		})

	TasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_tasks_finished_total",
			Help: "Tasks that reached a terminal state, by state.",
		}, []string{"state"})

	TasksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_tasks_running",
			Help: "Tasks currently executing.",
		})

	UpdateChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_update_checks_total",
			Help: "Update checks, by outcome (current, outdated, skipped, error).",
		}, []string{"outcome"})

	BytesDownloaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_download_bytes_total",
			Help: "Bytes written to staging directories.",
		})

	GameLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_game_launches_total",
			Help: "Game process spawns, by result.",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		TasksStarted,
		TasksRejected,
		TasksFinished,
		TasksRunning,
		UpdateChecks,
		BytesDownloaded,
		GameLaunches,
	)
}
