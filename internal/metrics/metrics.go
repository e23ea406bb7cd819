// Package metrics exposes prometheus counters for membership operations and
// backfill migrations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics holds the collectors registered for one process
type Metrics struct {
	Registry *prometheus.Registry

	Operations     *prometheus.CounterVec
	Migrations     *prometheus.CounterVec
	MigrationWrite *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
}

// New creates a registry with the membership collectors plus the Go and
// process collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screentime",
			Name:      "membership_operations_total",
			Help:      "Membership operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		Migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screentime",
			Name:      "migration_runs_total",
			Help:      "Backfill migration runs by migration and outcome.",
		}, []string{"migration", "outcome"}),
		MigrationWrite: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screentime",
			Name:      "migration_records_fixed_total",
			Help:      "Records given a missing identifier by a backfill migration.",
		}, []string{"migration"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screentime",
			Name:      "approval_notifications_total",
			Help:      "Approval request notifications by outcome.",
		}, []string{"outcome"}),
	}

	m.Registry.MustRegister(
		m.Operations,
		m.Migrations,
		m.MigrationWrite,
		m.Notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation counts one membership operation. A nil receiver is a no-op.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveMigration counts one migration run and the records it fixed
func (m *Metrics) ObserveMigration(migration string, fixed int, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeError
	case fixed == 0:
		outcome = OutcomeSkipped
	}
	m.Migrations.WithLabelValues(migration, outcome).Inc()
	if fixed > 0 {
		m.MigrationWrite.WithLabelValues(migration).Add(float64(fixed))
	}
}

// ObserveNotification counts one approval notification attempt
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}
