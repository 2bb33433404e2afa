package domain

import (
	"sort"
	"time"
)

// Metric names a numeric aggregate a phase condition can reference.
type Metric string

const (
	MetricProgress          Metric = "progress"
	MetricCravingAvg        Metric = "craving_level_avg"
	MetricCigarettesAvg     Metric = "avg_cigarettes"
	MetricMoodAvg           Metric = "avg_mood"
	MetricAnxietyAvg        Metric = "avg_anxiety"
	MetricConfidenceAvg     Metric = "avg_confident"
	MetricSmokeFreeDays     Metric = "smoke_free_days"
	MetricCigarettesTotal   Metric = "fm_cigarettes_total"
	MetricInitialCigarettes Metric = "initial_cigarettes"
	MetricNRTUsed           Metric = "nrt_used"
	MetricCigarettesTrend   Metric = "cigarettes_trend"
)

// ValidMetrics is the canonical set of metrics a condition may reference.
var ValidMetrics = map[Metric]bool{
	MetricProgress: true, MetricCravingAvg: true, MetricCigarettesAvg: true,
	MetricMoodAvg: true, MetricAnxietyAvg: true, MetricConfidenceAvg: true,
	MetricSmokeFreeDays: true, MetricCigarettesTotal: true, MetricInitialCigarettes: true,
	MetricNRTUsed: true, MetricCigarettesTrend: true,
}

// MetricsSnapshot is the aggregated member data for one phase window. A metric
// absent from Values is missing data, which is different from zero.
type MetricsSnapshot struct {
	MemberID string
	PhaseID  string
	TakenAt  time.Time
	Values   map[Metric]float64
}

// NewMetricsSnapshot returns an empty snapshot.
func NewMetricsSnapshot(memberID, phaseID string, takenAt time.Time) MetricsSnapshot {
	return MetricsSnapshot{
		MemberID: memberID,
		PhaseID:  phaseID,
		TakenAt:  takenAt,
		Values:   map[Metric]float64{},
	}
}

// Get returns the metric value and whether it is present.
func (s MetricsSnapshot) Get(m Metric) (float64, bool) {
	v, ok := s.Values[m]
	return v, ok
}

// Set stores a metric value.
func (s *MetricsSnapshot) Set(m Metric, v float64) {
	if s.Values == nil {
		s.Values = map[Metric]float64{}
	}
	s.Values[m] = v
}

// Names returns the present metric names in sorted order.
func (s MetricsSnapshot) Names() []Metric {
	names := make([]Metric, 0, len(s.Values))
	for m := range s.Values {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
