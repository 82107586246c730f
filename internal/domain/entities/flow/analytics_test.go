package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceScoreAndGrade(t *testing.T) {
	best := &Analytics{
		ConversionRate:       75,
		AvgCompletionSeconds: 90,
		AbandonmentRate:      10,
	}
	assert.Equal(t, 100.0, best.PerformanceScore())
	assert.Equal(t, "A", best.Grade())

	worst := &Analytics{
		ConversionRate:       5,
		AvgCompletionSeconds: 1200,
		AbandonmentRate:      95,
	}
	assert.Equal(t, 20.0, worst.PerformanceScore())
	assert.Equal(t, "F", worst.Grade())

	// 0.4×80 + 0.3×80 + 0.3×80 = 80 → B
	middling := &Analytics{
		ConversionRate:       55,
		AvgCompletionSeconds: 200,
		AbandonmentRate:      35,
	}
	assert.InDelta(t, 80.0, middling.PerformanceScore(), 1e-9)
	assert.Equal(t, "B", middling.Grade())
}

func TestGradeBoundaries(t *testing.T) {
	cases := []struct {
		name        string
		conversion  float64
		seconds     float64
		abandonment float64
		grade       string
	}{
		{"all top buckets", 70, 100, 15, "A"},
		{"all second buckets", 50, 250, 30, "B"},
		{"all third buckets", 30, 500, 50, "C"},
		{"mixed mid-range", 50, 500, 50, "C"}, // 0.4×80 + 0.3×60 + 0.3×60 = 68
		{"mixed low", 30, 700, 70, "D"},       // 0.4×60 + 0.3×40 + 0.3×40 = 48
		{"all fourth buckets", 15, 700, 70, "F"},
	}
	for _, tc := range cases {
		a := &Analytics{
			ConversionRate:       tc.conversion,
			AvgCompletionSeconds: tc.seconds,
			AbandonmentRate:      tc.abandonment,
		}
		assert.Equal(t, tc.grade, a.Grade(), tc.name)
	}
}

func TestScoreMonotonicInConversionRate(t *testing.T) {
	previous := -1.0
	for rate := 0.0; rate <= 100; rate += 5 {
		a := &Analytics{ConversionRate: rate, AvgCompletionSeconds: 300, AbandonmentRate: 40}
		score := a.PerformanceScore()
		assert.GreaterOrEqual(t, score, previous, "conversion %.0f", rate)
		previous = score
	}
}

func TestZeroCompletionTimeScoresLow(t *testing.T) {
	a := &Analytics{ConversionRate: 75, AvgCompletionSeconds: 0, AbandonmentRate: 10}
	// 0.4×100 + 0.3×20 + 0.3×100 = 76: no completions means no time signal.
	assert.InDelta(t, 76.0, a.PerformanceScore(), 1e-9)
	assert.Equal(t, "B", a.Grade())
}

func weeklyPoints(rates ...float64) []WeeklyPoint {
	week := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	points := make([]WeeklyPoint, 0, len(rates))
	for i, rate := range rates {
		points = append(points, WeeklyPoint{
			WeekStart:      week.AddDate(0, 0, 7*i),
			ConversionRate: rate,
		})
	}
	return points
}

func TestTrend(t *testing.T) {
	assert.Equal(t, TrendInsufficientData, (&Analytics{}).Trend())
	assert.Equal(t, TrendInsufficientData, (&Analytics{WeeklyHistory: weeklyPoints(40)}).Trend())

	assert.Equal(t, TrendImproving, (&Analytics{WeeklyHistory: weeklyPoints(40, 50)}).Trend())
	assert.Equal(t, TrendDeclining, (&Analytics{WeeklyHistory: weeklyPoints(50, 40)}).Trend())
	assert.Equal(t, TrendStable, (&Analytics{WeeklyHistory: weeklyPoints(40, 41)}).Trend(),
		"2.5%% relative change is within tolerance")
	assert.Equal(t, TrendStable, (&Analytics{WeeklyHistory: weeklyPoints(40, 42)}).Trend(),
		"exactly 5%% is still stable")
	assert.Equal(t, TrendImproving, (&Analytics{WeeklyHistory: weeklyPoints(40, 42.5)}).Trend())

	// Only the last two points matter.
	assert.Equal(t, TrendDeclining, (&Analytics{WeeklyHistory: weeklyPoints(10, 60, 40)}).Trend())
}

func TestTrendFromZeroBaseline(t *testing.T) {
	assert.Equal(t, TrendStable, (&Analytics{WeeklyHistory: weeklyPoints(0, 0)}).Trend())
	assert.Equal(t, TrendImproving, (&Analytics{WeeklyHistory: weeklyPoints(0, 5)}).Trend())
}

func TestCriticalIssues(t *testing.T) {
	healthy := &Analytics{
		ConversionRate:       60,
		AbandonmentRate:      30,
		AvgCompletionSeconds: 300,
		Steps: []StepMetric{
			{StepID: "s1", Name: "Customer", AbandonmentRate: 10},
		},
	}
	assert.Empty(t, healthy.CriticalIssues())

	troubled := &Analytics{
		ConversionRate:       20,
		AbandonmentRate:      80,
		AvgCompletionSeconds: 1000,
		Steps: []StepMetric{
			{StepID: "s1", Name: "Customer", AbandonmentRate: 10},
			{StepID: "s2", Name: "Payment", AbandonmentRate: 65},
		},
	}
	issues := troubled.CriticalIssues()
	assert.Len(t, issues, 4)
	assert.Contains(t, issues[3], "Payment")
}

func TestCriticalIssuesThresholdsAreExclusive(t *testing.T) {
	boundary := &Analytics{
		ConversionRate:       30,
		AbandonmentRate:      70,
		AvgCompletionSeconds: 900,
		Steps:                []StepMetric{{Name: "Payment", AbandonmentRate: 50}},
	}
	assert.Empty(t, boundary.CriticalIssues(), "thresholds trigger only when crossed")
}

func TestRecompute(t *testing.T) {
	a := &Analytics{
		TotalSessions:     200,
		CompletedSessions: 90,
		AbandonedSessions: 60,
		Steps: []StepMetric{
			{StepID: "s1", Entries: 100, Abandonments: 25},
			{StepID: "s2", Entries: 0, Abandonments: 0},
		},
		WeeklyHistory: []WeeklyPoint{
			{Sessions: 50, Conversions: 20},
			{Sessions: 0, Conversions: 0},
		},
	}
	a.Recompute()

	assert.Equal(t, 45.0, a.ConversionRate)
	assert.Equal(t, 30.0, a.AbandonmentRate)
	assert.Equal(t, 25.0, a.Steps[0].AbandonmentRate)
	assert.Equal(t, 0.0, a.Steps[1].AbandonmentRate, "no entries, no rate")
	assert.Equal(t, 40.0, a.WeeklyHistory[0].ConversionRate)
	assert.Equal(t, 0.0, a.WeeklyHistory[1].ConversionRate)
}

func TestRecomputeZeroSessions(t *testing.T) {
	a := &Analytics{}
	a.Recompute()
	assert.Equal(t, 0.0, a.ConversionRate)
	assert.Equal(t, 0.0, a.AbandonmentRate)
}
