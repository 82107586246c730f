package flow

import (
	"fmt"
	"time"
)

// Trend classifications for weekly conversion series.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// trendTolerance is the relative change below which two weekly conversion
// points count as stable.
const trendTolerance = 0.05

// StepMetric aggregates one step's funnel numbers.
type StepMetric struct {
	StepID          string  `json:"stepId"`
	Name            string  `json:"name"`
	Entries         int     `json:"entries"`
	Completions     int     `json:"completions"`
	Abandonments    int     `json:"abandonments"`
	AvgTimeSeconds  float64 `json:"avgTimeSeconds"`
	AbandonmentRate float64 `json:"abandonmentRate"`
}

// WeeklyPoint is one week of conversion history.
type WeeklyPoint struct {
	WeekStart      time.Time `json:"weekStart"`
	Sessions       int       `json:"sessions"`
	Conversions    int       `json:"conversions"`
	ConversionRate float64   `json:"conversionRate"`
}

// Analytics is a flow's aggregated performance snapshot. Rates are percent
// in [0, 100]; AvgCompletionSeconds covers completed sessions only.
type Analytics struct {
	FlowID               string        `json:"flowId"`
	OrganizationID       string        `json:"organizationId"`
	PeriodStart          time.Time     `json:"periodStart"`
	PeriodEnd            time.Time     `json:"periodEnd"`
	TotalSessions        int           `json:"totalSessions"`
	CompletedSessions    int           `json:"completedSessions"`
	AbandonedSessions    int           `json:"abandonedSessions"`
	ConversionRate       float64       `json:"conversionRate"`
	AbandonmentRate      float64       `json:"abandonmentRate"`
	AvgCompletionSeconds float64       `json:"avgCompletionSeconds"`
	Steps                []StepMetric  `json:"steps"`
	WeeklyHistory        []WeeklyPoint `json:"weeklyHistory"`
	GeneratedAt          time.Time     `json:"generatedAt"`
}

// PerformanceScore is the weighted composite in [0, 100]:
// 40% conversion bucket, 30% completion-time bucket, 30% abandonment bucket.
func (a *Analytics) PerformanceScore() float64 {
	return 0.4*conversionBucket(a.ConversionRate) +
		0.3*completionTimeBucket(a.AvgCompletionSeconds) +
		0.3*abandonmentBucket(a.AbandonmentRate)
}

// Grade maps the performance score onto A through F.
func (a *Analytics) Grade() string {
	score := a.PerformanceScore()
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 45:
		return "D"
	default:
		return "F"
	}
}

func conversionBucket(rate float64) float64 {
	switch {
	case rate >= 70:
		return 100
	case rate >= 50:
		return 80
	case rate >= 30:
		return 60
	case rate >= 15:
		return 40
	default:
		return 20
	}
}

func completionTimeBucket(seconds float64) float64 {
	switch {
	case seconds <= 0:
		return 20
	case seconds <= 120:
		return 100
	case seconds <= 300:
		return 80
	case seconds <= 600:
		return 60
	case seconds <= 900:
		return 40
	default:
		return 20
	}
}

func abandonmentBucket(rate float64) float64 {
	switch {
	case rate <= 20:
		return 100
	case rate <= 40:
		return 80
	case rate <= 60:
		return 60
	case rate <= 80:
		return 40
	default:
		return 20
	}
}

// Trend classifies the conversion direction from the last two weekly points.
// Fewer than two points is insufficient data; a relative change within 5%
// of the earlier point is stable.
func (a *Analytics) Trend() string {
	if len(a.WeeklyHistory) < 2 {
		return TrendInsufficientData
	}
	prev := a.WeeklyHistory[len(a.WeeklyHistory)-2].ConversionRate
	last := a.WeeklyHistory[len(a.WeeklyHistory)-1].ConversionRate

	if prev == 0 {
		if last == 0 {
			return TrendStable
		}
		return TrendImproving
	}
	change := (last - prev) / prev
	switch {
	case change > trendTolerance:
		return TrendImproving
	case change < -trendTolerance:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// CriticalIssues lists the conditions an operator should act on:
// conversion under 30%, abandonment over 70%, average completion over
// 15 minutes, and any step losing more than half its entrants.
func (a *Analytics) CriticalIssues() []string {
	var issues []string
	if a.ConversionRate < 30 {
		issues = append(issues, fmt.Sprintf("conversion rate critically low at %.1f%%", a.ConversionRate))
	}
	if a.AbandonmentRate > 70 {
		issues = append(issues, fmt.Sprintf("abandonment rate critically high at %.1f%%", a.AbandonmentRate))
	}
	if a.AvgCompletionSeconds > 900 {
		issues = append(issues, fmt.Sprintf("average completion time is %.0fs, over the 900s threshold", a.AvgCompletionSeconds))
	}
	for _, step := range a.Steps {
		if step.AbandonmentRate > 50 {
			issues = append(issues, fmt.Sprintf("step %q loses %.1f%% of entrants", step.Name, step.AbandonmentRate))
		}
	}
	return issues
}

// Recompute derives the rates from raw counters. Zero sessions yields zero
// rates rather than NaN.
func (a *Analytics) Recompute() {
	if a.TotalSessions > 0 {
		a.ConversionRate = float64(a.CompletedSessions) / float64(a.TotalSessions) * 100
		a.AbandonmentRate = float64(a.AbandonedSessions) / float64(a.TotalSessions) * 100
	} else {
		a.ConversionRate = 0
		a.AbandonmentRate = 0
	}
	for idx := range a.Steps {
		step := &a.Steps[idx]
		if step.Entries > 0 {
			step.AbandonmentRate = float64(step.Abandonments) / float64(step.Entries) * 100
		} else {
			step.AbandonmentRate = 0
		}
	}
	for idx := range a.WeeklyHistory {
		point := &a.WeeklyHistory[idx]
		if point.Sessions > 0 {
			point.ConversionRate = float64(point.Conversions) / float64(point.Sessions) * 100
		} else {
			point.ConversionRate = 0
		}
	}
}
