package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	persistenceFlow "github.com/clubifyhq/checkout-go/internal/infrastructure/persistence/flow"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
)

// FlowAnalyticsService aggregates flow sessions and the funnel event log
// into performance snapshots. Snapshots are cached with an ETag so handlers
// can answer conditional requests cheaply.
type FlowAnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewFlowAnalyticsService creates a new flow analytics service singleton
func NewFlowAnalyticsService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *FlowAnalyticsService {
	return &FlowAnalyticsService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// AnalyticsReport pairs a snapshot with its derived grading fields, ready
// for serialization.
type AnalyticsReport struct {
	*flow.Analytics
	PerformanceScore float64  `json:"performanceScore"`
	Grade            string   `json:"grade"`
	Trend            string   `json:"trend"`
	CriticalIssues   []string `json:"criticalIssues"`
}

// GetAnalytics returns the snapshot for a flow over a period, serving from
// the ETag cache when fresh. The returned etag identifies the snapshot
// content for conditional requests.
func (s *FlowAnalyticsService) GetAnalytics(tenantCtx *tenant.Context, flowID string, from, to time.Time) (*AnalyticsReport, string, error) {
	start := time.Now()
	if flowID == "" {
		return nil, "", errs.NewValidation("flowId", "flow id is required")
	}
	if !to.After(from) {
		return nil, "", errs.NewValidation("period", "period end must be after period start")
	}

	marker := s.perfTracker.StartOperation("flow_analytics_aggregation", tenantCtx.TenantID)
	defer marker.Complete()

	cacheKey := fmt.Sprintf("%s:%d:%d", flowID, from.Unix(), to.Unix())
	if snapshot, etag, found := tenantCtx.CacheManager.GetAnalyticsWithETag(tenantCtx.TenantID, cacheKey); found {
		marker.AddCacheHit()
		marker.SetSuccess(true)
		return report(snapshot), etag, nil
	}
	marker.AddCacheMiss()

	cfg, err := tenantCtx.FlowRepo().FindByID(tenantCtx.TenantID, flowID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load flow %s: %w", flowID, err)
	}
	if cfg == nil {
		return nil, "", errs.NewValidation("flowId", fmt.Sprintf("flow %s not found", flowID))
	}

	sessionRepo := tenantCtx.SessionRepo()
	sessions, err := sessionRepo.FindByFlowAndPeriod(tenantCtx.TenantID, flowID, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load sessions for flow %s: %w", flowID, err)
	}
	stepEvents, err := sessionRepo.FindStepEvents(tenantCtx.TenantID, flowID, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load step events for flow %s: %w", flowID, err)
	}

	snapshot := aggregate(cfg, sessions, stepEvents, from, to)
	etag := computeETag(snapshot)
	tenantCtx.CacheManager.SetAnalyticsWithETag(tenantCtx.TenantID, cacheKey, snapshot, etag)

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Flow analytics aggregated", "tenantId", tenantCtx.TenantID, "flowId", flowID, "sessions", len(sessions), "stepEvents", len(stepEvents), "duration", time.Since(start))
	return report(snapshot), etag, nil
}

func report(snapshot *flow.Analytics) *AnalyticsReport {
	return &AnalyticsReport{
		Analytics:        snapshot,
		PerformanceScore: snapshot.PerformanceScore(),
		Grade:            snapshot.Grade(),
		Trend:            snapshot.Trend(),
		CriticalIssues:   snapshot.CriticalIssues(),
	}
}

func computeETag(snapshot *flow.Analytics) string {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Sprintf("%d", snapshot.GeneratedAt.UnixNano())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// aggregate folds sessions and the funnel event log into one snapshot.
func aggregate(cfg *flow.Config, sessions []*flow.Session, stepEvents []persistenceFlow.StepEvent, from, to time.Time) *flow.Analytics {
	snapshot := &flow.Analytics{
		FlowID:         cfg.ID,
		OrganizationID: cfg.OrganizationID,
		PeriodStart:    from,
		PeriodEnd:      to,
		GeneratedAt:    time.Now().UTC(),
	}

	totalCompletionSeconds := 0.0
	weekly := make(map[time.Time]*flow.WeeklyPoint)

	for _, session := range sessions {
		snapshot.TotalSessions++
		switch session.Status {
		case flow.SessionStatusCompleted:
			snapshot.CompletedSessions++
			totalCompletionSeconds += session.Duration().Seconds()
		case flow.SessionStatusAbandoned, flow.SessionStatusExpired:
			snapshot.AbandonedSessions++
		}

		week := weekStart(session.StartedAt)
		point, ok := weekly[week]
		if !ok {
			point = &flow.WeeklyPoint{WeekStart: week}
			weekly[week] = point
		}
		point.Sessions++
		if session.Status == flow.SessionStatusCompleted {
			point.Conversions++
		}
	}

	if snapshot.CompletedSessions > 0 {
		snapshot.AvgCompletionSeconds = totalCompletionSeconds / float64(snapshot.CompletedSessions)
	}

	snapshot.Steps = stepMetrics(cfg, stepEvents)

	for _, point := range weekly {
		snapshot.WeeklyHistory = append(snapshot.WeeklyHistory, *point)
	}
	sort.Slice(snapshot.WeeklyHistory, func(i, j int) bool {
		return snapshot.WeeklyHistory[i].WeekStart.Before(snapshot.WeeklyHistory[j].WeekStart)
	})

	snapshot.Recompute()
	return snapshot
}

// stepMetrics builds the per-step funnel from entered/completed events.
// Time on step is measured from a session entering the step to completing it.
func stepMetrics(cfg *flow.Config, stepEvents []persistenceFlow.StepEvent) []flow.StepMetric {
	type stepAgg struct {
		entries       int
		completions   int
		totalSeconds  float64
		timedSessions int
	}

	aggs := make(map[string]*stepAgg)
	enteredAt := make(map[string]time.Time)

	for _, event := range stepEvents {
		agg, ok := aggs[event.StepID]
		if !ok {
			agg = &stepAgg{}
			aggs[event.StepID] = agg
		}

		key := event.SessionID + ":" + event.StepID
		switch event.Event {
		case stepEventEntered:
			agg.entries++
			enteredAt[key] = event.OccurredAt
		case stepEventCompleted:
			agg.completions++
			if entered, ok := enteredAt[key]; ok {
				agg.totalSeconds += event.OccurredAt.Sub(entered).Seconds()
				agg.timedSessions++
			}
		}
	}

	metrics := make([]flow.StepMetric, 0, len(cfg.Steps))
	for _, step := range cfg.OrderedSteps() {
		agg, ok := aggs[step.ID]
		if !ok {
			metrics = append(metrics, flow.StepMetric{StepID: step.ID, Name: step.Name})
			continue
		}

		metric := flow.StepMetric{
			StepID:      step.ID,
			Name:        step.Name,
			Entries:     agg.entries,
			Completions: agg.completions,
		}
		if abandonments := agg.entries - agg.completions; abandonments > 0 {
			metric.Abandonments = abandonments
		}
		if agg.timedSessions > 0 {
			metric.AvgTimeSeconds = agg.totalSeconds / float64(agg.timedSessions)
		}
		metrics = append(metrics, metric)
	}
	return metrics
}

// weekStart truncates to the Monday of the timestamp's week, UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
