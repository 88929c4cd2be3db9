package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sproutwell/sproutwell-api/internal/domain"
	"github.com/sproutwell/sproutwell-api/internal/store"
)

// Trend is the direction of a child's scores within one domain.
type Trend string

// Possible trend values.
const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// trendStabilityBand is the score delta within which movement reads as
// stable rather than a real change.
const trendStabilityBand = 5.0

// recommendationPoolSize bounds how many published worksheets one
// recommendation pass considers.
const recommendationPoolSize = 200

// CompletionStats summarizes a child's completion history.
type CompletionStats struct {
	ChildID              uuid.UUID                         `json:"child_id"`
	TotalCompletions     int                               `json:"total_completions"`
	MeanTimeMinutes      float64                           `json:"mean_time_minutes"`
	MeanDifficultyRating float64                           `json:"mean_difficulty_rating"`
	MeanEngagementRating float64                           `json:"mean_engagement_rating"`
	QualityDistribution  map[domain.CompletionQuality]int  `json:"quality_distribution"`
	CompletionsByDomain  map[domain.DevelopmentalDomain]int `json:"completions_by_domain"`
}

// ProgressPoint is one observation on a domain timeline. WorksheetID names
// the child's most recent completed worksheet targeting the domain at the
// time of the observation, when one exists.
type ProgressPoint struct {
	Date        time.Time  `json:"date"`
	Score       float64    `json:"score"`
	WorksheetID *uuid.UUID `json:"worksheet_id,omitempty"`
}

// DomainProgress is a child's time-ordered score history within one domain.
type DomainProgress struct {
	Domain domain.DevelopmentalDomain `json:"domain"`
	Points []ProgressPoint            `json:"points"`
	Trend  Trend                      `json:"trend"`
}

// JourneyEventKind tags the source of a journey event.
type JourneyEventKind string

// Journey event kinds.
const (
	JourneyEventCompletion JourneyEventKind = "completion"
	JourneyEventScreening  JourneyEventKind = "screening"
)

// JourneyEvent is one entry in a child's chronological activity feed:
// either a worksheet completion or a screening observation.
type JourneyEvent struct {
	OccurredAt     time.Time                  `json:"occurred_at"`
	Kind           JourneyEventKind           `json:"kind"`
	WorksheetID    *uuid.UUID                 `json:"worksheet_id,omitempty"`
	WorksheetTitle string                     `json:"worksheet_title,omitempty"`
	Quality        domain.CompletionQuality   `json:"quality,omitempty"`
	ScreeningID    *uuid.UUID                 `json:"screening_id,omitempty"`
	Domain         domain.DevelopmentalDomain `json:"domain,omitempty"`
	Score          *float64                   `json:"score,omitempty"`
}

// EffectivenessReport aggregates before/after screening deltas across every
// child who completed the worksheet.
type EffectivenessReport struct {
	WorksheetID      uuid.UUID                              `json:"worksheet_id"`
	SampleSize       int                                    `json:"sample_size"`
	ImprovedFraction float64                                `json:"improved_fraction"`
	DomainDeltas     map[domain.DevelopmentalDomain]float64 `json:"domain_deltas"`
}

// Recommendation is one ranked worksheet suggestion for a child.
type Recommendation struct {
	Worksheet           *domain.Worksheet `json:"worksheet"`
	Score               float64           `json:"score"`
	Reasoning           string            `json:"reasoning"`
	SuggestedDifficulty domain.Difficulty `json:"suggested_difficulty,omitempty"`
}

// AnalyticsService derives read-only insight from completions and screening
// scores: per-child stats, progress timelines, worksheet effectiveness, and
// recommendations.
type AnalyticsService interface {
	// GetScreeningScores retrieves the domain scores recorded under a
	// screening.
	GetScreeningScores(ctx context.Context, screeningID uuid.UUID) ([]*domain.DomainScore, error)

	// CompletionStats summarizes a child's completions within the window.
	// A zero since means the full history.
	CompletionStats(ctx context.Context, childID uuid.UUID, since time.Time) (*CompletionStats, error)

	// ProgressTimeline builds per-domain score timelines for a child.
	ProgressTimeline(ctx context.Context, childID uuid.UUID) ([]DomainProgress, error)

	// ChildJourney interleaves a child's completions and screening
	// observations into one chronological feed, oldest first.
	ChildJourney(ctx context.Context, childID uuid.UUID) ([]JourneyEvent, error)

	// WorksheetEffectiveness measures screening-score movement across
	// children who completed the worksheet.
	WorksheetEffectiveness(ctx context.Context, worksheetID uuid.UUID) (*EffectivenessReport, error)

	// Recommendations ranks published worksheets the child has not completed
	// by weak-domain overlap, difficulty fit, and novelty.
	Recommendations(ctx context.Context, childID uuid.UUID, limit int) ([]Recommendation, error)

	// SuggestedDifficulty derives the child's next difficulty tier from
	// completion-quality history.
	SuggestedDifficulty(ctx context.Context, childID uuid.UUID) (domain.Difficulty, error)
}

// analyticsServiceImpl implements the AnalyticsService interface
type analyticsServiceImpl struct {
	completions store.CompletionStore
	screenings  store.ScreeningStore
	worksheets  store.WorksheetStore
	logger      *slog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	completions store.CompletionStore,
	screenings store.ScreeningStore,
	worksheets store.WorksheetStore,
	logger *slog.Logger,
) (AnalyticsService, error) {
	if completions == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "completions cannot be nil"}
	}
	if screenings == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "screenings cannot be nil"}
	}
	if worksheets == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "worksheets cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &analyticsServiceImpl{
		completions: completions,
		screenings:  screenings,
		worksheets:  worksheets,
		logger:      logger.With("component", "analytics_service"),
	}, nil
}

// GetScreeningScores retrieves the domain scores recorded under a screening.
func (s *analyticsServiceImpl) GetScreeningScores(
	ctx context.Context,
	screeningID uuid.UUID,
) ([]*domain.DomainScore, error) {
	scores, err := s.screenings.GetScores(ctx, screeningID)
	if err != nil {
		return nil, NewServiceError("get_screening_scores", "failed to retrieve screening scores", err)
	}
	return scores, nil
}

// CompletionStats summarizes a child's completions within the window.
func (s *analyticsServiceImpl) CompletionStats(
	ctx context.Context,
	childID uuid.UUID,
	since time.Time,
) (*CompletionStats, error) {
	completions, err := s.completions.ListByChild(ctx, childID, since)
	if err != nil {
		return nil, NewServiceError("completion_stats", "failed to list completions", err)
	}

	stats := &CompletionStats{
		ChildID:             childID,
		TotalCompletions:    len(completions),
		QualityDistribution: make(map[domain.CompletionQuality]int),
		CompletionsByDomain: make(map[domain.DevelopmentalDomain]int),
	}
	if len(completions) == 0 {
		return stats, nil
	}

	var timeSum, timeN, diffSum, diffN, engSum, engN int
	for _, c := range completions {
		if c.TimeSpentMinutes > 0 {
			timeSum += c.TimeSpentMinutes
			timeN++
		}
		if c.DifficultyRating > 0 {
			diffSum += c.DifficultyRating
			diffN++
		}
		if c.EngagementRating > 0 {
			engSum += c.EngagementRating
			engN++
		}
		if c.Quality != "" {
			stats.QualityDistribution[c.Quality]++
		}
	}
	if timeN > 0 {
		stats.MeanTimeMinutes = float64(timeSum) / float64(timeN)
	}
	if diffN > 0 {
		stats.MeanDifficultyRating = float64(diffSum) / float64(diffN)
	}
	if engN > 0 {
		stats.MeanEngagementRating = float64(engSum) / float64(engN)
	}

	worksheetsByID, err := s.loadWorksheets(ctx, completions)
	if err != nil {
		return nil, err
	}
	for _, c := range completions {
		ws, ok := worksheetsByID[c.WorksheetID]
		if !ok {
			continue
		}
		for _, d := range ws.TargetDomains {
			stats.CompletionsByDomain[d]++
		}
	}

	return stats, nil
}

// ProgressTimeline builds per-domain score timelines for a child.
func (s *analyticsServiceImpl) ProgressTimeline(
	ctx context.Context,
	childID uuid.UUID,
) ([]DomainProgress, error) {
	scores, err := s.screenings.ListScoresByChild(ctx, childID)
	if err != nil {
		return nil, NewServiceError("progress_timeline", "failed to list screening scores", err)
	}
	if len(scores) == 0 {
		return []DomainProgress{}, nil
	}

	completions, err := s.completions.ListByChild(ctx, childID, time.Time{})
	if err != nil {
		return nil, NewServiceError("progress_timeline", "failed to list completions", err)
	}
	worksheetsByID, err := s.loadWorksheets(ctx, completions)
	if err != nil {
		return nil, err
	}

	byDomain := make(map[domain.DevelopmentalDomain][]ProgressPoint)
	var order []domain.DevelopmentalDomain
	for _, score := range scores {
		point := ProgressPoint{
			Date:        score.RecordedAt,
			Score:       score.Score,
			WorksheetID: lastWorksheetBefore(completions, worksheetsByID, score.Domain, score.RecordedAt),
		}
		if _, seen := byDomain[score.Domain]; !seen {
			order = append(order, score.Domain)
		}
		byDomain[score.Domain] = append(byDomain[score.Domain], point)
	}

	result := make([]DomainProgress, 0, len(order))
	for _, d := range order {
		points := byDomain[d]
		result = append(result, DomainProgress{
			Domain: d,
			Points: points,
			Trend:  computeTrend(points),
		})
	}
	return result, nil
}

// ChildJourney interleaves a child's completions and screening observations
// into one chronological feed, oldest first.
func (s *analyticsServiceImpl) ChildJourney(
	ctx context.Context,
	childID uuid.UUID,
) ([]JourneyEvent, error) {
	completions, err := s.completions.ListByChild(ctx, childID, time.Time{})
	if err != nil {
		return nil, NewServiceError("child_journey", "failed to list completions", err)
	}
	scores, err := s.screenings.ListScoresByChild(ctx, childID)
	if err != nil {
		return nil, NewServiceError("child_journey", "failed to list screening scores", err)
	}
	worksheetsByID, err := s.loadWorksheets(ctx, completions)
	if err != nil {
		return nil, err
	}

	events := make([]JourneyEvent, 0, len(completions)+len(scores))
	for _, c := range completions {
		worksheetID := c.WorksheetID
		event := JourneyEvent{
			OccurredAt:  c.CreatedAt,
			Kind:        JourneyEventCompletion,
			WorksheetID: &worksheetID,
			Quality:     c.Quality,
		}
		if ws, ok := worksheetsByID[c.WorksheetID]; ok {
			event.WorksheetTitle = ws.Title
		}
		events = append(events, event)
	}
	for _, score := range scores {
		screeningID := score.ScreeningID
		scoreValue := score.Score
		events = append(events, JourneyEvent{
			OccurredAt:  score.RecordedAt,
			Kind:        JourneyEventScreening,
			ScreeningID: &screeningID,
			Domain:      score.Domain,
			Score:       &scoreValue,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events, nil
}

// lastWorksheetBefore finds the child's most recent completion at or before
// cutoff whose worksheet targets the domain.
func lastWorksheetBefore(
	completions []*domain.Completion,
	worksheetsByID map[uuid.UUID]*domain.Worksheet,
	d domain.DevelopmentalDomain,
	cutoff time.Time,
) *uuid.UUID {
	var found *uuid.UUID
	for _, c := range completions {
		if c.CreatedAt.After(cutoff) {
			break // completions arrive oldest first
		}
		ws, ok := worksheetsByID[c.WorksheetID]
		if !ok {
			continue
		}
		for _, target := range ws.TargetDomains {
			if target == d {
				id := c.WorksheetID
				found = &id
				break
			}
		}
	}
	return found
}

// computeTrend reads the direction of a point series. A single point or a
// delta inside the stability band is stable.
func computeTrend(points []ProgressPoint) Trend {
	if len(points) < 2 {
		return TrendStable
	}
	delta := points[len(points)-1].Score - points[0].Score
	switch {
	case delta > trendStabilityBand:
		return TrendImproving
	case delta < -trendStabilityBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// WorksheetEffectiveness pairs each completing child's nearest screening
// before and after their first completion, per target domain.
func (s *analyticsServiceImpl) WorksheetEffectiveness(
	ctx context.Context,
	worksheetID uuid.UUID,
) (*EffectivenessReport, error) {
	ws, err := s.worksheets.GetByID(ctx, worksheetID)
	if err != nil {
		return nil, NewServiceError("worksheet_effectiveness", "failed to retrieve worksheet", err)
	}

	completions, err := s.completions.ListByWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, NewServiceError("worksheet_effectiveness", "failed to list completions", err)
	}

	// First completion per child is the measurement event.
	firstCompletion := make(map[uuid.UUID]time.Time)
	for _, c := range completions {
		if _, seen := firstCompletion[c.ChildID]; !seen {
			firstCompletion[c.ChildID] = c.CreatedAt
		}
	}

	report := &EffectivenessReport{
		WorksheetID:  worksheetID,
		DomainDeltas: make(map[domain.DevelopmentalDomain]float64),
	}
	deltaSums := make(map[domain.DevelopmentalDomain]float64)
	deltaCounts := make(map[domain.DevelopmentalDomain]int)
	var pairs, improved int

	for childID, completedAt := range firstCompletion {
		scores, err := s.screenings.ListScoresByChild(ctx, childID)
		if err != nil {
			return nil, NewServiceError("worksheet_effectiveness", "failed to list screening scores", err)
		}

		childSampled := false
		for _, d := range ws.TargetDomains {
			before, after, ok := nearestScoresAround(scores, d, completedAt)
			if !ok {
				continue
			}
			delta := after - before
			deltaSums[d] += delta
			deltaCounts[d]++
			pairs++
			if delta > 0 {
				improved++
			}
			childSampled = true
		}
		if childSampled {
			report.SampleSize++
		}
	}

	for d, sum := range deltaSums {
		report.DomainDeltas[d] = sum / float64(deltaCounts[d])
	}
	if pairs > 0 {
		report.ImprovedFraction = float64(improved) / float64(pairs)
	}
	return report, nil
}

// nearestScoresAround finds the closest score before and after the event in
// the given domain. Both sides must exist for a usable pair.
func nearestScoresAround(
	scores []*domain.DomainScore,
	d domain.DevelopmentalDomain,
	event time.Time,
) (before, after float64, ok bool) {
	var haveBefore, haveAfter bool
	var beforeGap, afterGap time.Duration
	for _, score := range scores {
		if score.Domain != d {
			continue
		}
		if !score.RecordedAt.After(event) {
			gap := event.Sub(score.RecordedAt)
			if !haveBefore || gap < beforeGap {
				before, beforeGap, haveBefore = score.Score, gap, true
			}
		} else {
			gap := score.RecordedAt.Sub(event)
			if !haveAfter || gap < afterGap {
				after, afterGap, haveAfter = score.Score, gap, true
			}
		}
	}
	return before, after, haveBefore && haveAfter
}

// Recommendation scoring weights.
const (
	weightWeakDomainOverlap = 0.5
	weightDifficultyFit     = 0.3
	weightNovelty           = 0.2
)

// Recommendations ranks published worksheets the child has not completed.
func (s *analyticsServiceImpl) Recommendations(
	ctx context.Context,
	childID uuid.UUID,
	limit int,
) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}

	latest, err := s.screenings.LatestScoresByChild(ctx, childID)
	if err != nil {
		return nil, NewServiceError("recommendations", "failed to list screening scores", err)
	}
	weak := make(map[domain.DevelopmentalDomain]bool)
	for _, score := range latest {
		if score.Score < domain.WeakDomainThreshold {
			weak[score.Domain] = true
		}
	}

	completions, err := s.completions.ListByChild(ctx, childID, time.Time{})
	if err != nil {
		return nil, NewServiceError("recommendations", "failed to list completions", err)
	}
	completed := make(map[uuid.UUID]bool, len(completions))
	practicedDomains := make(map[domain.DevelopmentalDomain]bool)
	worksheetsByID, err := s.loadWorksheets(ctx, completions)
	if err != nil {
		return nil, err
	}
	for _, c := range completions {
		completed[c.WorksheetID] = true
		if ws, ok := worksheetsByID[c.WorksheetID]; ok {
			for _, d := range ws.TargetDomains {
				practicedDomains[d] = true
			}
		}
	}

	suggested := deriveSuggestedDifficulty(completions, worksheetsByID)

	candidates, _, err := s.worksheets.ListPublished(ctx, store.WorksheetFilter{
		Sort:  store.SortTopRated,
		Limit: recommendationPoolSize,
	})
	if err != nil {
		return nil, NewServiceError("recommendations", "failed to list published worksheets", err)
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, ws := range candidates {
		if completed[ws.ID] {
			continue
		}
		rec := scoreCandidate(ws, weak, practicedDomains, suggested)
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// scoreCandidate computes the weighted recommendation score and its
// reasoning string.
func scoreCandidate(
	ws *domain.Worksheet,
	weak map[domain.DevelopmentalDomain]bool,
	practiced map[domain.DevelopmentalDomain]bool,
	suggested domain.Difficulty,
) Recommendation {
	var reasons []string

	var weakHits int
	var weakNames []string
	for _, d := range ws.TargetDomains {
		if weak[d] {
			weakHits++
			weakNames = append(weakNames, string(d))
		}
	}
	overlap := 0.0
	if len(ws.TargetDomains) > 0 {
		overlap = float64(weakHits) / float64(len(ws.TargetDomains))
	}
	if weakHits > 0 {
		reasons = append(reasons, fmt.Sprintf("targets areas needing support: %s",
			strings.Join(weakNames, ", ")))
	}

	fit := difficultyFit(ws.Difficulty, suggested)
	if fit == 1 {
		reasons = append(reasons, fmt.Sprintf("matches the suggested %s difficulty", suggested))
	}

	novelty := 0.3
	for _, d := range ws.TargetDomains {
		if !practiced[d] {
			novelty = 1.0
			reasons = append(reasons, fmt.Sprintf("introduces new practice area %s", d))
			break
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "popular with the community")
	}

	rec := Recommendation{
		Worksheet: ws,
		Score: weightWeakDomainOverlap*overlap +
			weightDifficultyFit*fit +
			weightNovelty*novelty,
		Reasoning: strings.Join(reasons, "; "),
	}
	if ws.Difficulty != suggested {
		rec.SuggestedDifficulty = suggested
	}
	return rec
}

// difficultyFit scores how close a worksheet's tier sits to the suggestion:
// exact match 1, adjacent tier 0.5, otherwise 0.
func difficultyFit(actual, suggested domain.Difficulty) float64 {
	gap := difficultyIndex(actual) - difficultyIndex(suggested)
	if gap < 0 {
		gap = -gap
	}
	switch gap {
	case 0:
		return 1
	case 1:
		return 0.5
	default:
		return 0
	}
}

// difficultyIndex maps a tier to its position in the ascending order.
func difficultyIndex(d domain.Difficulty) int {
	for i, tier := range domain.DifficultyOrder {
		if tier == d {
			return i
		}
	}
	return 0
}

// SuggestedDifficulty derives the child's next difficulty tier from
// completion-quality history.
func (s *analyticsServiceImpl) SuggestedDifficulty(
	ctx context.Context,
	childID uuid.UUID,
) (domain.Difficulty, error) {
	completions, err := s.completions.ListByChild(ctx, childID, time.Time{})
	if err != nil {
		return "", NewServiceError("suggested_difficulty", "failed to list completions", err)
	}
	worksheetsByID, err := s.loadWorksheets(ctx, completions)
	if err != nil {
		return "", err
	}
	return deriveSuggestedDifficulty(completions, worksheetsByID), nil
}

// deriveSuggestedDifficulty applies the quality-majority rule at the child's
// current tier: a too-hard majority steps one tier down, a too-easy majority
// one tier up, otherwise hold. No history starts at the easiest tier.
func deriveSuggestedDifficulty(
	completions []*domain.Completion,
	worksheetsByID map[uuid.UUID]*domain.Worksheet,
) domain.Difficulty {
	current := domain.DifficultyFoundational
	type tally struct{ tooHard, tooEasy, total int }
	byTier := make(map[domain.Difficulty]*tally)

	for _, c := range completions {
		ws, ok := worksheetsByID[c.WorksheetID]
		if !ok {
			continue
		}
		current = ws.Difficulty // completions arrive oldest first
		t := byTier[ws.Difficulty]
		if t == nil {
			t = &tally{}
			byTier[ws.Difficulty] = t
		}
		if c.Quality != "" {
			t.total++
			switch c.Quality {
			case domain.QualityTooHard:
				t.tooHard++
			case domain.QualityTooEasy:
				t.tooEasy++
			}
		}
	}

	t := byTier[current]
	if t == nil || t.total == 0 {
		return current
	}

	idx := difficultyIndex(current)
	majority := int(math.Floor(float64(t.total)/2)) + 1
	switch {
	case t.tooHard >= majority && idx > 0:
		return domain.DifficultyOrder[idx-1]
	case t.tooEasy >= majority && idx < len(domain.DifficultyOrder)-1:
		return domain.DifficultyOrder[idx+1]
	default:
		return current
	}
}

// loadWorksheets fetches each distinct worksheet referenced by the
// completions. Worksheets that no longer resolve are skipped rather than
// failing the aggregate.
func (s *analyticsServiceImpl) loadWorksheets(
	ctx context.Context,
	completions []*domain.Completion,
) (map[uuid.UUID]*domain.Worksheet, error) {
	result := make(map[uuid.UUID]*domain.Worksheet)
	for _, c := range completions {
		if _, ok := result[c.WorksheetID]; ok {
			continue
		}
		ws, err := s.worksheets.GetByID(ctx, c.WorksheetID)
		if err != nil {
			if mapped := mapStoreSentinel(err); mapped == ErrWorksheetNotFound {
				continue
			}
			return nil, NewServiceError("load_worksheets", "failed to retrieve worksheet", err)
		}
		result[c.WorksheetID] = ws
	}
	return result, nil
}
