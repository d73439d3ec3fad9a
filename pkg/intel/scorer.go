package intel

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// Scoring weights. The maximum attainable sum is exactly MaxLeadScore.
const (
	pointsBase        = 1
	pointsName        = 1
	pointsBusiness    = 2
	pointsGoal        = 1
	pointsBudget      = 1
	pointsBudgetHigh  = 3
	pointsEmail       = 1
	pointsEngagement  = 1
	highBudgetMinimum = 300

	// A confirmed budget means a qualified lead regardless of what else is
	// known, so the score never sits below this floor afterwards.
	budgetConfirmedFloor = 6

	engagementThreshold = 10
)

// ScoreResult reports one scoring pass. Changed is false when the monotonic
// clamp kept the previous score.
type ScoreResult struct {
	Score          int
	PreviousScore  int
	Changed        bool
	Reason         string
	Category       models.LeadCategory
	SuggestedAgent models.AgentName
}

// computeScore sums the additive weights over the state's extracted fields.
func computeScore(state *models.ConversationState, budgetConfirmed bool) (int, string) {
	score := 0
	var reasons []string
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if len(state.Messages) > 0 {
		add(pointsBase, "contact")
	}
	if state.HasField(models.FieldName) {
		add(pointsName, "name")
	}
	if state.HasField(models.FieldBusinessType) {
		add(pointsBusiness, "business_type")
	}
	if state.HasField(models.FieldGoal) {
		add(pointsGoal, "goal")
	}
	if budget, ok := state.Field(models.FieldBudget); ok {
		if budgetAmount(budget) >= highBudgetMinimum {
			add(pointsBudgetHigh, "budget>=300")
		} else {
			add(pointsBudget, "budget")
		}
	}
	if email, ok := state.Field(models.FieldEmail); ok && !strings.EqualFold(email, "none") {
		add(pointsEmail, "email")
	}
	if len(state.Messages) > engagementThreshold {
		add(pointsEngagement, "engagement")
	}
	if budgetConfirmed && score < budgetConfirmedFloor {
		score = budgetConfirmedFloor
		reasons = append(reasons, "budget_confirmed_floor")
	}
	if score > models.MaxLeadScore {
		score = models.MaxLeadScore
	}
	return score, strings.Join(reasons, ",")
}

// applyScore recomputes the score and writes it back under the monotonic
// rule: the stored score never decreases within a thread.
func applyScore(state *models.ConversationState, budgetConfirmed bool, now time.Time) ScoreResult {
	previous := state.LeadScore
	score, reason := computeScore(state, budgetConfirmed)
	if score < previous {
		score = previous
	}
	res := ScoreResult{
		Score:          score,
		PreviousScore:  previous,
		Changed:        score != previous,
		Reason:         reason,
		Category:       models.CategoryForScore(score),
		SuggestedAgent: models.SuggestedAgentForScore(score),
	}
	if res.Changed {
		state.LeadScore = score
		state.ScoreHistory = append(state.ScoreHistory, models.ScoreEntry{
			Score:         score,
			PreviousScore: previous,
			Timestamp:     now,
			Reason:        reason,
		})
	}
	return res
}

// budgetAmount parses the leading integer out of a stored budget value.
// "300", "300+", "300-500" and "unos 250" all yield their first number.
func budgetAmount(v string) int {
	start := -1
	for i, r := range v {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(v[start:i])
			return n
		}
	}
	if start >= 0 {
		n, _ := strconv.Atoi(v[start:])
		return n
	}
	return 0
}

// sortedFieldNames is a stable rendering helper for logs and CRM notes.
func sortedFieldNames(fields map[string]Candidate) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
