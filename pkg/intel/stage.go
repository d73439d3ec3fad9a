package intel

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// budgetConfirmationConfidence is attached to a budget captured through a
// bare affirmation of an agent's concrete offer.
const budgetConfirmationConfidence = 0.9

// Outcome is one analysis pass over a thread's state after a new customer
// message has been merged in.
type Outcome struct {
	ScoreResult
	// NewFields lists extracted-data keys first captured this turn, sorted.
	NewFields []string
	// BudgetConfirmed reports that this turn's message was an affirmation of
	// an agent's concrete budget offer.
	BudgetConfirmed bool
}

// Stage runs extraction and scoring as one unit. It mutates only
// ExtractedData, LeadScore and ScoreHistory; everything else on the state is
// read-only to it.
type Stage struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewStage creates the analysis stage.
func NewStage() *Stage {
	return &Stage{
		logger: slog.Default().With("component", "intel"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Process analyzes the newest customer message and rescores the lead. A panic
// inside the pattern bank is converted into an error and leaves the state
// untouched, so a malformed message degrades to a no-op instead of killing
// the turn.
func (s *Stage) Process(state *models.ConversationState) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lead analysis failed: %v", r)
		}
	}()

	last := state.LastCustomerMessage()
	if last == nil {
		out.ScoreResult = applyScore(state, false, s.now())
		return out, nil
	}

	extraction := Extract(last.Content)
	if state.ExtractedData == nil {
		state.ExtractedData = make(map[string]string)
	}
	for _, name := range sortedFieldNames(extraction.Fields) {
		c := extraction.Fields[name]
		// Accepted values overwrite, absent keys keep their old value, nothing
		// is ever cleared.
		if !state.HasField(name) {
			out.NewFields = append(out.NewFields, name)
		}
		state.ExtractedData[name] = c.Value
		s.logger.Debug("Extracted lead field",
			"thread_id", state.ThreadID,
			"field", name,
			"confidence", fmt.Sprintf("%.2f", c.Confidence))
	}

	if agentMsg := lastAgentBefore(state, last); agentMsg != nil {
		if amount, ok := DetectBudgetConfirmation(last.Content, agentMsg.Content); ok {
			out.BudgetConfirmed = true
			if !state.HasField(models.FieldBudget) {
				out.NewFields = append(out.NewFields, models.FieldBudget)
			}
			state.ExtractedData[models.FieldBudget] = amount
			s.logger.Info("Budget confirmed by affirmation",
				"thread_id", state.ThreadID,
				"budget", amount,
				"confidence", budgetConfirmationConfidence)
		}
	}

	out.ScoreResult = applyScore(state, out.BudgetConfirmed, s.now())
	if out.Changed {
		s.logger.Info("Lead rescored",
			"thread_id", state.ThreadID,
			"score", out.Score,
			"previous_score", out.PreviousScore,
			"category", out.Category,
			"reason", out.Reason)
	}
	return out, nil
}

// lastAgentBefore finds the newest agent message older than the given
// customer message.
func lastAgentBefore(state *models.ConversationState, customer *models.Message) *models.Message {
	seenCustomer := false
	for i := len(state.Messages) - 1; i >= 0; i-- {
		m := &state.Messages[i]
		if !seenCustomer {
			if m == customer || (m.Role == models.RoleCustomer && m.Content == customer.Content) {
				seenCustomer = true
			}
			continue
		}
		if m.Role == models.RoleAgent {
			return m
		}
	}
	return nil
}

// NoteSummary renders the extracted data as a short CRM note body.
func NoteSummary(state *models.ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead score: %d/%d (%s)", state.LeadScore, models.MaxLeadScore, state.Category())
	for _, key := range []string{
		models.FieldName, models.FieldBusinessType, models.FieldBudget,
		models.FieldGoal, models.FieldEmail, models.FieldPhone,
	} {
		if v, ok := state.Field(key); ok {
			fmt.Fprintf(&b, "\n%s: %s", key, v)
		}
	}
	return b.String()
}
