// Package reconcile merges the inbound webhook message, the checkpointed
// conversation log, and CRM-side history into one deduplicated, ordered
// message list for the turn.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// historyFetchLimit caps how many CRM messages are pulled when the
// checkpoint is empty.
const historyFetchLimit = 50

// systemNotePhrases is the closed set of CRM housekeeping messages that are
// filtered out of fetched history. Matched case-insensitively as a prefix.
var systemNotePhrases = []string{
	"opportunity created",
	"appointment scheduled",
	"tag added",
	"contact created",
	"task created",
	"note added",
}

// HistorySource is the slice of the CRM client the reconciler reads from.
type HistorySource interface {
	ListMessages(ctx context.Context, conversationID string, limit int) ([]crm.CRMMessage, error)
	GetContact(ctx context.Context, contactID string) (*crm.Contact, error)
}

// Reconciler builds the turn's message list. The checkpoint is the source of
// truth; CRM history backfills only when the checkpoint has no messages.
type Reconciler struct {
	source HistorySource
	logger *slog.Logger
}

// New creates a Reconciler. source may be nil, in which case history
// backfill and contact seeding are skipped.
func New(source HistorySource) *Reconciler {
	return &Reconciler{
		source: source,
		logger: slog.Default().With("component", "reconciler"),
	}
}

// Reconcile merges state.Messages, fetched CRM history, and the inbound
// webhook message, then deduplicates and orders the result. The state's
// message log and extracted contact fields are updated in place.
//
// CRM failures degrade to checkpoint-only history: they are logged and the
// turn continues.
func (r *Reconciler) Reconcile(ctx context.Context, state *models.ConversationState, inbound models.Message) {
	merged := make([]models.Message, 0, len(state.Messages)+historyFetchLimit+1)
	merged = append(merged, state.Messages...)

	history, contact := r.fetch(ctx, state)
	for _, m := range history {
		if msg, ok := mapCRMMessage(m); ok {
			merged = append(merged, msg)
		}
	}
	if contact != nil {
		seedFromContact(state, contact)
	}

	// The webhook message is the one that triggered this turn; when the CRM
	// already delivered it through history (same normalized content as the
	// newest customer message) it is not appended again. Dedup runs over the
	// full list afterwards so an inbound that repeats an older message cannot
	// reintroduce its equivalence key.
	if !repeatsLastCustomer(merged, inbound) {
		merged = append(merged, inbound)
	}
	merged = dedup(merged)

	sortByTimestamp(merged)
	state.Messages = merged
}

// fetch pulls CRM history (checkpoint empty only) and the contact record.
// The two requests are issued concurrently; either may fail independently.
func (r *Reconciler) fetch(ctx context.Context, state *models.ConversationState) ([]crm.CRMMessage, *crm.Contact) {
	if r.source == nil {
		return nil, nil
	}

	wantHistory := len(state.Messages) == 0 && state.ConversationID != ""
	wantContact := len(state.Messages) == 0 && state.ContactID != ""
	if !wantHistory && !wantContact {
		return nil, nil
	}

	var (
		wg      sync.WaitGroup
		history []crm.CRMMessage
		contact *crm.Contact
	)

	if wantHistory {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msgs, err := r.source.ListMessages(ctx, state.ConversationID, historyFetchLimit)
			if err != nil {
				r.logger.Warn("CRM history fetch failed, continuing with checkpoint only",
					"thread_id", state.ThreadID,
					"conversation_id", state.ConversationID,
					"error", err)
				return
			}
			history = msgs
		}()
	}

	if wantContact {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.source.GetContact(ctx, state.ContactID)
			if err != nil {
				r.logger.Warn("CRM contact fetch failed, continuing without seed data",
					"thread_id", state.ThreadID,
					"contact_id", state.ContactID,
					"error", err)
				return
			}
			contact = c
		}()
	}

	wg.Wait()
	return history, contact
}

// mapCRMMessage converts a CRM history entry to the internal shape.
// System housekeeping notes are dropped.
func mapCRMMessage(m crm.CRMMessage) (models.Message, bool) {
	if isSystemNote(m.Body) {
		return models.Message{}, false
	}

	role := models.RoleAgent
	if m.Direction == "inbound" {
		role = models.RoleCustomer
	}
	return models.Message{
		Role:         role,
		Content:      m.Body,
		CRMMessageID: m.ID,
		Timestamp:    m.DateAdded,
		Origin:       models.OriginCRMHistory,
	}, true
}

// isSystemNote reports whether content matches one of the CRM system phrases
// (case-insensitive, trimmed, prefix match).
func isSystemNote(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	for _, phrase := range systemNotePhrases {
		if strings.HasPrefix(trimmed, phrase) {
			return true
		}
	}
	return false
}

// seedFromContact fills absent extracted fields from the CRM contact record.
// Existing values are sticky and never overwritten here.
func seedFromContact(state *models.ConversationState, c *crm.Contact) {
	if state.ExtractedData == nil {
		state.ExtractedData = make(map[string]string)
	}
	seed := func(key, value string) {
		if value == "" {
			return
		}
		if existing, ok := state.ExtractedData[key]; !ok || existing == "" {
			state.ExtractedData[key] = value
		}
	}

	name := c.FirstName
	if name == "" {
		name = c.Name
	}
	seed(models.FieldName, name)
	seed(models.FieldEmail, c.Email)
	seed(models.FieldPhone, c.Phone)
}

// dedup removes messages sharing the same (role, normalized content, CRM
// message id) key, keeping first-occurrence order.
func dedup(msgs []models.Message) []models.Message {
	seen := make(map[string]struct{}, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		key := m.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// repeatsLastCustomer reports whether inbound duplicates the newest customer
// message already in the merged list.
func repeatsLastCustomer(msgs []models.Message, inbound models.Message) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != models.RoleCustomer {
			continue
		}
		return models.NormalizeContent(msgs[i].Content) == models.NormalizeContent(inbound.Content)
	}
	return false
}

// sortByTimestamp orders messages chronologically, but only when every entry
// carries a timestamp; otherwise append order stands.
func sortByTimestamp(msgs []models.Message) {
	for _, m := range msgs {
		if m.Timestamp == nil {
			return
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(*msgs[j].Timestamp)
	})
}
