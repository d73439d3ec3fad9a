package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/intel"
	"github.com/nivelo-ai/leadrouter/pkg/llm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// generatorTimeout is the soft cap on a single generation call. Hitting it is
// an error escalation, not a turn failure.
const generatorTimeout = 30 * time.Second

// slotSearchWindow bounds how far ahead the closer looks for free slots.
const slotSearchWindow = 7 * 24 * time.Hour

// offeredSlotCount is how many concrete alternatives the closer proposes.
const offeredSlotCount = 3

// Scheduler is the calendar slice of the CRM client the closer uses.
type Scheduler interface {
	ListFreeSlots(ctx context.Context, calendarID string, start, end time.Time, tz string) ([]crm.Slot, error)
	CreateAppointment(ctx context.Context, req crm.AppointmentRequest) (*crm.Appointment, error)
}

// Specialist is one of the three reply-producing roles. A and B only
// generate; C additionally books appointments through the Scheduler.
type Specialist struct {
	role      models.AgentName
	gen       llm.Generator
	profile   *config.AgentProfile
	scheduler Scheduler
	crmCfg    *config.CRMConfig
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewSpecialist creates a discovery (A) or qualification (B) specialist.
func NewSpecialist(role models.AgentName, gen llm.Generator, profile *config.AgentProfile) *Specialist {
	return &Specialist{
		role:    role,
		gen:     gen,
		profile: profile,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  slog.Default().With("component", "specialist", "role", string(role)),
	}
}

// NewCloser creates the closing specialist (C) with calendar access.
func NewCloser(gen llm.Generator, profile *config.AgentProfile, scheduler Scheduler, crmCfg *config.CRMConfig) *Specialist {
	sp := NewSpecialist(models.AgentCloser, gen, profile)
	sp.scheduler = scheduler
	sp.crmCfg = crmCfg
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	sp.loc = loc
	return sp
}

// Role returns the specialist's role name.
func (sp *Specialist) Role() models.AgentName { return sp.role }

// Run executes the role for one supervisor handoff. It either appends a reply
// message to the state or raises an escalation on the turn; never both.
func (sp *Specialist) Run(ctx context.Context, turn *models.Turn) error {
	state := turn.State
	forced := turn.Decision != nil && isForcedReason(turn.Decision.Reason)

	if !forced {
		// A confused customer goes back to discovery for a plain-language
		// restatement, whatever the score says.
		if sp.role != models.AgentDiscovery {
			if last := state.LastCustomerMessage(); last != nil && intel.IsConfusion(last.Content) {
				sp.escalate(turn, models.EscalationCustomerConfused)
				return nil
			}
		}
		if reason, outside := sp.scoreGate(state.LeadScore); outside {
			sp.escalate(turn, reason)
			return nil
		}
		if sp.role == models.AgentDiscovery && hasAllDiscoveryFields(state) {
			sp.escalate(turn, models.EscalationNeedsQualify)
			return nil
		}
		if sp.role == models.AgentQualifier &&
			state.LeadScore >= models.HotScoreThreshold && state.HasField(models.FieldEmail) {
			sp.escalate(turn, models.EscalationNeedsAppointment)
			return nil
		}
	}

	if sp.role == models.AgentCloser && !forced {
		handled, err := sp.tryBooking(ctx, turn)
		if err != nil {
			sp.failTurn(turn, err)
			return nil
		}
		if handled {
			return nil
		}
	}

	task := ""
	if turn.Decision != nil {
		task = turn.Decision.TaskDescription
	}
	if hint := sp.taskHint(state); hint != "" {
		task = task + ". " + hint
	}

	genCtx, cancel := context.WithTimeout(ctx, generatorTimeout)
	defer cancel()
	reply, err := sp.gen.Generate(genCtx, buildRequest(sp.role, sp.profile, state, task))
	if err != nil {
		sp.failTurn(turn, err)
		return nil
	}
	sp.reply(turn, reply)
	return nil
}

// isForcedReason reports supervisor decisions that bypass the role's score
// gate and policy checks: the specialist answers with what it has.
func isForcedReason(reason string) bool {
	switch reason {
	case "routing_attempts_exhausted",
		"error_fallback",
		"escalation:" + string(models.EscalationCustomerConfused):
		return true
	}
	return false
}

// scoreGate checks the role's score range: A 0..4, B 5..7, C 8..10. Outside
// the range the specialist hands back instead of generating.
func (sp *Specialist) scoreGate(score int) (models.EscalationReason, bool) {
	switch sp.role {
	case models.AgentDiscovery:
		if score >= models.HotScoreThreshold {
			return models.EscalationNeedsAppointment, true
		}
		if score >= models.WarmScoreThreshold {
			return models.EscalationNeedsQualify, true
		}
	case models.AgentQualifier:
		if score >= models.HotScoreThreshold {
			return models.EscalationNeedsAppointment, true
		}
		if score < models.WarmScoreThreshold {
			return models.EscalationWrongAgent, true
		}
	case models.AgentCloser:
		if score < models.HotScoreThreshold {
			return models.EscalationWrongAgent, true
		}
	}
	return "", false
}

// taskHint adds the role-policy detail to the supervisor's task.
func (sp *Specialist) taskHint(state *models.ConversationState) string {
	switch sp.role {
	case models.AgentDiscovery:
		for _, f := range []struct{ key, label string }{
			{models.FieldName, "su nombre"},
			{models.FieldBusinessType, "qué tipo de negocio tiene"},
			{models.FieldGoal, "qué quiere lograr"},
			{models.FieldBudget, "cuánto puede invertir al mes"},
		} {
			if !state.HasField(f.key) {
				return "Pregunta solamente por " + f.label
			}
		}
	case models.AgentQualifier:
		if !state.HasField(models.FieldBudget) {
			return "El presupuesto no está confirmado, ofrece el plan de $300 al mes"
		}
	case models.AgentCloser:
		if !state.HasField(models.FieldEmail) {
			return "Pide su correo electrónico para enviarle la invitación"
		}
	}
	return ""
}

// tryBooking handles the closer's calendar path. It reports handled=true when
// it produced a reply (booking, offer, or clarification) so generation is
// skipped.
func (sp *Specialist) tryBooking(ctx context.Context, turn *models.Turn) (bool, error) {
	state := turn.State
	if !state.HasField(models.FieldEmail) {
		// Policy: collect the email first. The generated reply asks for it.
		return false, nil
	}
	last := state.LastCustomerMessage()
	if last == nil {
		return false, nil
	}
	now := sp.now().In(sp.loc)

	if req, ok := ParseTimeRequest(last.Content, now); ok {
		slots, err := sp.freeSlots(ctx, now)
		if err != nil {
			return false, err
		}
		if slot, found := matchSlot(slots, req); found {
			return true, sp.book(ctx, turn, slot)
		}
		sp.reply(turn, offerReply(slots, sp.loc))
		return true, nil
	}

	// "book on affirmative match": a bare yes after this role offered times
	// books the earliest offered slot.
	if intel.IsAffirmation(last.Content) && offeredTimes(state) {
		slots, err := sp.freeSlots(ctx, now)
		if err != nil {
			return false, err
		}
		if len(slots) > 0 {
			return true, sp.book(ctx, turn, slots[0])
		}
	}

	if MentionsDay(last.Content, now) {
		slots, err := sp.freeSlots(ctx, now)
		if err != nil {
			return false, err
		}
		sp.reply(turn, offerReply(slots, sp.loc))
		return true, nil
	}
	return false, nil
}

func (sp *Specialist) freeSlots(ctx context.Context, now time.Time) ([]crm.Slot, error) {
	return sp.scheduler.ListFreeSlots(ctx, sp.crmCfg.CalendarID, now, now.Add(slotSearchWindow), sp.loc.String())
}

func (sp *Specialist) book(ctx context.Context, turn *models.Turn, slot crm.Slot) error {
	state := turn.State
	name, _ := state.Field(models.FieldName)
	title := "Llamada de consultoría"
	if name != "" {
		title = "Llamada con " + name
	}
	_, err := sp.scheduler.CreateAppointment(ctx, crm.AppointmentRequest{
		ContactID:   state.ContactID,
		Start:       slot.Start,
		End:         slot.End,
		Title:       title,
		Timezone:    sp.loc.String(),
		MeetingType: "phone",
	})
	if err != nil {
		return err
	}
	turn.AppointmentBooked = true
	email, _ := state.Field(models.FieldEmail)
	reply := fmt.Sprintf("Perfecto, su cita quedó confirmada para el %s.", formatSlot(slot, sp.loc))
	if email != "" {
		reply += fmt.Sprintf(" Le enviamos la invitación a %s.", email)
	}
	sp.reply(turn, reply)
	sp.logger.Info("Appointment booked",
		"thread_id", turn.ThreadID,
		"turn_id", turn.TurnID,
		"start", slot.Start)
	return nil
}

// reply appends the role's message to the state and records it on the turn.
func (sp *Specialist) reply(turn *models.Turn, text string) {
	ts := sp.now()
	turn.State.Messages = append(turn.State.Messages, models.Message{
		Role:      models.RoleAgent,
		AgentName: sp.role,
		Content:   text,
		Origin:    models.OriginSpecialist,
		Timestamp: &ts,
	})
	turn.State.CurrentAgent = sp.role
	turn.Reply = text
	turn.ReplyFrom = sp.role
}

// escalate hands the turn back to the supervisor with no user-visible text.
func (sp *Specialist) escalate(turn *models.Turn, reason models.EscalationReason) {
	turn.NeedsEscalation = true
	turn.EscalationReason = reason
	sp.logger.Info("Escalating to supervisor",
		"thread_id", turn.ThreadID,
		"turn_id", turn.TurnID,
		"reason", reason)
}

// failTurn converts an internal error into the error escalation: messages
// unchanged, current agent recorded, no outbound text.
func (sp *Specialist) failTurn(turn *models.Turn, err error) {
	turn.State.CurrentAgent = sp.role
	sp.logger.Error("Specialist failed",
		"thread_id", turn.ThreadID,
		"turn_id", turn.TurnID,
		"error", err)
	sp.escalate(turn, models.EscalationError)
}

func hasAllDiscoveryFields(state *models.ConversationState) bool {
	return state.HasField(models.FieldName) &&
		state.HasField(models.FieldBusinessType) &&
		state.HasField(models.FieldGoal) &&
		state.HasField(models.FieldBudget)
}

// offeredTimes reports whether this role's previous message proposed slots.
func offeredTimes(state *models.ConversationState) bool {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		m := state.Messages[i]
		if m.Role == models.RoleCustomer {
			continue
		}
		return m.AgentName == models.AgentCloser && containsWord(foldSchedule(m.Content), "horarios")
	}
	return false
}

// matchSlot finds a free slot on the requested weekday whose start hour
// equals the requested hour.
func matchSlot(slots []crm.Slot, req TimeRequest) (crm.Slot, bool) {
	want := req.At()
	for _, s := range slots {
		start := s.Start.In(want.Location())
		if start.Weekday() == want.Weekday() && start.Hour() == want.Hour() {
			return s, true
		}
	}
	return crm.Slot{}, false
}

var spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var spanishMonths = [...]string{"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

func formatSlot(slot crm.Slot, loc *time.Location) string {
	t := slot.Start.In(loc)
	return fmt.Sprintf("%s %d de %s a las %d:%02d",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()], t.Hour(), t.Minute())
}

// offerReply proposes up to three concrete slots, or asks for a time when the
// calendar has none.
func offerReply(slots []crm.Slot, loc *time.Location) string {
	if len(slots) == 0 {
		return "No tengo horarios disponibles en los próximos días. ¿Qué día y a qué hora le acomoda y lo reviso?"
	}
	out := "Tengo estos horarios disponibles:"
	n := len(slots)
	if n > offeredSlotCount {
		n = offeredSlotCount
	}
	for _, s := range slots[:n] {
		out += "\n- " + formatSlot(s, loc)
	}
	return out + "\n\n¿Cuál le funciona?"
}

func foldSchedule(s string) string {
	return scheduleFolder.Replace(strings.ToLower(s))
}
