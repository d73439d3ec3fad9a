package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/llm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

type fakeScheduler struct {
	slots       []crm.Slot
	slotsErr    error
	booked      []crm.AppointmentRequest
	bookErr     error
	listedCalls int
}

func (f *fakeScheduler) ListFreeSlots(_ context.Context, _ string, _, _ time.Time, _ string) ([]crm.Slot, error) {
	f.listedCalls++
	return f.slots, f.slotsErr
}

func (f *fakeScheduler) CreateAppointment(_ context.Context, req crm.AppointmentRequest) (*crm.Appointment, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	f.booked = append(f.booked, req)
	return &crm.Appointment{ID: "appt-1", Status: "confirmed"}, nil
}

func slotAt(start time.Time) crm.Slot {
	return crm.Slot{Start: start, End: start.Add(30 * time.Minute)}
}

func specialistTurn(score int, inbound string) *models.Turn {
	state := models.NewConversationState("conv-1", "c1", "1", "loc")
	state.LeadScore = score
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	state.Messages = []models.Message{{
		Role: models.RoleCustomer, Content: inbound, Origin: models.OriginWebhook, Timestamp: &ts,
	}}
	return &models.Turn{
		TurnID:   "t1",
		ThreadID: state.ThreadID,
		State:    state,
		Inbound:  state.Messages[0],
		Decision: &models.RoutingDecision{TaskDescription: "tarea"},
	}
}

func newTestCloser(gen llm.Generator, sched Scheduler) *Specialist {
	sp := NewCloser(gen, nil, sched, &config.CRMConfig{CalendarID: "cal-1"})
	sp.now = func() time.Time {
		// Monday March 2, 2026, 10:00 local.
		return time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	}
	return sp
}

func TestDiscoveryGeneratesAndAppendsReply(t *testing.T) {
	gen := llm.NewFake("¿Cómo se llama su negocio?")
	sp := NewSpecialist(models.AgentDiscovery, gen, nil)
	turn := specialistTurn(2, "hola, soy Diego")
	turn.State.ExtractedData[models.FieldName] = "Diego"

	require.NoError(t, sp.Run(context.Background(), turn))

	assert.Equal(t, "¿Cómo se llama su negocio?", turn.Reply)
	assert.Equal(t, models.AgentDiscovery, turn.ReplyFrom)
	assert.Equal(t, models.AgentDiscovery, turn.State.CurrentAgent)
	last := turn.State.Messages[len(turn.State.Messages)-1]
	assert.Equal(t, models.RoleAgent, last.Role)
	assert.Equal(t, models.AgentDiscovery, last.AgentName)
	assert.Equal(t, models.OriginSpecialist, last.Origin)

	// The priority hint targets the first missing field, the known name is
	// folded into the system prompt.
	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "qué tipo de negocio tiene")
	assert.Contains(t, reqs[0].System, "nombre: Diego")
	require.Len(t, reqs[0].Turns, 1)
	assert.Equal(t, "hola, soy Diego", reqs[0].Turns[0].Content)
}

func TestDiscoveryEscalatesWhenFullyCollected(t *testing.T) {
	sp := NewSpecialist(models.AgentDiscovery, llm.NewFake(), nil)
	turn := specialistTurn(4, "ok")
	turn.State.ExtractedData = map[string]string{
		models.FieldName:         "Diego",
		models.FieldBusinessType: "restaurante",
		models.FieldGoal:         "más clientes",
		models.FieldBudget:       "200",
	}

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.True(t, turn.NeedsEscalation)
	assert.Equal(t, models.EscalationNeedsQualify, turn.EscalationReason)
	assert.Empty(t, turn.Reply)
}

func TestScoreGates(t *testing.T) {
	tests := []struct {
		name   string
		role   models.AgentName
		score  int
		reason models.EscalationReason
	}{
		{"discovery sees warm lead", models.AgentDiscovery, 6, models.EscalationNeedsQualify},
		{"discovery sees hot lead", models.AgentDiscovery, 9, models.EscalationNeedsAppointment},
		{"qualifier sees cold lead", models.AgentQualifier, 2, models.EscalationWrongAgent},
		{"qualifier sees hot lead", models.AgentQualifier, 9, models.EscalationNeedsAppointment},
		{"closer sees warm lead", models.AgentCloser, 6, models.EscalationWrongAgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sp *Specialist
			if tt.role == models.AgentCloser {
				sp = newTestCloser(llm.NewFake(), &fakeScheduler{})
			} else {
				sp = NewSpecialist(tt.role, llm.NewFake(), nil)
			}
			turn := specialistTurn(tt.score, "hola")

			require.NoError(t, sp.Run(context.Background(), turn))
			assert.True(t, turn.NeedsEscalation)
			assert.Equal(t, tt.reason, turn.EscalationReason)
		})
	}
}

func TestQualifierOffersAnchorWhenBudgetUnconfirmed(t *testing.T) {
	gen := llm.NewFake("Los planes empiezan en $300 al mes, ¿le funciona?")
	sp := NewSpecialist(models.AgentQualifier, gen, nil)
	turn := specialistTurn(6, "quiero más clientes")

	require.NoError(t, sp.Run(context.Background(), turn))
	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "$300 al mes")
}

func TestConfusedCustomerEscalatesFromQualifierAndCloser(t *testing.T) {
	for _, tt := range []struct {
		role  models.AgentName
		score int
	}{
		{models.AgentQualifier, 6},
		{models.AgentCloser, 9},
	} {
		t.Run(string(tt.role), func(t *testing.T) {
			var sp *Specialist
			if tt.role == models.AgentCloser {
				sp = newTestCloser(llm.NewFake(), &fakeScheduler{})
			} else {
				sp = NewSpecialist(tt.role, llm.NewFake(), nil)
			}
			turn := specialistTurn(tt.score, "no le entiendo")

			require.NoError(t, sp.Run(context.Background(), turn))
			assert.True(t, turn.NeedsEscalation)
			assert.Equal(t, models.EscalationCustomerConfused, turn.EscalationReason)
			assert.Empty(t, turn.Reply)
		})
	}
}

func TestDiscoveryClarifiesForConfusedCustomer(t *testing.T) {
	gen := llm.NewFake("Con gusto se lo explico de otra forma.")
	sp := NewSpecialist(models.AgentDiscovery, gen, nil)
	turn := specialistTurn(6, "no entiendo") // outside A's range
	turn.Decision = &models.RoutingDecision{
		Reason:          "escalation:" + string(models.EscalationCustomerConfused),
		TaskDescription: "aclarar la última respuesta en términos simples",
	}

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.False(t, turn.NeedsEscalation)
	assert.Equal(t, "Con gusto se lo explico de otra forma.", turn.Reply)
}

func TestGeneratorFailureEscalatesError(t *testing.T) {
	gen := llm.NewFake()
	gen.FailWith(errors.New("boom"))
	sp := NewSpecialist(models.AgentQualifier, gen, nil)
	turn := specialistTurn(6, "hola")

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.True(t, turn.NeedsEscalation)
	assert.Equal(t, models.EscalationError, turn.EscalationReason)
	assert.Equal(t, models.AgentQualifier, turn.State.CurrentAgent)
	assert.Len(t, turn.State.Messages, 1, "messages unchanged on failure")
}

func TestForcedFallbackSkipsGatesAndPolicies(t *testing.T) {
	gen := llm.NewFake("Le cuento lo que tenemos.")
	sp := NewSpecialist(models.AgentQualifier, gen, nil)
	turn := specialistTurn(2, "hola") // outside B's range
	turn.Decision = &models.RoutingDecision{Reason: "routing_attempts_exhausted", TaskDescription: "responder"}

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.False(t, turn.NeedsEscalation)
	assert.Equal(t, "Le cuento lo que tenemos.", turn.Reply)
}

func TestCloserAsksForEmailFirst(t *testing.T) {
	gen := llm.NewFake("¿Me comparte su correo para enviarle la invitación?")
	sched := &fakeScheduler{}
	sp := newTestCloser(gen, sched)
	turn := specialistTurn(9, "mañana a las 3pm")

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.Zero(t, sched.listedCalls, "no calendar access without an email")
	assert.NotEmpty(t, turn.Reply)
	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "correo electrónico")
}

func TestCloserBooksMatchingSlot(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	// Tuesday March 3, 15:00 local, matching "mañana a las 3pm" on Monday.
	match := slotAt(time.Date(2026, 3, 3, 15, 0, 0, 0, loc))
	sched := &fakeScheduler{slots: []crm.Slot{
		slotAt(time.Date(2026, 3, 3, 11, 0, 0, 0, loc)),
		match,
	}}
	sp := newTestCloser(llm.NewFake(), sched)
	turn := specialistTurn(9, "mañana a las 3pm")
	turn.State.ExtractedData = map[string]string{
		models.FieldName:  "Diego",
		models.FieldEmail: "d@x.mx",
	}

	require.NoError(t, sp.Run(context.Background(), turn))

	require.Len(t, sched.booked, 1)
	assert.Equal(t, "c1", sched.booked[0].ContactID)
	assert.Equal(t, match.Start, sched.booked[0].Start)
	assert.Equal(t, "Llamada con Diego", sched.booked[0].Title)
	assert.True(t, turn.AppointmentBooked)
	assert.Contains(t, turn.Reply, "martes 3 de marzo a las 15:00")
	assert.Contains(t, turn.Reply, "d@x.mx")
}

func TestCloserOffersAlternativesWhenNoSlotMatches(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	sched := &fakeScheduler{slots: []crm.Slot{
		slotAt(time.Date(2026, 3, 4, 11, 0, 0, 0, loc)),
		slotAt(time.Date(2026, 3, 4, 12, 0, 0, 0, loc)),
		slotAt(time.Date(2026, 3, 5, 9, 0, 0, 0, loc)),
		slotAt(time.Date(2026, 3, 5, 10, 0, 0, 0, loc)),
	}}
	sp := newTestCloser(llm.NewFake(), sched)
	turn := specialistTurn(9, "mañana a las 3pm")
	turn.State.ExtractedData = map[string]string{models.FieldEmail: "d@x.mx"}

	require.NoError(t, sp.Run(context.Background(), turn))

	assert.Empty(t, sched.booked)
	assert.False(t, turn.AppointmentBooked)
	assert.Contains(t, turn.Reply, "Tengo estos horarios disponibles:")
	assert.Contains(t, turn.Reply, "miércoles 4 de marzo a las 11:00")
	assert.NotContains(t, turn.Reply, "jueves 5 de marzo a las 10:00", "offers at most three slots")
}

func TestCloserBooksFirstSlotOnAffirmation(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	first := slotAt(time.Date(2026, 3, 4, 11, 0, 0, 0, loc))
	sched := &fakeScheduler{slots: []crm.Slot{first}}
	sp := newTestCloser(llm.NewFake(), sched)

	turn := specialistTurn(9, "sí")
	ts := time.Now().UTC()
	turn.State.Messages = append([]models.Message{{
		Role:      models.RoleAgent,
		AgentName: models.AgentCloser,
		Content:   "Tengo estos horarios disponibles:\n- miércoles 4 de marzo a las 11:00\n\n¿Cuál le funciona?",
		Origin:    models.OriginSpecialist,
		Timestamp: &ts,
	}}, turn.State.Messages...)
	turn.State.ExtractedData = map[string]string{models.FieldEmail: "d@x.mx"}

	require.NoError(t, sp.Run(context.Background(), turn))
	require.Len(t, sched.booked, 1)
	assert.Equal(t, first.Start, sched.booked[0].Start)
	assert.True(t, turn.AppointmentBooked)
}

func TestCloserCalendarFailureEscalatesError(t *testing.T) {
	sched := &fakeScheduler{slotsErr: errors.New("calendar down")}
	sp := newTestCloser(llm.NewFake(), sched)
	turn := specialistTurn(9, "mañana a las 3pm")
	turn.State.ExtractedData = map[string]string{models.FieldEmail: "d@x.mx"}

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.True(t, turn.NeedsEscalation)
	assert.Equal(t, models.EscalationError, turn.EscalationReason)
	assert.Empty(t, turn.Reply)
}

func TestCloserFallsThroughToGenerationWithoutTimeTalk(t *testing.T) {
	gen := llm.NewFake("¿Le parece si agendamos una llamada esta semana?")
	sched := &fakeScheduler{}
	sp := newTestCloser(gen, sched)
	turn := specialistTurn(9, "me interesa, cuénteme más")
	turn.State.ExtractedData = map[string]string{models.FieldEmail: "d@x.mx"}

	require.NoError(t, sp.Run(context.Background(), turn))
	assert.Zero(t, sched.listedCalls)
	assert.Equal(t, "¿Le parece si agendamos una llamada esta semana?", turn.Reply)
}
