package agent

import (
	"fmt"
	"strings"

	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/llm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

// rolePrompts are the built-in Spanish system prompts per specialist role.
// Config profiles can append custom instructions but never replace these.
var rolePrompts = map[models.AgentName]string{
	models.AgentDiscovery: `Eres un asistente de ventas amable que habla español mexicano informal pero profesional.
Tu trabajo es conocer al prospecto: su nombre, qué tipo de negocio tiene y qué problema quiere resolver.
Haz UNA sola pregunta por mensaje. Sé breve (máximo 2-3 oraciones). Nunca inventes información.`,

	models.AgentQualifier: `Eres un asistente de ventas que califica prospectos en español mexicano.
Ya conoces lo básico del prospecto; confirma su objetivo y su presupuesto.
Si el presupuesto no está confirmado, menciona que los planes empiezan en $300 al mes y pregunta si le funciona.
Sé breve, una pregunta por mensaje, nunca inventes información.`,

	models.AgentCloser: `Eres un asistente de ventas cerrando una cita con un prospecto calificado, en español mexicano.
Tu único objetivo es agendar una llamada. Si falta el correo electrónico, pídelo.
Propón horarios concretos y confirma la cita cuando el prospecto acepte.
Sé breve y directo, nunca inventes información.`,
}

// buildRequest assembles the generation request for a role. The reconciled
// history is folded into the system prompt and only the newest customer
// message travels as the user turn, so the model cannot parrot history back.
func buildRequest(role models.AgentName, profile *config.AgentProfile, state *models.ConversationState, task string) llm.Request {
	var sys strings.Builder
	sys.WriteString(rolePrompts[role])
	if profile != nil && profile.CustomInstructions != "" {
		sys.WriteString("\n\n")
		sys.WriteString(profile.CustomInstructions)
	}
	if task != "" {
		fmt.Fprintf(&sys, "\n\nTarea actual: %s", task)
	}
	writeKnownFacts(&sys, state)
	writeHistory(&sys, state)

	req := llm.Request{System: sys.String()}
	if last := state.LastCustomerMessage(); last != nil {
		req.Turns = []llm.Turn{{Role: llm.RoleUser, Content: last.Content}}
	}
	if profile != nil {
		if profile.Temperature != nil {
			req.Temperature = *profile.Temperature
		}
		if profile.MaxTokens != nil {
			req.MaxTokens = *profile.MaxTokens
		}
	}
	return req
}

func writeKnownFacts(b *strings.Builder, state *models.ConversationState) {
	facts := make([]string, 0, 6)
	labels := []struct{ key, label string }{
		{models.FieldName, "nombre"},
		{models.FieldBusinessType, "negocio"},
		{models.FieldGoal, "objetivo"},
		{models.FieldBudget, "presupuesto"},
		{models.FieldEmail, "correo"},
		{models.FieldPhone, "teléfono"},
	}
	for _, l := range labels {
		if v, ok := state.Field(l.key); ok {
			facts = append(facts, fmt.Sprintf("%s: %s", l.label, v))
		}
	}
	if len(facts) == 0 {
		return
	}
	b.WriteString("\n\nDatos confirmados del prospecto:\n")
	for _, f := range facts {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
}

// historyWindow bounds how much conversation is folded into the prompt.
const historyWindow = 20

func writeHistory(b *strings.Builder, state *models.ConversationState) {
	msgs := state.Messages
	// The newest customer message is the user turn, not history.
	if last := state.LastCustomerMessage(); last != nil && len(msgs) > 0 && &msgs[len(msgs)-1] == last {
		msgs = msgs[:len(msgs)-1]
	}
	if len(msgs) == 0 {
		return
	}
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	b.WriteString("\n\nConversación hasta ahora:\n")
	for _, m := range msgs {
		speaker := "Prospecto"
		if m.Role == models.RoleAgent {
			speaker = "Tú"
		}
		fmt.Fprintf(b, "%s: %s\n", speaker, m.Content)
	}
}
