package notify

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

// BuildHotLeadMessage creates Block Kit blocks announcing a lead that just
// crossed into the hot range.
func BuildHotLeadMessage(threadID string, score, previous int) []goslack.Block {
	text := fmt.Sprintf(":fire: *Lead caliente* `%s`\nScore %d/10 (antes %d). El cerrador está tomando la conversación.",
		threadID, score, previous)
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildAppointmentMessage creates Block Kit blocks announcing a booked
// appointment.
func BuildAppointmentMessage(threadID, contactID string) []goslack.Block {
	text := fmt.Sprintf(":calendar: *Cita agendada* `%s`\nContacto `%s`. Revisa el calendario para los detalles.",
		threadID, contactID)
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}
