package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday March 2, 2026, 10:00 local.
func scheduleNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	return time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
}

func TestParseTimeRequest(t *testing.T) {
	now := scheduleNow(t)
	tests := []struct {
		name    string
		message string
		wantDay int // day of month
		wantH   int
		wantM   int
		wantOK  bool
	}{
		{"tomorrow pm", "mañana a las 3pm", 3, 15, 0, true},
		{"tomorrow unaccented", "manana 3pm", 3, 15, 0, true},
		{"today colon time", "hoy a las 16:30", 2, 16, 30, true},
		{"day after tomorrow", "pasado mañana a las 10am", 4, 10, 0, true},
		{"weekday name", "el viernes a las 12", 6, 12, 0, true},
		{"same weekday goes to next week", "el lunes a las 9am", 9, 9, 0, true},
		{"noon word", "mañana al mediodía", 3, 12, 0, true},
		{"a las small hour is afternoon", "a las 3", 2, 15, 0, true},
		{"hour only defaults to today", "4pm", 2, 16, 0, true},
		{"day without hour is ambiguous", "mañana", 0, 0, 0, false},
		{"no time at all", "suena bien, gracias", 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := ParseTimeRequest(tt.message, now)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			at := req.At()
			assert.Equal(t, tt.wantDay, at.Day())
			assert.Equal(t, tt.wantH, at.Hour())
			assert.Equal(t, tt.wantM, at.Minute())
		})
	}
}

func TestMentionsDay(t *testing.T) {
	now := scheduleNow(t)
	assert.True(t, MentionsDay("mañana", now))
	assert.True(t, MentionsDay("el jueves", now))
	assert.False(t, MentionsDay("suena bien", now))
}

func TestFormatSlot(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	slot := slotAt(time.Date(2026, 3, 3, 15, 0, 0, 0, loc))
	assert.Equal(t, "martes 3 de marzo a las 15:00", formatSlot(slot, loc))
}
