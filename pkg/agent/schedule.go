package agent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimezone anchors relative day words when the CRM has no per-location
// timezone configured.
const DefaultTimezone = "America/Mexico_City"

// TimeRequest is a parsed appointment wish: a calendar day plus an hour.
type TimeRequest struct {
	Day    time.Time // midnight in the parser's location
	Hour   int
	Minute int
}

// At returns the concrete requested instant.
func (r TimeRequest) At() time.Time {
	return time.Date(r.Day.Year(), r.Day.Month(), r.Day.Day(), r.Hour, r.Minute, 0, 0, r.Day.Location())
}

var (
	hourColonRe = regexp.MustCompile(`(?i)(?:a las?\s+)?(\d{1,2}):(\d{2})`)
	hourAmPmRe  = regexp.MustCompile(`(?i)(\d{1,2})\s?(am|pm)`)
	hourALasRe  = regexp.MustCompile(`(?i)a las?\s+(\d{1,2})`)
)

var weekdayNames = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
}

var scheduleFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
)

// ParseTimeRequest reads a Spanish scheduling phrase relative to now. It
// recognizes "hoy", "mañana", "pasado mañana", weekday names, "mediodía",
// "a las H(:MM)", "HHpm/am" and "HH:MM". It reports ok only when an explicit
// hour is present; a day word alone is not bookable and the caller should ask
// for clarification.
func ParseTimeRequest(message string, now time.Time) (TimeRequest, bool) {
	folded := scheduleFolder.Replace(strings.ToLower(message))

	day, dayFound := parseDay(folded, now)
	hour, minute, hourFound := parseHour(folded)
	if !hourFound {
		return TimeRequest{}, false
	}
	if !dayFound {
		day = midnight(now)
	}
	return TimeRequest{Day: day, Hour: hour, Minute: minute}, true
}

// MentionsDay reports whether the message names a day without necessarily
// giving an hour. The closer uses it to tell "wants to book, ambiguous" apart
// from ordinary conversation.
func MentionsDay(message string, now time.Time) bool {
	_, ok := parseDay(scheduleFolder.Replace(strings.ToLower(message)), now)
	return ok
}

func parseDay(folded string, now time.Time) (time.Time, bool) {
	today := midnight(now)
	// "pasado mañana" must be checked before "mañana". The bare word also
	// means "morning", but as a day reference only the standalone adverb
	// usage matters and the false positives are harmless given an hour is
	// required anyway.
	switch {
	case strings.Contains(folded, "pasado mañana") || strings.Contains(folded, "pasado manana"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(folded, "mañana") || strings.Contains(folded, "manana"):
		if strings.Contains(folded, "por la mañana") || strings.Contains(folded, "en la mañana") ||
			strings.Contains(folded, "por la manana") || strings.Contains(folded, "en la manana") {
			return today, true
		}
		return today.AddDate(0, 0, 1), true
	case strings.Contains(folded, "hoy"):
		return today, true
	}
	for name, wd := range weekdayNames {
		if !containsWord(folded, name) {
			continue
		}
		days := (int(wd) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days), true
	}
	return time.Time{}, false
}

func parseHour(folded string) (hour, minute int, ok bool) {
	if strings.Contains(folded, "mediodia") {
		return 12, 0, true
	}
	if m := hourColonRe.FindStringSubmatch(folded); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h >= 0 && h <= 23 && mm <= 59 {
			// "3:30 pm" style: the am/pm marker may trail the minutes.
			if h < 12 && strings.Contains(folded, "pm") {
				h += 12
			}
			return h, mm, true
		}
	}
	if m := hourAmPmRe.FindStringSubmatch(folded); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 1 && h <= 12 {
			if strings.EqualFold(m[2], "pm") && h < 12 {
				h += 12
			}
			if strings.EqualFold(m[2], "am") && h == 12 {
				h = 0
			}
			return h, 0, true
		}
	}
	if m := hourALasRe.FindStringSubmatch(folded); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 0 && h <= 23 {
			// Small hours in conversation mean the afternoon: "a las 3" is
			// 15:00, nobody books a 03:00 meeting.
			if h >= 1 && h <= 7 {
				h += 12
			}
			return h, 0, true
		}
	}
	return 0, 0, false
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isLetter(rune(s[i-1]))
		afterIdx := i + len(word)
		after := afterIdx >= len(s) || !isLetter(rune(s[afterIdx]))
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
