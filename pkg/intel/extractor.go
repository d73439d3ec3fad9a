package intel

import (
	"fmt"
	"strings"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

const (
	baseConfidence   = 0.70
	acceptConfidence = 0.70

	bonusWordBoundary  = 0.10
	bonusStrongContext = 0.15
	penaltyShort       = 0.20
	penaltyStopWord    = 0.30
)

// Candidate is a single extracted value with its confidence. Candidates below
// the acceptance threshold are discarded before merge.
type Candidate struct {
	Field      string
	Value      string
	Confidence float64
}

// Extraction is the per-message output of the pattern bank: at most one
// accepted candidate per field.
type Extraction struct {
	Fields map[string]Candidate
}

// Extract runs the entire pattern bank over one customer message. It never
// errs: a message that matches nothing yields an empty extraction.
func Extract(message string) Extraction {
	out := Extraction{Fields: map[string]Candidate{}}
	if strings.TrimSpace(message) == "" {
		return out
	}
	accept := func(c Candidate) {
		c.Confidence = adjustConfidence(c.Value, c.Confidence)
		if c.Confidence < acceptConfidence {
			return
		}
		if prev, ok := out.Fields[c.Field]; ok && prev.Confidence >= c.Confidence {
			return
		}
		out.Fields[c.Field] = c
	}

	extractName(message, accept)
	extractBusiness(message, accept)
	extractBudget(message, accept)
	extractGoal(message, accept)
	extractContact(message, accept)
	return out
}

// adjustConfidence applies the value-shape penalties shared by every pattern.
func adjustConfidence(value string, conf float64) float64 {
	v := foldAccents(strings.TrimSpace(value))
	if len([]rune(v)) < 3 {
		conf -= penaltyShort
	}
	if _, ok := stopWords[v]; ok {
		conf -= penaltyStopWord
	}
	return conf
}

func extractName(message string, accept func(Candidate)) {
	if m := nameGreetingRe.FindStringSubmatch(message); m != nil {
		accept(Candidate{models.FieldName, titleCase(m[1]), baseConfidence + bonusWordBoundary + bonusStrongContext})
	}
	if m := nameIntroRe.FindStringSubmatch(message); m != nil {
		// "soy dueño de..." is a business statement, not a name.
		if foldAccents(firstWord(m[1])) != "dueño" && foldAccents(firstWord(m[1])) != "dueña" {
			accept(Candidate{models.FieldName, titleCase(m[1]), baseConfidence + bonusWordBoundary + bonusStrongContext})
		}
	}
	// An email local part is a weak name hint: "diego.lopez@..." -> "Diego".
	if m := emailRe.FindString(message); m != "" {
		local := strings.SplitN(m, "@", 2)[0]
		if i := strings.IndexAny(local, "._-"); i > 0 {
			local = local[:i]
		}
		if len(local) >= 3 && !strings.ContainsAny(local, "0123456789") {
			accept(Candidate{models.FieldName, titleCase(local), baseConfidence})
		}
	}
}

func extractBusiness(message string, accept func(Candidate)) {
	for _, re := range []struct {
		re    interface{ FindStringSubmatch(string) []string }
		bonus float64
	}{
		{businessPossessiveRe, bonusStrongContext},
		{businessOwnerRe, bonusStrongContext},
		{businessWorkRe, bonusStrongContext},
		{businessMineRe, 0},
	} {
		m := re.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		word := foldAccents(m[1])
		if _, generic := genericBusinessTerms[word]; generic {
			continue
		}
		if canonical, ok := fuzzyBusinessMatch(m[1]); ok {
			accept(Candidate{models.FieldBusinessType, canonical, baseConfidence + bonusWordBoundary + re.bonus})
		}
	}
	// Direct vocabulary mention with no surrounding phrase: "el restaurante
	// no está lleno" still tells us the business type.
	for _, w := range words(message) {
		if _, generic := genericBusinessTerms[w]; generic {
			continue
		}
		if canonical, ok := fuzzyBusinessMatch(w); ok {
			accept(Candidate{models.FieldBusinessType, canonical, baseConfidence + bonusWordBoundary})
		}
	}
}

func extractBudget(message string, accept func(Candidate)) {
	// Times and dates look like small money amounts. Blank them out before
	// matching anything that is not anchored on a dollar sign.
	scrubbed := timeOfDayRe.ReplaceAllStringFunc(message, blank)
	scrubbed = dateLikeRe.ReplaceAllStringFunc(scrubbed, blank)

	if m := budgetRangeRe.FindStringSubmatch(scrubbed); m != nil {
		accept(Candidate{models.FieldBudget, m[1] + "-" + m[2], baseConfidence + bonusWordBoundary + bonusStrongContext})
		return
	}
	if m := budgetMinRe.FindStringSubmatch(scrubbed); m != nil {
		accept(Candidate{models.FieldBudget, m[1] + "+", baseConfidence + bonusWordBoundary + bonusStrongContext})
		return
	}
	if m := budgetMaxRe.FindStringSubmatch(scrubbed); m != nil {
		accept(Candidate{models.FieldBudget, m[1], baseConfidence + bonusWordBoundary + bonusStrongContext})
		return
	}
	if m := budgetDollarRe.FindStringSubmatch(scrubbed); m != nil {
		accept(Candidate{models.FieldBudget, m[1], baseConfidence + bonusWordBoundary + bonusStrongContext})
		return
	}
	if m := budgetMonthlyRe.FindStringSubmatch(scrubbed); m != nil {
		accept(Candidate{models.FieldBudget, m[1], baseConfidence + bonusWordBoundary + bonusStrongContext})
		return
	}
	if m := budgetApproxRe.FindStringSubmatch(scrubbed); m != nil {
		accept(Candidate{models.FieldBudget, m[1], baseConfidence + bonusWordBoundary})
	}
}

func extractGoal(message string, accept func(Candidate)) {
	for _, re := range []interface{ FindStringSubmatch(string) []string }{
		goalProblemRe, goalCantRe, goalNeedRe, goalPurposeRe,
	} {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		goal := strings.TrimSpace(m[1])
		if len([]rune(goal)) < 10 {
			continue
		}
		accept(Candidate{models.FieldGoal, goal, baseConfidence + bonusWordBoundary})
		return
	}
}

func extractContact(message string, accept func(Candidate)) {
	if m := emailRe.FindString(message); m != "" {
		accept(Candidate{models.FieldEmail, strings.ToLower(m), baseConfidence + bonusWordBoundary + bonusStrongContext})
	}
	if m := phoneRe.FindString(message); m != "" {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m)
		if len(digits) == 10 {
			accept(Candidate{models.FieldPhone, digits, baseConfidence + bonusWordBoundary + bonusStrongContext})
		}
	}
}

// IsAffirmation reports whether the message is a bare yes. Accent folding
// means "sí" and "si" both count.
func IsAffirmation(message string) bool {
	msg := strings.Trim(foldAccents(strings.TrimSpace(message)), ".!?, ")
	_, ok := affirmations[msg]
	return ok
}

// IsConfusion reports whether the message is a bare "I don't follow" signal,
// e.g. "no entiendo" or "¿cómo?".
func IsConfusion(message string) bool {
	msg := strings.Trim(foldAccents(strings.TrimSpace(message)), ".!?,¿¡ ")
	_, ok := confusions[msg]
	return ok
}

// DetectBudgetConfirmation recognizes a bare affirmation that answers an
// agent message which proposed a concrete amount. The returned value carries
// the "or more" marker, e.g. "300+" for a confirmed "$300 al mes" offer.
func DetectBudgetConfirmation(message, lastAgentMessage string) (string, bool) {
	if lastAgentMessage == "" || !IsAffirmation(message) {
		return "", false
	}
	if m := budgetDollarRe.FindStringSubmatch(lastAgentMessage); m != nil {
		return m[1] + "+", true
	}
	if m := budgetMonthlyRe.FindStringSubmatch(lastAgentMessage); m != nil {
		return m[1] + "+", true
	}
	return "", false
}

func blank(s string) string {
	return strings.Repeat(" ", len(s))
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		r := []rune(strings.ToLower(p))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// String renders the extraction for debug logs.
func (e Extraction) String() string {
	if len(e.Fields) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(e.Fields))
	for name, c := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s=%q(%.2f)", name, c.Value, c.Confidence))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
