// Package intel extracts structured lead fields from free-form Spanish
// customer messages and maintains the monotonic 0-10 lead score that drives
// routing.
package intel

import (
	"regexp"
	"strings"
)

// Pattern bank. Everything is compiled once at package load; extraction is
// pure CPU with no I/O.
var (
	// Self-introductions: "soy Diego", "me llamo Ana López", "mi nombre es X".
	nameIntroRe = regexp.MustCompile(`(?i)(?:^|\s)(?:soy|me llamo|mi nombre es)\s+([A-Za-zÁÉÍÓÚÑÜáéíóúñü]+(?:\s+[A-ZÁÉÍÓÚÑ][A-Za-zÁÉÍÓÚÑÜáéíóúñü]+)?)`)

	// Greeting-introduction: "hola, soy Diego" / "buenas, me llamo Ana".
	nameGreetingRe = regexp.MustCompile(`(?i)(?:hola|buenas|buenos días|buenas tardes|buenas noches)[,!]?\s+(?:soy|me llamo)\s+([A-Za-zÁÉÍÓÚÑÜáéíóúñü]+)`)

	// Possessive business: "tengo un restaurante", "tengo una tienda".
	businessPossessiveRe = regexp.MustCompile(`(?i)(?:^|\s)tengo\s+(?:un|una)\s+([a-záéíóúñü]+)`)

	// "mi restaurante", "mi clínica". Only meaningful against the vocabulary.
	businessMineRe = regexp.MustCompile(`(?i)(?:^|\s)mi\s+([a-záéíóúñü]+)`)

	// Occupation: "trabajo en un taller", "soy dueño de una panadería".
	businessWorkRe  = regexp.MustCompile(`(?i)(?:^|\s)trabajo\s+en\s+(?:un|una)\s+([a-záéíóúñü]+)`)
	businessOwnerRe = regexp.MustCompile(`(?i)(?:^|\s)soy\s+dueñ[oa]\s+de\s+(?:un|una)\s+([a-záéíóúñü]+)`)

	// Budget: explicit, monthly, approximate, range, minimum, maximum.
	budgetDollarRe  = regexp.MustCompile(`\$\s?(\d{2,5})`)
	budgetMonthlyRe = regexp.MustCompile(`(?i)(\d{2,5})\s*(?:al mes|mensuales|por mes|mensual)`)
	budgetApproxRe  = regexp.MustCompile(`(?i)(?:unos|como|más o menos|mas o menos|aprox(?:imadamente)?|alrededor de)\s+\$?(\d{2,5})`)
	budgetRangeRe   = regexp.MustCompile(`(?i)entre\s+\$?(\d{2,5})\s+y\s+\$?(\d{2,5})`)
	budgetMinRe     = regexp.MustCompile(`(?i)\$?(\d{2,5})\s+o\s+(?:más|mas)`)
	budgetMaxRe     = regexp.MustCompile(`(?i)(?:hasta|máximo|maximo)\s+\$?(\d{2,5})`)

	// Numbers in these contexts are never budgets.
	timeOfDayRe = regexp.MustCompile(`\d{1,2}:\d{2}|\d{1,2}\s?(?:am|pm|AM|PM)|(?i:a las)\s+\d{1,2}`)
	dateLikeRe  = regexp.MustCompile(`\d{1,2}/\d{1,2}(?:/\d{2,4})?`)

	// Goals: need, problem, purpose.
	goalNeedRe    = regexp.MustCompile(`(?i)(?:^|\s)(?:necesito|quiero|busco|me gustaría|me gustaria)\s+([^.!?\n]+)`)
	goalProblemRe = regexp.MustCompile(`(?i)(?:^|\s)(?:estoy|estamos)\s+(perdiendo[^.!?\n]*|batallando[^.!?\n]*|luchando[^.!?\n]*)`)
	goalCantRe    = regexp.MustCompile(`(?i)(?:^|\s)(no puedo\s+[^.!?\n]+|no logro\s+[^.!?\n]+)`)
	goalPurposeRe = regexp.MustCompile(`(?i)(?:^|\s)para\s+([^.!?\n]{10,})`)

	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// genericBusinessTerms is the closed rejection list: these words describe a
// business without identifying one and are never accepted as business_type.
var genericBusinessTerms = map[string]struct{}{
	"negocio":  {},
	"empresa":  {},
	"local":    {},
	"comercio": {},
}

// businessVocabulary maps accent-folded spellings to the canonical business
// type stored in extracted data.
var businessVocabulary = map[string]string{
	"restaurante":  "restaurante",
	"restaurant":   "restaurante",
	"tienda":       "tienda",
	"clinica":      "clínica",
	"gimnasio":     "gimnasio",
	"gym":          "gimnasio",
	"salon":        "salón",
	"barberia":     "barbería",
	"peluqueria":   "peluquería",
	"panaderia":    "panadería",
	"pasteleria":   "pastelería",
	"farmacia":     "farmacia",
	"taller":       "taller",
	"consultorio":  "consultorio",
	"cafeteria":    "cafetería",
	"cafe":         "café",
	"ferreteria":   "ferretería",
	"lavanderia":   "lavandería",
	"papeleria":    "papelería",
	"floristeria":  "floristería",
	"boutique":     "boutique",
	"spa":          "spa",
	"veterinaria":  "veterinaria",
	"inmobiliaria": "inmobiliaria",
	"agencia":      "agencia",
	"academia":     "academia",
	"taqueria":     "taquería",
	"fonda":        "fonda",
	"bar":          "bar",
	"hotel":        "hotel",
}

// Bare affirmations recognized by the budget confirmation detector. Keys are
// accent-folded.
var affirmations = map[string]struct{}{
	"si":           {},
	"claro":        {},
	"ok":           {},
	"okey":         {},
	"dale":         {},
	"perfecto":     {},
	"vale":         {},
	"va":           {},
	"sale":         {},
	"de acuerdo":   {},
	"esta bien":    {},
	"por supuesto": {},
	"me funciona":  {},
	"claro que si": {},
}

// Confusion signals. Matched against the accent-folded whole message, so
// "No entendí" and "¿Cómo?" both land here.
var confusions = map[string]struct{}{
	"como":               {},
	"que":                {},
	"no entiendo":        {},
	"no entendi":         {},
	"no comprendo":       {},
	"no le entiendo":     {},
	"no te entiendo":     {},
	"no entendi bien":    {},
	"a que se refiere":   {},
	"a que te refieres":  {},
	"que quiere decir":   {},
	"que quieres decir":  {},
	"no se de que habla": {},
}

// Stop-words that are never field values on their own.
var stopWords = map[string]struct{}{
	"si": {},
	"no": {},
	"ok": {},
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u",
)

// foldAccents lowercases and strips Spanish accents. The ñ is preserved: it
// distinguishes words, accents do not.
func foldAccents(s string) string {
	return accentFolder.Replace(strings.ToLower(s))
}

// words splits a message into lowercase accent-folded tokens.
func words(s string) []string {
	return strings.FieldsFunc(foldAccents(s), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == 'ñ' || r == '@' || r == '.')
	})
}
