package crm

import "strings"

// maxChunkLen is the per-message character limit enforced by the CRM
// messaging endpoints.
const maxChunkLen = 300

// splitMessage splits body into chunks of at most maxChunkLen characters,
// preferring sentence boundaries, then word boundaries. Chunk order matches
// reading order. Empty input yields no chunks.
func splitMessage(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if runeLen(body) <= maxChunkLen {
		return []string{body}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range splitSentences(body) {
		sLen := runeLen(sentence)
		if sLen > maxChunkLen {
			// Oversized sentence: flush what we have, then split on words.
			flush()
			chunks = append(chunks, splitWords(sentence)...)
			continue
		}
		// +1 for the joining space
		if currentLen > 0 && currentLen+1+sLen > maxChunkLen {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sLen
	}
	flush()

	return chunks
}

// splitSentences splits text after sentence-ending punctuation (. ! ?)
// followed by whitespace. Trailing punctuation stays with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			// Consume runs of closing punctuation ("!?", "...")
			end := i
			for end+1 < len(runes) && isSentenceEnd(runes[end+1]) {
				end++
			}
			if end+1 >= len(runes) || runes[end+1] == ' ' || runes[end+1] == '\n' {
				s := strings.TrimSpace(string(runes[start : end+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = end + 1
				i = end
			}
		}
	}
	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitWords splits an oversized sentence on word boundaries, hard-cutting
// only words that alone exceed the limit.
func splitWords(sentence string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range strings.Fields(sentence) {
		wLen := runeLen(word)
		if wLen > maxChunkLen {
			flush()
			for _, part := range cutRunes(word, maxChunkLen) {
				chunks = append(chunks, part)
			}
			continue
		}
		if currentLen > 0 && currentLen+1+wLen > maxChunkLen {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wLen
	}
	flush()

	return chunks
}

// cutRunes hard-splits s into pieces of at most max runes.
func cutRunes(s string, max int) []string {
	runes := []rune(s)
	var parts []string
	for len(runes) > max {
		parts = append(parts, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func runeLen(s string) int {
	return len([]rune(s))
}
