package intel

// fuzzyThreshold is the minimum normalized similarity for a misspelled word
// to match a vocabulary entry.
const fuzzyThreshold = 0.80

// similarity returns 1 - levenshtein(a, b)/max(len(a), len(b)) over runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(prev[lb])/float64(longest)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// fuzzyBusinessMatch looks a word up in the business vocabulary, tolerating
// misspellings above the similarity threshold. Exact folded matches win.
func fuzzyBusinessMatch(word string) (string, bool) {
	folded := foldAccents(word)
	if canonical, ok := businessVocabulary[folded]; ok {
		return canonical, true
	}
	// Fuzzy matching on very short words produces junk.
	if len([]rune(folded)) < 5 {
		return "", false
	}
	best, bestScore := "", 0.0
	for spelling, canonical := range businessVocabulary {
		if s := similarity(folded, spelling); s >= fuzzyThreshold && s > bestScore {
			best, bestScore = canonical, s
		}
	}
	return best, best != ""
}
