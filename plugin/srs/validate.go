package srs

import (
	"strings"
)

// British/American spelling equivalences (normalized to American).
var spellingEquivalences = map[string]string{
	"colour":    "color",
	"behaviour": "behavior",
	"favour":    "favor",
	"honour":    "honor",
	"centre":    "center",
	"fibre":     "fiber",
	"grey":      "gray",
	"defence":   "defense",
	"licence":   "license",
	"favourite": "favorite",
	"organise":  "organize",
	"realise":   "realize",
	"mum":       "mom",
}

// Contraction expansions (normalized to expanded form).
var contractions = map[string]string{
	"i'm":       "i am",
	"you're":    "you are",
	"he's":      "he is",
	"she's":     "she is",
	"it's":      "it is",
	"we're":     "we are",
	"they're":   "they are",
	"isn't":     "is not",
	"aren't":    "are not",
	"don't":     "do not",
	"doesn't":   "does not",
	"didn't":    "did not",
	"can't":     "cannot",
	"won't":     "will not",
	"wouldn't":  "would not",
	"couldn't":  "could not",
	"shouldn't": "should not",
}

// parsedAnswer is an answer decomposed by the bracket grammar: [variants],
// <disambiguation>, (suffix) when attached to the core, (info) otherwise.
type parsedAnswer struct {
	core               string
	variants           []string
	suffix             string
	hasSuffix          bool
	disambiguation     string
	hasDisambiguation  bool
	info               string
	hasInfo            bool
	isPhoneticModifier bool
}

func parseAnswerGrammar(mainAnswer string) parsedAnswer {
	var result parsedAnswer
	input := strings.TrimSpace(mainAnswer)

	if isPhoneticModifierAnswer(input) {
		result.isPhoneticModifier = true
		result.core = input
		return result
	}

	var coreParts []rune
	chars := []rune(input)
	i := 0
	for i < len(chars) {
		switch chars[i] {
		case '[':
			if end, ok := findClosingBracket(chars, i, '[', ']'); ok {
				content := string(chars[i+1 : end])
				for _, item := range strings.Split(content, ",") {
					if trimmed := strings.TrimSpace(item); trimmed != "" {
						result.variants = append(result.variants, trimmed)
					}
				}
				i = end + 1
			} else {
				coreParts = append(coreParts, chars[i])
				i++
			}
		case '<':
			if end, ok := findClosingBracket(chars, i, '<', '>'); ok {
				result.disambiguation = strings.TrimSpace(string(chars[i+1 : end]))
				result.hasDisambiguation = true
				i = end + 1
			} else {
				coreParts = append(coreParts, chars[i])
				i++
			}
		case '(':
			if end, ok := findClosingBracket(chars, i, '(', ')'); ok {
				hasSpaceBefore := i > 0 && chars[i-1] == ' '
				content := strings.TrimSpace(string(chars[i+1 : end]))
				if !hasSpaceBefore && i > 0 {
					result.suffix = content
					result.hasSuffix = true
				} else {
					result.info = content
					result.hasInfo = true
				}
				i = end + 1
			} else {
				coreParts = append(coreParts, chars[i])
				i++
			}
		default:
			coreParts = append(coreParts, chars[i])
			i++
		}
	}

	result.core = strings.TrimSpace(string(coreParts))
	return result
}

func findClosingBracket(chars []rune, start int, open, close rune) (int, bool) {
	depth := 0
	for i := start; i < len(chars); i++ {
		switch chars[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func isPhoneticModifierAnswer(answer string) bool {
	normalized := strings.ToLower(answer)
	return strings.Contains(normalized, "(tense)") || strings.Contains(normalized, "(aspirated)")
}

func expandContractions(input string) string {
	words := strings.Fields(input)
	for i, word := range words {
		if expanded, ok := contractions[word]; ok {
			words[i] = expanded
		}
	}
	return strings.Join(words, " ")
}

func normalizeSpellings(input string) string {
	words := strings.Fields(input)
	for i, word := range words {
		if american, ok := spellingEquivalences[word]; ok {
			words[i] = american
		}
	}
	return strings.Join(words, " ")
}

func keepChars(input string, keep func(rune) bool) string {
	var b strings.Builder
	for _, c := range input {
		if keep(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c > 127
}

// normalizeAnswer lowercases, strips punctuation, expands contractions and
// folds British spellings so comparison is about content, not typing style.
func normalizeAnswer(input string) string {
	result := keepChars(strings.TrimSpace(strings.ToLower(input)), func(c rune) bool {
		return isAlphanumeric(c) || c == ' ' || c == '/' || c == '\''
	})
	result = expandContractions(result)
	result = normalizeSpellings(result)
	result = keepChars(result, func(c rune) bool {
		return isAlphanumeric(c) || c == ' ' || c == '/'
	})
	return strings.Join(strings.Fields(result), " ")
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// generateValidAnswers produces the full answer forms (with disambiguation)
// and the partial forms (core only).
func generateValidAnswers(parsed parsedAnswer) (full, partial []string) {
	partial = appendUnique(partial, normalizeAnswer(parsed.core))

	for _, variant := range parsed.variants {
		partial = appendUnique(partial, normalizeAnswer(variant))
	}

	if parsed.hasSuffix {
		partial = appendUnique(partial, normalizeAnswer(parsed.core+parsed.suffix))
	}

	if strings.Contains(parsed.core, ",") {
		for _, part := range strings.Split(parsed.core, ",") {
			partial = appendUnique(partial, normalizeAnswer(strings.TrimSpace(part)))
		}
	}

	if strings.Contains(parsed.core, "/") {
		parts := strings.Split(parsed.core, "/")
		for i, part := range parts {
			parts[i] = strings.TrimSpace(part)
			partial = appendUnique(partial, normalizeAnswer(parts[i]))
		}
		partial = appendUnique(partial, normalizeAnswer(strings.Join(parts, "/")))
	}

	if parsed.hasDisambiguation {
		disambig := normalizeAnswer(parsed.disambiguation)
		for _, p := range partial {
			full = appendUnique(full, p+" "+disambig)
			full = appendUnique(full, disambig+" "+p)
		}
	} else {
		full = append(full, partial...)
	}

	return full, partial
}

// matchesPermutation reports whether every word of the input appears among
// the comma-separated expected terms, in any order or subset.
func matchesPermutation(userInput, expected string) bool {
	inputWords := strings.Fields(userInput)
	if len(inputWords) == 0 {
		return false
	}
	expectedWords := map[string]bool{}
	for _, part := range strings.FieldsFunc(expected, func(c rune) bool { return c == ',' || c == ' ' }) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			expectedWords[trimmed] = true
		}
	}
	for _, word := range inputWords {
		if !expectedWords[word] {
			return false
		}
	}
	return true
}

// levenshteinDistance between two strings, by rune.
func levenshteinDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := 0; j <= len(br); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

// maxTypoDistance is the tolerated edit distance for an answer of the given
// length: none for one character, one for short words, two otherwise.
func maxTypoDistance(length int) int {
	switch {
	case length <= 1:
		return 0
	case length <= 4:
		return 1
	default:
		return 2
	}
}

func parsePhoneticAnswer(answer string) (letter string, modifier string, hasModifier bool) {
	normalized := normalizeAnswer(answer)
	parts := strings.Fields(normalized)
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		for _, m := range []string{"tense", "aspirated"} {
			if last == m || levenshteinDistance(last, m) <= 1 {
				return strings.Join(parts[:len(parts)-1], " "), last, true
			}
		}
	}
	return normalized, "", false
}

func validatePhoneticAnswer(normalizedInput, correctAnswer string) Result {
	correctLetter, correctModifier, correctHas := parsePhoneticAnswer(correctAnswer)
	inputLetter, inputModifier, inputHas := parsePhoneticAnswer(normalizedInput)

	if inputLetter != correctLetter {
		return ResultIncorrect
	}
	if correctHas {
		if !inputHas {
			return ResultIncorrect
		}
		switch levenshteinDistance(inputModifier, correctModifier) {
		case 0:
			return ResultCorrect
		case 1:
			return ResultCloseEnough
		default:
			return ResultIncorrect
		}
	}
	return ResultCorrect
}

func validateAnswer(userInput, correctAnswer string) Result {
	// Parse the user input too, so typing the displayed grammar verbatim
	// (e.g. "I, me <formal>") still matches.
	inputParsed := parseAnswerGrammar(userInput)
	normalizedInput := normalizeAnswer(inputParsed.core)
	if normalizedInput == "" {
		return ResultIncorrect
	}

	parsed := parseAnswerGrammar(correctAnswer)

	if parsed.isPhoneticModifier {
		return validatePhoneticAnswer(normalizedInput, correctAnswer)
	}

	// The user may give the disambiguation either as <formal> or as (formal).
	userHasCorrectDisambig := false
	if parsed.hasDisambiguation {
		expected := normalizeAnswer(parsed.disambiguation)
		if inputParsed.hasDisambiguation && normalizeAnswer(inputParsed.disambiguation) == expected {
			userHasCorrectDisambig = true
		}
		if inputParsed.hasInfo && normalizeAnswer(inputParsed.info) == expected {
			userHasCorrectDisambig = true
		}
	}

	fullAnswers, partialAnswers := generateValidAnswers(parsed)

	for _, answer := range fullAnswers {
		if answer == normalizedInput {
			return ResultCorrect
		}
	}

	// Permutation matching for comma-separated synonyms.
	if strings.Contains(parsed.core, ",") && matchesPermutation(normalizedInput, parsed.core) {
		if userHasCorrectDisambig || !parsed.hasDisambiguation {
			return ResultCorrect
		}
		return ResultPartialMatch
	}

	// Core matched without the expected disambiguation.
	if parsed.hasDisambiguation {
		for _, answer := range partialAnswers {
			if answer == normalizedInput {
				if userHasCorrectDisambig {
					return ResultCorrect
				}
				return ResultPartialMatch
			}
		}
	}

	// Typo tolerance.
	allAnswers := append(append([]string{}, fullAnswers...), partialAnswers...)
	for _, answer := range allAnswers {
		distance := levenshteinDistance(normalizedInput, answer)
		if distance == 0 || distance > maxTypoDistance(len([]rune(answer))) {
			continue
		}
		if parsed.hasDisambiguation {
			for _, p := range partialAnswers {
				if p == answer {
					return ResultPartialMatch
				}
			}
		}
		return ResultCloseEnough
	}

	return ResultIncorrect
}
