package correlation

import (
	"strings"
	"unicode"
)

const (
	lexicalLengthScale = 10.0
	maxLexicalScore    = 1.0
	headingMatchBonus  = 0.1
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
	// summary boilerplate
	"change": {}, "changed": {}, "modified": {}, "added": {}, "deleted": {}, "renamed": {}, "related": {},
}

// lexicalScore measures how much of the signal's vocabulary appears in a
// chunk, in [0, 1]. Heading hits earn a small bonus.
func lexicalScore(query, chunkText, headingPath string) float64 {
	queryTokens := uniqueTokens(filterStopwords(tokenize(query)))
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches, distinct int
	for _, token := range queryTokens {
		if n := chunkFreq[token]; n > 0 {
			rawMatches += n
			distinct++
		}
	}

	coverage := float64(distinct) / float64(len(queryTokens))
	density := float64(rawMatches) / (1 + float64(len(chunkTokens))) * lexicalLengthScale
	score := coverage * min(density, 1)

	if headingPath != "" {
		headingSet := make(map[string]struct{})
		for _, token := range tokenize(headingPath) {
			headingSet[token] = struct{}{}
		}
		for _, token := range queryTokens {
			if _, ok := headingSet[token]; ok {
				score += headingMatchBonus
			}
		}
	}

	return min(score, maxLexicalScore)
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	return result
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
