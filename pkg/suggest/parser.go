package suggest

import (
	"encoding/json"
	"regexp"
	"strings"
)

const maxQueries = 4

var (
	arrayRe        = regexp.MustCompile(`\[.*\]`)
	trailingComma  = regexp.MustCompile(`,\s*]`)
	commaSpacing   = regexp.MustCompile(`"\s*,\s*"`)
	quotedQuestion = regexp.MustCompile(`"[^"]*[?？][^"]*"`)
	bareQuestion   = regexp.MustCompile(`[^\[\]",]{10,}[?？]`)
)

// Parse extracts suggested questions from a model completion. Models
// rarely return the clean JSON array they were asked for, so parsing
// cascades through progressively looser strategies: direct JSON, repaired
// JSON, quoted question extraction, and finally bare question fragments.
// The result is always a deduplicated list of at most four questions; a
// completion with nothing usable yields an empty slice, never an error.
func Parse(raw string) []string {
	cleaned := strings.Join(strings.Fields(strings.TrimSpace(raw)), " ")
	if cleaned == "" {
		return nil
	}

	var queries []string
	if strings.HasPrefix(cleaned, "[") && strings.HasSuffix(cleaned, "]") {
		if err := json.Unmarshal([]byte(cleaned), &queries); err == nil {
			return postProcess(queries)
		}
	}

	if arr := arrayRe.FindString(cleaned); arr != "" {
		if repaired := parseRepaired(arr); len(repaired) > 0 {
			return postProcess(repaired)
		}
	}

	if matches := quotedQuestion.FindAllString(cleaned, -1); len(matches) > 0 {
		queries = queries[:0]
		for _, m := range matches {
			queries = append(queries, strings.Trim(m, `"`))
		}
		return postProcess(queries)
	}

	if matches := bareQuestion.FindAllString(cleaned, -1); len(matches) > 0 {
		queries = queries[:0]
		for _, m := range matches {
			queries = append(queries, strings.Trim(m, `"' `))
		}
		return postProcess(queries)
	}
	return nil
}

// parseRepaired fixes the JSON defects models commonly produce (trailing
// commas, erratic comma spacing) and, failing that, re-quotes the array
// elements by hand.
func parseRepaired(arr string) []string {
	fixed := trailingComma.ReplaceAllString(arr, "]")
	fixed = commaSpacing.ReplaceAllString(fixed, `", "`)

	var queries []string
	if err := json.Unmarshal([]byte(fixed), &queries); err == nil {
		return queries
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(arr, "["), "]")
	for _, item := range strings.Split(inner, ",") {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			queries = append(queries, item)
		}
	}
	return queries
}

// postProcess applies the shared quality gate: trimmed, longer than five
// runes, actually a question, unique, at most four.
func postProcess(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, maxQueries)
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if len([]rune(q)) <= 5 {
			continue
		}
		if !strings.ContainsAny(q, "?？") {
			continue
		}
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == maxQueries {
			break
		}
	}
	return out
}
