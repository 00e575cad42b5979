package domain

import "strings"

// NormalizeAnswer canonicalizes an answer for comparison: lower-cased with
// runs of whitespace collapsed to single spaces.
func NormalizeAnswer(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// AnswersMatch reports whether a candidate answer is equivalent to the
// declared solution under the puzzle's interaction rule.
func AnswersMatch(declared, candidate string, interaction Interaction) bool {
	if interaction == InteractionMultiPart {
		return answerSetsEqual(declared, candidate)
	}
	return NormalizeAnswer(declared) == NormalizeAnswer(candidate)
}

// answerSetsEqual compares comma-separated answer parts as sets, so
// multi-part answers match regardless of order or duplication.
func answerSetsEqual(declared, candidate string) bool {
	want := answerSet(declared)
	got := answerSet(candidate)
	if len(want) != len(got) {
		return false
	}
	for part := range want {
		if _, ok := got[part]; !ok {
			return false
		}
	}
	return true
}

func answerSet(value string) map[string]struct{} {
	parts := strings.Split(value, ",")
	set := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		normalized := NormalizeAnswer(part)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}
