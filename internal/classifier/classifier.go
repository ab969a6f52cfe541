// Package classifier decides whether a user message warrants document
// retrieval. It is deliberately rule-based and deterministic: patterns are
// fixed, evaluation order is fixed, and every input reaches a verdict.
package classifier

import (
	"regexp"
	"strings"
)

// Reason tags why a retrieval decision was made.
type Reason string

const (
	ReasonSimpleGreeting Reason = "simple_greeting"
	ReasonMedicalKeyword Reason = "medical_keyword_detected"
	ReasonQuestion       Reason = "question_detected"
	ReasonSingleWord     Reason = "single_word"
	ReasonSubstantial    Reason = "substantial_query"
	ReasonDefault        Reason = "default_no_retrieval"
)

// Simple-intent patterns, evaluated in order: greetings, thanks, farewells,
// acknowledgments, yes/no.
var simplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(hi|hello|hey|greetings|good morning|good evening|good afternoon)\b`),
	regexp.MustCompile(`\b(thank you|thanks|thx|appreciate it)\b`),
	regexp.MustCompile(`\b(bye|goodbye|see you|take care)\b`),
	regexp.MustCompile(`\b(ok|okay|got it|understood|alright|sure)\b`),
	regexp.MustCompile(`\b(yes|yeah|yep|no|nope)\b`),
}

// Medical keywords matched as raw substrings. A keyword embedded inside an
// unrelated word (e.g. "test" in "testing") still triggers retrieval; this is
// intentional and covered by tests.
var medicalKeywords = []string{
	"symptom", "treatment", "disease", "diagnosis", "medicine", "medication",
	"cure", "pain", "fever", "infection", "doctor", "hospital", "prescription",
	"side effect", "dosage", "therapy", "vaccine", "surgery", "condition",
	"blood", "pressure", "diabetes", "cancer", "heart", "lung", "kidney",
	"test", "scan", "mri", "x-ray", "injury", "allergy", "chronic", "acute",
	"disorder", "illness", "sick", "health",
}

var questionWords = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "can": {}, "should": {}, "is": {}, "are": {}, "does": {},
	"do": {}, "could": {}, "would": {}, "will": {},
}

// Classify determines whether the query needs document retrieval. Rules are
// checked in strict order; the first match wins.
func Classify(query string) (bool, Reason) {
	lower := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(lower)
	wordCount := len(words)

	// Rule 1: very short queries matching a simple intent.
	if wordCount <= 3 {
		for _, pat := range simplePatterns {
			if pat.MatchString(lower) {
				return false, ReasonSimpleGreeting
			}
		}
	}

	// Rule 2: medical keywords anywhere in the query.
	for _, keyword := range medicalKeywords {
		if strings.Contains(lower, keyword) {
			return true, ReasonMedicalKeyword
		}
	}

	// Rule 3: question word among the first three tokens of a longer query.
	if wordCount >= 3 {
		for _, w := range words[:3] {
			if _, ok := questionWords[w]; ok {
				return true, ReasonQuestion
			}
		}
	}

	// Rule 4: single-word queries default to no retrieval.
	if wordCount == 1 {
		return false, ReasonSingleWord
	}

	// Substantial queries get retrieval when uncertain.
	if wordCount >= 4 {
		return true, ReasonSubstantial
	}

	return false, ReasonDefault
}

// SimpleResponse returns the canned reply for a query that needs no
// retrieval. Categories are re-checked in the same fixed order as the
// simple-intent patterns; the function is pure and never calls the generator.
func SimpleResponse(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))

	switch {
	case simplePatterns[0].MatchString(lower): // greetings
		return "Hello! I'm your medical assistant. I can help answer questions about " +
			"symptoms, treatments, medications, and general health information. " +
			"How can I assist you today?"
	case simplePatterns[1].MatchString(lower): // thanks
		return "You're very welcome! If you have any other health-related questions, " +
			"feel free to ask. I'm here to help!"
	case simplePatterns[2].MatchString(lower): // goodbye
		return "Goodbye! Take care of your health. Feel free to return anytime you " +
			"have questions. Stay well!"
	case simplePatterns[3].MatchString(lower): // acknowledgments
		return "Is there anything else you'd like to know about your health or medical concerns?"
	case simplePatterns[4].MatchString(lower): // yes/no
		return "Could you please provide more details about your question? " +
			"I'm here to help with any health-related information you need."
	}

	return "I'm here to help with medical and health-related questions. " +
		"Could you please elaborate on what you'd like to know?"
}
