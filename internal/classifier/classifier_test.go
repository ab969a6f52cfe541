package classifier

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		query  string
		want   bool
		reason Reason
	}{
		{"hi", false, ReasonSimpleGreeting},
		{"hello there", false, ReasonSimpleGreeting},
		{"ok", false, ReasonSimpleGreeting},
		{"thanks a lot", false, ReasonSimpleGreeting},
		{"what are the symptoms of flu", true, ReasonMedicalKeyword},
		{"my blood pressure is high", true, ReasonMedicalKeyword},
		{"How are you", true, ReasonQuestion},
		{"can that happen again", true, ReasonQuestion},
		{"banana", false, ReasonSingleWord},
		{"tell me something interesting today", true, ReasonSubstantial},
		{"two words", false, ReasonDefault},
	}
	for _, tc := range cases {
		got, reason := Classify(tc.query)
		if got != tc.want || reason != tc.reason {
			t.Errorf("Classify(%q) = (%v, %s), want (%v, %s)",
				tc.query, got, reason, tc.want, tc.reason)
		}
	}
}

// A keyword hit outranks the question-word rule regardless of word count.
func TestClassifyKeywordOutranksQuestion(t *testing.T) {
	got, reason := Classify("why does my heart race")
	if !got || reason != ReasonMedicalKeyword {
		t.Fatalf("expected medical_keyword_detected, got (%v, %s)", got, reason)
	}
}

// Substring matching means keywords embedded in unrelated words also trigger
// retrieval. This mirrors the documented matching behavior.
func TestClassifyEmbeddedKeywordSubstring(t *testing.T) {
	got, reason := Classify("we were testing it")
	if !got || reason != ReasonMedicalKeyword {
		t.Fatalf("expected substring keyword match, got (%v, %s)", got, reason)
	}
}

func TestClassifySingleWordNotSimple(t *testing.T) {
	got, reason := Classify("weather")
	if got || reason != ReasonSingleWord {
		t.Fatalf("expected (false, single_word), got (%v, %s)", got, reason)
	}
}

func TestSimpleResponseCategories(t *testing.T) {
	greeting := SimpleResponse("hello")
	thanks := SimpleResponse("thank you")
	bye := SimpleResponse("goodbye")
	ack := SimpleResponse("got it")
	yesNo := SimpleResponse("yes")
	fallback := SimpleResponse("something unclassifiable")

	responses := []string{greeting, thanks, bye, ack, yesNo, fallback}
	for i, r := range responses {
		if r == "" {
			t.Fatalf("response %d is empty", i)
		}
	}
	if greeting == fallback || thanks == greeting {
		t.Fatalf("category responses should differ")
	}
}

func TestSimpleResponseIdempotent(t *testing.T) {
	for _, q := range []string{"hi", "thanks", "bye", "sure", "nope", "hmm"} {
		if SimpleResponse(q) != SimpleResponse(q) {
			t.Fatalf("SimpleResponse(%q) not stable", q)
		}
	}
}
