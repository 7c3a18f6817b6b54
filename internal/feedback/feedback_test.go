package feedback

import "testing"

var defaultFilter = NewFilter(MinCommentChars)

func TestShouldSkipBoilerplate(t *testing.T) {
	for _, c := range []string{
		"na", "N/A", "n.a.", "No Comments", "no comment.", "No any", "NONE", "none.",
		"  N / A  ",
	} {
		if !defaultFilter.ShouldSkip(c) {
			t.Errorf("expected %q to be skipped", c)
		}
	}
}

func TestShouldSkipBlankAndPunctuation(t *testing.T) {
	for _, c := range []string{"", "   ", "\n\t", "...", ". . .", "!!!???---", "--------------"} {
		if !defaultFilter.ShouldSkip(c) {
			t.Errorf("expected %q to be skipped", c)
		}
	}
}

func TestShouldSkipShortComments(t *testing.T) {
	for _, c := range []string{"good", "ok sir", " nice!  "} {
		if !defaultFilter.ShouldSkip(c) {
			t.Errorf("expected short comment %q to be skipped", c)
		}
	}
}

func TestShouldKeepRealComments(t *testing.T) {
	for _, c := range []string{
		"The teacher explains concepts very clearly and is always fair in grading.",
		"very good",
		"No comments on grading but lectures were boring",
	} {
		if defaultFilter.ShouldSkip(c) {
			t.Errorf("expected %q to be kept", c)
		}
	}
}

func TestFilterCustomMinimum(t *testing.T) {
	f := NewFilter(20)
	if !f.ShouldSkip("too short for this") {
		t.Error("expected comment under 20 chars to be skipped")
	}
	if f.ShouldSkip("this one is long enough to keep") {
		t.Error("expected long comment to be kept")
	}

	if NewFilter(0).MinChars != MinCommentChars {
		t.Errorf("expected default minimum %d", MinCommentChars)
	}
}

func TestPrepareAspects(t *testing.T) {
	records := []Record{
		{Comments: "a", Aspects: map[string]AspectResult{
			"Knowledge": {Terms: "deep knowledge", Polarity: Positive},
			"Legacy":    {Terms: "x"},
		}},
		{Comments: "b"},
	}
	table := NewTable("Fall2024", "Dr. A", DefaultAspects, records)

	for i, r := range table.Records {
		if len(r.Aspects) != len(DefaultAspects) {
			t.Fatalf("record %d: expected %d aspects, got %d", i, len(DefaultAspects), len(r.Aspects))
		}
		for _, a := range DefaultAspects {
			if _, ok := r.Aspects[a]; !ok {
				t.Errorf("record %d missing aspect %q", i, a)
			}
		}
		if _, ok := r.Aspects["Legacy"]; ok {
			t.Errorf("record %d kept unknown aspect", i)
		}
	}
	if got := table.Records[0].Aspects["Knowledge"].Terms; got != "deep knowledge" {
		t.Errorf("expected existing terms kept, got %q", got)
	}
	if got := table.Records[1].Aspects["Behavior"]; got != (AspectResult{}) {
		t.Errorf("expected empty default, got %+v", got)
	}
}

func TestAspectResultDiscussed(t *testing.T) {
	cases := map[AspectResult]bool{
		{}:                                false,
		{Terms: "None"}:                   false,
		{Terms: " none "}:                 false,
		{Terms: "clear lectures"}:         true,
		{Terms: "a,b", Polarity: Neutral}: true,
	}
	for in, want := range cases {
		if got := in.Discussed(); got != want {
			t.Errorf("Discussed(%+v) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Dr. Anita Rao":        "Dr._Anita_Rao",
		"CS 101: Intro/Basics": "CS_101_Intro_Basics",
		`a<>"|?*b`:             "a_b",
		"  padded  ":           "padded",
		"already_safe":         "already_safe",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
