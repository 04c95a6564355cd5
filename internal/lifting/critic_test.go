package lifting

import (
	"strings"
	"testing"

	"rpg/internal/config"
	"rpg/internal/graph"
)

func hasIssue(warnings []QualityWarning, issue QualityIssue) bool {
	for _, w := range warnings {
		if w.Issue == issue {
			return true
		}
	}
	return false
}

func TestCritiqueVagueVerb(t *testing.T) {
	warnings := Critique("src/lib.rs:foo", []string{"handle data"})
	if !hasIssue(warnings, IssueVagueVerb) {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestCritiqueTooShort(t *testing.T) {
	warnings := Critique("src/lib.rs:foo", []string{"auth"})
	if !hasIssue(warnings, IssueTooShort) {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestCritiqueTooLong(t *testing.T) {
	feature := "this is a very long feature description that has way too many words in it"
	warnings := Critique("src/lib.rs:foo", []string{feature})
	if !hasIssue(warnings, IssueTooLong) {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestCritiqueImplementationDetail(t *testing.T) {
	warnings := Critique("src/lib.rs:foo", []string{"loop through results"})
	if !hasIssue(warnings, IssueImplementationDetail) {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestCritiqueDuplicate(t *testing.T) {
	warnings := Critique("src/lib.rs:foo", []string{
		"validate user credentials",
		"validate user credentials",
	})
	if !hasIssue(warnings, IssueDuplicate) {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestCritiqueGoodFeatures(t *testing.T) {
	warnings := Critique("src/lib.rs:foo", []string{
		"validate user credentials",
		"return authentication token",
	})
	if len(warnings) != 0 {
		t.Errorf("good features should produce no warnings, got %+v", warnings)
	}
}

func TestFormatWarnings(t *testing.T) {
	if got := FormatWarnings(nil); got != "" {
		t.Errorf("empty warnings should format to empty string, got %q", got)
	}

	out := FormatWarnings([]QualityWarning{{
		EntityID:   "src/lib.rs:foo",
		Feature:    "handle data",
		Issue:      IssueVagueVerb,
		Detail:     `vague verb "handle" — use a more specific action`,
		Suggestion: "replace with a specific verb",
	}})
	if !strings.Contains(out, "## QUALITY") {
		t.Errorf("missing section header: %q", out)
	}
	if !strings.Contains(out, "handle data") || !strings.Contains(out, "vague verb") {
		t.Errorf("missing warning detail: %q", out)
	}
}

func TestSubmissionCarriesWarnings(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(testEntity("src/a.rs:foo", "src/a.rs", "foo", "fn foo() {}"))

	outcome := ApplySubmission(g, map[string][]string{
		"src/a.rs:foo": {"handle data", "validate request"},
	}, config.DefaultConfig().Encoding)

	if len(outcome.Applied) != 1 {
		t.Fatalf("features must apply despite warnings: %+v", outcome)
	}
	if !hasIssue(outcome.Warnings, IssueVagueVerb) {
		t.Errorf("critique not attached to outcome: %+v", outcome.Warnings)
	}
}
