package lifting

import (
	"fmt"
	"sort"
	"strings"
)

// QualityIssue categorizes a feature quality problem.
type QualityIssue string

const (
	// IssueTooShort: fewer than 2 words.
	IssueTooShort QualityIssue = "too_short"
	// IssueTooLong: more than 10 words.
	IssueTooLong QualityIssue = "too_long"
	// IssueVagueVerb: leads with a vague verb (handle, process, manage, ...).
	IssueVagueVerb QualityIssue = "vague_verb"
	// IssueImplementationDetail: mechanism language instead of intent.
	IssueImplementationDetail QualityIssue = "implementation_detail"
	// IssueDuplicate: same feature submitted twice for one entity.
	IssueDuplicate QualityIssue = "duplicate"
)

// QualityWarning is soft feedback on one submitted feature. Non-blocking:
// features are always applied, but warnings help the agent self-correct on
// subsequent submissions.
type QualityWarning struct {
	EntityID   string       `json:"entityId"`
	Feature    string       `json:"feature"`
	Issue      QualityIssue `json:"issue"`
	Detail     string       `json:"detail"`
	Suggestion string       `json:"suggestion,omitempty"`
}

var vagueVerbs = []string{
	"handle", "process", "manage", "deal", "do", "run", "execute", "perform", "work", "utilize",
}

var implDetailWords = []string{
	"loop", "iterate", "array", "index", "variable", "pointer", "mutex",
	"allocate", "deallocate", "malloc", "free", "increment", "decrement",
}

// Critique checks a submitted feature list for one entity. Runs on the raw
// submission, before normalization, so duplicates and overlong phrases are
// still visible. Returns nil when the features are clean.
func Critique(entityID string, features []string) []QualityWarning {
	var warnings []QualityWarning

	seen := make(map[string]bool, len(features))
	for _, feat := range features {
		lower := strings.ToLower(feat)
		if seen[lower] {
			warnings = append(warnings, QualityWarning{
				EntityID:   entityID,
				Feature:    feat,
				Issue:      IssueDuplicate,
				Detail:     "duplicate feature on same entity",
				Suggestion: "remove the duplicate",
			})
		}
		seen[lower] = true
	}

	for _, feat := range features {
		words := strings.Fields(feat)

		if len(words) < 2 {
			warnings = append(warnings, QualityWarning{
				EntityID:   entityID,
				Feature:    feat,
				Issue:      IssueTooShort,
				Detail:     "too short (< 2 words)",
				Suggestion: `use verb-object form, e.g. "validate input"`,
			})
			continue
		}

		if len(words) > 10 {
			warnings = append(warnings, QualityWarning{
				EntityID:   entityID,
				Feature:    feat,
				Issue:      IssueTooLong,
				Detail:     "too long (> 10 words)",
				Suggestion: "split into multiple atomic features",
			})
		}

		firstWord := strings.ToLower(words[0])
		for _, verb := range vagueVerbs {
			if firstWord == verb {
				warnings = append(warnings, QualityWarning{
					EntityID:   entityID,
					Feature:    feat,
					Issue:      IssueVagueVerb,
					Detail:     fmt.Sprintf("vague verb %q — use a more specific action", verb),
					Suggestion: fmt.Sprintf("replace %q with a specific verb (validate, parse, compute, etc.)", verb),
				})
				break
			}
		}

		lower := strings.ToLower(feat)
		for _, word := range strings.Fields(lower) {
			if containsWord(implDetailWords, word) {
				warnings = append(warnings, QualityWarning{
					EntityID:   entityID,
					Feature:    feat,
					Issue:      IssueImplementationDetail,
					Detail:     "contains implementation detail — describe intent, not mechanism",
					Suggestion: "describe intent, not mechanism",
				})
				break
			}
		}
	}

	return warnings
}

func containsWord(list []string, word string) bool {
	for _, w := range list {
		if w == word {
			return true
		}
	}
	return false
}

// FormatWarnings renders warnings as a markdown section for tool output.
// Returns "" when there is nothing to report.
func FormatWarnings(warnings []QualityWarning) string {
	if len(warnings) == 0 {
		return ""
	}

	byEntity := make(map[string][]QualityWarning)
	for _, w := range warnings {
		byEntity[w.EntityID] = append(byEntity[w.EntityID], w)
	}
	ids := make([]string, 0, len(byEntity))
	for id := range byEntity {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	noun := "entities"
	if len(ids) == 1 {
		noun = "entity"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n## QUALITY\n\n%d %s with feature quality warnings:\n", len(ids), noun)
	for _, id := range ids {
		for _, w := range byEntity[id] {
			if w.Suggestion != "" {
				fmt.Fprintf(&b, "- `%s` -> %q — %s. %s\n", id, w.Feature, w.Detail, w.Suggestion)
			} else {
				fmt.Fprintf(&b, "- `%s` -> %q — %s\n", id, w.Feature, w.Detail)
			}
		}
	}
	return b.String()
}
