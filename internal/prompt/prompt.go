// Package prompt renders stored prompt templates. Templates use named
// placeholders; the set of keys is closed and enumerable so substitution
// stays testable instead of ad hoc string surgery at call sites.
package prompt

import "strings"

// Placeholder keys recognized in stored templates.
const (
	KeyMessages     = "{messages_for_prompt}"
	KeyHistory      = "{conversation_history_json}"
	KeyGoodExamples = "{dynamic_examples}"
	KeyBadExamples  = "{bad_examples}"
)

// Vars is the structured context substituted into a template. Empty fields
// replace their placeholder with nothing, which is the correct behavior for
// optional blocks like examples.
type Vars struct {
	Messages     string // JSON array of candidate messages (router stage)
	History      string // JSON array of the conversation window (generator stage)
	GoodExamples string // approved example block
	BadExamples  string // declined example block
}

// Render substitutes all known placeholders in template with vars.
// Unknown placeholders are left as-is; templates are operator-managed data
// and a typo should be visible in the rendered prompt, not silently eaten.
func Render(template string, vars Vars) string {
	return strings.NewReplacer(
		KeyMessages, vars.Messages,
		KeyHistory, vars.History,
		KeyGoodExamples, vars.GoodExamples,
		KeyBadExamples, vars.BadExamples,
	).Replace(template)
}

// Placeholders returns the closed set of recognized keys.
func Placeholders() []string {
	return []string{KeyMessages, KeyHistory, KeyGoodExamples, KeyBadExamples}
}
