package store

import "context"

// Example statuses in the suggestion log, set by the external approval
// workflow.
const (
	ExampleApproved = "approved"
	ExampleDeclined = "declined"
)

// Example is one historical exchange from the suggestion log, used as
// in-context style guidance for the generator.
type Example struct {
	OriginalText  string
	GeneratedText string
}

// PromptStore serves prompt templates and the example log.
type PromptStore interface {
	// Template returns the prompt template body by name, with line endings
	// normalized to \n. Returns ErrNotFound when the template is missing.
	Template(ctx context.Context, name string) (string, error)

	// Examples returns up to limit examples for the given prompt name and
	// status, most recent first.
	Examples(ctx context.Context, promptName, status string, limit int) ([]Example, error)
}
