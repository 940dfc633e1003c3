package llm

import "context"

// Provider is a black-box text completion collaborator. Completions are
// requested in JSON mode: callers prompt for a JSON object and parse the
// returned text themselves.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)
