// Package llm wraps the external chat-completion provider behind a narrow
// interface. The session core never calls the network; only the chat service
// goes through this client, with its own context deadline.
package llm

import (
	"context"

	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// Client produces one assistant reply for a conversation context.
type Client interface {
	// Complete sends system + turns to the provider and returns the reply text.
	Complete(ctx context.Context, system string, turns []model.Turn) (string, error)
}
