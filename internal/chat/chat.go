// Package chat defines the language model interface used to answer
// questions over retrieved note context. Model invocation is delegated
// to an external driver; the pipeline degrades gracefully when no
// model is configured.
package chat

import "context"

// ChatModel produces a completion for a fully assembled prompt.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}
