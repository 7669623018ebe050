// Package rewrite turns raw messages into channel-specific posts: it
// moderates content, fans a message out across its source's bindings,
// and invokes the rewrite engine once per target channel.
package rewrite

import "context"

// Request carries one rewrite invocation's parameters.
type Request struct {
	Text        string
	Style       string  // neutral, formal, casual, brief
	Language    string  // target language code, empty keeps the original
	Extra       string  // free-form channel style instructions
	Temperature float64
}

// Engine rewrites text. A failed or empty rewrite is reported as an
// error; the engine itself performs no retries.
type Engine interface {
	Rewrite(ctx context.Context, req Request) (string, error)
}
