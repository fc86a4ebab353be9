// Package llm defines the text completion seam shared by the analyzer and the
// script rewriter.
package llm

import (
	"context"
	"strings"
)

// Completer sends one system and user prompt pair and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// StripCodeFence removes a surrounding markdown code fence (optionally tagged
// json) from a model reply so it can be decoded.
func StripCodeFence(s string) string {
	cleaned := strings.TrimSpace(s)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if end := strings.Index(cleaned, "```"); end >= 0 {
		cleaned = cleaned[:end]
	}
	cleaned = strings.TrimPrefix(cleaned, "json")
	return strings.TrimSpace(cleaned)
}
