package router

import (
	"log/slog"

	"github.com/ecofes/lubebot/pkg/logger"
)

const (
	// DefaultContextChunks is how many retrieved chunks go into the prompt.
	DefaultContextChunks = 2

	// DefaultMaxAnswerChars caps generated answers, in characters.
	DefaultMaxAnswerChars = 1000
)

// Option configures a Router.
type Option func(*Router)

// WithMessages replaces the reply texts.
func WithMessages(m Messages) Option {
	return func(r *Router) { r.messages = m }
}

// WithHedges replaces the phrases that turn an answer into an escalation.
func WithHedges(phrases []string) Option {
	return func(r *Router) { r.hedges = phrases }
}

// WithTopK sets how many chunks are retrieved. Zero uses the retriever's default.
func WithTopK(k int) Option {
	return func(r *Router) {
		if k >= 0 {
			r.topK = k
		}
	}
}

// WithContextChunks sets how many retrieved chunks are given to the model.
func WithContextChunks(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.contextChunks = n
		}
	}
}

// WithMaxAnswerChars caps answers. Zero disables the cap.
func WithMaxAnswerChars(n int) Option {
	return func(r *Router) {
		if n >= 0 {
			r.maxAnswerChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = logger.Component(l, "router") }
}
