// Package router decides how the bot answers a query: with a canned reply,
// a generated answer grounded in retrieved documents, or a hand-off to a
// manager.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/generation"
	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/utils"
)

// Action is the kind of reply.
type Action string

const (
	ActionCanned   Action = "canned"
	ActionAnswer   Action = "answer"
	ActionEscalate Action = "escalate"
)

// Retriever returns the texts of the chunks most relevant to query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []string
}

// Reply is the router's answer to one query.
type Reply struct {
	Text       string              `json:"text"`
	Action     Action              `json:"action"`
	Category   classifier.Category `json:"category"`
	Confidence float64             `json:"confidence"`
	Contexts   []string            `json:"contexts,omitempty"`
	Keywords   []string            `json:"keywords,omitempty"`
}

// Router combines the classifier, retriever and generator.
type Router struct {
	classifier *classifier.Classifier
	retriever  Retriever
	generator  generation.Generator

	messages       Messages
	hedges         []string
	topK           int
	contextChunks  int
	maxAnswerChars int
	logger         *slog.Logger
}

// New returns a Router.
func New(c *classifier.Classifier, r Retriever, g generation.Generator, opts ...Option) *Router {
	rt := &Router{
		classifier:     c,
		retriever:      r,
		generator:      g,
		messages:       DefaultMessages(""),
		hedges:         DefaultHedges,
		contextChunks:  DefaultContextChunks,
		maxAnswerChars: DefaultMaxAnswerChars,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Respond answers text. It never fails: every error path ends in a
// fallback or escalation message.
func (r *Router) Respond(ctx context.Context, text string) Reply {
	result := r.classifier.Classify(text)
	reply := Reply{Category: result.Category, Confidence: result.Confidence}
	log := r.logger.With("category", result.Category, "confidence", result.Confidence)

	if canned, ok := r.classifier.CannedReply(result.Category); ok {
		reply.Text = canned
		reply.Action = ActionCanned
		return reply
	}

	if threshold := r.classifier.Threshold(result.Category); result.Confidence < threshold {
		log.Info("confidence below threshold, escalating", "threshold", threshold)
		return r.escalate(reply, r.messages.Escalation)
	}

	reply.Keywords = r.classifier.ExtractKeywords(text)
	query := text
	if len(reply.Keywords) > 0 {
		query = text + " " + strings.Join(reply.Keywords, " ")
	}

	reply.Contexts = r.retriever.Search(ctx, query, r.topK)
	if len(reply.Contexts) == 0 {
		log.Info("no context found", "keywords", reply.Keywords)
		return r.escalate(reply, r.messages.NoContext)
	}

	resp, err := r.generator.Generate(ctx, generation.Request{
		System: r.messages.System,
		Prompt: BuildPrompt(text, reply.Contexts, r.contextChunks),
	})
	if err != nil {
		log.Error("generation failed", "error", err)
		return r.escalate(reply, r.messages.Fallback)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" || r.hedged(answer) {
		log.Info("model could not answer, escalating")
		return r.escalate(reply, r.messages.Escalation)
	}

	reply.Text = utils.Ellipsize(answer, r.maxAnswerChars)
	reply.Action = ActionAnswer
	log.Debug("answered", "contexts", len(reply.Contexts), "model", resp.Model)
	return reply
}

// BuildPrompt formats the first n contexts and the question for the model.
func BuildPrompt(question string, contexts []string, n int) string {
	if n > 0 && len(contexts) > n {
		contexts = contexts[:n]
	}
	return "Context:\n" + strings.Join(contexts, "\n\n") + "\n\nQuestion: " + question
}

func (r *Router) escalate(reply Reply, text string) Reply {
	reply.Text = text
	reply.Action = ActionEscalate
	return reply
}

func (r *Router) hedged(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range r.hedges {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
