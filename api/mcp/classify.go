package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ecofes/lubebot/pkg/classifier"
)

var (
	classifyToolName    = "classify"
	classifyDescription = "Classify a customer query. Returns the category, its confidence, the confidence required before documentation is searched, and the domain keywords found in the text."
)

// ClassifyInput represents the input arguments for the classify tool.
type ClassifyInput struct {
	Text string `json:"text" jsonschema:"the customer query to classify"`
}

// ClassifyOutput represents the output of the classify tool.
type ClassifyOutput struct {
	Category   classifier.Category `json:"category"`
	Confidence float64             `json:"confidence"`
	Threshold  float64             `json:"threshold"`
	Keywords   []string            `json:"keywords"`
}

// Classify runs the classifier and collects the threshold and keywords.
func Classify(c *classifier.Classifier, text string) ClassifyOutput {
	result := c.Classify(text)
	return ClassifyOutput{
		Category:   result.Category,
		Confidence: result.Confidence,
		Threshold:  c.Threshold(result.Category),
		Keywords:   c.ExtractKeywords(text),
	}
}

func (s *Server) handleClassify(_ context.Context, _ *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return errorResult("text is required"), ClassifyOutput{}, nil
	}
	return nil, Classify(s.config.Classifier, input.Text), nil
}
