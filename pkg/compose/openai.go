package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

const defaultComposeModel = "gpt-4o-mini"

// OpenAIClient implements Client against any OpenAI-compatible chat endpoint.
// Answers are streamed chunk by chunk; the trailing JSON metadata line is
// stripped from the visible answer and parsed for evidence ids and
// confidence.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAIClient creates a new OpenAI-compatible composition client.
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: compose API key is not set", types.ErrConfiguration)
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = defaultComposeModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// composerMeta is the trailing JSON object the model appends after the
// answer text.
type composerMeta struct {
	EvidenceIDs []string `json:"evidence_ids"`
	Confidence  float64  `json:"confidence"`
}

// Compose implements Client.
func (c *OpenAIClient) Compose(ctx context.Context, query string, evidence []types.FusedResult, onToken TokenFunc) (*Composition, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Evidence:\n%s\nQuestion: %s", buildEvidenceBlock(evidence), query),
			},
		},
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chat completion stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onToken != nil {
			onToken(chunk)
		}
	}

	answer, meta := splitMeta(full.String())
	comp := &Composition{
		Answer:      answer,
		EvidenceIDs: meta.EvidenceIDs,
		Confidence:  meta.Confidence,
	}
	if comp.EvidenceIDs == nil {
		// Model omitted or garbled the metadata line. Fall back to
		// crediting everything that was handed over.
		comp.EvidenceIDs = allEvidenceIDs(evidence)
		comp.Confidence = 0.5
	}
	return comp, nil
}

// Summarize implements Client.
func (c *OpenAIClient) Summarize(ctx context.Context, left, right string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   256,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Summary A: %s\n\nSummary B: %s", left, right)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close implements Client.
func (c *OpenAIClient) Close() error { return nil }

// splitMeta separates the answer body from the trailing metadata JSON line.
// LLM output is frequently sloppy JSON, so the line is run through
// jsonrepair before parsing.
func splitMeta(full string) (string, composerMeta) {
	var meta composerMeta
	idx := strings.LastIndex(full, "{")
	if idx < 0 {
		return strings.TrimSpace(full), meta
	}
	candidate := full[idx:]
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return strings.TrimSpace(full), meta
	}
	if err := json.Unmarshal([]byte(repaired), &meta); err != nil || meta.EvidenceIDs == nil {
		return strings.TrimSpace(full), composerMeta{}
	}
	if meta.Confidence < 0 {
		meta.Confidence = 0
	}
	if meta.Confidence > 1 {
		meta.Confidence = 1
	}
	return strings.TrimSpace(full[:idx]), meta
}

func allEvidenceIDs(evidence []types.FusedResult) []string {
	ids := make([]string, len(evidence))
	for i, ev := range evidence {
		ids[i] = ev.EntityID
	}
	return ids
}

var _ Client = (*OpenAIClient)(nil)
