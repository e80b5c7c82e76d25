package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const summaryPrompt = `You are an assistant that summarizes recorded meetings and lectures.
Read the transcript below and respond with a JSON object.

Requirements:
- "summary": a concise overview of the recording, at most %d characters
%s- Keep the language of the transcript
- Do not invent facts that are not in the transcript

Transcript:
---
%s
---`

// generateFunc performs one model call with a single API key and returns the raw text reply.
type generateFunc func(ctx context.Context, apiKey, model, prompt string) (string, error)

type geminiReply struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	ActionItems []string `json:"actionItems"`
	Topics      []string `json:"topics"`
}

func (g *implGemini) Name() string { return "gemini" }

// Generate sends the transcript to Gemini and decodes the structured reply.
// Rotates API keys on 429 / quota errors; every key is tried at most once.
func (g *implGemini) Generate(ctx context.Context, transcript string, opts Options) (Result, error) {
	if len(g.apiKeys) == 0 {
		return Result{}, errors.New("no API keys configured")
	}

	prompt := buildPrompt(transcript, opts)

	var lastErr error
	for range len(g.apiKeys) {
		key, idx := g.key()

		text, err := g.generate(ctx, key, g.model, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if isQuotaError(err) {
				g.logger.Warn(ctx, "Key %d rate limited, rotating...", idx+1)
				g.rotateKey(idx)
				lastErr = err
				continue
			}
			return Result{}, fmt.Errorf("generate content: %w", err)
		}

		return parseReply(text)
	}

	return Result{}, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *implGemini) key() (string, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKeys[g.currentKey], g.currentKey
}

// rotateKey advances past idx unless another caller already rotated.
func (g *implGemini) rotateKey(idx int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.currentKey == idx {
		g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
	}
}

func isQuotaError(err error) bool {
	errMsg := err.Error()
	return strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED")
}

func buildPrompt(transcript string, opts Options) string {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = 2000
	}

	var fields strings.Builder
	if opts.IncludeKeyPoints {
		fields.WriteString("- \"keyPoints\": the main points in order of appearance\n")
	}
	if opts.IncludeActionItems {
		fields.WriteString("- \"actionItems\": concrete follow-up tasks, empty if there are none\n")
	}
	if opts.IncludeTopics {
		fields.WriteString("- \"topics\": short topic labels\n")
	}

	return fmt.Sprintf(summaryPrompt, maxLength, fields.String(), transcript)
}

func parseReply(text string) (Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var reply geminiReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &reply); err != nil {
		return Result{}, fmt.Errorf("decode reply: %w", err)
	}
	if strings.TrimSpace(reply.Summary) == "" {
		return Result{}, errors.New("empty summary in reply")
	}

	return Result{
		Content:     strings.TrimSpace(reply.Summary),
		KeyPoints:   reply.KeyPoints,
		ActionItems: reply.ActionItems,
		Topics:      reply.Topics,
	}, nil
}

var replySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":     {Type: genai.TypeString},
		"keyPoints":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"actionItems": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"topics":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"summary"},
}

// generateContent is the production generateFunc backed by the genai SDK.
func generateContent(ctx context.Context, apiKey, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   replySchema,
	})
	if err != nil {
		return "", err
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text string
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		return text, nil
	}

	return "", errors.New("empty response from Gemini")
}
