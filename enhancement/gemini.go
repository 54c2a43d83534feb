package enhancement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalcosts-backend/models"

	"github.com/google/generative-ai-go/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const geminiSystemPrompt = `You rewrite legal costs calculations into plain English for a self-represented litigant.
You receive a JSON calculation and optional reference excerpts.
Return the SAME JSON object with only "explanation", "notes" and "next_steps" rewritten.
Never change any amount, citation, rule id, authority, module id, breakdown line or confidence.
Do not cite any rule, section, schedule or case that is not already in the calculation.
Keep every "must", "may" and "shall" exactly as written and never add or remove a "not".`

var (
	ErrEmptyResponse = errors.New("gemini returned no content")
	ErrBlocked       = errors.New("gemini blocked the prompt")
)

const (
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// contentGenerator is the slice of *genai.GenerativeModel the enhancer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiEnhancer asks a Gemini model to reword a calculation. Its output is
// untrusted and always goes through the gate's validator.
type GeminiEnhancer struct {
	model   contentGenerator
	backoff time.Duration
}

// NewGeminiEnhancer configures a JSON-mode model on the given client.
func NewGeminiEnhancer(client *genai.Client, modelName string) *GeminiEnhancer {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(geminiSystemPrompt)},
	}
	return &GeminiEnhancer{model: model, backoff: initialBackoff}
}

type geminiPayload struct {
	Calculation *models.CalculationResult `json:"calculation"`
	References  []geminiReference         `json:"references,omitempty"`
}

type geminiReference struct {
	Citation string `json:"citation"`
	Text     string `json:"text"`
}

func (e *GeminiEnhancer) Enhance(ctx context.Context, req EnhancementRequest) (*models.CalculationResult, error) {
	prompt, err := buildGeminiPrompt(req)
	if err != nil {
		return nil, err
	}

	var resp *genai.GenerateContentResponse
	backoff := e.backoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err = e.model.GenerateContent(ctx, genai.Text(prompt))
		if err == nil {
			break
		}
		if ctx.Err() != nil || attempt == maxRetries-1 {
			return nil, fmt.Errorf("gemini generate after %d attempts: %w", attempt+1, err)
		}
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return parseCandidate(text)
}

func buildGeminiPrompt(req EnhancementRequest) (string, error) {
	payload := geminiPayload{Calculation: req.Result}
	for _, ref := range req.References {
		payload.References = append(payload.References, geminiReference{
			Citation: ref.Citation,
			Text:     ref.Text,
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal calculation: %w", err)
	}
	return "Rewrite the free-text fields of this calculation and return the calculation object only.\n\n" + string(data), nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// Only the first candidate with content is used.
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// parseCandidate accepts either the bare calculation object or the payload
// wrapper echoed back, with or without a markdown code fence.
func parseCandidate(text string) (*models.CalculationResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var wrapped geminiPayload
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Calculation != nil {
		return wrapped.Calculation, nil
	}

	var candidate models.CalculationResult
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, fmt.Errorf("parse enhancer response: %w (raw: %s)", err, truncate(text, 200))
	}
	return &candidate, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
