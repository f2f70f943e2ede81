package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/intentlens/intentlens/internal/config"
	"github.com/intentlens/intentlens/internal/insights"
	"github.com/intentlens/intentlens/internal/session"
)

const systemPrompt = "You are an expert UX analyst specializing in user behavior analysis. " +
	"Analyze user sessions to infer intent and identify friction points."

// OpenAIInferrer infers user intent from session narratives with a chat
// completion model in JSON mode.
type OpenAIInferrer struct {
	client *openai.Client
	model  string
}

// NewOpenAIInferrer creates an inferrer from config. An empty API key is an
// error; callers run without a collaborator in that case.
func NewOpenAIInferrer(cfg config.IntentConfig) (*OpenAIInferrer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("intent: api key not configured")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIInferrer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// inferenceResponse is the JSON shape the model is instructed to return.
type inferenceResponse struct {
	Hypotheses []struct {
		Intent     string   `json:"intent"`
		Confidence float64  `json:"confidence"`
		Evidence   []string `json:"evidence"`
	} `json:"hypotheses"`
}

// InferIntent implements insights.Inferrer.
func (i *OpenAIInferrer) InferIntent(ctx context.Context, sess *session.Reconstructed, patterns []insights.FrictionPattern) ([]insights.IntentHypothesis, error) {
	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       i.model,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(sess, patterns)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("intent: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("intent: empty completion response")
	}

	var parsed inferenceResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("intent: parse completion: %w", err)
	}

	timestamp := sess.EndTime
	if timestamp.IsZero() {
		timestamp = sess.StartTime
	}

	hypotheses := make([]insights.IntentHypothesis, 0, len(parsed.Hypotheses))
	for _, h := range parsed.Hypotheses {
		hypotheses = append(hypotheses, insights.IntentHypothesis{
			Hypothesis:         h.Intent,
			Confidence:         h.Confidence,
			SupportingEvidence: h.Evidence,
			Timestamp:          timestamp,
		})
	}
	return hypotheses, nil
}

func buildPrompt(sess *session.Reconstructed, patterns []insights.FrictionPattern) string {
	return fmt.Sprintf(`Analyze this user session and infer their intent.

Session Summary:
- Duration: %dms
- Page Views: %d
- Interactions: %d
- Friction Events: %d

Event Sequence:
%s

Friction Patterns Detected:
%s

Based on this data, provide:
1. Primary user intent (what they were trying to accomplish)
2. Secondary intents (if any)
3. Supporting evidence for each intent
4. Confidence score (0.0-1.0) for each hypothesis

Respond in JSON format:
{
  "hypotheses": [
    {
      "intent": "description of intent",
      "confidence": 0.8,
      "evidence": ["evidence 1", "evidence 2"]
    }
  ]
}
`,
		sess.DurationMS(),
		sess.PageViews(),
		sess.Interactions(),
		len(patterns),
		insights.EventNarrative(sess),
		insights.FrictionNarrative(patterns),
	)
}
