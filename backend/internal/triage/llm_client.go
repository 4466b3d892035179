package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
	"cozy-triage/backend/pkg/logger"
)

// PromptVersion tags each triage session with the prompt revision that
// produced it
const PromptVersion = "v1"

// contextEntryCap bounds each context list sent to the model
const contextEntryCap = 5

// triageAttempts is the total request budget: the initial call plus exactly
// one retry on parse or schema-validation failure.
const triageAttempts = 2

const systemPrompt = `You are a triage assistant for a personal task manager.
The user gives you an unstructured "brain dump". Decompose it into discrete
actionable task items.

Respond with a single JSON object and nothing else:
{"items": [{
  "raw_text": "<the fragment of the dump this item came from>",
  "action_title": "<imperative title, max 200 chars>",
  "description": "<expanded description, max 2000 chars>",
  "status": "<INBOX|NEXT|IN_PROGRESS|WAITING|SOMEDAY|DONE|ARCHIVED>",
  "priority": <1-5>,
  "urgency": <1-5>,
  "effort": "<XS|S|M|L|XL>",
  "para_bucket": "<PROJECT|AREA|RESOURCE|ARCHIVE>",
  "project_suggestions": ["<existing or new project name>"],
  "area_suggestions": ["<existing or new area name>"],
  "needs_clarification": <bool>,
  "clarifying_questions": ["<question>"],
  "duplicate_candidates": ["<title of a likely duplicate from the context>"],
  "next_action": "<the very next physical action, max 500 chars>"
}]}

Prefer the user's existing projects and areas from the context block. Use
status INBOX unless the dump clearly states otherwise.`

// chatAPI is the slice of the OpenAI client the triage client uses
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMClient sends brain-dump text to the language model through an
// OpenAI-compatible gateway and returns validated candidate items.
type LLMClient struct {
	api    chatAPI
	model  string
	logger *zap.Logger
}

// NewLLMClient creates a triage client against the gateway
func NewLLMClient(gatewayURL, apiKey, model string) *LLMClient {
	// Gateways like LiteLLM accept a dummy key
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = gatewayURL + "/v1"
	config.HTTPClient = &http.Client{Timeout: 90 * time.Second}

	return &LLMClient{
		api:    openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

// NewLLMClientWithAPI wraps an existing API implementation, mainly for tests
func NewLLMClientWithAPI(api chatAPI, model string) *LLMClient {
	return &LLMClient{
		api:    api,
		model:  model,
		logger: logger.Get(),
	}
}

// Model returns the model identifier
func (c *LLMClient) Model() string {
	return c.model
}

// Triage sends text plus a bounded context summary to the model and returns
// validated candidate items. Empty or whitespace-only text is rejected
// before any network call. On parse or validation failure the identical
// request is retried exactly once; a second failure surfaces to the caller,
// never a partial result. Transport failures propagate immediately.
func (c *LLMClient) Triage(ctx context.Context, text string, tctx Context) ([]CandidateItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.ErrEmptyInput
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text, tctx)},
		},
		Temperature: 0.2,
	}

	var lastErr error
	for attempt := 1; attempt <= triageAttempts; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, pkgerrors.NewUpstreamServiceError("llm", err)
		}
		if len(resp.Choices) == 0 {
			lastErr = pkgerrors.NewValidationError("response", "no choices in completion")
			continue
		}

		content := stripCodeFence(resp.Choices[0].Message.Content)

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(content), &data); err != nil {
			lastErr = fmt.Errorf("parse triage response: %w", err)
			c.logger.Warn("Triage response parse failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		items, err := validateItems(data)
		if err != nil {
			lastErr = err
			c.logger.Warn("Triage response validation failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		c.logger.Debug("Triage items generated",
			zap.Int("count", len(items)),
			zap.Int("attempt", attempt),
		)
		return items, nil
	}

	return nil, lastErr
}

// buildPrompt combines the brain dump with a bounded context summary
func buildPrompt(text string, tctx Context) string {
	var b strings.Builder
	b.WriteString("Brain dump:\n")
	b.WriteString(text)
	b.WriteString("\n\nContext:\n")
	writeContextList(&b, "Recent projects", tctx.RecentProjects)
	writeContextList(&b, "Active areas", tctx.ActiveAreas)
	writeContextList(&b, "Recent next actions", tctx.RecentNextActions)
	return b.String()
}

func writeContextList(b *strings.Builder, heading string, entries []string) {
	b.WriteString(heading)
	if len(entries) == 0 {
		b.WriteString(": (none)\n")
		return
	}
	if len(entries) > contextEntryCap {
		entries = entries[:contextEntryCap]
	}
	b.WriteString(":\n")
	for _, entry := range entries {
		b.WriteString("- ")
		b.WriteString(entry)
		b.WriteString("\n")
	}
}

// stripCodeFence removes an optional ```json ... ``` wrapper some models put
// around the response
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if idx := strings.Index(content, "\n"); idx >= 0 {
		content = content[idx+1:]
	} else {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
