package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
	"cozy-triage/backend/pkg/logger"
)

// ExpectedDim is the fixed dimensionality delivered by the embedding model,
// matching the task_embedding_idx vector index.
const ExpectedDim = 1024

// Mode selects the embedding input type
type Mode string

const (
	// ModeDocument embeds text for bulk indexing
	ModeDocument Mode = "document"
	// ModeQuery embeds text for single lookups
	ModeQuery Mode = "query"
)

// The OpenAI-compatible embeddings request carries no input_type field, so
// query mode is expressed as a retrieval instruction prepended to each
// input, the same prompt the input_type flag selects server-side.
const queryInstruction = "Represent the query for retrieving supporting documents: "

// embeddingAPI is the slice of the OpenAI client the embedding client uses
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client converts text to fixed-dimension vectors through an
// OpenAI-compatible gateway. Stateless, pure request/response.
type Client struct {
	api    embeddingAPI
	model  string
	logger *zap.Logger
}

// NewClient creates an embedding client against the gateway
func NewClient(gatewayURL, apiKey, model string) *Client {
	// Gateways like LiteLLM accept a dummy key
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = gatewayURL + "/v1"
	config.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return &Client{
		api:    openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

// NewClientWithAPI wraps an existing API implementation, mainly for tests
func NewClientWithAPI(api embeddingAPI, model string) *Client {
	return &Client{
		api:    api,
		model:  model,
		logger: logger.Get(),
	}
}

// Model returns the embedding model identifier
func (c *Client) Model() string {
	return c.model
}

// Embed returns one 1024-dimensional vector per input text, order-preserving
func (c *Client) Embed(ctx context.Context, texts []string, mode Mode) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		if mode == ModeQuery {
			inputs[i] = queryInstruction + text
		} else {
			inputs[i] = text
		}
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: inputs,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamServiceError("embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, pkgerrors.NewUpstreamServiceError("embeddings",
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float64, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, pkgerrors.NewUpstreamServiceError("embeddings",
				fmt.Errorf("vector index %d out of range", data.Index))
		}
		if len(data.Embedding) != ExpectedDim {
			return nil, pkgerrors.NewUpstreamServiceError("embeddings",
				fmt.Errorf("expected %d-dim vector, got %d", ExpectedDim, len(data.Embedding)))
		}
		vector := make([]float64, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float64(v)
		}
		vectors[data.Index] = vector
	}

	c.logger.Debug("Texts embedded",
		zap.Int("count", len(texts)),
		zap.String("mode", string(mode)),
	)
	return vectors, nil
}

// EmbedQuery embeds a single lookup string
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.Embed(ctx, []string{text}, ModeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// SelfCheck embeds a sentinel string and asserts the returned dimension, for
// operational verification only.
func (c *Client) SelfCheck(ctx context.Context) error {
	vector, err := c.EmbedQuery(ctx, "ping")
	if err != nil {
		return err
	}
	if len(vector) != ExpectedDim {
		return pkgerrors.NewUpstreamServiceError("embeddings",
			fmt.Errorf("self-check expected %d-dim vector, got %d", ExpectedDim, len(vector)))
	}
	return nil
}
