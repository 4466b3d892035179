package embeddings

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// fakeEmbeddingAPI records requests and returns scripted responses
type fakeEmbeddingAPI struct {
	resp     openai.EmbeddingResponse
	err      error
	requests []openai.EmbeddingRequest
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if req, ok := conv.(openai.EmbeddingRequest); ok {
		f.requests = append(f.requests, req)
	}
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	return f.resp, nil
}

func testVector(fill float32) []float32 {
	v := make([]float32, ExpectedDim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestEmbed_PreservesInputOrder(t *testing.T) {
	// Responses arrive index-tagged but out of order
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{
			{Index: 1, Embedding: testVector(2)},
			{Index: 0, Embedding: testVector(1)},
		},
	}}
	client := NewClientWithAPI(api, "voyage-3")

	vectors, err := client.Embed(context.Background(), []string{"first", "second"}, ModeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float64(1), vectors[0][0])
	assert.Equal(t, float64(2), vectors[1][0])
}

func TestEmbed_QueryModePrependsInstruction(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: testVector(1)}},
	}}
	client := NewClientWithAPI(api, "voyage-3")

	_, err := client.Embed(context.Background(), []string{"buy milk"}, ModeQuery)
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	inputs, ok := api.requests[0].Input.([]string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(inputs[0], queryInstruction))
	assert.True(t, strings.HasSuffix(inputs[0], "buy milk"))
}

func TestEmbed_DocumentModeSendsTextVerbatim(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: testVector(1)}},
	}}
	client := NewClientWithAPI(api, "voyage-3")

	_, err := client.Embed(context.Background(), []string{"buy milk"}, ModeDocument)
	require.NoError(t, err)

	inputs := api.requests[0].Input.([]string)
	assert.Equal(t, []string{"buy milk"}, inputs)
}

func TestEmbed_EmptyInputSkipsRequest(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	client := NewClientWithAPI(api, "voyage-3")

	vectors, err := client.Embed(context.Background(), nil, ModeDocument)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Empty(t, api.requests)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: make([]float32, 768)}},
	}}
	client := NewClientWithAPI(api, "voyage-3")

	_, err := client.Embed(context.Background(), []string{"buy milk"}, ModeQuery)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsErrorType(err, pkgerrors.ErrorTypeService))
	assert.Contains(t, err.Error(), "1024")
}

func TestEmbed_VectorCountMismatch(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: testVector(1)}},
	}}
	client := NewClientWithAPI(api, "voyage-3")

	_, err := client.Embed(context.Background(), []string{"one", "two"}, ModeDocument)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsErrorType(err, pkgerrors.ErrorTypeService))
}

func TestEmbed_TransportError(t *testing.T) {
	api := &fakeEmbeddingAPI{err: fmt.Errorf("connection refused")}
	client := NewClientWithAPI(api, "voyage-3")

	_, err := client.Embed(context.Background(), []string{"buy milk"}, ModeQuery)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsErrorType(err, pkgerrors.ErrorTypeService))
}

func TestEmbedQuery(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: testVector(0.5)}},
	}}
	client := NewClientWithAPI(api, "voyage-3")

	vector, err := client.EmbedQuery(context.Background(), "buy milk")
	require.NoError(t, err)
	assert.Len(t, vector, ExpectedDim)
}

func TestSelfCheck(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: testVector(1)}},
	}}
	client := NewClientWithAPI(api, "voyage-3")
	require.NoError(t, client.SelfCheck(context.Background()))

	api.err = fmt.Errorf("gateway down")
	require.Error(t, client.SelfCheck(context.Background()))
}
