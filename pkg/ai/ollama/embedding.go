package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholia-ai/scholia/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama.
//
// The input is provided as a byte slice and converted to a string before
// being sent to the embedding model. The returned slice contains the
// embedding vector as float32 values.
func (c *OllamaClient) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	text := strings.TrimSpace(string(input))
	if text == "" {
		return nil, fmt.Errorf("empty embedding input")
	}

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: text,
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(ctx, req)
	if err != nil {
		return nil, providerError("embedding", err)
	}

	durationMs := res.TotalDuration.Milliseconds()

	metrics := ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  durationMs,
	}
	c.modifyMetrics(metrics)

	if len(res.Embeddings) != 1 {
		return nil, providerError("embedding", fmt.Errorf(
			"embedding response size mismatch: got %d want 1", len(res.Embeddings),
		))
	}

	out := make([]float32, 0, len(res.Embeddings[0]))
	for _, v := range res.Embeddings[0] {
		out = append(out, float32(v))
	}
	return out, nil
}
