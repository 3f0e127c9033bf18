package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/scholia-ai/scholia/pkg/ai"

	"github.com/openai/openai-go/v3"
	gocache "github.com/patrickmn/go-cache"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model.
//
// The input is provided as a byte slice and will be converted to a string
// before being sent to the embedding model. Results are cached by content
// hash so re-ingesting an unchanged document does not repeat the call.
//
// Example:
//
//	embedding, err := client.GenerateEmbedding(ctx, []byte("Hybrid retrieval over citation graphs"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Embedding length:", len(embedding))
func (c *OpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	text := strings.TrimSpace(string(input))
	if text == "" {
		return nil, fmt.Errorf("empty embedding input")
	}

	cacheKey := embeddingCacheKey(c.embeddingModel, text)
	if c.embeddingCache != nil {
		if cached, ok := c.embeddingCache.Get(cacheKey); ok {
			return cached.([]float32), nil
		}
	}

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		Model: c.embeddingModel,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(ctx, body)
	if err != nil {
		return nil, providerError("embedding", err)
	}
	duration := time.Since(start).Milliseconds()

	metrics := ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  duration,
	}
	c.modifyMetrics(metrics)

	if len(response.Data) != 1 {
		return nil, providerError("embedding", fmt.Errorf(
			"embedding response size mismatch: got %d want 1", len(response.Data),
		))
	}

	vec := make([]float32, 0, len(response.Data[0].Embedding))
	for _, v := range response.Data[0].Embedding {
		vec = append(vec, float32(v))
	}

	if c.embeddingCache != nil {
		c.embeddingCache.Set(cacheKey, vec, gocache.DefaultExpiration)
	}
	return vec, nil
}

func embeddingCacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
