package openai

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/scholia-ai/scholia/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// OpenAIClient implements ai.Client against OpenAI-compatible APIs. It
// manages separate clients for embeddings and chat/completion tasks, a
// request rate limiter shared by both, and a short-lived embedding cache
// so re-ingesting the same document does not repeat embedding calls.
//
// An OpenAIClient should be created using NewOpenAIClient.
type OpenAIClient struct {
	embeddingModel  string
	completionModel string

	chatURL      string
	chatKey      string
	embeddingURL string
	embeddingKey string

	limiter        *rate.Limiter
	embeddingCache *gocache.Cache

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewOpenAIClientParams defines the configuration for creating an
// OpenAIClient.
//
// EmbeddingModel and CompletionModel select the models per task.
// EmbeddingURL/EmbeddingKey and ChatURL/ChatKey configure the endpoints;
// an empty URL uses the default OpenAI endpoint.
// RequestsPerMinute bounds the request rate across both clients
// (0 disables limiting). EmbeddingCacheTTL bounds how long embedding
// results are reused (0 disables the cache).
type NewOpenAIClientParams struct {
	EmbeddingModel  string
	CompletionModel string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	RequestsPerMinute int
	EmbeddingCacheTTL time.Duration
}

// NewOpenAIClient creates a new OpenAIClient configured with the provided
// parameters.
func NewOpenAIClient(params NewOpenAIClientParams) *OpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if params.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(params.RequestsPerMinute)),
			params.RequestsPerMinute,
		)
	}

	var embeddingCache *gocache.Cache
	if params.EmbeddingCacheTTL > 0 {
		embeddingCache = gocache.New(params.EmbeddingCacheTTL, 2*params.EmbeddingCacheTTL)
	}

	return &OpenAIClient{
		embeddingModel:  params.EmbeddingModel,
		completionModel: params.CompletionModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		limiter:        limiter,
		embeddingCache: embeddingCache,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// providerError wraps an SDK or transport error into an ai.ProviderError,
// classifying rate limits and server-side failures as retryable.
func providerError(op string, err error) *ai.ProviderError {
	kind := ai.KindBadResponse

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			kind = ai.KindRateLimited
		case apierr.StatusCode >= 500:
			kind = ai.KindUnavailable
		}
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) {
			kind = ai.KindUnavailable
		}
	}

	return &ai.ProviderError{Provider: "openai", Op: op, Kind: kind, Err: err}
}
