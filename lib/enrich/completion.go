package enrich

import (
	"context"
	"fmt"
	"time"

	"beanscout-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Completer produces a text completion for a system/user prompt pair.
// Implementations must treat failures as recoverable; callers fall back
// to the unenriched record.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type CompletionOptions struct {
	// openai-compatible api root, e.g. "https://api.openai.com/v1"
	BaseUrl string
	ApiKey  string
	Model   string
	Timeout time.Duration
}

// CompletionClient talks to an openai-compatible chat completions
// endpoint.
type CompletionClient struct {
	http  *resty.Client
	model string
}

func NewCompletionClient(opts CompletionOptions) *CompletionClient {
	client := resty.New().
		SetBaseURL(opts.BaseUrl).
		SetRetryCount(2)
	if opts.ApiKey != "" {
		client.SetAuthToken(opts.ApiKey)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 60
	}
	client.SetTimeout(timeout)
	telemetry.InstrumentResty(client, "beanscout.lib.enrich")

	return &CompletionClient{http: client, model: opts.Model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *CompletionClient) Complete(ctx context.Context, system, user string) (string, error) {
	var out chatCompletionResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("completion request failed: %s", res.Status())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
