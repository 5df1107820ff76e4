package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/pkg/circuitbreaker"
	"github.com/ecolens/backend/pkg/logger"
	"github.com/ecolens/backend/pkg/retry"
)

// Client is the analyst adapter over the OpenAI chat capability.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.Breaker
	retryPolicy retry.Policy
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	JSONMode     bool
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// resolveAPIKey falls back to the OPENAI_API_KEY environment variable, the
// same source the pipeline's credential check reads. The two must agree or a
// run could take the live path with an unauthenticated client.
func resolveAPIKey(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("OPENAI_API_KEY")
}

func NewClient(apiKey, model string, temperature float32, maxTokens int, timeout time.Duration) *Client {
	apiKey = resolveAPIKey(apiKey)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		cb:          cb,
		retryPolicy: retry.DefaultPolicy(logger.GetLogger()),
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var result *CompletionResponse

	err := c.cb.Execute(func() error {
		return c.retryPolicy.Run(ctx, func() error {
			resp, err := c.client.CreateChatCompletion(ctx, chatReq)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

const synthesisSystemPrompt = `You are an expert sustainable engineer performing comparative life cycle assessment.
Given a subject and retrieved evidence, produce a decision matrix as JSON with exactly this shape:
{"subjects": ["..."], "rows": [{"criterion": "...", "values": ["..."], "verdict": "..."}], "narrative": "..."}

Rules:
1. Compare on at least: global warming potential, water usage, recyclability.
2. Each row's values array must align one-to-one with the subjects array.
3. Base figures ONLY on the provided evidence; mark estimates as "(est)".
4. If the evidence is empty or insufficient, the narrative must begin by stating that the evidence was insufficient.
5. End the narrative with a one-sentence recommendation.

Return JSON only.`

// Synthesize turns the evidence set into a structured comparison record. The
// model's free-text answer is parsed and validated here; output that cannot be
// coerced into the record shape is a SynthesisFormatError, transport failures
// are a SynthesisError.
func (c *Client) Synthesize(ctx context.Context, query string, evidence assessment.EvidenceSet) (*assessment.ComparisonRecord, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   buildSynthesisPrompt(query, evidence),
		Temperature:  0.2,
		JSONMode:     true,
	})
	if err != nil {
		return nil, &assessment.SynthesisError{Cause: err}
	}

	record, err := parseComparison(resp.Content, len(evidence) == 0)
	if err != nil {
		return nil, err
	}
	record.Query = query

	logger.Info("Comparison synthesized",
		zap.String("query", query),
		zap.Int("rows", len(record.Rows)),
		zap.Int("evidence", len(evidence)),
	)
	return record, nil
}

func buildSynthesisPrompt(query string, evidence assessment.EvidenceSet) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Subject: %s\n\nEvidence:\n", query)

	if len(evidence) == 0 {
		builder.WriteString("(none retrieved)\n")
	}
	for i, item := range evidence {
		fmt.Fprintf(&builder, "\n[Source %d] %s\nURL: %s\n%s\n", i+1, item.Source, item.URL, item.Snippet)
	}

	builder.WriteString("\nProduce the comparison matrix JSON.")
	return builder.String()
}
