// Package agent runs the multi-round tool orchestration loop: the model is
// called with the registered tool schemas, requested tools are executed,
// their results are fed back, and the loop repeats until the model answers
// in plain text or the iteration cap is hit.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/httpclient"
	"github.com/clio-ai/clio/pkg/llms"
	"github.com/clio-ai/clio/pkg/tools"
	"github.com/clio-ai/clio/pkg/utils"
)

// MaxIterationsMessage is returned as the answer when the loop hits its
// iteration cap while the model is still requesting tools.
const MaxIterationsMessage = "Maximum tool iterations reached without a final answer."

// maxRetryWait bounds how long a rate limit retry may sleep.
const maxRetryWait = 30 * time.Second

// Agent orchestrates model rounds and tool execution.
type Agent struct {
	provider      llms.Provider
	registry      *tools.Registry
	maxIterations int
	systemPrompt  string
	counter       *utils.TokenCounter
}

// Result is the outcome of one Run.
type Result struct {
	Answer       string        `json:"answer"`
	Iterations   int           `json:"iterations"`
	ToolCalls    int           `json:"tool_calls"`
	TokensUsed   int           `json:"tokens_used"`
	LimitReached bool          `json:"limit_reached,omitempty"`
	Impacts      *llms.Impacts `json:"impacts,omitempty"`
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt sets the system message prepended to every run.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// New builds an agent. The token counter is best-effort: when the encoding
// cannot be loaded the agent falls back to rough estimates.
func New(provider llms.Provider, registry *tools.Registry, cfg *config.AgentConfig, opts ...Option) *Agent {
	counter, err := utils.NewTokenCounter(provider.ModelName())
	if err != nil {
		slog.Warn("token counter unavailable, using estimates", "error", err)
		counter = nil
	}

	a := &Agent{
		provider:      provider,
		registry:      registry,
		maxIterations: cfg.MaxIterations,
		counter:       counter,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run answers a question, executing tools as the model requests them.
//
// Tool failures never abort the run: an unknown tool, unparseable
// arguments, or an execution error each produce a notice message the model
// sees on its next round. Only backend failures end the run with an error.
func (a *Agent) Run(ctx context.Context, question string) (*Result, error) {
	tracer := otel.Tracer("clio.agent")
	ctx, span := tracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.model", a.provider.ModelName()),
			attribute.Int("agent.max_iterations", a.maxIterations),
		),
	)
	defer span.End()

	messages := make([]llms.Message, 0, 8)
	if a.systemPrompt != "" {
		messages = append(messages, llms.Message{Role: llms.RoleSystem, Content: a.systemPrompt})
	}
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: question})

	definitions := a.registry.Definitions()
	slog.Debug("starting run",
		"question_tokens", a.countTokens(question),
		"tools", len(definitions))

	result := &Result{}
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		result.Iterations = iteration

		completion, err := a.generateWithRetry(ctx, messages, definitions)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		result.TokensUsed += completion.TokensUsed
		result.Impacts = addImpacts(result.Impacts, completion.Impacts)

		if len(completion.ToolCalls) == 0 {
			result.Answer = completion.Text
			span.SetAttributes(
				attribute.Int("agent.iterations", result.Iterations),
				attribute.Int("agent.tool_calls", result.ToolCalls),
			)
			span.SetStatus(codes.Ok, "answered")
			return result, nil
		}

		// The assistant turn that requested the tools must precede the
		// tool result turns in the transcript.
		messages = append(messages, llms.Message{
			Role:      llms.RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		for _, call := range completion.ToolCalls {
			result.ToolCalls++
			messages = append(messages, a.invoke(ctx, call))
		}
	}

	slog.Warn("iteration cap reached",
		"max_iterations", a.maxIterations,
		"tool_calls", result.ToolCalls)
	span.SetAttributes(attribute.Int("agent.iterations", result.Iterations))
	span.SetStatus(codes.Ok, "iteration cap")

	result.Answer = MaxIterationsMessage
	result.LimitReached = true
	return result, nil
}

// Chat answers without any tools, joining the user input parts with spaces.
func (a *Agent) Chat(ctx context.Context, parts ...string) (*Result, error) {
	completion, err := a.generateWithRetry(ctx, []llms.Message{
		{Role: llms.RoleUser, Content: strings.Join(parts, " ")},
	}, nil)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:     completion.Text,
		Iterations: 1,
		TokensUsed: completion.TokensUsed,
		Impacts:    completion.Impacts,
	}, nil
}

// generateWithRetry calls the provider, retrying once after the advertised
// delay when retries inside the HTTP client were already exhausted by rate
// limiting.
func (a *Agent) generateWithRetry(ctx context.Context, messages []llms.Message, definitions []llms.ToolDefinition) (*llms.Completion, error) {
	completion, err := a.provider.Generate(ctx, messages, definitions)
	if err == nil {
		return completion, nil
	}

	var retryErr *httpclient.RetryableError
	if !errors.As(err, &retryErr) {
		return nil, err
	}

	wait := retryErr.RetryAfter
	if wait <= 0 || wait > maxRetryWait {
		wait = maxRetryWait
	}
	slog.Warn("rate limited, retrying once", "wait", wait)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}

	return a.provider.Generate(ctx, messages, definitions)
}

func (a *Agent) countTokens(text string) int {
	if a.counter == nil {
		return utils.EstimateTokens(text)
	}
	return a.counter.Count(text)
}

// addImpacts accumulates per-round impact estimates.
func addImpacts(total, round *llms.Impacts) *llms.Impacts {
	if round == nil {
		return total
	}
	if total == nil {
		copied := *round
		return &copied
	}
	total.GWP.Min += round.GWP.Min
	total.GWP.Max += round.GWP.Max
	total.WCF.Min += round.WCF.Min
	total.WCF.Max += round.WCF.Max
	return total
}
