package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/relay/internal/flow"
)

// DefaultMaxTurns bounds how often Invoke resumes a paused server-tool turn.
const DefaultMaxTurns = 5

// ErrTruncated is returned when a response hits the max_tokens limit.
var ErrTruncated = errors.New("response truncated at max_tokens")

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithSearch enables or disables the web search tool. maxUses caps searches
// per request; zero leaves the API default.
func WithSearch(enabled bool, maxUses int64) InvokerOption {
	return func(i *Invoker) {
		i.search = enabled
		i.searchMaxUses = maxUses
	}
}

// WithMaxTurns overrides DefaultMaxTurns.
func WithMaxTurns(n int) InvokerOption {
	return func(i *Invoker) {
		if n > 0 {
			i.maxTurns = n
		}
	}
}

// Invoker runs pipeline units against the Messages API.
type Invoker struct {
	client        *Client
	search        bool
	searchMaxUses int64
	maxTurns      int
}

var _ flow.Invoker = (*Invoker)(nil)

// NewInvoker creates an Invoker backed by client. Web search is on by default.
func NewInvoker(client *Client, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		client:   client,
		search:   true,
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke sends the unit instruction as the system prompt and returns the
// concatenated text of the reply.
func (i *Invoker) Invoke(ctx context.Context, req flow.Request) (string, error) {
	params := i.baseParams(req)
	if i.search && req.HasCapability(flow.CapabilitySearch) {
		ws := &anthropic.WebSearchTool20250305Param{}
		if i.searchMaxUses > 0 {
			ws.MaxUses = anthropic.Int(i.searchMaxUses)
		}
		params.Tools = []anthropic.ToolUnionParam{{OfWebSearchTool20250305: ws}}
	}

	var out strings.Builder
	for turn := 1; ; turn++ {
		resp, err := i.send(ctx, params)
		if err != nil {
			return "", err
		}
		for _, block := range resp.Content {
			if text, ok := block.AsAny().(anthropic.TextBlock); ok {
				out.WriteString(text.Text)
			}
		}

		switch resp.StopReason {
		case anthropic.StopReasonPauseTurn:
			if turn >= i.maxTurns {
				log.Printf("[api] warning: %s still paused after %d turns, returning partial output", req.Unit, turn)
				return out.String(), nil
			}
			params.Messages = append(params.Messages, resp.ToParam())
		case anthropic.StopReasonMaxTokens:
			return "", fmt.Errorf("%s: %w", req.Unit, ErrTruncated)
		case anthropic.StopReasonRefusal:
			return "", fmt.Errorf("%s: model refused the request", req.Unit)
		default:
			return out.String(), nil
		}
	}
}

// Decide offers each candidate as a tool and forces the model to call one.
func (i *Invoker) Decide(ctx context.Context, req flow.Request, candidates []flow.Candidate) (flow.Decision, error) {
	params := i.baseParams(req)
	params.System = append(params.System, anthropic.TextBlockParam{
		Text: "Choose exactly one of the available tools to continue. Do not answer directly.",
	})
	for _, c := range candidates {
		tool := &anthropic.ToolParam{
			Name: c.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"reason": map[string]any{
						"type":        "string",
						"description": "Why this option fits.",
					},
				},
			},
		}
		if c.Description != "" {
			tool.Description = anthropic.String(c.Description)
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: tool})
	}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfAny: &anthropic.ToolChoiceAnyParam{DisableParallelToolUse: anthropic.Bool(true)},
	}

	resp, err := i.send(ctx, params)
	if err != nil {
		return flow.Decision{}, err
	}

	d := flow.Decision{Raw: resp.RawJSON()}
	for _, block := range resp.Content {
		if use, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			d.Selected = append(d.Selected, use.Name)
		}
	}
	return d, nil
}

func (i *Invoker) baseParams(req flow.Request) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     i.client.Model(),
		MaxTokens: i.client.MaxTokens(),
		System:    []anthropic.TextBlockParam{{Text: req.Instruction}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req.Inputs))),
		},
	}
}

func (i *Invoker) send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	resp, err := i.client.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	i.client.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if n := resp.Usage.ServerToolUse.WebSearchRequests; n > 0 {
		i.client.tracker.AddSearches(n)
	}
	return resp, nil
}

// userPrompt lists the unit's inputs as the user turn.
func userPrompt(inputs map[string]string) string {
	if len(inputs) == 0 {
		return "Begin."
	}
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, inputs[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// classifyError marks transient failures as flow.ErrInvokerUnavailable.
// Cancellation of the caller's context passes through untouched.
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if retryable(apiErr.StatusCode) {
			return fmt.Errorf("%w: %w", flow.ErrInvokerUnavailable, err)
		}
		return fmt.Errorf("anthropic: %w", err)
	}
	// Keep transport timeouts from reading as caller cancellation.
	return fmt.Errorf("%w: %v", flow.ErrInvokerUnavailable, err)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500
}
