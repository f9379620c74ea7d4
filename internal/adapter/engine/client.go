package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/switchboard/internal/domain"
)

const systemInstructions = `You are a friendly and professional customer service agent for ShopEase Support.

Your role:
- Greet customers warmly and professionally
- Answer questions about products, orders, and services
- Provide helpful information and support
- Listen actively and be empathetic
- Stay concise (2-3 sentences typically)

IMPORTANT - When to transfer:
If the customer:
- Explicitly asks to speak with a human, representative, or agent
- Requests specialized help or technical support
- Seems frustrated or needs escalation
- Asks for something beyond your capabilities

Use the escalate_to_human function to transfer the call.

When ending a call naturally, use the end_call function.

Keep responses warm, conversational, professional yet friendly, and human-like.`

const greeting = "Hello! Thank you for calling ShopEase Support. How can I help you today?"

// Client talks to an OpenAI-compatible chat completion endpoint and
// maps tool calls onto the session's Tools.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Ensure Client implements Engine.
var _ Engine = (*Client)(nil)

// NewClient creates a new engine client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Greet returns the standard opening message.
func (c *Client) Greet(ctx context.Context) (string, error) {
	return greeting, nil
}

// Respond sends the utterance to the model and executes any tool calls
// it requests. Transport failures surface as ErrCollaboratorFailure so
// the agent keeps handling the call.
func (c *Client) Respond(ctx context.Context, utterance string, tools Tools) (string, error) {
	resp, err := c.createChatCompletion(ctx, utterance)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCollaboratorFailure, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrCollaboratorFailure)
	}

	msg := resp.Choices[0].Message
	if msg == nil {
		return "", fmt.Errorf("%w: missing message", domain.ErrCollaboratorFailure)
	}

	for _, call := range msg.ToolCalls {
		switch call.Function.Name {
		case "escalate_to_human":
			var args struct {
				Reason string `json:"reason"`
			}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args.Reason == "" {
				args.Reason = "Customer request"
			}
			return tools.EscalateToHuman(ctx, args.Reason)
		case "end_call":
			return tools.EndCall(ctx)
		case "note_negative_sentiment":
			tools.NoteNegativeSentiment()
		}
	}

	return msg.Content, nil
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []tool        `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int          `json:"index"`
		Message      *chatMessage `json:"message,omitempty"`
		FinishReason string       `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

var callTools = []tool{
	{
		Type: "function",
		Function: toolFunction{
			Name:        "escalate_to_human",
			Description: "Transfer the call to a human operator",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{"type": "string"},
				},
			},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        "end_call",
			Description: "End the call gracefully",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        "note_negative_sentiment",
			Description: "Record that the caller sounds frustrated",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
	},
}

func (c *Client) createChatCompletion(ctx context.Context, utterance string) (*chatCompletionResponse, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstructions},
			{Role: "user", Content: utterance},
		},
		Tools: callTools,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(data))
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
