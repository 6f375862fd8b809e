package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// streamTimeout bounds a single SSE exchange with the gateway. Agent turns
// can run several minutes while tools execute.
const streamTimeout = 5 * time.Minute

// Gateway talks to the OpenClaw agent gateway over its OpenAI-compatible
// HTTP API. Conversation continuity lives in the user field: the gateway
// maps "adapter-session-{key}" back onto its own session store.
type Gateway struct {
	baseURL       string
	token         string
	defaultClient *http.Client
	streamClient  *http.Client
}

func NewGateway(baseURL, token string, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL:       baseURL,
		token:         token,
		defaultClient: &http.Client{Timeout: timeout},
		streamClient:  &http.Client{Timeout: streamTimeout},
	}
}

type completionReq struct {
	Model    string       `json:"model"`
	User     string       `json:"user"`
	Messages []gatewayMsg `json:"messages"`
	Stream   bool         `json:"stream,omitempty"`
}

type gatewayMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StreamChunk mirrors one delta frame of the gateway's SSE stream.
type StreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func userField(sessionKey string) string {
	return "adapter-session-" + sessionKey
}

func (g *Gateway) newRequest(ctx context.Context, sessionKey, content string, stream bool) (*http.Request, error) {
	body, err := json.Marshal(completionReq{
		Model:    "agent:main",
		User:     userField(sessionKey),
		Messages: []gatewayMsg{{Role: "user", Content: content}},
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)
	return req, nil
}

// Complete runs one synchronous turn and returns the assistant's reply.
func (g *Gateway) Complete(ctx context.Context, sessionKey, content string) (string, error) {
	req, err := g.newRequest(ctx, sessionKey, content, false)
	if err != nil {
		return "", err
	}

	resp, err := g.defaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out completionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("gateway returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// OpenStream starts a streaming turn. The caller owns the response body.
func (g *Gateway) OpenStream(ctx context.Context, sessionKey, content string) (*http.Response, error) {
	req, err := g.newRequest(ctx, sessionKey, content, true)
	if err != nil {
		return nil, err
	}

	resp, err := g.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return resp, nil
}
