package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req completionReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent:main", req.Model)
		assert.Equal(t, "adapter-session-key-1", req.User)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"hi there"}}]}`)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "secret", 10*time.Second)
	answer, err := gw.Complete(context.Background(), "key-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", answer)
}

func TestGateway_CompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "secret", 10*time.Second)
	_, err := gw.Complete(context.Background(), "key-1", "hello")
	assert.ErrorContains(t, err, "status 502")
}

func TestGateway_CompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "secret", 10*time.Second)
	_, err := gw.Complete(context.Background(), "key-1", "hello")
	assert.ErrorContains(t, err, "no choices")
}

func TestGateway_OpenStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "secret", 10*time.Second)
	resp, err := gw.OpenStream(context.Background(), "key-1", "hello")
	require.NoError(t, err)
	defer resp.Body.Close()

	var deltas []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") || line == "data: [DONE]" {
			continue
		}
		var ch StreamChunk
		require.NoError(t, json.Unmarshal([]byte(line[6:]), &ch))
		if len(ch.Choices) > 0 {
			deltas = append(deltas, ch.Choices[0].Delta.Content)
		}
	}
	assert.Equal(t, []string{"hi"}, deltas)
}
