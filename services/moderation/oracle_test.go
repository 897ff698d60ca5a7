package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Oracle {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOracle(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "claude-3-5-sonnet-20241022",
	})
}

func TestModerateParsesVerdict(t *testing.T) {
	var gotRequest messagesRequest
	oracle := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NotEmpty(t, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{
			"content": [{
				"type": "text",
				"text": "{\"sanitized_description\":\"a fun game\",\"is_appropriate_for_under13\":false,\"flags\":[\"violence\"],\"reasoning\":\"combat focus\"}"
			}]
		}`))
	})

	verdict := oracle.Moderate(context.Background(), "a violent game", "Battle Sim")

	require.Equal(t, "a fun game", verdict.SanitizedDescription)
	require.False(t, verdict.AppropriateForUnder13)
	require.Equal(t, []string{"violence"}, verdict.Flags)
	require.Equal(t, "combat focus", verdict.Reasoning)

	require.Equal(t, 1000, gotRequest.MaxTokens)
	require.Len(t, gotRequest.Messages, 1)
	require.Contains(t, gotRequest.Messages[0].Content, "Game: Battle Sim")
	require.Contains(t, gotRequest.Messages[0].Content, "Description: a violent game")
}

func TestModerateFallbackOnMalformedReply(t *testing.T) {
	oracle := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"sorry, I cannot help with that"}]}`))
	})

	verdict := oracle.Moderate(context.Background(), "some description", "Some Game")

	require.Equal(t, "some description", verdict.SanitizedDescription)
	require.True(t, verdict.AppropriateForUnder13)
	require.Equal(t, []string{"ai-error"}, verdict.Flags)
	require.Contains(t, verdict.Reasoning, "AI analysis failed:")
}

func TestModerateFallbackOnServerError(t *testing.T) {
	oracle := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	verdict := oracle.Moderate(context.Background(), "some description", "Some Game")

	require.Equal(t, "some description", verdict.SanitizedDescription)
	require.True(t, verdict.AppropriateForUnder13)
	require.Equal(t, []string{"ai-error"}, verdict.Flags)
	require.Contains(t, verdict.Reasoning, "AI analysis failed:")
}
