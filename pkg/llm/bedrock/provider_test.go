package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/pkg/llm"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "nova message content",
			raw:  `{"output":{"message":{"content":[{"text":"{\"a\":1}"},{"text":"tail"}]}}}`,
			want: "{\"a\":1}\ntail",
		},
		{
			name: "anthropic content blocks",
			raw:  `{"content":[{"type":"text","text":"one"},{"type":"image"},{"text":"two"}]}`,
			want: "one\ntwo",
		},
		{
			name: "titan results",
			raw:  `{"results":[{"outputText":"generated"}]}`,
			want: "generated",
		},
		{
			name: "bare output string",
			raw:  `{"output":"plain"}`,
			want: "plain",
		},
		{
			name: "unknown shape",
			raw:  `{"foo":"bar"}`,
			want: `{"foo":"bar"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &payload))
			assert.Equal(t, tt.want, ResponseText(payload))
		})
	}
}

func TestRequestBodyShapes(t *testing.T) {
	history := []llm.Message{{Role: "user", Content: "score this"}}
	opts := llm.Options{MaxTokens: 4096, Temperature: 0.1}

	nova, err := json.Marshal(RequestBody("us.amazon.nova-premier-v1:0", history, opts))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schemaVersion": "messages-v1",
		"messages": [{"role": "user", "content": [{"text": "score this"}]}],
		"inferenceConfig": {"maxTokens": 4096, "temperature": 0.1}
	}`, string(nova))

	messagesBody, err := json.Marshal(RequestBody("anthropic.claude-3-haiku", history, opts))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens": 4096,
		"temperature": 0.1,
		"messages": [{"role": "user", "content": "score this"}]
	}`, string(messagesBody))
}

func TestChatStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{status: http.StatusBadRequest, permanent: true},
		{status: http.StatusForbidden, permanent: true},
		{status: http.StatusRequestTimeout, permanent: false},
		{status: http.StatusTooManyRequests, permanent: false},
		{status: http.StatusInternalServerError, permanent: false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			p := NewProvider("us-west-2", "key", "us.amazon.nova-premier-v1:0", 128, 0)
			p.Endpoint = srv.URL

			_, err := p.Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.Is(err, llm.ErrPermanent))
		})
	}
}

func TestChatSendsBearerAndModelPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"output":{"message":{"content":[{"text":"ok"}]}}}`))
	}))
	defer srv.Close()

	p := NewProvider("us-west-2", "secret", "us.amazon.nova-premier-v1:0", 64, 0)
	p.Endpoint = srv.URL

	text, err := p.Generate(context.Background(), "hello", llm.WithModel("us.amazon.nova-lite-v1:0"))
	require.NoError(t, err)

	assert.Equal(t, "ok", text)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/model/us.amazon.nova-lite-v1:0/invoke", gotPath)
	assert.Equal(t, "messages-v1", gotBody["schemaVersion"])
}
