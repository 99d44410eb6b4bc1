package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestClient starts a fake generateContent endpoint and returns a client
// pointed at it. The handler receives the decoded request body.
func newTestClient(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		handler(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	require.Error(t, err)
}

func TestGenerateTextNormalizesOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, body map[string]any) {
		// Free-text path must not request a response schema.
		gc := body["generationConfig"].(map[string]any)
		require.NotContains(t, gc, "responseSchema")
		require.NotContains(t, gc, "responseMimeType")

		json.NewEncoder(w).Encode(candidateResponse(`Host: "What is your first move?"`)) //nolint:errcheck
	})

	got, err := client.GenerateText(context.Background(), "You are the host.", "continue", GenerateConfig{Temperature: 0.9})
	require.NoError(t, err)
	require.Equal(t, "What is your first move?", got)
}

func TestGenerateTextRejectsAllArtifactOutput(t *testing.T) {
	// A candidate that normalizes to nothing (bare role label, empty
	// quotes) must surface as an empty response, never an empty host line.
	for _, text := range []string{"Host:", "Moderator:  ", "  "} {
		t.Run(text, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
				json.NewEncoder(w).Encode(candidateResponse(text)) //nolint:errcheck
			})

			_, err := client.GenerateText(context.Background(), "You are the host.", "continue", GenerateConfig{})
			require.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestGenerateTextSendsSafetySettings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, body map[string]any) {
		settings := body["safetySettings"].([]any)
		require.Len(t, settings, 6)

		json.NewEncoder(w).Encode(candidateResponse("ok")) //nolint:errcheck
	})

	_, err := client.GenerateText(context.Background(), "", "p", GenerateConfig{})
	require.NoError(t, err)
}

func TestGenerateJSONDecodesStructuredOutput(t *testing.T) {
	schema := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"openingPrompt": {Type: TypeString},
		},
		Required: []string{"openingPrompt"},
	}

	client := newTestClient(t, func(w http.ResponseWriter, body map[string]any) {
		gc := body["generationConfig"].(map[string]any)
		require.Equal(t, "application/json", gc["responseMimeType"])
		require.NotNil(t, gc["responseSchema"])

		json.NewEncoder(w).Encode(candidateResponse(`{"openingPrompt": "Welcome, team."}`)) //nolint:errcheck
	})

	var out struct {
		OpeningPrompt string `mapstructure:"openingPrompt"`
	}
	err := client.GenerateJSON(context.Background(), "sys", "prompt", schema, GenerateConfig{}, &out)
	require.NoError(t, err)
	require.Equal(t, "Welcome, team.", out.OpeningPrompt)
}

func TestGenerateJSONStripsCodeFences(t *testing.T) {
	schema := &Schema{
		Type:       TypeObject,
		Properties: map[string]*Schema{"openingPrompt": {Type: TypeString}},
		Required:   []string{"openingPrompt"},
	}

	client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
		json.NewEncoder(w).Encode(candidateResponse("```json\n{\"openingPrompt\": \"Go.\"}\n```")) //nolint:errcheck
	})

	var out struct {
		OpeningPrompt string `mapstructure:"openingPrompt"`
	}
	require.NoError(t, client.GenerateJSON(context.Background(), "", "p", schema, GenerateConfig{}, &out))
	require.Equal(t, "Go.", out.OpeningPrompt)
}

func TestGenerateJSONClassifiesMalformedOutput(t *testing.T) {
	schema := &Schema{
		Type:       TypeObject,
		Properties: map[string]*Schema{"openingPrompt": {Type: TypeString}},
		Required:   []string{"openingPrompt"},
	}

	t.Run("invalid JSON", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(candidateResponse("not json at all")) //nolint:errcheck
		})

		var out map[string]any
		err := client.GenerateJSON(context.Background(), "", "p", schema, GenerateConfig{}, &out)

		var malformed *MalformedOutputError
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("missing required field", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(candidateResponse(`{"somethingElse": true}`)) //nolint:errcheck
		})

		var out map[string]any
		err := client.GenerateJSON(context.Background(), "", "p", schema, GenerateConfig{}, &out)

		var malformed *MalformedOutputError
		require.ErrorAs(t, err, &malformed)
	})
}

func TestGenerateClassifiesUpstreamFailures(t *testing.T) {
	t.Run("non-200 status is a transport error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		})

		_, err := client.GenerateText(context.Background(), "", "p", GenerateConfig{})

		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		require.Equal(t, http.StatusServiceUnavailable, transport.StatusCode)
	})

	t.Run("unreachable server is a transport error", func(t *testing.T) {
		client, err := NewClient(ClientOptions{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		_, err = client.GenerateText(context.Background(), "", "p", GenerateConfig{})

		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		require.Zero(t, transport.StatusCode)
	})

	t.Run("prompt block is a safety error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"promptFeedback": map[string]any{"blockReason": "SAFETY"},
			})
		})

		_, err := client.GenerateText(context.Background(), "", "p", GenerateConfig{})

		var blocked *SafetyBlockedError
		require.ErrorAs(t, err, &blocked)
		require.Equal(t, "SAFETY", blocked.Reason)
	})

	t.Run("safety finish reason is a safety error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"candidates": []any{map[string]any{"finishReason": "SAFETY"}},
			})
		})

		_, err := client.GenerateText(context.Background(), "", "p", GenerateConfig{})

		var blocked *SafetyBlockedError
		require.ErrorAs(t, err, &blocked)
	})

	t.Run("no candidates is an empty response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}}) //nolint:errcheck
		})

		_, err := client.GenerateText(context.Background(), "", "p", GenerateConfig{})
		require.True(t, errors.Is(err, ErrEmptyResponse))
	})
}
