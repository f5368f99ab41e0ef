package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret_ParsesStepsFromModelResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])
		assert.Contains(t, req["prompt"], "open notes")

		resp := map[string]string{
			"response": "Sure: [{\"intent\": \"open_app\", \"app\": \"Notes\"}] done.",
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", 0.0, 2*time.Second)
	payload, err := c.Interpret(context.Background(), "open notes", nil, []string{"open_app"})
	require.NoError(t, err)

	list, ok := payload.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	step := list[0].(map[string]any)
	assert.Equal(t, "open_app", step["intent"])
}

func TestInterpret_UnreachableServer(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/generate", "m", 0.0, 200*time.Millisecond)
	_, err := c.Interpret(context.Background(), "anything", nil, nil)
	require.Error(t, err)

	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrUnreachable, lerr.Kind)
}

func TestInterpret_NoJSONInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"response": "I cannot help with that."}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "m", 0.0, time.Second)
	_, err := c.Interpret(context.Background(), "anything", nil, nil)
	require.Error(t, err)

	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrNoJSON, lerr.Kind)
}

func TestInterpret_MalformedJSONInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"response": `{"steps": [}`}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "m", 0.0, time.Second)
	_, err := c.Interpret(context.Background(), "anything", nil, nil)
	require.Error(t, err)
}
