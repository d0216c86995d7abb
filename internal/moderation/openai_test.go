package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModerationServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "moderations")

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "omni-moderation-latest", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClassifier_Flagged(t *testing.T) {
	srv := newModerationServer(t, http.StatusOK, `{
		"id": "modr-1",
		"model": "omni-moderation-latest",
		"results": [{
			"flagged": true,
			"categories": {"violence": true, "hate": false},
			"category_scores": {"violence": 0.93, "hate": 0.01}
		}]
	}`)

	c := NewOpenAIClassifier(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/"})
	d, err := c.Classify(context.Background(), Submission{Context: "some text"})

	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, "content flagged by moderation: violence", d.Reason)
	assert.InDelta(t, 0.93, d.Confidence, 1e-9)
}

func TestOpenAIClassifier_Clean(t *testing.T) {
	srv := newModerationServer(t, http.StatusOK, `{
		"id": "modr-2",
		"model": "omni-moderation-latest",
		"results": [{"flagged": false, "categories": {}, "category_scores": {"violence": 0.1}}]
	}`)

	c := NewOpenAIClassifier(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/"})
	d, err := c.Classify(context.Background(), Submission{Context: "some text"})

	require.NoError(t, err)
	assert.True(t, d.Approved)
}

func TestOpenAIClassifier_ErrorsFallThroughGate(t *testing.T) {
	srv := newModerationServer(t, http.StatusInternalServerError, `{"error": {"message": "boom"}}`)

	c := NewOpenAIClassifier(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/"})
	_, err := c.Classify(context.Background(), Submission{Context: "some text"})
	require.Error(t, err)

	gate := NewGate(c, NewRuleClassifier(RuleOptions{}), defaultTestTimeout)
	d := gate.Evaluate(context.Background(), Submission{Context: "some text"})
	assert.True(t, d.Approved)
	assert.Equal(t, SourceFallback, d.Source)
}

func TestOpenAIClassifier_EmptyResults(t *testing.T) {
	srv := newModerationServer(t, http.StatusOK, `{"id": "modr-3", "model": "omni-moderation-latest", "results": []}`)

	c := NewOpenAIClassifier(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/"})
	_, err := c.Classify(context.Background(), Submission{Context: "some text"})
	assert.Error(t, err)
}
