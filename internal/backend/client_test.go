package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, zerolog.Nop())
}

func TestValidateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submission/check-token/abc123", r.URL.Path)
		_, _ = io.WriteString(w, `{"candidate_id": 7, "candidate_name": "Budi", "status": "active", "completed_tests": ["papi"]}`)
	})

	info, err := c.ValidateSession(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Budi", info.CandidateName)
	assert.Equal(t, []model.TestKind{model.TestPreference}, info.CompletedTests)
}

func TestValidateSessionFailsClosed(t *testing.T) {
	t.Run("inactive link", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error": "Link sudah tidak aktif"}`)
		})
		_, err := c.ValidateSession(context.Background(), "abc123")
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusForbidden))
		assert.NotContains(t, err.Error(), "abc123")
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		})
		_, err := c.ValidateSession(context.Background(), "abc123")
		require.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", 200*time.Millisecond, zerolog.Nop())
		_, err := c.ValidateSession(context.Background(), "abc123")
		require.Error(t, err)
	})
}

func TestTestConfigStripsAnswerKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/management/questions/cfit", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id": 1, "subtest": 1, "options": ["a","b","c","d","e","f"], "correctAnswer": 3},
			{"id": 2, "subtest": 1, "options": ["a","b","c","d","e"], "correctAnswer": 0}
		]`)
	})

	cfg, err := c.TestConfig(context.Background(), model.TestIntelligence)
	require.NoError(t, err)
	require.Len(t, cfg.Questions, 2)
	assert.Equal(t, 6, cfg.Questions[0].OptionCount)
	assert.Equal(t, 5, cfg.Questions[1].OptionCount)
	assert.NotContains(t, string(cfg.Questions[0].Payload), "correctAnswer")
	assert.Contains(t, string(cfg.Questions[0].Payload), `"subtest":1`)
}

func TestTestConfigPreferenceAndGrid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/management/questions/papi":
			_, _ = io.WriteString(w, `[{"id": 1, "option_a": "Saya pekerja keras", "option_b": "Saya bukan pemurung"}]`)
		case "/management/config/kraepelin":
			_, _ = io.WriteString(w, `{"columns": 50, "rows": 27, "durationPerColumn": 15}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	papi, err := c.TestConfig(context.Background(), model.TestPreference)
	require.NoError(t, err)
	require.Len(t, papi.Questions, 1)
	assert.Equal(t, 2, papi.Questions[0].OptionCount)

	grid, err := c.TestConfig(context.Background(), model.TestEndurance)
	require.NoError(t, err)
	require.NotNil(t, grid.Grid)
	assert.Equal(t, model.GridConfig{Columns: 50, Rows: 27, PerColumnSeconds: 15}, *grid.Grid)
}

func TestSubmitRoutesAndRetryPayload(t *testing.T) {
	var bodies []map[string]json.RawMessage
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, `{"status": "success"}`)
	})

	zero := 0
	sub := &model.Submission{
		Token:   "abc123",
		Kind:    model.TestIntelligence,
		Answers: []*int{&zero, nil, nil, nil, nil},
		Cause:   model.CauseTimeExpired,
	}
	require.NoError(t, c.Submit(context.Background(), sub))
	require.NoError(t, c.Submit(context.Background(), sub))

	require.Len(t, bodies, 2)
	assert.Equal(t, "/submission/cfit", paths[0])
	assert.JSONEq(t, `[0,null,null,null,null]`, string(bodies[0]["answers"]))
	assert.Equal(t, bodies[0], bodies[1])

	report := model.EnduranceReport{Panker: 1, Janker: 1.33}
	require.NoError(t, c.Submit(context.Background(), &model.Submission{
		Token:       "abc123",
		Kind:        model.TestEndurance,
		Grid:        [][]int{{3, 7}},
		GridAnswers: [][]*int{{&zero}},
		Report:      &report,
		Cause:       model.CauseGridFinished,
	}))
	assert.Equal(t, "/submission/kraepelin", paths[2])
	assert.JSONEq(t, `[[3,7]]`, string(bodies[2]["grid"]))
	assert.Contains(t, string(bodies[2]["results"]), `"panker":1`)
}

func TestSubmitAndFinalizeErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/submission/finalize" {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "abc123", body["token"])
			_, _ = io.WriteString(w, `{"message": "ok"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Submit(context.Background(), &model.Submission{Token: "abc123", Kind: model.TestPreference})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	require.NoError(t, c.Finalize(context.Background(), "abc123"))
}
