// Package backend is the HTTP client for the HR backend that owns candidate
// links, question banks and submission storage.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/session"
)

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 512

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client implements session.Backend over the backend's REST routes.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ session.Backend = (*Client)(nil)

// NewClient creates a client for baseURL (no trailing slash).
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "backend_client").Logger(),
	}
}

// ValidateSession checks a token. Every failure, including transport errors
// and malformed bodies, is reported as an error so callers deny access.
func (c *Client) ValidateSession(ctx context.Context, token string) (*session.SessionInfo, error) {
	var info session.SessionInfo
	if err := c.do(ctx, http.MethodGet, "/submission/check-token/"+url.PathEscape(token), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type cfitQuestion struct {
	ID      int      `json:"id"`
	Options []string `json:"options"`
}

type papiQuestion struct {
	ID int `json:"id"`
}

// TestConfig loads the question bank or grid configuration for kind.
func (c *Client) TestConfig(ctx context.Context, kind model.TestKind) (*model.TestConfig, error) {
	cfg := &model.TestConfig{Kind: kind}

	switch kind {
	case model.TestEndurance:
		var grid model.GridConfig
		if err := c.do(ctx, http.MethodGet, "/management/config/kraepelin", nil, &grid); err != nil {
			return nil, err
		}
		cfg.Grid = &grid

	case model.TestIntelligence:
		var raw []json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/management/questions/cfit", nil, &raw); err != nil {
			return nil, err
		}
		for _, r := range raw {
			var q cfitQuestion
			if err := json.Unmarshal(r, &q); err != nil {
				return nil, fmt.Errorf("decode cfit question: %w", err)
			}
			payload, err := stripAnswerKey(r)
			if err != nil {
				return nil, err
			}
			cfg.Questions = append(cfg.Questions, model.Question{ID: q.ID, OptionCount: len(q.Options), Payload: payload})
		}

	case model.TestPreference:
		var raw []json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/management/questions/papi", nil, &raw); err != nil {
			return nil, err
		}
		for _, r := range raw {
			var q papiQuestion
			if err := json.Unmarshal(r, &q); err != nil {
				return nil, fmt.Errorf("decode papi question: %w", err)
			}
			cfg.Questions = append(cfg.Questions, model.Question{ID: q.ID, OptionCount: 2, Payload: r})
		}

	default:
		return nil, fmt.Errorf("unknown test kind %q", kind)
	}

	return cfg, nil
}

// stripAnswerKey removes the correct answer so it never reaches the candidate.
func stripAnswerKey(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode question payload: %w", err)
	}
	delete(fields, "correctAnswer")
	delete(fields, "correct_answer")
	return json.Marshal(fields)
}

type submitBody struct {
	Token          string                 `json:"token"`
	Answers        interface{}            `json:"answers"`
	Grid           [][]int                `json:"grid,omitempty"`
	Results        *model.EnduranceReport `json:"results,omitempty"`
	Cause          model.CompletionCause  `json:"cause"`
	ViolationCount int                    `json:"violation_count"`
	ElapsedSeconds int                    `json:"elapsed_seconds"`
}

// Submit posts one finished test. The body is derived only from sub, so a
// retry of the same submission sends identical bytes.
func (c *Client) Submit(ctx context.Context, sub *model.Submission) error {
	if !sub.Kind.Valid() {
		return fmt.Errorf("unknown test kind %q", sub.Kind)
	}

	body := submitBody{
		Token:          sub.Token,
		Cause:          sub.Cause,
		ViolationCount: sub.ViolationCount,
		ElapsedSeconds: sub.ElapsedSeconds,
	}
	if sub.Kind == model.TestEndurance {
		body.Answers = sub.GridAnswers
		body.Grid = sub.Grid
		body.Results = sub.Report
	} else {
		body.Answers = sub.Answers
	}

	return c.do(ctx, http.MethodPost, "/submission/"+string(sub.Kind), body, nil)
}

// Finalize locks the candidate's link after every test is stored.
func (c *Client) Finalize(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/submission/finalize", map[string]string{"token": token}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, redact(path), err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", redact(path)).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: redact(path), Status: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", redact(path), err)
	}
	return nil
}

const checkTokenPrefix = "/submission/check-token/"

// redact hides the token segment of check-token paths.
func redact(path string) string {
	if strings.HasPrefix(path, checkTokenPrefix) {
		return checkTokenPrefix + "***"
	}
	return path
}

// IsStatus reports whether err is a backend StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}
