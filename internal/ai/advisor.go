package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

const (
	// Placeholders shown when no verdict can be produced. The workflow
	// treats verdict text as advisory only, so these never block saving.
	DisabledPlaceholder = "Manual review needed - AI analysis unavailable."
	FailedPlaceholder   = "AI analysis failed - please review manually."
)

const promptTemplate = `Evaluate this URL for study purposes and safety in exactly 2 lines:

URL: %s

Format your response as:
Line 1: Keep or Skip (single word)
Line 2: One short sentence explaining why keep/skip and mention safety (Safe/Suspect/Unsafe)`

// Advisor asks a generative-AI endpoint whether a link is worth keeping.
// Verdict never returns an error: any failure degrades to a placeholder so
// the confirmation workflow is never blocked on the AI backend.
type Advisor struct {
	apiKey      string
	model       string
	endpoint    string
	timeout     time.Duration
	maxAttempts int
	client      *http.Client
	logger      *zap.Logger
}

type Option func(*Advisor)

// WithEndpoint overrides the API base URL, used by tests.
func WithEndpoint(endpoint string) Option {
	return func(a *Advisor) { a.endpoint = endpoint }
}

func New(apiKey, model string, timeout time.Duration, maxAttempts int, logger *zap.Logger, opts ...Option) *Advisor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	a := &Advisor{
		apiKey:      apiKey,
		model:       model,
		endpoint:    "https://generativelanguage.googleapis.com/v1beta",
		timeout:     timeout,
		maxAttempts: maxAttempts,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Advisor) Enabled() bool {
	return a.apiKey != ""
}

// Verdict returns advisory text for the URL, or a placeholder on failure.
func (a *Advisor) Verdict(ctx context.Context, url string) string {
	if !a.Enabled() {
		return DisabledPlaceholder
	}

	var verdict string
	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			text, err := a.generate(attemptCtx, fmt.Sprintf(promptTemplate, url))
			if err != nil {
				return err
			}
			verdict = text
			return nil
		},
		retry.Attempts(uint(a.maxAttempts)),
		retry.Delay(time.Second),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("ai verdict attempt failed", zap.Uint("attempt", n+1), zap.String("url", url), zap.Error(err))
		}),
	)
	if err != nil {
		a.logger.Error("ai verdict failed", zap.String("url", url), zap.Error(err))
		return FailedPlaceholder
	}
	return verdict
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (a *Advisor) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.endpoint, a.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text), nil
}

// ParseVerdict splits advisory text into a leading Keep/Skip token and a
// free-text reason. Unrecognized text comes back with an empty token.
func ParseVerdict(text string) (token, reason string) {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	head := strings.TrimSpace(lines[0])
	switch strings.ToLower(strings.TrimSuffix(head, ".")) {
	case "keep":
		token = "Keep"
	case "skip":
		token = "Skip"
	default:
		return "", strings.TrimSpace(text)
	}
	if len(lines) > 1 {
		reason = strings.TrimSpace(lines[1])
	}
	return token, reason
}

// SuspiciousLink flags common phishing URL patterns worth a warning line in
// the prompt, independent of the AI verdict.
func SuspiciousLink(url string) bool {
	keywords := []string{"login-", "verify-", "secure-", "update-account", "banking-"}
	lower := strings.ToLower(url)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
