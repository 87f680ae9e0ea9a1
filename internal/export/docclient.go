package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DocumentLinks is the enrichment payload from the document service:
// hosted URLs for an applicant's uploaded files.
type DocumentLinks struct {
	ResumeURL  string `json:"resumeUrl"`
	IDProofURL string `json:"idProofUrl"`
	PhotoURL   string `json:"photoUrl"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DocumentClient fetches document links from the upstream document
// service. A structured JSON error body from the server stops retries
// and surfaces the server's message; transport failures and empty
// responses retry with backoff.
type DocumentClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
}

func NewDocumentClient(baseURL, apiKey string, timeout time.Duration, maxAttempts int) *DocumentClient {
	return &DocumentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxAttempts: maxAttempts,
		baseDelay:   time.Second,
		sleep:       time.Sleep,
	}
}

// serverError is a decoded JSON error body; not worth retrying.
type serverError struct {
	msg string
}

func (e *serverError) Error() string {
	return e.msg
}

func (c *DocumentClient) Fetch(ctx context.Context, applicantID string) (*DocumentLinks, error) {
	url := fmt.Sprintf("%s/api/v1/documents/%s", c.baseURL, applicantID)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		links, err := c.fetchOnce(ctx, url)
		if err == nil {
			return links, nil
		}

		var srvErr *serverError
		if errors.As(err, &srvErr) {
			return nil, fmt.Errorf("document service rejected request: %w", err)
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("applicantId", applicantID).
			Int("attempt", attempt).
			Msg("Document fetch failed")

		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c.sleep(c.baseDelay << (attempt - 1))
	}

	return nil, fmt.Errorf("document fetch failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *DocumentClient) fetchOnce(ctx context.Context, url string) (*DocumentLinks, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && (errResp.Error != "" || errResp.Message != "") {
			msg := errResp.Message
			if msg == "" {
				msg = errResp.Error
			}
			return nil, &serverError{msg: msg}
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var links DocumentLinks
	if err := json.Unmarshal(body, &links); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &links, nil
}
