/*
Package classify provides the HTTP client for the external SDG text
classification service.

PURPOSE:
  The service takes a free-text activity description and answers with one of
  the 18 known SDG codes. This client enforces the contract the rest of the
  system depends on:
  - Bounded timeout on every call (default 5s)
  - Response validation against the known codes
  - A re-scan of the raw response text for any code substring when the
    payload is not an exact code (LLM-backed services get chatty)

  Any remaining failure is returned as an error for the caller's fallback
  layer (csr.ResilientClassifier) to absorb. This package never falls back
  itself; it only talks to the wire.

WIRE CONTRACT:
  POST {base}/classify
  -> {"description": "planted trees in the community forest"}
  <- {"sdg_code": "sdg15"}

SEE ALSO:
  - csr/classify.go: ResilientClassifier wrapping this client
*/
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/greenflow/impact-engine/csr"
)

// DefaultTimeout bounds the external call. Classification sits on the
// activity-save path, so it must fail fast rather than hang a request.
const DefaultTimeout = 5 * time.Second

// Client calls the external classification service. Implements
// csr.Classifier.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

var _ csr.Classifier = (*Client)(nil)

// New creates a client with the default timeout.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type classifyRequest struct {
	Description string `json:"description"`
}

type classifyResponse struct {
	SDGCode string `json:"sdg_code"`
}

// ClassifySDG asks the service for a classification. Errors are expected
// and must be absorbed by the caller's fallback layer.
func (c *Client) ClassifySDG(ctx context.Context, description string) (csr.SDGCode, error) {
	if description == "" {
		return csr.SDGOther, nil
	}

	body, err := json.Marshal(classifyRequest{Description: description})
	if err != nil {
		return csr.SDGOther, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return csr.SDGOther, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return csr.SDGOther, fmt.Errorf("classification call failed: %w", err)
	}
	defer resp.Body.Close()

	// Read a bounded slice of the body either way: error payloads and
	// free-text responses both get the substring re-scan below.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return csr.SDGOther, fmt.Errorf("read classify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return csr.SDGOther, fmt.Errorf("classification service returned %d", resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Malformed JSON: the body may still name a code in prose.
		if code, ok := csr.ScanForSDGCode(string(raw)); ok {
			return code, nil
		}
		return csr.SDGOther, fmt.Errorf("malformed classify response: %w", err)
	}

	code := csr.SDGCode(strings.ToLower(strings.TrimSpace(parsed.SDGCode)))
	if csr.ValidSDGCode(code) {
		return code, nil
	}

	// Not an exact code: re-scan the response text for any code substring.
	if found, ok := csr.ScanForSDGCode(parsed.SDGCode); ok {
		return found, nil
	}
	return csr.SDGOther, nil
}
