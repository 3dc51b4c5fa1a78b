package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds per-scenario HTTP state against a running server.
type TestContext struct {
	BaseURL string
	Token   string

	client       *http.Client
	lastStatus   int
	lastBody     []byte
	lastHeader   http.Header
	lastResponse map[string]interface{}
}

// NewTestContext targets baseURL. token may be empty when the server runs
// without auth.
func NewTestContext(baseURL, token string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Reset clears response state between scenarios.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
	tc.lastResponse = nil
}

func (tc *TestContext) POST(path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req, headers)
}

func (tc *TestContext) do(req *http.Request, headers map[string]string) error {
	if tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		var parsed map[string]interface{}
		if json.Unmarshal(tc.lastBody, &parsed) == nil {
			tc.lastResponse = parsed
		}
	}
	return nil
}

func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("no JSON response body: %s", string(tc.lastBody))
	}
	v, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, string(tc.lastBody))
	}
	return v, nil
}

func (tc *TestContext) GetLastResponseStatus() int  { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetLastResponseHeader(k string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(k)
}
