package e2e

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Actors provisioned by genesis.example.yaml.
var genesisActors = map[string]string{
	"admin":       "0x1111111111111111111111111111111111111111",
	"us-investor": "0xf4a2d5e1a29a32f6336803b52fa349ced34dad27",
	"eu-investor": "0x9c28162eb3d7ff34ac3eaca9f98cbd12d9f3cfe6",
	"outsider":    "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
}

// TestContext carries per-scenario state against a running ledger server.
type TestContext struct {
	BaseURL    string
	AdminToken string
	HTTPClient *http.Client

	actors     map[string]string
	tokens     map[string]string
	current    string
	ledgerTime int64

	lastStatus int
	lastBody   []byte
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	tc := &TestContext{
		BaseURL:    baseURL,
		AdminToken: adminToken,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	tc.Reset()
	return tc
}

// Reset clears scenario state; genesis actors stay known.
func (tc *TestContext) Reset() {
	tc.actors = make(map[string]string, len(genesisActors))
	for name, addr := range genesisActors {
		tc.actors[name] = addr
	}
	tc.tokens = make(map[string]string)
	tc.current = ""
	tc.ledgerTime = 0
	tc.lastStatus = 0
	tc.lastBody = nil
}

// Address returns the address of a named actor, creating a fresh random one
// for names not seen before so scenarios do not collide across runs.
func (tc *TestContext) Address(name string) string {
	if addr, ok := tc.actors[name]; ok {
		return addr
	}
	var b [20]byte
	_, _ = rand.Read(b[:])
	addr := "0x" + hex.EncodeToString(b[:])
	tc.actors[name] = addr
	return addr
}

func (tc *TestContext) SetToken(actor, token string) { tc.tokens[actor] = token }
func (tc *TestContext) Token(actor string) string    { return tc.tokens[actor] }
func (tc *TestContext) UseActor(actor string)        { tc.current = actor }
func (tc *TestContext) CurrentActor() string         { return tc.current }

// SetLedgerTime pins X-Ledger-Time on subsequent requests; zero unpins.
func (tc *TestContext) SetLedgerTime(unix int64) { tc.ledgerTime = unix }

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, nil)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body, nil)
}

// AdminPOST calls an operator route with the admin token instead of a bearer token.
func (tc *TestContext) AdminPOST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{"X-Admin-Token": tc.AdminToken})
}

// RawGET sends a GET with exactly the given headers.
func (tc *TestContext) RawGET(path string, headers map[string]string) error {
	return tc.send(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body any, extra map[string]string) error {
	headers := map[string]string{}
	if token := tc.tokens[tc.current]; token != "" && extra == nil {
		headers["Authorization"] = "Bearer " + token
	}
	if tc.ledgerTime != 0 {
		headers["X-Ledger-Time"] = strconv.FormatInt(tc.ledgerTime, 10)
	}
	for k, v := range extra {
		headers[k] = v
	}
	return tc.send(method, path, body, headers)
}

func (tc *TestContext) send(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int  { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}
