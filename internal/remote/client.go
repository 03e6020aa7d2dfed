// Package remote implements jin's remote synchronization protocol:
// link/fetch/push/pull/sync over a layer-scoped refspec, grounded on the
// teacher's internal/remote package (remote.go's AddRemote/config
// wiring, http/client.go's stdlib net/http transport, Auth interface,
// timeout and content-type constants) retargeted from git branch refs to
// jin's "refs/jin/layers/*" namespace.
package remote

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jinconfig/jin/internal/jinerr"
)

// LayerRefspec is the fixed refspec every jin remote uses: layer refs
// only, no host branches, no tags. See spec.md §4.H.
const LayerRefspec = "+refs/jin/layers/*:refs/jin/layers/*"

const (
	DefaultTimeout  = 30 * time.Second
	ContentTypeJSON = "application/json"
)

// Auth applies credentials to an outgoing request.
type Auth interface {
	Apply(req *http.Request)
}

// BasicAuth is username/password HTTP basic auth.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Apply(req *http.Request) {
	if a.Username != "" {
		req.SetBasicAuth(a.Username, a.Password)
	}
}

// TokenAuth applies a bearer token.
type TokenAuth struct {
	Token string
}

func (a TokenAuth) Apply(req *http.Request) {
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
}

// Client talks to a jin remote server over JSON-over-HTTP.
type Client struct {
	BaseURL    string
	Auth       Auth
	httpClient *http.Client
}

// NewClient validates rawURL against the shapes spec.md §4.H's `link`
// allows (https, ssh colon-form, ssh scheme-form, git scheme, file path)
// and returns a Client.
func NewClient(rawURL string, auth Auth) (*Client, error) {
	if err := ValidateRemoteURL(rawURL); err != nil {
		return nil, err
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(rawURL, "/"),
		Auth:       auth,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// ValidateRemoteURL accepts https, ssh (colon or scheme form), git scheme,
// and file paths; anything else is a ValidationError.
func ValidateRemoteURL(raw string) error {
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "file://") {
		return nil
	}
	if strings.HasPrefix(raw, "git@") || strings.HasPrefix(raw, "ssh://") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &jinerr.ValidationError{Rule: "remote-url", Input: raw}
	}
	switch u.Scheme {
	case "https", "ssh", "git":
		return nil
	default:
		return &jinerr.ValidationError{Rule: "remote-url-scheme", Input: raw}
	}
}

// RefState is the wire shape for one ref during fetch/push negotiation.
type RefState struct {
	Path     string `json:"path"`
	CommitID string `json:"commit_id"`
}

// Ping opens a read-only connection to prove reachability, per `link`'s
// contract.
func (c *Client) Ping() error {
	_, err := c.do("GET", "/jin/v1/ping", nil)
	return err
}

// ListRemoteRefs returns every ref on the remote matching the layer
// refspec.
func (c *Client) ListRemoteRefs() ([]RefState, error) {
	body, err := c.do("GET", "/jin/v1/refs", nil)
	if err != nil {
		return nil, err
	}
	var refs []RefState
	if err := json.Unmarshal(body, &refs); err != nil {
		return nil, fmt.Errorf("failed to decode remote ref list: %w", err)
	}
	return refs, nil
}

// FetchObjects requests every object reachable from wantCommits that the
// caller doesn't already have (haveCommits), and returns them as
// (hash -> framed-kind-prefixed bytes) pairs ready for objstore import.
func (c *Client) FetchObjects(wantCommits, haveCommits []string) (map[string][]byte, error) {
	reqBody, err := json.Marshal(struct {
		Want []string `json:"want"`
		Have []string `json:"have"`
	}{Want: wantCommits, Have: haveCommits})
	if err != nil {
		return nil, err
	}
	body, err := c.do("POST", "/jin/v1/objects/fetch", reqBody)
	if err != nil {
		return nil, err
	}
	var objects map[string]string // hash -> hex-encoded framed object bytes
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, fmt.Errorf("failed to decode fetched objects: %w", err)
	}
	out := make(map[string][]byte, len(objects))
	for hash, hexContent := range objects {
		content, err := hex.DecodeString(hexContent)
		if err != nil {
			return nil, fmt.Errorf("fetched object %s has malformed encoding: %w", hash, err)
		}
		out[hash] = content
	}
	return out, nil
}

// PushUpdate is one ref's proposed (expected, new) move during push.
type PushUpdate struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	New      string `json:"new"`
}

// PushObjects sends new objects and requested ref updates in one call;
// the remote applies ref updates via its own CAS, mirroring
// objstore.Txn's all-or-nothing contract. Each call carries a freshly
// generated operation ID; a retried call gets a new ID, and internal/server
// does not read the field.
func (c *Client) PushObjects(objects map[string][]byte, updates []PushUpdate, force bool) error {
	objHex := make(map[string]string, len(objects))
	for hash, content := range objects {
		objHex[hash] = hex.EncodeToString(content)
	}
	reqBody, err := json.Marshal(struct {
		OperationID string            `json:"operation_id"`
		Objects     map[string]string `json:"objects"`
		Updates     []PushUpdate      `json:"updates"`
		Force       bool              `json:"force"`
	}{OperationID: uuid.NewString(), Objects: objHex, Updates: updates, Force: force})
	if err != nil {
		return err
	}
	_, err = c.do("POST", "/jin/v1/refs/push", reqBody)
	return err
}

func (c *Client) do(method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, &jinerr.TransportError{Kind: "network", Err: err}
	}
	req.Header.Set("Content-Type", ContentTypeJSON)
	if c.Auth != nil {
		c.Auth.Apply(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &jinerr.TransportError{Kind: "network", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &jinerr.TransportError{Kind: "network", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &jinerr.TransportError{Kind: "auth", Err: fmt.Errorf("remote returned %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &jinerr.TransportError{Kind: "not-found", Err: fmt.Errorf("remote returned 404")}
	case resp.StatusCode >= 400:
		return nil, &jinerr.TransportError{Kind: "network", Err: fmt.Errorf("remote returned %d: %s", resp.StatusCode, string(respBody))}
	}
	return respBody, nil
}
