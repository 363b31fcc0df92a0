package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"

	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// Transport carries listings and actions to the complaints api
type Transport interface {
	List(ctx context.Context, q ListQuery) ([]models.Complaint, error)
	Apply(ctx context.Context, id string, action lifecycle.Action) (*models.Complaint, error)
}

// ListQuery narrows the complaints a Reconciler keeps
type ListQuery struct {
	Region   string          `url:"region,omitempty"`
	Status   models.Status   `url:"status,omitempty"`
	Category models.Category `url:"category,omitempty"`
	Limit    int             `url:"limit,omitempty"`
	Page     int             `url:"page,omitempty"`
}

// HTTPTransport talks to the /api/v1 routes with the caller's bearer token
type HTTPTransport struct {
	BaseURL    *url.URL
	Token      string
	HTTPClient *http.Client
}

// NewHTTPTransport creates a transport for the api at baseURL. token may be empty for
// anonymous callers.
func NewHTTPTransport(baseURL, token string) (*HTTPTransport, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	return &HTTPTransport{
		BaseURL: u,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (t *HTTPTransport) List(ctx context.Context, q ListQuery) ([]models.Complaint, error) {
	reqURL, err := t.buildURL("/api/v1/complaints", q)
	if err != nil {
		return nil, errors.Wrap(err, "build list URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create list request")
	}

	var resp models.ComplaintListResponse
	if err := t.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Complaints, nil
}

func (t *HTTPTransport) Apply(ctx context.Context, id string, action lifecycle.Action) (*models.Complaint, error) {
	reqURL, err := t.buildURL("/api/v1/complaints/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build action URL")
	}
	body, err := json.Marshal(lifecycle.NewRequest(action))
	if err != nil {
		return nil, errors.Wrap(err, "encode action")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create action request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp models.ComplaintResponse
	if err := t.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Complaint, nil
}

func (t *HTTPTransport) buildURL(endpoint string, params interface{}) (string, error) {
	u := *t.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + endpoint
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		u.RawQuery = v.Encode()
	}
	return u.String(), nil
}

// do sends req and decodes a 2xx body into v. Error bodies come back as a
// *lifecycle.Error whose kind follows the status code.
func (t *HTTPTransport) do(req *http.Request, v interface{}) error {
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var body models.ErrorMessageResponse
		message := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &body) == nil && body.Response.Message != "" {
			message = body.Response.Message
		}
		return &lifecycle.Error{Kind: kindFor(resp.StatusCode), Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func kindFor(status int) lifecycle.Kind {
	switch status {
	case http.StatusUnauthorized:
		return lifecycle.Unauthenticated
	case http.StatusForbidden:
		return lifecycle.Forbidden
	case http.StatusNotFound:
		return lifecycle.NotFound
	case http.StatusBadRequest:
		return lifecycle.InvalidRequest
	case http.StatusConflict:
		return lifecycle.Conflict
	}
	return lifecycle.Internal
}
