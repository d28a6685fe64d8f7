// Package auth provides optional bearer-token authentication for the HTTP API.
package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	// Callers may choose to fail open (allow) or fail closed (reject).
	ErrUnavailable = errors.New("auth: unavailable")
)

const defaultTimeout = 500 * time.Millisecond

// Identity is who a token belongs to
type Identity struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate checks if a token is valid and returns its identity.
	// Returns:
	//   - (*Identity, nil) if token is valid
	//   - (nil, ErrInvalidToken) if token is definitively invalid
	//   - (nil, ErrUnavailable) if auth service is unavailable
	//   - (nil, nil) if auth is disabled (NoopValidator only)
	Validate(ctx context.Context, token string) (*Identity, error)
}

// StaticValidator accepts a fixed set of tokens from configuration
type StaticValidator struct {
	digests [][sha256.Size]byte
}

// NewStaticValidator creates a validator for the given tokens
func NewStaticValidator(tokens ...string) *StaticValidator {
	v := &StaticValidator{}
	for _, t := range tokens {
		if t != "" {
			v.digests = append(v.digests, sha256.Sum256([]byte(t)))
		}
	}
	return v
}

func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	// Compare digests so timing does not depend on token length
	got := sha256.Sum256([]byte(token))
	for i, want := range v.digests {
		if subtle.ConstantTimeCompare(got[:], want[:]) == 1 {
			return &Identity{Subject: fmt.Sprintf("static:%d", i), Name: "api token"}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HTTPValidator validates tokens via HTTP callback to external service.
type HTTPValidator struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string) *HTTPValidator {
	return &HTTPValidator{
		url:     url,
		timeout: defaultTimeout,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	Subject string `json:"subject,omitempty"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !out.Valid {
		return nil, ErrInvalidToken
	}
	return &Identity{Subject: out.Subject, Name: out.Name}, nil
}

// NoopValidator allows every request (auth disabled).
type NoopValidator struct{}

func (NoopValidator) Validate(context.Context, string) (*Identity, error) {
	return nil, nil
}

// Chain tries each validator in turn and accepts the first identity returned.
// ErrUnavailable from one validator does not stop the others; it is only
// reported if no validator accepted the token.
type Chain []Validator

func (c Chain) Validate(ctx context.Context, token string) (*Identity, error) {
	var unavailable error
	for _, v := range c {
		id, err := v.Validate(ctx, token)
		switch {
		case err == nil:
			return id, nil
		case errors.Is(err, ErrUnavailable):
			unavailable = err
		case !errors.Is(err, ErrInvalidToken):
			return nil, err
		}
	}
	if unavailable != nil {
		return nil, unavailable
	}
	return nil, ErrInvalidToken
}

// FromConfig builds the validator for a set of static tokens and an optional
// auth service URL. With neither configured, authentication is disabled.
func FromConfig(tokens []string, url string) Validator {
	var chain Chain
	if len(tokens) > 0 {
		chain = append(chain, NewStaticValidator(tokens...))
	}
	if url != "" {
		chain = append(chain, NewHTTPValidator(url))
	}
	switch len(chain) {
	case 0:
		return NoopValidator{}
	case 1:
		return chain[0]
	default:
		return chain
	}
}
