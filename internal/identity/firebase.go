package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultToolkitURL = "https://identitytoolkit.googleapis.com"

// FirebaseVerifier verifies Firebase ID tokens and signs users in with
// email/password through the Identity Toolkit REST API.
type FirebaseVerifier struct {
	tokens     TokenVerifier
	apiKey     string
	toolkitURL string
	client     *http.Client
}

// FirebaseOption configures a FirebaseVerifier.
type FirebaseOption func(*FirebaseVerifier)

// WithHTTPClient overrides the client used for Identity Toolkit calls.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(f *FirebaseVerifier) { f.client = c }
}

// WithToolkitURL overrides the Identity Toolkit base URL (emulator or tests).
func WithToolkitURL(u string) FirebaseOption {
	return func(f *FirebaseVerifier) {
		if u != "" {
			f.toolkitURL = strings.TrimRight(u, "/")
		}
	}
}

func NewFirebaseVerifier(tokens TokenVerifier, apiKey string, opts ...FirebaseOption) *FirebaseVerifier {
	f := &FirebaseVerifier{
		tokens:     tokens,
		apiKey:     apiKey,
		toolkitURL: defaultToolkitURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// VerifyIDToken validates a provider ID token and normalizes its claims.
func (f *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("%w: idToken is required", ErrExternalAuth)
	}
	tok, err := f.tokens.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAuth, err)
	}
	return fromToken(tok)
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken     string `json:"idToken"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	LocalID     string `json:"localId"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword checks the credentials with the provider, then verifies
// the ID token it returns so both login paths share one normalization.
func (f *FirebaseVerifier) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrExternalAuth)
	}
	if f.apiKey == "" {
		return nil, fmt.Errorf("%w: provider API key not configured", ErrExternalAuth)
	}
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}
	endpoint := f.toolkitURL + "/v1/accounts:signInWithPassword?key=" + url.QueryEscape(f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAuth, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: provider unreachable: %v", ErrExternalAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var te toolkitError
		if json.Unmarshal(b, &te) == nil && te.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrExternalAuth, te.Error.Message)
		}
		return nil, fmt.Errorf("%w: provider returned %d", ErrExternalAuth, resp.StatusCode)
	}

	var sr signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode provider response: %v", ErrExternalAuth, err)
	}
	id, err := f.VerifyIDToken(ctx, sr.IDToken)
	if err != nil {
		return nil, err
	}
	if id.DisplayName == id.Email && sr.DisplayName != "" {
		id.DisplayName = sr.DisplayName
	}
	return id, nil
}
