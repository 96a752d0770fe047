package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// payloadToken exposes the undecoded JWT payload; Claims unmarshals it into
// the caller's type, so fromToken reads email, email_verified, name and
// picture exactly as it would from a verified Firebase token.
type payloadToken struct {
	payload json.RawMessage
}

func (t *payloadToken) Claims(v interface{}) error {
	return json.Unmarshal(t.payload, v)
}

// InsecureVerifier implements TokenVerifier WITHOUT checking signature,
// issuer or audience. It exists for integration runs against the Firebase
// emulator and is only wired when ALLOW_INSECURE_TOKEN=true. An exp claim,
// when present, is still honoured.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, errors.New("invalid token format")
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, err
	}
	var std struct {
		Exp *int64 `json:"exp"`
	}
	if err := json.Unmarshal(data, &std); err != nil {
		return nil, err
	}
	if std.Exp != nil && v.now().After(time.Unix(*std.Exp, 0)) {
		return nil, errors.New("token is expired")
	}
	return &payloadToken{payload: data}, nil
}
