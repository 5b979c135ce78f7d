package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

// Signer computes HMAC-SHA256 signatures over raw webhook bodies.
// It is built once at startup; there is no way to obtain one without a secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, models.ErrMisconfiguredSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the base64-encoded HMAC of body.
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against body in constant time.
func (s *Signer) Verify(body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
