package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrMissingSecret = errors.New("payment: gateway key secret is required")

// Verifier checks Razorpay signatures. Checkout signatures are
// hex(HMAC-SHA256(key secret, "<order_id>|<payment_id>")); webhook signatures
// are the same MAC over the raw request body under the webhook secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

func (v *Verifier) mac(msg []byte) string {
	m := hmac.New(sha256.New, v.secret)
	m.Write(msg)
	return hex.EncodeToString(m.Sum(nil))
}

// Sign returns the signature the gateway issues for the pair.
func (v *Verifier) Sign(orderRef, paymentRef string) string {
	return v.mac([]byte(orderRef + "|" + paymentRef))
}

// Verify reports whether signature was issued for orderRef and paymentRef.
// Any empty input fails.
func (v *Verifier) Verify(orderRef, paymentRef, signature string) bool {
	if v == nil || orderRef == "" || paymentRef == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(orderRef, paymentRef)), []byte(signature))
}

// VerifyPayload checks a webhook body against its X-Razorpay-Signature.
func (v *Verifier) VerifyPayload(body []byte, signature string) bool {
	if v == nil || len(body) == 0 || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.mac(body)), []byte(signature))
}
