package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/storely/checkout/internal/domain"
)

// Signer computes and checks the provider callback signature:
// hex(HMAC-SHA256(secret, orderRef + "|" + paymentRef)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time and returns ErrSignatureMismatch on
// any difference. Callers must treat a mismatch as a security event.
func (s *Signer) Verify(orderRef, paymentRef, signature string) error {
	expected := s.Sign(orderRef, paymentRef)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrSignatureMismatch
	}
	return nil
}
