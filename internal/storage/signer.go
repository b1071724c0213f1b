package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
)

// DefaultURLTTL is how long a signed retrieval URL stays valid when no TTL
// is configured.
const DefaultURLTTL = 15 * time.Minute

// URLSigner issues and verifies time-bounded retrieval URLs for archived
// objects. Signatures are HMAC-SHA256 over "<hash>:<expiry-unix>".
type URLSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewURLSigner builds a signer. baseURL is the public prefix the archive is
// served under, without a trailing slash.
func NewURLSigner(secret, baseURL string, ttl time.Duration) (*URLSigner, error) {
	if secret == "" {
		return nil, errors.New(errors.CategoryConfig, errors.SeverityFatal, "archive signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &URLSigner{
		secret:  []byte(secret),
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// SignedURL returns a retrieval URL for the object that stays valid for the
// signer's TTL.
func (s *URLSigner) SignedURL(hash string) string {
	expires := s.now().Add(s.ttl).Unix()
	sig := s.sign(hash, expires)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	return fmt.Sprintf("%s/archive/%s?%s", s.baseURL, hash, q.Encode())
}

// Verify checks a signature against the hash and expiry. It returns an error
// when the signature does not match or the URL has expired.
func (s *URLSigner) Verify(hash string, expires int64, sig string) error {
	if !hmac.Equal([]byte(s.sign(hash, expires)), []byte(sig)) {
		return errors.New(errors.CategoryAuth, errors.SeverityWarning, "archive URL signature mismatch")
	}
	if s.now().Unix() > expires {
		return errors.New(errors.CategoryAuth, errors.SeverityWarning, "archive URL expired")
	}
	return nil
}

func (s *URLSigner) sign(hash string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", hash, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
