package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// signatureParam is the query parameter carrying the request signature.
const signatureParam = "signature"

// Signer produces the keyed-parameter signature the processor requires on
// query requests: all parameters sorted alphabetically by key, each key
// concatenated immediately with its value, and the concatenation HMAC'd
// with the shared secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer over the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign computes the hex signature for the given parameters. Any existing
// signature parameter is excluded from the base string.
func (s *Signer) Sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == signatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var base strings.Builder
	for _, k := range keys {
		base.WriteString(k)
		base.WriteString(params.Get(k))
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(base.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Signed returns a copy of params with the signature attached.
func (s *Signer) Signed(params url.Values) url.Values {
	out := url.Values{}
	for k, vs := range params {
		if k == signatureParam {
			continue
		}
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	out.Set(signatureParam, s.Sign(params))
	return out
}

// Verify checks the signature parameter against the other parameters.
func (s *Signer) Verify(params url.Values) bool {
	got := params.Get(signatureParam)
	if got == "" {
		return false
	}
	want := s.Sign(params)
	return hmac.Equal([]byte(got), []byte(want))
}
