package serviceauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Proof is the per-request possession proof accompanying a bearer service
// token: the caller demonstrates it also holds the long-lived shared secret
// without ever putting that secret on the wire.
type Proof struct {
	Timestamp int64  // caller-local epoch millis
	Nonce     string // caller-generated, at least 128 bits
	Hash      string // hex SHA-256 over secret:timestamp:nonce:method:path
}

// ComputeProofHash derives the request-bound hash both sides must agree on.
func ComputeProofHash(secret string, timestamp int64, nonce, method, path string) string {
	payload := fmt.Sprintf("%s:%d:%s:%s:%s", secret, timestamp, nonce, method, path)
	digest := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}

// ProofClient builds proofs on the calling side. It exists for tests, demo
// callers and any in-process service that talks to the secure endpoints.
type ProofClient struct {
	clientID string
	secret   string
	nowTime  func() time.Time
}

type ProofClientOption func(*ProofClient)

// WithProofNowTime sets the now time function (primarily for testing)
func WithProofNowTime(nowFunc func() time.Time) ProofClientOption {
	return func(c *ProofClient) {
		c.nowTime = nowFunc
	}
}

func NewProofClient(clientID, secret string, options ...ProofClientOption) *ProofClient {
	c := &ProofClient{
		clientID: clientID,
		secret:   secret,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BuildProof generates a fresh timestamp/nonce pair and the matching hash
// for the given request line.
func (c *ProofClient) BuildProof(method, path string) (Proof, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return Proof{}, err
	}
	timestamp := c.nowTime().UnixMilli()
	nonce := hex.EncodeToString(nonceBytes)

	return Proof{
		Timestamp: timestamp,
		Nonce:     nonce,
		Hash:      ComputeProofHash(c.secret, timestamp, nonce, method, path),
	}, nil
}

// Headers returns the full header set for an enhanced-auth request: the
// bearer token plus the four proof headers.
func (c *ProofClient) Headers(serviceToken, method, path string) (map[string]string, error) {
	proof, err := c.BuildProof(method, path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":    "Bearer " + serviceToken,
		"X-Client-ID":      c.clientID,
		"X-Auth-Timestamp": fmt.Sprintf("%d", proof.Timestamp),
		"X-Auth-Nonce":     proof.Nonce,
		"X-Auth-Hash":      proof.Hash,
		"Content-Type":     "application/json",
	}, nil
}
