package serviceauth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/clientportal/portal-auth/serviceclients"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Proof verification failure kinds. Each carries a distinct reason string
// for operational debugging but they all collapse to 401 at the boundary.
var (
	ErrMissingProof        = errors.New("missing authentication headers")
	ErrUnknownClient       = errors.New("unknown or inactive client")
	ErrTimestampOutOfRange = errors.New("request timestamp too old or too far in future")
	ErrHashMismatch        = errors.New("invalid authentication hash")
	ErrNonceReplayed       = errors.New("nonce already used")
	ErrIPNotAllowed        = errors.New("caller address not allowed")
)

// IsProofRejection reports whether err is one of the proof failure kinds
// above. Anything else coming out of VerifyProof is an infrastructure
// failure, not a verdict on the caller's proof.
func IsProofRejection(err error) bool {
	for _, rejection := range []error{
		ErrMissingProof,
		ErrUnknownClient,
		ErrTimestampOutOfRange,
		ErrHashMismatch,
		ErrNonceReplayed,
		ErrIPNotAllowed,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}

// Verifier checks the proof-of-possession handshake layered on top of a
// verified service token.
type Verifier struct {
	clients serviceclients.Repo
	nonces  NonceStore
	window  time.Duration
	logger  zerolog.Logger
	nowTime func() time.Time
}

type VerifierOption func(*Verifier)

// WithVerifierNowTime sets the now time function (primarily for testing)
func WithVerifierNowTime(nowFunc func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowTime = nowFunc
	}
}

func WithVerifierLogger(logger zerolog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithTimestampWindow overrides the default five-minute replay tolerance.
func WithTimestampWindow(window time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.window = window
	}
}

func NewVerifier(clients serviceclients.Repo, nonces NonceStore, options ...VerifierOption) (*Verifier, error) {
	if clients == nil {
		return nil, errors.New("[serviceauth.NewVerifier] clients repo is required")
	}
	if nonces == nil {
		return nil, errors.New("[serviceauth.NewVerifier] nonce store is required")
	}

	v := &Verifier{
		clients: clients,
		nonces:  nonces,
		window:  5 * time.Minute,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// VerifyProof validates a per-request proof: client lookup, symmetric
// timestamp window, hash recomputation with the stored secret, then an
// atomic nonce first-use check. remoteIP may be empty when the transport
// does not supply one.
func (v *Verifier) VerifyProof(ctx context.Context, clientID string, proof Proof, method, path, remoteIP string) (*serviceclients.Client, error) {
	if clientID == "" || proof.Nonce == "" || proof.Hash == "" || proof.Timestamp == 0 {
		return nil, ErrMissingProof
	}

	client, err := v.clients.Get(clientID)
	if err != nil || !client.Active {
		v.logger.Debug().Str("client_id", clientID).Msg("proof rejected: unknown or inactive client")
		return nil, ErrUnknownClient
	}

	if remoteIP != "" && !client.AllowsIP(remoteIP) {
		v.logger.Warn().Str("client_id", clientID).Str("ip", remoteIP).Msg("proof rejected: IP not on allowlist")
		return nil, ErrIPNotAllowed
	}

	now := v.nowTime().UnixMilli()
	drift := now - proof.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Millisecond > v.window {
		v.logger.Debug().Str("client_id", clientID).Int64("drift_ms", drift).Msg("proof rejected: timestamp out of window")
		return nil, ErrTimestampOutOfRange
	}

	expected := ComputeProofHash(client.PlainSecret, proof.Timestamp, proof.Nonce, method, path)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(proof.Hash)) != 1 {
		v.logger.Debug().Str("client_id", clientID).Msg("proof rejected: hash mismatch")
		return nil, ErrHashMismatch
	}

	first, err := v.nonces.FirstUse(ctx, clientID, proof.Nonce, v.window)
	if err != nil {
		return nil, errors.Wrap(err, "[Verifier.VerifyProof] nonces.FirstUse")
	}
	if !first {
		v.logger.Warn().Str("client_id", clientID).Msg("proof rejected: nonce replayed")
		return nil, ErrNonceReplayed
	}

	_ = v.clients.TrackUsage(clientID, v.nowTime())
	return client, nil
}
