package serviceauth_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/clientportal/portal-auth/serviceauth"
	"github.com/stretchr/testify/require"
)

func TestComputeProofHashIsDeterministic(t *testing.T) {
	first := serviceauth.ComputeProofHash("secret", 1700000000000, "nonce", "GET", "/api/service/secure/users")
	second := serviceauth.ComputeProofHash("secret", 1700000000000, "nonce", "GET", "/api/service/secure/users")
	require.Equal(t, first, second)
	require.Len(t, first, 64) // hex sha-256
}

func TestComputeProofHashBindsEveryInput(t *testing.T) {
	base := serviceauth.ComputeProofHash("secret", 1700000000000, "nonce", "GET", "/api/users")

	require.NotEqual(t, base, serviceauth.ComputeProofHash("other", 1700000000000, "nonce", "GET", "/api/users"))
	require.NotEqual(t, base, serviceauth.ComputeProofHash("secret", 1700000000001, "nonce", "GET", "/api/users"))
	require.NotEqual(t, base, serviceauth.ComputeProofHash("secret", 1700000000000, "other", "GET", "/api/users"))
	require.NotEqual(t, base, serviceauth.ComputeProofHash("secret", 1700000000000, "nonce", "POST", "/api/users"))
	require.NotEqual(t, base, serviceauth.ComputeProofHash("secret", 1700000000000, "nonce", "GET", "/api/other"))
}

func TestBuildProof(t *testing.T) {
	now := time.Now()
	client := serviceauth.NewProofClient("main-app", "shared-secret",
		serviceauth.WithProofNowTime(func() time.Time { return now }))

	proof, err := client.BuildProof("POST", "/api/service/secure/users")
	require.NoError(t, err)
	require.Equal(t, now.UnixMilli(), proof.Timestamp)
	require.Len(t, proof.Nonce, 32) // 16 random bytes, hex encoded
	require.Equal(t,
		serviceauth.ComputeProofHash("shared-secret", proof.Timestamp, proof.Nonce, "POST", "/api/service/secure/users"),
		proof.Hash)

	// a second proof must not reuse the nonce
	second, err := client.BuildProof("POST", "/api/service/secure/users")
	require.NoError(t, err)
	require.NotEqual(t, proof.Nonce, second.Nonce)
}

func TestProofHeaders(t *testing.T) {
	now := time.Now()
	client := serviceauth.NewProofClient("main-app", "shared-secret",
		serviceauth.WithProofNowTime(func() time.Time { return now }))

	headers, err := client.Headers("signed-token", "GET", "/api/service/secure/users")
	require.NoError(t, err)

	require.Equal(t, "Bearer signed-token", headers["Authorization"])
	require.Equal(t, "main-app", headers["X-Client-ID"])
	require.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), headers["X-Auth-Timestamp"])
	require.NotEmpty(t, headers["X-Auth-Nonce"])
	require.Equal(t,
		serviceauth.ComputeProofHash("shared-secret", now.UnixMilli(), headers["X-Auth-Nonce"], "GET", "/api/service/secure/users"),
		headers["X-Auth-Hash"])
}
