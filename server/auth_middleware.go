package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/clientportal/portal-auth/auth"
	"github.com/clientportal/portal-auth/serviceauth"
	"github.com/clientportal/portal-auth/serviceclients"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the resolved user AuthSession
	ContextKeySession ContextKey = "auth_session"
	// ContextKeyServicePayload stores the verified service token payload
	ContextKeyServicePayload ContextKey = "service_payload"
	// ContextKeyServiceClient stores the proof-verified service client
	ContextKeyServiceClient ContextKey = "service_client"
)

func sessionFromContext(ctx context.Context) *auth.AuthSession {
	session, _ := ctx.Value(ContextKeySession).(*auth.AuthSession)
	return session
}

func servicePayloadFromContext(ctx context.Context) *serviceauth.Payload {
	payload, _ := ctx.Value(ContextKeyServicePayload).(*serviceauth.Payload)
	return payload
}

func serviceClientFromContext(ctx context.Context) *serviceclients.Client {
	client, _ := ctx.Value(ContextKeyServiceClient).(*serviceclients.Client)
	return client
}

// resolveRequest extracts both session cookies and hands them to the
// resolver. Cookies are read here at the boundary; the core never touches
// the request.
func (s *Server) resolveRequest(r *http.Request) *auth.AuthSession {
	return s.auth.Resolve(cookieValue(r, credSessionCookie), cookieValue(r, tempSessionCookie))
}

// RequireSession is middleware that rejects unauthenticated requests and
// injects the resolved session into the request context.
func (s *Server) RequireSession() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := s.resolveRequest(r)
			if session == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin is middleware that gates admin routes. It consults the
// capability bundle rather than re-deriving role rules, so temp sessions can
// never slip through.
func (s *Server) RequireAdmin() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			perms := auth.CheckPermissions(sessionFromContext(r.Context()))
			if !perms.CanAccessAdmin {
				writeError(w, http.StatusForbidden, "Insufficient privileges")
				return
			}
			next(w, r)
		}
	}
}

// RequireServiceToken is middleware that validates the bearer service token
// and its scope grant.
func (s *Server) RequireServiceToken(requiredScope string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}

			payload, err := s.authority.Verify(rawToken)
			if err != nil {
				s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("service token rejected")
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if !payload.HasScope(requiredScope) {
				writeError(w, http.StatusForbidden, "Insufficient permissions - "+requiredScope+" scope required")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyServicePayload, payload)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireProof is middleware that layers the proof-of-possession handshake
// on top of a verified service token. All four headers are required
// together; the client's own scope allow-list must also grant the scope.
func (s *Server) RequireProof(requiredScope string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			clientID := r.Header.Get("X-Client-ID")
			timestampHeader := r.Header.Get("X-Auth-Timestamp")
			nonce := r.Header.Get("X-Auth-Nonce")
			hash := r.Header.Get("X-Auth-Hash")

			if clientID == "" || timestampHeader == "" || nonce == "" || hash == "" {
				writeError(w, http.StatusUnauthorized, "Missing enhanced authentication headers (X-Client-ID, X-Auth-Timestamp, X-Auth-Nonce, X-Auth-Hash)")
				return
			}
			timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid authentication timestamp")
				return
			}

			proof := serviceauth.Proof{Timestamp: timestamp, Nonce: nonce, Hash: hash}
			client, err := s.verifier.VerifyProof(r.Context(), clientID, proof, r.Method, r.URL.Path, remoteIP(r))
			if err != nil {
				// A nonce-store outage is not an authentication verdict; only
				// proof rejections surface as 401.
				if !serviceauth.IsProofRejection(err) {
					s.writeDomainError(w, r, err)
					return
				}
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if !client.HasScope(requiredScope) {
				writeError(w, http.StatusForbidden, "Insufficient client permissions - "+requiredScope+" scope required")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyServiceClient, client)
			next(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
