package http

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"

	accessTokenCookie = "access_token"
	surveyTokenHeader = "X-Survey-Token"
	surveyTokenQuery  = "token"
)

// Identify resolves the access token from the access_token cookie or an
// Authorization bearer header. Requests without a valid token continue as
// anonymous; handlers decide whether that is enough.
func Identify(authenticator ports.Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := domain.Anonymous()
			if token := accessToken(r); token != "" {
				resolved, err := authenticator.Authenticate(r.Context(), token)
				if err != nil {
					logger.Debug().Err(err).Msg("ignoring access token")
				} else {
					identity = resolved
				}
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFrom(r *http.Request) domain.Identity {
	identity, ok := r.Context().Value(IdentityKey).(domain.Identity)
	if !ok {
		return domain.Anonymous()
	}
	return identity
}

func requesterFrom(r *http.Request) domain.Requester {
	token := r.URL.Query().Get(surveyTokenQuery)
	if token == "" {
		token = r.Header.Get(surveyTokenHeader)
	}
	return domain.Requester{
		Identity: identityFrom(r),
		Token:    strings.TrimSpace(token),
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return ip
}
