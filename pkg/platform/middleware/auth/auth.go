// Package auth resolves the acting identity from a bearer token and stores
// it in the request context. Who may act on which candidacy is decided
// upstream; this middleware only establishes who the caller is.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	jwttoken "talentgate/internal/jwt_token"
	id "talentgate/pkg/domain"
	request "talentgate/pkg/platform/middleware/request"
	"talentgate/pkg/requestcontext"
)

// TokenValidator defines the interface for validating access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireActor validates the bearer token and injects the resolved actor
// into the context. Requests without a valid token are rejected with 401.
func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - unresolvable actor",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

func actorFromClaims(claims *jwttoken.Claims) (requestcontext.ActorInfo, error) {
	role, err := id.ParseActorRole(claims.Role)
	if err != nil {
		return requestcontext.ActorInfo{}, err
	}

	subject, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		return requestcontext.ActorInfo{}, fmt.Errorf("parse subject id: %w", err)
	}

	actor := requestcontext.ActorInfo{Role: role}
	switch role {
	case id.RoleCompany:
		actor.CompanyID = id.CompanyID(subject)
	case id.RoleCandidate:
		actor.CandidateID = id.CandidateID(subject)
	}
	return actor, nil
}
