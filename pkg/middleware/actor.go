package middleware

import (
	"net/http"
	"slices"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Headers set by the upstream gateway after it has authenticated the caller.
const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorRole     = "X-Actor-Role"
	HeaderActorHospital = "X-Actor-Hospital"
)

// ActorContext copies the gateway's identity headers into the request
// context. Requests without an actor are rejected.
func ActorContext(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderActorID)
			role := entity.Role(r.Header.Get(HeaderActorRole))
			hospital := r.Header.Get(HeaderActorHospital)

			if id == "" || !role.Valid() {
				logger.Warn("Request without a valid actor",
					zap.String("path", r.URL.Path),
					zap.String("role", string(role)),
				)
				utils.ResponseUnauthorized(w, "Missing or invalid actor headers")
				return
			}

			if hospital != "" {
				if _, err := uuid.Parse(hospital); err != nil {
					utils.ResponseUnauthorized(w, "Invalid actor hospital")
					return
				}
			}

			ctx := utils.SetActorContext(r.Context(), id, string(role), hospital)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(logger *zap.Logger, roles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			if !slices.Contains(roles, entity.Role(role)) {
				actorID, _ := utils.GetActorIDFromContext(r.Context())
				logger.Warn("Role not allowed",
					zap.String("actor_id", actorID),
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseForbidden(w, "Role "+role+" may not perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ActorFromRequest rebuilds the entity.Actor stored by ActorContext.
func ActorFromRequest(r *http.Request) (entity.Actor, bool) {
	id, ok := utils.GetActorIDFromContext(r.Context())
	if !ok {
		return entity.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	actor := entity.Actor{ID: id, Role: entity.Role(role)}
	if hospital, ok := utils.GetActorHospitalFromContext(r.Context()); ok {
		if hospitalID, err := uuid.Parse(hospital); err == nil {
			actor.HospitalID = &hospitalID
		}
	}
	return actor, true
}
