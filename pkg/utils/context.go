package utils

import (
	"context"
)

type contextKey string

const (
	ActorIDKey       contextKey = "actor_id"
	ActorRoleKey     contextKey = "actor_role"
	ActorHospitalKey contextKey = "actor_hospital"
)

// SetActorContext stores the caller identity resolved by the upstream gateway.
func SetActorContext(ctx context.Context, id, role, hospitalID string) context.Context {
	ctx = context.WithValue(ctx, ActorIDKey, id)
	ctx = context.WithValue(ctx, ActorRoleKey, role)
	if hospitalID != "" {
		ctx = context.WithValue(ctx, ActorHospitalKey, hospitalID)
	}
	return ctx
}

func GetActorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ActorIDKey).(string)
	return id, ok && id != ""
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ActorRoleKey).(string)
	return role, ok && role != ""
}

func GetActorHospitalFromContext(ctx context.Context) (string, bool) {
	hospitalID, ok := ctx.Value(ActorHospitalKey).(string)
	return hospitalID, ok && hospitalID != ""
}
