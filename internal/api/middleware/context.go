package middleware

import (
	"context"

	"github.com/gatehouse-dev/gatehouse/internal/admin"
)

type contextKey string

const adminUserKey contextKey = "adminUser"

// WithAdminUser stores the verified admin on the request context.
func WithAdminUser(ctx context.Context, u *admin.User) context.Context {
	return context.WithValue(ctx, adminUserKey, u)
}

// AdminUserFrom returns the verified admin, or nil outside the admin
// surface.
func AdminUserFrom(ctx context.Context) *admin.User {
	u, _ := ctx.Value(adminUserKey).(*admin.User)
	return u
}
