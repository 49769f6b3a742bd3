package auth

import (
	"net/http"
	"strings"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/utils"
)

// MemberRoleFromRequest resolves the community role the caller acts under.
// Trusted backend/admin keys may assert any role through X-User-Role;
// frontend keys get the header parsed the same way but an unknown or
// missing value fails closed to student.
func MemberRoleFromRequest(r *http.Request) models.Role {
	raw := strings.TrimSpace(r.Header.Get("X-User-Role"))
	role, err := models.ParseRole(raw)
	if err != nil {
		logger.Warn("unknown_member_role", "value", raw, "path", r.URL.Path)
		return models.RoleStudent
	}
	return role
}

// RequireCapability gates a handler behind a community capability. Callers
// whose resolved role does not carry the capability get a 403 rather than a
// silent no-op, so client bugs surface instead of masking policy.
func RequireCapability(cap models.Capability, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := MemberRoleFromRequest(r)
		if !role.Can(cap) {
			logger.Warn("capability_denied", "role", role.String(), "path", r.URL.Path)
			utils.JSONError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}
