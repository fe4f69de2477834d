package oauth

import "strings"

// NormalizeScope rewrites Google's URL-namespaced scopes to bare names:
// "https://www.googleapis.com/auth/userinfo.email" becomes "email".
// Bare scopes such as "openid" pass through. An empty result yields DefaultScope.
func NormalizeScope(scope string) string {
	fields := strings.Fields(scope)
	out := make([]string, 0, len(fields))
	for _, s := range fields {
		s = strings.TrimPrefix(s, GoogleScopePrefix)
		s = strings.TrimPrefix(s, "userinfo.")
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return DefaultScope
	}
	return strings.Join(out, " ")
}
