package jobs

import "strings"

// ParseRoute extracts the resource ID and action from a URL path like
// /api/results/{id}/{action}. apiPrefix should be like "/api/results/".
// ok is false when either segment is missing.
func ParseRoute(path, apiPrefix string) (id, action string, ok bool) {
	rest, found := strings.CutPrefix(path, apiPrefix)
	if !found {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
