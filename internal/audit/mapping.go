package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for an HTTP method and route path
// (e.g. POST /auth/otp/sign-in -> action sign_in, resource otp).
// Resource is the first path segment after /auth (or the first segment for
// routes outside /auth), singularized and with hyphens as underscores. Action
// is the remaining segments joined with underscores, or a verb derived from
// the method when the path carries no action of its own.
func ParseRoute(method, path string) ActionResource {
	path = strings.Trim(path, "/")
	if path == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	segs := strings.Split(path, "/")
	if segs[0] == "auth" {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}

	// Token refresh and sign-out act on the session, not a "refresh" resource.
	if segs[0] == "refresh" {
		return ActionResource{Action: "refresh", Resource: "session"}
	}

	resource := strings.ReplaceAll(strings.TrimSuffix(segs[0], "s"), "-", "_")
	rest := segs[1:]
	if len(rest) == 0 {
		return ActionResource{Action: methodToAction(method), Resource: resource}
	}
	parts := make([]string, 0, len(rest))
	for _, s := range rest {
		if s == "current" {
			continue
		}
		parts = append(parts, strings.ReplaceAll(s, "-", "_"))
	}
	if len(parts) == 0 {
		return ActionResource{Action: methodToAction(method), Resource: resource}
	}
	return ActionResource{Action: strings.Join(parts, "_"), Resource: resource}
}

func methodToAction(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	case "GET":
		return "get"
	default:
		return strings.ToLower(method)
	}
}
