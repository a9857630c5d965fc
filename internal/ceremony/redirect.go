package ceremony

import (
	"net/url"
	"strings"

	tenantdomain "tenantauth/internal/tenant/domain"
)

// ValidateCallbackURL reports whether rawURL may be embedded in a delivered
// link for the given tenant. The URL's origin (scheme + host) must match one
// of the tenant's trusted domains, or be localhost when the tenant allows it.
// Every ceremony that supports redirects must call this before creating a code.
func ValidateCallbackURL(rawURL string, t *tenantdomain.Tenant) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if isLocalhost(u.Hostname()) {
		return t.AllowLocalhost
	}
	origin := u.Scheme + "://" + u.Host
	for _, d := range t.TrustedDomains {
		if strings.TrimSuffix(d, "/") == origin {
			return true
		}
	}
	return false
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1" ||
		strings.HasSuffix(host, ".localhost")
}
