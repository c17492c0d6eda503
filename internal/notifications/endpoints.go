package notifications

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateEndpointURL rejects webhook endpoints that could be used to reach
// internal infrastructure. The check is a literal string match on the URL's
// host and performs no DNS resolution. Blocked: non-http(s) schemes,
// localhost and its subdomains, .local/.internal hostnames, and loopback,
// private, link-local or unspecified IP literals (both families).
func ValidateEndpointURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https")
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return fmt.Errorf("endpoint host is required")
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("endpoint host %q is not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return fmt.Errorf("endpoint address %q is not allowed", host)
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	// Covers 127/8 and ::1, 10/8, 172.16/12, 192.168/16 and fc00::/7,
	// 169.254/16 and fe80::/10, and 0.0.0.0/:: respectively.
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}
	// The rest of 0.0.0.0/8 ("this network") is not caught above.
	if v4 := ip.To4(); v4 != nil && v4[0] == 0 {
		return true
	}
	return false
}
