package validate

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

var (
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrDisallowedScheme = errors.New("URL scheme not allowed")
	ErrDisallowedDomain = errors.New("URL domain not allowed")
	ErrSSRFRisk         = errors.New("URL poses SSRF risk")
)

// URLConstraints defines what an inbound URL field may contain. Event
// submissions carry several URL fields (teleport links, stream pages, cover
// images) with different rules, so each field picks its own constraint set.
type URLConstraints struct {
	AllowedSchemes []string
	AllowedDomains []string // empty allows any public domain
	BlockPrivate   bool     // resolve the host and reject private ranges
	MaxLength      int      // 0 means unlimited
}

// DefaultURLConstraints is the strict profile: HTTPS only, no private hosts.
var DefaultURLConstraints = URLConstraints{
	AllowedSchemes: []string{"https"},
	BlockPrivate:   true,
	MaxLength:      2048,
}

// PublicWebURLConstraints admits plain HTTP as well, for external pages the
// API never fetches itself.
var PublicWebURLConstraints = URLConstraints{
	AllowedSchemes: []string{"https", "http"},
	BlockPrivate:   true,
	MaxLength:      2048,
}

// TeleportURLConstraints covers in-world teleport links. The viewer resolves
// these itself, so no hostname lookup or SSRF check applies.
var TeleportURLConstraints = URLConstraints{
	AllowedSchemes: []string{"poqpoq", "hop", "secondlife"},
	BlockPrivate:   false,
	MaxLength:      2048,
}

// URL validates a URL string against the constraints and returns it trimmed.
func URL(urlStr string, constraints URLConstraints) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", ErrEmpty
	}
	if constraints.MaxLength > 0 && len(urlStr) > constraints.MaxLength {
		return "", fmt.Errorf("%w: URL exceeds %d characters", ErrStringTooLong, constraints.MaxLength)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if len(constraints.AllowedSchemes) > 0 && !slices.Contains(constraints.AllowedSchemes, parsed.Scheme) {
		return "", fmt.Errorf("%w: got %q, allowed: %v", ErrDisallowedScheme, parsed.Scheme, constraints.AllowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	if len(constraints.AllowedDomains) > 0 && !domainAllowed(host, constraints.AllowedDomains) {
		return "", fmt.Errorf("%w: %q not in allowlist", ErrDisallowedDomain, host)
	}

	if constraints.BlockPrivate {
		if err := rejectPrivateHost(host); err != nil {
			return "", err
		}
	}

	return urlStr, nil
}

// domainAllowed matches the host exactly or as a subdomain of an entry.
func domainAllowed(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// rejectPrivateHost resolves the host and refuses anything that lands in
// loopback, link-local, or RFC 1918 / ULA space. Resolution failures pass:
// a transient DNS error must not reject a legitimate domain, and the API
// never fetches these URLs anyway.
func rejectPrivateHost(host string) error {
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") || lower == "localhost.localdomain" {
		return fmt.Errorf("%w: localhost not allowed", ErrSSRFRisk)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: private IP address %s", ErrSSRFRisk, ip.String())
		}
	}
	return nil
}

// isPrivateIP reports whether the address is unreachable from the public
// internet: loopback, link-local, RFC 1918, or IPv6 unique-local.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate()
}

// ExternalURL validates an event's external link (stream page, ticket shop).
func ExternalURL(urlStr string) (string, error) {
	return URL(urlStr, PublicWebURLConstraints)
}

// MediaURL validates a URL for cover images and gallery entries.
func MediaURL(urlStr string) (string, error) {
	return URL(urlStr, PublicWebURLConstraints)
}

// TeleportURL validates an in-world teleport link.
func TeleportURL(urlStr string) (string, error) {
	return URL(urlStr, TeleportURLConstraints)
}
