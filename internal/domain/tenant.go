// Package domain holds the data model shared by every component: tenants,
// integrated objects, summaries, vector points, ingest jobs and use-case
// configuration. Nothing here talks to a network or a database — it is the
// vocabulary the rest of the tree is written in.
package domain

import (
	"regexp"
	"strings"
)

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9-]{2,}$`)

var reservedTenantIDs = map[string]struct{}{
	"demo":    {},
	"test":    {},
	"example": {},
	"admin":   {},
	"www":     {},
	"api":     {},
}

// TenantID is a validated tenant identifier. Construct it with ParseTenantID;
// the zero value is intentionally unusable so a missing check fails loudly.
type TenantID string

// ParseTenantID validates a raw string against the tenant-id grammar and the
// reserved-word list. It never mutates case: callers normalizing a subdomain
// must lowercase before calling this.
func ParseTenantID(raw string) (TenantID, error) {
	if !tenantIDPattern.MatchString(raw) {
		return "", NewError(KindInvalidTenant, "tenant id %q does not match ^[a-z0-9-]{2,}$", raw)
	}
	if _, reserved := reservedTenantIDs[raw]; reserved {
		return "", NewError(KindInvalidTenant, "tenant id %q is reserved", raw)
	}
	return TenantID(raw), nil
}

func (t TenantID) String() string { return string(t) }

// Platform identifies the host help-desk platform an operation concerns.
type Platform string

const (
	PlatformFreshdesk Platform = "freshdesk"
)

// TenantContext is the immutable value threaded through every downstream
// call. No component reads tenant identity from anywhere else.
type TenantContext struct {
	TenantID TenantID
	Platform Platform
}

// TenantDomainSubdomain extracts and lowercases the leading subdomain from a
// host of the form "<tenant>.<platform>.com". Returns ok=false if host has
// fewer than 3 labels.
func TenantDomainSubdomain(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return "", false
	}
	return parts[0], true
}
