// Package canonical normalizes job posting URLs into a stable form and derives
// the identity hash used for deduplication.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// redirectParams are query parameters that newsletter click-trackers use to
// carry the real destination, checked in this order.
var redirectParams = []string{"url", "link", "target", "redirect", "dest", "destination"}

// trackingParams are stripped before hashing. Names are compared lowercased.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"ref":          {},
	"referrer":     {},
	"source":       {},
	"gh_src":       {},
	"lever-origin": {},
	"lever-source": {},
	"ashby_source": {},
	"ems":          {},
	"sid":          {},
	"cid":          {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
}

// IsTrackingParam reports whether name is a known tracking parameter.
func IsTrackingParam(name string) bool {
	_, ok := trackingParams[strings.ToLower(name)]
	return ok
}

// ExtractRedirectTarget returns the embedded destination of a tracking redirect
// URL (for example https://click.example.com/c?url=https://jobs.example.com/1).
// Only one level is unwrapped. Inputs without a redirect parameter whose value
// starts with "http" are returned unchanged.
func ExtractRedirectTarget(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parseQuery(parsed.RawQuery)
	for _, param := range redirectParams {
		values, ok := query[param]
		if !ok || len(values) == 0 {
			continue
		}
		if strings.HasPrefix(values[0], "http") {
			return values[0]
		}
	}
	return rawURL
}

// parseQuery splits a raw query on "&" and unescapes each key and value.
// Unlike url.ParseQuery it keeps pairs containing ";" and keeps the raw text
// of a malformed escape instead of dropping the pair.
func parseQuery(rawQuery string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		if key == "" {
			continue
		}
		values[key] = append(values[key], unescape(value))
	}
	return values
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// Canonicalize returns the canonical form of a job URL.
//
// The input is trimmed and unwrapped once via ExtractRedirectTarget. Scheme and
// host are lowercased, tracking and empty query parameters are dropped, the
// fragment is removed and trailing slashes are stripped from the path (an
// empty path becomes "/"). Remaining parameters are re-encoded sorted by key.
// Input that cannot be parsed is returned trimmed but otherwise unchanged.
//
// Canonicalize is idempotent except for nested redirects: a wrapper whose
// target is itself a wrapper canonicalizes to the inner wrapper, and a second
// call unwraps one more level.
func Canonicalize(rawURL string) string {
	target := ExtractRedirectTarget(strings.TrimSpace(rawURL))

	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}

	clean := url.Values{}
	for key, values := range parseQuery(parsed.RawQuery) {
		if IsTrackingParam(key) {
			continue
		}
		for _, v := range values {
			if v != "" {
				clean.Add(key, v)
			}
		}
	}

	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		path = "/"
	}

	canon := url.URL{
		Scheme:   strings.ToLower(parsed.Scheme),
		User:     parsed.User,
		Host:     strings.ToLower(parsed.Host),
		Path:     path,
		RawQuery: clean.Encode(),
	}
	if parsed.RawPath != "" {
		canon.RawPath = strings.TrimRight(parsed.RawPath, "/")
	}
	if parsed.Opaque != "" {
		canon.Opaque = parsed.Opaque
		canon.Path = ""
	}
	return canon.String()
}

// Hash returns the lowercase hex SHA-256 of the canonical form of rawURL.
func Hash(rawURL string) string {
	sum := sha256.Sum256([]byte(Canonicalize(rawURL)))
	return hex.EncodeToString(sum[:])
}
