package harvest

import (
	"net/url"
	"sort"
	"strings"
)

// dropQueryKeys are tracking and cache-busting query parameters that never
// change what resource a URL identifies.
var dropQueryKeys = map[string]struct{}{
	"_":           {},
	"ts":          {},
	"timestamp":   {},
	"t":           {},
	"v":           {},
	"ver":         {},
	"version":     {},
	"cb":          {},
	"cachebust":   {},
	"cachebuster": {},
	"nocache":     {},
	"rnd":         {},
	"random":      {},
	"download":    {},
}

// CanonicalizeURL normalizes a URL into a stable comparison key: tracking
// parameters are dropped (any deny-listed key plus every utm_* key), the
// remaining parameters are sorted by key then value, and the fragment is
// removed. Empty input passes through unchanged, as does input that does not
// parse as a URL.
//
// The function is pure and idempotent: canonicalizing a canonical URL yields
// the same string.
func CanonicalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = canonicalQuery(u.RawQuery)
	return u.String()
}

type queryParam struct {
	key, value string
}

// canonicalQuery filters and sorts an encoded query string. Blank values are
// kept; parameter order never influences the result.
func canonicalQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	params := make([]queryParam, 0, len(values))
	for key, vals := range values {
		if dropQueryKey(key) {
			continue
		}
		for _, v := range vals {
			params = append(params, queryParam{key: key, value: v})
		}
	}

	sort.Slice(params, func(i, j int) bool {
		if params[i].key != params[j].key {
			return params[i].key < params[j].key
		}
		return params[i].value < params[j].value
	})

	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func dropQueryKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := dropQueryKeys[lower]; ok {
		return true
	}
	return strings.HasPrefix(lower, "utm_")
}
