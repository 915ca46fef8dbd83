// Package urlutil encodes and decodes the query strings exchanged with the
// authorization and token endpoints.
package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// ToQueryString encodes params as an application/x-www-form-urlencoded string.
// Keys are emitted in sorted order so the output is deterministic. An empty or
// nil map yields "".
func ToQueryString(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// FormQueryString decodes a query string into a map. A leading "?" is ignored,
// empty pairs are skipped, a pair without "=" maps to "", and a later duplicate
// key replaces an earlier one. Segments that fail to unescape are kept verbatim.
func FormQueryString(query string) map[string]string {
	params := make(map[string]string)
	query = strings.TrimPrefix(query, "?")
	if query == "" {
		return params
	}

	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		if key == "" {
			continue
		}
		params[key] = unescape(value)
	}
	return params
}

// GetFold returns the value of the first key equal to name under case folding.
func GetFold(params map[string]string, name string) (string, bool) {
	if v, ok := params[name]; ok {
		return v, true
	}
	for k, v := range params {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
