package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// GenerateKey builds a deterministic key from an endpoint and a parameter
// set. Parameters are sorted by name, so two maps holding the same pairs
// always produce the same key.
//
//	GenerateKey("/api/cases", map[string]any{"limit": 50, "skip": 0})
//	// "/api/cases?limit=50&skip=0"
func GenerateKey(endpoint string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+fmt.Sprint(params[name]))
	}
	return endpoint + "?" + strings.Join(pairs, "&")
}

// ParamsFromValues flattens url.Values into a GenerateKey parameter map.
// Multi-valued parameters are joined with a comma.
func ParamsFromValues(values url.Values, into map[string]any) map[string]any {
	if into == nil {
		into = make(map[string]any, len(values))
	}
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		into[name] = strings.Join(vals, ",")
	}
	return into
}
