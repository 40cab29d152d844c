package diaglog

import (
	"net/url"
	"strings"
)

// addressKeys hold browser tab addresses. Only the host is kept so paths,
// query strings and meeting codes never reach the log.
var addressKeys = map[string]bool{
	"tab_address": true,
	"url":         true,
}

// Redact recursively traverses v and reduces the values of any key found in
// addressKeys to their host. v is not mutated; a new map is returned.
// Non-map types are returned unchanged.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if s, ok := child.(string); ok && addressKeys[k] {
				out[k] = HostOnly(s)
			} else {
				out[k] = Redact(child)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = Redact(elem)
		}
		return out
	default:
		return v
	}
}

// HostOnly returns the lower-cased host of addr, or "[REDACTED]" when no host
// can be parsed.
func HostOnly(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil || u.Hostname() == "" {
		return "[REDACTED]"
	}
	return strings.ToLower(u.Hostname())
}
