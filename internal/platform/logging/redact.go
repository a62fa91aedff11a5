package logging

import "strings"

const redactedValue = "[REDACTED]"

// Calendar OAuth material and service credentials never reach a log sink.
var sensitiveKeys = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"token":         {},
	"authorization": {},
	"client_secret": {},
	"admin_key":     {},
}

func sensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// redactArgs masks sensitive values, copying args only when something changes.
func redactArgs(args []any) []any {
	out := args
	copied := false
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); !ok || !sensitive(key) {
			continue
		}
		if !copied {
			out = append([]any(nil), args...)
			copied = true
		}
		out[i+1] = redactedValue
	}
	return out
}
