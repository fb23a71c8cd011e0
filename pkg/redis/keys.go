package redis

import "strings"

const keyRoot = "ty"

// Keyspace builds namespaced keys. Every key starts with "ty:".
type Keyspace struct{}

func (Keyspace) IdempotencyKey(scope, id string) string {
	return joinKey("idempotency", scope, id)
}

func (Keyspace) RateLimitKey(scope string) string {
	return joinKey("rate_limit", scope)
}

func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyRoot)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
