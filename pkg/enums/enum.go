// Package enums holds the closed string value sets stored in the database and
// exchanged over the API and the outbox.
package enums

import (
	"fmt"
	"slices"
)

type valueSet[T ~string] struct {
	name   string
	values []T
}

func set[T ~string](name string, values ...T) valueSet[T] {
	return valueSet[T]{name: name, values: values}
}

func (s valueSet[T]) has(v T) bool {
	return slices.Contains(s.values, v)
}

func (s valueSet[T]) parse(raw string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", s.name, raw)
}
