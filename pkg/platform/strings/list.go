// Package strings parses comma separated configuration lists.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value into trimmed, non-empty, unique
// elements in first-seen order. An empty value yields nil.
//
// Example:
//
//	SplitList(" kafka-1:9092,kafka-2:9092, kafka-1:9092 ,")
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	seen := make(map[string]struct{}, len(parts))
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
