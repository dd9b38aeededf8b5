package services

import (
	"strings"

	"github.com/google/uuid"
)

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func prefixedID(prefix string, n int) string {
	return prefix + shortID(n)
}
