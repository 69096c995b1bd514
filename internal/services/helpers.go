package services

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseID accepts canonical UUIDs only.
func parseID(value string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func normalisePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func pageCount(total int64, limit int) int64 {
	if limit <= 0 || total == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func roundOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
