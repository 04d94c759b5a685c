package model

import "strings"

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var sortableEventFields = map[string]bool{
	"createdAt": true,
	"date":      true,
	"price":     true,
	"title":     true,
}

type EventQuery struct {
	Category  string
	Search    string
	Featured  bool
	Status    EventStatus
	Page      int
	Limit     int
	SortField string
	SortOrder int
}

// ParseEventSort understands "field" and "-field" for the whitelisted
// fields, falling back to newest first.
func ParseEventSort(sort string) (string, int) {
	order := 1
	field := strings.TrimSpace(sort)
	if strings.HasPrefix(field, "-") {
		order = -1
		field = field[1:]
	}
	if !sortableEventFields[field] {
		return "createdAt", -1
	}
	return field, order
}

// Normalize applies listing defaults: active events, first page, default page size.
func (q *EventQuery) Normalize() {
	if q.Status == "" {
		q.Status = EventActive
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.SortField == "" {
		q.SortField, q.SortOrder = "createdAt", -1
	}
}

func (q EventQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

func (q EventQuery) Pages(total int64) int64 {
	if q.Limit <= 0 {
		return 0
	}
	return (total + int64(q.Limit) - 1) / int64(q.Limit)
}
