package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// applyPaginationAndSort applies limit/offset and a whitelisted sort column.
func applyPaginationAndSort(query *gorm.DB, limit, offset int, sortBy, sortOrder, defaultSort string) *gorm.DB {
	column := defaultSort
	switch sortBy {
	case "created_at", "scheduled_at", "name", "marked_at":
		column = sortBy
	}

	order := "asc"
	if strings.EqualFold(sortOrder, "desc") {
		order = "desc"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, order))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
