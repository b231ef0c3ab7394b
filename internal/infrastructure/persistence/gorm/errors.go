package gorm

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// uniqueViolation reports whether err is a unique constraint failure and,
// when it can tell, which column caused it.
func uniqueViolation(err error) (column string, ok bool) {
	if err == nil {
		return "", false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
	case strings.Contains(msg, "unique constraint failed"):
	case strings.Contains(msg, "duplicate key value"), strings.Contains(msg, "sqlstate 23505"):
	default:
		return "", false
	}
	for _, col := range []string{"email", "username", "title", "name"} {
		if strings.Contains(msg, "."+col) || strings.Contains(msg, "_"+col) {
			return col, true
		}
	}
	return "", true
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
