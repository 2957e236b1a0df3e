// Package core implements the domain and data layer: users, profiles,
// articles, comments and tags over Postgres.
package core

import (
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"conduit/internal/utils/databaseutils"
)

type Core struct {
	log         *slog.Logger
	sqlTemplate *databaseutils.SQLTemplate
}

func NewCore(sqlTemplate *databaseutils.SQLTemplate, log *slog.Logger) *Core {
	return &Core{
		log:         log,
		sqlTemplate: sqlTemplate,
	}
}

// isUniqueViolation reports whether err is a Postgres unique violation on the
// named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
