package db

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"
)

// IsUniqueViolation reports a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// IsInvalidInput reports malformed literals such as a non-UUID id.
func IsInvalidInput(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextRepr
}
