package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate はユニーク制約に違反する書き込みを表す。
var ErrDuplicate = errors.New("duplicate record")

// ErrJobNotLive は書き込み対象の求人が存在しないか締切日を過ぎていることを表す。
var ErrJobNotLive = errors.New("job not found or expired")

// pqUniqueViolation はPostgreSQLのunique_violationのSQLSTATE。
const pqUniqueViolation = "23505"

// isUniqueViolation はerrがユニーク制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
