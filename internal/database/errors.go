package database

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the application reacts to.
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool { return mysqlErrNumber(err) == errDuplicateEntry }

// IsLockTimeout reports whether err came from innodb_lock_wait_timeout.
func IsLockTimeout(err error) bool { return mysqlErrNumber(err) == errLockWaitTimeout }

// IsDeadlock reports whether MySQL picked this transaction as a deadlock victim.
func IsDeadlock(err error) bool { return mysqlErrNumber(err) == errDeadlock }

// IsRetryable reports whether the whole transaction can be retried as-is:
// the server rolled it back because of lock contention or the caller's
// deadline expired while waiting.
func IsRetryable(err error) bool {
	return IsLockTimeout(err) || IsDeadlock(err) || errors.Is(err, context.DeadlineExceeded)
}
