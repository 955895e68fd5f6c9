package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Postgres SQLSTATE codes (class 23, integrity constraint violation).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// MySQL error numbers.
const (
	mysqlDuplicateEntry   = 1062
	mysqlBadNull          = 1048
	mysqlForeignKeyParent = 1451
	mysqlForeignKeyChild  = 1452
	mysqlCheckViolation   = 3819
)

// ConstraintKind classifies a constraint violation.
type ConstraintKind uint8

// Constraint kinds.
const (
	NoConstraint ConstraintKind = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
	NotNullConstraint
	OtherConstraint
)

// String implements fmt.Stringer.
func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	case NotNullConstraint:
		return "not null"
	case OtherConstraint:
		return "constraint"
	default:
		return "none"
	}
}

// ClassifyConstraint reports which constraint, if any, err violated. Errors
// of the lib/pq, go-sql-driver/mysql and modernc sqlite drivers are
// inspected by code; anything else falls back to message matching.
func ClassifyConstraint(err error) ConstraintKind {
	if err == nil {
		return NoConstraint
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return UniqueConstraint
		case pgForeignKeyViolation:
			return ForeignKeyConstraint
		case pgCheckViolation:
			return CheckConstraint
		case pgNotNullViolation:
			return NotNullConstraint
		}
		if pqErr.Code.Class() == "23" {
			return OtherConstraint
		}
		return NoConstraint
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return UniqueConstraint
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ForeignKeyConstraint
		case mysqlCheckViolation:
			return CheckConstraint
		case mysqlBadNull:
			return NotNullConstraint
		}
		return NoConstraint
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return UniqueConstraint
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ForeignKeyConstraint
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return CheckConstraint
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return NotNullConstraint
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT {
			if k := classifyMessage(liteErr.Error()); k != NoConstraint {
				return k
			}
			return OtherConstraint
		}
		return NoConstraint
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ConstraintKind {
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed"):
		return UniqueConstraint
	case containsAny(msg, "Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"):
		return ForeignKeyConstraint
	case containsAny(msg, "Error 3819", "violates check constraint", "CHECK constraint failed"):
		return CheckConstraint
	case containsAny(msg, "Error 1048", "violates not-null constraint", "NOT NULL constraint failed"):
		return NotNullConstraint
	}
	return NoConstraint
}

// IsConstraintError reports whether err resulted from any constraint violation.
func IsConstraintError(err error) bool {
	return ClassifyConstraint(err) != NoConstraint
}

// IsUniqueConstraintError reports whether err resulted from a uniqueness
// (or primary key) violation.
func IsUniqueConstraintError(err error) bool {
	return ClassifyConstraint(err) == UniqueConstraint
}

// IsForeignKeyConstraintError reports whether err resulted from a
// foreign-key violation.
func IsForeignKeyConstraintError(err error) bool {
	return ClassifyConstraint(err) == ForeignKeyConstraint
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
