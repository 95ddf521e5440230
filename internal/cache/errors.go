package cache

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	errStoreNotInitialised = errors.New("cache: store not initialised")
	errEmptyKey            = errors.New("cache: key is required")
	errEmptyValue          = errors.New("cache: value is required")
)

// isUniqueConstraintError detects primary key violations across vendors. Drivers that honour
// ON CONFLICT DO NOTHING never return one, but a racing insert on another dialect may.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

func validateEntry(key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errEmptyKey
	}
	if len(value) == 0 {
		return errEmptyValue
	}
	return nil
}
