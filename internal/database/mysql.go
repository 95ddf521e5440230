package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// parseTime keeps DATETIME columns scannable into time.Time; utf8mb4 stores any JSON text.
var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"parseTime": "True",
	"loc":       "Local",
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

// buildMySQLDSN renders a go-sql-driver/mysql DSN of the form user[:password]@tcp(host:port)/name?params.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if err := requireCredentials("mysql", cfg); err != nil {
		return "", err
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials += ":" + cfg.Password
	}
	address := fmt.Sprintf("%s:%d", withDefault(cfg.Host, "127.0.0.1"), withDefaultPort(cfg.Port, 3306))
	params := strings.Join(mergeOptions(mysqlDefaults, cfg.Options), "&")

	return fmt.Sprintf("%s@tcp(%s)/%s?%s", credentials, address, cfg.Name, params), nil
}
