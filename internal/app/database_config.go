package app

import (
	"strings"

	"github.com/charlesng35/orgcache/internal/database"
)

// ConnectionConfig converts the database settings into the database package representation.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		applyAuth(&dbCfg, c.Postgres)
	case "mysql":
		applyAuth(&dbCfg, c.MySQL)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func applyAuth(dbCfg *database.Config, auth DBAuthConfig) {
	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)

	if len(auth.Options) > 0 {
		dbCfg.Options = make(map[string]string, len(auth.Options))
		for key, value := range auth.Options {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			dbCfg.Options[key] = strings.TrimSpace(value)
		}
	}
}
