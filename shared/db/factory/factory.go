package factory

import (
	"fmt"

	"github.com/dfryer1193/agromedia/shared/config"
	"github.com/dfryer1193/agromedia/shared/db"
	"github.com/dfryer1193/agromedia/shared/db/mysql"
	"github.com/dfryer1193/agromedia/shared/db/sqlite"
	"github.com/rs/zerolog/log"
)

// NewDatabase builds and connects the backend named by cfg.Driver.
func NewDatabase(cfg config.Database) (db.Database, error) {
	var database db.Database

	switch cfg.Driver {
	case "sqlite", "":
		database = sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(cfg.URL))
	case "mysql":
		mysqlCfg, err := mysql.NewMySQLConfig(cfg.URL)
		if err != nil {
			return nil, err
		}
		database = mysql.NewMySQLDB(mysqlCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect %s database: %w", database.Driver(), err)
	}

	log.Info().Str("driver", database.Driver()).Msg("Database connected")
	return database, nil
}
