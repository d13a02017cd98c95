package app

import (
	"spycats/internal/config"
	"spycats/internal/db"
	"spycats/internal/engine"
	"spycats/internal/migrate"
)

// Bootstrap opens the workspace database, applies migrations, loads the
// optional config file (falling back to defaults) and builds the engine.
// The returned closer releases the database connection.
func Bootstrap(workspace string) (engine.Engine, *config.Config, func(), error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return engine.Engine{}, nil, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, nil, err
	}
	e := engine.New(conn, cfg)
	return e, cfg, func() { conn.Close() }, nil
}
