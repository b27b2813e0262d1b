package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/jsi/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultHistoryPath = "jsi.db"

// Setup writes a config file from the template when none exists and initializes the history database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("%s Config written to %s\n", palette.OK("✓"), configPath)
	}

	path := config.Database.Path
	if cmd.IsSet("history") {
		path = cmd.String("history")
	}
	if path == "" {
		path = defaultHistoryPath
	}

	r.logger.Info("initializing history database", "path", path)
	db, err := shared.OpenHistory(path, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err != nil {
		return fmt.Errorf("failed to initialize history database: %w", err)
	}
	defer db.Close()

	r.writePlain("%s History database ready at %s\n", palette.OK("✓"), path)
	r.writePlainln("%s", palette.Help("Next steps:"))
	r.writePlain("  1. Set jellyfin.url, jellyfin.token and jellyfin.user in %s\n", configPath)
	if config.Database.Path != path {
		r.writePlain("  2. Set database.path = %q to record every import\n", path)
	} else {
		r.writePlain("  2. Imports will be recorded in %s\n", path)
	}
	r.writePlain("  3. Run: jsi import --dry-run playlists.json\n")
	return nil
}
