package notewell

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Main parses args, builds the App, and dispatches the subcommand. It is
// the program entry point minus process concerns like signal handling.
func Main(ctx context.Context, args []string, log zerolog.Logger) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return err
	}

	app, err := New(ctx, config, log)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd.(type) {
	case RunCommand:
		if err := app.store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
		return app.Run(ctx)
	case MigrateCommand:
		if err := app.store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
		log.Info().Msg("migration complete")
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Name())
	}
}
