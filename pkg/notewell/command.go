package notewell

// Command is a parsed subcommand ready to run.
type Command interface {
	Name() string
}

// RunCommand starts the HTTP server.
type RunCommand struct{}

func (RunCommand) Name() string { return "run" }

// MigrateCommand provisions the storage schema and exits.
type MigrateCommand struct{}

func (MigrateCommand) Name() string { return "migrate" }
