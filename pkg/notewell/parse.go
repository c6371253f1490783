package notewell

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
)

// Parse reads flags and environment variables into a Config and determines
// which subcommand to run. args should not include the program name.
//
// A .env file in the working directory is loaded first when present, so
// local development does not need exported variables.
func Parse(args []string) (Command, *Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	flagSet := flag.NewFlagSet("notewell", flag.ContinueOnError)
	flagSet.StringVar(&config.Port, "port", getEnv("PORT", "8787"), "HTTP listen port")
	flagSet.BoolVar(&config.Memory, "memory", false, "use the in-memory store (data is lost on exit)")
	flagSet.StringVar(&config.PostgresDSN, "postgres", getEnv("POSTGRES_DSN", ""), "PostgreSQL DSN; selects the PostgreSQL backend")
	flagSet.StringVar(&config.SurrealURL, "surreal-url", getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"), "SurrealDB connection URL")
	flagSet.StringVar(&config.SurrealNS, "surreal-ns", getEnv("SURREALDB_NS", "notewell"), "SurrealDB namespace")
	flagSet.StringVar(&config.SurrealDB, "surreal-db", getEnv("SURREALDB_DB", "notewell"), "SurrealDB database")
	flagSet.StringVar(&config.SurrealUser, "surreal-user", getEnv("SURREALDB_USER", "root"), "SurrealDB user")
	flagSet.StringVar(&config.SurrealPass, "surreal-pass", getEnv("SURREALDB_PASS", "root"), "SurrealDB password")
	flagSet.StringVar(&config.GeminiAPIKey, "gemini-key", getEnv("GEMINI_API_KEY", ""), "default Gemini API key for AI endpoints")

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return RunCommand{}, config, nil
	}

	switch rest[0] {
	case "run":
		return RunCommand{}, config, nil
	case "migrate":
		return MigrateCommand{}, config, nil
	default:
		return nil, nil, fmt.Errorf("unknown command %q", rest[0])
	}
}
