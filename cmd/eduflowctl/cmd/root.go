package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go.pilab.hu/eduflow/api"
	"go.pilab.hu/eduflow/config"
	"go.pilab.hu/eduflow/log"
	"go.pilab.hu/eduflow/session"
	"go.pilab.hu/eduflow/store"
)

var (
	cfg       *config.ClientConfig
	logger    log.Logger
	apiClient *api.Client
	credStore store.CredentialStore
	manager   *session.Manager
)

var rootCmd = &cobra.Command{
	Use:   "eduflowctl",
	Short: "Command line client for the eduflow learning platform",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// A .env file next to the binary is a convenience for local
		// development; absence is not an error.
		_ = godotenv.Load()

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}

		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		logger = log.NewZerologAdapter(level, cfg.LogPretty)

		credStore, err = openStore(cfg)
		if err != nil {
			return err
		}

		apiClient = api.NewClient(cfg, logger)
		manager = session.NewManager(apiClient, credStore, cfg, logger)

		return manager.Start(cmd.Context())
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if manager != nil {
			manager.Close()
		}
		if apiClient != nil {
			apiClient.Close()
		}
		if credStore != nil {
			credStore.Close()
		}
	},
}

// openStore selects the credential store backend from configuration.
func openStore(cfg *config.ClientConfig) (store.CredentialStore, error) {
	switch cfg.StorageBackend {
	case "file", "":
		return store.NewBBoltStore(expandHome(cfg.StoragePath))
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return store.NewRedisStore(client, "eduflow"), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func expandHome(path string) string {
	if !strings.Contains(path, "$HOME") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return strings.ReplaceAll(path, "$HOME", home)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(lessonsCmd)
}
