// Command taskctl is the operator CLI for taskhub-api. It talks to MongoDB
// directly, e.g. to bootstrap the first ADMIN before anyone can log in.
package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/database"
	"github.com/taskhub/taskhub-api/internal/users"
	"github.com/taskhub/taskhub-api/pkg/logger"
)

// openUsers returns the user service and a cleanup func.
type openUsers func(ctx context.Context) (*users.Service, func(), error)

func mongoUsers(ctx context.Context) (*users.Service, func(), error) {
	cfg := config.LoadMongoDBConfig()
	if cfg.URI == "" {
		return nil, nil, errMissingURI
	}
	client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(cfg.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warnf("failed to ensure indexes: %v", err)
	}
	repo := users.NewMongoUserRepository(db.Collection(database.UsersCollection))
	return users.NewService(repo), func() { _ = client.Disconnect(context.Background()) }, nil
}

func newRootCmd(open openUsers) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Operator tooling for taskhub-api",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(cmd.Flag("log-level").Value.String())
		},
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	root.AddCommand(newUserCmd(open))
	return root
}

func main() {
	if err := newRootCmd(mongoUsers).Execute(); err != nil {
		logger.Fatalf("taskctl: %v", err)
	}
}
