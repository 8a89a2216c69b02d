package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/internhub/core/cmd/api/commands"
)

// @title InternHub API
// @version 1.0
// @description Internship portal: task assignment, progress tracking and feedback

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "internhub",
		Short:         "InternHub API Server",
		Long:          `InternHub manages internship tasks: admins assign and review work, interns report progress and submit results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewServeCommand(),
		commands.NewMigrateCommand(),
		commands.NewUserCommand(),
		commands.NewJobsCommand(),
		commands.NewVersionCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
