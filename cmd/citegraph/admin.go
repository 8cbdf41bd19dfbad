package main

import (
	"github.com/matsen/citegraph/internal/auth"
	"github.com/spf13/cobra"
)

func init() {
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

// AdminCreateResult is the response for the admin create command.
type AdminCreateResult struct {
	Status   string `json:"status"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Create an admin account",
	Long: `Create an admin account that can log in to the web interface and use
the graph commands. Fails if the username is already taken.`,
	Args: cobra.ExactArgs(2),
	RunE: runAdminCreate,
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	db := mustOpenDatabase()
	defer db.Close()

	svc := auth.NewService(db, auth.WithLogger(logger))
	u, err := svc.CreateAdmin(cmd.Context(), args[0], args[1])
	exitOnError(err, "creating admin")

	if humanOutput {
		outputHuman("Created admin %s\n", u.Username)
		return nil
	}
	return outputJSON(AdminCreateResult{Status: "created", ID: u.ID, Username: u.Username})
}
