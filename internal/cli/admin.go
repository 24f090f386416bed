package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/school-portal/portal-backend/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringP("username", "u", "", "Admin login name")
	adminCreateCmd.Flags().String("name", "", "Display name shown in the admin console")
	adminCreateCmd.Flags().String("school", "", "School code; empty for district staff")
	adminCreateCmd.Flags().Bool("super", false, "Grant every permission")
	_ = adminCreateCmd.MarkFlagRequired("username")
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage staff accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a staff account",
	Long: `Create a staff account. The password is read from $PORTAL_ADMIN_PASSWORD
or, when unset, from the first line of standard input.`,
	Args: cobra.NoArgs,
	RunE: runAdminCreate,
}

func runAdminCreate(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	name, _ := cmd.Flags().GetString("name")
	school, _ := cmd.Flags().GetString("school")
	super, _ := cmd.Flags().GetBool("super")

	password := os.Getenv("PORTAL_ADMIN_PASSWORD")
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	admin, err := app.CreateAdmin(cmd.Context(), appConfig(), app.CreateAdminParams{
		Username:    username,
		Password:    password,
		DisplayName: name,
		SchoolCode:  school,
		SuperAdmin:  super,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id=%d, super=%t)\n", admin.Username, admin.ID, admin.IsSuperAdmin)
	return nil
}
