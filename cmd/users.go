package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/eportal/backend/models"
	"github.com/eportal/backend/rbac"
	"github.com/eportal/backend/repository"
)

var (
	emailFlag      string
	nameFlag       string
	passwordFlag   string
	roleFlag       string
	departmentFlag int64
	stdinFlag      bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "User account commands",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account with one role",
	Long: `Creates an account directly in the database. OFFICER and DEPT_HEAD
accounts also get an officer record in the department given by --department.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate required flags
		if emailFlag == "" {
			return errors.New("--email flag is required")
		}
		if nameFlag == "" {
			return errors.New("--name flag is required")
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.OutOrStdout(), "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return errors.New("password is required (use --password or --stdin)")
		}

		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		role := rbac.Canonical(roleFlag)
		var department *int64
		switch role {
		case rbac.RoleOfficer, rbac.RoleDeptHead:
			if departmentFlag <= 0 {
				return fmt.Errorf("--department is required for %s accounts", role)
			}
			department = &departmentFlag
		case rbac.RoleCitizen, rbac.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q (valid: CITIZEN, OFFICER, DEPT_HEAD, ADMIN)", roleFlag)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		users := repository.NewUsers(pool)
		id, err := users.CreateStaffUser(cmd.Context(), models.NewUser{
			FullName:     strings.TrimSpace(nameFlag),
			Email:        strings.TrimSpace(emailFlag),
			PasswordHash: string(hash),
		}, string(role), department)
		if err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				return fmt.Errorf("a user with email %s already exists", emailFlag)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "User created: id=%d email=%s role=%s\n", id, emailFlag, role)
		return nil
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&emailFlag, "email", "", "Email address (required)")
	usersCreateCmd.Flags().StringVar(&nameFlag, "name", "", "Full name (required)")
	usersCreateCmd.Flags().StringVar(&passwordFlag, "password", "", "Password")
	usersCreateCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin")
	usersCreateCmd.Flags().StringVar(&roleFlag, "role", string(rbac.RoleCitizen), "Role: CITIZEN, OFFICER, DEPT_HEAD or ADMIN")
	usersCreateCmd.Flags().Int64Var(&departmentFlag, "department", 0, "Department id for OFFICER and DEPT_HEAD accounts")

	usersCmd.AddCommand(usersCreateCmd)
}
