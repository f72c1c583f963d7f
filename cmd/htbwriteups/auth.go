package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"htbwriteups/pkg/auth"
	"htbwriteups/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored Hack The Box API token",
	Long: `Manage the stored Hack The Box API token.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The HTBWRITEUPS_TOKEN environment variable (read only)

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store an API token securely",
	Long: `Store a Hack The Box API token in the system keychain or encrypted file.

To create a token:
1. Log into https://app.hackthebox.com
2. Open Account Settings
3. Create an App Token and copy it

The token is read without echo. It can also be piped on stdin.`,
	Example: `  # Interactive login
  htbwriteups auth login

  # Store a second token under another profile
  htbwriteups auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored tokens",
	Long:  `List stored token profiles with the token masked.`,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func runLogin(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(ui.Options{NoColor: noColor})

	manager, err := auth.NewManager()
	if err != nil {
		console.Error("Failed to initialize credential manager: %v", err)
		os.Exit(1)
	}

	name := profileArg(args)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("A token is already stored for '%s'. Replace it? (y/N): ", name)
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("API token: ")
	token, err := readPassword()
	if err != nil {
		console.Error("Failed to read token: %v", err)
		os.Exit(1)
	}
	if token == "" {
		console.Error("Token is required")
		os.Exit(1)
	}

	if err := manager.Store(&auth.Credentials{Profile: name, Token: token}); err != nil {
		console.Error("Failed to store token: %v", err)
		os.Exit(1)
	}

	console.Success("Token stored for profile '%s' (%s)", name, auth.MaskToken(token))
	console.Dim("Run 'htbwriteups --use-stored-token <output_directory>' to use it")
}

func runLogout(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(ui.Options{NoColor: noColor})

	manager, err := auth.NewManager()
	if err != nil {
		console.Error("Failed to initialize credential manager: %v", err)
		os.Exit(1)
	}

	name := profileArg(args)
	if err := manager.Delete(name); err != nil {
		console.Error("Failed to remove token: %v", err)
		os.Exit(1)
	}
	console.Success("Token removed for profile '%s'", name)
}

func runStatus(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(ui.Options{NoColor: noColor})

	manager, err := auth.NewManager()
	if err != nil {
		console.Error("Failed to initialize credential manager: %v", err)
		os.Exit(1)
	}

	list, err := manager.List()
	if err != nil {
		console.Error("Failed to list tokens: %v", err)
		os.Exit(1)
	}

	if len(list) == 0 {
		console.Warning("No stored tokens")
		console.Dim("Run 'htbwriteups auth login' to store one")
		return
	}

	for _, creds := range list {
		masked := auth.SanitizeCredentials(creds)
		console.Label(masked.Profile, fmt.Sprintf("%s (updated %s)",
			masked.Token, masked.LastModified.Format("2006-01-02 15:04")))
	}
}

// readPassword reads a line without echo when stdin is a terminal
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
