package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [user]",
	Short: "Log in to the mod server and remember the credentials",
	Long: `Log in to the mod server. The password is read from the terminal without
echo, or from the first line of stdin when stdin is not a terminal.

Credentials are saved per server and reused by the other commands.
ACSYNC_LOGIN and ACSYNC_PASSWORD, when both set, take precedence.

Examples:
  acsync login
  acsync login driver
  echo "$PASSWORD" | acsync login driver`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved credentials for the mod server",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	service, err := initService(true)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	user := ""
	if len(args) > 0 {
		user = args[0]
	} else {
		saved, _ := service.SavedLogin()
		user, err = promptLine(in, out, "Login", saved)
		if err != nil {
			return err
		}
	}
	if user == "" {
		return fmt.Errorf("login cannot be empty")
	}

	password, err := readPassword(in, out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(out, "Logging in... ")
	if err := service.Login(cmd.Context(), user, password); err != nil {
		fmt.Fprintln(out, "failed")
		return err
	}
	fmt.Fprintln(out, "done")

	fmt.Fprintf(out, "Logged in to %s as %s.\n", service.Server(), user)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	service, err := initService(true)
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer closeService(service)

	if err := service.Logout(); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed saved credentials for %s.\n", service.Server())
	return nil
}

// promptLine asks for a value, offering def when the answer is empty
func promptLine(in *bufio.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// readPassword prompts for and reads a password from the terminal
func readPassword(in *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")

	// Try to read securely (hidden input)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out) // Add newline after hidden input
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
