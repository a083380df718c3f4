package completion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newUninstallCmd(rootCmd *cobra.Command) *cobra.Command {
	var shellFlag string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove shell completion for " + rootCmd.Name(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			return uninstall(cmd.OutOrStdout(), rootCmd.Name(), shellFlag, home)
		},
	}
	cmd.Flags().StringVarP(&shellFlag, "shell", "s", "", "Shell to uninstall completion from (bash, zsh, fish, powershell). Auto-detected if not specified.")
	return cmd
}

func uninstall(out io.Writer, program, shellFlag, home string) error {
	shell, err := ParseShell(shellFlag)
	if err != nil {
		return fmt.Errorf("%w\nSpecify shell explicitly with --shell flag", err)
	}

	path, err := ScriptPath(shell, program, home)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("completion not installed for %s (expected at %s)", shell, path)
	}

	if shell == Bash {
		if err := removeSourceLine(filepath.Join(home, ".bash_completion"), path); err != nil {
			fmt.Fprintf(out, "Warning: could not disable auto-load: %v\n", err)
		}
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove completion file: %w", err)
	}

	fmt.Fprintf(out, "Removed %s completion from %s\nRestart your shell to complete removal.\n", shell, path)
	return nil
}

// removeSourceLine drops every line of rcFile mentioning path.
func removeSourceLine(rcFile, path string) error {
	content, err := os.ReadFile(rcFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var kept []string
	for _, line := range strings.Split(string(content), "\n") {
		if !strings.Contains(line, path) {
			kept = append(kept, line)
		}
	}
	return os.WriteFile(rcFile, []byte(strings.Join(kept, "\n")), 0644)
}
