package completion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// NewCmd returns the completion command with install and uninstall subcommands.
// The scripts are generated from rootCmd and named after it.
func NewCmd(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Manage shell completion",
	}
	cmd.AddCommand(newInstallCmd(rootCmd), newUninstallCmd(rootCmd))

	// Replaces cobra's generated completion command.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

func newInstallCmd(rootCmd *cobra.Command) *cobra.Command {
	var shellFlag string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install shell completion for " + rootCmd.Name(),
		Long: `Writes a completion script for the detected (or given) shell.

Supports bash, zsh, fish and powershell. Bash scripts are also sourced from
~/.bash_completion so new terminals pick them up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			return install(cmd.OutOrStdout(), rootCmd, shellFlag, home)
		},
	}
	cmd.Flags().StringVarP(&shellFlag, "shell", "s", "", "Shell to install completion for (bash, zsh, fish, powershell). Auto-detected if not specified.")
	return cmd
}

func install(out io.Writer, rootCmd *cobra.Command, shellFlag, home string) error {
	shell, err := ParseShell(shellFlag)
	if err != nil {
		return fmt.Errorf("%w\nSpecify shell explicitly with --shell flag", err)
	}

	path, err := ScriptPath(shell, rootCmd.Name(), home)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create completion directory: %w", err)
	}
	if err := writeScript(rootCmd, shell, path); err != nil {
		return err
	}

	if shell == Bash {
		if err := addSourceLine(filepath.Join(home, ".bash_completion"), path); err != nil {
			fmt.Fprintf(out, "Warning: could not enable auto-load: %v\n", err)
		}
	}

	fmt.Fprintf(out, "Installed %s completion at %s\n", shell, path)
	switch shell {
	case Zsh:
		fmt.Fprintf(out, "Add this to ~/.zshrc and restart the shell:\n  fpath=(%s $fpath)\n  autoload -Uz compinit && compinit\n", filepath.Dir(path))
	case Fish:
		fmt.Fprintln(out, "Run 'exec fish' to use it in the current session.")
	case Powershell:
		fmt.Fprintf(out, "Add this to your PowerShell profile:\n  . %s\n", path)
	default:
		fmt.Fprintln(out, "Open a new terminal to use it.")
	}
	return nil
}

func writeScript(rootCmd *cobra.Command, shell Shell, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create completion file: %w", err)
	}
	defer f.Close()

	switch shell {
	case Bash:
		err = rootCmd.GenBashCompletionV2(f, true)
	case Zsh:
		err = rootCmd.GenZshCompletion(f)
	case Fish:
		err = rootCmd.GenFishCompletion(f, true)
	case Powershell:
		err = rootCmd.GenPowerShellCompletionWithDesc(f)
	default:
		err = fmt.Errorf("unsupported shell: %s", shell)
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s completion: %w", shell, err)
	}
	return nil
}

// addSourceLine appends "source path" to rcFile unless a line already mentions path.
func addSourceLine(rcFile, path string) error {
	content, err := os.ReadFile(rcFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(content), path) {
		return nil
	}

	var b strings.Builder
	b.Write(content)
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		b.WriteString("\n")
	}
	b.WriteString("source " + path + "\n")
	return os.WriteFile(rcFile, []byte(b.String()), 0644)
}
