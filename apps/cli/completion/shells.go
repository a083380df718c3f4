package completion

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Shell is a shell the completion scripts can be generated for
type Shell string

const (
	Bash       Shell = "bash"
	Zsh        Shell = "zsh"
	Fish       Shell = "fish"
	Powershell Shell = "powershell"
)

// ParseShell resolves a --shell value, falling back to the login shell when empty
func ParseShell(name string) (Shell, error) {
	if name == "" {
		return DetectShell()
	}
	switch s := Shell(name); s {
	case Bash, Zsh, Fish, Powershell:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported shell: %s", name)
	}
}

// DetectShell reads the login shell from $SHELL
func DetectShell() (Shell, error) {
	shellPath := os.Getenv("SHELL")
	if shellPath == "" {
		if runtime.GOOS == "windows" {
			return Powershell, nil
		}
		return "", fmt.Errorf("unable to detect shell: SHELL environment variable not set")
	}

	name := filepath.Base(shellPath)
	switch Shell(name) {
	case Bash, Zsh, Fish:
		return Shell(name), nil
	default:
		return "", fmt.Errorf("unsupported shell: %s", name)
	}
}

// ScriptPath returns where the completion script of program lives for shell under home
func ScriptPath(shell Shell, program, home string) (string, error) {
	switch shell {
	case Bash:
		return filepath.Join(home, ".bash_completion.d", program), nil
	case Zsh:
		return filepath.Join(home, ".zsh", "completion", "_"+program), nil
	case Fish:
		return filepath.Join(home, ".config", "fish", "completions", program+".fish"), nil
	case Powershell:
		if runtime.GOOS != "windows" {
			return "", fmt.Errorf("powershell not supported on %s", runtime.GOOS)
		}
		return filepath.Join(home, "Documents", "WindowsPowerShell", "Scripts", program+".ps1"), nil
	default:
		return "", fmt.Errorf("unsupported shell: %s", shell)
	}
}
