package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

// completionTarget is where --install writes the script of a shell, relative
// to the home directory, and what to tell the user afterwards.
type completionTarget struct {
	path  []string
	hints []string
}

var completionTargets = map[string]completionTarget{
	"bash": {
		path:  []string{".local", "share", "bash-completion", "completions", "kar"},
		hints: []string{"Restart your shell or run: source %s"},
	},
	"zsh": {
		path: []string{".local", "share", "zsh", "site-functions", "_kar"},
		hints: []string{
			"Ensure the directory of %s is in your fpath. Add to ~/.zshrc if needed:",
			"  autoload -Uz compinit && compinit",
		},
	},
	"fish": {
		path:  []string{".config", "fish", "completions", "kar.fish"},
		hints: []string{"Completions for %s are loaded by new fish sessions automatically."},
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for kar",
	Long: `Set up shell tab-completions for kar commands, flags, and arguments.

Supported shells: bash, zsh, fish, powershell

Quick install (adds completions to your shell profile):

  kar completion bash --install
  kar completion zsh --install
  kar completion fish --install

Or print the completion script to stdout (for manual setup):

  eval "$(kar completion bash)"
  kar completion fish | source
  kar completion powershell | Out-String | Invoke-Expression`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your shell profile")

	// Remove Cobra's default completion command and add ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

// fixedCompletions completes a flag from a fixed set of values.
func fixedCompletions(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell := args[0]
	if shell != "powershell" {
		if _, ok := completionTargets[shell]; !ok {
			return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", shell)
		}
	}

	if completionInstall {
		return installCompletion(shell)
	}
	return generateCompletion(cmd.OutOrStdout(), shell)
}

func generateCompletion(w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(w, true)
	case "zsh":
		return rootCmd.GenZshCompletion(w)
	case "fish":
		return rootCmd.GenFishCompletion(w, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(w)
	}
	return fmt.Errorf("unsupported shell %q", shell)
}

func installCompletion(shell string) error {
	target, ok := completionTargets[shell]
	if !ok {
		return fmt.Errorf("automatic install is not supported for %s; run 'kar completion %s' and add the output to your profile", shell, shell)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}
	path := filepath.Join(append([]string{home}, target.path...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating completion directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating completion file %s: %w", path, err)
	}
	writeErr := generateCompletion(f, shell)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing completion file %s: %w", path, closeErr)
	}

	fmt.Printf("%s completions installed to %s\n", shell, path)
	for i, h := range target.hints {
		if i == 0 {
			h = fmt.Sprintf(h, path)
		}
		fmt.Println(h)
	}
	return nil
}
