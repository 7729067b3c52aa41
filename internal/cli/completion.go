package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/libresolve/pkg/repository"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for libresolve.

To load completions:

Bash:
  $ source <(libresolve completion bash)

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ libresolve completion zsh > "${fpath[1]}/_libresolve"

Fish:
  $ libresolve completion fish | source

PowerShell:
  PS> libresolve completion powershell | Out-String | Invoke-Expression

The "resolve" command completes coordinates already present in the cache.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeCachedCoordinates offers the coordinates of cached artifacts
// that start with the typed prefix.
func (c *CLI) completeCachedCoordinates(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if c.cfg == nil {
		if err := c.loadConfig(); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
	}
	local, err := repository.NewLocal(c.cfg.CacheDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	entries, err := local.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		if e.Coordinate.Ext() == "pom" {
			continue
		}
		s := e.Coordinate.String()
		if seen[s] || !strings.HasPrefix(s, toComplete) {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
