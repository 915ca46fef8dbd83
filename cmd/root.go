package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/azauth/internal/cli"
	"github.com/giantswarm/azauth/internal/config"
	"github.com/giantswarm/azauth/pkg/logging"
)

// globalFlags holds the flags shared by every command.
var globalFlags cli.CommandFlags

// rootCmd represents the base command for the azauth application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "azauth",
	Short: "Acquire Azure AD tokens from the command line",
	Long: `azauth signs you in to Azure Active Directory and prints access tokens
for other tools to use. Tokens are kept in a local cache shared by every
azauth process and refreshed silently until a new sign-in is needed.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logging.LevelWarn
		if globalFlags.Debug {
			level = logging.LevelDebug
		} else if globalFlags.Quiet {
			level = logging.LevelError
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "azauth version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		if hint := cli.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(cli.ExitCode(err))
	}
}

// loadConfig reads the configuration from --config-path.
func loadConfig() (config.Config, error) {
	return config.LoadConfig(globalFlags.ConfigPath)
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &globalFlags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(cacheCmd)
}
