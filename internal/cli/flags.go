package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/azauth/internal/config"
	"github.com/giantswarm/azauth/pkg/adal"
)

// CommandFlags holds the global flag values of every azauth command.
type CommandFlags struct {
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
	// Debug enables debug logging, including the acquisition state machine
	Debug bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
}

// RegisterCommonFlags registers the global flags on the root command.
//
// The registered flags are:
//   - --config-path: Configuration directory (default ~/.config/azauth)
//   - --debug: Enable debug logging
//   - --quiet/-q: Suppress non-essential output
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	defaultPath, err := config.DefaultConfigPath()
	if err != nil {
		defaultPath = ""
	}
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", defaultPath, "Configuration directory")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
}

// TokenFlags holds the flags of the token commands. Empty values fall back to configuration.
type TokenFlags struct {
	Authority   string
	ClientID    string
	Resource    string
	RedirectURI string
	Prompt      string
	User        string
	UserType    string
	WebUI       string
	NoValidate  bool
}

// RegisterTokenFlags registers the flags selecting what token to acquire.
func RegisterTokenFlags(cmd *cobra.Command, flags *TokenFlags) {
	cmd.PersistentFlags().StringVar(&flags.Authority, "authority", "", "Authority URL (env: AZAUTH_AUTHORITY)")
	cmd.PersistentFlags().StringVar(&flags.ClientID, "client-id", "", "Client application id (env: AZAUTH_CLIENT_ID)")
	cmd.PersistentFlags().StringVar(&flags.Resource, "resource", "", "Resource to acquire a token for (env: AZAUTH_RESOURCE)")
	cmd.PersistentFlags().StringVar(&flags.RedirectURI, "redirect-uri", "", "Redirect URI registered for the client (env: AZAUTH_REDIRECT_URI)")
	cmd.PersistentFlags().StringVar(&flags.User, "user", "", "User to acquire the token for")
	cmd.PersistentFlags().StringVar(&flags.UserType, "user-type", "optional", "How --user is matched: unique, optional or required")
	cmd.PersistentFlags().BoolVar(&flags.NoValidate, "no-validate", false, "Skip authority validation")
	cmd.Flags().StringVar(&flags.Prompt, "prompt", "auto", "Prompt behavior: auto, always, never or refresh_session")
	cmd.Flags().StringVar(&flags.WebUI, "web-ui", "", "Sign-in surface: auto, loopback or prompt (env: AZAUTH_WEB_UI)")
}

// Apply overrides cfg with the flags that were set.
func (f *TokenFlags) Apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Authority, f.Authority)
	set(&cfg.ClientID, f.ClientID)
	set(&cfg.Resource, f.Resource)
	set(&cfg.RedirectURI, f.RedirectURI)
	set(&cfg.WebUI, f.WebUI)
	if f.NoValidate {
		cfg.ValidateAuthority = false
	}
}

// UserIdentifier converts --user and --user-type.
func (f *TokenFlags) UserIdentifier() (adal.UserIdentifier, error) {
	if f.User == "" {
		return adal.AnyUser(), nil
	}
	typ, err := adal.ParseUserIdentifierType(f.UserType)
	if err != nil {
		return adal.UserIdentifier{}, err
	}
	return adal.NewUserIdentifier(f.User, typ)
}

// PromptBehavior converts --prompt.
func (f *TokenFlags) PromptBehavior() (adal.PromptBehavior, error) {
	p, err := adal.ParsePromptBehavior(f.Prompt)
	if err != nil {
		return adal.PromptAuto, fmt.Errorf("invalid --prompt: %w", err)
	}
	return p, nil
}
