package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/azauth/internal/config"
	"github.com/giantswarm/azauth/pkg/adal"
)

func TestRegisterCommonFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var flags CommandFlags
	RegisterCommonFlags(cmd, &flags)

	require.NoError(t, cmd.ParseFlags([]string{"--debug", "-q", "--config-path", "/tmp/azauth"}))
	assert.True(t, flags.Debug)
	assert.True(t, flags.Quiet)
	assert.Equal(t, "/tmp/azauth", flags.ConfigPath)
}

func TestTokenFlagsApply(t *testing.T) {
	cmd := &cobra.Command{Use: "token"}
	var flags TokenFlags
	RegisterTokenFlags(cmd, &flags)

	require.NoError(t, cmd.ParseFlags([]string{
		"--authority", "https://login.microsoftonline.com/contoso.com",
		"--resource", "https://graph.windows.net/",
		"--web-ui", "prompt",
		"--no-validate",
	}))

	cfg := config.GetDefaultConfig()
	flags.Apply(&cfg)

	assert.Equal(t, "https://login.microsoftonline.com/contoso.com", cfg.Authority)
	assert.Equal(t, "https://graph.windows.net/", cfg.Resource)
	assert.Equal(t, config.WebUIPrompt, cfg.WebUI)
	assert.False(t, cfg.ValidateAuthority)
	assert.Equal(t, config.DefaultClientID, cfg.ClientID, "unset flags keep the configured value")
}

func TestTokenFlagsUserIdentifier(t *testing.T) {
	flags := TokenFlags{UserType: "optional"}
	user, err := flags.UserIdentifier()
	require.NoError(t, err)
	assert.Equal(t, adal.AnyUser(), user)

	flags.User = "user@contoso.com"
	flags.UserType = "required"
	user, err = flags.UserIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "user@contoso.com", user.ID())

	flags.UserType = "bogus"
	_, err = flags.UserIdentifier()
	assert.Error(t, err)
}

func TestTokenFlagsPromptBehavior(t *testing.T) {
	flags := TokenFlags{Prompt: "never"}
	p, err := flags.PromptBehavior()
	require.NoError(t, err)
	assert.Equal(t, adal.PromptNever, p)

	flags.Prompt = "sometimes"
	_, err = flags.PromptBehavior()
	assert.ErrorContains(t, err, "invalid --prompt")
}
