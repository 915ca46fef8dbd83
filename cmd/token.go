package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/azauth/internal/cli"
	"github.com/giantswarm/azauth/internal/config"
	"github.com/giantswarm/azauth/internal/formatting"
	"github.com/giantswarm/azauth/pkg/adal"
)

// Token output formats in addition to json and yaml.
const (
	outputToken  = "token"
	outputHeader = "header"
)

// Token flags
var (
	tokenFlags   cli.TokenFlags
	tokenOutput  string
	tokenAsync   bool
	tokenTimeout time.Duration

	refreshToken string
	clientSecret string
	authCode     string
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Acquire an access token",
	Long: `Acquire an access token for a resource and print it.

A cached token is returned while it is valid. A token close to expiry is
refreshed silently, and the sign-in page is only shown when no refresh
token can be used.

Examples:
  azauth token                                   # Token for the configured resource
  azauth token --resource https://graph.windows.net/
  azauth token --prompt always                   # Always show the sign-in page
  azauth token --output header                   # Print "Bearer <token>"
  azauth token silent --user someone@contoso.com # Never show the sign-in page`,
	RunE: runTokenGet,
}

var tokenSilentCmd = &cobra.Command{
	Use:   "silent",
	Short: "Acquire a token from the cache or by refresh only",
	Long: `Acquire a token without any user interaction. Fails with exit code 2
when signing in is required.`,
	Args: cobra.NoArgs,
	RunE: runTokenSilent,
}

var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Redeem a refresh token",
	Long: `Redeem a refresh token for a new access token. The result is cached
under the user the token was issued to when --resource is set.`,
	Args: cobra.NoArgs,
	RunE: runTokenRefresh,
}

var tokenRedeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Redeem an authorization code",
	Long: `Redeem an authorization code obtained outside of azauth, e.g. by a web
application, and cache the resulting token.`,
	Args: cobra.NoArgs,
	RunE: runTokenRedeem,
}

func init() {
	cli.RegisterTokenFlags(tokenCmd, &tokenFlags)
	tokenCmd.PersistentFlags().StringVarP(&tokenOutput, "output", "o", outputToken, "Output format: token, header, json or yaml")
	tokenCmd.PersistentFlags().DurationVar(&tokenTimeout, "timeout", 5*time.Minute, "Give up after this long (0 waits forever)")
	tokenCmd.Flags().BoolVar(&tokenAsync, "async", false, "Acquire in the background and wait for the result")

	tokenRefreshCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token to redeem")
	tokenRefreshCmd.Flags().StringVar(&clientSecret, "client-secret", "", "Secret of a confidential client")
	_ = tokenRefreshCmd.MarkFlagRequired("refresh-token")

	tokenRedeemCmd.Flags().StringVar(&authCode, "code", "", "Authorization code to redeem")
	tokenRedeemCmd.Flags().StringVar(&clientSecret, "client-secret", "", "Secret of a confidential client")
	_ = tokenRedeemCmd.MarkFlagRequired("code")

	tokenCmd.AddCommand(tokenSilentCmd)
	tokenCmd.AddCommand(tokenRefreshCmd)
	tokenCmd.AddCommand(tokenRedeemCmd)
}

// tokenConfig loads the configuration and applies the token flags on top of it.
func tokenConfig() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	tokenFlags.Apply(&cfg)
	return cfg, cfg.Validate()
}

// tokenContext is canceled by an interrupt or when --timeout passes.
func tokenContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	ctx, cancel := cli.WithTimeout(ctx, tokenTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runTokenGet(cmd *cobra.Command, args []string) error {
	cfg, err := tokenConfig()
	if err != nil {
		return err
	}
	prompt, err := tokenFlags.PromptBehavior()
	if err != nil {
		return err
	}
	user, err := tokenFlags.UserIdentifier()
	if err != nil {
		return err
	}

	progress := cli.StartProgress(cmd.ErrOrStderr(), globalFlags.Quiet, "Acquiring token for "+cfg.Resource)
	session, err := cli.NewSession(cfg, cli.SessionOptions{
		Output:       cmd.ErrOrStderr(),
		BeforeSignIn: progress.Pause,
	})
	if err != nil {
		progress.Done(err)
		return err
	}

	ctx, cancel := tokenContext(cmd)
	defer cancel()

	var result *adal.AuthenticationResult
	if tokenAsync {
		result, err = awaitFuture(ctx, session.Auth.AcquireTokenAsync(context.Background(), cfg.Resource, cfg.ClientID, cfg.RedirectURI, prompt, user))
	} else {
		result, err = session.Auth.AcquireToken(ctx, cfg.Resource, cfg.ClientID, cfg.RedirectURI, prompt, user)
	}
	progress.Done(err)
	if err != nil {
		return err
	}
	return writeToken(cmd.OutOrStdout(), result, session.Auth.Authority(), cfg.Resource)
}

// awaitFuture waits for future. When ctx ends first the acquisition is
// canceled and its outcome returned.
func awaitFuture(ctx context.Context, future *adal.Future) (*adal.AuthenticationResult, error) {
	result, err := future.Result(ctx)
	if err != nil && ctx.Err() != nil {
		future.Cancel()
		<-future.Done()
		return future.Result(context.Background())
	}
	return result, err
}

func runTokenSilent(cmd *cobra.Command, args []string) error {
	cfg, err := tokenConfig()
	if err != nil {
		return err
	}
	user, err := tokenFlags.UserIdentifier()
	if err != nil {
		return err
	}

	session, err := cli.NewSession(cfg, cli.SessionOptions{Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	key, err := session.ClientKey()
	if err != nil {
		return err
	}

	ctx, cancel := tokenContext(cmd)
	defer cancel()

	result, err := session.Auth.AcquireTokenSilent(ctx, cfg.Resource, key, user)
	if err != nil {
		return err
	}
	return writeToken(cmd.OutOrStdout(), result, session.Auth.Authority(), cfg.Resource)
}

func runTokenRefresh(cmd *cobra.Command, args []string) error {
	return redeem(cmd, func(ctx context.Context, session *cli.Session, key adal.ClientKey) (*adal.AuthenticationResult, error) {
		return session.Auth.AcquireTokenByRefreshToken(ctx, refreshToken, key, session.Config.Resource)
	})
}

func runTokenRedeem(cmd *cobra.Command, args []string) error {
	return redeem(cmd, func(ctx context.Context, session *cli.Session, key adal.ClientKey) (*adal.AuthenticationResult, error) {
		return session.Auth.AcquireTokenByAuthorizationCode(ctx, authCode, session.Config.RedirectURI, key, session.Config.Resource)
	})
}

// redeem runs a non-interactive grant with the client key selected by --client-id
// and --client-secret.
func redeem(cmd *cobra.Command, grant func(context.Context, *cli.Session, adal.ClientKey) (*adal.AuthenticationResult, error)) error {
	cfg, err := tokenConfig()
	if err != nil {
		return err
	}
	session, err := cli.NewSession(cfg, cli.SessionOptions{Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	var key adal.ClientKey
	if clientSecret != "" {
		key, err = adal.NewConfidentialClientKey(cfg.ClientID, clientSecret)
	} else {
		key, err = session.ClientKey()
	}
	if err != nil {
		return err
	}

	ctx, cancel := tokenContext(cmd)
	defer cancel()

	result, err := grant(ctx, session, key)
	if err != nil {
		return err
	}
	return writeToken(cmd.OutOrStdout(), result, session.Auth.Authority(), cfg.Resource)
}

// writeToken prints result in the --output format.
func writeToken(w io.Writer, result *adal.AuthenticationResult, authority, resource string) error {
	switch tokenOutput {
	case outputToken, "":
		_, err := fmt.Fprintln(w, result.AccessToken)
		return err
	case outputHeader:
		_, err := fmt.Fprintln(w, result.CreateAuthorizationHeader())
		return err
	}

	format, err := formatting.ParseOutputFormat(tokenOutput)
	if err != nil || format == formatting.FormatTable {
		return fmt.Errorf("unknown output format %q (use token, header, json or yaml)", tokenOutput)
	}
	return formatting.NewFormatter(formatting.Options{
		Format: format,
		Quiet:  globalFlags.Quiet,
		Output: w,
	}).FormatData(formatting.NewTokenOutput(result, authority, resource))
}
