// Package commands implements the xbrl command line interface.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xbrlus/xbrlapi/internal/auth"
	"github.com/xbrlus/xbrlapi/internal/config"
	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
	"github.com/xbrlus/xbrlapi/pkg/xbrlclient"
)

// Flag names shared by every command.
const (
	flagConfig           = "config"
	flagOutput           = "output"
	flagVerbose          = "verbose"
	flagBaseURL          = "base-url"
	flagTokenStore       = "token-store"
	flagTokenFile        = "token-file"
	flagNATSURL          = "nats-url"
	flagNATSBucket       = "nats-bucket"
	flagNATSKey          = "nats-key"
	flagNoPlatformSuffix = "no-platform-suffix"

	outputTable = "table"
)

// rootState is shared by the commands of one root command.
type rootState struct {
	viper  *viper.Viper
	logger *zapLogger
}

// NewRootCommand builds the xbrl command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	state := &rootState{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "xbrl",
		Short: "XBRL US API CLI",
		Long: `A command-line interface for the XBRL US API.

Configuration is read from $HOME/.xbrlus/config.yml, a .env file in the
current directory and XBRLUS_* environment variables. Tokens are kept in
$HOME/.xbrlus/tokens.yml between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if state.logger != nil {
				state.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP(flagConfig, "c", "", "config file (default is $HOME/.xbrlus/config.yml)")
	flags.StringP(flagOutput, "o", outputTable, "output format (table, json, yaml)")
	flags.BoolP(flagVerbose, "v", false, "verbose output")
	flags.String(flagBaseURL, "", "API base URL")
	flags.String(flagTokenStore, string(auth.StoreTypeFile), "token store (memory, file, nats)")
	flags.String(flagTokenFile, "", "token file (default is $HOME/.xbrlus/tokens.yml)")
	flags.String(flagNATSURL, "", "NATS server URL for the nats token store")
	flags.String(flagNATSBucket, constants.DefaultNATSBucket, "JetStream key/value bucket for the nats token store")
	flags.String(flagNATSKey, "default", "key of the token pair in the nats bucket")
	flags.Bool(flagNoPlatformSuffix, false, "use the configured platform without a random suffix")

	_ = state.viper.BindPFlags(flags)
	_ = state.viper.BindPFlag(config.KeyBaseURL, flags.Lookup(flagBaseURL))

	state.viper.SetEnvPrefix(constants.EnvPrefix)
	state.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	state.viper.AutomaticEnv()

	cmd.AddCommand(newCallCommand(state))
	cmd.AddCommand(newLoginCommand(state))
	cmd.AddCommand(newLogoutCommand(state))
	cmd.AddCommand(newConfigCommand(state))
	cmd.AddCommand(newVersionCommand(state, version, commit, date))

	return cmd
}

// output returns the validated output format.
func (s *rootState) output() (string, error) {
	format := strings.ToLower(s.viper.GetString(flagOutput))

	switch format {
	case outputTable, constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s (use table, json or yaml)", constants.ErrInvalidOutputFormat, format)
	}
}

func (s *rootState) getLogger() (*zapLogger, error) {
	if s.logger != nil {
		return s.logger, nil
	}

	logger, err := newLogger(s.viper.GetBool(flagVerbose))
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	s.logger = logger

	return logger, nil
}

// provider builds a config provider over the shared viper instance.
func (s *rootState) provider(extra ...config.ViperOption) *config.ViperProvider {
	opts := []config.ViperOption{config.WithViper(s.viper)}

	if path := s.viper.GetString(flagConfig); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	if s.viper.GetBool(flagNoPlatformSuffix) {
		opts = append(opts, config.WithoutPlatformSuffix())
	}

	return config.NewViperProvider(append(opts, extra...)...)
}

// tokenStore opens the selected token store. The returned function releases
// it.
func (s *rootState) tokenStore(ctx context.Context) (xbrl.TokenStore, func(), error) {
	storeConfig := &auth.StoreConfig{
		Type:     auth.StoreType(strings.ToLower(s.viper.GetString(flagTokenStore))),
		FilePath: s.viper.GetString(flagTokenFile),
	}

	if storeConfig.Type == auth.StoreTypeNATS {
		storeConfig.NATS = &auth.NATSConfig{
			URL:    s.viper.GetString(flagNATSURL),
			Bucket: s.viper.GetString(flagNATSBucket),
			Key:    s.viper.GetString(flagNATSKey),
		}
	}

	store, err := xbrlclient.NewTokenStore(ctx, storeConfig)
	if err != nil {
		return nil, nil, err
	}

	release := func() {}
	if closer, ok := store.(interface{ Close() }); ok {
		release = closer.Close
	}

	return store, release, nil
}

// newClient resolves the configuration and returns a logged-in client.
func (s *rootState) newClient(ctx context.Context) (xbrl.Client, func(), error) {
	logger, err := s.getLogger()
	if err != nil {
		return nil, nil, err
	}

	store, release, err := s.tokenStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	cli, err := xbrlclient.New(ctx, s.provider(),
		xbrlclient.WithTokenStore(store),
		xbrlclient.WithLogger(logger),
		xbrlclient.WithErrorHandler(xbrl.ErrorHandlerFunc(func(_ context.Context, err error) {
			logger.Debug("Request failed", map[string]interface{}{"error": err.Error()})
		})),
	)
	if err != nil {
		release()

		return nil, nil, err
	}

	return cli, release, nil
}
