package commands

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/xbrlus/xbrlapi/internal/config"
	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// configView is the printable configuration with secrets masked.
type configView struct {
	BaseURL            string `json:"base_url"             yaml:"base_url"`
	ClientID           string `json:"client_id"            yaml:"client_id"`
	ClientSecret       string `json:"client_secret"        yaml:"client_secret"`
	Platform           string `json:"platform"             yaml:"platform"`
	Username           string `json:"username"             yaml:"username"`
	Password           string `json:"password"             yaml:"password"`
	HTTPTimeout        string `json:"http_timeout"         yaml:"http_timeout"`
	RetryMax           int    `json:"retry_max"            yaml:"retry_max"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	UserAgent          string `json:"user_agent"           yaml:"user_agent"`
	Debug              bool   `json:"debug"                yaml:"debug"`
	ConfigFile         string `json:"config_file"          yaml:"config_file"`
	TokenStore         string `json:"token_store"          yaml:"token_store"`
	AccessToken        string `json:"access_token"         yaml:"access_token"`
}

func newConfigCommand(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand(state))

	return cmd
}

func newConfigShowCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Long:  "Display the configuration resolved from file, .env and environment, with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := state.output()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			provider := state.provider(config.WithoutPlatformSuffix())

			resolved, err := provider.Resolve(ctx)
			if err != nil {
				return err
			}

			view := newConfigView(resolved, provider.ConfigFileUsed())
			view.TokenStore = state.viper.GetString(flagTokenStore)

			store, release, err := state.tokenStore(ctx)
			if err != nil {
				return err
			}
			defer release()

			creds, err := store.Get(ctx)
			if err != nil {
				return fmt.Errorf("reading stored tokens: %w", err)
			}

			view.AccessToken = "none"
			if creds.Complete() {
				view.AccessToken = truncateToken(creds.AccessToken)
			}

			out := cmd.OutOrStdout()

			switch format {
			case constants.FormatJSON:
				return writeJSON(out, view)
			case constants.FormatYAML:
				return writeYAML(out, view)
			default:
				return displayConfigTable(out, view)
			}
		},
	}
}

func newConfigView(cfg *xbrl.Config, configFile string) *configView {
	view := &configView{
		BaseURL:            cfg.BaseURL,
		ClientID:           cfg.ClientID,
		ClientSecret:       mask(cfg.ClientSecret),
		Platform:           cfg.Platform,
		Username:           cfg.Username,
		Password:           mask(cfg.Password),
		RetryMax:           cfg.RetryMax,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		UserAgent:          cfg.UserAgent,
		Debug:              cfg.Debug,
		ConfigFile:         configFile,
	}

	if cfg.HTTPTimeout > 0 {
		view.HTTPTimeout = cfg.HTTPTimeout.String()
	}

	return view
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return constants.MaskedSecret
}

func displayConfigTable(w io.Writer, view *configView) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	_ = table.Append("Base URL", view.BaseURL)
	_ = table.Append("Client ID", view.ClientID)
	_ = table.Append("Client Secret", view.ClientSecret)
	_ = table.Append("Platform", view.Platform)
	_ = table.Append("Username", view.Username)
	_ = table.Append("Password", view.Password)
	_ = table.Append("HTTP Timeout", view.HTTPTimeout)
	_ = table.Append("Retry Max", cast.ToString(view.RetryMax))
	_ = table.Append("Insecure Skip Verify", cast.ToString(view.InsecureSkipVerify))
	_ = table.Append("User Agent", view.UserAgent)
	_ = table.Append("Debug", cast.ToString(view.Debug))
	_ = table.Append("Config File", view.ConfigFile)
	_ = table.Append("Token Store", view.TokenStore)
	_ = table.Append("Access Token", view.AccessToken)

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
