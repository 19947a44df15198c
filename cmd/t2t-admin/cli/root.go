package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/text2trait/t2t/internal/config"
)

var (
	cfgFile    string
	appVersion string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "t2t-admin",
		Short: "Administrator accounts and sessions for Text2Trait",
		Long: `t2t-admin manages the Text2Trait administrator trust boundary.

It provisions admin accounts out of band, resets and disables them, revokes
sessions, and serves the admin login API the Text2Trait front end talks to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./t2t.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.t2t)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("t2t")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.t2t")
	}

	setDefaults()

	viper.SetEnvPrefix("T2T")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Short names the deployment scripts already export.
	viper.BindEnv("auth.skip_auth", "T2T_SKIP_AUTH", "T2T_AUTH_SKIP_AUTH")
	viper.BindEnv("store.data_dir", "T2T_DATA_DIR", "T2T_STORE_DATA_DIR")

	viper.ReadInConfig() // Ignore error - config file is optional
}

func setDefaults() {
	d := config.DefaultYAMLConfig()
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	viper.SetDefault("server.cors.origins", d.Server.CORS.Origins)
	viper.SetDefault("server.base_url", "")
	viper.SetDefault("store.driver", d.Store.Driver)
	viper.SetDefault("store.dsn", "")
	viper.SetDefault("store.data_dir", "")
	viper.SetDefault("auth.session_ttl", d.Auth.SessionTTL)
	viper.SetDefault("auth.bcrypt_cost", d.Auth.BcryptCost)
	viper.SetDefault("auth.password_length", d.Auth.PasswordLength)
	viper.SetDefault("auth.revoke_sessions_on_reset", false)
	viper.SetDefault("auth.skip_auth", false)
	viper.SetDefault("log.level", d.Logging.Level)
	viper.SetDefault("log.format", d.Logging.Format)
}
