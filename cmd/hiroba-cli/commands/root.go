package commands

import (
	"context"
	"fmt"
	"os"

	"hiroba-client/lib/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "hiroba-cli",
	Short: "hiroba-cli logs into donderhiroba and prints the records of a card.",
	Long: `hiroba-cli logs into donderhiroba and prints the records of a card.

Credentials are read from hiroba.json5 (searched for from the working directory
upwards, hiroba.local.json5 overrides it), then from HIROBA_* environment
variables, then from flags.

Examples:
  # obtain a token once and reuse it
  hiroba-cli login --card 123456789012
  HIROBA_TOKEN=... hiroba-cli clear --genre anime -o yaml

  # keep a daily history of clears
  hiroba-cli export --db records.db`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(viper.GetBool("debug"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "enable debug logging")
	flags.StringP("output", "o", "table", "output format: table, json or yaml")
	flags.String("email", "", "bandai namco id email")
	flags.String("password", "", "bandai namco id password")
	flags.String("token", "", "session token from a previous login, skips the credential exchange")
	flags.String("card", "", "taiko number of the card to make active")
	flags.String("dump-dir", "", "write every http exchange into this directory")
	flags.Float64("rps", 2, "maximum requests per second, 0 disables pacing")
	flags.Bool("cloudflare", false, "use a browser-like tls fingerprint")

	bindings := map[string]string{
		"debug":               "debug",
		"output":              "output",
		"email":               "email",
		"password":            "password",
		"token":               "token",
		"taiko_number":        "card",
		"dump_dir":            "dump-dir",
		"requests_per_second": "rps",
		"cloudflare_bypass":   "cloudflare",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	viper.SetEnvPrefix("HIROBA")
	viper.AutomaticEnv()
}

// ExecuteContext runs the root command and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
