package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/config"
)

var (
	cfg *config.Config

	configPath    string
	logLevel      string
	storeOverride string
)

var rootCmd = &cobra.Command{
	Use:   "brand-media",
	Short: "Collect a brand's public media into one zip archive",
	Long: `brand-media starts the hosted scraper jobs for a brand (Instagram, Facebook,
TikTok, Google Maps, website, keyword search), downloads every image and video
they report, merges archives the jobs already stored, and saves the result
document, zip archive and xlsx manifest to the configured store.

Settings come from ./config.yaml (or --config) and BRANDMEDIA_* environment
variables, e.g. BRANDMEDIA_APIFY_TOKEN.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyOverrides(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		zap.L().Debug("brand-media: config loaded",
			zap.String("command", cmd.Name()),
			zap.String("config", configPath),
			zap.String("store_driver", cfg.Store.Driver),
			zap.Bool("apify_token_set", cfg.Apify.Token != ""),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.StringVar(&storeOverride, "store", "", "override store.driver (sqlite, postgres, ftp, apify)")
}

// applyOverrides copies explicitly set root flags over loaded settings.
func applyOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("store") {
		c.Store.Driver = storeOverride
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
