// Package cmd provides the liquidforge command-line interface.
//
// Configuration sources, highest priority first:
//  1. Command-line flags
//  2. LIQUIDFORGE_* environment variables (LIQUIDFORGE_SERVER_PORT, ...)
//  3. Config file (.liquidforge.yml, or --config / LIQUIDFORGE_CONFIG_FILE)
//  4. Built-in defaults
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fasttify/liquidforge/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "liquidforge",
	Short: "Multi-tenant Liquid storefront rendering engine",
	Long: `liquidforge renders storefront pages for multiple stores from
Liquid themes held in object storage: it resolves the tenant from the
request domain, analyzes the page's templates for the data they need,
loads that data concurrently, and renders the page with SEO metadata
and cache headers.

Quick start:
  liquidforge serve                 Start the rendering server
  liquidforge render <domain> <path>  Render one page to stdout`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() { config.Init(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default .liquidforge.yml, or LIQUIDFORGE_CONFIG_FILE)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
