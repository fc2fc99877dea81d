package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fasttify/liquidforge/internal/config"
	"github.com/fasttify/liquidforge/internal/server"
	"github.com/fasttify/liquidforge/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the storefront rendering server",
	Long: `Start the HTTP server that renders storefront pages. The tenant is
resolved from the Host header, so point store domains (or entries in
/etc/hosts during development) at this process.

In development with storage.local_theme_dir set, theme files are
watched and connected browsers reload on change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (overrides config)")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.cleanup()

	var livereload *server.LiveReload
	if cfg.Development.Enabled && cfg.Development.LiveReload && cfg.Storage.LocalThemeDir != "" {
		livereload = server.NewLiveReload(st.log)
		tw, err := watcher.New(cfg.Storage.LocalThemeDir, cfg.Development.StoreID, st.themes, st.log)
		if err != nil {
			return err
		}
		go tw.Run(ctx)
		go livereload.Watch(ctx, tw.Subscribe())
	}

	srv := server.New(server.Options{
		Addr:       cfg.Server.Addr(),
		Renderer:   st.renderer,
		Metrics:    st.metrics,
		LiveReload: livereload,
		Logger:     st.log,
	})
	return srv.Start(ctx)
}
