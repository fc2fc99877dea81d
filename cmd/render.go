package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fasttify/liquidforge/internal/config"
	"github.com/fasttify/liquidforge/internal/renderer"
)

var (
	renderToken    string
	renderCartID   string
	renderMetaOnly bool
)

var renderCmd = &cobra.Command{
	Use:   "render <domain> <path>",
	Short: "Render one storefront page to stdout",
	Long: `Render a single page exactly as the server would and print the HTML,
for debugging themes and data wiring without a browser.

Examples:
  liquidforge render shop.example.com /
  liquidforge render shop.example.com /products/red-shirt
  liquidforge render shop.example.com /collections/all --token eyJv...
  liquidforge render shop.example.com / --metadata`,
	Args: cobra.ExactArgs(2),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderToken, "token", "", "pagination continuation token")
	renderCmd.Flags().StringVar(&renderCartID, "cart", "", "cart session id")
	renderCmd.Flags().BoolVar(&renderMetaOnly, "metadata", false, "print SEO metadata as JSON instead of HTML")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := buildStack(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.cleanup()

	result, err := st.renderer.Render(cmd.Context(), args[0], args[1], renderer.RequestOptions{
		Token:  renderToken,
		CartID: renderCartID,
	})
	if err != nil {
		return err
	}

	if renderMetaOnly {
		out, err := json.MarshalIndent(struct {
			Metadata renderer.Metadata `json:"metadata"`
			CacheKey string            `json:"cacheKey"`
			CacheTTL string            `json:"cacheTTL"`
		}{result.Metadata, result.CacheKey, result.CacheTTL.String()}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.HTML)
	return nil
}
