// File: cmd/resolve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/browser"
	"github.com/Bri445/app-link-gen-res/internal/config"
	"github.com/Bri445/app-link-gen-res/internal/observability"
	"github.com/Bri445/app-link-gen-res/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <start-url>",
	Short: "Walk an interstitial link chain and print the final destination URL.",
	Long: `Resolve opens the start URL in a browser session, waits out any visible
countdown gate, clicks Verify/Continue style controls, follows the resulting
redirects and tests each page for a terminal "get link" target. It prints
every step it takes; the full log is shown even when no final link is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Bool("headless", false, "run the browser without a visible window")
	resolveCmd.Flags().Int("max-steps", 0, "override the resolution step budget")
	resolveCmd.Flags().Duration("timeout", 0, "override the page load timeout")
	_ = viper.BindPFlag("browser.headless", resolveCmd.Flags().Lookup("headless"))
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	startURL := args[0]
	logger := observability.GetLogger()
	cfg := config.Get()

	if maxSteps, err := cmd.Flags().GetInt("max-steps"); err == nil && maxSteps > 0 {
		cfg.Resolver.MaxSteps = maxSteps
	}
	if timeout, err := cmd.Flags().GetDuration("timeout"); err == nil && timeout > 0 {
		cfg.Resolver.PageLoadTimeout = timeout
	}

	manager, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to start browser manager: %w", err)
	}
	defer func() {
		if err := manager.Shutdown(ctx); err != nil {
			logger.Warn("Browser manager shutdown reported an error", zap.Error(err))
		}
	}()

	service := resolver.NewService(manager, cfg.Resolver, logger)
	run := service.Resolve(ctx, startURL)

	// Stream the audit trail while the run progresses.
	for entry := range run.Logs {
		fmt.Fprintln(cmd.OutOrStdout(), entry.Message)
	}

	result := <-run.Done
	switch result.Outcome {
	case resolver.OutcomeFound:
		fmt.Fprintf(cmd.OutOrStdout(), "\nFinal link: %s\n", result.FinalURL)
		return nil
	case resolver.OutcomeFatal:
		return fmt.Errorf("resolution failed (%d steps): %w", result.Steps, result.Err)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "\nCould not resolve a final link (%s after %d steps).\n",
			result.Outcome, result.Steps)
		return nil
	}
}
