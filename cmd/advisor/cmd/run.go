package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the advisor loop",
	Long: `Run the periodic advisor cycle: gate on the market clock, classify
the VIX regime, evaluate in-window strategies against correlation and
sizing policy, and paper-trade accepted recommendations. Optionally
serves the JSON status API alongside.

Example:
  advisor run --config config.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer app.close()

	app.logger.WithFields(logrus.Fields{
		"mode":     app.cfg.Environment.Mode,
		"provider": app.cfg.Broker.Provider,
		"interval": app.cfg.GetCheckInterval().String(),
	}).Info("advisor starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if app.api != nil {
		group.Go(func() error {
			if err := app.api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.api.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		ticker := time.NewTicker(app.cfg.GetCheckInterval())
		defer ticker.Stop()

		// Run immediately on start, then on the interval.
		app.runCycle(ctx)
		for {
			select {
			case <-ctx.Done():
				app.logger.Info("advisor stopping")
				return nil
			case <-ticker.C:
				app.runCycle(ctx)
			}
		}
	})

	return group.Wait()
}

func (a *app) runCycle(ctx context.Context) {
	report, err := a.advisor.RunCycle(ctx, time.Now())
	if err != nil {
		a.logger.WithError(err).Error("advisor cycle failed")
		return
	}

	if report.Skipped {
		a.logger.WithField("reason", report.SkipReason).Debug("cycle skipped")
		return
	}
	if report.Halted {
		a.logger.Warn("cycle halted by daily loss limit")
		return
	}

	a.logger.WithFields(logrus.Fields{
		"vix":             report.VIX,
		"equity":          report.Equity,
		"phase":           report.Phase,
		"recommendations": len(report.Recommendations),
	}).Info("cycle complete")
}
