package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"compat-merger/core/loader"
	"compat-merger/core/logger"
	"compat-merger/core/middleware/auth"
	"compat-merger/core/middleware/rayid"
	"compat-merger/core/server"
	"compat-merger/feature/patcher"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the patch job HTTP server",
	Long:  `Starts the HTTP server exposing scan, generate, remove and publish as background jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		logg := a.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		deps, err := a.deps(true)
		if err != nil {
			return err
		}

		app := fiber.New(server.Fiber())

		mgr := loader.NewManager(logg)
		pf := patcher.NewFeature(deps)
		mgr.Register(pf)

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("addr", a.cfg.Server.Addr()))
			errCh <- app.Listen(a.cfg.Server.Addr())
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-sig:
		}

		logg.Info("Shutting down server...")
		pf.Shutdown()
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
