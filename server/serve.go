package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/whiteboard"
	"github.com/meikuraledutech/whiteboard/kie"
	"github.com/meikuraledutech/whiteboard/logsink"
	"github.com/meikuraledutech/whiteboard/r2"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the canvas HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink := logsink.New(cfg.Log.MaxEntries)
		logger := newLogger(cfg.Log, sink)

		settings, closeSettings, err := openSettings(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSettings()

		board := whiteboard.NewBoard(whiteboard.Size{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height})
		go board.Run(ctx)

		gen := kie.New(settings,
			kie.WithBaseURL(cfg.Kie.BaseURL),
			kie.WithPollInterval(cfg.Kie.PollInterval.Duration),
			kie.WithLogger(logger),
		)
		runner := whiteboard.NewRunner(ctx, board, gen, r2.FromSettings(settings, cfg.R2.Endpoint), logger)

		app := newApp(&api{
			board:    board,
			runner:   runner,
			settings: settings,
			logs:     sink,
		})

		go func() {
			<-ctx.Done()
			if err := app.Shutdown(); err != nil {
				log.Printf("shutdown: %v", err)
			}
		}()

		logger.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
		return app.Listen(cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}
