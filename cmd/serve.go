package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kozaktomas/face-gate/internal/enroll"
	"github.com/kozaktomas/face-gate/internal/events"
	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/match"
	"github.com/kozaktomas/face-gate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Gate web server.
Camera sensors post signatures to the enroll and recognize endpoints and the
admin API arms, renames and deletes registered faces.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 5000, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signatures, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, signatures.Close())
	}()

	engine, err := match.NewEngine(signatures, cfg.Recognition.Threshold)
	if err != nil {
		return err
	}
	broadcaster := events.NewBroadcaster()
	coordinator := enroll.New(signatures,
		enroll.WithPublisher(broadcaster),
		enroll.WithAutoNamePrefix(cfg.Enrollment.AutoNamePrefix),
	)

	server := web.NewServer(cfg, coordinator, engine, broadcaster)

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "face gate ready",
		"addr", fmt.Sprintf("http://%s:%d", cfg.Web.Host, cfg.Web.Port),
		"backend", cfg.Store.Backend,
		"threshold", engine.Threshold(),
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return <-shutdownErr
}
