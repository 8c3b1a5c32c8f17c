// kiosk は端末から出退勤を打刻するクライアント
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attendance-tracker/internal/platform/config"
	"attendance-tracker/internal/platform/logger"
	"attendance-tracker/internal/tracker"
)

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "kiosk",
		Short:         "Check employees in and out from a terminal",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKiosk(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to config.yaml")
	return cmd
}

func runKiosk(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Client.Location()
	if err != nil {
		return err
	}

	client := tracker.NewStoreClient(cfg.Client.ServerURL, nil)
	tr := tracker.New(tracker.Options{
		Store:    client,
		Relay:    tracker.NewRelay(cfg.Webhook, log.Named("webhook")),
		Notifier: tracker.NewToastNotifier(os.Stdout, log.Named("toast")),
		Location: loc,
		Logger:   log.Named("tracker"),
	})
	defer tr.Close()

	// 読み込み失敗は通知済み。空のビューで続行
	_ = tr.LoadToday(ctx)
	h := tr.ScheduleDailyReset()
	log.Debug("kiosk ready", zap.String("server", cfg.Client.ServerURL), zap.Time("next_reset", h.Next()))

	newKiosk(tr, client, os.Stdout).run(ctx, os.Stdin)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
