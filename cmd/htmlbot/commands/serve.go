package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/html-downloader-bot/internal/bot"
	httpapi "github.com/tbourn/html-downloader-bot/internal/http"
	"github.com/tbourn/html-downloader-bot/internal/observability"
	"github.com/tbourn/html-downloader-bot/internal/session"
	"github.com/tbourn/html-downloader-bot/internal/transport"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

const shutdownTimeout = 10 * time.Second

var botCommands = []telegram.BotCommand{
	{Command: "start", Description: "Show the main menu"},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the bot: webhook mode when WEBHOOK_URL is set, long polling otherwise.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tg := telegram.NewClient(cfg.Telegram.Token, telegram.WithBaseURL(cfg.Telegram.APIURL))
	me, err := tg.GetMe(ctx)
	if err != nil {
		return err
	}
	if err := tg.SetMyCommands(ctx, botCommands); err != nil {
		log.Warn().Err(err).Msg("setMyCommands failed")
	}

	sessions := session.NewTracker()
	ctrl := bot.NewController(bot.Deps{
		Messenger: tg,
		Store:     store,
		Sessions:  sessions,
		Downloads: newDownloadService(store, cfg),
	})
	disp := transport.NewDispatcher(ctrl, cfg.Telegram.QueueSize)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{Queue: disp, Stats: store, Sessions: sessions}, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		disp.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.WebhookMode() {
		hook := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + "/webhook"
		if err := tg.SetWebhook(ctx, hook, cfg.Telegram.WebhookSecret); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		log.Info().Str("bot", me.Username).Str("mode", "webhook").Msg("bot started")
	} else {
		if err := tg.DeleteWebhook(ctx); err != nil {
			log.Warn().Err(err).Msg("deleteWebhook failed")
		}
		poller := &transport.Poller{Source: tg, Dispatcher: disp, Timeout: cfg.Telegram.PollTimeout}
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})
		log.Info().Str("bot", me.Username).Str("mode", "polling").Msg("bot started")
	}

	err = g.Wait()
	log.Info().Int("pending_updates", disp.Pending()).Msg("bot stopped")
	return err
}
