package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"wedding-album/internal/auth"
	"wedding-album/internal/caption"
	"wedding-album/internal/config"
	"wedding-album/internal/host"
	"wedding-album/internal/printer"
	"wedding-album/internal/qr"
	"wedding-album/internal/server"
	"wedding-album/internal/storage"
	"wedding-album/internal/whatsapp"
)

func main() {
	fmt.Println("💍 Wedding Album")
	fmt.Println("================")

	cfg := config.LoadConfig()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.LogLevel).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	compositor, err := qr.NewCompositor(logger)
	if err != nil {
		fmt.Printf("Error initializing QR compositor: %v\n", err)
		os.Exit(1)
	}

	captioner, err := caption.NewService(ctx, &caption.Config{
		APIKey: cfg.APIKey,
		Model:  cfg.CaptionModel,
	}, logger)
	if err != nil {
		fmt.Printf("Error initializing caption service: %v\n", err)
		os.Exit(1)
	}
	if !captioner.IsConfigured() {
		logger.Warn().Msg("API_KEY is not set, caption generation is disabled")
	}

	events := storage.NewEvents()
	album := storage.NewAlbum(storage.SamplePhotos()...)

	a := &app{
		cfg:       cfg,
		log:       logger,
		scanner:   bufio.NewScanner(os.Stdin),
		auth:      auth.NewSession(logger),
		events:    events,
		album:     album,
		creator:   host.NewCreator(compositor, events, cfg.BaseURL, logger),
		captioner: captioner,
		printer:   printer.NewPrinter(&printer.Config{ChromePath: cfg.ChromePath}, logger),
	}

	if cfg.WhatsAppEnabled {
		wa, err := whatsapp.NewService(ctx, &whatsapp.Config{
			DataDir:    cfg.WhatsAppDataDir,
			Recipients: cfg.ShareRecipients,
			Out:        os.Stdout,
		}, logger)
		if err != nil {
			fmt.Printf("Error initializing WhatsApp service: %v\n", err)
			os.Exit(1)
		}
		wa.SetLinkSource(a.inviteMessage)

		fmt.Println("Connecting to WhatsApp...")
		if err := wa.Connect(ctx); err != nil {
			fmt.Printf("Error connecting to WhatsApp: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Connected to WhatsApp!")
		defer wa.Disconnect()

		a.sharer = wa
	}

	srv := server.NewServer(events, album, logger)
	go func() {
		if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()
	fmt.Printf("Guest pages are served on %s\n", cfg.HTTPAddr)

	go func() {
		a.run(ctx)
		stop()
	}()

	<-ctx.Done()
	fmt.Println("\n\nShutting down...")
	fmt.Println("Goodbye! 👋")
}
