/*
Package main is the entry point for the livechat server.

It loads configuration, initializes the global logger, builds the image store and the
chat room, serves HTTP and shuts everything down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"livechat/internal/app/chat"
	"livechat/internal/app/storage"
	"livechat/internal/configs"
	"livechat/internal/handler"
	"livechat/internal/pkg/logx"
)

var rootCmd = &cobra.Command{
	Use:          "livechat",
	Short:        "Single-room real-time chat server with image uploads",
	SilenceUsage: true,
	RunE:         runServer,
}

var (
	flagPort    string
	flagEnvFile string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagPort, "port", "", "listen port (overrides PORT, default 3000)")
	flags.StringVar(&flagEnvFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := configs.LoadConfig(flagEnvFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if flagPort != "" {
		port, err := configs.ParsePort(flagPort)
		if err != nil {
			return err
		}
		cfg.Port = port
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("storage_backend", cfg.StorageBackend).
		Msg("Configuration loaded successfully")

	images, err := storage.NewImageStore(storage.ServiceConfig{
		Backend:           cfg.StorageBackend,
		LocalDir:          cfg.UploadDir,
		LocalURLPrefix:    cfg.UploadURLPrefix,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3PublicURL:       cfg.S3PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	room := chat.NewRoom(chat.RoomOptions{ImageURLs: images.Owns})
	go room.Run()

	router := handler.Router(&handler.AppDeps{
		Room:   room,
		Config: cfg,
		Images: images,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("livechat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		room.Stop()
		room.Wait()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Hijacked WebSocket connections are not tracked by Shutdown; stopping the
	// room closes them through their write pumps.
	room.Stop()
	room.Wait()

	logx.Info("Server gracefully stopped.")
	return nil
}
