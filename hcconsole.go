package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sgaunet/hcconsole/pkg/app"
	"github.com/sgaunet/hcconsole/pkg/config"
	"github.com/sgaunet/hcconsole/pkg/slogx"
)

const serviceName = "hcconsole"

var configFile string

// ErrMissingConfigFile is returned when no configuration file is given.
var ErrMissingConfigFile = errors.New("configuration file not provided, use -f")

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Administrative console for HC-Storage",
	Long: `hcconsole serves the HC-Storage administration pages. It keeps the
operator's identity token in a server-side session and forwards every
backend call to the storage gateway with the right credentials.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console web server",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l := initTrace(cfg)

		// Handle SIGTERM/SIGINT
		ctx, cancelFunc := context.WithCancel(context.Background())
		SetupCloseHandler(ctx, cancelFunc, l)

		s, err := app.NewApp(ctx, cfg, app.WithLogger(l))
		if err != nil {
			l.Error("error creating the app", slog.String("error", err.Error()))
			return err
		}
		if err := s.Start(ctx); err != nil {
			l.Error("error starting the app", slog.String("error", err.Error()))
			return err
		}

		<-ctx.Done()
		l.Info("stop the server")
		return s.StopServer()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "file", "f", "", "Configuration file")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (config.Config, error) {
	if configFile == "" {
		return config.Config{}, ErrMissingConfigFile
	}
	cfg, err := config.ReadYamlCnxFile(configFile)
	if err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

// SetupCloseHandler cancels ctx on SIGTERM/SIGINT.
func SetupCloseHandler(ctx context.Context, cancelFunc context.CancelFunc, log *slog.Logger) {
	c := make(chan os.Signal, 5)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		select {
		case s := <-c:
			log.Info("signal received", slog.String("signal", s.String()))
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// initTrace initializes the logger
func initTrace(cfg config.Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: serviceName,
		Version: version,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
