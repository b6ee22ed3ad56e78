package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dispatch-sim/dispatch-sim/server"
)

var serveConfigPath string

// serveConfig is resolved by viper from flags, DISPATCHSIM_* env vars, an
// optional config file, and defaults, in that order of precedence.
type serveConfig struct {
	Addr string `mapstructure:"addr"`
	DB   string `mapstructure:"db"`
	Log  string `mapstructure:"log"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dispatch API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newServeViper(serveConfigPath)
		if err != nil {
			logrus.Fatalf("Failed to load server config: %v", err)
		}
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			logrus.Fatalf("Failed to bind flags: %v", err)
		}
		cfg, err := decodeServeConfig(v)
		if err != nil {
			logrus.Fatalf("Invalid server config: %v", err)
		}
		setLogLevel(cfg.Log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := serve(ctx, cfg); err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

func newServeViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "")
	v.SetDefault("log", "info")
	v.SetEnvPrefix("DISPATCHSIM")
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

func decodeServeConfig(v *viper.Viper) (serveConfig, error) {
	var cfg serveConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Addr == "" {
		return cfg, errors.New("addr must not be empty")
	}
	return cfg, nil
}

// serve runs the HTTP server until ctx is canceled.
func serve(ctx context.Context, cfg serveConfig) error {
	var opts []server.Option
	if cfg.DB != "" {
		st, err := openStore(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, server.WithStore(st))
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logrus.Info("Shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("db", "", "SQLite database for run history (empty disables persistence)")
	serveCmd.Flags().String("log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Server config file (addr, db, log)")

	rootCmd.AddCommand(serveCmd)
}
