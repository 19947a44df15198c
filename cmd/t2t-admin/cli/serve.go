package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/text2trait/t2t/internal/metrics"
	"github.com/text2trait/t2t/internal/server"
	"github.com/text2trait/t2t/internal/server/middleware"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin API server",
		Long:  "Start the HTTP server that exposes admin login, logout, verify and session listing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 5002, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable debug logging")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(dev bool) error {
	if dev {
		viper.Set("log.level", "debug")
	}
	logger := newLogger(os.Stderr)

	// 1. Credential store
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("credential store opened", "driver", store.Driver())

	// 2. Metrics on a private registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 3. Session and credential services
	svc, err := newServices(store, m, logger)
	if err != nil {
		return err
	}

	// 4. First run hint
	hasAdmin, err := store.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	} else if !hasAdmin {
		logger.Warn("no admin account found - run: t2t-admin admin create EMAIL")
	}

	// 5. Gate and HTTP server
	gate := middleware.NewGate(svc.sessions, middleware.GateConfig{
		Bypass:  viper.GetBool("auth.skip_auth"),
		Metrics: m,
	}, logger)

	shutdown, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	srvCfg := server.Config{
		Host:            viper.GetString("server.host"),
		Port:            viper.GetInt("server.port"),
		ShutdownTimeout: shutdown,
		CORSOrigins:     viper.GetStringSlice("server.cors.origins"),
		BaseURL:         viper.GetString("server.base_url"),
	}
	srv := server.New(srvCfg, server.Deps{
		Store:    store,
		Sessions: svc.sessions,
		Gate:     gate,
		Gatherer: reg,
	}, logger)

	fmt.Printf("→ t2t-admin %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Metrics:    http://%s:%d/metrics\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
