package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapgame/mapgame/internal/metrics"
	"github.com/mapgame/mapgame/internal/server"
	"github.com/mapgame/mapgame/internal/service"
)

const banner = `
 __  __    _    ____   ____    _    __  __ _____
|  \/  |  / \  |  _ \ / ___|  / \  |  \/  | ____|
| |\/| | / _ \ | |_) | |  _  / _ \ | |\/| |  _|
| |  | |/ ___ \|  __/| |_| |/ ___ \| |  | | |___
|_|  |_/_/   \_\_|    \____/_/   \_\_|  |_|_____|
`

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mapgame HTTP server",
		Long:  "Start the HTTP server that serves the public map API, the admin API and the admin pages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(cfg.Logging, dev, os.Stderr)
	if configUsed != "" {
		logger.Info("config loaded", "path", configUsed)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", st.Driver())

	// Durations were checked by Validate.
	ttl, _ := cfg.Auth.SessionTTLDuration()
	shutdown, _ := cfg.Server.ShutdownTimeoutDuration()

	authOpts := []service.AuthOption{
		service.WithSessionTTL(ttl),
		service.WithLogger(logger),
	}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		authOpts = append(authOpts, service.WithRecorder(m))
	}
	auth := service.NewAuthService(st, authOpts...)
	admins := service.NewAdminService(st, logger)

	hasAdmin, err := st.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - POST /api/auth/setup or run: mapgame admin create")
	}

	srv := server.New(server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdown,
		CORSOrigins:     cfg.Server.CORSOrigins,
		LoginRateLimit:  cfg.Server.LoginRateLimit,
		TrustProxy:      cfg.Server.TrustProxy,
		CookieSecure:    cfg.Auth.CookieSecure,
		Version:         versionString(),
	}, st, auth, admins, m, logger)

	base := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ mapgame %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	fmt.Printf("→ Admin:      %s/admin/login\n", base)
	fmt.Printf("→ OpenAPI:    %s/swagger/openapi.json\n", base)
	fmt.Printf("→ Health:     %s/healthz\n", base)
	if m != nil {
		fmt.Printf("→ Metrics:    %s/metrics\n", base)
	}
	fmt.Println()

	return srv.ListenAndServe()
}
