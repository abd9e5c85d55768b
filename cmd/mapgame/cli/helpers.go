package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/mapgame/mapgame/internal/config"
	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/store"
)

// openStore opens the store selected by the database config.
func openStore(cfg config.DatabaseConfig) (*store.Store, error) {
	switch {
	case cfg.Driver == store.DriverPostgres:
		return store.Open(store.DriverPostgres, cfg.DSN)
	case cfg.DSN != "":
		return store.Open(store.DriverSQLite, cfg.DSN)
	default:
		return store.NewStore(cfg.ResolveDataDir())
	}
}

// newLogger builds the process logger. dev forces debug level.
func newLogger(cfg config.LoggingConfig, dev bool, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil || dev {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// findAdmin looks an admin up by username, or by numeric ID when the
// argument starts with '#'.
func findAdmin(ctx context.Context, st *store.Store, ref string) (*model.Admin, error) {
	var (
		admin *model.Admin
		err   error
	)
	if id, ok := strings.CutPrefix(ref, "#"); ok {
		n, parseErr := strconv.ParseInt(id, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid admin id %q", ref)
		}
		admin, err = st.GetAdmin(ctx, n)
	} else {
		admin, err = st.GetAdminByUsername(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("admin %q not found", ref)
		}
		return nil, err
	}
	return admin, nil
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
