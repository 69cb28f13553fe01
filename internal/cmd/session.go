package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dealready/internal/audit"
	"dealready/internal/catalog"
	"dealready/internal/config"
	"dealready/internal/logging"
	"dealready/internal/report"
	"dealready/internal/store"
	"dealready/internal/workspace"
)

const auditActor = "cli"

// session is everything a command needs from an initialized workspace.
type session struct {
	ws         *workspace.Workspace
	cfg        *config.Config
	logger     *slog.Logger
	catalogs   *catalog.Registry
	dimensions report.DimensionMap
	runs       *store.Mirror
	audit      *audit.Logger
}

func openSession(cmd *cobra.Command) (*session, error) {
	root, _ := cmd.Flags().GetString("workspace")
	ws, err := workspace.Resolve(root)
	if err != nil {
		return nil, err
	}
	if !ws.Initialized() {
		return nil, fmt.Errorf("workspace %s is not initialized; run %s init --workspace %s", ws.Root, appName, ws.Root)
	}
	cfg, err := ws.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	catalogs, err := loadCatalogs(cfg.CatalogDir)
	if err != nil {
		return nil, err
	}
	dims, err := report.LoadDimensions(cfg.DimensionsFile)
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, err
	}
	runs := store.NewMirror(backend, store.MirrorOptions{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Interval:    cfg.Retry.Interval,
		Burst:       cfg.Retry.Burst,
		Logger:      logger,
	})

	return &session{
		ws:         ws,
		cfg:        cfg,
		logger:     logger,
		catalogs:   catalogs,
		dimensions: dims,
		runs:       runs,
		audit:      audit.NewLogger(ws.AuditDBPath),
	}, nil
}

// loadCatalogs overlays workspace catalogs on the built-in ones.
func loadCatalogs(dir string) (*catalog.Registry, error) {
	builtin, err := catalog.Builtin()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return builtin, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("scan catalog dir: %w", err)
	}
	if len(files) == 0 {
		return builtin, nil
	}
	local, err := catalog.LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	return builtin.Merge(local), nil
}

// close flushes pending run writes and releases the store. Writes that still
// did not land are reported on stderr and in the audit log.
func (s *session) close(ctx context.Context, cmd *cobra.Command) error {
	flushErr := s.runs.Flush(ctx)
	if flushErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.YellowString("not saved:"), flushErr)
		s.logAudit(cmd, audit.EventRunNotSaved, map[string]any{"error": flushErr.Error()})
	}
	return errors.Join(flushErr, s.runs.Close())
}

func (s *session) logAudit(cmd *cobra.Command, eventType string, payload map[string]any) {
	if err := s.audit.LogEvent(auditActor, eventType, payload); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "audit log failed:", err)
	}
}

func writeFileIfMissing(path string, contents []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return true, os.WriteFile(path, contents, 0o644)
}
