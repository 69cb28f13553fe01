package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dealready/internal/audit"
	"dealready/internal/catalog"
	"dealready/internal/config"
	"dealready/internal/workspace"
)

func NewInitCommand() *cobra.Command {
	var noSeed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		Long: `Create the workspace layout (catalogs/, state/, audit/, reports/) and a
default dealready.yml. Built-in catalogs are copied into catalogs/ so they
can be edited; existing files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("workspace")
			return runInit(cmd, root, !noSeed)
		},
	}
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Do not copy built-in catalogs into the workspace")
	return cmd
}

func runInit(cmd *cobra.Command, rootPath string, seed bool) (finishErr error) {
	root, err := workspace.ResolveRoot(rootPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	var created []string
	defer func() {
		payload := map[string]any{"workspace": ws.Root, "created": created}
		if finishErr != nil {
			payload["error"] = finishErr.Error()
		}
		if err := logger.LogEvent(auditActor, audit.EventWorkspaceInit, payload); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "audit log failed:", err)
		}
	}()

	cfgData, err := config.DefaultConfig().Marshal()
	if err != nil {
		return err
	}
	wrote, err := writeFileIfMissing(ws.ConfigPath, cfgData)
	if err != nil {
		return err
	}
	if wrote {
		created = append(created, config.FileName)
	}

	if seed {
		builtin, err := catalog.Builtin()
		if err != nil {
			return err
		}
		for _, moduleID := range builtin.ModuleIDs() {
			data, err := catalog.BuiltinSource(moduleID)
			if err != nil {
				return err
			}
			name := moduleID + ".yml"
			wrote, err := writeFileIfMissing(filepath.Join(ws.CatalogsDir, name), data)
			if err != nil {
				return err
			}
			if wrote {
				created = append(created, filepath.Join("catalogs", name))
			}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  %s catalog list --workspace %s\n", appName, ws.Root)
	fmt.Fprintf(out, "  %s run show <module> --workspace %s\n", appName, ws.Root)
	return nil
}
