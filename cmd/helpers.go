package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/northcutted/pkgextract/pkg/config"
	"github.com/northcutted/pkgextract/pkg/runner"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show where the external tools are found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printToolStatus(stdout, cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

// printToolStatus writes one line per external tool the configuration uses.
func printToolStatus(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Tool Status:")

	statuses := []runner.ToolStatus{
		runner.LookupTool("container-diff", cfg.ContainerDiffBin),
		runner.LookupTool("mercator", cfg.MercatorBin),
	}
	switch cfg.MountBackend {
	case config.MountBackendArchive:
		if cfg.ContainerRuntime != "" {
			statuses = append(statuses, runner.LookupTool("runtime", cfg.ContainerRuntime))
		} else if rt, err := runner.DetectRuntime(); err == nil {
			statuses = append(statuses, runner.LookupTool("runtime", rt))
		} else {
			statuses = append(statuses, runner.ToolStatus{Name: "runtime", Path: "docker or podman"})
		}
	default:
		statuses = append(statuses, runner.LookupTool("atomic", cfg.AtomicBin))
	}

	for _, s := range statuses {
		if s.Found {
			fmt.Fprintf(w, "  [OK]      %-15s %s\n", s.Name, s.Path)
		} else {
			fmt.Fprintf(w, "  [MISSING] %-15s %s\n", s.Name, s.Path)
		}
	}
	fmt.Fprintf(w, "  mercator handlers: %s\n", cfg.MercatorHandlers)
	fmt.Fprintf(w, "  mount backend:     %s\n", cfg.MountBackend)
}
