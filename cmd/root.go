package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/northcutted/pkgextract/pkg/logging"
)

var (
	configFile string
	verbose    int

	// stdout is where commands print their results. Tests swap it.
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "pkgextract",
	Short: "List the RPM and Python packages installed in a container image",
	Long: `List the RPM and Python packages installed in a container image.

pkgextract drives three external tools and merges their findings into one
JSON document:
- container-diff (RPM database of the image)
- atomic (mounts the image filesystem), or 'docker/podman save' with --mount-backend archive
- mercator (Python package metadata found in the mounted filesystem)

Tool locations are read from the config file and from the environment:
CONTAINER_DIFF_BIN, MERCATOR_BIN, MERCATOR_HANDLERS_YAML and ATOMIC_BIN.`,
	Example: `  # Inventory a local image
  pkgextract analyze -i registry.access.redhat.com/ubi9/python-311

  # Pull the image for the RPM scan and write the result to a file
  pkgextract analyze -i quay.io/app:1.0 --remote -o inventory.json

  # No privileges for 'atomic mount'? Unpack the image instead
  pkgextract analyze -i quay.io/app:1.0 --mount-backend archive -vv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(os.Stderr, verbose)
	},
}

// Execute runs the root cobra command and exits on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("pkgextract {{.Version}}\n")
}
