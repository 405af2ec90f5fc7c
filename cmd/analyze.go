package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/northcutted/pkgextract/pkg/analysis"
	"github.com/northcutted/pkgextract/pkg/config"
	"github.com/northcutted/pkgextract/pkg/output"
	"github.com/northcutted/pkgextract/pkg/renderer"
)

var (
	imageName    string
	outputFile   string
	remote       bool
	packageURLs  bool
	mountBackend string
)

// newAnalyzer builds the analyzer for a run. Tests replace it with one
// backed by fakes.
var newAnalyzer = func(cfg *config.Config, opts analysis.Options) (*analysis.Analyzer, error) {
	return analysis.NewFromConfig(cfg, opts)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Inventory the RPM and PyPI packages of an image",
	Long: `Inventory the RPM and PyPI packages of an image.

The RPM database is read with container-diff. The image filesystem is then
mounted and scanned for Python packages with mercator. The result is written
as JSON with sorted keys to stdout, a file, or a bucket URL
(file:///dir/out.json, s3://bucket/key.json, gs://bucket/key.json).`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&imageName, "image-name", "i", "", "Image to analyze (e.g. registry.access.redhat.com/ubi9:latest)")
	analyzeCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Write the result to this file or bucket URL instead of stdout")
	analyzeCmd.Flags().BoolVar(&remote, "remote", false, "Read RPMs from the registry copy of the image instead of the local store")
	analyzeCmd.Flags().BoolVar(&packageURLs, "purl", false, "Add a package URL to every package")
	analyzeCmd.Flags().StringVar(&mountBackend, "mount-backend", "", "How to expose the image filesystem: atomic or archive (default from config)")
	_ = analyzeCmd.MarkFlagRequired("image-name")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if mountBackend != "" {
		cfg.MountBackend = config.MountBackend(mountBackend)
	}
	slog.Debug("configuration loaded", "config", cfg)

	a, err := newAnalyzer(cfg, analysis.Options{Remote: remote, PackageURLs: packageURLs})
	if err != nil {
		return err
	}

	result, err := a.Analyze(cmd.Context(), imageName)
	if err != nil {
		return err
	}

	data, err := renderer.Render(result)
	if err != nil {
		return err
	}

	if err := output.Write(cmd.Context(), outputFile, stdout, data); err != nil {
		return err
	}
	if outputFile != "" && outputFile != "-" {
		slog.Info("wrote inventory", "destination", outputFile, "rpm", len(result.RPM), "pypi", len(result.PyPI))
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
