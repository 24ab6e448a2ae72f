package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/implgrid/internal/app"
	"github.com/specialistvlad/implgrid/internal/publish"
)

// manifestPath picks the path from the flag or the first positional argument.
func manifestPath(flag string, args []string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return "", usageError(errors.New("a manifest path is required: pass MANIFEST_PATH or --manifest"))
}

func renderCmd(e *env) *cobra.Command {
	var (
		manifest string
		outDir   string
		s3cfg    publish.S3Config
		vars     []string
	)

	cmd := &cobra.Command{
		Use:   "render [MANIFEST_PATH]",
		Short: "Render implementor fragments for every trait",
		Long: `Load the manifests under MANIFEST_PATH (a .hcl file or a directory) and hand
every trait's registry off to the configured sinks.

Without --out or --s3-bucket no sink is attached: every registry stays
pending and is printed to stdout, one fragment per trait.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := manifestPath(manifest, args)
			if err != nil {
				return err
			}
			parsed, err := parseVars(vars)
			if err != nil {
				return err
			}
			a, err := e.newApp(app.Config{
				ManifestPath: path,
				Vars:         parsed,
				OutDir:       outDir,
				S3:           s3cfg,
			})
			if err != nil {
				return err
			}
			return a.Render(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&manifest, "manifest", "m", "", "Path to the manifest file or directory.")
	f.StringVarP(&outDir, "out", "o", "", "Write fragments under DIR/implementors.")
	f.StringVar(&s3cfg.Bucket, "s3-bucket", "", "Upload fragments to this S3 bucket.")
	f.StringVar(&s3cfg.Prefix, "s3-prefix", "", "Key prefix inside the bucket.")
	f.StringVar(&s3cfg.Region, "s3-region", "", "AWS region of the bucket.")
	f.StringVar(&s3cfg.Endpoint, "s3-endpoint", "", "Custom S3-compatible endpoint URL.")
	f.StringArrayVar(&vars, "var", nil, "Manifest variable as key=value. Repeatable.")

	return cmd
}

func serveCmd(e *env) *cobra.Command {
	var (
		manifest string
		port     int
		vars     []string
	)

	cmd := &cobra.Command{
		Use:   "serve [MANIFEST_PATH]",
		Short: "Serve pending implementor fragments over HTTP",
		Long: `Load the manifests, keep every registry pending and serve them until
interrupted:

  GET /implementors/<path>   pending fragment pickup
  GET /traits                pending traits as JSON
  GET /health                liveness
  GET /metrics               Prometheus metrics`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := manifestPath(manifest, args)
			if err != nil {
				return err
			}
			if port <= 0 {
				return usageError(errors.New("--port must be positive"))
			}
			parsed, err := parseVars(vars)
			if err != nil {
				return err
			}
			a, err := e.newApp(app.Config{
				ManifestPath: path,
				Vars:         parsed,
				Port:         port,
			})
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&manifest, "manifest", "m", "", "Path to the manifest file or directory.")
	f.IntVarP(&port, "port", "p", 8080, "HTTP port to listen on.")
	f.StringArrayVar(&vars, "var", nil, "Manifest variable as key=value. Repeatable.")

	return cmd
}
