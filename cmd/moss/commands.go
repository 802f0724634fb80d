package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/moss/internal/server"
	"github.com/Ramsey-B/moss/pkg/middleware"
	"github.com/Ramsey-B/moss/pkg/orchestrator"
)

type globalOptions struct {
	configPath string
	output     string
	// exit code of the last run, set by the run commands
	code int
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string) (int, error) {
	opts := &globalOptions{}
	root := rootCmd(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if opts.code == 0 {
			opts.code = orchestrator.StatusInvalidInput.ExitCode()
		}
		return opts.code, err
	}
	return opts.code, nil
}

func rootCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "moss",
		Short:         "Exchange network data as INTERLIS transfer files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "json", "yaml":
				return nil
			}
			return fmt.Errorf("unknown output format %q", opts.output)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML), the environment is used when empty")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Result format (json, yaml)")

	cmd.AddCommand(
		exportCmd(opts),
		importCmd(opts),
		detectCmd(opts),
		validateCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)
	return cmd
}

func exportCmd(opts *globalOptions) *cobra.Command {
	var (
		req       orchestrator.ExportRequest
		selection string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the application schema into a transfer file",
		Example: `  moss export --xtf out.xtf
  moss export --xtf out.xtf --selection ch13p7mzRE001221,ch13p7mzWN003445
  moss export --xtf out.xtf --model DSS_2015_LV95 --labels labels.geojson`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Selection = splitList(selection)
			return runWith(cmd, opts, true, func(ctx context.Context, o *orchestrator.Orchestrator) *orchestrator.Result {
				return o.Export(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.XTF, "xtf", "", "Transfer file to write (required)")
	cmd.Flags().StringVar(&req.Model, "model", "", "Model to export, defaults to TARGET_MODEL")
	cmd.Flags().StringVar(&selection, "selection", "", "Comma separated object ids to export with their closure")
	cmd.Flags().StringVar(&req.Labels, "labels", "", "GeoJSON label file, defaults to LABELS_FILE")
	cmd.Flags().BoolVar(&req.SkipValidation, "skip-validation", false, "Do not validate the written file")
	_ = cmd.MarkFlagRequired("xtf")
	return cmd
}

func importCmd(opts *globalOptions) *cobra.Command {
	var req orchestrator.ImportRequest

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a transfer file into the application schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, opts, true, func(ctx context.Context, o *orchestrator.Orchestrator) *orchestrator.Result {
				return o.Import(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.XTF, "xtf", "", "Transfer file to read (required)")
	cmd.Flags().StringVar(&req.Model, "model", "", "Model of the file, detected from its header when empty")
	cmd.Flags().BoolVar(&req.SkipValidation, "skip-validation", false, "Do not validate the file before loading it")
	_ = cmd.MarkFlagRequired("xtf")
	return cmd
}

func validateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a transfer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(cmd, opts, false, func(ctx context.Context, o *orchestrator.Orchestrator) *orchestrator.Result {
				return o.Validate(ctx, args[0])
			})
		},
	}
}

func detectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE",
		Short: "Print the supported model a transfer file declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.configPath, false)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			model, err := a.orch.Detect(args[0])
			if err != nil {
				opts.code = orchestrator.StatusOf(err).ExitCode()
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), model)
			return nil
		},
	}
}

func serveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve runs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.configPath, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			var verify middleware.Verifier
			if a.cfg.AuthEnabled {
				if verify, err = middleware.OIDCVerifier(ctx, a.cfg.AuthIssuerURL, a.cfg.AuthClientID); err != nil {
					return err
				}
			}

			return server.New(server.Options{
				Config: a.cfg,
				Runner: a.orch,
				Health: a.health,
				Verify: verify,
				Logger: a.logger,
			}).Run(ctx)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moss version %s (build: %s)\n", Version, BuildTime)
		},
	}
}

// runWith wires the app, runs fn and prints its result. A failed run is
// reported through the exit code and the printed result.
func runWith(cmd *cobra.Command, opts *globalOptions, withDB bool, fn func(context.Context, *orchestrator.Orchestrator) *orchestrator.Result) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts.configPath, withDB)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	res := fn(ctx, a.orch)
	opts.code = res.Status.ExitCode()
	if err := printResult(cmd.OutOrStdout(), opts.output, res); err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("%s %s: %w", res.Direction, res.Status, res.Err)
	}
	return nil
}

func printResult(w io.Writer, format string, res *orchestrator.Result) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(res)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
