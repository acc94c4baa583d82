package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/city-risk-service/internal/adapter/llm"
	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/ensemble"
	"github.com/couchcryptid/city-risk-service/internal/model"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type rootOptions struct {
	manifest       string
	gcsCredentials string
	modelTimeout   time.Duration
	verbose        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Operate the city risk models from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.manifest, "manifest", sharedcfg.EnvOrDefault("MODEL_MANIFEST", ""), "model manifest (YAML); empty serves slot defaults")
	root.PersistentFlags().StringVar(&opts.gcsCredentials, "gcs-credentials", os.Getenv("GCS_CREDENTIALS_FILE"), "service account key for gs:// artifacts")
	root.PersistentFlags().DurationVar(&opts.modelTimeout, "model-timeout", 10*time.Second, "timeout for remote model servers")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newPredictCmd(opts),
		newAdviseCmd(opts),
		newManifestCmd(opts),
		newSchemasCmd(),
	)
	return root
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict FILE",
		Short: "Score a CityState JSON file (- for stdin) and print the six indicators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in domain.CityInput
			if err := readJSON(cmd, args[0], &in); err != nil {
				return err
			}
			if err := validate.Struct(in); err != nil {
				return fmt.Errorf("invalid city state: %w", err)
			}
			city := in.CityState()

			logger := opts.logger(cmd)
			reg, closeFn, err := model.Bootstrap(cmd.Context(), opts.manifest, opts.gcsCredentials, opts.modelTimeout, logger)
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // process exits right after

			scores, err := ensemble.New(reg, logger, observability.NewMetricsForTesting()).PredictCity(cmd.Context(), city)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), scores)
		},
	}
}

type adviseOptions struct {
	rulesOnly bool
	llm       llm.Options
}

func newAdviseCmd(root *rootOptions) *cobra.Command {
	opts := &adviseOptions{}
	cmd := &cobra.Command{
		Use:   "advise FILE",
		Short: "Produce advisories for an AdvisoryRequest JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in domain.AdvisoryInput
			if err := readJSON(cmd, args[0], &in); err != nil {
				return err
			}
			if err := validate.Struct(in); err != nil {
				return fmt.Errorf("invalid advisory request: %w", err)
			}
			req := in.Request()

			logger := root.logger(cmd)
			metrics := observability.NewMetricsForTesting()
			var gen advisory.Generator
			if !opts.rulesOnly && opts.llm.BaseURL != "" {
				gen = llm.NewLazy(llm.ClientLoader(llm.NewClient(opts.llm, logger)), logger, metrics)
			}

			out := advisory.NewOrchestrator(gen, logger, metrics).Advise(cmd.Context(), req)
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, out.Text.String())
			fmt.Fprintf(w, "\nsource: %s\n", out.Source)
			if out.Failure != advisory.FailureNone && gen != nil {
				fmt.Fprintf(w, "fallback reason: %s\n", out.Failure)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.rulesOnly, "rules-only", false, "skip generation and use the rule engine")
	f.StringVar(&opts.llm.BaseURL, "llm-base-url", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible endpoint")
	f.StringVar(&opts.llm.APIKey, "llm-api-key", os.Getenv("LLM_API_KEY"), "API key for the endpoint")
	f.StringVar(&opts.llm.Model, "llm-model", sharedcfg.EnvOrDefault("LLM_MODEL", "TinyLlama/TinyLlama-1.1B-Chat-v1.0"), "model name")
	f.Float32Var(&opts.llm.Temperature, "temperature", 0.7, "sampling temperature")
	f.IntVar(&opts.llm.MaxTokens, "max-tokens", 256, "maximum new tokens")
	f.DurationVar(&opts.llm.Timeout, "llm-timeout", 60*time.Second, "generation timeout")
	return cmd
}

func newManifestCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest FILE",
		Short: "Load a model manifest and report which slots are filled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, closeFn, err := model.Bootstrap(cmd.Context(), args[0], root.gcsCredentials, root.modelTimeout, root.logger(cmd))
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // process exits right after

			loaded := reg.Loaded()
			w := cmd.OutOrStdout()
			for _, d := range domain.Domains {
				status := "default"
				for _, l := range loaded {
					if l == d {
						status = "loaded"
						break
					}
				}
				fmt.Fprintf(w, "%-8s %-12s %s\n", d, model.SlotKind(d), status)
			}
			return nil
		},
	}
}

func newSchemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "Print the current feature schema of every model slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, d := range domain.Domains {
				s := domain.CurrentSchema(d)
				fmt.Fprintf(w, "%s (%d features)\n  %s\n", s.Key(), len(s.Fields), strings.Join(s.Fields, ", "))
			}
			return nil
		},
	}
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
