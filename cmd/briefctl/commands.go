package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"contentpilot/internal/gateway/app"
	"contentpilot/internal/gateway/config"
	"contentpilot/internal/logging"
	"contentpilot/internal/pipeline"
	"contentpilot/internal/telemetry"
	"contentpilot/internal/types"
	"contentpilot/internal/util/jsonutil"
)

type options struct {
	input    string
	output   string
	provider string
	model    string
	debugDir string
	compact  bool
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "briefctl",
		Short:         "Run the content brief pipeline against JSON files",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.input, "input", "i", "-", "request JSON file (- for stdin)")
	pf.StringVarP(&opts.output, "output", "o", "", "write the result here instead of stdout")
	pf.StringVar(&opts.provider, "provider", "", "override LLM_PROVIDER (gemini, anthropic, openai, groq, fake)")
	pf.StringVar(&opts.model, "model", "", "override LLM_MODEL")
	pf.StringVar(&opts.debugDir, "debug-dir", "", "append debug records as JSONL under this directory")
	pf.BoolVar(&opts.compact, "compact", false, "print compact JSON")

	root.AddCommand(
		generateCmd(opts, stdin, stdout),
		regenerateCmd(opts, stdin, stdout),
		channelCmd(opts, stdin, stdout),
	)
	return root
}

func generateCmd(opts *options, stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Evaluate candidate items and generate briefs",
		Long: `Reads {"items": [...], "userInput": {...}, "websiteIntelligence": {...}}
or {"items": [...], "businessContext": {...}} and prints a BatchResult.

Examples:
  briefctl generate --input candidates.json
  LLM_PROVIDER=fake briefctl generate < candidates.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in struct {
				Items               []types.CandidateItem      `json:"items"`
				BusinessContext     *types.BusinessContext     `json:"businessContext"`
				UserInput           *types.UserInput           `json:"userInput"`
				WebsiteIntelligence *types.WebsiteIntelligence `json:"websiteIntelligence"`
			}
			return run(cmd.Context(), opts, stdin, stdout, &in, func(ctx context.Context, p *pipeline.Pipeline) (any, error) {
				if in.BusinessContext != nil && in.UserInput == nil && in.WebsiteIntelligence == nil {
					return p.GenerateBriefsWithContext(ctx, in.Items, *in.BusinessContext)
				}
				return p.GenerateBriefs(ctx, in.Items, in.UserInput, in.WebsiteIntelligence)
			})
		},
	}
}

func regenerateCmd(opts *options, stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Regenerate one brief",
		Long:  `Reads {"brief": {...}, "businessContext": {...}, "variationRequest": "..."} and prints the new brief.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in types.RegenerationRequest
			return run(cmd.Context(), opts, stdin, stdout, &in, func(ctx context.Context, p *pipeline.Pipeline) (any, error) {
				return p.Regenerate(ctx, in)
			})
		},
	}
}

func channelCmd(opts *options, stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "channel",
		Short: "Write finished copy for one channel of a brief",
		Long:  `Reads {"brief": {...}, "channel": "twitter", "businessContext": {...}} and prints the channel content.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in types.ChannelContentRequest
			return run(cmd.Context(), opts, stdin, stdout, &in, func(ctx context.Context, p *pipeline.Pipeline) (any, error) {
				return p.GenerateChannelContent(ctx, in)
			})
		},
	}
}

func run(ctx context.Context, opts *options, stdin io.Reader, stdout io.Writer, in any, call func(context.Context, *pipeline.Pipeline) (any, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := readInput(opts.input, stdin, in); err != nil {
		return err
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.provider != "" {
		cfg.LLM.Provider = strings.ToLower(opts.provider)
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	var sink telemetry.Sink = telemetry.Discard
	if opts.debugDir != "" {
		js, err := telemetry.NewJSONLSink(opts.debugDir)
		if err != nil {
			return err
		}
		sink = js
	}

	p, completer, err := app.NewPipeline(ctx, cfg, sink, logger)
	if err != nil {
		return err
	}
	defer completer.Close()

	out, err := call(ctx, p)
	if err != nil {
		return err
	}
	return writeOutput(opts, stdout, out)
}

func readInput(path string, stdin io.Reader, dst any) error {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := jsonutil.UnmarshalFlex(raw, dst); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func writeOutput(opts *options, stdout io.Writer, v any) error {
	indent := "  "
	if opts.compact {
		indent = ""
	}
	b, err := jsonutil.MarshalNoEscape(v, indent)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	b = append(b, '\n')
	if opts.output != "" {
		return os.WriteFile(opts.output, b, 0o644)
	}
	_, err = stdout.Write(b)
	return err
}
