// Command printpdf is a thin CLI facade over pkg/devtools: it loads
// configuration, starts a Supervisor-managed SessionPool, checks out one
// Session, runs the canonical print protocol against a URL, optionally
// converts the result to PDF/A, and writes the PDF to stdout or a file.
// It carries no protocol logic of its own.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/daabr/chrome-print/pkg/devtools"
	"github.com/daabr/chrome-print/pkg/devtools/protocols"
	"github.com/daabr/chrome-print/pkg/pdfa"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "printpdf",
		Short: "Render a URL to PDF using a headless browser pool",
	}
	root.AddCommand(newPrintCmd())
	return root
}

func newPrintCmd() *cobra.Command {
	var (
		output       string
		envPrefix    string
		checkoutWait time.Duration
		landscape    bool
		pageRanges   string
		toPDFA       bool
		gsPath       string
	)

	cmd := &cobra.Command{
		Use:   "print <url>",
		Short: "Render one URL to a PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			log := logrus.NewEntry(logrus.StandardLogger())

			cfg, err := devtools.LoadConfig(envPrefix)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sv, err := devtools.NewSupervisor(ctx, cfg, devtools.NewLogrusLogger(log))
			if err != nil {
				return fmt.Errorf("start session pool: %w", err)
			}
			defer sv.Close(cfg.Timeout)

			session, err := sv.Pool().Checkout(ctx, checkoutWait)
			if err != nil {
				return fmt.Errorf("checkout session: %w", err)
			}
			defer sv.Pool().Checkin(ctx, session)

			proto := protocols.Print(protocols.PrintOptions{
				URL:        url,
				Timeout:    cfg.Timeout,
				Landscape:  landscape,
				PageRanges: pageRanges,
			})

			done := make(chan devtools.Result, 1)
			if err := session.Run(proto, func(r devtools.Result) { done <- r }); err != nil {
				return fmt.Errorf("run print protocol: %w", err)
			}
			result := <-done
			if result.Err != nil {
				return fmt.Errorf("print failed: %w", result.Err)
			}
			pdf := result.Value.(protocols.PrintResult).PDF

			if toPDFA {
				pool := pdfa.NewPool(afero.NewOsFs(), os.TempDir(), 1, pdfa.WithExecutable(gsPath), pdfa.WithLogger(log))
				pdf, err = pool.Convert(ctx, pdf)
				if err != nil {
					return fmt.Errorf("convert to pdf/a: %w", err)
				}
			}

			if output == "" || output == "-" {
				_, err = os.Stdout.Write(pdf)
				return err
			}
			return os.WriteFile(output, pdf, 0o644)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "output file path (default: stdout)")
	flags.StringVar(&envPrefix, "env-prefix", "CHROME_PRINT", "environment variable prefix for configuration")
	flags.DurationVar(&checkoutWait, "checkout-timeout", 10*time.Second, "how long to wait for a free session before failing")
	flags.BoolVar(&landscape, "landscape", false, "render in landscape orientation")
	flags.StringVar(&pageRanges, "page-ranges", "", "page ranges to print, e.g. \"1-5, 8\"")
	flags.BoolVar(&toPDFA, "pdf-a", false, "convert the rendered PDF to PDF/A via an external converter")
	flags.StringVar(&gsPath, "pdf-a-executable", "gs", "PDF/A converter executable")

	return cmd
}
