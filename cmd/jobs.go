// cmd/jobs.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/api/schemas"
	"github.com/xkilldash9x/inview/internal/reporting"
	"github.com/xkilldash9x/inview/internal/runner"
)

// stdinSource stands for markup read from standard input.
const stdinSource = "-"

// outputFlags are shared by every command that writes results.
type outputFlags struct {
	format string
	output string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "json", "output format (json, text)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write results to a file instead of stdout")
}

func (o *outputFlags) reporter(cmd *cobra.Command) (reporting.Reporter, error) {
	if o.output == "" {
		return reporting.NewWriter(o.format, cmd.OutOrStdout())
	}
	return reporting.New(o.format, o.output)
}

// sourceJobs turns command line sources into jobs built from tmpl. URLs go to
// the browser, "-" reads markup from stdin and anything else is a file.
func sourceJobs(cmd *cobra.Command, tmpl schemas.Job, sources []string) ([]schemas.Job, error) {
	jobs := make([]schemas.Job, 0, len(sources))
	readStdin := false
	for i, src := range sources {
		job := tmpl
		job.ID = fmt.Sprintf("job-%d", i+1)
		switch {
		case src == stdinSource:
			if readStdin {
				return nil, fmt.Errorf("stdin can only be used as a source once")
			}
			readStdin = true
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			job.SourceType, job.Source = schemas.SourceHTML, string(data)
		case isURL(src):
			job.SourceType, job.Source = schemas.SourceURL, src
		default:
			job.SourceType, job.Source = schemas.SourceFile, src
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// runAndReport executes jobs and writes the results in job order. shape, when
// set, adjusts each result before it is written.
func (a *app) runAndReport(cmd *cobra.Command, jobs []schemas.Job, out outputFlags, shape func(*schemas.ResultEnvelope)) error {
	rep, err := out.reporter(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rep.Close(); cerr != nil {
			a.logger.Warn("Failed to close report.", zap.Error(cerr))
		}
	}()

	r := runner.New(a.cfg, a.logger)
	results, err := r.Run(cmd.Context(), jobs, nil)
	if err != nil {
		return err
	}
	for _, res := range results {
		if shape != nil {
			shape(res)
		}
		if err := rep.Write(res); err != nil {
			return err
		}
	}
	return failures(results)
}

// failures reports jobs that ended in an error. Their details are in the report.
func failures(results []*schemas.ResultEnvelope) error {
	failed := 0
	for _, res := range results {
		if res != nil && res.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}
