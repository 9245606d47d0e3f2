// cmd/batch.go
package cmd

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/api/schemas"
	"github.com/xkilldash9x/inview/internal/runner"
)

func newBatchCmd(a *app) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "batch JOBS_FILE",
		Short: "Run a JSON array of jobs, streaming results as they finish",
		Long: `batch reads a JSON array of jobs from JOBS_FILE ("-" for stdin). Each job
names its kind (INVIEW, SCROLLBAR, SCROLLBAR_WIDTH), its source_type (URL,
FILE, HTML) and source, plus the selector, container, axis and options it
needs. Results are written in completion order; match them by job_id.`,
		Example: `  inview batch jobs.json
  inview batch --format text - < jobs.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := readJobs(cmd, args[0])
			if err != nil {
				return err
			}
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
			results, err := r.Run(cmd.Context(), jobs, rep.Write)
			if err != nil {
				return err
			}
			return failures(results)
		},
	}
	out.register(cmd)
	return cmd
}

func readJobs(cmd *cobra.Command, path string) ([]schemas.Job, error) {
	var r io.Reader
	if path == stdinSource {
		r = cmd.InOrStdin()
	} else {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expanding path %s: %w", path, err)
		}
		f, err := os.Open(expanded)
		if err != nil {
			return nil, fmt.Errorf("opening jobs file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var jobs []schemas.Job
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("decoding jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs in %s", path)
	}
	return jobs, nil
}
