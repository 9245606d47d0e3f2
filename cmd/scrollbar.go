// cmd/scrollbar.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/inview/api/schemas"
)

func newScrollbarCmd(a *app) *cobra.Command {
	var (
		selector string
		axis     string
		out      outputFlags
	)
	cmd := &cobra.Command{
		Use:   "scrollbar SOURCE...",
		Short: "Report whether the window or an element shows scrollbars",
		Example: `  inview scrollbar page.html
  inview scrollbar --selector '#sidebar' --axis vertical https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := schemas.Job{
				Kind:     schemas.QueryScrollbar,
				Selector: selector,
				Axis:     schemas.Axis(axis),
			}
			jobs, err := sourceJobs(cmd, tmpl, args)
			if err != nil {
				return err
			}
			return a.runAndReport(cmd, jobs, out, nil)
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "element to inspect instead of the window")
	cmd.Flags().StringVar(&axis, "axis", string(schemas.AxisBoth), "axis to inspect: both, horizontal or vertical")
	out.register(cmd)
	return cmd
}

func newScrollbarWidthCmd(a *app) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "scrollbar-width SOURCE...",
		Short: "Measure the width of a classic scrollbar in each source's window",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := sourceJobs(cmd, schemas.Job{Kind: schemas.QueryScrollbarWidth}, args)
			if err != nil {
				return err
			}
			return a.runAndReport(cmd, jobs, out, nil)
		},
	}
	out.register(cmd)
	return cmd
}
