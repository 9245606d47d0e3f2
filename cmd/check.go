// cmd/check.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/inview/api/schemas"
)

type checkFlags struct {
	container string
	opts      schemas.QueryOptions
	all       bool
	out       outputFlags
}

func newCheckCmd(a *app) *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check SELECTOR SOURCE...",
		Short: "Report which matches of a selector are in view",
		Long: `check loads each source and tests every element matching SELECTOR against
its viewport: the window by default, or the first match of --container.
A trailing :inviewport on the selector filters the matches up front.`,
		Example: `  inview check 'img.hero' page.html
  inview check --container '#list' --partially 'li' https://example.com
  cat page.html | inview check --all --format text 'p' -`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := schemas.Job{
				Kind:      schemas.QueryInView,
				Selector:  args[0],
				Container: f.container,
				Options:   f.opts,
			}
			jobs, err := sourceJobs(cmd, tmpl, args[1:])
			if err != nil {
				return err
			}
			var shape func(*schemas.ResultEnvelope)
			if !f.all {
				shape = onlyInView
			}
			return a.runAndReport(cmd, jobs, f.out, shape)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.container, "container", "", "selector of the element whose viewport bounds the test")
	flags.BoolVar(&f.opts.Partially, "partially", false, "count elements that are only partly visible")
	flags.BoolVar(&f.opts.ExcludeHidden, "exclude-hidden", false, "treat elements without a rendered box as out of view")
	flags.StringVar(&f.opts.Direction, "direction", "", "axis to test: both, horizontal or vertical")
	flags.StringVar(&f.opts.Box, "box", "", "box of the element to test: border-box or content-box")
	flags.StringVar(&f.opts.Tolerance, "tolerance", "", "grow the viewport by pixels (12, 12px) or percent (5%)")
	flags.BoolVar(&f.all, "all", false, "list out-of-view matches too")
	f.out.register(cmd)
	return cmd
}

// onlyInView drops the matches that are out of view.
func onlyInView(res *schemas.ResultEnvelope) {
	kept := res.Elements[:0]
	for _, el := range res.Elements {
		if el.InView {
			kept = append(kept, el)
		}
	}
	res.Elements = kept
}
