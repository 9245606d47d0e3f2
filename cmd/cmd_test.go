// File: cmd/cmd_test.go
package cmd

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/inview/api/schemas"
)

// testPage lays out, in the default 1280x800 static viewport: #a 0-100,
// #b 100-200, the scroll box #box 200-300 and #far at 2300.
const testPage = `<!DOCTYPE html>
<html><head><style>
  body { margin: 0; }
  .item { height: 100px; }
  #box { height: 100px; overflow-y: scroll; }
  #box p { height: 60px; margin: 0; }
  #far { margin-top: 2000px; height: 50px; }
</style></head>
<body>
  <div class="item" id="a"></div>
  <div class="item" id="b"></div>
  <div id="box"><p>one</p><p>two</p><p>three</p></div>
  <div id="far"></div>
</body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(testPage), 0o644))
	return path
}

// executeCommand runs a fresh command tree from an empty working directory so
// no stray config.yaml is picked up.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeResults(t *testing.T, out string) []schemas.ResultEnvelope {
	t.Helper()
	var results []schemas.ResultEnvelope
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var env schemas.ResultEnvelope
		require.NoError(t, jsoniter.Unmarshal(scanner.Bytes(), &env), "line: %s", scanner.Text())
		results = append(results, env)
	}
	require.NoError(t, scanner.Err())
	return results
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "inview version "+Version)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "inview "+Version+" (go"), out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "inview measures element visibility")
	for _, sub := range []string{"check", "scrollbar", "scrollbar-width", "batch", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestCheckCmd(t *testing.T) {
	page := writePage(t)

	t.Run("lists in-view matches only", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "div", page)
		require.NoError(t, err)

		results := decodeResults(t, out)
		require.Len(t, results, 1)
		res := results[0]
		assert.Equal(t, schemas.QueryInView, res.Kind)
		assert.Equal(t, page, res.Source)
		assert.Equal(t, 3, res.InViewCount)
		require.Len(t, res.Elements, 3)
		for _, el := range res.Elements {
			assert.True(t, el.InView)
		}
	})

	t.Run("all keeps out-of-view matches", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "--all", "div", page)
		require.NoError(t, err)

		res := decodeResults(t, out)[0]
		require.Len(t, res.Elements, 4)
		assert.False(t, res.Elements[3].InView)
		assert.Equal(t, 3, res.Elements[3].Index)
	})

	t.Run("container and partially", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "--all", "--container", "#box", "p", page)
		require.NoError(t, err)
		assert.Equal(t, 1, decodeResults(t, out)[0].InViewCount)

		out, err = executeCommand(t, "", "check", "--container", "#box", "--partially", "p", page)
		require.NoError(t, err)
		assert.Equal(t, 2, decodeResults(t, out)[0].InViewCount)
	})

	t.Run("tolerance reaches the far element", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "--tolerance", "1600px", "#far", page)
		require.NoError(t, err)
		assert.Equal(t, 1, decodeResults(t, out)[0].InViewCount)
	})

	t.Run("markup from stdin as text", func(t *testing.T) {
		out, err := executeCommand(t, testPage, "check", "--format", "text", "--all", ".item", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "[job-1] INVIEW")
		assert.Contains(t, out, "#0 <div>")
		assert.Contains(t, out, "2 of 2 in view")
	})

	t.Run("output file", func(t *testing.T) {
		report := filepath.Join(t.TempDir(), "report.jsonl")
		out, err := executeCommand(t, "", "check", "--output", report, "#a", page)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(report)
		require.NoError(t, err)
		assert.Equal(t, 1, decodeResults(t, string(data))[0].InViewCount)
	})

	t.Run("failed jobs fail the command but are reported", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.html")
		out, err := executeCommand(t, "", "check", "#a", page, missing)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2 jobs failed")

		results := decodeResults(t, out)
		require.Len(t, results, 2)
		assert.Empty(t, results[0].Error)
		assert.Contains(t, results[1].Error, "loading")
	})

	t.Run("bad option", func(t *testing.T) {
		out, err := executeCommand(t, "", "check", "--box", "margin-box", "#a", page)
		require.Error(t, err)
		assert.Contains(t, decodeResults(t, out)[0].Error, "box")
	})

	t.Run("needs a selector and a source", func(t *testing.T) {
		_, err := executeCommand(t, "", "check", "#a")
		assert.Error(t, err)
	})
}

func TestScrollbarCmds(t *testing.T) {
	page := writePage(t)

	out, err := executeCommand(t, "", "scrollbar", "--selector", "#box", "--axis", "vertical", page)
	require.NoError(t, err)
	res := decodeResults(t, out)[0]
	assert.Equal(t, &schemas.ScrollbarResult{Vertical: true, Width: 15}, res.Scrollbar)

	out, err = executeCommand(t, "", "scrollbar", page)
	require.NoError(t, err)
	res = decodeResults(t, out)[0]
	require.NotNil(t, res.Scrollbar)
	assert.True(t, res.Scrollbar.Vertical, "the page is taller than the viewport")
	assert.False(t, res.Scrollbar.Horizontal)

	out, err = executeCommand(t, "", "scrollbar", "--axis", "diagonal", page)
	require.Error(t, err)
	assert.Contains(t, decodeResults(t, out)[0].Error, "unknown axis")

	out, err = executeCommand(t, "", "scrollbar-width", "--format", "text", page)
	require.NoError(t, err)
	assert.Contains(t, out, "scrollbar width: 15px")
}

func TestConfigSources(t *testing.T) {
	page := writePage(t)

	t.Run("config file", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "inview.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("static:\n  scrollbar_width: 17\n"), 0o644))

		out, err := executeCommand(t, "", "--config", cfgPath, "scrollbar-width", page)
		require.NoError(t, err)
		res := decodeResults(t, out)[0]
		require.NotNil(t, res.ScrollbarWidth)
		assert.Equal(t, 17.0, *res.ScrollbarWidth)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("INVIEW_STATIC_SCROLLBAR_WIDTH", "12")

		out, err := executeCommand(t, "", "scrollbar-width", page)
		require.NoError(t, err)
		assert.Equal(t, 12.0, *decodeResults(t, out)[0].ScrollbarWidth)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		_, err := executeCommand(t, "", "--concurrency", "-1", "scrollbar-width", page)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.concurrency")
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := executeCommand(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "scrollbar-width", page)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestBatchCmd(t *testing.T) {
	page := writePage(t)
	jobs := []schemas.Job{
		{ID: "visible", Kind: schemas.QueryInView, SourceType: schemas.SourceFile, Source: page, Selector: ".item"},
		{ID: "inline", Kind: schemas.QueryScrollbarWidth, SourceType: schemas.SourceHTML, Source: testPage},
		{ID: "box", Kind: schemas.QueryScrollbar, SourceType: schemas.SourceHTML, Source: testPage, Selector: "#box"},
	}
	data, err := jsoniter.Marshal(jobs)
	require.NoError(t, err)
	jobsFile := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(jobsFile, data, 0o644))

	for name, args := range map[string][]string{
		"file":  {"batch", jobsFile},
		"stdin": {"batch", "-"},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := executeCommand(t, string(data), args...)
			require.NoError(t, err)

			byID := map[string]schemas.ResultEnvelope{}
			for _, res := range decodeResults(t, out) {
				byID[res.JobID] = res
			}
			require.Len(t, byID, 3)
			assert.Equal(t, 2, byID["visible"].InViewCount)
			assert.Equal(t, 15.0, *byID["inline"].ScrollbarWidth)
			assert.True(t, byID["box"].Scrollbar.Vertical)
		})
	}

	t.Run("malformed file", func(t *testing.T) {
		_, err := executeCommand(t, "{not json", "batch", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding jobs")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := executeCommand(t, "[]", "batch", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no jobs")
	})
}

func TestSourceJobs(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("<p>hi</p>"))

	jobs, err := sourceJobs(cmd, schemas.Job{Kind: schemas.QueryScrollbarWidth}, []string{
		"https://example.com/", "HTTP://EXAMPLE.COM", "./page.html", "-",
	})
	require.NoError(t, err)

	want := []struct {
		id     string
		typ    schemas.SourceType
		source string
	}{
		{"job-1", schemas.SourceURL, "https://example.com/"},
		{"job-2", schemas.SourceURL, "HTTP://EXAMPLE.COM"},
		{"job-3", schemas.SourceFile, "./page.html"},
		{"job-4", schemas.SourceHTML, "<p>hi</p>"},
	}
	require.Len(t, jobs, len(want))
	for i, w := range want {
		assert.Equal(t, w.id, jobs[i].ID)
		assert.Equal(t, w.typ, jobs[i].SourceType)
		assert.Equal(t, w.source, jobs[i].Source)
		assert.Equal(t, schemas.QueryScrollbarWidth, jobs[i].Kind)
	}

	_, err = sourceJobs(cmd, schemas.Job{}, []string{"-", "-"})
	assert.ErrorContains(t, err, "only be used as a source once")
}
