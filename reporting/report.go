// Package reporting renders run results as line oriented text.
package reporting

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/killrvideo/vector-acceptor/registry"
	"github.com/killrvideo/vector-acceptor/runner"
	"github.com/killrvideo/vector-acceptor/types"
)

const (
	rule = "======================================================================"

	// maxErrorListLen bounds error text repeated in the summary list
	maxErrorListLen = 200
)

var counterLabels = map[types.ResultState]string{
	types.StatePass:           "Passed",
	types.StateFail:           "Failed",
	types.StateExpectedFail:   "Expected failures",
	types.StateUnexpectedPass: "Unexpected passes",
}

// Options control how results are rendered
type Options struct {
	Verbose bool
	Color   bool
}

// Render returns the per case fragments followed by the summary block.
// It only reads the summary.
func Render(summary *runner.Summary, opts Options) string {
	var b strings.Builder
	for _, result := range summary.Results {
		b.WriteString(FormatCase(result, opts.Verbose))
	}
	b.WriteString(FormatSummary(summary, opts))
	return b.String()
}

// FormatCase returns the fragment printed for a single case.
// In normal mode PASS and EXPECTED_FAIL collapse to a single dot.
func FormatCase(result types.CaseResult, verbose bool) string {
	var b strings.Builder
	name := result.Case.Name
	if verbose {
		fmt.Fprintf(&b, "  %s: %s\n", result.State.Label(), name)
		if result.Outcome.Succeeded() {
			if result.Outcome.Detail != "" {
				fmt.Fprintf(&b, "    Details: %s\n", result.Outcome.Detail)
			}
		} else if result.Outcome.Error != "" {
			fmt.Fprintf(&b, "    Error: %s\n", result.Outcome.Error)
		}
		return b.String()
	}

	switch result.State {
	case types.StatePass, types.StateExpectedFail:
		return "."
	case types.StateUnexpectedPass:
		fmt.Fprintf(&b, "\n  %s: %s\n", result.State.Label(), name)
	default:
		fmt.Fprintf(&b, "\n  %s: %s\n", types.StateFail.Label(), name)
		if result.Outcome.Error != "" {
			fmt.Fprintf(&b, "    Error: %s\n", result.Outcome.Error)
		}
	}
	return b.String()
}

// FormatSummary returns the closing block with the four counters, the lists of
// violated expectations and a breakdown table by surface and dimension
func FormatSummary(summary *runner.Summary, opts Options) string {
	var b strings.Builder
	b.WriteString("\n\n" + rule + "\n")
	b.WriteString("TEST SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total tests: %d\n", summary.Total)
	for _, state := range types.AllResultStates {
		n := summary.Count(state)
		fmt.Fprintf(&b, "%s: %d", counterLabels[state], n)
		if state == types.StateUnexpectedPass && n > 0 {
			b.WriteString(" (investigate!)")
		}
		b.WriteString("\n")
	}
	if summary.Interrupted {
		b.WriteString("Run interrupted: remaining cases were not executed\n")
	}

	if failed := summary.ResultsIn(types.StateFail); len(failed) > 0 {
		b.WriteString("\nFailed tests:\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "  - %s\n", r.Case.Name)
			if r.Outcome.Error != "" {
				fmt.Fprintf(&b, "    %s\n", truncate(r.Outcome.Error, maxErrorListLen))
			}
		}
	}
	if unexpected := summary.ResultsIn(types.StateUnexpectedPass); len(unexpected) > 0 {
		b.WriteString("\nUnexpected passes (tests expected to fail but passed):\n")
		for _, r := range unexpected {
			fmt.Fprintf(&b, "  - %s\n", r.Case.Name)
		}
	}

	if summary.Total > 0 {
		b.WriteString("\n")
		b.WriteString(breakdownTable(summary, opts.Color))
		b.WriteString("\n")
	}
	b.WriteString(rule + "\n")
	return b.String()
}

// BannerInfo describes the run configuration echoed before the first case
type BannerInfo struct {
	Timestamp       time.Time
	Keyspace        string
	Dimensions      []int
	TablesDriver    string
	SkipTables      bool
	SkipCollections bool
	Verbose         bool
}

// Banner returns the run header
func Banner(info BannerInfo) string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("VECTOR COMPATIBILITY TEST\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", info.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Keyspace: %s\n", info.Keyspace)
	fmt.Fprintf(&b, "Vector dimensions to test: %v\n", info.Dimensions)
	if info.TablesDriver != "" {
		fmt.Fprintf(&b, "Tables driver: %s\n", info.TablesDriver)
	}
	fmt.Fprintf(&b, "Skip Tables API: %t\n", info.SkipTables)
	fmt.Fprintf(&b, "Skip Collections API: %t\n", info.SkipCollections)
	fmt.Fprintf(&b, "Verbose: %t\n", info.Verbose)
	b.WriteString(rule + "\n\n")
	return b.String()
}

type breakdownKey struct {
	surface   types.ApiSurface
	dimension int
}

func breakdownTable(summary *runner.Summary, color bool) string {
	counts := make(map[breakdownKey]map[types.ResultState]int)
	var keys []breakdownKey
	for _, r := range summary.Results {
		k := breakdownKey{surface: r.Case.Surface, dimension: r.Case.Dimension}
		if _, ok := counts[k]; !ok {
			counts[k] = make(map[types.ResultState]int)
			keys = append(keys, k)
		}
		counts[k][r.State]++
	}
	slices.SortStableFunc(keys, func(a, b breakdownKey) int {
		if a.surface != b.surface {
			return slices.Index(types.AllSurfaces, a.surface) - slices.Index(types.AllSurfaces, b.surface)
		}
		return a.dimension - b.dimension
	})

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Vector Compatibility Results (%s)", formatDuration(summary.Duration())))
	t.AppendHeader(table.Row{"Surface", "Dimension", "Cases", "Passed", "Failed", "Expected Fail", "Unexpected Pass", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Surface", AutoMerge: true},
		{Name: "Dimension", Align: text.AlignRight},
		{Name: "Cases", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Expected Fail", Align: text.AlignRight},
		{Name: "Unexpected Pass", Align: text.AlignRight},
	})

	for _, k := range keys {
		c := counts[k]
		total := 0
		for _, n := range c {
			total += n
		}
		t.AppendRow(table.Row{
			registry.SurfaceTitle(k.surface),
			k.dimension,
			total,
			c[types.StatePass],
			c[types.StateFail],
			c[types.StateExpectedFail],
			c[types.StateUnexpectedPass],
			statusString(c[types.StateFail]+c[types.StateUnexpectedPass] == 0),
		})
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		summary.Total,
		summary.Passed,
		summary.Failed,
		summary.ExpectedFailures,
		summary.UnexpectedPasses,
		statusString(!summary.HasViolations() && !summary.Interrupted),
	})

	if !summary.HasViolations() && !summary.Interrupted {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	out := t.Render()
	if !color {
		out = stripansi.Strip(out)
	}
	return out
}

func statusString(ok bool) string {
	if ok {
		return "✓ ok"
	}
	return "✗ violated"
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
