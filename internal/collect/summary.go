package collect

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/standardbeagle/unitsync/internal/errors"
)

// FocalSummary aggregates the results of a focal collection run
type FocalSummary struct {
	Repos   int
	ByState map[Status]int
	Tests   int
	Focals  int
}

// Summarize counts statuses and totals
func Summarize(results []RepoResult) FocalSummary {
	s := FocalSummary{Repos: len(results), ByState: make(map[Status]int)}
	for _, r := range results {
		s.ByState[r.Status]++
		s.Tests += r.Tests
		s.Focals += r.Focals
	}
	return s
}

// Lines renders the end-of-run report
func (s FocalSummary) Lines() []string {
	lines := make([]string, 0, 3)
	if n := s.ByState[StatusTimeout]; n > 0 {
		lines = append(lines, fmt.Sprintf("%d repos timeout", n))
	}
	lines = append(lines,
		fmt.Sprintf("Processed %d repos with %d skipped, %d not found, and %d failed to locate any focal functions",
			s.Repos, s.ByState[StatusSkipped], s.ByState[StatusRepoNotFound], s.ByState[StatusNoFocal]),
		fmt.Sprintf("Collected %d focal functions for %d tests", s.Focals, s.Tests),
	)
	return lines
}

// RenderResults writes a per-repository table
func RenderResults(w io.Writer, results []RepoResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repo", "Status", "Files", "Tests", "Focals", "Time"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	s := Summarize(results)
	for _, r := range results {
		table.Append([]string{
			r.RepoID,
			r.Status.String(),
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Tests),
			strconv.Itoa(r.Focals),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	table.SetFooter([]string{fmt.Sprintf("%d repos", s.Repos), "", "", strconv.Itoa(s.Tests), strconv.Itoa(s.Focals), ""})
	table.Render()
}

// SyncSummary aggregates a dataset sync run
type SyncSummary struct {
	Repos        int
	ReposMissing int
	Total        int
	Written      int
	Duplicates   int
	Failures     map[errors.ResolveKind]int
	// Reasons keeps one example reason per failure kind
	Reasons map[errors.ResolveKind]string
}

func newSyncSummary() SyncSummary {
	return SyncSummary{
		Failures: make(map[errors.ResolveKind]int),
		Reasons:  make(map[errors.ResolveKind]string),
	}
}

func (s *SyncSummary) add(o SyncSummary) {
	s.Repos += o.Repos
	s.ReposMissing += o.ReposMissing
	s.Total += o.Total
	s.Written += o.Written
	s.Duplicates += o.Duplicates
	for k, v := range o.Failures {
		s.Failures[k] += v
	}
	for k, v := range o.Reasons {
		if _, ok := s.Reasons[k]; !ok {
			s.Reasons[k] = v
		}
	}
}

// Failed totals every failure kind
func (s SyncSummary) Failed() int {
	n := 0
	for _, v := range s.Failures {
		n += v
	}
	return n
}

// Lines renders the end-of-run report
func (s SyncSummary) Lines() []string {
	return []string{
		fmt.Sprintf("Processed %d/%d repos", s.Repos-s.ReposMissing, s.Repos),
		fmt.Sprintf("Collected %d/%d code-test pairs (%d duplicates dropped)", s.Written, s.Total, s.Duplicates),
	}
}

// RenderFailures writes a table of failure kinds with an example reason each
func (s SyncSummary) RenderFailures(w io.Writer) {
	if len(s.Failures) == 0 {
		return
	}
	kinds := make([]string, 0, len(s.Failures))
	for k := range s.Failures {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Failure", "Count", "Example"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, k := range kinds {
		kind := errors.ResolveKind(k)
		table.Append([]string{k, strconv.Itoa(s.Failures[kind]), s.Reasons[kind]})
	}
	table.Render()
}
