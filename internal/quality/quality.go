// Package quality computes per-project statistics over a dataset: test and code
// sizes, assertion density and how often tests are named after their focal
// function.
package quality

import (
	stderrors "errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/types"
)

// ProjectStat aggregates the pairs of one project
type ProjectStat struct {
	Repo        string
	Pairs       int
	TestLines   int
	CodeLines   int
	Assertions  int
	NameMatches int
}

// TestToCode is test lines per code line
func (p ProjectStat) TestToCode() float64 {
	return ratio(p.TestLines, p.CodeLines)
}

// AssertionDensity is assertions per test line
func (p ProjectStat) AssertionDensity() float64 {
	return ratio(p.Assertions, p.TestLines)
}

// NameAffinityRate is the share of pairs whose test is named after the focal
func (p ProjectStat) NameAffinityRate() float64 {
	return ratio(p.NameMatches, p.Pairs)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func (p *ProjectStat) add(o ProjectStat) {
	p.Pairs += o.Pairs
	p.TestLines += o.TestLines
	p.CodeLines += o.CodeLines
	p.Assertions += o.Assertions
	p.NameMatches += o.NameMatches
}

// Report is the analysis of one dataset
type Report struct {
	Language types.Language
	Projects []ProjectStat
	Total    ProjectStat
}

// CountAssertions counts assertion keywords in a test, case-insensitively.
// JavaScript and C++ also count "expect", and JavaScript counts "test".
func CountAssertions(lang types.Language, test string) int {
	lower := strings.ToLower(test)
	n := strings.Count(lower, "assert")
	switch lang {
	case types.JavaScript:
		n += strings.Count(lower, "expect") + strings.Count(lower, "test")
	case types.Cpp:
		n += strings.Count(lower, "expect")
	}
	return n
}

// countLines counts lines the way a line splitter does: a trailing newline does
// not start a new line
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// ProjectOf returns the project a test id belongs to: its first path segment
func ProjectOf(testID string) string {
	project, _, _ := strings.Cut(testID, "/")
	return project
}

// Analyze groups records by project, sorted by project name
func Analyze(lang types.Language, records []types.DatasetRecord) Report {
	byRepo := make(map[string]*ProjectStat)
	for _, r := range records {
		repo := ProjectOf(r.TestID)
		stat, ok := byRepo[repo]
		if !ok {
			stat = &ProjectStat{Repo: repo}
			byRepo[repo] = stat
		}
		one := ProjectStat{
			Pairs:      1,
			TestLines:  countLines(r.Test),
			CodeLines:  countLines(r.Code),
			Assertions: CountAssertions(lang, r.Test),
		}
		if NameAffinity(r.TestID, r.CodeID) {
			one.NameMatches = 1
		}
		stat.add(one)
	}

	report := Report{Language: lang, Total: ProjectStat{Repo: "total"}}
	for _, stat := range byRepo {
		report.Projects = append(report.Projects, *stat)
		report.Total.add(*stat)
	}
	sort.Slice(report.Projects, func(i, j int) bool {
		return report.Projects[i].Repo < report.Projects[j].Repo
	})
	return report
}

// LoadDataset reads a dataset JSONL file
func LoadDataset(path string) ([]types.DatasetRecord, error) {
	records, err := types.ReadJSONL[types.DatasetRecord](path)
	var pathErr *fs.PathError
	if stderrors.As(err, &pathErr) {
		return nil, errors.NewFileError(pathErr.Op, path, err)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
