package quality

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Render writes one row per project and a total footer
func (r Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Project", "Pairs", "Test lines", "Code lines", "Asserts", "Test/code", "Density", "Name affinity"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, p := range r.Projects {
		table.Append(row(p))
	}
	table.SetFooter(row(r.Total))
	table.Render()
}

func row(p ProjectStat) []string {
	return []string{
		p.Repo,
		strconv.Itoa(p.Pairs),
		strconv.Itoa(p.TestLines),
		strconv.Itoa(p.CodeLines),
		strconv.Itoa(p.Assertions),
		fmt.Sprintf("%.2f", p.TestToCode()),
		fmt.Sprintf("%.3f", p.AssertionDensity()),
		fmt.Sprintf("%.1f%%", 100*p.NameAffinityRate()),
	}
}
