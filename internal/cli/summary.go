package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/malbeclabs/wlfixtures/internal/pipeline"
	"github.com/malbeclabs/wlfixtures/internal/snapshot"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func printSteps(w io.Writer, steps []pipeline.StepTiming) {
	if len(steps) == 0 {
		return
	}
	table := newTable(w, []string{"Step", "Variant", "Duration", "Result"})
	var total time.Duration
	for _, s := range steps {
		result := "ok"
		if s.Err != nil {
			result = "failed: " + pipeline.ErrorType(s.Err)
		}
		table.Append([]string{s.Step, s.Variant, s.Duration.Round(time.Millisecond).String(), result})
		total += s.Duration
	}
	table.SetFooter([]string{"", "", total.Round(time.Millisecond).String(), ""})
	table.Render()
}

func printFiles(w io.Writer, files []snapshot.File) {
	if len(files) == 0 {
		return
	}
	table := newTable(w, []string{"Key", "Address", "File"})
	for _, f := range files {
		table.Append([]string{f.Entry.Key, f.Entry.Address, f.Path})
	}
	table.Render()
	fmt.Fprintf(w, "%d fixtures\n", len(files))
}
