package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/runner"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteLaneSummary renders a per-lane table of a run result to w
func WriteLaneSummary(w io.Writer, result *runner.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Lane Results (%s)", formatDuration(result.WallClockTime)))

	t.AppendHeader(table.Row{
		"Lane", "Unit", "Duration", "Events", "Passed", "Failed", "Skipped", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Lane", AutoMerge: true},
		{Name: "Unit", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Events", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, lane := range result.Lanes {
		laneName := fmt.Sprintf("lane-%d", lane.Lane)
		t.AppendRow(table.Row{
			laneName,
			"",
			formatDuration(lane.Duration),
			"-",
			lane.Stats.Passed,
			lane.Stats.Failed + lane.Stats.Errored,
			lane.Stats.Skipped,
			"",
			"",
		})

		units := result.LaneUnits(lane.Lane)
		for i, unit := range units {
			prefix := "├─"
			if i == len(units)-1 {
				prefix = "└─"
			}
			errMsg := ""
			if unit.Error != nil {
				errMsg = unit.Error.Error()
			}
			t.AppendRow(table.Row{
				laneName,
				fmt.Sprintf("%s %s", prefix, unit.UnitID),
				formatDuration(unit.Duration),
				unit.Events,
				boolToInt(unit.Status == types.TestStatusPass),
				boolToInt(unit.Status == types.TestStatusFail || unit.Status == types.TestStatusError),
				boolToInt(unit.Status == types.TestStatusSkip),
				getResultString(unit.Status),
				errMsg,
			})
		}
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.WallClockTime),
		"",
		result.Stats.Passed,
		result.Stats.Failed + result.Stats.Errored,
		result.Stats.Skipped,
		getResultString(result.Status),
		"",
	})
	t.Render()
}

func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusFail:
		return "✗ fail"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusError:
		return "! error"
	default:
		return string(status)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
