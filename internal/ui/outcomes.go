package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dlipower/internal/powerswitch"
)

// RenderOutcomes lists the per-outlet results of a dispatch in outlet order,
// one line each with a marker for succeeded, already in state or failed.
func RenderOutcomes(res *powerswitch.DispatchResult) string {
	if res == nil || len(res.Outcomes) == 0 {
		return NoteStyle.Render("  nothing was switched")
	}

	outcomes := append([]powerswitch.Outcome(nil), res.Outcomes...)
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		lines = append(lines, renderOutcome(res.Command, o))
	}
	return strings.Join(lines, "\n")
}

func renderOutcome(cmd powerswitch.Command, o powerswitch.Outcome) string {
	label := fmt.Sprintf("outlet %d", o.Index)
	if o.Ref.IsName() {
		label = fmt.Sprintf("outlet %d (%s)", o.Index, o.Ref)
	}

	var marker, text string
	var style lipgloss.Style
	switch {
	case !cmd.Boolean():
		marker, style = SuccessMarker, StateStyle(powerswitch.State(o.Value))
		text = o.Value
	case o.Result == powerswitch.Succeeded:
		marker, style = SuccessMarker, SuccessTitleStyle
		text = cmd.String()
	case o.Result == powerswitch.AlreadyInState:
		marker, style = SkippedMarker, StateOffStyle
		text = "already " + cmd.String()
	default:
		marker, style = FailureMarker, ErrorTitleStyle
		text = cmd.String() + " failed"
	}
	if o.Err != nil {
		marker, style = FailureMarker, ErrorTitleStyle
		text += ": " + powerswitch.GetShortErrorMessage(o.Err)
	}

	return fmt.Sprintf("  %s %-22s %s", style.Render(marker), label, style.Render(text))
}
