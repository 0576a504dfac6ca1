package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
)

var (
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// ui writes human-readable output.
type ui struct {
	out    io.Writer
	errOut io.Writer
}

func newUI(out, errOut io.Writer) *ui {
	return &ui{out: out, errOut: errOut}
}

func (u *ui) success(format string, a ...any) {
	fmt.Fprintf(u.out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *ui) warning(format string, a ...any) {
	fmt.Fprintf(u.errOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

// table creates a borderless, left-aligned table.
func (u *ui) table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// swatch renders name in the label's own color.
func swatch(l model.Label) string {
	rgb, err := strconv.ParseUint(l.Color, 16, 32)
	if err != nil {
		return l.Name
	}
	return color.RGB(int(rgb>>16&0xff), int(rgb>>8&0xff), int(rgb&0xff)).Sprint(l.Name)
}

// tierColor colors a tier by urgency.
func tierColor(t model.Tier) string {
	switch t {
	case model.TierFresh:
		return green(string(t))
	case model.TierNeedsAttention:
		return yellow(string(t))
	case model.TierStale, model.TierDire:
		return red(string(t))
	default:
		return string(t)
	}
}

// outcomeColor colors a sweep outcome.
func outcomeColor(o model.SweepOutcome) string {
	switch o {
	case model.OutcomeRelabeled:
		return cyan(string(o))
	case model.OutcomeFailed:
		return red(string(o))
	default:
		return string(o)
	}
}
