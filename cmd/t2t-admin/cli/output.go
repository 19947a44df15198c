package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
)

// errAborted is returned when the operator declines a confirmation.
var errAborted = errors.New("aborted")

// printTable writes rows as an aligned, borderless table.
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirm asks a yes/no question. Skipped entirely when yes is set.
func confirm(label string, yes bool) error {
	if yes {
		return nil
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return errAborted
		}
		return fmt.Errorf("confirmation: %w", err)
	}
	return nil
}
