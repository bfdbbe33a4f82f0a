package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hypecast/internal/history"
	"hypecast/internal/ui"
)

var (
	flagHistoryPick  bool
	flagHistoryClear bool
	flagYes          bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past resolutions",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVarP(&flagHistoryPick, "pick", "p", false, "Pick an entry with fzf and resolve it again")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Empty the history log")
	historyCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Do not ask for confirmation")
}

func historyRun(cmd *cobra.Command, args []string) error {
	if flagHistoryClear {
		return historyClear()
	}

	entries, err := history.Load()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	// Displayed newest first
	items := history.FormatForDisplay(entries)

	if !flagHistoryPick {
		for _, item := range items {
			fmt.Println(item)
		}
		return nil
	}

	idx, err := ui.Select("History", items)
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	selected := entries[len(entries)-1-idx]
	r, _, err := newResolver(nil)
	if err != nil {
		return err
	}

	traces, err := traceAll(cmd, r, []string{selected.ID})
	if err != nil {
		return err
	}
	recordHistory(traces...)
	fmt.Println(ui.Trace(traces[0], flagVerbose))
	if traces[0].URL == nil {
		return errUnresolved
	}
	return nil
}

func historyClear() error {
	if !flagYes {
		if !ui.IsTerminal(os.Stdin) {
			return fmt.Errorf("refusing to clear history without --yes")
		}
		ok, err := ui.Confirm("Clear history?")
		if err != nil || !ok {
			return err
		}
	}
	if err := history.Clear(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	fmt.Println("History cleared.")
	return nil
}
