package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hypecast/internal/chart"
	"hypecast/internal/hypem"
	"hypecast/internal/media"
	"hypecast/internal/ui"
)

var flagChartResolve bool

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Save and browse chart snapshots",
}

var chartAddCmd = &cobra.Command{
	Use:     "add <position>=<track-url-or-id>...",
	Short:   "Save a new chart",
	Example: `  hypecast chart add 1=2c87x 2=http://hypem.com/track/zz999`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    chartAddRun,
}

var chartListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved charts",
	Args:  cobra.NoArgs,
	RunE:  chartListRun,
}

var chartShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a chart (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  chartShowRun,
}

var chartDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a chart",
	Args:  cobra.ExactArgs(1),
	RunE:  chartDeleteRun,
}

func init() {
	chartShowCmd.Flags().BoolVarP(&flagChartResolve, "resolve", "r", false, "Resolve every song's hosting URL")

	chartCmd.AddCommand(chartAddCmd)
	chartCmd.AddCommand(chartListCmd)
	chartCmd.AddCommand(chartShowCmd)
	chartCmd.AddCommand(chartDeleteCmd)
}

func openStore(ctx context.Context) (*chart.Store, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	return chart.Open(ctx, path)
}

func parseChartID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid chart id %q", s)
	}
	return id, nil
}

func chartAddRun(cmd *cobra.Command, args []string) error {
	ids := hypem.NewIDExtractor(cfg.Hypem.TrackURL)

	songs := make(map[int]media.Song, len(args))
	for _, arg := range args {
		pos, value, err := chart.ParseEntry(arg)
		if err != nil {
			return err
		}
		if _, dup := songs[pos]; dup {
			return fmt.Errorf("position %d given twice", pos)
		}
		id := ids.Normalize(value)
		if id == "" {
			return fmt.Errorf("position %d: %q is not a track URL or identifier", pos, value)
		}
		songs[pos] = media.Song{ID: id}
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := store.Save(cmd.Context(), songs)
	if err != nil {
		return fmt.Errorf("saving chart: %w", err)
	}
	fmt.Println(ui.Chart(c, nil))
	return nil
}

func chartListRun(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(ui.ChartList(list))
	return nil
}

func chartShowRun(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	var c *chart.Chart
	if len(args) == 1 {
		id, err := parseChartID(args[0])
		if err != nil {
			return err
		}
		c, err = store.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
	} else {
		c, err = store.Latest(cmd.Context())
		if errors.Is(err, chart.ErrNotFound) {
			fmt.Println("No charts saved.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	if !flagChartResolve {
		fmt.Println(ui.Chart(c, nil))
		return nil
	}

	r, _, err := newResolver(nil)
	if err != nil {
		return err
	}

	positions := c.Positions()
	inputs := make([]string, len(positions))
	for i, pos := range positions {
		inputs[i] = c.Songs[pos].ID
	}

	traces, err := traceAll(cmd, r, inputs)
	if err != nil {
		return err
	}
	recordHistory(traces...)

	urls := make(map[int]string, len(traces))
	for i, t := range traces {
		if t.URL != nil {
			urls[positions[i]] = t.URL.String()
		}
	}
	fmt.Println(ui.Chart(c, urls))
	return nil
}

func chartDeleteRun(cmd *cobra.Command, args []string) error {
	id, err := parseChartID(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted chart #%d\n", id)
	return nil
}
