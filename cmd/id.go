package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hypecast/internal/hypem"
)

var idCmd = &cobra.Command{
	Use:   "id <track-url>...",
	Short: "Print the track identifier embedded in each URL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  idRun,
}

func idRun(cmd *cobra.Command, args []string) error {
	ids := hypem.NewIDExtractor(cfg.Hypem.TrackURL)

	failed := 0
	for _, arg := range args {
		id := ids.Extract(arg)
		if id == "" {
			fmt.Fprintf(os.Stderr, "%s: not a track URL\n", arg)
			failed++
			continue
		}
		fmt.Println(id)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs had no identifier", failed, len(args))
	}
	return nil
}
