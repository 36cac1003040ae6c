package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/infiping/internal/report"
	"github.com/hamed0406/infiping/internal/repo/csvfile"
)

func newReportCmd(f *flags) *cobra.Command {
	var (
		asJSON bool
		utc    bool
		only   []string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the probe records per address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, nil)
			if err != nil {
				return err
			}
			summaries, err := report.Summarize(cmd.Context(), csvfile.New(cfg.Output, nil))
			if err != nil {
				return err
			}
			summaries = report.Filter(summaries, only)

			if asJSON {
				if summaries == nil {
					summaries = []report.Summary{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			loc := time.Local
			if utc {
				loc = time.UTC
			}
			return report.WriteTable(cmd.OutOrStdout(), summaries, loc)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&utc, "utc", false, "print times in UTC")
	cmd.Flags().StringSliceVar(&only, "address", nil, "only report these addresses")
	return cmd
}
