package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/output"
	"github.com/Aman-CERP/orderdesk/internal/store"
	"github.com/Aman-CERP/orderdesk/internal/telemetry"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		days   int
		top    int
		format string
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show local search statistics",
		Long: `Show how searches were used: query counts, latency, the most frequent
terms and recent searches that found nothing. Searches without results
often point at catalog names that differ from what people type.

Statistics never leave this machine. Disable them with
'search.telemetry: false' in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if days < 1 {
				return deskerrors.ValidationError(fmt.Sprintf("--days must be at least 1, got %d", days), nil)
			}
			ctx := cmd.Context()

			st, err := store.Open(a.cfg.StorePath())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			sink, err := telemetry.NewSQLiteStore(ctx, st.DB())
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if reset {
				if err := sink.Reset(ctx); err != nil {
					return err
				}
				out.Success("Search statistics cleared")
				return nil
			}

			now := time.Now()
			from := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")
			report, err := sink.Report(ctx, from, now.Format("2006-01-02"), top, top)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return out.JSON(report)
			}
			printStats(out, report)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Number of days to count queries for")
	cmd.Flags().IntVar(&top, "top", 10, "Number of terms and zero-result queries to show")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all search statistics")
	addFormatFlag(cmd, &format)

	return cmd
}

func printStats(out *output.Writer, r telemetry.Report) {
	out.Statusf("📊", "Searches %s to %s: %d (%d products, %d suppliers)",
		r.From, r.To, r.Total, r.Kinds[telemetry.KindProducts], r.Kinds[telemetry.KindSuppliers])
	if r.Total == 0 {
		return
	}

	out.Newline()
	rows := make([][]string, 0, len(telemetry.LatencyBuckets()))
	for _, b := range telemetry.LatencyBuckets() {
		rows = append(rows, []string{string(b), strconv.FormatInt(r.Latency[b], 10)})
	}
	out.Table([]string{"LATENCY", "QUERIES"}, rows)

	if len(r.TopTerms) > 0 {
		out.Newline()
		rows = rows[:0]
		for _, tc := range r.TopTerms {
			rows = append(rows, []string{tc.Term, strconv.FormatInt(tc.Count, 10)})
		}
		out.Table([]string{"TERM", "COUNT"}, rows)
	}

	if len(r.ZeroResults) > 0 {
		out.Newline()
		out.Warning("Recent searches without results:")
		for _, z := range r.ZeroResults {
			out.Statusf("", "%s  %-9s  %s", z.Timestamp.Local().Format("2006-01-02 15:04"), z.Kind, z.Query)
		}
	}
}
