package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trafficwatch-cli/internal/client"
	"trafficwatch-cli/pkg/models"
)

// Variables to hold flag values
var (
	countStart   string
	countEnd     string
	countCameras string
	countClasses string
	countBucket  string
	countLimit   int
	exportFormat string
	exportOutput string
)

// Parent Command
var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Vehicle crossing statistics",
	Long:  `Aggregate crossing counts by class, camera or time, list recent events, or export them.`,
}

// requireBackend gates statistics on the liveness probe, so a dead
// backend reports one clear error instead of four.
func requireBackend(api *client.TrafficClient) {
	if _, err := api.GetHealth(); err != nil {
		fmt.Printf("Backend unavailable: %v\n", err)
		os.Exit(1)
	}
}

// buildQuery assembles the shared time-range and filter parameters.
func buildQuery() client.CountQuery {
	start, err := parseRangeTime(countStart, false)
	if err != nil {
		fmt.Printf("Error: invalid --start: %v\n", err)
		os.Exit(1)
	}
	end, err := parseRangeTime(countEnd, true)
	if err != nil {
		fmt.Printf("Error: invalid --end: %v\n", err)
		os.Exit(1)
	}

	q := client.CountQuery{Start: start, End: end}
	if countCameras != "" {
		q.CameraIDs = splitCSV(countCameras)
	}
	if countClasses != "" {
		q.Classes = splitCSV(countClasses)
		for _, class := range q.Classes {
			if !models.VehicleClass(class).Valid() {
				fmt.Printf("Warning: unknown vehicle class %q\n", class)
			}
		}
	}
	return q
}

// parseRangeTime accepts RFC 3339 or a bare date. Bare dates expand to
// the start or end of that day.
func parseRangeTime(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Classes Command
var countsClassesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Crossing totals grouped by vehicle class",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		requireBackend(api)

		items, err := api.CountsByClass(buildQuery())
		if err != nil {
			fmt.Printf("Error fetching counts: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(items)
			return
		}

		total := 0
		for _, item := range items {
			total += item.Total
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CLASS\tTOTAL\tSHARE")
		fmt.Fprintln(w, "-----\t-----\t-----")
		for _, item := range items {
			share := 0.0
			if total > 0 {
				share = float64(item.Total) / float64(total) * 100
			}
			fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", item.Class, item.Total, share)
		}
		fmt.Fprintf(w, "all\t%d\t\n", total)
		w.Flush()
	},
}

// Cameras Command
var countsCamerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Crossing totals grouped by camera",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		requireBackend(api)

		items, err := api.CountsByCamera(buildQuery())
		if err != nil {
			fmt.Printf("Error fetching counts: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(items)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CAMERA\tTOTAL")
		fmt.Fprintln(w, "------\t-----")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%d\n", item.CameraID, item.Total)
		}
		w.Flush()
	},
}

// Timeline Command
var countsTimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Per-class crossing totals bucketed over time",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		requireBackend(api)

		items, err := api.CountsByTime(buildQuery(), countBucket)
		if err != nil {
			fmt.Printf("Error fetching counts: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(items)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tTOTAL\tBY CLASS")
		fmt.Fprintln(w, "----\t-----\t--------")
		for _, bucket := range items {
			total := 0
			classes := make([]string, 0, len(bucket.ByClass))
			for class := range bucket.ByClass {
				classes = append(classes, class)
			}
			sort.Strings(classes)

			var parts []string
			for _, class := range classes {
				total += bucket.ByClass[class]
				parts = append(parts, fmt.Sprintf("%s=%d", class, bucket.ByClass[class]))
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", bucket.Time, total, strings.Join(parts, " "))
		}
		w.Flush()
	},
}

// Recent Command
var countsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Newest crossing events, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		requireBackend(api)

		items, err := api.RecentCounts(buildQuery(), countLimit)
		if err != nil {
			fmt.Printf("Error fetching recent counts: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(items)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tCAMERA\tLINE\tTRACK\tCLASS\tTIME")
		fmt.Fprintln(w, "--\t------\t----\t-----\t-----\t----")
		for _, ev := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				ev.CountID, ev.CameraID, ev.LineID, ev.TrackID, ev.Class, ev.Time)
		}
		w.Flush()
	},
}

// Export Command
var countsExportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export recent crossing events to CSV or JSON",
	Example: `  trafficwatch-cli counts export --start 2026-08-01 --end 2026-08-31 --format csv --output august.csv`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		requireBackend(api)

		items, err := api.RecentCounts(buildQuery(), countLimit)
		if err != nil {
			fmt.Printf("Error fetching counts for export: %v\n", err)
			os.Exit(1)
		}

		outPath := exportOutput
		if outPath == "" {
			outPath = fmt.Sprintf("counts_%s.%s", time.Now().Format("2006-01-02"), exportFormat)
		}

		out, err := os.Create(outPath)
		if err != nil {
			fmt.Printf("Error creating %s: %v\n", outPath, err)
			os.Exit(1)
		}
		defer out.Close()

		switch exportFormat {
		case "csv":
			cw := csv.NewWriter(out)
			cw.Write([]string{"count_id", "camera_id", "line_id", "track_id", "class", "time"})
			for _, ev := range items {
				cw.Write([]string{ev.CountID, ev.CameraID, ev.LineID, fmt.Sprint(ev.TrackID), ev.Class, ev.Time})
			}
			cw.Flush()
			if err := cw.Error(); err != nil {
				fmt.Printf("Error writing CSV: %v\n", err)
				os.Exit(1)
			}
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(items); err != nil {
				fmt.Printf("Error writing JSON: %v\n", err)
				os.Exit(1)
			}
		default:
			fmt.Printf("Error: unknown format %q (csv or json)\n", exportFormat)
			os.Exit(1)
		}

		fmt.Printf("Exported %d events to %s\n", len(items), outPath)
	},
}

func init() {
	// Register Parent
	rootCmd.AddCommand(countsCmd)

	// Register Subcommands
	countsCmd.AddCommand(countsClassesCmd)
	countsCmd.AddCommand(countsCamerasCmd)
	countsCmd.AddCommand(countsTimelineCmd)
	countsCmd.AddCommand(countsRecentCmd)
	countsCmd.AddCommand(countsExportCmd)

	// Shared range/filter flags
	countsCmd.PersistentFlags().StringVar(&countStart, "start", "", "Range start (RFC 3339 or YYYY-MM-DD)")
	countsCmd.PersistentFlags().StringVar(&countEnd, "end", "", "Range end (RFC 3339 or YYYY-MM-DD)")
	countsCmd.PersistentFlags().StringVar(&countCameras, "cameras", "", "Comma separated camera IDs")
	countsCmd.PersistentFlags().StringVar(&countClasses, "classes", "", "Comma separated vehicle classes")

	countsTimelineCmd.Flags().StringVar(&countBucket, "bucket", "hour", "Bucket granularity (hour, day)")
	countsRecentCmd.Flags().IntVar(&countLimit, "limit", 200, "Maximum events to return")
	countsExportCmd.Flags().IntVar(&countLimit, "limit", 200, "Maximum events to export")
	countsExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format: csv or json")
	countsExportCmd.Flags().StringVar(&exportOutput, "output", "", "Output path (default counts_<date>.<format>)")
}
