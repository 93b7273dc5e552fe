package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trafficwatch-cli/internal/logger"
	"trafficwatch-cli/internal/stream"
)

// Variables to hold flag values
var (
	watchCameraID  string
	watchDuration  time.Duration
	watchFramesDir string
	watchLogDir    string
	watchEvents    int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a camera's live detection stream",
	Long: `Connects to the per-camera detection websocket and prints the live
state: FPS, visible bounding boxes, session counts and confirmed line
crossings. Runs until interrupted or --duration elapses. The stream is
not reconnected automatically; rerun the command after a drop.`,
	Example: `  trafficwatch-cli watch --camera cam_001
  trafficwatch-cli watch --camera cam_001 --duration 30s --frames-dir ./frames`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		log, err := logger.New(watchLogDir, "info")
		if err != nil {
			fmt.Printf("Error setting up logging: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()

		sc := stream.New(stream.Config{
			BaseURL: api.WSBase(),
			Header:  api.StreamHeader(),
			Logger:  log,
		})

		if err := sc.Start(watchCameraID); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		// Always tear the socket down on the way out.
		defer sc.Stop()

		if watchFramesDir != "" {
			if err := os.MkdirAll(watchFramesDir, 0755); err != nil {
				fmt.Printf("Error creating frames dir: %v\n", err)
				os.Exit(1)
			}
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		var deadline <-chan time.Time
		if watchDuration > 0 {
			deadline = time.After(watchDuration)
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		frameSeq := 0
		for {
			select {
			case <-sig:
				fmt.Println("\nStopping stream.")
				printRecentEvents(sc.Snapshot(), watchEvents)
				return
			case <-deadline:
				fmt.Println("\nDuration elapsed, stopping stream.")
				printRecentEvents(sc.Snapshot(), watchEvents)
				return
			case <-ticker.C:
				snap := sc.Snapshot()

				if snap.State == stream.StateIdle {
					if snap.Err != "" {
						fmt.Printf("Stream error: %s\n", snap.Err)
						printRecentEvents(snap, watchEvents)
						os.Exit(1)
					}
					fmt.Println("Stream closed by backend.")
					printRecentEvents(snap, watchEvents)
					return
				}

				fmt.Printf("[%s] state=%s fps=%d boxes=%d counts={%s} events=%d\n",
					time.Now().Format("15:04:05"),
					snap.State, snap.FPS, len(snap.Detections),
					formatCounts(snap.LiveCounts), len(snap.Events))

				if watchFramesDir != "" && snap.Frame != nil {
					name := filepath.Join(watchFramesDir, fmt.Sprintf("frame_%06d.jpg", frameSeq))
					if err := os.WriteFile(name, snap.Frame, 0644); err == nil {
						frameSeq++
					}
				}
			}
		}
	},
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	parts := make([]string, 0, len(classes))
	for _, class := range classes {
		parts = append(parts, fmt.Sprintf("%s:%d", class, counts[class]))
	}
	return strings.Join(parts, " ")
}

func printRecentEvents(snap stream.Snapshot, limit int) {
	if len(snap.Events) == 0 {
		return
	}
	if limit > 0 && len(snap.Events) > limit {
		snap.Events = snap.Events[:limit]
	}
	fmt.Println("Recent crossings (newest first):")
	for _, ev := range snap.Events {
		fmt.Printf("  %s  camera=%s track=%d class=%s\n", ev.Time, ev.CameraID, ev.TrackID, ev.Class)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchCameraID, "camera", "", "ID of the camera to stream")
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
	watchCmd.Flags().StringVar(&watchFramesDir, "frames-dir", "", "Write annotated frames as JPEGs into this directory")
	watchCmd.Flags().StringVar(&watchLogDir, "log-dir", "./logs", "Directory for the rotating stream log")
	watchCmd.Flags().IntVar(&watchEvents, "events", 20, "Recent crossings to print on exit")
	_ = watchCmd.MarkFlagRequired("camera")
}
