package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trafficwatch-cli/pkg/models"
)

// Variables to hold flag values
var (
	cameraStatusFilter string
	cameraZoneFilter   string
	cameraSearch       string
	editCameraID       string
	editName           string
	editRTSP           string
	editHLSURL         string
)

// Parent Command
var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Manage the camera roster",
	Long:  `List cameras or edit a camera's name and stream sources.`,
}

// List Command
var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cameras from the backend roster",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		cameras, err := api.GetCameras()
		if err != nil {
			fmt.Printf("Error fetching cameras: %v\n", err)
			os.Exit(1)
		}

		cameras = filterCameras(cameras)

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cameras); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}
		// -------------------

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tZONE\tLOCATION\tSTATUS\tRESOLUTION\tFPS")
		fmt.Fprintln(w, "--\t----\t----\t--------\t------\t----------\t---")

		for _, cam := range cameras {
			status := cam.Status
			if status == "" {
				status = "online"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				cam.ID,
				cam.Name,
				cam.Zone,
				cam.Location,
				status,
				cam.Resolution,
				cam.FPS,
			)
		}
		w.Flush()
	},
}

// Edit Command
var camerasEditCmd = &cobra.Command{
	Use:     "edit",
	Short:   "Update a camera's name or stream sources",
	Example: `  trafficwatch-cli cameras edit --id cam_001 --name "North Gate" --rtsp rtsp://10.0.0.5/stream1`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		update := models.CameraUpdate{
			Name:   editName,
			RTSP:   editRTSP,
			HLSURL: editHLSURL,
		}
		if update == (models.CameraUpdate{}) {
			fmt.Println("Error: nothing to update. Provide --name, --rtsp or --hls-url.")
			os.Exit(1)
		}

		updated, err := api.UpdateCamera(editCameraID, update)
		if err != nil {
			fmt.Printf("Error updating camera: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(updated)
			return
		}

		fmt.Printf("Updated camera %s: name=%q rtsp=%q hls=%q\n",
			updated.ID, updated.Name, updated.RTSP, updated.HLSURL)
	},
}

// filterCameras applies the status/zone/search flags to the roster.
func filterCameras(cameras []models.Camera) []models.Camera {
	out := cameras[:0]
	search := strings.ToLower(cameraSearch)
	for _, cam := range cameras {
		if cameraStatusFilter == "online" && !cam.Online() {
			continue
		}
		if cameraStatusFilter == "offline" && cam.Online() {
			continue
		}
		if cameraZoneFilter != "" && cam.Zone != cameraZoneFilter {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(cam.ID), search) &&
			!strings.Contains(strings.ToLower(cam.Name), search) &&
			!strings.Contains(strings.ToLower(cam.Location), search) {
			continue
		}
		out = append(out, cam)
	}
	return out
}

func init() {
	// Register Parent
	rootCmd.AddCommand(camerasCmd)

	// Register Subcommands
	camerasCmd.AddCommand(camerasListCmd)
	camerasCmd.AddCommand(camerasEditCmd)

	// Flags for List
	camerasListCmd.Flags().StringVar(&cameraStatusFilter, "status", "all", "Filter by status: all, online, offline")
	camerasListCmd.Flags().StringVar(&cameraZoneFilter, "zone", "", "Filter by zone")
	camerasListCmd.Flags().StringVar(&cameraSearch, "search", "", "Match against id, name or location")

	// Flags for Edit
	camerasEditCmd.Flags().StringVar(&editCameraID, "id", "", "ID of the camera")
	camerasEditCmd.Flags().StringVar(&editName, "name", "", "New display name")
	camerasEditCmd.Flags().StringVar(&editRTSP, "rtsp", "", "New RTSP source")
	camerasEditCmd.Flags().StringVar(&editHLSURL, "hls-url", "", "New HLS stream URL")
	_ = camerasEditCmd.MarkFlagRequired("id")
}
