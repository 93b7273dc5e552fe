package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"trafficwatch-cli/internal/lineeditor"
	"trafficwatch-cli/pkg/models"
)

// Variables to hold flag values
var (
	lineCameraID   string
	lineID         string
	lineP1         string
	lineP2         string
	lineInactive   bool
	lineCanvas     string
	linePreview    string
	lineBackground string
)

// Parent Command
var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "Manage counting lines",
	Long:  `Designate and persist the two-point counting line for a camera, or look up the active one.`,
}

// Set Command
var linesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save a counting line for a camera",
	Example: `  trafficwatch-cli lines set --camera cam_001 --p1 100,600 --p2 1180,600
  trafficwatch-cli lines set --camera cam_001 --id line_001 --p1 0,360 --p2 1279,360 --preview line.png`,
	Run: func(cmd *cobra.Command, args []string) {
		canvasW, canvasH, err := parseCanvas(lineCanvas)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		editor := lineeditor.New(canvasW, canvasH)

		for _, raw := range []string{lineP1, lineP2} {
			if raw == "" {
				continue
			}
			pt, err := parsePoint(raw)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			editor.SetPoint(pt)
		}

		if lineID == "" {
			lineID = "line_" + strings.Split(uuid.NewString(), "-")[0]
		}

		api := setupClient()
		saved, err := editor.Save(api, lineID, lineCameraID, !lineInactive)
		if err != nil {
			fmt.Printf("Error saving line: %v\n", err)
			os.Exit(1)
		}

		if linePreview != "" {
			if err := writePreview(editor, lineBackground, linePreview); err != nil {
				fmt.Printf("Warning: could not write preview: %v\n", err)
			} else {
				fmt.Printf("Preview written to %s\n", linePreview)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(saved)
			return
		}

		fmt.Printf("Saved line %s for camera %s: P1=(%d,%d) P2=(%d,%d) active=%v canvas=%dx%d\n",
			saved.LineID, saved.CameraID,
			saved.P1.X, saved.P1.Y, saved.P2.X, saved.P2.Y,
			saved.IsActive, saved.CanvasW, saved.CanvasH)
	},
}

// Show Command
var linesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active counting line for a camera",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		line, err := api.GetActiveLine(lineCameraID)
		if err != nil {
			fmt.Printf("Error fetching active line: %v\n", err)
			os.Exit(1)
		}
		if line == nil {
			// Absence of a line is a normal condition, not an error.
			fmt.Printf("No active line configured for camera %s\n", lineCameraID)
			return
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(line)
			return
		}

		fmt.Printf("Line %s (camera %s): P1=(%d,%d) P2=(%d,%d) active=%v canvas=%dx%d\n",
			line.LineID, line.CameraID,
			line.P1.X, line.P1.Y, line.P2.X, line.P2.Y,
			line.IsActive, line.CanvasW, line.CanvasH)
	},
}

func parsePoint(raw string) (models.Point, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return models.Point{}, fmt.Errorf("invalid point %q, expected x,y", raw)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return models.Point{}, fmt.Errorf("invalid point %q, expected integer x,y", raw)
	}
	return models.Point{X: x, Y: y}, nil
}

func parseCanvas(raw string) (int, int, error) {
	parts := strings.Split(strings.ToLower(raw), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid canvas %q, expected WxH", raw)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid canvas %q, expected WxH", raw)
	}
	return w, h, nil
}

// writePreview renders the designated line, over a background frame when
// one is given, and writes it as PNG.
func writePreview(editor *lineeditor.Editor, backgroundPath, outPath string) error {
	var background image.Image
	if backgroundPath != "" {
		f, err := os.Open(backgroundPath)
		if err != nil {
			return err
		}
		defer f.Close()
		background, _, err = image.Decode(f)
		if err != nil {
			return err
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, editor.RenderPreview(background))
}

func init() {
	// Register Parent
	rootCmd.AddCommand(linesCmd)

	// Register Subcommands
	linesCmd.AddCommand(linesSetCmd)
	linesCmd.AddCommand(linesShowCmd)

	// Flags for Set
	linesSetCmd.Flags().StringVar(&lineCameraID, "camera", "", "ID of the camera")
	linesSetCmd.Flags().StringVar(&lineID, "id", "", "Line ID (generated when omitted)")
	linesSetCmd.Flags().StringVar(&lineP1, "p1", "", "First endpoint as x,y in canvas coordinates")
	linesSetCmd.Flags().StringVar(&lineP2, "p2", "", "Second endpoint as x,y in canvas coordinates")
	linesSetCmd.Flags().BoolVar(&lineInactive, "inactive", false, "Save the line as inactive")
	linesSetCmd.Flags().StringVar(&lineCanvas, "canvas", "1280x720", "Logical canvas resolution as WxH")
	linesSetCmd.Flags().StringVar(&linePreview, "preview", "", "Write a PNG preview of the line to this path")
	linesSetCmd.Flags().StringVar(&lineBackground, "background", "", "Background frame (JPEG/PNG) for the preview")
	_ = linesSetCmd.MarkFlagRequired("camera")

	// Flags for Show
	linesShowCmd.Flags().StringVar(&lineCameraID, "camera", "", "ID of the camera")
	_ = linesShowCmd.MarkFlagRequired("camera")
}
