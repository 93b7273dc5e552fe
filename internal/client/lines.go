package client

import (
	"net/http"

	"trafficwatch-cli/pkg/models"
)

// SaveLine creates or replaces a counting line and returns the persisted
// record with the backend-confirmed line id.
func (c *TrafficClient) SaveLine(line models.CountingLine) (*models.CountingLine, error) {
	var saved models.CountingLine

	resp, err := c.HTTP.R().
		SetBody(line).
		SetResult(&saved).
		SetError(&APIError{}).
		Post("/lines")

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, apiErr(resp, "failed to save line")
	}

	return &saved, nil
}

// GetActiveLine looks up the active counting line for a camera. A 404
// means no line is configured, which is a normal condition: the result
// is (nil, nil), not an error.
func (c *TrafficClient) GetActiveLine(cameraID string) (*models.CountingLine, error) {
	var line models.CountingLine

	resp, err := c.HTTP.R().
		SetResult(&line).
		SetError(&APIError{}).
		Get("/lines/active/" + cameraID)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}

	if resp.IsError() {
		return nil, apiErr(resp, "failed to get active line for "+cameraID)
	}

	return &line, nil
}
