package client

import (
	"trafficwatch-cli/pkg/models"
)

func (c *TrafficClient) GetCameras() ([]models.Camera, error) {
	var respData models.CameraListResponse

	resp, err := c.HTTP.R().
		SetResult(&respData).
		SetError(&APIError{}).
		Get("/cameras")

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, apiErr(resp, "failed to get cameras")
	}

	return respData.Items, nil
}

// UpdateCamera applies a partial update (name, rtsp source, HLS URL) and
// returns the updated roster record.
func (c *TrafficClient) UpdateCamera(cameraID string, update models.CameraUpdate) (*models.Camera, error) {
	var updated models.Camera

	resp, err := c.HTTP.R().
		SetBody(update).
		SetResult(&updated).
		SetError(&APIError{}).
		Patch("/cameras/" + cameraID)

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, apiErr(resp, "failed to update camera "+cameraID)
	}

	return &updated, nil
}
