package client

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"trafficwatch-cli/pkg/models"
)

// Backend timestamps are RFC 3339 / ISO 8601 in UTC.
const countTimeFormat = time.RFC3339

// CountQuery is the shared time-range + filter set accepted by every
// /counts endpoint. Zero-value fields are omitted from the request.
type CountQuery struct {
	Start     time.Time
	End       time.Time
	CameraIDs []string
	Classes   []string
}

func (q CountQuery) apply(req *resty.Request) *resty.Request {
	if !q.Start.IsZero() {
		req.SetQueryParam("start", q.Start.UTC().Format(countTimeFormat))
	}
	if !q.End.IsZero() {
		req.SetQueryParam("end", q.End.UTC().Format(countTimeFormat))
	}
	if len(q.CameraIDs) > 0 {
		req.SetQueryParam("camera_ids", strings.Join(q.CameraIDs, ","))
	}
	if len(q.Classes) > 0 {
		req.SetQueryParam("classes", strings.Join(q.Classes, ","))
	}
	return req
}

// CountsByClass returns crossing totals grouped by vehicle class.
func (c *TrafficClient) CountsByClass(q CountQuery) ([]models.ClassTotal, error) {
	var respData models.ClassTotalsResponse

	resp, err := q.apply(c.HTTP.R()).
		SetResult(&respData).
		SetError(&APIError{}).
		Get("/counts/by-class")

	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiErr(resp, "failed to get counts by class")
	}
	return respData.Items, nil
}

// CountsByCamera returns crossing totals grouped by camera.
func (c *TrafficClient) CountsByCamera(q CountQuery) ([]models.CameraTotal, error) {
	var respData models.CameraTotalsResponse

	resp, err := q.apply(c.HTTP.R()).
		SetResult(&respData).
		SetError(&APIError{}).
		Get("/counts/by-camera")

	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiErr(resp, "failed to get counts by camera")
	}
	return respData.Items, nil
}

// CountsByTime returns per-class totals bucketed over the range.
// bucket is a backend-defined granularity such as "hour" or "day".
func (c *TrafficClient) CountsByTime(q CountQuery, bucket string) ([]models.TimeBucket, error) {
	var respData models.TimeBucketsResponse

	req := q.apply(c.HTTP.R())
	if bucket != "" {
		req.SetQueryParam("bucket", bucket)
	}

	resp, err := req.
		SetResult(&respData).
		SetError(&APIError{}).
		Get("/counts/by-time")

	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiErr(resp, "failed to get counts by time")
	}
	return respData.Items, nil
}

// RecentCounts returns the newest crossing events in the range, newest
// first, capped at limit.
func (c *TrafficClient) RecentCounts(q CountQuery, limit int) ([]models.CountEvent, error) {
	var respData models.CountListResponse

	req := q.apply(c.HTTP.R())
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := req.
		SetResult(&respData).
		SetError(&APIError{}).
		Get("/counts/recent")

	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiErr(resp, "failed to get recent counts")
	}
	return respData.Items, nil
}
