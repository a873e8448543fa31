package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/j-soro/housing-ml-pipeline/models"
)

// Client is the adapter the prediction API uses to drive the engine over
// HTTP. Transport failures surface as pipeline errors and are never folded
// into a run status; a genuine run failure and an unreachable engine must
// stay distinguishable at this layer.
type Client struct {
	baseURL   string
	http      *http.Client
	dsn       string
	modelPath string
}

// NewClient builds a client for the engine at baseURL. The storage DSN and
// model path ride along in every job configuration, naming the resources the
// submitter expects the run to use.
func NewClient(baseURL, dsn, modelPath string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		dsn:       dsn,
		modelPath: modelPath,
	}
}

// StartRun submits a record for asynchronous scoring and returns the run id
// the engine issued. The record id is stripped from the job data; the
// engine's cleaning stage assigns its own.
func (c *Client) StartRun(ctx context.Context, rec models.HousingRecord) (string, error) {
	cfg := RunConfig{Data: recordData(rec)}
	cfg.Resources.Postgres.ConnectionURL = c.dsn
	cfg.Resources.Model.ModelPath = c.modelPath

	body, err := json.Marshal(cfg)
	if err != nil {
		return "", models.Wrap(models.ErrPipeline, "encoding job configuration", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/runs", bytes.NewReader(body))
	if err != nil {
		return "", models.Wrap(models.ErrPipeline, "building submit request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", models.Wrap(models.ErrPipeline, "submitting run", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", models.Errorf(models.ErrPipeline, "engine rejected submission: %s", errorBody(resp))
	}

	var out struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.Wrap(models.ErrPipeline, "decoding submit response", err)
	}
	if out.RunID == "" {
		return "", models.Errorf(models.ErrPipeline, "engine returned no run id")
	}
	return out.RunID, nil
}

// GetStatus maps the engine's native status for a run onto the coarse
// four-state model.
func (c *Client) GetStatus(ctx context.Context, runID string) (models.RunStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/runs/"+runID+"/status", nil)
	if err != nil {
		return "", models.Wrap(models.ErrPipeline, "building status request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", models.Wrap(models.ErrPipeline, "querying run status", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", models.Errorf(models.ErrPipeline, "engine status query failed: %s", errorBody(resp))
	}

	var out struct {
		Status NativeStatus `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.Wrap(models.ErrPipeline, "decoding status response", err)
	}
	return CoarseStatus(out.Status), nil
}

// GetRun fetches the engine's full view of a run, collapsed to the coarse
// status. Unknown run ids return ErrRunNotFound so callers can answer 404
// instead of treating it as an engine outage.
func (c *Client) GetRun(ctx context.Context, runID string) (models.PipelineRun, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/runs/"+runID, nil)
	if err != nil {
		return models.PipelineRun{}, models.Wrap(models.ErrPipeline, "building run request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.PipelineRun{}, models.Wrap(models.ErrPipeline, "querying run", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.PipelineRun{}, ErrRunNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return models.PipelineRun{}, models.Errorf(models.ErrPipeline, "engine run query failed: %s", errorBody(resp))
	}

	var out struct {
		RunID       string       `json:"run_id"`
		Status      NativeStatus `json:"status"`
		CreatedAt   time.Time    `json:"created_at"`
		StartedAt   *time.Time   `json:"started_at"`
		CompletedAt *time.Time   `json:"completed_at"`
		Error       string       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.PipelineRun{}, models.Wrap(models.ErrPipeline, "decoding run response", err)
	}

	run := models.PipelineRun{
		ID:          out.RunID,
		Status:      CoarseStatus(out.Status),
		StartedAt:   out.CreatedAt,
		CompletedAt: out.CompletedAt,
		Error:       out.Error,
	}
	if out.StartedAt != nil {
		run.StartedAt = *out.StartedAt
	}
	return run, nil
}

// recordData is the record as job data, without its id.
func recordData(rec models.HousingRecord) map[string]any {
	return map[string]any{
		"longitude":          rec.Longitude,
		"latitude":           rec.Latitude,
		"housing_median_age": rec.HousingMedianAge,
		"total_rooms":        rec.TotalRooms,
		"total_bedrooms":     rec.TotalBedrooms,
		"population":         rec.Population,
		"households":         rec.Households,
		"median_income":      rec.MedianIncome,
		"ocean_proximity":    rec.OceanProximity,
	}
}

func errorBody(resp *http.Response) string {
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err == nil && out.Error != "" {
		return fmt.Sprintf("%s (status %d)", out.Error, resp.StatusCode)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
