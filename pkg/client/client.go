package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"leaf-backend/pkg/api"

	"github.com/go-resty/resty/v2"
)

// Client talks to the json api of a running leaf server.
type Client struct {
	client *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(60 * time.Second),
	}
}

func (c *Client) Predict(ctx context.Context, imagePath string) (api.Prediction, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return api.Prediction{}, fmt.Errorf("error reading image %s: %w", imagePath, err)
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetFileReader("image", filepath.Base(imagePath), bytes.NewReader(data)).
		Post("/api/v1/predict")
	if err != nil {
		return api.Prediction{}, fmt.Errorf("error calling predict endpoint: %w", err)
	}

	if !res.IsSuccess() {
		return api.Prediction{}, fmt.Errorf("predict failed with status %d: %s", res.StatusCode(), res.String())
	}

	var prediction api.Prediction
	if err := json.Unmarshal(res.Body(), &prediction); err != nil {
		return api.Prediction{}, fmt.Errorf("error parsing predict response: %w", err)
	}
	return prediction, nil
}

func (c *Client) Labels(ctx context.Context) (api.LabelsResponse, error) {
	var labels api.LabelsResponse
	res, err := c.client.R().SetContext(ctx).SetResult(&labels).Get("/api/v1/labels")
	if err != nil {
		return labels, fmt.Errorf("error calling labels endpoint: %w", err)
	}
	if !res.IsSuccess() {
		return labels, fmt.Errorf("labels failed with status %d: %s", res.StatusCode(), res.String())
	}
	return labels, nil
}
