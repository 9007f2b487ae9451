package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
)

// ModelServerClient classifies images through a TensorFlow Serving
// compatible REST API. It holds no mutable state and is safe to share.
type ModelServerClient struct {
	baseURL    string
	model      string
	labels     []string
	httpClient *http.Client
}

func NewModelServerClient(baseURL, model string, labels []string, timeout time.Duration) *ModelServerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ModelServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		labels:  append([]string(nil), labels...),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	Instances []Tensor `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

type modelStatusResponse struct {
	ModelVersionStatus []ModelVersionStatus `json:"model_version_status"`
}

type ModelVersionStatus struct {
	Version string `json:"version"`
	State   string `json:"state"`
}

func (c *ModelServerClient) Labels() []string {
	return append([]string(nil), c.labels...)
}

func (c *ModelServerClient) Classify(ctx context.Context, img image.Image) (*Prediction, error) {
	reqBody := predictRequest{Instances: []Tensor{Preprocess(img)}}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var predictResp predictResponse
	if err := json.Unmarshal(body, &predictResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || predictResp.Error != "" {
		return nil, fmt.Errorf("model server error (status %d): %s", resp.StatusCode, predictResp.Error)
	}

	if len(predictResp.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions in response")
	}

	return Argmax(predictResp.Predictions[0], c.labels)
}

// Status returns the served versions of the model.
func (c *ModelServerClient) Status(ctx context.Context) ([]ModelVersionStatus, error) {
	url := fmt.Sprintf("%s/v1/models/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status modelStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode model status: %w", err)
	}
	return status.ModelVersionStatus, nil
}
