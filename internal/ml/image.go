package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agridoctor-back/pkg/imaging"
)

// ImageSpec describes the input grid an image model expects.
type ImageSpec struct {
	Width  int
	Height int
	Norm   imaging.Normalization
}

// LeafClassifierSpec is the 128×128 raw-pixel convention the plant disease model was
// trained with (Keras image_dataset_from_directory keeps values in [0, 255]).
var LeafClassifierSpec = ImageSpec{Width: 128, Height: 128, Norm: imaging.RawPixels}

// ImageModel scores one preprocessed image over the model's ordered label set.
type ImageModel interface {
	Spec() ImageSpec
	Predict(ctx context.Context, t imaging.Tensor) ([]float64, error)
}

// TFServingModel calls a TensorFlow Serving REST endpoint hosting the exported model.
type TFServingModel struct {
	baseURL string
	name    string
	spec    ImageSpec
	client  *http.Client
}

func NewTFServingModel(baseURL, name string, timeout time.Duration, spec ImageSpec) *TFServingModel {
	return &TFServingModel{
		baseURL: baseURL,
		name:    name,
		spec:    spec,
		client:  &http.Client{Timeout: timeout},
	}
}

func (m *TFServingModel) Spec() ImageSpec { return m.spec }

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// Ready reports an error unless at least one model version is AVAILABLE.
func (m *TFServingModel) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/models/%s", m.baseURL, m.name), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, body)
	}

	var status modelStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode model status: %w", err)
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %q has no AVAILABLE version", m.name)
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

func (m *TFServingModel) Predict(ctx context.Context, t imaging.Tensor) ([]float64, error) {
	if t.Width != m.spec.Width || t.Height != m.spec.Height {
		return nil, fmt.Errorf("model expects %dx%d input, got %dx%d", m.spec.Width, m.spec.Height, t.Width, t.Height)
	}

	body, err := json.Marshal(predictRequest{Instances: [][][][]float32{t.Nested()}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", m.baseURL, m.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model returned error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model error: %s", out.Error)
	}
	if len(out.Predictions) != 1 {
		return nil, fmt.Errorf("model returned %d predictions for 1 instance", len(out.Predictions))
	}
	return out.Predictions[0], nil
}
