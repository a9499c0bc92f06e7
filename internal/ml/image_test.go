package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agridoctor-back/pkg/imaging"
)

func newTFServing(t *testing.T, handler http.HandlerFunc) *TFServingModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTFServingModel(srv.URL, "plant_disease", 5*time.Second, ImageSpec{Width: 2, Height: 2, Norm: imaging.RawPixels})
}

func TestTFServingPredict(t *testing.T) {
	model := newTFServing(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/models/plant_disease:predict" {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Instances) != 1 || len(req.Instances[0]) != 2 || len(req.Instances[0][0][0]) != 3 {
			http.Error(w, "bad shape", http.StatusBadRequest)
			return
		}
		if req.Instances[0][1][1][2] != 12 {
			http.Error(w, "pixel order", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"predictions": [[0.1, 0.7, 0.2]]}`))
	})

	tensor := imaging.Tensor{Height: 2, Width: 2, Data: []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	got, err := model.Predict(context.Background(), tensor)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(got) != 3 || got[1] != 0.7 {
		t.Fatalf("Predict() = %v", got)
	}
}

func TestTFServingPredictErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oom", wantErr: "model returned error 500"},
		{name: "model error", status: http.StatusOK, body: `{"error": "bad input"}`, wantErr: "model error: bad input"},
		{name: "wrong batch", status: http.StatusOK, body: `{"predictions": []}`, wantErr: "0 predictions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := newTFServing(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			tensor := imaging.Tensor{Height: 2, Width: 2, Data: make([]float32, 12)}
			_, err := model.Predict(context.Background(), tensor)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Predict() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestTFServingPredictRejectsWrongShape(t *testing.T) {
	model := newTFServing(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("model server must not be called")
	})
	_, err := model.Predict(context.Background(), imaging.Tensor{Height: 3, Width: 3, Data: make([]float32, 27)})
	if err == nil {
		t.Fatal("Predict() error = nil, want shape error")
	}
}

func TestTFServingReady(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "available", body: `{"model_version_status": [{"version": "1", "state": "AVAILABLE"}]}`},
		{name: "loading", body: `{"model_version_status": [{"version": "1", "state": "LOADING"}]}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := newTFServing(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models/plant_disease" {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte(tc.body))
			})
			err := model.Ready(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("Ready() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
