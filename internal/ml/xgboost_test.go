package ml

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// threeClassModel scores class 0 on low nitrogen, class 1 on high rainfall and keeps
// class 2 as the baseline.
const threeClassModel = `{
  "learner": {
    "learner_model_param": {"base_score": "[5E-1]", "num_class": "3", "num_feature": "7"},
    "gradient_booster": {
      "name": "gbtree",
      "model": {
        "gbtree_model_param": {"num_trees": "3"},
        "tree_info": [0, 1, 2],
        "trees": [
          {"left_children": [1, -1, -1], "right_children": [2, -1, -1],
           "split_indices": [0, 0, 0], "split_conditions": [50, 1.0, -1.0],
           "default_left": [1, 0, 0]},
          {"left_children": [1, -1, -1], "right_children": [2, -1, -1],
           "split_indices": [6, 0, 0], "split_conditions": [100, -1.0, 1.0],
           "default_left": [false, false, false]},
          {"left_children": [-1], "right_children": [-1],
           "split_indices": [0], "split_conditions": [0.0],
           "default_left": [0]}
        ]
      }
    },
    "objective": {"name": "multi:softprob"}
  },
  "version": [2, 0, 3]
}`

func loadTestBooster(t *testing.T, doc string) *Booster {
	t.Helper()
	b, err := ParseBooster(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseBooster() error = %v", err)
	}
	return b
}

func TestBoosterPredict(t *testing.T) {
	b := loadTestBooster(t, threeClassModel)
	if b.NumFeatures() != 7 || b.NumClasses() != 3 {
		t.Fatalf("NumFeatures/NumClasses = %d/%d", b.NumFeatures(), b.NumClasses())
	}

	cases := []struct {
		name     string
		features []float64
		want     int
	}{
		{name: "low nitrogen", features: []float64{10, 42, 43, 20.8, 82, 6.5, 50}, want: 0},
		{name: "high rainfall", features: []float64{90, 42, 43, 20.8, 82, 6.5, 202.9}, want: 1},
		{name: "baseline", features: []float64{90, 42, 43, 20.8, 82, 6.5, 50}, want: 2},
		{name: "split threshold goes right", features: []float64{50, 0, 0, 0, 0, 0, 100}, want: 1},
		{name: "missing follows default branch", features: []float64{math.NaN(), 0, 0, 0, 0, 0, 50}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := b.Predict(tc.features)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Predict() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBoosterIsDeterministic(t *testing.T) {
	b := loadTestBooster(t, threeClassModel)
	row := []float64{90, 42, 43, 20.87, 82.0, 6.5, 202.93}

	first, err := b.Predict(row)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		got, err := b.Predict(row)
		if err != nil || got != first {
			t.Fatalf("run %d: Predict() = %d, %v; want %d", i, got, err, first)
		}
	}
}

func TestBoosterRejectsWrongWidth(t *testing.T) {
	b := loadTestBooster(t, threeClassModel)
	if _, err := b.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatal("Predict() error = nil, want width error")
	}
}

func TestParseBoosterRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"dart booster":   strings.Replace(threeClassModel, `"name": "gbtree"`, `"name": "dart"`, 1),
		"tree_info size": strings.Replace(threeClassModel, `[0, 1, 2]`, `[0, 1]`, 1),
		"class range":    strings.Replace(threeClassModel, `[0, 1, 2]`, `[0, 1, 5]`, 1),
		"feature range":  strings.Replace(threeClassModel, `[6, 0, 0]`, `[9, 0, 0]`, 1),
		"child cycle":    strings.Replace(threeClassModel, `"left_children": [1, -1, -1], "right_children": [2, -1, -1],
           "split_indices": [0, 0, 0]`, `"left_children": [0, -1, -1], "right_children": [2, -1, -1],
           "split_indices": [0, 0, 0]`, 1),
		"not json":             "{",
		"per-class base_score": strings.Replace(threeClassModel, `"[5E-1]"`, `"[1E-1,5E-1,9E-1]"`, 1),
		"categorical split":    strings.Replace(threeClassModel, `"default_left": [1, 0, 0]}`, `"default_left": [1, 0, 0], "split_type": [1, 0, 0]}`, 1),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseBooster(strings.NewReader(doc)); err == nil {
				t.Fatal("ParseBooster() error = nil")
			}
		})
	}
}

func TestBoosterSharedBaseScoreVector(t *testing.T) {
	doc := strings.Replace(threeClassModel, `"[5E-1]"`, `"[5E-1,5E-1,5E-1]"`, 1)
	doc = strings.Replace(doc, `"default_left": [1, 0, 0]}`, `"default_left": [1, 0, 0], "split_type": [0, 0, 0]}`, 1)
	b := loadTestBooster(t, doc)

	got, err := b.Predict([]float64{10, 42, 43, 20.8, 82, 6.5, 50})
	if err != nil || got != 0 {
		t.Fatalf("Predict() = %d, %v, want 0", got, err)
	}
}

func TestBinaryBooster(t *testing.T) {
	doc := `{"learner": {
	  "learner_model_param": {"base_score": "5E-1", "num_class": "0", "num_feature": "1"},
	  "gradient_booster": {"name": "gbtree", "model": {"tree_info": [0], "trees": [
	    {"left_children": [1, -1, -1], "right_children": [2, -1, -1],
	     "split_indices": [0, 0, 0], "split_conditions": [0.5, -2.0, 2.0], "default_left": [1, 0, 0]}
	  ]}},
	  "objective": {"name": "binary:logistic"}}}`
	b := loadTestBooster(t, doc)

	if got, _ := b.Predict([]float64{0}); got != 0 {
		t.Errorf("Predict(0) = %d, want 0", got)
	}
	if got, _ := b.Predict([]float64{1}); got != 1 {
		t.Errorf("Predict(1) = %d, want 1", got)
	}
}

func TestLoadTabularModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xgboost.json")
	if err := os.WriteFile(path, []byte(threeClassModel), 0o644); err != nil {
		t.Fatal(err)
	}

	model, err := LoadTabularModel(path, "")
	if err != nil {
		t.Fatalf("LoadTabularModel() error = %v", err)
	}
	if model.FertilizerFeatures() != 7 {
		t.Errorf("FertilizerFeatures() = %d, want 7", model.FertilizerFeatures())
	}

	ctx := context.Background()
	if got, err := model.PredictCrop(ctx, []float64{90, 42, 43, 20.87, 82, 6.5, 202.93}); err != nil || got != 1 {
		t.Errorf("PredictCrop() = %d, %v; want 1", got, err)
	}
	if _, err := model.PredictCrop(ctx, []float64{90, 42, 43, 20.87, 82, 6.5, 202.93, 0}); err == nil {
		t.Error("PredictCrop(8 features) error = nil")
	}
	if _, err := model.PredictFertilizer(ctx, []float64{1}); err == nil {
		t.Error("PredictFertilizer(1 feature) error = nil")
	}

	if _, err := LoadTabularModel(filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Error("LoadTabularModel(missing) error = nil")
	}
}
