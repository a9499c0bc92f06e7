package prediction

import (
	"strings"
	"testing"
)

func TestLabelTables(t *testing.T) {
	if len(CropNames) != 22 {
		t.Errorf("len(CropNames) = %d, want 22", len(CropNames))
	}
	if len(FertilizerNames) != 7 {
		t.Errorf("len(FertilizerNames) = %d, want 7", len(FertilizerNames))
	}
	if len(DiseaseLabels) != 38 {
		t.Errorf("len(DiseaseLabels) = %d, want 38", len(DiseaseLabels))
	}
	if CropName(11) != "Mango" || CropName(0) != "Rice" || CropName(21) != "Coffee" {
		t.Error("crop table out of order")
	}
	for _, name := range FertilizerNames {
		if FertilizerExplanation(name) == fallbackExplanation {
			t.Errorf("fertilizer %q has no explanation", name)
		}
	}
	if FertilizerExplanation("Compost") != fallbackExplanation {
		t.Error("unknown fertilizer must use the fallback explanation")
	}
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		label       string
		wantPlant   string
		wantDisease string
		wantHealthy bool
	}{
		{"Apple___Black_rot", "Apple", "Black rot", false},
		{"Tomato___healthy", "Tomato", "healthy", true},
		{"Corn_(maize)___Common_rust_", "Corn (maize)", "Common rust", false},
		{"Pepper,_bell___healthy", "Pepper, bell", "healthy", true},
		{"Tomato___Spider_mites Two-spotted_spider_mite", "Tomato", "Spider mites Two-spotted spider mite", false},
		{"Mystery_plant", "Mystery plant", "Unknown", false},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			plant, disease := ParseLabel(tc.label)
			if plant != tc.wantPlant || disease != tc.wantDisease {
				t.Errorf("ParseLabel() = %q, %q; want %q, %q", plant, disease, tc.wantPlant, tc.wantDisease)
			}
			if IsHealthy(disease) != tc.wantHealthy {
				t.Errorf("IsHealthy(%q) = %v", disease, !tc.wantHealthy)
			}
		})
	}
}

func TestParseLabelKeepsWords(t *testing.T) {
	for _, label := range DiseaseLabels {
		plant, disease := ParseLabel(label)
		rejoined := strings.Fields(plant + " " + disease)
		original := strings.Fields(strings.ReplaceAll(strings.ReplaceAll(label, labelSeparator, " "), "_", " "))
		if strings.Join(rejoined, " ") != strings.Join(original, " ") {
			t.Errorf("%q lost words: %q / %q", label, plant, disease)
		}
	}
}

func TestRecommendation(t *testing.T) {
	cases := []struct {
		disease string
		want    string
	}{
		{"Black rot", "Remove infected fruit and leaves. Apply copper-based fungicides."},
		{"black ROT", "Remove infected fruit and leaves. Apply copper-based fungicides."},
		{"Northern Leaf Blight", "Rotate crops and remove crop debris. Use resistant hybrids."},
		{"Leaf blight (Isariopsis Leaf Spot)", "Remove infected leaves. Improve drainage. Apply fungicides."},
		{"Haunglongbing (Citrus greening)", "Remove infected trees. Control Asian citrus psyllid."},
		{"healthy", healthyRecommendation},
		{"Frost damage", expertRecommendation},
	}
	for _, tc := range cases {
		if got := Recommendation(tc.disease); got != tc.want {
			t.Errorf("Recommendation(%q) = %q, want %q", tc.disease, got, tc.want)
		}
	}

	for _, label := range DiseaseLabels {
		_, disease := ParseLabel(label)
		if IsHealthy(disease) {
			continue
		}
		if Recommendation(disease) == expertRecommendation {
			t.Errorf("disease %q has no treatment entry", disease)
		}
	}
}

func TestRank(t *testing.T) {
	scores := []float64{0.1, 0.4, 0.1, 0.3, 0.05, 0.05}
	got := Rank(scores, 4)
	want := []int{1, 3, 0, 2}
	if len(got) != len(want) {
		t.Fatalf("Rank() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Rank() = %v, want %v", got, want)
		}
	}
	if got := Rank([]float64{0.2, 0.8}, 5); len(got) != 2 {
		t.Errorf("Rank() with k > n = %v", got)
	}
}

func TestToProbabilities(t *testing.T) {
	dist := []float64{0.2, 0.5, 0.3}
	got := ToProbabilities(dist)
	for i := range dist {
		if got[i] != dist[i] {
			t.Fatalf("distribution changed: %v", got)
		}
	}

	soft := ToProbabilities([]float64{1000, 1000})
	if soft[0] != 0.5 || soft[1] != 0.5 {
		t.Errorf("softmax of large equal logits = %v", soft)
	}
	if p := ToProbabilities([]float64{2, 1, 0}); !(p[0] > p[1] && p[1] > p[2]) {
		t.Errorf("softmax changed order: %v", p)
	}
}
