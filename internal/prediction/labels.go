package prediction

import (
	"strings"
	"unicode"
)

const (
	UnknownCrop           = "Unknown Crop"
	FallbackFertilizer    = "10-26-26"
	fallbackExplanation   = "Recommended for optimal crop growth."
	healthyRecommendation = "Your plant looks healthy! Continue regular care and monitoring."
	expertRecommendation  = "Consult with a local agricultural expert for specific treatment recommendations."
	labelSeparator        = "___"
)

// CropNames is indexed by the tabular model's crop class.
var CropNames = []string{
	"Rice", "Maize", "Chickpea", "Kidney Beans", "Pigeon Peas",
	"Moth Beans", "Mung Bean", "Black Gram", "Lentil", "Pomegranate",
	"Banana", "Mango", "Grapes", "Watermelon", "Muskmelon",
	"Apple", "Orange", "Papaya", "Coconut", "Cotton",
	"Jute", "Coffee",
}

// FertilizerNames is indexed by the tabular model's fertilizer class.
var FertilizerNames = []string{
	"Urea", "DAP", "14-35-14", "28-28", "17-17-17", "20-20", "10-26-26",
}

var fertilizerExplanations = map[string]string{
	"Urea":     "High nitrogen content fertilizer, ideal for leafy growth and green crops.",
	"DAP":      "Diammonium Phosphate - provides nitrogen and phosphorus for root development.",
	"14-35-14": "Balanced NPK fertilizer with high phosphorus for flowering and fruiting.",
	"28-28":    "Equal nitrogen and phosphorus for balanced crop growth.",
	"17-17-17": "All-purpose balanced NPK fertilizer for general use.",
	"20-20":    "Nitrogen and phosphorus balanced fertilizer for steady growth.",
	"10-26-26": "Low nitrogen, high phosphorus and potassium for fruit and flower production.",
}

// DiseaseLabels is the image model's output order: the class folders of the training
// set in the order the dataset loader enumerated them.
var DiseaseLabels = []string{
	"Apple___Apple_scab",
	"Apple___Black_rot",
	"Apple___Cedar_apple_rust",
	"Apple___healthy",
	"Blueberry___healthy",
	"Cherry_(including_sour)___healthy",
	"Cherry_(including_sour)___Powdery_mildew",
	"Corn_(maize)___Cercospora_leaf_spot Gray_leaf_spot",
	"Corn_(maize)___Common_rust_",
	"Corn_(maize)___healthy",
	"Corn_(maize)___Northern_Leaf_Blight",
	"Grape___Black_rot",
	"Grape___Esca_(Black_Measles)",
	"Grape___healthy",
	"Grape___Leaf_blight_(Isariopsis_Leaf_Spot)",
	"Orange___Haunglongbing_(Citrus_greening)",
	"Peach___Bacterial_spot",
	"Peach___healthy",
	"Pepper,_bell___Bacterial_spot",
	"Pepper,_bell___healthy",
	"Potato___Early_blight",
	"Potato___healthy",
	"Potato___Late_blight",
	"Raspberry___healthy",
	"Soybean___healthy",
	"Squash___Powdery_mildew",
	"Strawberry___healthy",
	"Strawberry___Leaf_scorch",
	"Tomato___Bacterial_spot",
	"Tomato___Early_blight",
	"Tomato___healthy",
	"Tomato___Late_blight",
	"Tomato___Leaf_Mold",
	"Tomato___Septoria_leaf_spot",
	"Tomato___Spider_mites Two-spotted_spider_mite",
	"Tomato___Target_Spot",
	"Tomato___Tomato_mosaic_virus",
	"Tomato___Tomato_Yellow_Leaf_Curl_Virus",
}

// SupportedPlants lists the plants the disease model knows.
var SupportedPlants = []string{
	"Apple", "Blueberry", "Cherry", "Corn", "Grape", "Orange",
	"Peach", "Pepper", "Potato", "Raspberry", "Soybean",
	"Squash", "Strawberry", "Tomato",
}

type treatment struct {
	disease string
	advice  string
}

// treatments is matched in order; the first key contained in the disease name wins.
var treatments = []treatment{
	{"Apple scab", "Apply fungicide during wet periods. Remove fallen leaves and prune infected branches."},
	{"Black rot", "Remove infected fruit and leaves. Apply copper-based fungicides."},
	{"Cedar apple rust", "Remove nearby cedar trees if possible. Apply fungicides in early spring."},
	{"Powdery mildew", "Improve air circulation. Apply sulfur or potassium bicarbonate sprays."},
	{"Common rust", "Plant resistant varieties. Apply fungicides if severe."},
	{"Northern Leaf Blight", "Rotate crops and remove crop debris. Use resistant hybrids."},
	{"Cercospora leaf spot Gray leaf spot", "Rotate crops. Apply fungicides when symptoms first appear."},
	{"Bacterial spot", "Use disease-free seeds. Apply copper-based bactericides."},
	{"Early blight", "Remove infected leaves. Apply fungicides containing chlorothalonil."},
	{"Late blight", "Destroy infected plants immediately. Apply fungicides preventively."},
	{"Leaf Mold", "Improve ventilation. Reduce humidity in greenhouse."},
	{"Septoria leaf spot", "Remove infected leaves. Rotate crops. Apply fungicides."},
	{"Spider mites Two-spotted spider mite", "Spray with water. Use insecticidal soap or neem oil."},
	{"Target Spot", "Improve air circulation. Apply fungicides."},
	{"Tomato Yellow Leaf Curl Virus", "Control whiteflies. Remove infected plants."},
	{"Tomato mosaic virus", "Use virus-free seeds. Control aphids. Remove infected plants."},
	{"Leaf blight", "Remove infected leaves. Improve drainage. Apply fungicides."},
	{"Esca Black Measles", "Prune infected wood. There is no cure; focus on prevention."},
	{"Leaf scorch", "Ensure adequate watering. Mulch around plants."},
	{"Haunglongbing Citrus greening", "Remove infected trees. Control Asian citrus psyllid."},
}

// CropName maps a crop class index to its name.
func CropName(id int) string {
	if id < 0 || id >= len(CropNames) {
		return UnknownCrop
	}
	return CropNames[id]
}

// CropIndex finds a crop by name, ignoring case and surrounding space.
func CropIndex(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, c := range CropNames {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return 0, false
}

// FertilizerName maps a fertilizer class index to its name.
func FertilizerName(id int) string {
	if id < 0 || id >= len(FertilizerNames) {
		return FallbackFertilizer
	}
	return FertilizerNames[id]
}

func FertilizerExplanation(name string) string {
	if e, ok := fertilizerExplanations[name]; ok {
		return e
	}
	return fallbackExplanation
}

// ParseLabel splits "Plant___Disease" into readable plant and disease names.
func ParseLabel(label string) (plant, disease string) {
	parts := strings.Split(label, labelSeparator)
	plant = humanize(parts[0])
	disease = "Unknown"
	if len(parts) > 1 {
		disease = humanize(parts[1])
	}
	return plant, disease
}

func humanize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
}

func IsHealthy(disease string) bool {
	return strings.Contains(strings.ToLower(disease), "healthy")
}

// Recommendation returns treatment advice for a disease name. Matching ignores
// punctuation as well as case, unlike a plain case-insensitive substring match, so
// "Esca (Black Measles)" finds the "Esca Black Measles" entry instead of falling back to
// the expert advice.
func Recommendation(disease string) string {
	name := foldWords(disease)
	for _, t := range treatments {
		if strings.Contains(name, foldWords(t.disease)) {
			return t.advice
		}
	}
	if IsHealthy(disease) {
		return healthyRecommendation
	}
	return expertRecommendation
}

func foldWords(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
