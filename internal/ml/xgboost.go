package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Booster is a gradient-boosted tree ensemble loaded from XGBoost's JSON model format
// (Booster.save_model("model.json")). Only the gbtree booster is supported.
type Booster struct {
	trees      []tree
	treeClass  []int
	numClass   int
	numFeature int
	minInputs  int
	baseScore  float64
	objective  string
}

type tree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitCond   []float64
	defaultLeft []bool
}

type boosterFile struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees    []treeJSON `json:"trees"`
				TreeInfo []int      `json:"tree_info"`
			} `json:"model"`
		} `json:"gradient_booster"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type treeJSON struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
	SplitType       []int      `json:"split_type"`
}

// flexBool accepts both 0/1 and true/false; XGBoost releases disagree on the encoding.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "1", "true":
		*b = true
	case "0", "false":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// LoadBooster reads a JSON booster from path.
func LoadBooster(path string) (*Booster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	b, err := ParseBooster(f)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return b, nil
}

// ParseBooster decodes and validates a JSON booster.
func ParseBooster(r io.Reader) (*Booster, error) {
	var file boosterFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	learner := file.Learner
	if name := learner.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}

	numClass, err := parseParamInt(learner.LearnerModelParam.NumClass)
	if err != nil {
		return nil, fmt.Errorf("num_class: %w", err)
	}
	numFeature, err := parseParamInt(learner.LearnerModelParam.NumFeature)
	if err != nil {
		return nil, fmt.Errorf("num_feature: %w", err)
	}
	baseScores, err := parseParamFloats(learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, fmt.Errorf("base_score: %w", err)
	}
	// A shared intercept cannot move the argmax; per-class intercepts would.
	for _, v := range baseScores[1:] {
		if v != baseScores[0] {
			return nil, fmt.Errorf("base_score: per-class intercepts %v are not supported", baseScores)
		}
	}
	baseScore := baseScores[0]

	model := learner.GradientBooster.Model
	if len(model.Trees) == 0 {
		return nil, errors.New("model has no trees")
	}
	if len(model.TreeInfo) != len(model.Trees) {
		return nil, fmt.Errorf("tree_info has %d entries for %d trees", len(model.TreeInfo), len(model.Trees))
	}

	b := &Booster{
		trees:      make([]tree, len(model.Trees)),
		treeClass:  model.TreeInfo,
		numClass:   numClass,
		numFeature: numFeature,
		baseScore:  baseScore,
		objective:  learner.Objective.Name,
	}
	for i, tj := range model.Trees {
		t, err := buildTree(tj, numFeature)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		b.trees[i] = t
		for _, idx := range t.splitIndex {
			if idx+1 > b.minInputs {
				b.minInputs = idx + 1
			}
		}
	}
	for i, class := range b.treeClass {
		if class < 0 || (numClass > 1 && class >= numClass) {
			return nil, fmt.Errorf("tree %d assigned to class %d of %d", i, class, numClass)
		}
	}
	if numClass <= 1 && !strings.HasPrefix(b.objective, "binary:") {
		return nil, fmt.Errorf("unsupported objective %q for a classifier", b.objective)
	}
	return b, nil
}

func buildTree(tj treeJSON, numFeature int) (tree, error) {
	n := len(tj.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("no nodes")
	}
	if len(tj.RightChildren) != n || len(tj.SplitIndices) != n || len(tj.SplitConditions) != n || len(tj.DefaultLeft) != n {
		return tree{}, errors.New("node arrays differ in length")
	}

	t := tree{
		left:        tj.LeftChildren,
		right:       tj.RightChildren,
		splitIndex:  tj.SplitIndices,
		splitCond:   tj.SplitConditions,
		defaultLeft: make([]bool, n),
	}
	for i, kind := range tj.SplitType {
		if kind != 0 {
			return tree{}, fmt.Errorf("node %d uses a categorical split", i)
		}
	}
	for i := 0; i < n; i++ {
		t.defaultLeft[i] = bool(tj.DefaultLeft[i])
		if t.left[i] == -1 {
			continue
		}
		// Children always follow their parent in XGBoost's layout, which rules out cycles.
		if t.left[i] <= i || t.left[i] >= n || t.right[i] <= i || t.right[i] >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", i, t.left[i], t.right[i])
		}
		if t.splitIndex[i] < 0 || (numFeature > 0 && t.splitIndex[i] >= numFeature) {
			return tree{}, fmt.Errorf("node %d splits on feature %d", i, t.splitIndex[i])
		}
	}
	return t, nil
}

// leaf walks the tree for one row. NaN features follow the default branch.
func (t tree) leaf(features []float64) float64 {
	node := 0
	for t.left[node] != -1 {
		v := features[t.splitIndex[node]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case v < t.splitCond[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return t.splitCond[node]
}

// NumFeatures is the input width the model was trained on.
func (b *Booster) NumFeatures() int { return b.numFeature }

// NumClasses is the number of output classes (2 for binary objectives).
func (b *Booster) NumClasses() int {
	if b.numClass <= 1 {
		return 2
	}
	return b.numClass
}

// Predict returns the class index for a single row.
func (b *Booster) Predict(features []float64) (int, error) {
	if b.numFeature > 0 && len(features) != b.numFeature {
		return 0, fmt.Errorf("model expects %d features, got %d", b.numFeature, len(features))
	}
	if len(features) < b.minInputs {
		return 0, fmt.Errorf("model splits on feature %d, got %d features", b.minInputs-1, len(features))
	}

	if b.numClass <= 1 {
		margin := logit(b.baseScore)
		for _, t := range b.trees {
			margin += t.leaf(features)
		}
		if margin > 0 {
			return 1, nil
		}
		return 0, nil
	}

	// base_score shifts every class equally, so it cannot change the argmax.
	scores := make([]float64, b.numClass)
	for i, t := range b.trees {
		scores[b.treeClass[i]] += t.leaf(features)
	}
	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return best, nil
}

func logit(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return math.Log(p / (1 - p))
}

func parseParamInt(s string) (int, error) {
	s = trimParam(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// parseParamFloats handles "5E-1" as well as the bracketed vector form "[5E-1,5E-1]" of
// newer releases. An empty value means XGBoost's default of 0.5.
func parseParamFloats(s string) ([]float64, error) {
	s = trimParam(s)
	if s == "" {
		return []float64{0.5}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func trimParam(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
}
