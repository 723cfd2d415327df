// Package scoring turns selected survey options into health-axis scores, a
// health-type label, cluster aggregates and canned recommendations.
//
// Everything here is pure: no I/O, no clock, no shared state.
package scoring

import (
	"sort"
)

// Axis names a scored health dimension. Impact maps may reference axes beyond
// the canonical five; those are carried in Scores but never classified.
type Axis string

const (
	AxisSleep     Axis = "Sleep"
	AxisDigestion Axis = "Digestion"
	AxisEnergy    Axis = "Energy"
	AxisStress    Axis = "Stress"
	AxisImmunity  Axis = "Immunity"
)

// CanonicalAxes is also the tie-break order for classification.
var CanonicalAxes = []Axis{AxisSleep, AxisDigestion, AxisEnergy, AxisStress, AxisImmunity}

const (
	MinScore      = 0
	MaxScore      = 100
	BaselineScore = 100
)

func (a Axis) IsCanonical() bool {
	switch a {
	case AxisSleep, AxisDigestion, AxisEnergy, AxisStress, AxisImmunity:
		return true
	}
	return false
}

// Impact is a sparse axis-name -> delta map attached to a question option.
// Absent axes contribute zero.
type Impact map[string]int

// Scores always holds every canonical axis in [0,100].
type Scores map[Axis]int

// Baseline returns fresh all-100 scores.
func Baseline() Scores {
	s := make(Scores, len(CanonicalAxes))
	for _, a := range CanonicalAxes {
		s[a] = BaselineScore
	}
	return s
}

// Extended returns the non-canonical axes present in s, sorted by name.
func (s Scores) Extended() []Axis {
	var out []Axis
	for a := range s {
		if !a.IsCanonical() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClampPolicy selects when the [0,100] bound is applied.
type ClampPolicy int

const (
	// ClampEachStep clamps after every single addition. Results depend on
	// the order options are processed when mixed-sign deltas cross a bound.
	ClampEachStep ClampPolicy = iota
	// ClampAtEnd sums every delta per axis and clamps once. Order independent.
	ClampAtEnd
)

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// ComputeScores folds the impacts of selected, in order, over the baseline
// using ClampEachStep. Unknown option ids contribute nothing.
func ComputeScores(selected []string, impacts map[string]Impact) Scores {
	return ComputeScoresWithPolicy(ClampEachStep, selected, impacts)
}

func ComputeScoresWithPolicy(policy ClampPolicy, selected []string, impacts map[string]Impact) Scores {
	scores := Baseline()
	for _, id := range selected {
		impact, ok := impacts[id]
		if !ok {
			continue
		}
		for _, key := range sortedKeys(impact) {
			axis := Axis(key)
			cur, seen := scores[axis]
			if !seen {
				cur = BaselineScore
			}
			next := cur + impact[key]
			if policy == ClampEachStep {
				next = clamp(next)
			}
			scores[axis] = next
		}
	}
	if policy == ClampAtEnd {
		for a, v := range scores {
			scores[a] = clamp(v)
		}
	}
	return scores
}

// sortedKeys fixes iteration order so each step touches axes deterministically.
// Axes within one impact are independent, so this never changes a result.
func sortedKeys(impact Impact) []string {
	keys := make([]string, 0, len(impact))
	for k := range impact {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// lowest returns the canonical axis with the strictly lowest score; the
// earlier axis in CanonicalAxes wins ties.
func lowest(scores Scores) Axis {
	best := CanonicalAxes[0]
	for _, a := range CanonicalAxes[1:] {
		if scores[a] < scores[best] {
			best = a
		}
	}
	return best
}

// FocusAxis is one of the weakest axes, reported for consultation prompts.
type FocusAxis struct {
	Axis  Axis `json:"axis"`
	Score int  `json:"score"`
}

// FocusAxes returns the n lowest canonical axes, ties in canonical order.
func FocusAxes(scores Scores, n int) []FocusAxis {
	out := make([]FocusAxis, 0, len(CanonicalAxes))
	for _, a := range CanonicalAxes {
		out = append(out, FocusAxis{Axis: a, Score: scores[a]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Analysis is the full output of one scoring run.
type Analysis struct {
	Scores          Scores         `json:"scores"`
	HealthType      HealthType     `json:"healthType"`
	FocusAxes       []FocusAxis    `json:"focusAxes"`
	Clusters        Clusters       `json:"clusters"`
	Recommendations Recommendation `json:"recommendations"`
}

// Analyze runs ComputeScores, Classify and Derive.
func Analyze(selected []string, impacts map[string]Impact) Analysis {
	scores := ComputeScores(selected, impacts)
	ht := Classify(scores)
	d := Derive(scores, ht)
	return Analysis{
		Scores:          scores,
		HealthType:      ht,
		FocusAxes:       FocusAxes(scores, 2),
		Clusters:        d.Clusters,
		Recommendations: d.Recommendations,
	}
}
