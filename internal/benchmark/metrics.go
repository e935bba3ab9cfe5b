package benchmark

import "math"

const calibrationBins = 10

// Metrics summarizes a scored benchmark run.
type Metrics struct {
	N            int     `json:"n"`
	Accuracy     float64 `json:"accuracy"`
	BrierScore   float64 `json:"brier_score"`
	ECE          float64 `json:"ece"`
	MeanScore    float64 `json:"mean_score"`
	PositiveRate float64 `json:"positive_rate"`
	Threshold    float64 `json:"threshold"`
}

// Prediction is one scored dataset row.
type Prediction struct {
	Index  int     `json:"index"`
	Label  int     `json:"label"`
	Score  float64 `json:"score"`
	Answer string  `json:"answer,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// FitThreshold searches for the decision threshold maximizing accuracy on
// the first n predictions. With no usable predictions it returns 0.5.
func FitThreshold(preds []Prediction, n int) float64 {
	if n <= 0 || len(preds) == 0 {
		return 0.5
	}
	if n > len(preds) {
		n = len(preds)
	}

	sample := make([]Prediction, 0, n)
	for _, p := range preds[:n] {
		if p.Error == "" {
			sample = append(sample, p)
		}
	}
	if len(sample) == 0 {
		return 0.5
	}

	// Candidate thresholds are the 0.5 default plus each observed score
	// (score >= threshold predicts positive, so the scores themselves are
	// the decision boundaries).
	candidates := []float64{0.5}
	for _, p := range sample {
		candidates = append(candidates, p.Score)
	}

	best, bestAcc := 0.5, -1.0
	for _, t := range candidates {
		correct := 0
		for _, p := range sample {
			if predictedLabel(p.Score, t) == p.Label {
				correct++
			}
		}
		acc := float64(correct) / float64(len(sample))
		if acc > bestAcc {
			best, bestAcc = t, acc
		}
	}
	return best
}

// Evaluate computes summary metrics over predictions at the given decision
// threshold. Rows that failed to score are excluded.
func Evaluate(preds []Prediction, threshold float64) Metrics {
	m := Metrics{Threshold: threshold}

	var sumScore, brier float64
	correct, positives := 0, 0
	for _, p := range preds {
		if p.Error != "" {
			continue
		}
		m.N++
		sumScore += p.Score
		brier += (p.Score - float64(p.Label)) * (p.Score - float64(p.Label))
		if predictedLabel(p.Score, threshold) == p.Label {
			correct++
		}
		if p.Label == 1 {
			positives++
		}
	}
	if m.N == 0 {
		return m
	}

	m.Accuracy = float64(correct) / float64(m.N)
	m.BrierScore = brier / float64(m.N)
	m.MeanScore = sumScore / float64(m.N)
	m.PositiveRate = float64(positives) / float64(m.N)
	m.ECE = expectedCalibrationError(preds, calibrationBins)
	return m
}

// expectedCalibrationError bins predictions by score and averages the
// per-bin |confidence - observed frequency| weighted by bin size.
func expectedCalibrationError(preds []Prediction, bins int) float64 {
	if bins <= 0 {
		bins = calibrationBins
	}

	sumScore := make([]float64, bins)
	sumLabel := make([]float64, bins)
	count := make([]int, bins)

	total := 0
	for _, p := range preds {
		if p.Error != "" {
			continue
		}
		b := int(p.Score * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		sumScore[b] += p.Score
		sumLabel[b] += float64(p.Label)
		count[b]++
		total++
	}
	if total == 0 {
		return 0
	}

	var ece float64
	for b := 0; b < bins; b++ {
		if count[b] == 0 {
			continue
		}
		conf := sumScore[b] / float64(count[b])
		freq := sumLabel[b] / float64(count[b])
		ece += float64(count[b]) / float64(total) * math.Abs(conf-freq)
	}
	return ece
}

func predictedLabel(score float64, threshold float64) int {
	if score >= threshold {
		return 1
	}
	return 0
}
