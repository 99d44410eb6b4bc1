package models

// Heatmap metric names. The set is a fixed schema shared by the analyzer's
// output schema and the API views; it is not user-extensible.
const (
	MetricCommunication    = "communication"
	MetricDecisionMaking   = "decisionMaking"
	MetricRiskAssessment   = "riskAssessment"
	MetricCollaboration    = "collaboration"
	MetricAdaptability     = "adaptability"
	MetricEthicalReasoning = "ethicalReasoning"
)

// HeatmapMetrics lists every heatmap dimension in display order.
func HeatmapMetrics() []string {
	return []string{
		MetricCommunication,
		MetricDecisionMaking,
		MetricRiskAssessment,
		MetricCollaboration,
		MetricAdaptability,
		MetricEthicalReasoning,
	}
}

// Analysis is the behavioral score attached to a finished simulation.
// OverallScore is expected in [1,100] and each heatmap value in [1,10];
// out-of-range values from the upstream model are passed through unmodified.
type Analysis struct {
	OverallScore       float64            `json:"overallScore"`
	KeyStrengths       []string           `json:"keyStrengths"`
	GrowthAreas        []string           `json:"growthAreas"`
	ActionableFeedback string             `json:"actionableFeedback"`
	HeatmapData        map[string]float64 `json:"heatmapData"`
}

// Clone returns a deep copy of the analysis.
func (a *Analysis) Clone() *Analysis {
	cp := *a
	cp.KeyStrengths = append([]string(nil), a.KeyStrengths...)
	cp.GrowthAreas = append([]string(nil), a.GrowthAreas...)
	cp.HeatmapData = make(map[string]float64, len(a.HeatmapData))
	for k, v := range a.HeatmapData {
		cp.HeatmapData[k] = v
	}
	return &cp
}
