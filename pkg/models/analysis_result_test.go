package models_test

import (
	"encoding/json"
	"testing"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskEstimate_DecodesScalarAndRange(t *testing.T) {
	var task struct {
		A models.RiskEstimate `json:"a"`
		B models.RiskEstimate `json:"b"`
		C models.RiskEstimate `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a": 42, "b": {"low": 10, "mid": 20, "high": 35}, "c": "61"}`), &task)
	require.NoError(t, err)

	assert.True(t, task.A.Scalar)
	assert.Equal(t, 42.0, task.A.Mid)
	assert.False(t, task.B.Scalar)
	assert.Equal(t, models.NewRangeRisk(10, 20, 35), task.B)
	assert.Equal(t, models.NewScalarRisk(61), task.C)
}

func TestRiskEstimate_KeepsShapeOnEncode(t *testing.T) {
	b, err := json.Marshal(models.NewScalarRisk(42))
	require.NoError(t, err)
	assert.JSONEq(t, `42`, string(b))

	b, err = json.Marshal(models.NewRangeRisk(10, 20, 35))
	require.NoError(t, err)
	assert.JSONEq(t, `{"low":10,"mid":20,"high":35}`, string(b))
}

func TestRiskEstimate_RejectsGarbage(t *testing.T) {
	var r models.RiskEstimate
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &r))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`"NaN"`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"low": 1, "mid": "Inf", "high": 2}`), &r))
}

func TestAnalysisResult_OptionalFieldsOmitted(t *testing.T) {
	b, err := json.Marshal(models.AnalysisResult{Summary: "s", Tips: []string{"t"}})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "tasks")
	assert.NotContains(t, m, "overallScore")
	assert.NotContains(t, m, "alreadyHappening")
	assert.NotContains(t, m, "timeline")
	assert.NotContains(t, m, "metrics")
}

func TestAnalysisResult_QuotedNumbers(t *testing.T) {
	raw := `{
		"tasks": [{"name": "n", "timePercent": "40", "automationRisk": {"low": "5", "mid": 10, "high": "20"}, "reason": "r"}],
		"timeline": {"threeYear": "7", "fiveYear": 12, "sevenYear": " 16 "},
		"metrics": {"wagePressure": {"score": "35", "description": "d"}},
		"summary": "s",
		"tips": []
	}`

	var r models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, 40.0, r.Tasks[0].TimePercent)
	assert.Equal(t, "n", r.Tasks[0].Name)
	assert.Equal(t, models.NewRangeRisk(5, 10, 20), r.Tasks[0].AutomationRisk)
	assert.Equal(t, models.Timeline{ThreeYear: 7, FiveYear: 12, SevenYear: 16}, *r.Timeline)
	assert.Equal(t, 35.0, r.Metrics.WagePressure.Score)
	assert.Equal(t, "d", r.Metrics.WagePressure.Description)
}

func TestAnalysisResult_KeepsUnknownFields(t *testing.T) {
	raw := `{"summary": "s", "tips": ["a"], "confidence": "high", "sources": [{"url": "u"}]}`

	var r models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Len(t, r.Extra, 2)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(b))
}

func TestJobRecord_KeepsUnknownFields(t *testing.T) {
	raw := `{"slug": "nurse", "title": "Nurse", "updatedAt": "2025-03-01T12:00:00Z", "summary": "s", "tips": [], "confidence": "high"}`

	var rec models.JobRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "nurse", rec.Slug)
	assert.Equal(t, map[string]json.RawMessage{"confidence": json.RawMessage(`"high"`)}, rec.Extra)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(b))
}

func TestStreamEvent_Terminal(t *testing.T) {
	assert.False(t, models.ChunkEvent("x").Terminal())
	assert.True(t, models.DoneEvent(&models.AnalysisResult{}).Terminal())
	assert.True(t, models.ErrorEvent("boom").Terminal())
}

func TestAnalysisRequest_WantsStream(t *testing.T) {
	assert.False(t, models.AnalysisRequest{}.WantsStream())
	assert.True(t, models.AnalysisRequest{Streaming: true}.WantsStream())
	assert.True(t, models.AnalysisRequest{Stream: true}.WantsStream())
}
