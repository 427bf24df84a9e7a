package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// AnalysisResult is the structured automation-exposure assessment for one job
// title. Fields added in later schema versions are optional and may be absent
// from older cached or catalog records. Top-level fields this type does not
// know are kept in Extra and written back out unchanged.
type AnalysisResult struct {
	Tasks            []Task        `json:"tasks,omitempty"`
	OverallScore     *RiskEstimate `json:"overallScore,omitempty"`
	AlreadyHappening []Citation    `json:"alreadyHappening,omitempty"`
	Timeline         *Timeline     `json:"timeline,omitempty"`
	Metrics          *Metrics      `json:"metrics,omitempty"`
	Summary          string        `json:"summary"`
	Tips             []string      `json:"tips"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownResultFields = map[string]bool{
	"tasks":            true,
	"overallScore":     true,
	"alreadyHappening": true,
	"timeline":         true,
	"metrics":          true,
	"summary":          true,
	"tips":             true,
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	type plain AnalysisResult
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		if knownResultFields[k] {
			continue
		}
		if decoded.Extra == nil {
			decoded.Extra = make(map[string]json.RawMessage)
		}
		decoded.Extra[k] = v
	}

	*r = AnalysisResult(decoded)
	return nil
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	type plain AnalysisResult
	out, err := json.Marshal(plain(r))
	if err != nil || len(r.Extra) == 0 {
		return out, err
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if !knownResultFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// out always holds at least summary and tips, so extras follow a comma.
	buf := bytes.NewBuffer(out[:len(out)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.Extra[k])
		if err != nil {
			return nil, fmt.Errorf("extra field %s: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Task is one core activity of the job and how exposed it is to automation.
type Task struct {
	Name           string       `json:"name"`
	TimePercent    float64      `json:"timePercent"`
	AutomationRisk RiskEstimate `json:"automationRisk"`
	AITools        []string     `json:"aiTools,omitempty"`
	Reason         string       `json:"reason"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		TimePercent looseFloat `json:"timePercent"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.TimePercent = float64(aux.TimePercent)
	return nil
}

// Citation is a real-world example of automation already under way.
type Citation struct {
	Example string `json:"example"`
	Detail  string `json:"detail"`
}

// Timeline holds projected automation exposure at three horizons.
type Timeline struct {
	ThreeYear float64 `json:"threeYear"`
	FiveYear  float64 `json:"fiveYear"`
	SevenYear float64 `json:"sevenYear"`
}

func (tl *Timeline) UnmarshalJSON(data []byte) error {
	var aux struct {
		ThreeYear looseFloat `json:"threeYear"`
		FiveYear  looseFloat `json:"fiveYear"`
		SevenYear looseFloat `json:"sevenYear"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*tl = Timeline{
		ThreeYear: float64(aux.ThreeYear),
		FiveYear:  float64(aux.FiveYear),
		SevenYear: float64(aux.SevenYear),
	}
	return nil
}

// Metric is a scored dimension with a one-sentence explanation.
type Metric struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	type plain Metric
	aux := struct {
		*plain
		Score looseFloat `json:"score"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Score = float64(aux.Score)
	return nil
}

// Metrics is the fixed set of five dashboard dimensions. PositionDemand is
// signed (-50..+50); the rest are 0..100.
type Metrics struct {
	RoutineAutomation Metric `json:"routineAutomation"`
	ComplexAutomation Metric `json:"complexAutomation"`
	PositionDemand    Metric `json:"positionDemand"`
	WagePressure      Metric `json:"wagePressure"`
	ReskillUrgency    Metric `json:"reskillUrgency"`
}

// RiskEstimate is an automation-risk percentage. Early results carry a single
// number; current results carry a low/mid/high range. Scalar records which
// shape was decoded so it is written back out unchanged.
type RiskEstimate struct {
	Low    float64
	Mid    float64
	High   float64
	Scalar bool
}

type riskRange struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// NewScalarRisk returns a single-value estimate.
func NewScalarRisk(v float64) RiskEstimate {
	return RiskEstimate{Low: v, Mid: v, High: v, Scalar: true}
}

// NewRangeRisk returns a low/mid/high estimate.
func NewRangeRisk(low, mid, high float64) RiskEstimate {
	return RiskEstimate{Low: low, Mid: mid, High: high}
}

func (r RiskEstimate) MarshalJSON() ([]byte, error) {
	if r.Scalar {
		return json.Marshal(r.Mid)
	}
	return json.Marshal(riskRange{Low: r.Low, Mid: r.Mid, High: r.High})
}

func (r *RiskEstimate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '{':
		var rr struct {
			Low  looseFloat `json:"low"`
			Mid  looseFloat `json:"mid"`
			High looseFloat `json:"high"`
		}
		if err := json.Unmarshal(data, &rr); err != nil {
			return fmt.Errorf("risk estimate range: %w", err)
		}
		*r = NewRangeRisk(float64(rr.Low), float64(rr.Mid), float64(rr.High))
		return nil
	default:
		var v looseFloat
		if err := v.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("risk estimate: %w", err)
		}
		*r = NewScalarRisk(float64(v))
		return nil
	}
}

// looseFloat decodes a JSON number, a quoted number or null. Some models
// quote numbers.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%q is not a number", s)
		}
		*f = looseFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = looseFloat(v)
	return nil
}
