package models

import (
	"encoding/json"
	"time"
)

// JobRecord is a precomputed analysis from the curated job catalog.
type JobRecord struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
	AnalysisResult
}

type jobHeader struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON reads the flat catalog shape: record fields next to the
// analysis fields.
func (j *JobRecord) UnmarshalJSON(data []byte) error {
	var h jobHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	for _, k := range []string{"slug", "title", "updatedAt"} {
		delete(result.Extra, k)
	}
	if len(result.Extra) == 0 {
		result.Extra = nil
	}
	*j = JobRecord{Slug: h.Slug, Title: h.Title, UpdatedAt: h.UpdatedAt, AnalysisResult: result}
	return nil
}

func (j JobRecord) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(jobHeader{Slug: j.Slug, Title: j.Title, UpdatedAt: j.UpdatedAt})
	if err != nil {
		return nil, err
	}
	result := j.AnalysisResult
	if len(result.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(result.Extra))
		for k, v := range result.Extra {
			if k != "slug" && k != "title" && k != "updatedAt" {
				extra[k] = v
			}
		}
		result.Extra = extra
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	// Both halves are non-empty objects.
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	return append(out, body[1:]...), nil
}

// JobSummary is the browse-list projection of a JobRecord.
type JobSummary struct {
	Slug     string  `json:"slug"`
	Title    string  `json:"title"`
	FiveYear float64 `json:"fiveYear"`
}

// FiveYear returns the five-year projection, or zero when the record has no timeline.
func (j *JobRecord) FiveYear() float64 {
	if j.Timeline == nil {
		return 0
	}
	return j.Timeline.FiveYear
}

// JobComparison pairs two catalog records with the change from A to B.
type JobComparison struct {
	A      *JobRecord       `json:"a"`
	B      *JobRecord       `json:"b"`
	Deltas ComparisonDeltas `json:"deltas"`
}

// ComparisonDeltas holds B minus A for every numeric dashboard field.
type ComparisonDeltas struct {
	Timeline Timeline           `json:"timeline"`
	Metrics  map[string]float64 `json:"metrics"`
}

// CompareJobs computes the deltas between a and b. A missing timeline or
// metrics block counts as all zeros.
func CompareJobs(a, b *JobRecord) JobComparison {
	ta, tb := timelineOrZero(a), timelineOrZero(b)
	ma, mb := metricsOrZero(a), metricsOrZero(b)
	return JobComparison{
		A: a,
		B: b,
		Deltas: ComparisonDeltas{
			Timeline: Timeline{
				ThreeYear: tb.ThreeYear - ta.ThreeYear,
				FiveYear:  tb.FiveYear - ta.FiveYear,
				SevenYear: tb.SevenYear - ta.SevenYear,
			},
			Metrics: map[string]float64{
				"routineAutomation": mb.RoutineAutomation.Score - ma.RoutineAutomation.Score,
				"complexAutomation": mb.ComplexAutomation.Score - ma.ComplexAutomation.Score,
				"positionDemand":    mb.PositionDemand.Score - ma.PositionDemand.Score,
				"wagePressure":      mb.WagePressure.Score - ma.WagePressure.Score,
				"reskillUrgency":    mb.ReskillUrgency.Score - ma.ReskillUrgency.Score,
			},
		},
	}
}

func timelineOrZero(j *JobRecord) Timeline {
	if j.Timeline == nil {
		return Timeline{}
	}
	return *j.Timeline
}

func metricsOrZero(j *JobRecord) Metrics {
	if j.Metrics == nil {
		return Metrics{}
	}
	return *j.Metrics
}
