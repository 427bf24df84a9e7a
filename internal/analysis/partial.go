package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PlaceholderStatus is shown before anything can be extracted from a stream.
const PlaceholderStatus = "Starting analysis..."

// Extraction patterns compiled once at package init. They operate on an
// arbitrary prefix of the model's reply, so nothing here may assume the JSON
// is complete or even well formed.
const (
	jsonString = `"((?:[^"\\]|\\.)*)"`
	jsonNumber = `(-?\d+(?:\.\d+)?)`
)

var (
	reSummary      = regexp.MustCompile(`"summary"\s*:\s*` + jsonString)
	reTasksStart   = regexp.MustCompile(`"tasks"\s*:\s*\[`)
	reTasksEnd     = regexp.MustCompile(`"(?:overallScore|alreadyHappening|timeline|metrics|summary|tips)"\s*:`)
	reFlatObject   = regexp.MustCompile(`\{(?:[^{}"]|"(?:[^"\\]|\\.)*"|\{(?:[^{}"]|"(?:[^"\\]|\\.)*")*\})*\}`)
	reOverallRange = regexp.MustCompile(`"overallScore"\s*:\s*\{[^{}]*?"mid"\s*:\s*` + jsonNumber + `[^{}]*\}`)
	reOverallValue = regexp.MustCompile(`"overallScore"\s*:\s*"?` + jsonNumber + `"?\s*[,}\n]`)
	reTipsStart    = regexp.MustCompile(`"tips"\s*:\s*\[`)
	reNextTip      = regexp.MustCompile(`^\s*,?\s*` + jsonString)
)

// PartialTask is a task whose record has been fully received.
type PartialTask struct {
	Name        string
	TimePercent float64
	RiskMid     float64
	Reason      string
}

// PartialView is what can be shown from an incomplete reply.
type PartialView struct {
	Summary      string
	Tasks        []PartialTask
	OverallScore *float64
	Tips         []string
}

// Empty reports whether nothing has been extracted yet.
func (v PartialView) Empty() bool {
	return v.Summary == "" && len(v.Tasks) == 0 && v.OverallScore == nil && len(v.Tips) == 0
}

// Status is a one-line progress description for the view.
func (v PartialView) Status() string {
	switch {
	case v.Empty():
		return PlaceholderStatus
	case v.Summary != "" && len(v.Tips) > 0:
		return "Finishing up..."
	case v.OverallScore != nil:
		return fmt.Sprintf("Overall risk %.0f%%, writing summary...", *v.OverallScore)
	default:
		return fmt.Sprintf("Analyzed %d tasks...", len(v.Tasks))
	}
}

// ExtractPartial pulls the displayable fragments out of a reply prefix. Only
// complete values are returned: a task appears once its closing brace has
// arrived, a tip once its closing quote has.
func ExtractPartial(buf string) PartialView {
	var v PartialView

	if m := reSummary.FindStringSubmatch(buf); m != nil {
		v.Summary = unescape(m[1])
	}
	v.Tasks = extractTasks(buf)
	v.OverallScore = extractOverall(buf)
	v.Tips = extractTips(buf)

	return v
}

type taskProbe struct {
	Name           string          `json:"name"`
	TimePercent    *float64        `json:"timePercent"`
	AutomationRisk json.RawMessage `json:"automationRisk"`
	Reason         *string         `json:"reason"`
}

func extractTasks(buf string) []PartialTask {
	loc := reTasksStart.FindStringIndex(buf)
	if loc == nil {
		return nil
	}
	section := buf[loc[1]:]
	if end := reTasksEnd.FindStringIndex(section); end != nil {
		section = section[:end[0]]
	}

	var tasks []PartialTask
	for _, obj := range reFlatObject.FindAllString(section, -1) {
		var probe taskProbe
		if err := json.Unmarshal([]byte(obj), &probe); err != nil {
			continue
		}
		if probe.Name == "" || probe.TimePercent == nil || probe.Reason == nil || len(probe.AutomationRisk) == 0 {
			continue
		}
		mid, ok := riskMid(probe.AutomationRisk)
		if !ok {
			continue
		}
		tasks = append(tasks, PartialTask{
			Name:        probe.Name,
			TimePercent: *probe.TimePercent,
			RiskMid:     mid,
			Reason:      *probe.Reason,
		})
	}
	return tasks
}

func riskMid(raw json.RawMessage) (float64, bool) {
	var rng struct {
		Mid *float64 `json:"mid"`
	}
	if err := json.Unmarshal(raw, &rng); err == nil {
		if rng.Mid == nil {
			return 0, false
		}
		return *rng.Mid, true
	}
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return scalar, true
	}
	return 0, false
}

func extractOverall(buf string) *float64 {
	m := reOverallRange.FindStringSubmatch(buf)
	if m == nil {
		m = reOverallValue.FindStringSubmatch(buf)
	}
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

func extractTips(buf string) []string {
	loc := reTipsStart.FindStringIndex(buf)
	if loc == nil {
		return nil
	}
	rest := buf[loc[1]:]

	var tips []string
	for {
		m := reNextTip.FindStringSubmatchIndex(rest)
		if m == nil {
			return tips
		}
		tips = append(tips, unescape(rest[m[2]:m[3]]))
		rest = rest[m[1]:]
	}
}

// unescape decodes JSON string escapes, falling back to the raw text.
func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return strings.ReplaceAll(s, `\"`, `"`)
	}
	return out
}
