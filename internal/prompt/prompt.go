// Package prompt renders the instruction text sent to the model for a job
// title. The text carries the calibration anchors and the exact result schema,
// so changes here change the numbers users see.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

// DefaultRejectMessage is the message the model is told to return for input
// that is not an occupation.
const DefaultRejectMessage = "Please enter a valid job title like 'Software Engineer', 'Nurse', or 'Accountant'."

//go:embed templates/analyze.md
var analyzeTemplateRaw string

// analyzeTemplate is parsed once at init and reused for every request.
var analyzeTemplate = template.Must(template.New("analyze").Parse(analyzeTemplateRaw))

// Benchmark is a reference automation probability for a job archetype.
type Benchmark struct {
	Job     string
	Percent int
}

// Band is an inclusive range of overall mid estimates for a job category.
type Band struct {
	Min int
	Max int
}

type toolGroup struct {
	Area  string
	Names string
}

// Benchmarks are the calibration anchors embedded in every prompt.
var Benchmarks = []Benchmark{
	{"Telemarketer", 99},
	{"Data Entry Clerk", 98},
	{"Bookkeeper", 98},
	{"Paralegal", 94},
	{"Accountant", 94},
	{"Retail Salesperson", 92},
	{"Fast Food Cook", 81},
	{"Truck Driver", 79},
	{"Financial Analyst", 54},
	{"Software Developer", 48},
	{"Writer/Author", 45},
	{"Graphic Designer", 43},
	{"Marketing Manager", 42},
	{"Lawyer", 35},
	{"Teacher", 27},
	{"Physician", 23},
	{"Registered Nurse", 18},
	{"Physical Therapist", 14},
	{"Dentist", 13},
	{"Electrician", 11},
	{"Plumber", 9},
	{"Surgeon", 4},
	{"Mental Health Counselor", 3},
}

// Category bands for the overall mid estimate.
var (
	PhysicalBand  = Band{Min: 3, Max: 25}
	HybridBand    = Band{Min: 15, Max: 50}
	KnowledgeBand = Band{Min: 35, Max: 99}
)

var toolGroups = []toolGroup{
	{"Writing/Content", "ChatGPT, Claude, Jasper, Copy.ai, Grammarly"},
	{"Coding", "GitHub Copilot, Cursor, Replit AI, Amazon CodeWhisperer"},
	{"Data Analysis", "ChatGPT Advanced Data Analysis, Tableau AI, Power BI Copilot"},
	{"Design", "Midjourney, DALL-E, Adobe Firefly, Canva AI"},
	{"Customer Service", "Intercom Fin, Zendesk AI, Drift"},
	{"Research", "Perplexity, Elicit, Consensus"},
	{"Legal", "Harvey AI, CoCounsel, Casetext"},
	{"Sales/CRM", "Salesforce Einstein, Gong, Outreach AI"},
	{"HR/Recruiting", "HireVue, Pymetrics, LinkedIn Recruiter AI"},
	{"Accounting", "Vic.ai, Botkeeper, QuickBooks AI"},
	{"Medical", "Epic AI, Nuance DAX, Viz.ai"},
	{"Scheduling", "Calendly AI, Clockwise, Reclaim AI"},
}

var citations = []string{
	"JPMorgan uses COIN to review commercial loan agreements",
	"Klarna's AI assistant handles the work of 700 customer service agents",
	"GitHub reports Copilot writes around 46% of code for its users",
	"Radiology AI at hospitals such as Mayo Clinic flags cancers on scans",
}

type templateData struct {
	JobTitle      string
	RejectMessage string
	Physical      Band
	Hybrid        Band
	Knowledge     Band
	Benchmarks    []Benchmark
	Tools         []toolGroup
	Citations     []string
}

// Build renders the analysis prompt for an already validated job title.
// Output depends only on jobTitle.
func Build(jobTitle string) (string, error) {
	data := templateData{
		JobTitle:      sanitize(jobTitle),
		RejectMessage: DefaultRejectMessage,
		Physical:      PhysicalBand,
		Hybrid:        HybridBand,
		Knowledge:     KnowledgeBand,
		Benchmarks:    Benchmarks,
		Tools:         toolGroups,
		Citations:     citations,
	}

	var buf bytes.Buffer
	if err := analyzeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering analysis prompt: %w", err)
	}
	return buf.String(), nil
}

// sanitize keeps the title from closing the quoted string it is embedded in.
func sanitize(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch r {
		case '"':
			out = append(out, '\'')
		case '\n', '\r', '\t':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
