package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/jobstatus/internal/ai"
	"github.com/kiranshivaraju/jobstatus/internal/analysis"
	"github.com/kiranshivaraju/jobstatus/internal/app"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

func newAnalyzeCmd() *cobra.Command {
	var stream bool
	cmd := &cobra.Command{
		Use:   "analyze <job title>",
		Short: "Analyze a job title and print the result JSON",
		Long: "Runs the same analysis pipeline as the server, in-process. With --stream the partial " +
			"result is printed to stderr as it arrives.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return runAnalyze(cmd, a.Service, strings.Join(args, " "), stream)
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the model output and show progress")
	return cmd
}

func runAnalyze(cmd *cobra.Command, svc *ai.AnalysisService, title string, stream bool) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if !stream {
		res, err := svc.Analyze(cmd.Context(), title)
		if err != nil {
			return analyzeError(err)
		}
		fmt.Fprintf(errOut, "cache: %s\n", res.Cache)
		return printJSON(out, res.Result)
	}

	progress := newProgressPrinter(errOut)
	var final *models.AnalysisResult
	status, err := svc.AnalyzeStream(cmd.Context(), title, func(ev models.StreamEvent) error {
		switch ev.Type {
		case models.EventChunk:
			progress.add(ev.Text)
		case models.EventDone:
			final = ev.Data
		}
		return nil
	})
	if err != nil {
		return analyzeError(err)
	}
	fmt.Fprintf(errOut, "cache: %s\n", status)
	return printJSON(out, final)
}

// analyzeError keeps the user-facing message and the underlying cause.
func analyzeError(err error) error {
	return fmt.Errorf("%s (%s): %w", ai.UserMessage(err), ai.Classify(err), err)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressPrinter renders the partial view of a growing reply, printing only
// what changed since the previous chunk.
type progressPrinter struct {
	w         io.Writer
	buf       strings.Builder
	status    string
	tasks     int
	summary   bool
	overall   bool
	tipsShown int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) add(delta string) {
	p.buf.WriteString(delta)
	view := analysis.ExtractPartial(p.buf.String())

	// A later prefix can extract fewer items than an earlier one.
	if len(view.Tasks) > p.tasks {
		for _, t := range view.Tasks[p.tasks:] {
			fmt.Fprintf(p.w, "  task: %s (%.0f%% of time, risk %.0f%%)\n", t.Name, t.TimePercent, t.RiskMid)
		}
		p.tasks = len(view.Tasks)
	}

	if view.OverallScore != nil && !p.overall {
		p.overall = true
		fmt.Fprintf(p.w, "  overall risk: %.0f%%\n", *view.OverallScore)
	}
	if view.Summary != "" && !p.summary {
		p.summary = true
		fmt.Fprintf(p.w, "  summary: %s\n", view.Summary)
	}
	if len(view.Tips) > p.tipsShown {
		for _, tip := range view.Tips[p.tipsShown:] {
			fmt.Fprintf(p.w, "  tip: %s\n", tip)
		}
		p.tipsShown = len(view.Tips)
	}

	if s := view.Status(); s != p.status {
		p.status = s
		fmt.Fprintf(p.w, "%s\n", s)
	}
}
