package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/thomasrohde/codeblock/pkg/evaluator"
)

// TraceSummary aggregates the events of one NDJSON trace file.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	Loops       int            `json:"loops"`
	LoopsByKind map[string]int `json:"loopsByKind"`
	Iterations  int64          `json:"iterations"`
	Prints      int            `json:"prints"`
	CaseMatches int            `json:"caseMatches"`
	Faults      int            `json:"faults"`
	Status      string         `json:"status,omitempty"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

func (a *App) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: cbc trace <file.jsonl> [--json|--text]")
		return ExitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: cannot read file: %s\n", file)
		return ExitUsage
	}
	defer f.Close()

	summary := ComputeTraceSummary(f)

	if textOutput {
		printTraceSummaryText(a.Stdout, summary)
		return ExitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(a.Stdout, string(b))
	return ExitOK
}

// ComputeTraceSummary reads trace events line by line. Blank and malformed
// lines are skipped.
func ComputeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		LoopsByKind: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
			summary.Status = event.Data["status"]
		case evaluator.TraceLoopStart:
			summary.Loops++
			if kind, ok := event.Data["loop"]; ok {
				summary.LoopsByKind[kind]++
			}
		case evaluator.TraceLoopEnd:
			if n, err := strconv.ParseInt(event.Data["iterations"], 10, 64); err == nil {
				summary.Iterations += n
			}
		case evaluator.TracePrint:
			summary.Prints++
		case evaluator.TraceCaseMatch:
			summary.CaseMatches++
		case evaluator.TraceFault:
			summary.Faults++
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Loops: %d (%d iterations)\n", s.Loops, s.Iterations)
	kinds := make([]string, 0, len(s.LoopsByKind))
	for kind := range s.LoopsByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.LoopsByKind[kind])
	}
	fmt.Fprintf(w, "Prints: %d\n", s.Prints)
	fmt.Fprintf(w, "Case matches: %d\n", s.CaseMatches)
	fmt.Fprintf(w, "Faults: %d\n", s.Faults)
	if s.Status != "" {
		fmt.Fprintf(w, "Status: %s\n", s.Status)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
