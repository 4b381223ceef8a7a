package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/service"
	"exoplanet-backend/internal/state"

	"github.com/fatih/color"
)

var (
	dataPath    = flag.String("data", "training_data.csv", "Reference dataset CSV")
	labelColumn = flag.String("label", service.DefaultLabelColumn, "Label column used for neighbour voting")
	neighbors   = flag.Int("k", service.DefaultNeighbors, "Number of nearest neighbours")
	showColumns = flag.Bool("columns", false, "Print column profiles and exit")
	selection   = flag.String("select", "", "Query as col=value pairs, e.g. koi_period=9.48,koi_prad=2.26")
	asJSON      = flag.Bool("json", false, "Print the raw JSON result")
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataset := state.NewStore(*dataPath)
	if err := dataset.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
	engine := service.NewEngine(dataset, service.NewProfileStore(0), service.EngineOptions{
		Neighbors:   *neighbors,
		LabelColumn: *labelColumn,
	})

	if *showColumns {
		profiles, _ := engine.ColumnProfiles()
		if *asJSON {
			printJSON(os.Stdout, profiles)
			return
		}
		printProfiles(os.Stdout, profiles)
		return
	}

	q, err := parseSelection(*selection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		flag.Usage()
		os.Exit(2)
	}

	res := engine.Analyze(ctx, q)
	if *asJSON {
		printJSON(os.Stdout, res)
	} else {
		printResult(os.Stdout, res, q.SelectedColumns, *labelColumn)
	}
	if res.Type == models.ResultFailure {
		os.Exit(1)
	}
}

// parseSelection turns "a=1,b=x" into a query selecting a and b in order.
func parseSelection(s string) (models.Query, error) {
	q := models.Query{Values: map[string]string{}}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, val, ok := strings.Cut(part, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return q, fmt.Errorf("invalid selection %q (expected col=value)", part)
		}
		if _, seen := q.Values[col]; !seen {
			q.SelectedColumns = append(q.SelectedColumns, col)
		}
		q.Values[col] = strings.TrimSpace(val)
	}
	if len(q.SelectedColumns) == 0 {
		return q, fmt.Errorf("no columns selected; use -select col=value,...")
	}
	return q, nil
}

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func printProfiles(w io.Writer, profiles []models.ColumnProfile) {
	fmt.Fprintln(w, green("Columns"))
	for _, p := range profiles {
		fmt.Fprintf(w, "  %-28s %-8s non-null %-6d null %-6d", cyan(p.Name), p.Type, p.NonNullCount, p.NullCount)
		if p.HasRange() {
			fmt.Fprintf(w, " range [%g, %g]", *p.Min, *p.Max)
		}
		fmt.Fprintln(w)
	}
}

func printResult(w io.Writer, res models.AnalysisResult, cols []string, label string) {
	switch res.Type {
	case models.ResultExactMatch:
		fmt.Fprintf(w, "%s %s\n", green("✔ Exact match"), res.Message)
		printRecord(w, res.ExactMatch.Record, cols, label)
	case models.ResultMLAnalysis:
		cls := res.MLAnalysis.Classification
		fmt.Fprintf(w, "%s %s (confidence %.1f%%)\n", cyan("≈ Classified as"), bold(cls.Classification), cls.Confidence*100)
		printVotes(w, cls.Votes)
		for i, n := range res.MLAnalysis.Neighbors {
			fmt.Fprintf(w, "  %d. record %-6d distance %.4f similarity %.3f\n",
				i+1, n.RecordIndex, n.Distance, n.SimilarityScore)
			printRecord(w, n.Record, cols, label)
		}
	default:
		fmt.Fprintf(w, "%s %s (%s)\n", red("✘ "+res.Message+":"), res.Failure.Message, res.Failure.Code)
	}
}

func printVotes(w io.Writer, votes map[string]int) {
	labels := make([]string, 0, len(votes))
	for l := range votes {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", l, votes[l]))
	}
	fmt.Fprintf(w, "  votes: %s\n", yellow(strings.Join(parts, ", ")))
}

func printRecord(w io.Writer, rec models.Record, cols []string, label string) {
	parts := make([]string, 0, len(cols)+1)
	for _, c := range append(append([]string{}, cols...), label) {
		v := rec.Get(c)
		if v.IsNull() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", c, v.Raw))
	}
	fmt.Fprintf(w, "     %s\n", strings.Join(parts, " "))
}
