// Command cocoeval scores detector output against a COCO annotation file
// and optionally records the run and renders plots.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/cocoeval/internal/coco"
	"github.com/banshee-data/cocoeval/internal/config"
	"github.com/banshee-data/cocoeval/internal/dataset"
	"github.com/banshee-data/cocoeval/internal/db"
	"github.com/banshee-data/cocoeval/internal/fsutil"
	"github.com/banshee-data/cocoeval/internal/httputil"
	"github.com/banshee-data/cocoeval/internal/report"
	"github.com/banshee-data/cocoeval/internal/security"
	"github.com/banshee-data/cocoeval/internal/serializer"
	"github.com/banshee-data/cocoeval/internal/version"
)

// egoObjectsAlias selects the built-in EgoObjects class list.
const egoObjectsAlias = "egoobjects"

type options struct {
	AnnFile     string
	ResultsFile string
	Classes     []string

	Eval    dataset.EvaluateOptions
	Dataset dataset.Options

	DBPath   string
	PlotsDir string
	Version  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("%v", err)
	}
	if opts.Version {
		fmt.Println(version.String("cocoeval"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, nil, os.Stdout); err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
}

// parseFlags builds options from the config file, if any, then lets
// explicitly set flags override it.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("cocoeval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		ann          = fs.String("ann", "", "COCO annotation file or http(s) URL (required)")
		results      = fs.String("results", "", "detector results JSON file or http(s) URL (required)")
		configPath   = fs.String("config", "", "evaluation config JSON file")
		classes      = fs.String("classes", "", "comma-separated class names, or \"egoobjects\"; default: every category in -ann")
		metric       = fs.String("metric", "", "comma-separated metrics: bbox, segm, proposal, proposal_fast")
		prefix       = fs.String("prefix", "", "write result artifacts as <prefix>.<metric>.json instead of a temp dir")
		classwise    = fs.Bool("classwise", false, "report per-category AP")
		proposalNums = fs.String("proposal-nums", "", "comma-separated proposal budgets, default 100,300,1000")
		iouThrs      = fs.String("iou-thrs", "", "comma-separated IoU thresholds, default 0.50:0.05:0.95")
		items        = fs.String("items", "", "comma-separated summary items, e.g. mAP,mAP_50")
		dbPath       = fs.String("db", "", "record the run in this sqlite database")
		plotsDir     = fs.String("plots", "", "write precision-recall plots and category charts here")
		testMode     = fs.Bool("test-mode", true, "keep every image instead of filtering empty and small ones")
		showVersion  = fs.Bool("version", false, "print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var opts options
	opts.Version = *showVersion
	if opts.Version {
		return opts, nil
	}

	cfg := &config.EvalConfig{}
	if *configPath != "" {
		loaded, err := config.LoadEvalConfig(*configPath)
		if err != nil {
			return options{}, err
		}
		cfg = loaded
	}

	opts.AnnFile = *ann
	opts.ResultsFile = *results
	if opts.AnnFile == "" || opts.ResultsFile == "" {
		return options{}, fmt.Errorf("-ann and -results are required")
	}
	switch {
	case *classes == egoObjectsAlias:
		opts.Classes = dataset.EgoObjectsClasses
	case *classes != "":
		opts.Classes = splitList(*classes)
	}

	opts.Eval = dataset.EvaluateOptions{
		Metrics:      cfg.GetMetrics(),
		Prefix:       cfg.GetJSONFilePrefix(),
		Classwise:    cfg.GetClasswise(),
		ProposalNums: cfg.GetProposalNums(),
		IoUThrs:      cfg.GetIoUThresholds(),
		MetricItems:  cfg.GetMetricItems(),
	}
	opts.Dataset = dataset.Options{
		SegSuffix:     cfg.GetSegSuffix(),
		TestMode:      cfg.GetTestMode(),
		FilterEmptyGT: cfg.GetFilterEmptyGT(),
		MinSize:       cfg.GetMinSize(),
	}
	opts.DBPath = cfg.GetDBPath()
	opts.PlotsDir = cfg.GetPlotsDir()

	if set["metric"] {
		opts.Eval.Metrics = splitList(*metric)
	}
	if set["prefix"] {
		opts.Eval.Prefix = *prefix
	}
	if set["classwise"] {
		opts.Eval.Classwise = *classwise
	}
	if set["proposal-nums"] {
		nums, err := parseInts(*proposalNums)
		if err != nil {
			return options{}, fmt.Errorf("-proposal-nums: %w", err)
		}
		opts.Eval.ProposalNums = nums
	}
	if set["iou-thrs"] {
		thrs, err := parseFloats(*iouThrs)
		if err != nil {
			return options{}, fmt.Errorf("-iou-thrs: %w", err)
		}
		opts.Eval.IoUThrs = thrs
	}
	if set["items"] {
		opts.Eval.MetricItems = splitList(*items)
	}
	if set["db"] {
		opts.DBPath = *dbPath
	}
	if set["plots"] {
		opts.PlotsDir = *plotsDir
	}
	if set["test-mode"] {
		opts.Dataset.TestMode = *testMode
	}

	if opts.Eval.Prefix != "" {
		if err := security.ValidateOutputPath(opts.Eval.Prefix); err != nil {
			return options{}, fmt.Errorf("-prefix: %w", err)
		}
	}
	if opts.PlotsDir != "" {
		if err := security.ValidateOutputPath(opts.PlotsDir); err != nil {
			return options{}, fmt.Errorf("-plots: %w", err)
		}
	}
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range splitList(s) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("invalid threshold %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

// readInput returns the contents of a local path or http(s) URL.
func readInput(ctx context.Context, client httputil.HTTPClient, path string) ([]byte, error) {
	if httputil.IsRemote(path) {
		return httputil.Fetch(ctx, client, path, 0)
	}
	return os.ReadFile(path)
}

// run evaluates once and writes the metrics as JSON to out. A nil client
// uses http.DefaultClient for remote inputs.
func run(ctx context.Context, opts options, client httputil.HTTPClient, out io.Writer) error {
	var (
		store *coco.Index
		err   error
	)
	if httputil.IsRemote(opts.AnnFile) {
		data, ferr := readInput(ctx, client, opts.AnnFile)
		if ferr != nil {
			return ferr
		}
		store, err = coco.Load(data)
	} else {
		store, err = coco.LoadFile(fsutil.OSFileSystem{}, opts.AnnFile)
	}
	if err != nil {
		return err
	}

	classes := opts.Classes
	if len(classes) == 0 {
		for _, c := range store.Categories() {
			classes = append(classes, c.Name)
		}
	}
	ds, err := dataset.Load(store, classes, opts.Dataset)
	if err != nil {
		return err
	}

	data, err := readInput(ctx, client, opts.ResultsFile)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}
	results, err := serializer.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.ResultsFile, err)
	}

	res, err := ds.Evaluate(ctx, results, opts.Eval)
	if err != nil {
		return err
	}
	if res.Err != nil {
		log.Printf("evaluation stopped early: %v", res.Err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Metrics); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	metrics := opts.Eval.Metrics
	if len(metrics) == 0 {
		metrics = []string{dataset.MetricBBox}
	}
	if opts.PlotsDir != "" {
		if err := writePlots(opts.PlotsDir, metrics, res); err != nil {
			return err
		}
	}
	if opts.DBPath != "" {
		if err := recordRun(opts, metrics, res); err != nil {
			return err
		}
	}
	return nil
}

func writePlots(dir string, metrics []string, res *dataset.EvalResult) error {
	for _, fam := range metrics {
		acc, ok := res.Accumulations[fam]
		if !ok {
			continue
		}
		path, err := report.WritePRCurves(dir, fam, report.PRCurves(acc))
		if err != nil {
			return err
		}
		log.Printf("wrote %s", path)

		aps := res.PerCategory[fam]
		if len(aps) == 0 {
			continue
		}
		chartPath := filepath.Join(dir, security.SanitizeFilename(fam)+"_categories.html")
		f, err := os.Create(chartPath)
		if err != nil {
			return err
		}
		if err := report.RenderCategoryChart(f, fam, report.BarsFromAP(aps)); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", chartPath)
	}
	return nil
}

func recordRun(opts options, metrics []string, res *dataset.EvalResult) error {
	database, err := db.NewDB(opts.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer database.Close()

	run := db.NewRun(opts.AnnFile, opts.ResultsFile, metrics, res)
	if err := db.NewRunStore(database).Insert(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	log.Printf("recorded run %s in %s", run.RunID, opts.DBPath)
	return nil
}
