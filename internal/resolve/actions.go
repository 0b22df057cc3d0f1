package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/placeshelf/internal/common"
	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/db"
	"github.com/dtnitsch/placeshelf/pkg/resolver"
)

// TrailEntry is one stage of the fallback chain as printed to the user.
type TrailEntry struct {
	Stage   string `json:"stage" yaml:"stage"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Output is the result of the resolve command.
type Output struct {
	Input       string                  `json:"input" yaml:"input"`
	ResolvedURL string                  `json:"resolved_url,omitempty" yaml:"resolved_url,omitempty"`
	Stage       string                  `json:"stage,omitempty" yaml:"stage,omitempty"`
	Place       *models.NormalizedPlace `json:"place,omitempty" yaml:"place,omitempty"`
	Hints       *models.ExtractedHints  `json:"hints,omitempty" yaml:"hints,omitempty"`
	Trail       []TrailEntry            `json:"trail,omitempty" yaml:"trail,omitempty"`
	Error       string                  `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType   string                  `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// NewOutput converts a resolver result into printable form.
func NewOutput(input string, res *resolver.Result, err error) Output {
	out := Output{Input: input}
	if res != nil {
		out.ResolvedURL = res.ResolvedURL
		out.Place = res.Place
		out.Stage = string(res.Stage)
		if !res.Hints.Empty() {
			h := res.Hints
			out.Hints = &h
		}
		for _, sr := range res.Trail {
			entry := TrailEntry{Stage: string(sr.Stage), Outcome: sr.Outcome.String()}
			if sr.Err != nil {
				entry.Error = sr.Err.Error()
			}
			out.Trail = append(out.Trail, entry)
		}
	}
	if err != nil {
		out.Error = err.Error()
		out.ErrorType = common.ErrorType(err)
	}
	return out
}

// Record converts a resolution into its log row.
func Record(input string, res *resolver.Result, err error, placeID string) db.ResolutionRecord {
	rec := db.ResolutionRecord{
		Input:     input,
		Success:   err == nil,
		ErrorType: common.ErrorType(err),
		PlaceID:   placeID,
	}
	if res != nil {
		rec.ResolvedURL = res.ResolvedURL
		rec.Stage = string(res.Stage)
	}
	return rec
}

// InputText joins the positional arguments, or reads stdin when there are none.
func InputText(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		data, err := readAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(data), nil
	}
	return "", errors.New("no input: pass shared text or a map link as an argument")
}

func ResolveAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	input, err := InputText(c)
	if err != nil {
		return cli.Exit(err.Error(), common.ExitPipeline)
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	pipeline, err := NewPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer pipeline.Close()

	if c.Bool("batch") {
		inputs := c.Args().Slice()
		if len(inputs) == 0 {
			inputs = SplitInputs(input)
		}
		return resolveBatch(c, logger, cfg.Database.Path, pipeline, inputs)
	}

	res, resolveErr := pipeline.Resolver.Resolve(c.Context, input)

	if !c.Bool("no-log") {
		logResolutions(logger, cfg.Database.Path, Record(input, res, resolveErr, ""))
	}

	out := NewOutput(input, res, resolveErr)
	var printable any = out
	if fields := c.String("fields"); fields != "" && out.Place != nil {
		printable = common.FilterFields(out.Place, fields)
	}
	if err := common.WriteOutput(os.Stdout, printable, c.String("format")); err != nil {
		logger.Error("failed to write output", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	if resolveErr != nil {
		logger.Error("Resolution failed", "input", input, "error", resolveErr)
		return cli.Exit("", common.ExitCode(resolveErr))
	}
	return nil
}

func resolveBatch(c *cli.Context, logger *slog.Logger, dbPath string, pipeline *Pipeline, inputs []string) error {
	results := RunBatch(c.Context, logger, pipeline.Resolver, inputs, c.Int("workers"))

	outputs := make([]Output, 0, len(results))
	records := make([]db.ResolutionRecord, 0, len(results))
	var firstErr error
	for _, r := range results {
		outputs = append(outputs, NewOutput(r.Input, r.Result, r.Err))
		records = append(records, Record(r.Input, r.Result, r.Err, ""))
		if r.Err != nil && firstErr == nil {
			firstErr = r.Err
		}
	}

	if !c.Bool("no-log") {
		logResolutions(logger, dbPath, records...)
	}

	if err := common.WriteOutput(os.Stdout, outputs, c.String("format")); err != nil {
		logger.Error("failed to write output", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	if firstErr != nil {
		return cli.Exit("", common.ExitCode(firstErr))
	}
	return nil
}

// logResolutions appends to the resolution log. Failures only warn; the log
// never blocks a resolution from being printed.
func logResolutions(logger *slog.Logger, dbPath string, records ...db.ResolutionRecord) {
	database, err := db.Open(dbPath)
	if err != nil {
		logger.Warn("Resolution not logged", "error", err)
		return
	}
	defer database.Close()
	for _, rec := range records {
		if _, err := database.RecordResolution(rec); err != nil {
			logger.Warn("Resolution not logged", "input", rec.Input, "error", err)
			return
		}
	}
}
