package places

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/placeshelf/internal/common"
	"github.com/dtnitsch/placeshelf/internal/resolve"
	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/db"
	"github.com/dtnitsch/placeshelf/pkg/dedupe"
)

func AddAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	input, err := resolve.InputText(c)
	if err != nil {
		return cli.Exit(err.Error(), common.ExitPipeline)
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer database.Close()

	pipeline, err := resolve.NewPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer pipeline.Close()

	detector := dedupe.New(cfg.Dedupe.ThresholdMeters)
	result, err := AddPlace(c.Context, database, pipeline.Resolver, detector, c.String("collection"), input, c.Bool("force"))
	if result != nil {
		if werr := common.WriteOutput(os.Stdout, result, c.String("format")); werr != nil {
			logger.Error("failed to write output", "error", werr)
		}
	}
	if err != nil {
		logger.Error("Add failed", "input", input, "error", err)
		return cli.Exit("", common.ExitCode(err))
	}

	if !result.Added {
		fmt.Fprintf(os.Stderr, "Not added: duplicate of %s (%s match). Use --force to add anyway.\n",
			result.Duplicate.MatchedRecordID, result.Duplicate.MatchKind)
	}
	return nil
}

func ListAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	database, err := openDatabase(c)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer database.Close()

	collection := c.String("collection")
	collectionID, err := database.GetCollectionID(collection)
	if errors.Is(err, db.ErrNotFound) {
		fmt.Printf("Collection %q has no places\n", collection)
		return nil
	}
	if err != nil {
		logger.Error("failed to get collection", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	places, err := database.ListPlaces(collectionID)
	if err != nil {
		logger.Error("failed to list places", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	if format := c.String("format"); format != "table" {
		return writeOrExit(logger, places, format)
	}

	if len(places) == 0 {
		fmt.Printf("Collection %q has no places\n", collection)
		return nil
	}

	fmt.Printf("%-36s %-30s %-40s %-22s\n", "ID", "Name", "Address", "Coordinates")
	fmt.Println(strings.Repeat("-", 130))
	for _, p := range places {
		fmt.Printf("%-36s %-30s %-40s %-22s\n",
			p.PlaceID,
			truncate(p.Place.Name, 30),
			truncate(p.Place.Address, 40),
			fmt.Sprintf("%.5f,%.5f", p.Place.Lat, p.Place.Lng),
		)
	}
	fmt.Printf("\nTotal: %d places\n", len(places))
	return nil
}

// CheckVerdict is the output of the check command.
type CheckVerdict struct {
	Collection              string `json:"collection" yaml:"collection"`
	models.DuplicateVerdict `yaml:",inline"`
}

func CheckAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	var coords *models.Coordinates
	if c.IsSet("lat") || c.IsSet("lng") {
		if !c.IsSet("lat") || !c.IsSet("lng") {
			return cli.Exit("--lat and --lng must be given together", common.ExitPipeline)
		}
		coords = &models.Coordinates{Lat: c.Float64("lat"), Lng: c.Float64("lng")}
	}
	candidateURL := c.String("url")
	if coords == nil && candidateURL == "" {
		return cli.Exit("nothing to check: pass --url and/or --lat/--lng", common.ExitPipeline)
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer database.Close()

	collection := c.String("collection")
	verdict, err := CheckCollection(database, dedupe.New(cfg.Dedupe.ThresholdMeters), collection, coords, candidateURL)
	if err != nil {
		logger.Error("failed to check collection", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	return writeOrExit(logger, CheckVerdict{Collection: collection, DuplicateVerdict: verdict}, c.String("format"))
}

// CheckCollection runs the duplicate detector against a stored collection.
// A collection that does not exist has no duplicates.
func CheckCollection(database *db.DB, detector *dedupe.Detector, collection string, coords *models.Coordinates, candidateURL string) (models.DuplicateVerdict, error) {
	collectionID, err := database.GetCollectionID(collection)
	if errors.Is(err, db.ErrNotFound) {
		return models.DuplicateVerdict{}, nil
	}
	if err != nil {
		return models.DuplicateVerdict{}, err
	}
	existing, err := database.ListPlaces(collectionID)
	if err != nil {
		return models.DuplicateVerdict{}, err
	}
	return detector.Check(coords, candidateURL, ToRecords(existing)), nil
}

func DeleteAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	if c.NArg() != 1 {
		return cli.Exit("usage: placeshelf delete <place-id>", common.ExitPipeline)
	}

	database, err := openDatabase(c)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer database.Close()

	placeID := c.Args().First()
	if err := database.DeletePlace(placeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return cli.Exit(err.Error(), common.ExitPipeline)
		}
		logger.Error("failed to delete place", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	fmt.Printf("Deleted %s\n", placeID)
	return nil
}

func CollectionsAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	database, err := openDatabase(c)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer database.Close()

	collections, err := database.ListCollections()
	if err != nil {
		logger.Error("failed to list collections", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	if format := c.String("format"); format != "table" {
		return writeOrExit(logger, collections, format)
	}

	if len(collections) == 0 {
		fmt.Println("No collections found")
		return nil
	}

	fmt.Printf("%-6s %-30s %-8s %-20s\n", "ID", "Name", "Places", "Created")
	fmt.Println(strings.Repeat("-", 70))
	for _, col := range collections {
		fmt.Printf("%-6d %-30s %-8d %-20s\n",
			col.CollectionID,
			truncate(col.Name, 30),
			col.PlaceCount,
			col.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Printf("\nTotal: %d collections\n", len(collections))
	return nil
}

func HistoryAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	database, err := openDatabase(c)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	defer database.Close()

	records, err := database.RecentResolutions(c.Int("limit"))
	if err != nil {
		logger.Error("failed to list resolutions", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}

	if format := c.String("format"); format != "table" {
		return writeOrExit(logger, records, format)
	}

	if len(records) == 0 {
		fmt.Println("No resolutions recorded")
		return nil
	}

	fmt.Printf("%-6s %-20s %-8s %-10s %-20s %-50s\n", "ID", "When", "OK", "Stage", "Error", "Input")
	fmt.Println(strings.Repeat("-", 120))
	for _, r := range records {
		fmt.Printf("%-6d %-20s %-8t %-10s %-20s %-50s\n",
			r.ResolutionID,
			r.ResolvedAt.Format("2006-01-02 15:04:05"),
			r.Success,
			r.Stage,
			r.ErrorType,
			truncate(r.Input, 50),
		)
	}
	return nil
}

func openDatabase(c *cli.Context) (*db.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.Database.Path)
}

func writeOrExit(logger *slog.Logger, v any, format string) error {
	if err := common.WriteOutput(os.Stdout, v, format); err != nil {
		logger.Error("failed to write output", "error", err)
		return cli.Exit("", common.ExitInfrastructure)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
