// Command genfixture downloads live JMA documents into a testdata tree laid out
// like the feed, and writes the records the pipeline derives from them so test
// expectations can be reviewed alongside the documents.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -prefectures 280000,130000 \
//	  -out internal/pipeline/testdata \
//	  -expected internal/pipeline/testdata/expected.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/adapter/jma"
	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
)

type expected struct {
	TargetDate string                  `json:"target_date"`
	Forecasts  []domain.ForecastRecord `json:"forecasts"`
	Warnings   []domain.WarningRecord  `json:"warnings"`
	Excluded   []string                `json:"excluded_stations"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	baseURL := flag.String("base-url", "https://www.jma.go.jp/bosai", "feed base URL")
	prefList := flag.String("prefectures", "", "comma-separated office codes, e.g. 280000")
	outDir := flag.String("out", "", "testdata directory to write documents into")
	expectedOut := flag.String("expected", "", "optional path for the derived records")
	flag.Parse()

	if *prefList == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -prefectures, -out")
	}
	prefectures := strings.Split(*prefList, ",")

	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := jma.NewHTTPFetcher(strings.TrimRight(*baseURL, "/"), 15*time.Second, 3, metrics, logger)
	ctx := context.Background()

	save := func(kind, pref string) ([]byte, error) {
		path, err := jma.Path(kind, pref)
		if err != nil {
			return nil, err
		}
		data, err := fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, data, "", "  "); err != nil {
			return nil, fmt.Errorf("indent %s: %w", path, err)
		}
		dst := filepath.Join(*outDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, pretty.Bytes(), 0o644); err != nil {
			return nil, err
		}
		log.Printf("wrote %s (%d bytes)", dst, pretty.Len())
		return data, nil
	}

	var areas domain.AreaDocument
	var forecastAreas domain.ForecastAreaDocument
	if err := fetchInto(save, jma.DocArea, "", &areas); err != nil {
		return err
	}
	if err := fetchInto(save, jma.DocForecastArea, "", &forecastAreas); err != nil {
		return err
	}

	h, err := domain.BuildHierarchy(areas)
	if err != nil {
		return fmt.Errorf("build hierarchy: %w", err)
	}
	assoc := domain.AssociateStations(forecastAreas, h.CityIndex())
	index := domain.NewStationIndex(h.SubRegions, assoc.Stations)
	target := domain.TargetDate()

	var (
		parts    []domain.ForecastPartials
		warnings [][]domain.WarningRecord
	)
	for _, pref := range prefectures {
		var (
			fdoc domain.ForecastDocument
			pdoc domain.ProbabilityDocument
			wdoc domain.WarningDocument
		)
		if err := fetchInto(save, jma.DocForecast, pref, &fdoc); err != nil {
			return err
		}
		if err := fetchInto(save, jma.DocProbability, pref, &pdoc); err != nil {
			return err
		}
		if err := fetchInto(save, jma.DocWarning, pref, &wdoc); err != nil {
			return err
		}

		p, err := expectedPartials(pref, fdoc, pdoc, target, index)
		if err != nil {
			return err
		}
		parts = append(parts, p)

		recs, err := domain.FilterWarnings(wdoc, domain.DefaultWhitelist())
		if err != nil {
			return fmt.Errorf("filter warnings %s: %w", pref, err)
		}
		warnings = append(warnings, recs)
	}

	exp := expected{
		TargetDate: target.String(),
		Forecasts:  domain.MergeForecasts(parts...),
		Warnings:   domain.MergeWarnings(warnings...),
	}
	for _, u := range assoc.Excluded {
		exp.Excluded = append(exp.Excluded, u.StationID)
	}
	printStats(h, assoc, exp)

	if *expectedOut == "" {
		return nil
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(*expectedOut, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing expected records: %w", err)
	}
	log.Printf("wrote expected records: %s", *expectedOut)
	return nil
}

func fetchInto(save func(kind, pref string) ([]byte, error), kind, pref string, v any) error {
	data, err := save(kind, pref)
	if err != nil {
		return fmt.Errorf("fetch %s %s: %w", kind, pref, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, pref, err)
	}
	return nil
}

func printStats(h domain.Hierarchy, assoc domain.StationAssociation, exp expected) {
	fmt.Println()
	fmt.Println("=== Fixture Summary ===")
	fmt.Printf("Target date:   %s\n", exp.TargetDate)
	fmt.Printf("Hierarchy:     %d regions, %d prefectures, %d sub-regions, %d cities\n",
		len(h.Regions), len(h.Prefectures), len(h.SubRegions), len(h.Cities))
	fmt.Printf("Stations:      %d associated, %d excluded, %d conflicts\n",
		len(assoc.Stations), len(assoc.Excluded), len(assoc.Conflicts))

	var withTemps, withWind int
	for _, r := range exp.Forecasts {
		if r.MinTemperature != nil {
			withTemps++
		}
		if r.WindSpeed != nil {
			withWind++
		}
	}
	fmt.Printf("Forecasts:     %d sub-regions (%d with temperatures, %d with wind)\n", len(exp.Forecasts), withTemps, withWind)
	fmt.Printf("Warnings:      %d sub-regions with active warnings\n", len(exp.Warnings))
}

// expectedPartials aggregates one prefecture the way the pipeline does. A
// metric whose series lacks the target date is left out with a note; a
// malformed document fails the capture.
func expectedPartials(pref string, fdoc domain.ForecastDocument, pdoc domain.ProbabilityDocument, target domain.Date, index *domain.StationIndex) (domain.ForecastPartials, error) {
	var p domain.ForecastPartials
	var err error

	p.WeatherCodes, err = domain.ExtractWeatherCodes(fdoc, target)
	if err := droppable(pref, domain.MetricWeatherCode, err); err != nil {
		return p, err
	}
	var issues []domain.SubRegionIssue
	p.Temperatures, issues, err = domain.AggregateTemperatures(fdoc, target, pref, index)
	if err := droppable(pref, domain.MetricTemperature, err); err != nil {
		return p, err
	}
	logIssues(pref, issues)
	p.WindSpeeds, issues, err = domain.AggregateWindSpeeds(pdoc, target)
	if err := droppable(pref, domain.MetricWindSpeed, err); err != nil {
		return p, err
	}
	logIssues(pref, issues)
	return p, nil
}

func droppable(pref, metric string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrTargetDateMissing), errors.Is(err, domain.ErrTemperatureSlots):
		log.Printf("%s: %s left out: %v", pref, metric, err)
		return nil
	default:
		return fmt.Errorf("%s %s: %w", pref, metric, err)
	}
}

func logIssues(pref string, issues []domain.SubRegionIssue) {
	for _, is := range issues {
		log.Printf("%s: sub-region %s %s skipped: %v", pref, is.SubRegionID, is.Metric, is.Err)
	}
}
