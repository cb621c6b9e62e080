// Package who reads trial records from a WHO ICTRP CSV export. The export
// mixes identifiers from dozens of national registries, so most of the work
// here is recognizing and normalizing trial ids.
package who

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"trialgraph/internal/util"
	"trialgraph/pkg/config"
	"trialgraph/pkg/curie"
	"trialgraph/pkg/fetch"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/models"
)

// Column indices of the headerless ICTRP export.
const (
	colTrialID           = 0
	colSecondaryIDs      = 2
	colPublicTitle       = 3
	colStudyType         = 18
	colStudyDesign       = 19
	colConditions        = 29
	colInterventions     = 30
	colPrimaryOutcome    = 36
	colSecondaryOutcomes = 37

	minColumns = 38
)

// Fetcher reads the ICTRP CSV export configured for the registry.
type Fetcher struct {
	cfg      *config.Config
	registry *curie.Registry
}

// NewFetcher creates a WHO ICTRP fetcher.
func NewFetcher(cfg *config.Config, registry *curie.Registry) *Fetcher {
	return &Fetcher{cfg: cfg, registry: registry}
}

// Registry returns the registry key.
func (f *Fetcher) Registry() string {
	return f.cfg.Registry
}

// Fetch parses the CSV export into trial records, using the raw cache when
// present and reload is false.
func (f *Fetcher) Fetch(ctx context.Context, reload bool) ([]*models.Trial, error) {
	cachePath := f.cfg.RawDataPath()
	if !reload && fetch.CacheExists(cachePath) {
		return fetch.LoadRaw[*models.Trial](cachePath)
	}

	path := f.cfg.CSVPath()
	if path == "" {
		return nil, fmt.Errorf("registry %q has no csv_file configured", f.cfg.Registry)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ICTRP export %q: %w", path, err)
	}
	defer file.Close()

	logger.Info("[Fetch] Reading WHO ICTRP export", "path", path)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var trials []*models.Trial
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ICTRP export row %d: %w", row+1, err)
		}
		row++
		if len(record) < minColumns {
			logger.Warn("[Fetch] Skipping short ICTRP row", "row", row, "columns", len(record))
			continue
		}

		trial, err := f.toTrial(record)
		if err != nil {
			return nil, fmt.Errorf("ICTRP row %d: %w", row, err)
		}
		trials = append(trials, trial)
	}

	if err := fetch.SaveRaw(cachePath, trials); err != nil {
		return nil, err
	}
	return trials, nil
}

func (f *Fetcher) toTrial(record []string) (*models.Trial, error) {
	ns, id, err := NormalizeTrialID(f.registry, record[colTrialID])
	if err != nil {
		return nil, err
	}

	var labels []string
	if studyType := util.CleanText(record[colStudyType]); studyType != "" {
		labels = append(labels, studyType)
	}

	trial := models.NewTrial(ns, id, f.cfg.Registry, labels...)
	trial.Title = util.CleanText(record[colPublicTitle])
	trial.Design = ParseDesign(record[colStudyDesign])
	origin, _ := trial.Curie()

	for _, condition := range util.SplitList(record[colConditions], ";") {
		trial.Conditions = append(trial.Conditions,
			models.NewCondition(util.CleanText(condition), origin, f.cfg.Registry))
	}
	for _, intervention := range util.SplitList(record[colInterventions], ";") {
		if intervention == "NULL" {
			continue
		}
		trial.Interventions = append(trial.Interventions,
			models.NewIntervention(util.CleanText(intervention), origin, f.cfg.Registry))
	}

	if measure := util.CleanText(record[colPrimaryOutcome]); measure != "" {
		trial.PrimaryOutcomes = []models.Outcome{{Measure: measure}}
	}
	if measure := util.CleanText(record[colSecondaryOutcomes]); measure != "" {
		trial.SecondaryOutcomes = []models.Outcome{{Measure: measure}}
	}

	for _, sid := range util.SplitList(record[colSecondaryIDs], ";") {
		trial.SecondaryIds = append(trial.SecondaryIds, models.SecondaryId{ID: util.CleanText(sid)})
	}

	return trial, nil
}

// NormalizeTrialID maps a raw ICTRP trial id to a (namespace, local id)
// pair. Registry-specific quirks are fixed up here: EUCTR ids lose their
// prefix and country suffix, ChiCTR ids get consistent casing, and the
// JPRN-, CTIS and PER- prefixes are stripped.
func NormalizeTrialID(registry *curie.Registry, raw string) (string, string, error) {
	trialID := util.CleanText(raw)

	ns, ok := registry.RecognizeTrialID(trialID)
	if !ok {
		return "", "", fmt.Errorf("could not identify trial id %q", trialID)
	}

	if strings.HasPrefix(trialID, "EUCTR") {
		trialID = strings.TrimPrefix(trialID, "EUCTR")
		if parts := strings.Split(trialID, "-"); len(parts) > 3 {
			trialID = strings.Join(parts[:3], "-")
		}
	}

	if strings.HasPrefix(strings.ToLower(trialID), "chictr-") {
		trialID = "ChiCTR-" + strings.ToUpper(trialID[len("chictr-"):])
	}

	trialID = strings.TrimPrefix(trialID, "JPRN-")
	trialID = strings.TrimPrefix(trialID, "CTIS")
	trialID = strings.TrimPrefix(trialID, "PER-")

	return ns, trialID, nil
}

// ParseDesign decomposes an ICTRP study design string of the form
// "Allocation: Randomized. Intervention model: Parallel. ..." into its
// fields. Strings that do not decompose are kept verbatim as the fallback.
func ParseDesign(raw string) models.DesignInfo {
	raw = util.CleanText(raw)
	if raw == "" {
		return models.DesignInfo{}
	}

	design := models.DesignInfo{}
	matched := false
	for _, segment := range strings.Split(raw, ".") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "primary purpose":
			design.Purpose = value
			matched = true
		case "allocation":
			design.Allocation = value
			matched = true
		case "masking":
			design.Masking = value
			matched = true
		case "intervention model":
			design.Assignment = value
			matched = true
		}
	}

	if !matched {
		return models.DesignInfo{Fallback: raw}
	}
	return design
}

// interventionTypes are the ICTRP intervention type prefixes stripped
// before grounding.
var interventionTypes = map[string]bool{
	"drug":               true,
	"device":             true,
	"biological":         true,
	"vaccine":            true,
	"procedure":          true,
	"radiation":          true,
	"behavioral":         true,
	"behavioural":        true,
	"dietary supplement": true,
	"diagnostic test":    true,
	"genetic":            true,
	"other":              true,
}

// InterventionPreprocessor strips ICTRP "type: name" prefixes from
// intervention text so only the substance or procedure name is grounded.
func InterventionPreprocessor(text string) string {
	prefix, rest, found := strings.Cut(text, ":")
	if !found {
		return strings.TrimSpace(text)
	}
	if interventionTypes[strings.ToLower(strings.TrimSpace(prefix))] {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(text)
}
