// Package ctgov fetches study records from the ClinicalTrials.gov v2 REST
// API and maps them to trial records.
package ctgov

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trialgraph/internal/util"
	"trialgraph/pkg/config"
	"trialgraph/pkg/fetch"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/models"
)

// Fetcher downloads studies page by page from the ClinicalTrials.gov API.
type Fetcher struct {
	cfg    *config.Config
	client *http.Client
}

// NewFetcher creates a ClinicalTrials.gov fetcher.
func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			// Full pages of 1000 studies can take a while to assemble
			// server-side.
			Timeout: 5 * time.Minute,
		},
	}
}

// Registry returns the registry key.
func (f *Fetcher) Registry() string {
	return f.cfg.Registry
}

// Fetch returns all studies, from the raw cache when present and reload is
// false, otherwise from the API.
func (f *Fetcher) Fetch(ctx context.Context, reload bool) ([]*models.Trial, error) {
	cachePath := f.cfg.RawDataPath()
	if !reload && fetch.CacheExists(cachePath) {
		studies, err := fetch.LoadRaw[study](cachePath)
		if err != nil {
			return nil, err
		}
		return f.toTrials(studies), nil
	}

	settings := f.cfg.RegistrySettings()
	logger.Info("[Fetch] Downloading ClinicalTrials.gov studies", "url", settings.APIURL)

	var studies []study
	pageToken := ""
	for {
		page, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (*studiesPage, error) {
			return f.fetchPage(ctx, pageToken)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch studies page: %w", err)
		}
		studies = append(studies, page.Studies...)
		logger.Debug("[Fetch] Fetched page", "studies", len(studies), "total", page.TotalCount)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := fetch.SaveRaw(cachePath, studies); err != nil {
		return nil, err
	}
	return f.toTrials(studies), nil
}

type studiesPage struct {
	Studies       []study `json:"studies"`
	NextPageToken string  `json:"nextPageToken"`
	TotalCount    int     `json:"totalCount"`
}

type study struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID        string `json:"nctId"`
			BriefTitle   string `json:"briefTitle"`
			SecondaryIds []struct {
				ID   string `json:"id"`
				Type string `json:"type"`
			} `json:"secondaryIdInfos"`
		} `json:"identificationModule"`
		DesignModule struct {
			StudyType  string `json:"studyType"`
			DesignInfo struct {
				Allocation         string `json:"allocation"`
				InterventionModel  string `json:"interventionModel"`
				ObservationalModel string `json:"observationalModel"`
				PrimaryPurpose     string `json:"primaryPurpose"`
				MaskingInfo        struct {
					Masking string `json:"masking"`
				} `json:"maskingInfo"`
			} `json:"designInfo"`
		} `json:"designModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		ArmsInterventionsModule struct {
			Interventions []struct {
				Type string `json:"type"`
				Name string `json:"name"`
			} `json:"interventions"`
		} `json:"armsInterventionsModule"`
		OutcomesModule struct {
			PrimaryOutcomes   []outcome `json:"primaryOutcomes"`
			SecondaryOutcomes []outcome `json:"secondaryOutcomes"`
		} `json:"outcomesModule"`
		EligibilityModule struct {
			EligibilityCriteria string `json:"eligibilityCriteria"`
		} `json:"eligibilityModule"`
	} `json:"protocolSection"`
	DerivedSection struct {
		ConditionBrowseModule struct {
			Meshes []meshTerm `json:"meshes"`
		} `json:"conditionBrowseModule"`
		InterventionBrowseModule struct {
			Meshes []meshTerm `json:"meshes"`
		} `json:"interventionBrowseModule"`
	} `json:"derivedSection"`
}

type outcome struct {
	Measure   string `json:"measure"`
	TimeFrame string `json:"timeFrame"`
}

type meshTerm struct {
	ID   string `json:"id"`
	Term string `json:"term"`
}

func (f *Fetcher) fetchPage(ctx context.Context, pageToken string) (*studiesPage, error) {
	settings := f.cfg.RegistrySettings()

	pageSize := settings.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("countTotal", "true")
	if len(settings.APIFields) > 0 {
		params.Set("fields", strings.Join(settings.APIFields, "|"))
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, settings.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("ClinicalTrials.gov returned status %d: %s", res.StatusCode, body)
	}

	var page studiesPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode studies page: %w", err)
	}
	return &page, nil
}

func (f *Fetcher) toTrials(studies []study) []*models.Trial {
	trials := make([]*models.Trial, 0, len(studies))
	for _, s := range studies {
		trial := f.toTrial(s)
		if trial == nil {
			continue
		}
		trials = append(trials, trial)
	}
	return trials
}

func (f *Fetcher) toTrial(s study) *models.Trial {
	protocol := s.ProtocolSection
	if protocol.IdentificationModule.NCTID == "" {
		logger.Warn("[Fetch] Skipping study without an NCT id", "title", protocol.IdentificationModule.BriefTitle)
		return nil
	}

	var labels []string
	if studyType := strings.TrimSpace(protocol.DesignModule.StudyType); studyType != "" {
		labels = append(labels, strings.ToLower(studyType))
	}

	trial := models.NewTrial("clinicaltrials", protocol.IdentificationModule.NCTID, f.cfg.Registry, labels...)
	trial.Title = util.CleanText(protocol.IdentificationModule.BriefTitle)
	origin, _ := trial.Curie()

	design := protocol.DesignModule.DesignInfo
	assignment := design.InterventionModel
	if assignment == "" {
		assignment = design.ObservationalModel
	}
	trial.Design = models.DesignInfo{
		Purpose:    design.PrimaryPurpose,
		Allocation: design.Allocation,
		Masking:    design.MaskingInfo.Masking,
		Assignment: assignment,
	}

	for _, condition := range protocol.ConditionsModule.Conditions {
		trial.Conditions = append(trial.Conditions,
			models.NewCondition(util.CleanText(condition), origin, f.cfg.Registry))
	}
	for _, mesh := range s.DerivedSection.ConditionBrowseModule.Meshes {
		entity := models.NewCondition(mesh.Term, origin, f.cfg.Registry)
		entity.Namespace, entity.ID = "MESH", mesh.ID
		trial.Conditions = append(trial.Conditions, entity)
	}

	for _, intervention := range protocol.ArmsInterventionsModule.Interventions {
		if intervention.Name == "" {
			continue
		}
		entity := models.NewIntervention(util.CleanText(intervention.Name), origin, f.cfg.Registry, strings.ToLower(intervention.Type))
		trial.Interventions = append(trial.Interventions, entity)
	}
	for _, mesh := range s.DerivedSection.InterventionBrowseModule.Meshes {
		entity := models.NewIntervention(mesh.Term, origin, f.cfg.Registry)
		entity.Namespace, entity.ID = "MESH", mesh.ID
		trial.Interventions = append(trial.Interventions, entity)
	}

	for _, o := range protocol.OutcomesModule.PrimaryOutcomes {
		trial.PrimaryOutcomes = append(trial.PrimaryOutcomes, models.Outcome{Measure: o.Measure, TimeFrame: o.TimeFrame})
	}
	for _, o := range protocol.OutcomesModule.SecondaryOutcomes {
		trial.SecondaryOutcomes = append(trial.SecondaryOutcomes, models.Outcome{Measure: o.Measure, TimeFrame: o.TimeFrame})
	}

	for _, sid := range protocol.IdentificationModule.SecondaryIds {
		trial.SecondaryIds = append(trial.SecondaryIds, models.SecondaryId{Namespace: sid.Type, ID: sid.ID})
	}

	trial.Criteria = splitCriteria(protocol.EligibilityModule.EligibilityCriteria)

	return trial
}

// splitCriteria separates the combined eligibility text into its inclusion
// and exclusion parts when the standard section markers are present.
func splitCriteria(text string) models.Criteria {
	text = util.CleanText(text)
	if text == "" {
		return models.Criteria{}
	}
	inclusion, exclusion, found := strings.Cut(text, "Exclusion Criteria:")
	if !found {
		return models.Criteria{Inclusion: text}
	}
	inclusion = strings.TrimPrefix(strings.TrimSpace(inclusion), "Inclusion Criteria:")
	return models.Criteria{
		Inclusion: strings.TrimSpace(inclusion),
		Exclusion: strings.TrimSpace(exclusion),
	}
}
