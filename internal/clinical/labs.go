// internal/clinical/labs.go
package clinical

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
	"github.com/meditrek/clinpilot/internal/prompt"
	"github.com/meditrek/clinpilot/internal/router"
)

// criticalBand marks the values beyond which a test is dangerous no matter
// what the trend looks like. Keys are lowercase test names.
type criticalBand struct {
	Low  float64
	High float64
}

var criticalBands = map[string]criticalBand{
	"potassium":  {Low: 2.8, High: 6.2},
	"sodium":     {Low: 125, High: 155},
	"glucose":    {Low: 50, High: 400},
	"creatinine": {Low: 0, High: 3.0},
	"hemoglobin": {Low: 7.0, High: 20.0},
	"calcium":    {Low: 6.5, High: 13.0},
}

// LabAnalyzer computes trends and abnormality flags for lab series. The
// numeric analysis is fully local; the optional narrative goes through the
// router on the moderate tier. Stateless; safe for concurrent use.
type LabAnalyzer struct {
	router      schemas.CompletionRouter
	stableSlope float64
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewLabAnalyzer builds the analyzer. A nil router skips the narrative.
func NewLabAnalyzer(r schemas.CompletionRouter, cfg config.EngineConfig, logger *zap.Logger) *LabAnalyzer {
	stable := cfg.StableSlopeThreshold
	if stable <= 0 {
		stable = 0.01
	}
	return &LabAnalyzer{
		router:      r,
		stableSlope: stable,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.Named("lab_analyzer"),
	}
}

// Analyze walks every lab series in the context, flags out-of-range and
// critical values, and computes trend directions. A series with a single
// data point yields insufficient_data, never an error. Test names are
// processed in sorted order so reports are deterministic.
func (a *LabAnalyzer) Analyze(ctx context.Context, cc schemas.ClinicalContext) (*schemas.LabReport, error) {
	report := &schemas.LabReport{}

	names := make([]string, 0, len(cc.LabResults))
	for name := range cc.LabResults {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		series := cc.LabResults[name]
		if len(series) == 0 {
			continue
		}
		report.AnalyzedTests++

		if ab, flagged := a.analyzeSeries(name, series); flagged {
			report.Abnormalities = append(report.Abnormalities, ab)
		}
	}

	if a.router != nil && len(report.Abnormalities) > 0 {
		a.attachNarrative(ctx, report)
	}

	a.logger.Info("Lab analysis complete",
		zap.String("patient_id", cc.PatientID),
		zap.Int("analyzed_tests", report.AnalyzedTests),
		zap.Int("abnormalities", len(report.Abnormalities)),
	)
	return report, nil
}

// analyzeSeries evaluates one test series ordered by observation time. Every
// value is checked against its reference range and the critical band, so a
// dangerous result earlier in the window is never masked by a normal latest
// draw. The reported entry is the worst offender: a critical breach beats a
// plain out-of-range value, larger deviations beat smaller ones.
func (a *LabAnalyzer) analyzeSeries(name string, series []schemas.LabResult) (schemas.LabAbnormality, bool) {
	ordered := make([]schemas.LabResult, len(series))
	copy(ordered, series)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ObservedAtUnix < ordered[j].ObservedAtUnix
	})

	trend := schemas.TrendInsufficientData
	slope := 0.0
	if len(ordered) >= 2 {
		// Simple two-point trend: sign of the slope between first and last.
		slope = (ordered[len(ordered)-1].Value - ordered[0].Value) / float64(len(ordered)-1)
		switch {
		case math.Abs(slope) < a.stableSlope:
			trend = schemas.TrendStable
		case slope > 0:
			trend = schemas.TrendIncreasing
		default:
			trend = schemas.TrendDecreasing
		}
	}

	band, hasBand := criticalBands[strings.ToLower(name)]

	worstIdx := -1
	worstDeviation := 0.0
	worstCritical := false
	critical := false
	for i, r := range ordered {
		deviation := 0.0
		if r.ReferenceLow != 0 || r.ReferenceHigh != 0 {
			switch {
			case r.Value < r.ReferenceLow:
				deviation = r.ReferenceLow - r.Value
			case r.Value > r.ReferenceHigh:
				deviation = r.Value - r.ReferenceHigh
			}
		}
		breachesBand := hasBand && (r.Value < band.Low || r.Value > band.High)
		if breachesBand {
			critical = true
		}
		if deviation == 0 && !breachesBand {
			continue
		}
		switch {
		case worstIdx == -1:
		case breachesBand && !worstCritical:
		case breachesBand == worstCritical && deviation > worstDeviation:
		default:
			continue
		}
		worstIdx = i
		worstDeviation = deviation
		worstCritical = breachesBand
	}

	if worstIdx == -1 {
		return schemas.LabAbnormality{}, false
	}

	worst := ordered[worstIdx]
	return schemas.LabAbnormality{
		TestName:       name,
		Value:          worst.Value,
		Unit:           worst.Unit,
		ReferenceLow:   worst.ReferenceLow,
		ReferenceHigh:  worst.ReferenceHigh,
		Deviation:      worstDeviation,
		Trend:          trend,
		Critical:       critical,
		SampleSize:     len(ordered),
		SlopePerSample: slope,
	}, true
}

// attachNarrative asks a provider for the combined clinical significance of
// the abnormal findings. The numeric report stands on its own: a routing
// failure here is logged and swallowed, never fatal.
func (a *LabAnalyzer) attachNarrative(ctx context.Context, report *schemas.LabReport) {
	p := prompt.LabSignificance(report.Abnormalities)
	req := schemas.CompletionRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Options: schemas.CompletionOptions{
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		},
	}

	tier := router.Classify(schemas.OpLabTrend)
	resp, _, err := a.router.Route(ctx, tier, req)
	if err != nil {
		a.logger.Warn("Lab narrative unavailable", zap.Error(err))
		return
	}
	report.Narrative = resp.Content
}
