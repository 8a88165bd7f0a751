package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/dipscan/pkg/jsonstore"
)

const paramsFile = "scoring_parameters.json"

// Params holds every tunable weight and threshold of the scoring
// engine. The engine itself has no hidden constants for layer
// budgets; everything flows from an injected Params value.
type Params struct {
	QualityGate    QualityGateParams    `json:"quality_gate"`
	DipSignal      DipSignalParams      `json:"dip_signal"`
	ReversalSpark  ReversalSparkParams  `json:"reversal_spark"`
	RiskModifiers  RiskModifiersParams  `json:"risk_modifiers"`
	Recommendation RecommendationParams `json:"recommendation"`
}

// QualityGateParams budget the fundamentals layer (35 points total
// by default).
type QualityGateParams struct {
	CashFlowHealthMax  float64 `json:"cash_flow_health_max"`
	ProfitabilityMax   float64 `json:"profitability_max"`
	DebtManagementMax  float64 `json:"debt_management_max"`
	ValuationSanityMax float64 `json:"valuation_sanity_max"`
	BusinessQualityMax float64 `json:"business_quality_max"`

	// Failing this many binary checks (or more) fails the gate
	MaxFailedChecks int `json:"max_failed_checks"`
}

// Max returns the full gate budget
func (p QualityGateParams) Max() float64 {
	return p.CashFlowHealthMax + p.ProfitabilityMax + p.DebtManagementMax +
		p.ValuationSanityMax + p.BusinessQualityMax
}

// DipSignalParams budget the dip layer (45 points total by default)
// and define the sweet-spot windows.
type DipSignalParams struct {
	DropSeverityMax    float64 `json:"drop_severity_max"`
	OversoldRSIMax     float64 `json:"oversold_rsi_max"`
	VolumeSignatureMax float64 `json:"volume_signature_max"`
	SMAPositioningMax  float64 `json:"sma_positioning_max"`

	SweetSpotDropMin   float64 `json:"sweet_spot_drop_min"`   // percent
	SweetSpotDropMax   float64 `json:"sweet_spot_drop_max"`   // percent
	SweetSpotRSIMin    float64 `json:"sweet_spot_rsi_min"`
	SweetSpotRSIMax    float64 `json:"sweet_spot_rsi_max"`
	SweetSpotVolumeMin float64 `json:"sweet_spot_volume_min"` // ratio vs 20d average
	SweetSpotVolumeMax float64 `json:"sweet_spot_volume_max"`
}

// Max returns the full dip budget
func (p DipSignalParams) Max() float64 {
	return p.DropSeverityMax + p.OversoldRSIMax + p.VolumeSignatureMax + p.SMAPositioningMax
}

// ReversalSparkParams budget the reversal layer (15 points total by
// default).
type ReversalSparkParams struct {
	MACDSignalsMax        float64 `json:"macd_signals_max"`
	CandlePatternsMax     float64 `json:"candle_patterns_max"`
	MomentumDivergenceMax float64 `json:"momentum_divergence_max"`
	VolumeReversalMax     float64 `json:"volume_reversal_max"`
}

// Max returns the full reversal budget
func (p ReversalSparkParams) Max() float64 {
	return p.MACDSignalsMax + p.CandlePatternsMax + p.MomentumDivergenceMax + p.VolumeReversalMax
}

// RiskModifiersParams weight the context adjustments and bound the
// final modifier.
type RiskModifiersParams struct {
	SectorWeight     float64 `json:"sector_weight"`
	VolatilityWeight float64 `json:"volatility_weight"`
	LiquidityWeight  float64 `json:"liquidity_weight"`
	MacroWeight      float64 `json:"macro_weight"`

	Floor float64 `json:"floor"`
	Cap   float64 `json:"cap"`
}

// RecommendationParams are the score thresholds behind each action
type RecommendationParams struct {
	StrongBuy float64 `json:"strong_buy"`
	Buy       float64 `json:"buy"`
	Watch     float64 `json:"watch"`
	Avoid     float64 `json:"avoid"`
}

// DefaultParams returns the stock parameter set
func DefaultParams() Params {
	return Params{
		QualityGate: QualityGateParams{
			CashFlowHealthMax:  8,
			ProfitabilityMax:   8,
			DebtManagementMax:  7,
			ValuationSanityMax: 7,
			BusinessQualityMax: 5,
			MaxFailedChecks:    3,
		},
		DipSignal: DipSignalParams{
			DropSeverityMax:    15,
			OversoldRSIMax:     12,
			VolumeSignatureMax: 10,
			SMAPositioningMax:  8,
			SweetSpotDropMin:   15,
			SweetSpotDropMax:   40,
			SweetSpotRSIMin:    25,
			SweetSpotRSIMax:    35,
			SweetSpotVolumeMin: 1.5,
			SweetSpotVolumeMax: 3.0,
		},
		ReversalSpark: ReversalSparkParams{
			MACDSignalsMax:        5,
			CandlePatternsMax:     4,
			MomentumDivergenceMax: 3,
			VolumeReversalMax:     3,
		},
		RiskModifiers: RiskModifiersParams{
			SectorWeight:     4,
			VolatilityWeight: 3,
			LiquidityWeight:  2,
			MacroWeight:      1,
			Floor:            -10,
			Cap:              10,
		},
		Recommendation: RecommendationParams{
			StrongBuy: 80,
			Buy:       70,
			Watch:     50,
			Avoid:     40,
		},
	}
}

// Validate sanity-checks a parameter set before it is injected
func (p Params) Validate() error {
	if p.QualityGate.Max() <= 0 || p.DipSignal.Max() <= 0 || p.ReversalSpark.Max() <= 0 {
		return fmt.Errorf("layer budgets must be positive")
	}
	if p.QualityGate.MaxFailedChecks < 1 || p.QualityGate.MaxFailedChecks > 5 {
		return fmt.Errorf("max_failed_checks must be between 1 and 5")
	}
	if p.RiskModifiers.Floor > 0 || p.RiskModifiers.Cap < 0 {
		return fmt.Errorf("risk modifier bounds must straddle zero")
	}
	if !(p.Recommendation.StrongBuy >= p.Recommendation.Buy &&
		p.Recommendation.Buy >= p.Recommendation.Watch &&
		p.Recommendation.Watch >= p.Recommendation.Avoid) {
		return fmt.Errorf("recommendation thresholds must be ordered strong_buy >= buy >= watch >= avoid")
	}
	if p.DipSignal.SweetSpotDropMin >= p.DipSignal.SweetSpotDropMax {
		return fmt.Errorf("sweet spot drop window is empty")
	}
	return nil
}

// paramsDocument is the scoring_parameters.json shape
type paramsDocument struct {
	Parameters  Params    `json:"parameters"`
	LastUpdated time.Time `json:"last_updated"`
}

// ParamsRepository persists the tunable parameter set
type ParamsRepository struct {
	store *jsonstore.Store
}

// NewParamsRepository creates a new ParamsRepository
func NewParamsRepository(store *jsonstore.Store) *ParamsRepository {
	return &ParamsRepository{store: store}
}

// Load returns the stored parameters, falling back to defaults when
// no file exists. Invalid stored parameters are an error, not a
// silent fallback.
func (r *ParamsRepository) Load() (Params, error) {
	var doc paramsDocument
	if err := r.store.Load(paramsFile, &doc); err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			return DefaultParams(), nil
		}
		return Params{}, fmt.Errorf("load scoring parameters: %w", err)
	}

	if err := doc.Parameters.Validate(); err != nil {
		return Params{}, fmt.Errorf("stored scoring parameters invalid: %w", err)
	}

	return doc.Parameters, nil
}

// Save validates and persists a parameter set
func (r *ParamsRepository) Save(p Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("scoring parameters invalid: %w", err)
	}

	doc := paramsDocument{Parameters: p, LastUpdated: time.Now()}
	if err := r.store.Save(paramsFile, &doc); err != nil {
		return fmt.Errorf("save scoring parameters: %w", err)
	}
	return nil
}
