// Package risk scores authorization requests with a static rule set and maps
// the score to an approve / challenge / decline recommendation.
package risk

import (
	"cardauth/internal/config"
	"cardauth/internal/models"

	"github.com/shopspring/decimal"
)

// Engine is stateless and deterministic given its configuration.
type Engine struct {
	challengeThreshold int
	declineThreshold   int
	highRiskMCCs       map[string]struct{}
	highRiskCountries  map[string]struct{}
}

// NewEngine creates a risk engine from the authorization config.
func NewEngine(cfg config.AuthorizationConfig) *Engine {
	mccs := make(map[string]struct{}, len(cfg.HighRiskMCCs))
	for _, mcc := range cfg.HighRiskMCCs {
		mccs[mcc] = struct{}{}
	}
	countries := make(map[string]struct{}, len(cfg.HighRiskCountries))
	for _, c := range cfg.HighRiskCountries {
		countries[c] = struct{}{}
	}
	challenge := cfg.ChallengeThreshold
	if challenge == 0 {
		challenge = 70
	}
	decline := cfg.DeclineThreshold
	if decline == 0 {
		decline = 90
	}
	return &Engine{
		challengeThreshold: challenge,
		declineThreshold:   decline,
		highRiskMCCs:       mccs,
		highRiskCountries:  countries,
	}
}

// Rule weights. Each rule contributes a fixed score on trigger; the total is
// capped at 100.
const (
	weightHighValue        = 20
	weightRoundAmount      = 5
	weightUnusualCountry   = 30
	weightUnusualMerchant  = 15
	weightUnusualTime      = 10
	weightEcomWithout3DS   = 25
	weightHighRiskCountry  = 30
	maxScore               = 100
)

// Assess scores a request against the card details.
func (e *Engine) Assess(request *models.AuthorizationRequest, card *models.CardDetails) *models.RiskAssessment {
	score := 0
	var triggered []string

	if isHighValue(request) {
		score += weightHighValue
		triggered = append(triggered, "high_value_transaction")
	}
	if isRoundAmount(request) {
		score += weightRoundAmount
		triggered = append(triggered, "round_amount")
	}
	if isUnusualCountry(request, card) {
		score += weightUnusualCountry
		triggered = append(triggered, "unusual_country")
	}
	if e.isHighRiskCountry(request) {
		score += weightHighRiskCountry
		triggered = append(triggered, "high_risk_country")
	}
	if e.isUnusualMerchantCategory(request) {
		score += weightUnusualMerchant
		triggered = append(triggered, "unusual_merchant_category")
	}
	if isUnusualTime(request) {
		score += weightUnusualTime
		triggered = append(triggered, "unusual_time")
	}
	if isEcommerceWithout3DS(request, card) {
		score += weightEcomWithout3DS
		triggered = append(triggered, "ecommerce_without_3ds")
	}

	if score > maxScore {
		score = maxScore
	}

	level := "LOW"
	recommendation := models.RiskRecommendApprove
	reason := "Transaction appears normal"
	switch {
	case score >= e.declineThreshold:
		level = "HIGH"
		recommendation = models.RiskRecommendDecline
		reason = "Transaction appears to be high risk"
	case score >= e.challengeThreshold:
		level = "MEDIUM"
		recommendation = models.RiskRecommendChallenge
		reason = "Additional verification recommended"
	}

	return &models.RiskAssessment{
		RiskScore:      score,
		RiskLevel:      level,
		Recommendation: recommendation,
		Reason:         reason,
		TriggeredRules: triggered,
		VelocityChecks: models.JSON{
			"transactions_last_24h":        0,
			"transactions_last_hour":       0,
			"different_merchants_last_24h": 0,
		},
		AdditionalFactors: models.JSON{
			"card_product":  cardProduct(card),
			"issuer_country": issuerCountry(card),
		},
	}
}

// ShouldDecline reports whether the assessment warrants a decline.
func (e *Engine) ShouldDecline(assessment *models.RiskAssessment) bool {
	if assessment == nil {
		return false
	}
	return assessment.RiskScore >= e.declineThreshold ||
		assessment.Recommendation == models.RiskRecommendDecline
}

// ShouldChallenge reports whether the assessment warrants a step-up challenge.
func (e *Engine) ShouldChallenge(assessment *models.RiskAssessment) bool {
	if assessment == nil {
		return false
	}
	if assessment.Recommendation == models.RiskRecommendChallenge {
		return true
	}
	return assessment.RiskScore >= e.challengeThreshold &&
		assessment.RiskScore < e.declineThreshold
}

var highValueThresholds = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("1000.00"),
	"EUR": decimal.RequireFromString("900.00"),
	"GBP": decimal.RequireFromString("800.00"),
}

var defaultHighValueThreshold = decimal.RequireFromString("500.00")

func isHighValue(request *models.AuthorizationRequest) bool {
	threshold, ok := highValueThresholds[request.Currency]
	if !ok {
		threshold = defaultHighValueThreshold
	}
	return request.Amount.GreaterThanOrEqual(threshold)
}

var roundAmountFloor = decimal.RequireFromString("500.00")
var hundred = decimal.NewFromInt(100)

func isRoundAmount(request *models.AuthorizationRequest) bool {
	if request.Amount.LessThan(roundAmountFloor) {
		return false
	}
	return request.Amount.Mod(hundred).IsZero()
}

func isUnusualCountry(request *models.AuthorizationRequest, card *models.CardDetails) bool {
	if request.CountryCode == "" || card == nil || card.IssuerCountry == "" {
		return false
	}
	return request.CountryCode != card.IssuerCountry
}

func (e *Engine) isHighRiskCountry(request *models.AuthorizationRequest) bool {
	if request.CountryCode == "" {
		return false
	}
	_, ok := e.highRiskCountries[request.CountryCode]
	return ok
}

func (e *Engine) isUnusualMerchantCategory(request *models.AuthorizationRequest) bool {
	if request.MCC == "" {
		return false
	}
	_, ok := e.highRiskMCCs[request.MCC]
	return ok
}

func isUnusualTime(request *models.AuthorizationRequest) bool {
	if request.Timestamp.IsZero() {
		return false
	}
	hour := request.Timestamp.UTC().Hour()
	return hour >= 1 && hour <= 5
}

func isEcommerceWithout3DS(request *models.AuthorizationRequest, card *models.CardDetails) bool {
	if request.Channel != models.ChannelECommerce {
		return false
	}
	enrolled := card != nil && card.Enrolled3DS()
	return !enrolled || request.ThreeDsData == ""
}

func cardProduct(card *models.CardDetails) string {
	if card == nil {
		return ""
	}
	return card.ProductCode
}

func issuerCountry(card *models.CardDetails) string {
	if card == nil {
		return ""
	}
	return card.IssuerCountry
}
