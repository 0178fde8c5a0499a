package risk

import (
	"testing"
	"time"

	"cardauth/internal/config"
	"cardauth/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testEngine() *Engine {
	return NewEngine(config.AuthorizationConfig{
		ChallengeThreshold: 70,
		DeclineThreshold:   90,
		HighRiskMCCs:       []string{"7995", "5993", "5921", "7273", "7994", "5816", "5967"},
	})
}

func baseRequest() *models.AuthorizationRequest {
	return &models.AuthorizationRequest{
		RequestID:       100000000001,
		Channel:         models.ChannelPOS,
		TransactionType: models.TransactionTypePurchase,
		Amount:          decimal.RequireFromString("125.50"),
		Currency:        "USD",
		CountryCode:     "USA",
		MCC:             "5411",
		Timestamp:       time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func baseCard() *models.CardDetails {
	return &models.CardDetails{
		CardID:                  555666,
		Status:                  models.CardStatusActive,
		IssuerCountry:           "USA",
		ThreeDsEnrollmentStatus: "Y",
	}
}

func TestEngine_Assess(t *testing.T) {
	engine := testEngine()

	tests := []struct {
		name           string
		mutate         func(*models.AuthorizationRequest, *models.CardDetails)
		wantScore      int
		wantRules      []string
		wantRecommend  string
	}{
		{
			name:          "clean transaction scores zero",
			mutate:        func(r *models.AuthorizationRequest, c *models.CardDetails) {},
			wantScore:     0,
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "high value transaction",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Amount = decimal.RequireFromString("1000.00")
			},
			wantScore:     25, // high_value + round_amount
			wantRules:     []string{"high_value_transaction", "round_amount"},
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "high value threshold is currency specific",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Currency = "GBP"
				r.Amount = decimal.RequireFromString("850.00")
			},
			wantScore:     20,
			wantRules:     []string{"high_value_transaction"},
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "round amount below floor does not trigger",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Amount = decimal.RequireFromString("400.00")
			},
			wantScore:     0,
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "unusual country",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.CountryCode = "BRA"
			},
			wantScore:     30,
			wantRules:     []string{"unusual_country"},
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "unusual merchant category",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.MCC = "7995"
			},
			wantScore:     15,
			wantRules:     []string{"unusual_merchant_category"},
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "unusual time",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Timestamp = time.Date(2025, 6, 15, 3, 30, 0, 0, time.UTC)
			},
			wantScore:     10,
			wantRules:     []string{"unusual_time"},
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "ecommerce without 3ds data",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Channel = models.ChannelECommerce
			},
			wantScore:     25,
			wantRules:     []string{"ecommerce_without_3ds"},
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "ecommerce with 3ds data on enrolled card is clean",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Channel = models.ChannelECommerce
				r.ThreeDsData = `{"eci":"05"}`
			},
			wantScore:     0,
			wantRecommend: models.RiskRecommendApprove,
		},
		{
			name: "challenge band",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Channel = models.ChannelECommerce
				r.CountryCode = "BRA"
				r.Amount = decimal.RequireFromString("1250.00")
			},
			wantScore:     75, // unusual_country + ecommerce_without_3ds + high_value
			wantRecommend: models.RiskRecommendChallenge,
		},
		{
			name: "decline band",
			mutate: func(r *models.AuthorizationRequest, c *models.CardDetails) {
				r.Channel = models.ChannelECommerce
				r.CountryCode = "BRA"
				r.Amount = decimal.RequireFromString("1250.00")
				r.MCC = "7995"
				r.Timestamp = time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)
			},
			wantScore:     100, // 20+30+15+10+25, exactly the maximum
			wantRecommend: models.RiskRecommendDecline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := baseRequest()
			cardDetails := baseCard()
			tt.mutate(request, cardDetails)

			assessment := engine.Assess(request, cardDetails)

			assert.Equal(t, tt.wantScore, assessment.RiskScore)
			assert.Equal(t, tt.wantRecommend, assessment.Recommendation)
			for _, rule := range tt.wantRules {
				assert.Contains(t, assessment.TriggeredRules, rule)
			}
		})
	}
}

func TestEngine_HighRiskCountry(t *testing.T) {
	engine := NewEngine(config.AuthorizationConfig{
		ChallengeThreshold: 70,
		DeclineThreshold:   90,
		HighRiskCountries:  []string{"RUS", "PRK"},
	})

	// Domestic transaction in a listed country: only the configured-list
	// rule fires, not the issuer-mismatch rule.
	request := baseRequest()
	request.CountryCode = "RUS"
	cardDetails := baseCard()
	cardDetails.IssuerCountry = "RUS"

	assessment := engine.Assess(request, cardDetails)
	assert.Equal(t, 30, assessment.RiskScore)
	assert.Contains(t, assessment.TriggeredRules, "high_risk_country")
	assert.NotContains(t, assessment.TriggeredRules, "unusual_country")

	// A listed country that also mismatches the issuer stacks both rules.
	cardDetails.IssuerCountry = "USA"
	assessment = engine.Assess(request, cardDetails)
	assert.Equal(t, 60, assessment.RiskScore)
	assert.Contains(t, assessment.TriggeredRules, "high_risk_country")
	assert.Contains(t, assessment.TriggeredRules, "unusual_country")

	// With no configured list the rule never triggers.
	cardDetails.IssuerCountry = "RUS"
	assessment = testEngine().Assess(request, cardDetails)
	assert.Equal(t, 0, assessment.RiskScore)
	assert.NotContains(t, assessment.TriggeredRules, "high_risk_country")
}

func TestEngine_IsDeterministic(t *testing.T) {
	engine := testEngine()
	request := baseRequest()
	request.Channel = models.ChannelECommerce
	cardDetails := baseCard()

	first := engine.Assess(request, cardDetails)
	second := engine.Assess(request, cardDetails)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.TriggeredRules, second.TriggeredRules)
	assert.Equal(t, first.Recommendation, second.Recommendation)
}

func TestEngine_Thresholds(t *testing.T) {
	engine := testEngine()

	assert.False(t, engine.ShouldChallenge(&models.RiskAssessment{RiskScore: 69}))
	assert.True(t, engine.ShouldChallenge(&models.RiskAssessment{RiskScore: 70}))
	assert.True(t, engine.ShouldChallenge(&models.RiskAssessment{RiskScore: 89}))
	assert.False(t, engine.ShouldChallenge(&models.RiskAssessment{RiskScore: 90}))
	assert.False(t, engine.ShouldDecline(&models.RiskAssessment{RiskScore: 89}))
	assert.True(t, engine.ShouldDecline(&models.RiskAssessment{RiskScore: 90}))

	// Explicit recommendations win regardless of score.
	assert.True(t, engine.ShouldChallenge(&models.RiskAssessment{RiskScore: 10, Recommendation: models.RiskRecommendChallenge}))
	assert.True(t, engine.ShouldDecline(&models.RiskAssessment{RiskScore: 10, Recommendation: models.RiskRecommendDecline}))

	assert.False(t, engine.ShouldChallenge(nil))
	assert.False(t, engine.ShouldDecline(nil))
}
