package lcc

import (
	"math"
	"slices"
	"testing"
	"time"

	"meams.org/internal/asset"
)

var analysisTime = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func yearsAgo(n float64) time.Time {
	return analysisTime.Add(-time.Duration(n * 365.25 * 24 * float64(time.Hour)))
}

func daysAgo(n int) time.Time {
	return analysisTime.AddDate(0, 0, -n)
}

func TestAnalyzeClassification(t *testing.T) {
	cases := []struct {
		name        string
		eq          asset.Equipment
		wantRisk    string
		wantReplace bool
		wantRemarks []string
	}{
		{
			name: "operational within parameters",
			eq: asset.Equipment{
				ID:              "EQ-OK",
				PurchaseAmount:  50000,
				UsefulLifeYears: 10,
				PurchaseDate:    yearsAgo(2),
			},
			wantRisk:    RiskLow,
			wantReplace: false,
			wantRemarks: []string{RemarkOperational},
		},
		{
			name: "costly repair promotes high",
			eq: asset.Equipment{
				ID:              "EQ-COST",
				PurchaseAmount:  10000,
				UsefulLifeYears: 10,
				PurchaseDate:    yearsAgo(2),
				Repairs: []asset.Repair{
					{Date: yearsAgo(1), AmountUsed: 6000},
				},
			},
			wantRisk:    RiskHigh,
			wantReplace: true,
			wantRemarks: []string{RemarkCostlyRepair},
		},
		{
			name: "frequent repair is at least medium",
			eq: asset.Equipment{
				ID:              "EQ-FREQ",
				PurchaseAmount:  100000,
				UsefulLifeYears: 10,
				PurchaseDate:    yearsAgo(1),
				Repairs: []asset.Repair{
					{Date: daysAgo(300), AmountUsed: 100},
					{Date: daysAgo(280), AmountUsed: 100},
					{Date: daysAgo(260), AmountUsed: 100},
				},
			},
			wantRisk:    RiskMedium,
			wantReplace: false,
			wantRemarks: []string{RemarkFrequentRepair},
		},
		{
			name: "very frequent repair recommends replacement",
			eq: asset.Equipment{
				ID:              "EQ-VFREQ",
				PurchaseAmount:  100000,
				UsefulLifeYears: 10,
				PurchaseDate:    yearsAgo(1),
				Repairs: []asset.Repair{
					{Date: daysAgo(360), AmountUsed: 100},
					{Date: daysAgo(340), AmountUsed: 100},
					{Date: daysAgo(320), AmountUsed: 100},
					{Date: daysAgo(300), AmountUsed: 100},
				},
			},
			wantRisk:    RiskMedium,
			wantReplace: true,
			wantRemarks: []string{RemarkFrequentRepair},
		},
		{
			name: "beyond useful life",
			eq: asset.Equipment{
				ID:              "EQ-OLD",
				PurchaseAmount:  100000,
				UsefulLifeYears: 5,
				PurchaseDate:    yearsAgo(6),
			},
			wantRisk:    RiskHigh,
			wantReplace: true,
			wantRemarks: []string{RemarkBeyondLife},
		},
		{
			name: "approaching end of life",
			eq: asset.Equipment{
				ID:              "EQ-EOL",
				PurchaseAmount:  100000,
				UsefulLifeYears: 5,
				PurchaseDate:    yearsAgo(4.5),
			},
			wantRisk:    RiskMedium,
			wantReplace: false,
			wantRemarks: []string{RemarkApproachingEOL},
		},
		{
			name: "high recent repair activity",
			eq: asset.Equipment{
				ID:              "EQ-RECENT",
				PurchaseAmount:  1000000,
				UsefulLifeYears: 20,
				PurchaseDate:    yearsAgo(10),
				Repairs: []asset.Repair{
					{Date: daysAgo(10), AmountUsed: 100},
					{Date: daysAgo(60), AmountUsed: 100},
					{Date: daysAgo(120), AmountUsed: 100},
				},
			},
			wantRisk:    RiskHigh,
			wantReplace: true,
			wantRemarks: []string{RemarkRecentActivity},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := AnalyzeAt(&tc.eq, analysisTime)
			if res.RiskLevel != tc.wantRisk {
				t.Fatalf("risk = %s, want %s (%+v)", res.RiskLevel, tc.wantRisk, res)
			}
			if res.RecommendReplacement != tc.wantReplace {
				t.Fatalf("replace = %v, want %v (%+v)", res.RecommendReplacement, tc.wantReplace, res)
			}
			for _, remark := range tc.wantRemarks {
				if !slices.Contains(res.Remarks, remark) {
					t.Fatalf("missing remark %q in %v", remark, res.Remarks)
				}
			}
		})
	}
}

func TestAnalyzeHighRiskScenario(t *testing.T) {
	// P=100000, U=5, purchased 7 years ago, two recent repairs totaling 60000.
	eq := asset.Equipment{
		ID:              "ASSET-E2",
		PurchaseAmount:  100000,
		UsefulLifeYears: 5,
		PurchaseDate:    yearsAgo(7),
		Repairs: []asset.Repair{
			{Date: daysAgo(30), AmountUsed: 40000},
			{Date: daysAgo(90), AmountUsed: 20000},
		},
	}
	res := AnalyzeAt(&eq, analysisTime)

	if res.RiskLevel != RiskHigh {
		t.Fatalf("risk = %s, want High", res.RiskLevel)
	}
	if !res.RecommendReplacement {
		t.Fatal("expected replacement recommendation")
	}
	for _, remark := range []string{RemarkCostlyRepair, RemarkBeyondLife} {
		if !slices.Contains(res.Remarks, remark) {
			t.Fatalf("missing remark %q in %v", remark, res.Remarks)
		}
	}
	if res.RecentRepairs != 2 {
		t.Fatalf("recent repairs = %d, want 2", res.RecentRepairs)
	}
	if math.Abs(res.CostRatio-0.6) > 1e-9 {
		t.Fatalf("cost ratio = %f, want 0.6", res.CostRatio)
	}
}

func TestAnalyzeDegenerateInputs(t *testing.T) {
	res := AnalyzeAt(&asset.Equipment{ID: "EQ-EMPTY"}, analysisTime)
	if res.RiskLevel != RiskLow || res.RecommendReplacement {
		t.Fatalf("empty equipment should be low risk: %+v", res)
	}
	if res.AvgRepairCost != 0 || res.RepairFrequencyPerYear != 0 || res.CostRatio != 0 {
		t.Fatalf("expected zeroed ratios: %+v", res)
	}

	// A purchase date in the future clamps age to zero.
	future := AnalyzeAt(&asset.Equipment{
		ID:           "EQ-FUTURE",
		PurchaseDate: analysisTime.AddDate(1, 0, 0),
	}, analysisTime)
	if future.AgeYears != 0 {
		t.Fatalf("age = %f, want 0", future.AgeYears)
	}
}
