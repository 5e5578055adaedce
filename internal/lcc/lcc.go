// Package lcc derives a life-cycle-cost classification from an equipment
// record and its repair history.
package lcc

import (
	"time"

	"meams.org/internal/asset"
)

// Risk levels, ordered.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Remarks attached by the classification rules.
const (
	RemarkCostlyRepair    = "Costly Repair"
	RemarkFrequentRepair  = "Frequent Repair"
	RemarkBeyondLife      = "Beyond Useful Life"
	RemarkApproachingEOL  = "Approaching End of Life"
	RemarkRecentActivity  = "High Recent Repair Activity"
	RemarkOperational     = "Operational - Within Parameters"
)

const recentWindow = 180 * 24 * time.Hour

// Result is the computed classification.
type Result struct {
	EquipmentID            string   `json:"equipment_id"`
	AgeYears               float64  `json:"age_years"`
	RepairCount            int      `json:"repair_count"`
	TotalRepairCost        float64  `json:"total_repair_cost"`
	AvgRepairCost          float64  `json:"avg_repair_cost"`
	RepairFrequencyPerYear float64  `json:"repair_frequency_per_year"`
	CostRatio              float64  `json:"cost_ratio"`
	RecentRepairs          int      `json:"recent_repairs"`
	Remarks                []string `json:"remarks"`
	RiskLevel              string   `json:"risk_level"`
	RecommendReplacement   bool     `json:"recommend_replacement"`
}

// Analyze classifies the equipment as of now.
func Analyze(eq *asset.Equipment) Result {
	return AnalyzeAt(eq, time.Now().UTC())
}

// AnalyzeAt classifies the equipment as of a fixed instant. Pure; repeated
// calls with the same inputs yield the same result.
func AnalyzeAt(eq *asset.Equipment, now time.Time) Result {
	res := Result{
		EquipmentID: eq.ID,
		RiskLevel:   RiskLow,
	}

	if !eq.PurchaseDate.IsZero() {
		res.AgeYears = now.Sub(eq.PurchaseDate).Hours() / 24 / 365.25
		if res.AgeYears < 0 {
			res.AgeYears = 0
		}
	}

	res.RepairCount = len(eq.Repairs)
	for _, rep := range eq.Repairs {
		res.TotalRepairCost += rep.AmountUsed
		if now.Sub(rep.Date) <= recentWindow && !rep.Date.After(now) {
			res.RecentRepairs++
		}
	}
	if res.RepairCount > 0 {
		res.AvgRepairCost = res.TotalRepairCost / float64(res.RepairCount)
	}
	if res.AgeYears > 0 {
		res.RepairFrequencyPerYear = float64(res.RepairCount) / res.AgeYears
	}
	if eq.PurchaseAmount > 0 {
		res.CostRatio = res.TotalRepairCost / eq.PurchaseAmount
	}

	promote := func(level string) {
		if res.RiskLevel == RiskHigh {
			return
		}
		if level == RiskHigh || (level == RiskMedium && res.RiskLevel == RiskLow) {
			res.RiskLevel = level
		}
	}

	if eq.PurchaseAmount > 0 && res.TotalRepairCost >= 0.5*eq.PurchaseAmount {
		res.Remarks = append(res.Remarks, RemarkCostlyRepair)
		promote(RiskHigh)
		res.RecommendReplacement = true
	}
	if res.RepairFrequencyPerYear > 2 {
		res.Remarks = append(res.Remarks, RemarkFrequentRepair)
		promote(RiskMedium)
		if res.RepairFrequencyPerYear > 3 {
			res.RecommendReplacement = true
		}
	}
	life := float64(eq.UsefulLifeYears)
	if life > 0 && res.AgeYears >= life {
		res.Remarks = append(res.Remarks, RemarkBeyondLife)
		promote(RiskHigh)
		res.RecommendReplacement = true
	} else if life > 0 && res.AgeYears >= life-1 {
		res.Remarks = append(res.Remarks, RemarkApproachingEOL)
		promote(RiskMedium)
	}
	if res.RecentRepairs >= 3 {
		res.Remarks = append(res.Remarks, RemarkRecentActivity)
		promote(RiskHigh)
		res.RecommendReplacement = true
	}

	if len(res.Remarks) == 0 {
		res.Remarks = append(res.Remarks, RemarkOperational)
	}
	return res
}
