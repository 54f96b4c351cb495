package ml

import (
	"strings"
)

const (
	ReviewFavorCustomer = "favor_customer"
	ReviewFavorProvider = "favor_provider"
	ReviewNeedsHuman    = "needs_human"
)

// ComplaintReviewer produces an advisory verdict on a complaint. It never
// decides the outcome; an operator resolves the dispute.
type ComplaintReviewer interface {
	Review(req *ReviewRequest) *ReviewResult
}

type ReviewRequest struct {
	Category      string `json:"category"`
	Description   string `json:"description"`
	EvidenceCount int    `json:"evidence_count"`
}

type ReviewResult struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// HeuristicReviewer weighs evidence count and a few description keywords.
type HeuristicReviewer struct {
	minEvidence int
}

func NewHeuristicReviewer() *HeuristicReviewer {
	return &HeuristicReviewer{minEvidence: 2}
}

func (r *HeuristicReviewer) Review(req *ReviewRequest) *ReviewResult {
	description := strings.ToLower(req.Description)

	switch {
	case req.EvidenceCount >= r.minEvidence:
		return &ReviewResult{
			Result:     ReviewFavorCustomer,
			Confidence: 0.8,
			Notes:      "Multiple pieces of evidence support customer claim",
		}
	case strings.Contains(description, "late") && req.Category == "complaint_late_arrival":
		return &ReviewResult{
			Result:     ReviewFavorCustomer,
			Confidence: 0.7,
			Notes:      "Late arrival complaint with supporting description",
		}
	case strings.Contains(description, "rude") || strings.Contains(description, "behave"):
		return &ReviewResult{
			Result:     ReviewNeedsHuman,
			Confidence: 0.5,
			Notes:      "Behaviour issues require human judgment",
		}
	}

	return &ReviewResult{
		Result:     ReviewNeedsHuman,
		Confidence: 0.6,
		Notes:      "Insufficient evidence for automatic decision",
	}
}
