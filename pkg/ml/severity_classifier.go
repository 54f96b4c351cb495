package ml

import (
	"strings"
)

const (
	TierAI    = "ai"
	TierHuman = "human"

	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// SeverityClassifier routes a ticket to a triage tier before it is stored.
// Implementations must be pure: the same request always yields the same result.
type SeverityClassifier interface {
	Classify(req *TriageRequest) *TriageResult
}

type TriageRequest struct {
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	IsComplaint bool   `json:"is_complaint"`
}

type TriageResult struct {
	Tier             string `json:"tier"`
	Priority         string `json:"priority"`
	AutoEscalated    bool   `json:"auto_escalated"`
	EscalationReason string `json:"escalation_reason,omitempty"`
}

// KeywordClassifier applies fixed category and keyword rules. The first rule
// that matches wins.
type KeywordClassifier struct {
	criticalKeywords     []string
	highPriorityKeywords []string

	complaintCategories    map[string]bool
	criticalComplaints     map[string]bool
	criticalCategories     map[string]bool
	highPriorityCategories map[string]bool
	aiCategories           map[string]bool
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		criticalKeywords: []string{
			"safety", "danger", "threat", "harass", "assault", "abuse",
			"scam", "fraud", "steal", "cheat", "illegal", "police",
			"emergency", "urgent", "serious", "critical", "lawsuit",
		},
		highPriorityKeywords: []string{
			"dispute", "refund", "complaint", "angry", "unsatisfied",
			"poor service", "damage", "injury", "accident", "lost",
			"missing", "wrong", "error", "problem",
		},
		complaintCategories: set(
			"complaint_late_arrival",
			"complaint_poor_service",
			"complaint_behaviour_issue",
			"complaint_overcharging",
		),
		criticalComplaints:     set("complaint_behaviour_issue", "complaint_overcharging"),
		criticalCategories:     set("safety_issue", "service_dispute"),
		highPriorityCategories: set("payment_status", "delay"),
		aiCategories:           set("booking_help", "faq", "technical_issue"),
	}
}

func (c *KeywordClassifier) Classify(req *TriageRequest) *TriageResult {
	text := strings.ToLower(req.Subject + " " + req.Description)

	switch {
	case req.IsComplaint || c.complaintCategories[req.Category]:
		priority := PriorityHigh
		if c.criticalComplaints[req.Category] {
			priority = PriorityCritical
		}
		return &TriageResult{
			Tier:             TierHuman,
			Priority:         priority,
			AutoEscalated:    true,
			EscalationReason: "Complaint requires human review and escrow freeze",
		}

	case containsAny(text, c.criticalKeywords) || c.criticalCategories[req.Category]:
		return &TriageResult{
			Tier:             TierHuman,
			Priority:         PriorityCritical,
			AutoEscalated:    true,
			EscalationReason: "Critical keywords detected or safety-related issue",
		}

	case containsAny(text, c.highPriorityKeywords) || c.highPriorityCategories[req.Category]:
		return &TriageResult{
			Tier:             TierHuman,
			Priority:         PriorityHigh,
			AutoEscalated:    true,
			EscalationReason: "High priority issue requiring human attention",
		}

	case c.aiCategories[req.Category]:
		return &TriageResult{Tier: TierAI, Priority: PriorityLow}
	}

	return &TriageResult{Tier: TierAI, Priority: PriorityMedium}
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
