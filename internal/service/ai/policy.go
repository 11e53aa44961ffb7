package ai

import (
	"image/color"

	"intruderwatch/internal/config"
	"intruderwatch/internal/dto"
)

// Category groups detector labels by how the system reacts to them.
type Category int

const (
	Other Category = iota
	Intruder
	Known
)

func (c Category) String() string {
	switch c {
	case Intruder:
		return "intruder"
	case Known:
		return "known"
	default:
		return "other"
	}
}

// Trigger decides when a detection of a category starts the filter pipeline.
type Trigger int

const (
	Never Trigger = iota
	Always
	BelowThreshold
)

// Rule is the reaction attached to one category.
type Rule struct {
	Color   color.RGBA
	Trigger Trigger
}

var (
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// DefaultRules is the policy table used by NewPolicy.
var DefaultRules = map[Category]Rule{
	Intruder: {Color: Red, Trigger: Always},
	Known:    {Color: Green, Trigger: BelowThreshold},
	Other:    {Color: Yellow, Trigger: Never},
}

// Policy maps labels to categories and decides which detections are actionable.
type Policy struct {
	intruder  string
	known     map[string]bool
	threshold float64
	rules     map[Category]Rule
}

// NewPolicy builds a policy from the configured labels and acceptance threshold.
func NewPolicy(cfg *config.Config) *Policy {
	return NewPolicyFromLabels(cfg.IntruderLabel, cfg.KnownLabels, cfg.AcceptanceThreshold)
}

// NewPolicyFromLabels builds a policy with DefaultRules.
func NewPolicyFromLabels(intruder string, known []string, threshold float64) *Policy {
	p := &Policy{
		intruder:  intruder,
		known:     make(map[string]bool, len(known)),
		threshold: threshold,
		rules:     DefaultRules,
	}
	for _, label := range known {
		p.known[label] = true
	}
	return p
}

// Classify returns the category of a detector label.
func (p *Policy) Classify(label string) Category {
	switch {
	case label == p.intruder:
		return Intruder
	case p.known[label]:
		return Known
	default:
		return Other
	}
}

// Actionable reports whether d should trigger filtering and persistence.
func (p *Policy) Actionable(d dto.Detection) bool {
	switch p.rules[p.Classify(d.Label)].Trigger {
	case Always:
		return true
	case BelowThreshold:
		return d.Confidence < p.threshold
	default:
		return false
	}
}

// Color is the box colour for d. Actionable detections are always red.
func (p *Policy) Color(d dto.Detection) color.RGBA {
	if p.Actionable(d) {
		return Red
	}
	return p.rules[p.Classify(d.Label)].Color
}

// Filter returns the actionable subset of detections.
func (p *Policy) Filter(detections []dto.Detection) []dto.Detection {
	var out []dto.Detection
	for _, d := range detections {
		if p.Actionable(d) {
			out = append(out, d)
		}
	}
	return out
}
