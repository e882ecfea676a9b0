package iq

import (
	"math"

	"github.com/okian/artemis/internal/domain/model"
)

type band struct {
	min         int
	label       string
	description string
}

// bands are ordered from highest lower bound to lowest; the last one catches everything.
var bands = []band{ //nolint:gochecknoglobals // static lookup table
	{140, "Exceptional Thinker", "Reasons through complex problems with remarkable clarity and insight."},
	{120, "Advanced Reasoner", "Analyses evidence carefully and builds strong, well-supported arguments."},
	{110, "Strong Thinker", "Consistently spots patterns and questions information before accepting it."},
	{90, "Capable Thinker", "Solid everyday reasoning with room to sharpen evidence and argument skills."},
	{80, "Developing Thinker", "Building the habits of asking why and checking the facts."},
	{math.MinInt, "Emerging Thinker", "Just getting started; every game played strengthens reasoning skills."},
}

// ClassifyIQ returns the label band for iq. Lower bounds are inclusive.
func ClassifyIQ(iq int) model.Classification {
	for _, b := range bands {
		if iq >= b.min {
			return model.Classification{IQ: iq, Label: b.label, Description: b.description}
		}
	}
	return model.Classification{IQ: iq} // unreachable: last band has no lower bound
}

// DeriveSkillLevel maps a skill score to its level.
func DeriveSkillLevel(score int) model.SkillLevel {
	switch {
	case score >= 90:
		return model.LevelExpert
	case score >= 75:
		return model.LevelAdvanced
	case score >= 50:
		return model.LevelProficient
	default:
		return model.LevelDeveloping
	}
}

func deriveTrend(current, previous int) model.Trend {
	switch {
	case current > previous+trendDelta:
		return model.TrendImproving
	case current < previous-trendDelta:
		return model.TrendNeedsPractice
	default:
		return model.TrendStable
	}
}
