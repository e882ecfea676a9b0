package model

import "time"

// SkillLevel is a coarse label derived from a skill score.
type SkillLevel string

// Skill levels from lowest to highest.
const (
	LevelDeveloping SkillLevel = "developing"
	LevelProficient SkillLevel = "proficient"
	LevelAdvanced   SkillLevel = "advanced"
	LevelExpert     SkillLevel = "expert"
)

// Trend classifies a skill score against its value before the last update.
type Trend string

// Trend values.
const (
	TrendImproving     Trend = "improving"
	TrendStable        Trend = "stable"
	TrendNeedsPractice Trend = "needs-practice"
)

// SkillScore is the derived per-skill aggregate.
type SkillScore struct {
	Skill       string     `json:"skill"`
	Score       int        `json:"score"`
	Level       SkillLevel `json:"level"`
	GamesPlayed int        `json:"gamesPlayed"`
	Trend       Trend      `json:"trend"`
}

// WeeklyProgress is one week bucket of the progress chart.
type WeeklyProgress struct {
	Week        string `json:"week"`
	IQ          int    `json:"iq"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// Profile is the per-user cognitive profile.
type Profile struct {
	OverallIQ          int              `json:"overallIQ"`
	SkillScores        []SkillScore     `json:"skillScores"`
	TotalGamesPlayed   int              `json:"totalGamesPlayed"`
	TotalTimePracticed int              `json:"totalTimePracticed"` // minutes
	CurrentStreak      int              `json:"currentStreak"`
	LongestStreak      int              `json:"longestStreak"`
	LastPlayedAt       *time.Time       `json:"lastPlayedAt,omitempty"`
	Sessions           []GameSession    `json:"sessions"`
	WeeklyProgress     []WeeklyProgress `json:"weeklyProgress"`
}

// Classification is the label band an IQ value falls into.
type Classification struct {
	IQ          int    `json:"iq"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Clone returns a deep copy of p. Slices are never shared with the original.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	if p.LastPlayedAt != nil {
		t := *p.LastPlayedAt
		out.LastPlayedAt = &t
	}
	out.SkillScores = append(make([]SkillScore, 0, len(p.SkillScores)), p.SkillScores...)
	out.WeeklyProgress = append(make([]WeeklyProgress, 0, len(p.WeeklyProgress)), p.WeeklyProgress...)
	out.Sessions = make([]GameSession, len(p.Sessions))
	for i, s := range p.Sessions {
		out.Sessions[i] = s.clone()
	}
	return &out
}

// Skill returns the score entry for name, if present.
func (p *Profile) Skill(name string) (SkillScore, bool) {
	for _, s := range p.SkillScores {
		if s.Skill == name {
			return s, true
		}
	}
	return SkillScore{}, false
}
