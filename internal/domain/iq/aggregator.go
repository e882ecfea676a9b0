// Package iq folds game sessions into a user's cognitive profile.
//
// The aggregator is a pure function of (profile, session): it never mutates
// its input and owns no shared state, so callers serialise the
// load, AddSession, save sequence themselves.
package iq

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/model"
)

// Aggregation constants.
const (
	DefaultIQ          = 100
	MinIQ              = 70
	MaxIQ              = 150
	DefaultMaxSessions = 50
	DefaultMaxWeeks    = 12

	iqBase            = 70.0
	iqScale           = 0.8
	neutralSkillScore = 50.0
	trendDelta        = 5
	secondsPerMinute  = 60.0
)

// Aggregator applies sessions to profiles.
type Aggregator struct {
	catalog     *catalog.Catalog
	now         func() time.Time
	newID       func() string
	loc         *time.Location
	maxSessions int
	maxWeeks    int
}

// NewAggregator creates an aggregator with the default catalog, UTC day
// boundaries, uuid session ids and the 50 session / 12 week retention caps.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		catalog:     catalog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		loc:         time.UTC,
		maxSessions: DefaultMaxSessions,
		maxWeeks:    DefaultMaxWeeks,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the skill catalog used for weighting.
func (a *Aggregator) Catalog() *catalog.Catalog { return a.catalog }

// CreateDefaultProfile returns the profile of a user with no history.
func CreateDefaultProfile() *model.Profile {
	return &model.Profile{
		OverallIQ:      DefaultIQ,
		SkillScores:    []model.SkillScore{},
		Sessions:       []model.GameSession{},
		WeeklyProgress: []model.WeeklyProgress{},
	}
}

// AddSession stamps in with a fresh id and the current time and returns the
// profile that results from folding it into prev. prev is left untouched.
//
// Skill scores are recomputed from the retained session window only, so
// evicting an old session changes the averages of the skills it touched.
func (a *Aggregator) AddSession(prev *model.Profile, in model.SessionInput) (*model.Profile, error) {
	if prev == nil {
		return nil, ErrNilProfile
	}
	now := a.now()
	next := prev.Clone()

	session := model.GameSession{
		ID:          a.newID(),
		GameType:    in.GameType,
		GameID:      in.GameID,
		CompletedAt: now,
		TimeSpent:   in.TimeSpent,
		Scores:      in.Scores,
		Skills:      append([]string(nil), in.Skills...),
		RawData:     in.Clone().RawData,
	}
	next.Sessions = append(next.Sessions, session)
	if over := len(next.Sessions) - a.maxSessions; over > 0 {
		next.Sessions = append([]model.GameSession(nil), next.Sessions[over:]...)
	}

	next.SkillScores = recomputeSkills(next.Sessions, prev.SkillScores)

	next.CurrentStreak = a.nextStreak(prev, now)
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastPlayedAt = &now

	next.OverallIQ = a.compositeIQ(next.SkillScores)

	next.TotalGamesPlayed++
	next.TotalTimePracticed += int(round(in.TimeSpent / secondsPerMinute))

	next.WeeklyProgress = a.updateWeeks(next.WeeklyProgress, WeekKey(now.In(a.loc)), next.OverallIQ)

	return next, nil
}

type skillAccumulator struct {
	sum   float64
	count int
}

// recomputeSkills rebuilds every skill score from sessions. Skills keep the
// order of their first appearance in the window.
func recomputeSkills(sessions []model.GameSession, previous []model.SkillScore) []model.SkillScore {
	prior := make(map[string]int, len(previous))
	for _, s := range previous {
		prior[s.Skill] = s.Score
	}

	acc := make(map[string]*skillAccumulator)
	var order []string
	for _, s := range sessions {
		value := float64(s.Scores.Accuracy+s.Scores.Reasoning+s.Scores.Consistency) / 3
		seen := make(map[string]struct{}, len(s.Skills))
		for _, name := range s.Skills {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			a, ok := acc[name]
			if !ok {
				a = &skillAccumulator{}
				acc[name] = a
				order = append(order, name)
			}
			a.sum += value
			a.count++
		}
	}

	out := make([]model.SkillScore, 0, len(order))
	for _, name := range order {
		a := acc[name]
		score := int(round(a.sum / float64(a.count)))
		old, existed := prior[name]
		if !existed {
			old = score
		}
		out = append(out, model.SkillScore{
			Skill:       name,
			Score:       score,
			Level:       DeriveSkillLevel(score),
			GamesPlayed: a.count,
			Trend:       deriveTrend(score, old),
		})
	}
	return out
}

func (a *Aggregator) nextStreak(prev *model.Profile, now time.Time) int {
	if prev.LastPlayedAt == nil {
		return 1
	}
	switch daysBetween(prev.LastPlayedAt.In(a.loc), now.In(a.loc)) {
	case 0:
		return prev.CurrentStreak
	case 1:
		return prev.CurrentStreak + 1
	default:
		return 1
	}
}

// daysBetween counts calendar days from a to b in their (shared) location.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func (a *Aggregator) compositeIQ(skills []model.SkillScore) int {
	var weighted, total float64
	for _, s := range skills {
		w, ok := a.catalog.Weight(s.Skill)
		if !ok {
			continue
		}
		weighted += float64(s.Score) * w
		total += w
	}
	avg := neutralSkillScore
	if total > 0 {
		avg = weighted / total
	}
	iq := int(round(iqBase + iqScale*avg))
	return min(MaxIQ, max(MinIQ, iq))
}

func (a *Aggregator) updateWeeks(weeks []model.WeeklyProgress, key string, iq int) []model.WeeklyProgress {
	for i := range weeks {
		if weeks[i].Week == key {
			weeks[i].IQ = iq
			weeks[i].GamesPlayed++
			return weeks
		}
	}
	weeks = append(weeks, model.WeeklyProgress{Week: key, IQ: iq, GamesPlayed: 1})
	if over := len(weeks) - a.maxWeeks; over > 0 {
		weeks = append([]model.WeeklyProgress(nil), weeks[over:]...)
	}
	return weeks
}

// WeekKey returns the ISO-8601 week identifier of t, e.g. "2025-W09".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// round rounds halves up, matching browser Math.round.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}
