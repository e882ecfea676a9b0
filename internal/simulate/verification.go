package simulate

import (
	"fmt"
	"sort"

	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/domain/model"
)

// verifyProfiles compares each user's profile with the number of sessions
// accepted for them and checks the profile's own bounds. It returns one
// message per user with a problem, sorted by user id.
func verifyProfiles(expected map[string]int, profiles map[string]*model.Profile) []string {
	users := make([]string, 0, len(expected))
	for u := range expected {
		users = append(users, u)
	}
	sort.Strings(users)

	var issues []string
	for _, u := range users {
		want := expected[u]
		p, ok := profiles[u]
		if !ok {
			if want > 0 {
				issues = append(issues, fmt.Sprintf("%s: profile never retrieved", u))
			}
			continue
		}
		if msg := checkProfile(p, want); msg != "" {
			issues = append(issues, u+": "+msg)
		}
	}
	return issues
}

func checkProfile(p *model.Profile, want int) string {
	switch {
	case p.TotalGamesPlayed != want:
		return fmt.Sprintf("totalGamesPlayed %d, want %d", p.TotalGamesPlayed, want)
	case p.OverallIQ < iq.MinIQ || p.OverallIQ > iq.MaxIQ:
		return fmt.Sprintf("overallIQ %d out of range", p.OverallIQ)
	case len(p.Sessions) > want:
		return fmt.Sprintf("%d sessions retained from %d submitted", len(p.Sessions), want)
	case want > 0 && len(p.Sessions) == 0:
		return "no sessions retained"
	case p.CurrentStreak > p.LongestStreak:
		return fmt.Sprintf("current streak %d exceeds longest %d", p.CurrentStreak, p.LongestStreak)
	}
	for _, s := range p.SkillScores {
		if s.Score < 0 || s.Score > 100 {
			return fmt.Sprintf("skill %q score %d out of range", s.Skill, s.Score)
		}
	}
	return ""
}
