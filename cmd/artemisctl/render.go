package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/model"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
	barWidth    = 20
)

// theme holds the styles used for terminal output. The plain theme renders
// text unchanged.
type theme struct {
	header lipgloss.Style
	bold   lipgloss.Style
	dim    lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
}

func newTheme(styled bool) theme {
	if !styled {
		plain := lipgloss.NewStyle()
		return theme{header: plain, bold: plain, dim: plain, good: plain, warn: plain, bad: plain}
	}
	return theme{
		header: lipgloss.NewStyle().Foreground(lipgloss.Color("#fe8019")).Bold(true),
		bold:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ebdbb2")).Bold(true),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#928374")),
		good:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8ec07c")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#fabd2f")),
		bad:    lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934")),
	}
}

func (t theme) section(title string) string {
	upper := strings.ToUpper(title)
	return t.header.Render(upper) + "\n" + t.dim.Render(strings.Repeat("─", len(upper))) + "\n"
}

// bar renders a score bar like [████░░░░]; colour follows the score band.
func (t theme) bar(score int) string {
	score = min(max(score, 0), 100)
	filled := score * barWidth / 100
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, barWidth-filled)
	style := t.good
	switch {
	case score < 50:
		style = t.bad
	case score < 75:
		style = t.warn
	}
	return "[" + style.Render(bar) + "]"
}

func (t theme) trend(tr model.Trend) string {
	switch tr {
	case model.TrendImproving:
		return t.good.Render("▲ improving")
	case model.TrendNeedsPractice:
		return t.bad.Render("▼ needs practice")
	default:
		return t.dim.Render("● stable")
	}
}

func renderProfile(userID string, p *model.Profile, c model.Classification, t theme) string {
	var b strings.Builder

	b.WriteString(t.section("Thinking profile: " + userID))
	fmt.Fprintf(&b, "%s %s  %s\n", t.bold.Render("ArtemisIQ"), t.bold.Render(fmt.Sprint(p.OverallIQ)), c.Label)
	b.WriteString(t.dim.Render(c.Description) + "\n")
	fmt.Fprintf(&b, "Games played: %d   Time practiced: %d min   Streak: %d (best %d)\n",
		p.TotalGamesPlayed, p.TotalTimePracticed, p.CurrentStreak, p.LongestStreak)
	if p.LastPlayedAt != nil {
		fmt.Fprintf(&b, "Last played: %s\n", p.LastPlayedAt.Format("2006-01-02 15:04 MST"))
	}

	if len(p.SkillScores) > 0 {
		b.WriteString("\n" + t.section("Skills"))
		width := 0
		for _, s := range p.SkillScores {
			width = max(width, len(s.Skill))
		}
		for _, s := range p.SkillScores {
			fmt.Fprintf(&b, "%-*s %s %3d  %-10s %s\n", width, s.Skill, t.bar(s.Score), s.Score, s.Level, t.trend(s.Trend))
		}
	}

	if len(p.WeeklyProgress) > 0 {
		b.WriteString("\n" + t.section("Weekly progress"))
		for _, w := range p.WeeklyProgress {
			fmt.Fprintf(&b, "%s  IQ %3d  %s\n", w.Week, w.IQ, t.dim.Render(fmt.Sprintf("%d games", w.GamesPlayed)))
		}
	}
	return b.String()
}

func renderSkills(skills []catalog.SkillCategory, t theme) string {
	var b strings.Builder
	b.WriteString(t.section("Skill catalog"))
	width := 0
	for _, s := range skills {
		width = max(width, len(s.Name))
	}
	category := ""
	for _, s := range skills {
		if s.Category != category {
			category = s.Category
			b.WriteString(t.bold.Render(category) + "\n")
		}
		fmt.Fprintf(&b, "  %-*s  x%.1f  %s\n", width, s.Name, s.Weight, t.dim.Render(s.Description))
	}
	return b.String()
}
