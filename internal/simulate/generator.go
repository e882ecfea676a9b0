package simulate

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/artemis/internal/domain/model"
)

// Score bands a simulated player can fall into for one session.
const (
	caseAverage = iota
	caseStrong
	caseStruggling
	caseExpert
	caseWide
	numCases
)

// gameSkills lists the skills each game exercises.
var gameSkills = map[model.GameType][]string{ //nolint:gochecknoglobals // static content
	model.GameDetective:     {"Logical Reasoning", "Deductive Reasoning", "Evidence Evaluation", "Pattern Recognition"},
	model.GameStory:         {"Consequence Analysis", "Ethical Reasoning", "Problem Solving", "Perspective Taking"},
	model.GameDebate:        {"Argument Construction", "Counterargument Analysis", "Perspective Taking", "Logical Reasoning"},
	model.GameFactOrFiction: {"Source Credibility", "Bias Detection", "Fact Checking", "Evidence Evaluation"},
}

// generator builds random submissions. It is not safe for concurrent use.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// generate returns users*perUser submissions grouped by user, each with a
// fresh uuid submission id.
func (g *generator) generate(users, perUser int) []model.Submission {
	out := make([]model.Submission, 0, users*perUser)
	for u := 0; u < users; u++ {
		userID := "sim-" + uuid.NewString()
		for i := 0; i < perUser; i++ {
			out = append(out, g.submission(userID))
		}
	}
	return out
}

func (g *generator) submission(userID string) model.Submission {
	gameType := model.GameTypes[g.rng.IntN(len(model.GameTypes))]
	base := g.baseScore()
	return model.Submission{
		SubmissionID: uuid.NewString(),
		UserID:       userID,
		GameType:     gameType,
		GameID:       string(gameType) + "-" + uuid.NewString()[:8],
		TimeSpent:    float64(60 + g.rng.IntN(540)),
		Scores: model.Scores{
			Accuracy:    g.jitter(base),
			Reasoning:   g.jitter(base),
			Speed:       g.jitter(base),
			Consistency: g.jitter(base),
		},
		Skills: g.skills(gameType),
	}
}

// baseScore picks a player band and a score inside it.
func (g *generator) baseScore() int {
	switch g.rng.IntN(numCases) {
	case caseAverage:
		return 45 + g.rng.IntN(30)
	case caseStrong:
		return 70 + g.rng.IntN(20)
	case caseStruggling:
		return 10 + g.rng.IntN(35)
	case caseExpert:
		return 90 + g.rng.IntN(11)
	default:
		return g.rng.IntN(101)
	}
}

func (g *generator) jitter(base int) int {
	return min(max(base+g.rng.IntN(21)-10, 0), 100)
}

// skills returns two or three of the game's skills, occasionally with one
// the catalog does not know.
func (g *generator) skills(gameType model.GameType) []string {
	pool := append([]string(nil), gameSkills[gameType]...)
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	n := 2 + g.rng.IntN(2)
	picked := pool[:n]
	if g.rng.IntN(10) == 0 {
		picked = append(picked, "Creative Writing")
	}
	return picked
}
