package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile() *model.Profile {
	played := time.Date(2025, 3, 5, 15, 4, 5, 123456789, time.UTC)
	return &model.Profile{
		OverallIQ: 130,
		SkillScores: []model.SkillScore{
			{Skill: "Logical Reasoning", Score: 75, Level: model.LevelAdvanced, GamesPlayed: 1, Trend: model.TrendStable},
			{Skill: "Evidence Evaluation", Score: 75, Level: model.LevelAdvanced, GamesPlayed: 1, Trend: model.TrendStable},
		},
		TotalGamesPlayed:   1,
		TotalTimePracticed: 5,
		CurrentStreak:      1,
		LongestStreak:      1,
		LastPlayedAt:       &played,
		Sessions: []model.GameSession{{
			ID:          "s-1",
			GameType:    model.GameDetective,
			GameID:      "case-1",
			CompletedAt: played,
			TimeSpent:   300,
			Scores:      model.Scores{Accuracy: 80, Reasoning: 70, Speed: 90, Consistency: 75},
			Skills:      []string{"Logical Reasoning", "Evidence Evaluation"},
			RawData:     map[string]any{"clues": float64(4)},
		}},
		WeeklyProgress: []model.WeeklyProgress{
			{Week: "2025-W09", IQ: 120, GamesPlayed: 3},
			{Week: "2025-W10", IQ: 130, GamesPlayed: 1},
		},
	}
}

// runStoreContract exercises the behaviour every ProfileStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) ProfileStore) {
	t.Run("load unknown user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty user id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyUserID)
		_, err = s.Save(context.Background(), "", sampleProfile(), 0)
		assert.ErrorIs(t, err, ErrEmptyUserID)
		assert.ErrorIs(t, s.Delete(context.Background(), ""), ErrEmptyUserID)
	})

	t.Run("round trip is lossless", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := sampleProfile()

		v, err := s.Save(ctx, "u1", p, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		rec, err := s.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Version)
		assert.False(t, rec.UpdatedAt.IsZero())
		assert.Equal(t, p.OverallIQ, rec.Profile.OverallIQ)
		assert.Equal(t, p.SkillScores, rec.Profile.SkillScores)
		assert.Equal(t, p.WeeklyProgress, rec.Profile.WeeklyProgress)
		require.Len(t, rec.Profile.Sessions, 1)
		assert.True(t, p.Sessions[0].CompletedAt.Equal(rec.Profile.Sessions[0].CompletedAt))
		assert.Equal(t, p.Sessions[0].Skills, rec.Profile.Sessions[0].Skills)
		assert.Equal(t, p.Sessions[0].RawData, rec.Profile.Sessions[0].RawData)
		require.NotNil(t, rec.Profile.LastPlayedAt)
		assert.True(t, p.LastPlayedAt.Equal(*rec.Profile.LastPlayedAt))
	})

	t.Run("optimistic versions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, "u1", sampleProfile(), 0)
		require.NoError(t, err)

		_, err = s.Save(ctx, "u1", sampleProfile(), 0)
		assert.ErrorIs(t, err, ErrVersionConflict, "create over an existing profile")

		_, err = s.Save(ctx, "u1", sampleProfile(), 7)
		assert.ErrorIs(t, err, ErrVersionConflict, "stale version")

		p := sampleProfile()
		p.OverallIQ = 140
		v, err := s.Save(ctx, "u1", p, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		rec, err := s.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 140, rec.Profile.OverallIQ)
		assert.Equal(t, int64(2), rec.Version)

		_, err = s.Save(ctx, "u2", sampleProfile(), 1)
		assert.ErrorIs(t, err, ErrVersionConflict, "update of a missing profile")
	})

	t.Run("nil profile", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(context.Background(), "u1", nil, 0)
		assert.ErrorIs(t, err, ErrNilProfile)
	})

	t.Run("delete and count", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			_, err := s.Save(ctx, id, sampleProfile(), 0)
			require.NoError(t, err)
		}
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		require.NoError(t, s.Delete(ctx, "b"))
		assert.ErrorIs(t, s.Delete(ctx, "b"), ErrNotFound)

		_, err = s.Load(ctx, "b")
		assert.ErrorIs(t, err, ErrNotFound)

		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = s.Save(ctx, "b", sampleProfile(), 0)
		assert.NoError(t, err, "a deleted user starts over at version 0")
	})

	t.Run("concurrent creates admit one winner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const writers = 8
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, "race", sampleProfile(), 0)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for err := range results {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrVersionConflict)
		}
		assert.Equal(t, 1, wins)
	})
}
