package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/artemis/internal/adapters/repository"
	service "github.com/okian/artemis/internal/app"
	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
	"github.com/okian/artemis/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// conflictingStore fails the first conflicts saves with a version conflict.
type conflictingStore struct {
	repository.ProfileStore
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, userID string, p *model.Profile, v int64) (int64, error) {
	s.mu.Lock()
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return 0, repository.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.ProfileStore.Save(ctx, userID, p, v)
}

// gatedStore blocks every Load until the gate is opened and signals entered
// each time a Load starts waiting.
type gatedStore struct {
	repository.ProfileStore
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedStore) Load(ctx context.Context, userID string) (repository.Record, error) {
	s.entered <- struct{}{}
	<-s.gate
	return s.ProfileStore.Load(ctx, userID)
}

// brokenStore fails every operation.
type brokenStore struct {
	repository.ProfileStore
}

func (brokenStore) Load(context.Context, string) (repository.Record, error) {
	return repository.Record{}, errors.New("disk on fire")
}

func input(skills ...string) model.SessionInput {
	return model.SessionInput{
		GameType:  model.GameDetective,
		GameID:    "case-1",
		TimeSpent: 300,
		Scores:    model.Scores{Accuracy: 80, Reasoning: 70, Speed: 90, Consistency: 75},
		Skills:    skills,
	}
}

func event(id, user string) model.SessionEvent {
	return model.SessionEvent{SubmissionID: id, UserID: user, Input: input("Logical Reasoning")}
}

func fixedAggregator() *iq.Aggregator {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	return iq.NewAggregator(iq.WithClock(func() time.Time { return now }))
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then stats describe a stopped service", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 10000)
			So(stats["skillCount"], ShouldEqual, 14)
		})

		Convey("Then submissions are refused until started", func() {
			_, err := svc.Submit(context.Background(), event("s-1", "kid"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then stopping is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_SubmitAndDrain(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithLogger(logger.Get()),
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithAggregator(fixedAggregator()),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the same submission arrives twice", func() {
			dup, err := svc.Submit(ctx, event("s-1", "kid-1"))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			dup, err = svc.Submit(ctx, event("s-1", "kid-1"))
			So(err, ShouldBeNil)
			So(dup, ShouldBeTrue)

			_, err = svc.Submit(ctx, event("s-2", "kid-1"))
			So(err, ShouldBeNil)

			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then only distinct submissions reach the profile", func() {
				p, err := svc.Profile(ctx, "kid-1")
				So(err, ShouldBeNil)
				So(p.TotalGamesPlayed, ShouldEqual, 2)
				So(p.TotalTimePracticed, ShouldEqual, 10)
			})

			Convey("Then later submissions are refused", func() {
				_, err := svc.Submit(ctx, event("s-3", "kid-1"))
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When a submission is missing identifiers", func() {
			_, err := svc.Submit(ctx, event("", "kid"))
			So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)

			_, err = svc.Submit(ctx, event("s-9", " "))
			So(errors.Is(err, service.ErrInvalidUserID), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose only worker is stuck", t, func() {
		ctx := context.Background()
		store := &gatedStore{
			ProfileStore: repository.NewMemoryStore(),
			entered:      make(chan struct{}, 10),
			gate:         make(chan struct{}),
		}
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithStore(store),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Submit(ctx, event("a", "kid"))
		So(err, ShouldBeNil)
		<-store.entered

		_, err = svc.Submit(ctx, event("b", "kid"))
		So(err, ShouldBeNil)

		Convey("When the queue is full", func() {
			_, err := svc.Submit(ctx, event("c", "kid"))

			Convey("Then the submission is refused and can be retried later", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)

				close(store.gate)
				<-store.entered
				stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				So(svc.Stop(stopCtx), ShouldBeNil)

				p, err := svc.Profile(ctx, "kid")
				So(err, ShouldBeNil)
				So(p.TotalGamesPlayed, ShouldEqual, 2)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a service over an in-memory store", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithAggregator(fixedAggregator()))

		Convey("When a user has never played", func() {
			p, err := svc.Profile(ctx, "nobody")

			Convey("Then the default profile is returned without being stored", func() {
				So(err, ShouldBeNil)
				So(p.OverallIQ, ShouldEqual, iq.DefaultIQ)
				So(p.TotalGamesPlayed, ShouldEqual, 0)
				So(svc.GetStats()["totalProfiles"], ShouldBeNil)
			})
		})

		Convey("When a session is ingested", func() {
			p, err := svc.Ingest(ctx, "kid-1", input("Logical Reasoning", "Evidence Evaluation"))
			So(err, ShouldBeNil)

			Convey("Then the stored profile reflects it", func() {
				So(p.OverallIQ, ShouldEqual, 130)
				stored, err := svc.Profile(ctx, "kid-1")
				So(err, ShouldBeNil)
				So(stored.TotalGamesPlayed, ShouldEqual, 1)
				So(stored.WeeklyProgress[0].Week, ShouldEqual, "2025-W10")
			})

			Convey("Then the classification follows the stored IQ", func() {
				c, err := svc.Classification(ctx, "kid-1")
				So(err, ShouldBeNil)
				So(c.IQ, ShouldEqual, 130)
				So(c.Label, ShouldEqual, "Advanced Reasoner")
			})

			Convey("Then the profile can be deleted once", func() {
				So(svc.DeleteProfile(ctx, "kid-1"), ShouldBeNil)
				err := svc.DeleteProfile(ctx, "kid-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				p, err := svc.Profile(ctx, "kid-1")
				So(err, ShouldBeNil)
				So(p.TotalGamesPlayed, ShouldEqual, 0)
			})
		})

		Convey("When the user id is empty", func() {
			_, err := svc.Ingest(ctx, "", input())
			So(errors.Is(err, service.ErrInvalidUserID), ShouldBeTrue)
			_, err = svc.Profile(ctx, "")
			So(errors.Is(err, service.ErrInvalidUserID), ShouldBeTrue)
			So(errors.Is(svc.DeleteProfile(ctx, ""), service.ErrInvalidUserID), ShouldBeTrue)
		})

		Convey("When many sessions for one user arrive concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = svc.Ingest(ctx, "busy-kid", input("Logical Reasoning"))
				}()
			}
			wg.Wait()

			Convey("Then no update is lost", func() {
				p, err := svc.Profile(ctx, "busy-kid")
				So(err, ShouldBeNil)
				So(p.TotalGamesPlayed, ShouldEqual, 40)
				So(len(p.Sessions), ShouldEqual, 40)
			})
		})
	})
}

func TestService_VersionConflicts(t *testing.T) {
	Convey("Given a store that reports concurrent writers", t, func() {
		ctx := context.Background()
		store := &conflictingStore{ProfileStore: repository.NewMemoryStore()}
		svc := service.New(service.WithStore(store))

		Convey("When conflicts clear within the retry budget", func() {
			store.conflicts = 2
			p, err := svc.Ingest(ctx, "kid", input("Logical Reasoning"))

			Convey("Then the ingestion succeeds", func() {
				So(err, ShouldBeNil)
				So(p.TotalGamesPlayed, ShouldEqual, 1)
				So(store.saves, ShouldEqual, 3)
			})
		})

		Convey("When conflicts persist", func() {
			store.conflicts = 10
			_, err := svc.Ingest(ctx, "kid", input("Logical Reasoning"))

			Convey("Then the ingestion gives up", func() {
				So(errors.Is(err, service.ErrTooManyConflicts), ShouldBeTrue)
				So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)
				So(store.saves, ShouldEqual, 3)
			})
		})
	})
}

func TestService_IngestEventFailure(t *testing.T) {
	Convey("Given a started service whose store is down", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithStore(brokenStore{ProfileStore: repository.NewMemoryStore()}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.Submit(ctx, event("retry-me", "kid"))
		So(err, ShouldBeNil)

		Convey("When the worker fails to ingest", func() {
			err := svc.IngestEvent(ctx, event("retry-me", "kid"))

			Convey("Then the error is reported and the id is released", func() {
				So(err, ShouldNotBeNil)
				dup, err := svc.Submit(ctx, event("retry-me", "kid"))
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			})
		})
	})
}

func TestService_Helpers(t *testing.T) {
	Convey("Given a default service", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("When reading the skill catalog", func() {
			skills := svc.SkillCatalog()
			So(len(skills), ShouldEqual, 14)
			So(skills[0].Weight, ShouldBeGreaterThan, 0)
		})

		Convey("When evaluating reasoning", func() {
			a, err := svc.EvaluateReasoning(ctx, reasoning.Request{
				Reasoning: "The butler lied because the clock shows he was in the garden.",
				Correct:   true,
			})
			So(err, ShouldBeNil)
			So(a.Source, ShouldEqual, reasoning.SourceRules)
			So(a.Score, ShouldBeBetweenOrEqual, 0, 100)
		})

		Convey("When asking the tutor", func() {
			r, err := svc.Tutor(ctx, tutor.Request{Problem: "Which box has the key?"})
			So(err, ShouldBeNil)
			So(r.Source, ShouldEqual, tutor.SourceFallback)
			So(r.Message, ShouldNotBeEmpty)
		})

		Convey("When refreshing metrics", func() {
			So(func() { svc.UpdateMetrics(ctx) }, ShouldNotPanic)
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a started service with stored profiles", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(3))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		for i := 0; i < 3; i++ {
			_, err := svc.Ingest(ctx, fmt.Sprintf("kid-%d", i), input("Logical Reasoning"))
			So(err, ShouldBeNil)
		}

		Convey("When getting stats", func() {
			stats := svc.GetStats()

			Convey("Then runtime figures are included", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 3)
				So(stats["totalProfiles"], ShouldEqual, 3)
				So(stats["queueLength"], ShouldEqual, 0)
			})
		})
	})
}
