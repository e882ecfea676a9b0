package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/artemis/internal/app"
	"github.com/okian/artemis/internal/config"
	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/internal/domain/tutor"
	"github.com/okian/artemis/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := config.New()
		cfg.WorkerCount = 2
		ctx := context.Background()

		convey.Convey("When the service is built with the memory store", func() {
			svc, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it ingests sessions with the default catalog", func() {
				p, err := svc.Ingest(ctx, "u1", model.SessionInput{
					GameType: model.GameDetective,
					Scores:   model.Scores{Accuracy: 80, Reasoning: 70, Speed: 90, Consistency: 75},
					Skills:   []string{"Deductive Reasoning"},
				})
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.TotalGamesPlayed, convey.ShouldEqual, 1)
				convey.So(len(svc.SkillCatalog()), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Mars/Olympus_Mons"
			_, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the skill catalog file is missing", func() {
			cfg.SkillCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
			_, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "cassandra"
			_, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the language model is enabled", func() {
			cfg.LLMEnabled = true
			cfg.LLMEndpoint = "http://127.0.0.1:1/v1"
			cfg.LLMTimeoutMS = 200
			svc, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then an unreachable model falls back to the scripted tutor", func() {
				reply, err := svc.Tutor(ctx, tutor.Request{Problem: "Which suspect lied?"})
				convey.So(err, convey.ShouldBeNil)
				convey.So(reply.Message, convey.ShouldNotBeEmpty)
				convey.So(reply.Source, convey.ShouldEqual, tutor.SourceFallback)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		cfg := config.New()
		ctx := context.Background()
		svc, err := buildService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		h := newHandler(ctx, cfg, svc, logger.Get())

		convey.Convey("Then API and documentation routes are served", func() {
			for _, path := range []string{"/skills", "/api-docs", "/openapi.yaml", "/profiles/nobody"} {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then cross-origin requests are allowed", func() {
			req := httptest.NewRequest(http.MethodGet, "/skills", nil)
			req.Header.Set("Origin", "http://parents.example")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			convey.So(rec.Header().Get("Access-Control-Allow-Origin"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then submissions are rejected until the service starts", func() {
			body := `{"submission_id":"s1","user_id":"u1","game_type":"detective","scores":{"accuracy":50}}`
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body)))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestShutdown(t *testing.T) {
	convey.Convey("Given a started service and an idle server", t, func() {
		svc := app.New(app.WithWorkerCount(1))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		srv := &http.Server{ReadHeaderTimeout: time.Second}

		convey.Convey("When shutdown runs without a kafka consumer", func() {
			err := shutdown(time.Second, srv, nil, svc)

			convey.Convey("Then everything stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, false)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		svc := app.New()

		convey.Convey("Then they return when the context ends", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
