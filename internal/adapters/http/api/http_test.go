package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/artemis/internal/adapters/http/api"
	repository "github.com/okian/artemis/internal/adapters/repository"
	service "github.com/okian/artemis/internal/app"
	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records submissions and serves canned profiles.
type mockDependencies struct {
	mu          sync.Mutex
	submitted   []model.SessionEvent
	seen        map[string]bool
	submitErr   error
	profiles    map[string]*model.Profile
	deleteErr   error
	assessment  reasoning.Assessment
	lastTutorRq tutor.Request
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		seen:     map[string]bool{},
		profiles: map[string]*model.Profile{},
	}
}

func (m *mockDependencies) Submit(_ context.Context, e model.SessionEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return false, m.submitErr
	}
	if m.seen[e.SubmissionID] {
		return true, nil
	}
	m.seen[e.SubmissionID] = true
	m.submitted = append(m.submitted, e)
	return false, nil
}

func (m *mockDependencies) Profile(_ context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, service.ErrInvalidUserID
	}
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return iq.CreateDefaultProfile(), nil
}

func (m *mockDependencies) Classification(ctx context.Context, userID string) (model.Classification, error) {
	p, err := m.Profile(ctx, userID)
	if err != nil {
		return model.Classification{}, err
	}
	return iq.ClassifyIQ(p.OverallIQ), nil
}

func (m *mockDependencies) DeleteProfile(_ context.Context, userID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.profiles[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.profiles, userID)
	return nil
}

func (m *mockDependencies) SkillCatalog() []catalog.SkillCategory {
	return catalog.Default().Skills()
}

func (m *mockDependencies) EvaluateReasoning(context.Context, reasoning.Request) (reasoning.Assessment, error) {
	return m.assessment, nil
}

func (m *mockDependencies) Tutor(_ context.Context, req tutor.Request) (tutor.Reply, error) {
	m.lastTutorRq = req
	if strings.TrimSpace(req.Problem) == "" {
		return tutor.Reply{}, tutor.ErrEmptyProblem
	}
	return tutor.Reply{Message: "What do you notice first?", Source: tutor.SourceFallback}, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

const sessionBody = `{"submission_id":"sub-1","user_id":"kid-1","game_type":"story","game_id":"tale-2",
"time_spent":120,"scores":{"accuracy":80,"reasoning":70,"speed":90,"consistency":75},
"skills":["Perspective Taking"],"raw_data":{"pages":4}}`

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Sessions(t *testing.T) {
	Convey("Given an API server over mock dependencies", t, func() {
		deps := newMockDependencies()
		now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
		server := api.NewServer(deps, &mockStatsProvider{}, api.WithClock(func() time.Time { return now }))
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When posting a new session", func() {
			w := serve(mux, http.MethodPost, "/sessions", sessionBody)

			Convey("Then it is accepted for asynchronous ingestion", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "accepted")
				So(deps.submitted, ShouldHaveLength, 1)
				ev := deps.submitted[0]
				So(ev.UserID, ShouldEqual, "kid-1")
				So(ev.ReceivedAt, ShouldEqual, now)
				So(ev.Input.GameType, ShouldEqual, model.GameStory)
				So(ev.Input.Scores.Consistency, ShouldEqual, 75)
				So(ev.Input.RawData["pages"], ShouldEqual, 4.0)
			})

			Convey("Then posting it again is acknowledged as a duplicate", func() {
				w := serve(mux, http.MethodPost, "/sessions", sessionBody)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
				So(deps.submitted, ShouldHaveLength, 1)
			})
		})

		Convey("When the body is not json", func() {
			w := serve(mux, http.MethodPost, "/sessions", `{nope`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the game type is unknown", func() {
			body := strings.Replace(sessionBody, `"story"`, `"chess"`, 1)
			w := serve(mux, http.MethodPost, "/sessions", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrBackpressure
			w := serve(mux, http.MethodPost, "/sessions", sessionBody)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the service is shutting down", func() {
			deps.submitErr = service.ErrNotStarted
			w := serve(mux, http.MethodPost, "/sessions", sessionBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the method is not allowed", func() {
			w := serve(mux, http.MethodGet, "/sessions", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Limits(t *testing.T) {
	Convey("Given a server with tight limits", t, func() {
		deps := newMockDependencies()
		server := api.NewServer(deps, nil, api.WithMaxBodyBytes(64), api.WithRateLimit(1, 2))
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When the body exceeds the limit", func() {
			w := serve(mux, http.MethodPost, "/sessions", sessionBody)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("When requests exceed the burst", func() {
			codes := make([]int, 0, 3)
			for i := 0; i < 3; i++ {
				codes = append(codes, serve(mux, http.MethodPost, "/tutor", `{"problem":"2+2"}`).Code)
			}
			So(codes[:2], ShouldResemble, []int{http.StatusOK, http.StatusOK})
			So(codes[2], ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("When reading, the rate limit does not apply", func() {
			for i := 0; i < 5; i++ {
				So(serve(mux, http.MethodGet, "/skills", "").Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestServer_Profiles(t *testing.T) {
	Convey("Given a server with one stored profile", t, func() {
		deps := newMockDependencies()
		p := iq.CreateDefaultProfile()
		p.OverallIQ = 142
		p.TotalGamesPlayed = 12
		deps.profiles["kid-1"] = p

		server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}})
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When fetching the profile", func() {
			w := serve(mux, http.MethodGet, "/profiles/kid-1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["overallIQ"], ShouldEqual, 142.0)
			So(body["totalGamesPlayed"], ShouldEqual, 12.0)
		})

		Convey("When fetching an unknown user", func() {
			w := serve(mux, http.MethodGet, "/profiles/new-kid", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["overallIQ"], ShouldEqual, 100.0)
		})

		Convey("When fetching the classification", func() {
			w := serve(mux, http.MethodGet, "/profiles/kid-1/classification", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["iq"], ShouldEqual, 142.0)
			So(body["label"], ShouldEqual, "Exceptional Thinker")
		})

		Convey("When deleting the profile", func() {
			So(serve(mux, http.MethodDelete, "/profiles/kid-1", "").Code, ShouldEqual, http.StatusNoContent)
			So(serve(mux, http.MethodDelete, "/profiles/kid-1", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the store fails", func() {
			deps.deleteErr = context.DeadlineExceeded
			w := serve(mux, http.MethodDelete, "/profiles/kid-1", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["message"], ShouldEqual, "Internal Server Error")
		})

		Convey("When listing skills", func() {
			w := serve(mux, http.MethodGet, "/skills", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			skills, ok := decode(w)["skills"].([]any)
			So(ok, ShouldBeTrue)
			So(skills, ShouldHaveLength, 14)
		})

		Convey("When reading stats and health", func() {
			So(decode(serve(mux, http.MethodGet, "/stats", ""))["started"], ShouldEqual, true)

			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "artemis_profile_")
		})

		Convey("When opening the dashboard", func() {
			w := serve(mux, http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Artemis Thinking Profile")
		})
	})
}

func TestServer_Coaching(t *testing.T) {
	Convey("Given a server with a canned assessment", t, func() {
		deps := newMockDependencies()
		deps.assessment = reasoning.Assessment{Score: 64, Feedback: "Nice use of evidence.", Source: reasoning.SourceRules}
		server := api.NewServer(deps, nil)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When evaluating reasoning", func() {
			w := serve(mux, http.MethodPost, "/reasoning/evaluate",
				`{"reasoning":"The footprints point to the garden.","context":"Who took the pie?","correct":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["score"], ShouldEqual, 64.0)
			So(body["source"], ShouldEqual, reasoning.SourceRules)
		})

		Convey("When the reasoning is blank", func() {
			w := serve(mux, http.MethodPost, "/reasoning/evaluate", `{"reasoning":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When asking the tutor", func() {
			w := serve(mux, http.MethodPost, "/tutor",
				`{"problem":"Share 12 apples among 3 friends","transcript":[{"role":"student","content":"4?"}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["source"], ShouldEqual, tutor.SourceFallback)
			So(deps.lastTutorRq.Transcript, ShouldHaveLength, 1)
		})

		Convey("When the tutor rejects the request", func() {
			w := serve(mux, http.MethodPost, "/tutor", `{"problem":""}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given the API wrapped for browser games", t, func() {
		mux := http.NewServeMux()
		api.NewServer(newMockDependencies(), nil).Register(context.Background(), mux)
		handler := api.CORS([]string{"https://play.example.org"})(mux)

		Convey("When a preflight request arrives from an allowed origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/sessions", http.NoBody)
			req.Header.Set("Origin", "https://play.example.org")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://play.example.org")
		})

		Convey("When a request arrives from another origin", func() {
			req := httptest.NewRequest(http.MethodGet, "/skills", http.NoBody)
			req.Header.Set("Origin", "https://evil.example.com")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
		})
	})
}

func TestServer_EndToEnd(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)

		Convey("When a session is posted and the service drains", func() {
			So(serve(mux, http.MethodPost, "/sessions", sessionBody).Code, ShouldEqual, http.StatusAccepted)
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then the profile reflects the session", func() {
				w := serve(mux, http.MethodGet, "/profiles/kid-1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["totalGamesPlayed"], ShouldEqual, 1.0)
				So(body["totalTimePracticed"], ShouldEqual, 2.0)
			})
		})
	})
}
