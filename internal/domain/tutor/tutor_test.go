package tutor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/artemis/internal/adapters/llm"
	"github.com/okian/artemis/internal/domain/tutor"
	. "github.com/smartystreets/goconvey/convey"
)

type stubClient struct {
	text string
	err  error
	last llm.Request
}

func (c *stubClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.text}, nil
}

func TestTutorNext(t *testing.T) {
	Convey("Given a tutor", t, func() {
		ctx := context.Background()
		problem := "A train travels 120 km in 2 hours. How fast is it going?"

		Convey("When the problem is empty", func() {
			_, err := tutor.New(nil, nil).Next(ctx, tutor.Request{Problem: "  "})
			So(errors.Is(err, tutor.ErrEmptyProblem), ShouldBeTrue)
		})

		Convey("When a turn has an unknown role", func() {
			_, err := tutor.New(nil, nil).Next(ctx, tutor.Request{
				Problem:    problem,
				Transcript: []tutor.Turn{{Role: "parent", Content: "hi"}},
			})
			So(errors.Is(err, tutor.ErrUnknownRole), ShouldBeTrue)
		})

		Convey("When a model is configured", func() {
			c := &stubClient{text: "  What does 'how fast' mean in numbers?  "}
			reply, err := tutor.New(c, nil).Next(ctx, tutor.Request{
				Problem: problem,
				Transcript: []tutor.Turn{
					{Role: tutor.RoleStudent, Content: "I don't get it"},
					{Role: tutor.RoleTutor, Content: "What are we measuring?"},
				},
			})

			Convey("Then the model reply is used and roles are mapped", func() {
				So(err, ShouldBeNil)
				So(reply.Source, ShouldEqual, tutor.SourceLLM)
				So(reply.Message, ShouldEqual, "What does 'how fast' mean in numbers?")
				So(c.last.Messages, ShouldHaveLength, 4)
				So(c.last.Messages[0].Role, ShouldEqual, llm.RoleSystem)
				So(c.last.Messages[1].Content, ShouldContainSubstring, problem)
				So(c.last.Messages[2].Role, ShouldEqual, llm.RoleUser)
				So(c.last.Messages[3].Role, ShouldEqual, llm.RoleAssistant)
			})
		})

		Convey("When the transcript is long", func() {
			c := &stubClient{text: "ok?"}
			var turns []tutor.Turn
			for i := 0; i < 30; i++ {
				turns = append(turns, tutor.Turn{Role: tutor.RoleStudent, Content: fmt.Sprint(i)})
			}
			_, err := tutor.New(c, nil).Next(ctx, tutor.Request{Problem: problem, Transcript: turns})

			Convey("Then only the most recent turns are sent", func() {
				So(err, ShouldBeNil)
				So(c.last.Messages, ShouldHaveLength, 22)
				So(c.last.Messages[2].Content, ShouldEqual, "10")
			})
		})

		Convey("When the model fails", func() {
			c := &stubClient{err: llm.ErrUnavailable}
			first, err := tutor.New(c, nil).Next(ctx, tutor.Request{Problem: problem})
			second, _ := tutor.New(c, nil).Next(ctx, tutor.Request{
				Problem:    problem,
				Transcript: []tutor.Turn{{Role: tutor.RoleStudent, Content: "60?"}},
			})

			Convey("Then scripted prompts advance with the student's turns", func() {
				So(err, ShouldBeNil)
				So(first.Source, ShouldEqual, tutor.SourceFallback)
				So(first.Message, ShouldNotBeEmpty)
				So(second.Message, ShouldNotEqual, first.Message)
			})
		})

		Convey("When no model is configured", func() {
			a, _ := tutor.New(nil, nil).Next(ctx, tutor.Request{Problem: problem})
			b, _ := tutor.New(nil, nil).Next(ctx, tutor.Request{Problem: problem})

			Convey("Then the scripted reply is deterministic", func() {
				So(a, ShouldResemble, b)
				So(a.Source, ShouldEqual, tutor.SourceFallback)
			})
		})
	})
}
