package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/skillmatch/internal/adapters/http/api"
	"github.com/okian/skillmatch/internal/adapters/repository"
	service "github.com/okian/skillmatch/internal/app"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/internal/domain/tags"
	"github.com/okian/skillmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// echoExpander tags entities with their own topics.
type echoExpander struct{}

func (echoExpander) Query(_ context.Context, topic string, subTopics []string) ([]string, error) {
	return tags.Flatten(append([]string{topic}, subTopics...)), nil
}

func (echoExpander) Search(_ context.Context, keywords []string) ([]string, error) {
	return tags.Flatten(keywords), nil
}

func TestGenerateUsers(t *testing.T) {
	Convey("Given a fixed seed", t, func() {
		ctx := context.Background()
		users := GenerateUsers(ctx, 20, 42)

		Convey("Then every user gets valid teaching and learning skills", func() {
			So(users, ShouldHaveLength, 20)
			for _, u := range users {
				So(u.ID, ShouldNotBeEmpty)
				var teaching, learning int
				for _, sk := range u.Skills {
					sk.OwnerID = u.ID
					So(sk.Validate(), ShouldBeNil)
					So(sk.Agenda, ShouldNotBeEmpty)
					if sk.Role == model.RoleTeaching {
						teaching++
					} else {
						learning++
					}
				}
				So(teaching, ShouldBeGreaterThan, 0)
				So(learning, ShouldBeGreaterThan, 0)
				for _, ss := range u.Sessions {
					ss.HostID = u.ID
					So(ss.Validate(), ShouldBeNil)
				}
			}
		})

		Convey("And the same seed yields the same skills", func() {
			again := GenerateUsers(ctx, 20, 42)
			for i := range users {
				So(again[i].Skills, ShouldResemble, users[i].Skills)
			}
		})

		Convey("And requests cover every skill and session", func() {
			want := 0
			for _, u := range users {
				want += len(u.Skills) + len(u.Sessions)
			}
			So(requests(users), ShouldHaveLength, want)
		})
	})
}

func TestCheckMatches(t *testing.T) {
	Convey("Given suggestion rows", t, func() {
		rows := []model.CandidateMatch{
			{CandidateID: "bob"},
			{CandidateID: "alice"},
			{CandidateID: "bob"},
		}

		Convey("Then self matches and duplicates are counted", func() {
			self, dups := checkMatches("alice", rows)
			So(self, ShouldEqual, 1)
			So(dups, ShouldEqual, 1)
		})

		Convey("And clean rows count nothing", func() {
			self, dups := checkMatches("carol", rows[:2])
			So(self, ShouldEqual, 0)
			So(dups, ShouldEqual, 0)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(
			service.WithExpander(echoExpander{}),
			service.WithStore(repository.NewMemoryStore(ctx)),
			service.WithLogger(logger.Nop()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When seeding twenty users", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:     srv.URL,
				NumUsers:    20,
				Workers:     4,
				Timeout:     5 * time.Second,
				WaitTimeout: 10 * time.Second,
				Seed:        7,
			})

			Convey("Then every request succeeds and suggestions verify", func() {
				So(err, ShouldBeNil)
				So(stats.RequestsFailed, ShouldEqual, 0)
				So(stats.RequestsSuccessful, ShouldEqual, stats.RequestsSubmitted)
				So(stats.SuggestionsRetrieved, ShouldEqual, 40)
				So(stats.SelfMatches, ShouldEqual, 0)
				So(stats.DuplicateCandidates, ShouldEqual, 0)
				So(stats.UsersWithMatches, ShouldBeGreaterThan, 0)
			})
		})
	})
}
