package recommend_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/skillmatch/internal/adapters/expansion"
	"github.com/okian/skillmatch/internal/adapters/repository"
	"github.com/okian/skillmatch/internal/domain/matching"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/internal/domain/recommend"
	"github.com/okian/skillmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// echoSearcher returns its input, lower-cased, plus any configured synonyms.
// Keyword sets containing a term listed in fail produce ErrUnavailable.
type echoSearcher struct {
	mu       sync.Mutex
	synonyms map[string][]string
	fail     map[string]bool
	calls    int
}

func (s *echoSearcher) Search(_ context.Context, keywords []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []string
	for _, k := range keywords {
		k = strings.ToLower(k)
		if s.fail[k] {
			return nil, expansion.ErrUnavailable
		}
		out = append(out, k)
		out = append(out, s.synonyms[k]...)
	}
	return out, nil
}

type world struct {
	store  *repository.MemoryStore
	search *echoSearcher
	agg    *recommend.Aggregator
}

func stepClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newWorld(t *testing.T, opts ...recommend.Option) *world {
	store := repository.NewMemoryStore(context.Background(), repository.WithClock(stepClock()))
	t.Cleanup(func() { _ = store.Close() })
	search := &echoSearcher{synonyms: map[string][]string{}, fail: map[string]bool{}}
	opts = append([]recommend.Option{recommend.WithLogger(logger.Nop())}, opts...)
	return &world{
		store:  store,
		search: search,
		agg:    recommend.New(store, search, matching.New(store), opts...),
	}
}

// skill creates a skill whose tags equal its agenda, as enrichment would.
func (w *world) skill(owner string, role model.Role, name string, agenda ...string) *model.Skill {
	ctx := context.Background()
	sk, err := w.store.CreateSkill(ctx, &model.Skill{OwnerID: owner, Name: name, Category: "music", Role: role, Agenda: agenda})
	So(err, ShouldBeNil)
	So(w.store.UpdateTags(ctx, model.KindSkill, sk.ID, agenda), ShouldBeNil)
	return sk
}

func (w *world) session(host, title string, tags ...string) *model.Session {
	ctx := context.Background()
	ss, err := w.store.CreateSession(ctx, &model.Session{
		HostID: host, Title: title, Date: "2024-06-01", StartTime: "18:00", EndTime: "19:00",
		SkillCategory: "music", FocusKeywords: tags,
	})
	So(err, ShouldBeNil)
	So(w.store.UpdateTags(ctx, model.KindSession, ss.ID, tags), ShouldBeNil)
	return ss
}

func ids(rows []model.CandidateMatch) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CandidateID)
	}
	return out
}

func TestRecommendPeople(t *testing.T) {
	Convey("Given Alice wants to learn guitar", t, func() {
		w := newWorld(t)
		ctx := context.Background()
		w.skill("alice", model.RoleLearning, "Guitar", "guitar", "chords")

		Convey("When Bob teaches guitar", func() {
			bobGuitar := w.skill("bob", model.RoleTeaching, "Guitar", "guitar")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then Bob is a learning_match for Alice", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].CandidateID, ShouldEqual, "bob")
				So(rows[0].MatchingType, ShouldEqual, model.LearningMatch)
				So(rows[0].MatchedSkills[0].EntityID, ShouldEqual, bobGuitar.ID)
				So(rows[0].MatchedSkills[0].SharedTags, ShouldResemble, []string{"guitar"})
			})
		})

		Convey("When Carol only teaches piano", func() {
			w.skill("carol", model.RoleTeaching, "Piano", "piano")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then Carol is not suggested", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldNotBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When Bob teaches guitar and wants to learn what Alice teaches", func() {
			w.skill("alice", model.RoleTeaching, "Singing", "singing")
			bobGuitar := w.skill("bob", model.RoleTeaching, "Guitar", "guitar")
			bobSinging := w.skill("bob", model.RoleLearning, "Singing", "singing")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then Bob is a mutual_match with both skills", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].MatchingType, ShouldEqual, model.MutualMatch)
				So(len(rows[0].MatchedSkills), ShouldEqual, 2)
				So(rows[0].MatchedSkills[0].EntityID, ShouldEqual, bobGuitar.ID)
				So(rows[0].MatchedSkills[1].EntityID, ShouldEqual, bobSinging.ID)
			})
		})

		Convey("When only the teaching side matches", func() {
			w.skill("alice", model.RoleTeaching, "Singing", "singing")
			w.skill("dan", model.RoleLearning, "Singing", "singing")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then the candidate is a teaching_match", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"dan"})
				So(rows[0].MatchingType, ShouldEqual, model.TeachingMatch)
			})
		})

		Convey("When Alice also teaches guitar herself", func() {
			w.skill("alice", model.RoleTeaching, "Guitar", "guitar")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then she is never recommended to herself", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldNotContain, "alice")
			})
		})

		Convey("When expansion adds synonyms", func() {
			w.search.synonyms["guitar"] = []string{"acoustic"}
			w.skill("erin", model.RoleTeaching, "Acoustic", "acoustic")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then matching uses the expanded keywords", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"erin"})
			})
		})

		Convey("When expansion fails for the learning pass only", func() {
			w.search.fail["chords"] = true
			w.skill("bob", model.RoleTeaching, "Guitar", "guitar")
			w.skill("alice", model.RoleTeaching, "Singing", "singing")
			w.skill("dan", model.RoleLearning, "Singing", "singing")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then that pass is skipped and the other still contributes", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"dan"})
				So(rows[0].MatchingType, ShouldEqual, model.TeachingMatch)
			})
		})

		Convey("When several owners match", func() {
			w.skill("zed", model.RoleTeaching, "Guitar", "guitar")
			w.skill("bob", model.RoleTeaching, "Guitar", "chords")
			w.skill("zed", model.RoleTeaching, "Chords", "chords")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetPeople)

			Convey("Then each owner appears once, in first-seen order", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"zed", "bob"})
				So(len(rows[0].MatchedSkills), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a user without skills", t, func() {
		w := newWorld(t)
		w.skill("bob", model.RoleTeaching, "Guitar", "guitar")

		rows, err := w.agg.Recommend(context.Background(), "nobody", recommend.TargetPeople)

		Convey("Then the result is empty and expansion is never called", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
			So(w.search.calls, ShouldEqual, 0)
		})
	})
}

func TestRecommendSessions(t *testing.T) {
	Convey("Given Alice wants to learn guitar chords", t, func() {
		w := newWorld(t)
		ctx := context.Background()
		w.skill("alice", model.RoleLearning, "Guitar", "guitar", "chords")

		Convey("When sessions share two, one and two tags", func() {
			jam := w.session("bob", "Chord Jam", "guitar", "chords", "rhythm")
			w.session("carol", "Guitar Basics", "guitar")
			w.session("alice", "My own jam", "guitar", "chords")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetSessions)

			Convey("Then only other hosts' sessions with two shared tags qualify", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"bob"})
				So(rows[0].MatchedSkills[0].EntityID, ShouldEqual, jam.ID)
				So(rows[0].MatchedSkills[0].Kind, ShouldEqual, model.KindSession)
			})
		})

		Convey("When the same session matches both passes", func() {
			w.skill("alice", model.RoleTeaching, "Guitar", "guitar", "chords")
			w.session("bob", "Chord Jam", "guitar", "chords")

			rows, err := w.agg.Recommend(ctx, "alice", recommend.TargetSessions)

			Convey("Then it is a mutual match listing the session once", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].MatchingType, ShouldEqual, model.MutualMatch)
				So(len(rows[0].MatchedSkills), ShouldEqual, 1)
			})
		})

		Convey("When the session threshold is lowered to 1", func() {
			w2 := newWorld(t, recommend.WithSessionMinOverlap(1))
			w2.skill("alice", model.RoleLearning, "Guitar", "guitar")
			w2.session("carol", "Guitar Basics", "guitar")

			rows, err := w2.agg.Recommend(ctx, "alice", recommend.TargetSessions)

			Convey("Then single-tag sessions qualify", func() {
				So(err, ShouldBeNil)
				So(ids(rows), ShouldResemble, []string{"carol"})
			})
		})
	})
}

func TestRecommendErrors(t *testing.T) {
	Convey("Given an aggregator", t, func() {
		Convey("When the target is unknown", func() {
			w := newWorld(t)
			_, err := w.agg.Recommend(context.Background(), "alice", recommend.Target("pets"))

			Convey("Then ErrUnknownTarget is returned", func() {
				So(errors.Is(err, recommend.ErrUnknownTarget), ShouldBeTrue)
			})
		})

		Convey("When the store fails", func() {
			agg := recommend.New(failingLister{}, &echoSearcher{}, matching.New(repository.NewMemoryStore(context.Background())),
				recommend.WithLogger(logger.Nop()))
			_, err := agg.Recommend(context.Background(), "alice", recommend.TargetPeople)

			Convey("Then the error is surfaced", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, errStore), ShouldBeTrue)
			})
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given candidates from both passes", t, func() {
		c := func(owner, id string) model.Candidate {
			return model.Candidate{OwnerID: owner, Skill: model.MatchedSkill{EntityID: id, Kind: model.KindSkill}}
		}
		learning := []model.Candidate{c("b", "b1"), c("a", "a1"), c("b", "b2")}
		teaching := []model.Candidate{c("c", "c1"), c("a", "a2"), c("c", "c2")}

		rows := recommend.Merge(learning, teaching)

		Convey("Then rows keep first-seen order and classify each owner", func() {
			So(ids(rows), ShouldResemble, []string{"b", "a", "c"})
			So(rows[0].MatchingType, ShouldEqual, model.LearningMatch)
			So(len(rows[0].MatchedSkills), ShouldEqual, 2)
			So(rows[1].MatchingType, ShouldEqual, model.MutualMatch)
			So(len(rows[1].MatchedSkills), ShouldEqual, 2)
			So(rows[2].MatchingType, ShouldEqual, model.TeachingMatch)
			So(len(rows[2].MatchedSkills), ShouldEqual, 2)
		})
	})

	Convey("Given no candidates", t, func() {
		rows := recommend.Merge(nil, nil)
		So(rows, ShouldNotBeNil)
		So(rows, ShouldBeEmpty)
	})
}

var errStore = errors.New("store down")

type failingLister struct{}

func (failingLister) ListSkillsByOwner(context.Context, string, model.Role) ([]*model.Skill, error) {
	return nil, errStore
}
