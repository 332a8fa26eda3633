package seed

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/skillmatch/internal/domain/model"
	"github.com/okian/skillmatch/pkg/logger"
)

// Generation ranges.
const (
	maxTeachingSkills = 2
	maxLearningSkills = 2
	maxAgendaItems    = 3
	sessionChance     = 0.5
	maxProficiency    = 100
)

type topic struct {
	name     string
	category string
	agenda   []string
}

var catalog = []topic{
	{"Guitar", "Music", []string{"chords", "strumming", "fingerpicking", "scales", "music theory"}},
	{"Piano", "Music", []string{"scales", "sight reading", "chords", "music theory", "classical"}},
	{"Python", "Programming", []string{"pandas", "django", "data analysis", "scripting", "testing"}},
	{"Go", "Programming", []string{"concurrency", "goroutines", "testing", "web services", "grpc"}},
	{"Spanish", "Languages", []string{"conversation", "grammar", "vocabulary", "pronunciation"}},
	{"French", "Languages", []string{"conversation", "grammar", "vocabulary", "reading"}},
	{"Photography", "Art", []string{"composition", "lighting", "editing", "portraits"}},
	{"Drawing", "Art", []string{"sketching", "shading", "perspective", "portraits", "composition"}},
	{"Cooking", "Lifestyle", []string{"knife skills", "baking", "sauces", "meal prep"}},
	{"Yoga", "Fitness", []string{"breathing", "flexibility", "meditation", "balance"}},
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GenerateUsers creates n users with random teaching and learning skills and
// an occasional hosted session.
func GenerateUsers(ctx context.Context, n int, seed uint64) []User {
	rng := newRand(seed)
	users := make([]User, n)
	for i := range users {
		users[i] = generateUser(rng, uuid.NewString())
	}
	logger.Get().Info(ctx, "generated users", logger.Int("count", n))
	return users
}

func generateUser(rng *rand.Rand, id string) User {
	u := User{ID: id}
	picks := rng.Perm(len(catalog))

	teaching := 1 + rng.IntN(maxTeachingSkills)
	learning := 1 + rng.IntN(maxLearningSkills)
	for i, idx := range picks[:teaching+learning] {
		role := model.RoleTeaching
		if i >= teaching {
			role = model.RoleLearning
		}
		u.Skills = append(u.Skills, generateSkill(rng, catalog[idx], role))
	}

	if rng.Float64() < sessionChance {
		u.Sessions = append(u.Sessions, generateSession(rng, catalog[picks[0]]))
	}
	return u
}

func generateSkill(rng *rand.Rand, t topic, role model.Role) model.Skill {
	return model.Skill{
		Name:        t.name,
		Category:    t.category,
		Proficiency: rng.IntN(maxProficiency + 1),
		Role:        role,
		Agenda:      sample(rng, t.agenda),
	}
}

func generateSession(rng *rand.Rand, t topic) model.Session {
	day := 1 + rng.IntN(28)
	return model.Session{
		Title:          t.name + " workshop",
		Date:           time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
		StartTime:      "18:00",
		EndTime:        "19:30",
		SkillCategory:  t.category,
		IsTeaching:     true,
		IsPublic:       true,
		TeachSkillName: t.name,
		FocusKeywords:  sample(rng, t.agenda),
	}
}

// sample returns between one and maxAgendaItems distinct items of from.
func sample(rng *rand.Rand, from []string) []string {
	n := 1 + rng.IntN(min(maxAgendaItems, len(from)))
	out := make([]string, 0, n)
	for _, idx := range rng.Perm(len(from))[:n] {
		out = append(out, from[idx])
	}
	return out
}

// requests flattens users into the create calls to submit.
func requests(users []User) []request {
	var out []request
	for _, u := range users {
		for _, sk := range u.Skills {
			out = append(out, request{user: u.ID, path: "/skills", body: sk})
		}
		for _, ss := range u.Sessions {
			out = append(out, request{user: u.ID, path: "/sessions", body: ss})
		}
	}
	return out
}
