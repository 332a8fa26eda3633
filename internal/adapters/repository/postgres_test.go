package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/skillmatch/internal/domain/model"
)

func skipIfNoTestDB(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}
	return dsn
}

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := skipIfNoTestDB(t)

	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn, WithClock(stepClock()))
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	cleanup := func() {
		_, _ = store.pool.Exec(ctx, "DELETE FROM sessions")
		_, _ = store.pool.Exec(ctx, "DELETE FROM skills")
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		_ = store.Close()
	})
	return store
}

func TestPostgresStore_SkillRoundTrip(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	sk := mustSkill(t, store, "u1", model.RoleTeaching, "Guitar")
	if err := store.UpdateTags(ctx, model.KindSkill, sk.ID, []string{"guitar", "music"}); err != nil {
		t.Fatal(err)
	}

	upd, err := store.UpdateSkill(ctx, &model.Skill{ID: sk.ID, Name: "Bass", Category: "music", Role: model.RoleTeaching})
	if err != nil {
		t.Fatal(err)
	}
	if upd.OwnerID != "u1" || len(upd.Tags) != 2 {
		t.Errorf("update touched protected columns: %+v", upd)
	}

	if err := store.DeleteSkill(ctx, sk.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSkill(ctx, sk.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_FindByTags(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	mine := mustSkill(t, store, "me", model.RoleTeaching, "Guitar")
	other := mustSkill(t, store, "u1", model.RoleTeaching, "Guitar")
	learner := mustSkill(t, store, "u2", model.RoleLearning, "Guitar")
	for _, sk := range []*model.Skill{mine, other, learner} {
		if err := store.UpdateTags(ctx, model.KindSkill, sk.ID, []string{"guitar"}); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := store.FindByTags(ctx, TagQuery{
		Kind: model.KindSkill, Role: model.RoleTeaching, ExcludeOwner: "me", AnyOf: []string{"guitar", "piano"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].EntityID() != other.ID {
		t.Fatalf("expected u1's skill only, got %d hits", len(hits))
	}

	ss, err := store.CreateSession(ctx, &model.Session{
		HostID: "u3", Title: "Jam", Date: "2024-06-01", StartTime: "10:00", EndTime: "11:00", SkillCategory: "music",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateTags(ctx, model.KindSession, ss.ID, []string{"guitar", "chords"}); err != nil {
		t.Fatal(err)
	}
	sessions, err := store.FindByTags(ctx, TagQuery{Kind: model.KindSession, ExcludeOwner: "me", AnyOf: []string{"chords"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Owner() != "u3" {
		t.Errorf("expected u3's session, got %d", len(sessions))
	}

	if n, _ := store.Count(ctx, model.KindSkill); n != 3 {
		t.Errorf("expected 3 skills, got %d", n)
	}
}

func TestPostgresStore_FindSessions(t *testing.T) {
	checkFindSessions(t, setupPostgres(t))
}
