package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spycats/internal/breeds"
	"spycats/internal/db"
	"spycats/internal/engine"
	"spycats/internal/migrate"
	"spycats/internal/repo"
)

type stubCatalog struct {
	names []string
	err   error
}

func (s stubCatalog) ListBreedNames(ctx context.Context) ([]string, error) {
	return s.names, s.err
}

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.Engine{
		DB:   conn,
		Repo: repo.Repo{DB: conn},
		Breeds: breeds.Validator{
			Catalog: stubCatalog{names: []string{"Persian", "Siamese", "Bengal"}},
		},
		Now: func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func createCat(t *testing.T, env testEnv) string {
	t.Helper()
	c, err := env.Engine.CreateCat(env.Ctx, engine.CatCreateOptions{
		Name:              "Tom",
		YearsOfExperience: 3,
		Breed:             "persian",
		Salary:            1000,
	})
	if err != nil {
		t.Fatalf("create cat: %v", err)
	}
	return c.ID
}

func createMission(t *testing.T, env testEnv, catID string, targetCount int) string {
	t.Helper()
	opts := engine.MissionCreateOptions{CatID: catID}
	for i := 0; i < targetCount; i++ {
		opts.Targets = append(opts.Targets, engine.TargetInput{Name: "t", Country: "US"})
	}
	m, err := env.Engine.CreateMission(env.Ctx, opts)
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m.ID
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestCreateCatBreedValidation(t *testing.T) {
	env := newTestEnv(t)
	// case-insensitive match against the catalog
	c, err := env.Engine.CreateCat(env.Ctx, engine.CatCreateOptions{
		Name: "Tom", YearsOfExperience: 3, Breed: "persian", Salary: 1000,
	})
	if err != nil {
		t.Fatalf("create cat: %v", err)
	}
	if c.ID == "" || c.Breed != "persian" {
		t.Fatalf("unexpected cat %+v", c)
	}

	_, err = env.Engine.CreateCat(env.Ctx, engine.CatCreateOptions{
		Name: "Jerry", YearsOfExperience: 1, Breed: "housecat", Salary: 500,
	})
	var invalid breeds.InvalidBreedError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidBreedError, got %v", err)
	}
	if invalid.Breed != "housecat" || len(invalid.Sample) == 0 {
		t.Fatalf("unexpected error detail %+v", invalid)
	}
}

func TestCreateCatCatalogUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Breeds.Catalog = stubCatalog{err: breeds.ErrCatalogUnavailable}
	_, err := env.Engine.CreateCat(env.Ctx, engine.CatCreateOptions{
		Name: "Tom", YearsOfExperience: 3, Breed: "persian", Salary: 1000,
	})
	if !errors.Is(err, breeds.ErrCatalogUnavailable) {
		t.Fatalf("expected catalog unavailable, got %v", err)
	}
}

func TestMissionTargetCountBounds(t *testing.T) {
	env := newTestEnv(t)
	for _, count := range []int{0, 4} {
		opts := engine.MissionCreateOptions{}
		for i := 0; i < count; i++ {
			opts.Targets = append(opts.Targets, engine.TargetInput{Name: "t", Country: "US"})
		}
		if _, err := env.Engine.CreateMission(env.Ctx, opts); !errors.Is(err, engine.ErrInvalidTargetCount) {
			t.Fatalf("count %d: expected ErrInvalidTargetCount, got %v", count, err)
		}
	}
	for _, count := range []int{1, 3} {
		opts := engine.MissionCreateOptions{}
		for i := 0; i < count; i++ {
			opts.Targets = append(opts.Targets, engine.TargetInput{Name: "t", Country: "US"})
		}
		m, err := env.Engine.CreateMission(env.Ctx, opts)
		if err != nil {
			t.Fatalf("count %d: %v", count, err)
		}
		if len(m.Targets) != count || m.IsCompleted {
			t.Fatalf("count %d: unexpected mission %+v", count, m)
		}
	}
}

func TestMissionCreateUnknownCat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateMission(env.Ctx, engine.MissionCreateOptions{
		CatID:   "nope",
		Targets: []engine.TargetInput{{Name: "t", Country: "US"}},
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMissionCompletionCascade(t *testing.T) {
	env := newTestEnv(t)
	missionID := createMission(t, env, "", 2)
	m, err := env.Engine.GetMission(env.Ctx, missionID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, IsCompleted: boolPtr(true),
	}); err != nil {
		t.Fatalf("complete first target: %v", err)
	}
	m, _ = env.Engine.GetMission(env.Ctx, missionID)
	if m.IsCompleted {
		t.Fatalf("mission completed with a pending target")
	}

	if _, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[1].ID, IsCompleted: boolPtr(true),
	}); err != nil {
		t.Fatalf("complete last target: %v", err)
	}
	m, _ = env.Engine.GetMission(env.Ctx, missionID)
	if !m.IsCompleted {
		t.Fatalf("mission should auto-complete when the last target completes")
	}

	// nothing in a completed mission may change
	_, err = env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, Notes: strPtr("late intel"),
	})
	if !errors.Is(err, engine.ErrMissionCompleted) {
		t.Fatalf("expected ErrMissionCompleted, got %v", err)
	}
	_, err = env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, IsCompleted: boolPtr(true),
	})
	if !errors.Is(err, engine.ErrMissionCompleted) {
		t.Fatalf("expected ErrMissionCompleted, got %v", err)
	}
}

func TestNotesLockedOnCompletedTarget(t *testing.T) {
	env := newTestEnv(t)
	missionID := createMission(t, env, "", 2)
	m, _ := env.Engine.GetMission(env.Ctx, missionID)

	if _, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, Notes: strPtr("surveillance started"), IsCompleted: boolPtr(true),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	// mission still active, but the completed target's notes are frozen
	_, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, Notes: strPtr("more intel"),
	})
	if !errors.Is(err, engine.ErrTargetNotesLocked) {
		t.Fatalf("expected ErrTargetNotesLocked, got %v", err)
	}
	// the sibling is still editable
	updated, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[1].ID, Notes: strPtr("pending"),
	})
	if err != nil || updated.Notes != "pending" {
		t.Fatalf("sibling update: %v %+v", err, updated)
	}
}

func TestCompletionNotReversible(t *testing.T) {
	env := newTestEnv(t)
	missionID := createMission(t, env, "", 2)
	m, _ := env.Engine.GetMission(env.Ctx, missionID)

	if _, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, IsCompleted: boolPtr(true),
	}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[0].ID, IsCompleted: boolPtr(false),
	})
	if !errors.Is(err, engine.ErrCompletionReverted) {
		t.Fatalf("expected ErrCompletionReverted, got %v", err)
	}
	// false on a pending target is a no-op
	if _, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
		ID: m.Targets[1].ID, IsCompleted: boolPtr(false),
	}); err != nil {
		t.Fatalf("false on pending target: %v", err)
	}
}

func TestCompletionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	missionID := createMission(t, env, "", 2)
	m, _ := env.Engine.GetMission(env.Ctx, missionID)

	for i := 0; i < 2; i++ {
		if _, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{
			ID: m.Targets[0].ID, IsCompleted: boolPtr(true),
		}); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	m, _ = env.Engine.GetMission(env.Ctx, missionID)
	if m.IsCompleted {
		t.Fatalf("repeat completion must not complete the mission early")
	}
}

func TestDeleteCatGuard(t *testing.T) {
	env := newTestEnv(t)
	catID := createCat(t, env)
	missionID := createMission(t, env, catID, 1)

	c, err := env.Engine.GetCat(env.Ctx, catID)
	if err != nil {
		t.Fatal(err)
	}
	if c.MissionID == nil || *c.MissionID != missionID {
		t.Fatalf("expected cat linked to mission %s, got %+v", missionID, c)
	}
	if err := env.Engine.DeleteCat(env.Ctx, catID); !errors.Is(err, engine.ErrCatAssigned) {
		t.Fatalf("expected ErrCatAssigned, got %v", err)
	}
	if err := env.Engine.DeleteMission(env.Ctx, missionID); err != nil {
		t.Fatalf("delete mission: %v", err)
	}
	if err := env.Engine.DeleteCat(env.Ctx, catID); err != nil {
		t.Fatalf("delete cat after mission removed: %v", err)
	}
	if _, err := env.Engine.GetCat(env.Ctx, catID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected cat gone, got %v", err)
	}
}

func TestCatReassignment(t *testing.T) {
	env := newTestEnv(t)
	catID := createCat(t, env)
	first := createMission(t, env, catID, 1)
	second := createMission(t, env, catID, 1)

	c, _ := env.Engine.GetCat(env.Ctx, catID)
	if c.MissionID == nil || *c.MissionID != second {
		t.Fatalf("expected cat re-pointed at %s, got %+v", second, c.MissionID)
	}
	m1, err := env.Engine.GetMission(env.Ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if m1.CatID != nil {
		t.Fatalf("expected first mission to lose the cat, got %v", *m1.CatID)
	}
	m2, _ := env.Engine.GetMission(env.Ctx, second)
	if m2.CatID == nil || *m2.CatID != catID {
		t.Fatalf("expected second mission to hold the cat")
	}
}

func TestDeleteMissionCascades(t *testing.T) {
	env := newTestEnv(t)
	missionID := createMission(t, env, "", 3)
	m, _ := env.Engine.GetMission(env.Ctx, missionID)

	if err := env.Engine.DeleteMission(env.Ctx, missionID); err != nil {
		t.Fatal(err)
	}
	for _, target := range m.Targets {
		if _, err := env.Engine.GetTarget(env.Ctx, target.ID); !errors.Is(err, repo.ErrNotFound) {
			t.Fatalf("expected target %s gone, got %v", target.ID, err)
		}
	}
	if err := env.Engine.DeleteMission(env.Ctx, missionID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUpdateSalary(t *testing.T) {
	env := newTestEnv(t)
	catID := createCat(t, env)
	createMission(t, env, catID, 1)

	// mission state does not gate salary changes
	c, err := env.Engine.UpdateSalary(env.Ctx, catID, 2500)
	if err != nil {
		t.Fatalf("update salary: %v", err)
	}
	if c.Salary != 2500 {
		t.Fatalf("expected salary 2500, got %v", c.Salary)
	}
	if _, err := env.Engine.UpdateSalary(env.Ctx, "nope", 100); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateTargetNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateTarget(env.Ctx, engine.TargetUpdateOptions{ID: "nope", Notes: strPtr("x")})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
