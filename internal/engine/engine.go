package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spycats/internal/breeds"
	"spycats/internal/config"
	"spycats/internal/domain"
	"spycats/internal/repo"
)

var (
	ErrCatAssigned        = errors.New("cat assigned to a mission")
	ErrInvalidTargetCount = errors.New("mission must have 1 to 3 targets")
	ErrMissionCompleted   = errors.New("mission already completed")
	ErrTargetNotesLocked  = errors.New("notes locked on completed target")
	ErrCompletionReverted = errors.New("target completion cannot be reverted")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Breeds breeds.Validator
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	catalog := breeds.NewHTTPCatalog(cfg.BreedCatalog.URL, time.Duration(cfg.BreedCatalog.TimeoutSeconds)*time.Second)
	return Engine{
		DB:   db,
		Repo: repo.Repo{DB: db},
		Breeds: breeds.Validator{
			Catalog:    catalog,
			SampleSize: cfg.BreedCatalog.HintSampleSize,
		},
		Now: time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func notFound(kind string) error {
	return fmt.Errorf("%s %w", kind, repo.ErrNotFound)
}

// CatCreateOptions are parameters for recruiting a cat.
type CatCreateOptions struct {
	Name              string
	YearsOfExperience int
	Breed             string
	Salary            float64
}

// CreateCat validates the breed against the catalog, then persists the cat.
// The catalog is consulted once per call; a catalog failure surfaces as
// breeds.ErrCatalogUnavailable rather than passing validation.
func (e Engine) CreateCat(ctx context.Context, opts CatCreateOptions) (domain.SpyCat, error) {
	if opts.Name == "" {
		return domain.SpyCat{}, errors.New("name is required")
	}
	if opts.Breed == "" {
		return domain.SpyCat{}, errors.New("breed is required")
	}
	if opts.YearsOfExperience < 0 {
		return domain.SpyCat{}, errors.New("years_of_experience must not be negative")
	}
	if opts.Salary <= 0 {
		return domain.SpyCat{}, errors.New("salary must be positive")
	}
	if err := e.Breeds.Validate(ctx, opts.Breed); err != nil {
		return domain.SpyCat{}, err
	}
	c := domain.SpyCat{
		ID:                uuid.New().String(),
		Name:              opts.Name,
		YearsOfExperience: opts.YearsOfExperience,
		Breed:             opts.Breed,
		Salary:            opts.Salary,
		CreatedAt:         e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertCat(ctx, c); err != nil {
		return domain.SpyCat{}, fmt.Errorf("insert cat: %w", err)
	}
	return c, nil
}

// UpdateSalary persists a new salary unconditionally; mission state does not
// gate salary changes.
func (e Engine) UpdateSalary(ctx context.Context, catID string, salary float64) (domain.SpyCat, error) {
	if salary <= 0 {
		return domain.SpyCat{}, errors.New("salary must be positive")
	}
	if err := e.Repo.UpdateCatSalary(ctx, catID, salary); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.SpyCat{}, notFound("cat")
		}
		return domain.SpyCat{}, err
	}
	return e.Repo.GetCat(ctx, catID)
}

// DeleteCat refuses while the cat is linked to a mission.
func (e Engine) DeleteCat(ctx context.Context, catID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCatTx(ctx, tx, catID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("cat")
		}
		return err
	}
	if c.MissionID != nil {
		return ErrCatAssigned
	}
	if err := e.Repo.DeleteCat(ctx, tx, catID); err != nil {
		return err
	}
	return tx.Commit()
}

// TargetInput is a target proposed at mission creation.
type TargetInput struct {
	Name    string
	Country string
}

// MissionCreateOptions are parameters for creating a mission.
type MissionCreateOptions struct {
	CatID   string
	Targets []TargetInput
}

// CreateMission persists the mission and all its targets as one transaction.
// A supplied cat must exist; a cat that already has a mission is silently
// re-pointed at the new one.
func (e Engine) CreateMission(ctx context.Context, opts MissionCreateOptions) (domain.Mission, error) {
	if len(opts.Targets) < 1 || len(opts.Targets) > 3 {
		return domain.Mission{}, ErrInvalidTargetCount
	}
	for _, t := range opts.Targets {
		if t.Name == "" {
			return domain.Mission{}, errors.New("target name is required")
		}
		if t.Country == "" {
			return domain.Mission{}, errors.New("target country is required")
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	m := domain.Mission{
		ID:        uuid.New().String(),
		CatID:     optionalString(opts.CatID),
		CreatedAt: now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	if opts.CatID != "" {
		if _, err := e.Repo.GetCatTx(ctx, tx, opts.CatID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Mission{}, notFound("cat")
			}
			return domain.Mission{}, err
		}
	}
	if err := e.Repo.InsertMission(ctx, tx, m); err != nil {
		return domain.Mission{}, fmt.Errorf("insert mission: %w", err)
	}
	for _, in := range opts.Targets {
		t := domain.Target{
			ID:        uuid.New().String(),
			MissionID: m.ID,
			Name:      in.Name,
			Country:   in.Country,
			CreatedAt: now,
		}
		if err := e.Repo.InsertTarget(ctx, tx, t); err != nil {
			return domain.Mission{}, fmt.Errorf("insert target: %w", err)
		}
		m.Targets = append(m.Targets, t)
	}
	if opts.CatID != "" {
		// A cat holds at most one mission link; older missions lose the cat.
		if _, err := tx.ExecContext(ctx, `UPDATE missions SET cat_id=NULL WHERE cat_id=? AND id<>?`, opts.CatID, m.ID); err != nil {
			return domain.Mission{}, err
		}
		if err := e.Repo.SetCatMission(ctx, tx, opts.CatID, &m.ID); err != nil {
			return domain.Mission{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// DeleteMission removes the mission and, through the schema's cascades, its
// targets; the assigned cat's back-reference clears with it.
func (e Engine) DeleteMission(ctx context.Context, missionID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetMissionTx(ctx, tx, missionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("mission")
		}
		return err
	}
	if err := e.Repo.DeleteMission(ctx, tx, missionID); err != nil {
		return err
	}
	return tx.Commit()
}

// TargetUpdateOptions carry the two mutable target fields; nil means leave
// untouched.
type TargetUpdateOptions struct {
	ID          string
	Notes       *string
	IsCompleted *bool
}

// UpdateTarget applies notes and completion changes under the lifecycle
// rules, then re-evaluates the owning mission: when every sibling target is
// complete the mission flips to completed. The read-modify-write and the
// sibling sweep run in one transaction so two concurrent completions of the
// last two targets cannot both miss the mission transition.
func (e Engine) UpdateTarget(ctx context.Context, opts TargetUpdateOptions) (domain.Target, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Target{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTargetTx(ctx, tx, opts.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Target{}, notFound("target")
		}
		return domain.Target{}, err
	}
	m, err := e.Repo.GetMissionTx(ctx, tx, t.MissionID)
	if err != nil {
		return domain.Target{}, err
	}
	if m.IsCompleted {
		return domain.Target{}, ErrMissionCompleted
	}
	if opts.Notes != nil {
		if t.IsCompleted {
			return domain.Target{}, ErrTargetNotesLocked
		}
		t.Notes = *opts.Notes
	}
	if opts.IsCompleted != nil {
		if !*opts.IsCompleted && t.IsCompleted {
			return domain.Target{}, ErrCompletionReverted
		}
		t.IsCompleted = *opts.IsCompleted
	}
	if err := e.Repo.UpdateTarget(ctx, tx, t); err != nil {
		return domain.Target{}, err
	}
	if opts.IsCompleted != nil && t.IsCompleted {
		siblings, err := e.Repo.ListTargetsByMissionTx(ctx, tx, t.MissionID)
		if err != nil {
			return domain.Target{}, err
		}
		all := true
		for _, s := range siblings {
			if !s.IsCompleted {
				all = false
				break
			}
		}
		if all {
			if err := e.Repo.SetMissionCompleted(ctx, tx, t.MissionID); err != nil {
				return domain.Target{}, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Target{}, err
	}
	return t, nil
}

// GetCat resolves a cat or reports it missing.
func (e Engine) GetCat(ctx context.Context, id string) (domain.SpyCat, error) {
	c, err := e.Repo.GetCat(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return c, notFound("cat")
	}
	return c, err
}

// GetMission resolves a mission with its targets.
func (e Engine) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	m, err := e.Repo.GetMission(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return m, notFound("mission")
	}
	return m, err
}

// GetTarget resolves a single target.
func (e Engine) GetTarget(ctx context.Context, id string) (domain.Target, error) {
	t, err := e.Repo.GetTarget(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return t, notFound("target")
	}
	return t, err
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
