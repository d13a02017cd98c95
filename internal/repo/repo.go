package repo

import (
	"context"
	"database/sql"
	"errors"

	"spycats/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertCat(ctx context.Context, c domain.SpyCat) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO cats(id,name,years_of_experience,breed,salary,mission_id,created_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.YearsOfExperience, c.Breed, c.Salary, nullableStringPtr(c.MissionID), c.CreatedAt)
	return err
}

func scanCat(scan func(dest ...any) error) (domain.SpyCat, error) {
	var c domain.SpyCat
	var missionID sql.NullString
	err := scan(&c.ID, &c.Name, &c.YearsOfExperience, &c.Breed, &c.Salary, &missionID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if missionID.Valid {
		c.MissionID = &missionID.String
	}
	return c, nil
}

const catColumns = `id,name,years_of_experience,breed,salary,mission_id,created_at`

func (r Repo) GetCat(ctx context.Context, id string) (domain.SpyCat, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+catColumns+` FROM cats WHERE id=?`, id)
	return scanCat(row.Scan)
}

func (r Repo) GetCatTx(ctx context.Context, tx *sql.Tx, id string) (domain.SpyCat, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+catColumns+` FROM cats WHERE id=?`, id)
	return scanCat(row.Scan)
}

func (r Repo) ListCats(ctx context.Context, skip, limit int) ([]domain.SpyCat, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+catColumns+` FROM cats ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SpyCat
	for rows.Next() {
		c, err := scanCat(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCatSalary(ctx context.Context, id string, salary float64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE cats SET salary=? WHERE id=?`, salary, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCatMission points the cat's mission back-reference; nil clears it.
func (r Repo) SetCatMission(ctx context.Context, tx *sql.Tx, catID string, missionID *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE cats SET mission_id=? WHERE id=?`, nullableStringPtr(missionID), catID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteCat(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM cats WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertMission(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO missions(id,cat_id,is_completed,created_at) VALUES (?,?,?,?)`,
		m.ID, nullableStringPtr(m.CatID), m.IsCompleted, m.CreatedAt)
	return err
}

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	var catID sql.NullString
	err := scan(&m.ID, &catID, &m.IsCompleted, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if catID.Valid {
		m.CatID = &catID.String
	}
	return m, nil
}

const missionColumns = `id,cat_id,is_completed,created_at`

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	m, err := scanMission(r.DB.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id).Scan)
	if err != nil {
		return m, err
	}
	m.Targets, err = r.listTargets(ctx, r.DB.QueryContext, id)
	return m, err
}

func (r Repo) GetMissionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Mission, error) {
	m, err := scanMission(tx.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id).Scan)
	if err != nil {
		return m, err
	}
	m.Targets, err = r.listTargets(ctx, tx.QueryContext, id)
	return m, err
}

func (r Repo) ListMissions(ctx context.Context, skip, limit int) ([]domain.Mission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Targets, err = r.listTargets(ctx, r.DB.QueryContext, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// DeleteMission removes the mission row; owned targets go with it via the
// ON DELETE CASCADE foreign key.
func (r Repo) DeleteMission(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM missions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetMissionCompleted(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE missions SET is_completed=1 WHERE id=?`, id)
	return err
}

func (r Repo) InsertTarget(ctx context.Context, tx *sql.Tx, t domain.Target) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO targets(id,mission_id,name,country,notes,is_completed,created_at) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.MissionID, t.Name, t.Country, t.Notes, t.IsCompleted, t.CreatedAt)
	return err
}

const targetColumns = `id,mission_id,name,country,notes,is_completed,created_at`

func scanTarget(scan func(dest ...any) error) (domain.Target, error) {
	var t domain.Target
	err := scan(&t.ID, &t.MissionID, &t.Name, &t.Country, &t.Notes, &t.IsCompleted, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) GetTarget(ctx context.Context, id string) (domain.Target, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id=?`, id)
	return scanTarget(row.Scan)
}

func (r Repo) GetTargetTx(ctx context.Context, tx *sql.Tx, id string) (domain.Target, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id=?`, id)
	return scanTarget(row.Scan)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r Repo) listTargets(ctx context.Context, query queryFunc, missionID string) ([]domain.Target, error) {
	rows, err := query(ctx, `SELECT `+targetColumns+` FROM targets WHERE mission_id=? ORDER BY created_at, id`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Target
	for rows.Next() {
		t, err := scanTarget(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) ListTargetsByMissionTx(ctx context.Context, tx *sql.Tx, missionID string) ([]domain.Target, error) {
	return r.listTargets(ctx, tx.QueryContext, missionID)
}

func (r Repo) UpdateTarget(ctx context.Context, tx *sql.Tx, t domain.Target) error {
	res, err := tx.ExecContext(ctx, `UPDATE targets SET notes=?, is_completed=? WHERE id=?`, t.Notes, t.IsCompleted, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
