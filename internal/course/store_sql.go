package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses (id,code,name,grading_scale)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET code=EXCLUDED.code, name=EXCLUDED.name, grading_scale=EXCLUDED.grading_scale`,
		c.ID, c.Code, c.Name, string(c.Scale))
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, id int) (Course, error) {
	var c Course
	var scale string
	err := s.db.QueryRowContext(ctx, `SELECT id,code,name,grading_scale FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &scale)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Course{}, err
	}
	c.Scale = grading.Scale(scale)
	return c, nil
}

func (s *SQLStore) PutCoursePart(ctx context.Context, p CoursePart) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO course_parts (id,course_id,name,max_grade,expiry_date,archived)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, name=EXCLUDED.name,
		  max_grade=EXCLUDED.max_grade, expiry_date=EXCLUDED.expiry_date, archived=EXCLUDED.archived`,
		p.ID, p.CourseID, p.Name, p.MaxGrade, unixOrNil(p.ExpiryDate), p.Archived)
	return err
}

func (s *SQLStore) ListCourseParts(ctx context.Context, courseID int) ([]CoursePart, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,course_id,name,max_grade,expiry_date,archived
		FROM course_parts WHERE course_id=$1 ORDER BY id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CoursePart
	for rows.Next() {
		var p CoursePart
		var expiry sql.NullInt64
		if err := rows.Scan(&p.ID, &p.CourseID, &p.Name, &p.MaxGrade, &expiry, &p.Archived); err != nil {
			return nil, err
		}
		p.ExpiryDate = timeOrNil(expiry)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutCourseTask(ctx context.Context, t CourseTask) error {
	var days any
	if t.DaysValid != nil {
		days = *t.DaysValid
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO course_tasks (id,course_part_id,name,max_grade,days_valid,archived)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET course_part_id=EXCLUDED.course_part_id, name=EXCLUDED.name,
		  max_grade=EXCLUDED.max_grade, days_valid=EXCLUDED.days_valid, archived=EXCLUDED.archived`,
		t.ID, t.CoursePartID, t.Name, t.MaxGrade, days, t.Archived)
	return err
}

const taskColumns = `t.id,t.course_part_id,t.name,t.max_grade,t.days_valid,t.archived`

func scanTask(sc interface{ Scan(...any) error }) (CourseTask, error) {
	var t CourseTask
	var days sql.NullInt64
	if err := sc.Scan(&t.ID, &t.CoursePartID, &t.Name, &t.MaxGrade, &days, &t.Archived); err != nil {
		return CourseTask{}, err
	}
	if days.Valid {
		d := int(days.Int64)
		t.DaysValid = &d
	}
	return t, nil
}

func (s *SQLStore) GetCourseTask(ctx context.Context, id int) (CourseTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM course_tasks t WHERE t.id=$1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CourseTask{}, fmt.Errorf("course task %d: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLStore) ListCourseTasks(ctx context.Context, courseID int) ([]CourseTask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
		FROM course_tasks t JOIN course_parts p ON p.id = t.course_part_id
		WHERE p.course_id=$1 ORDER BY t.id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CourseTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteCourseTask(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM course_tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("course task %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) SaveModel(ctx context.Context, m GradingModel) (GradingModel, error) {
	gj, err := json.Marshal(m.Graph)
	if err != nil {
		return GradingModel{}, err
	}
	now := time.Now().Unix()

	if m.ID == 0 {
		err := s.db.QueryRowContext(ctx, `INSERT INTO grading_models
			(course_id,course_part_id,name,graph_json,archived,version,updated_at)
			VALUES ($1,$2,$3,$4,$5,1,$6) RETURNING id`,
			m.CourseID, m.CoursePartID, m.Name, string(gj), m.Archived, now).Scan(&m.ID)
		if err != nil {
			return GradingModel{}, err
		}
		return s.GetModel(ctx, m.CourseID, m.ID)
	}

	query := `UPDATE grading_models
		SET course_part_id=$1, name=$2, graph_json=$3, archived=$4, version=version+1, updated_at=$5
		WHERE id=$6 AND course_id=$7`
	args := []any{m.CoursePartID, m.Name, string(gj), m.Archived, now, m.ID, m.CourseID}
	if m.Version != 0 {
		query += ` AND version=$8`
		args = append(args, m.Version)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return GradingModel{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetModel(ctx, m.CourseID, m.ID); err != nil {
			return GradingModel{}, err
		}
		return GradingModel{}, fmt.Errorf("grading model %d version %d: %w", m.ID, m.Version, ErrStaleModel)
	}
	return s.GetModel(ctx, m.CourseID, m.ID)
}

const modelColumns = `id,course_id,course_part_id,name,graph_json,archived,version,updated_at`

func scanModel(sc interface{ Scan(...any) error }) (GradingModel, error) {
	var m GradingModel
	var part sql.NullInt64
	var gjson string
	var updated int64
	if err := sc.Scan(&m.ID, &m.CourseID, &part, &m.Name, &gjson, &m.Archived, &m.Version, &updated); err != nil {
		return GradingModel{}, err
	}
	if part.Valid {
		p := int(part.Int64)
		m.CoursePartID = &p
	}
	if err := json.Unmarshal([]byte(gjson), &m.Graph); err != nil {
		return GradingModel{}, fmt.Errorf("grading model %d: decode graph: %w", m.ID, err)
	}
	m.UpdatedAt = time.Unix(updated, 0).UTC()
	return m, nil
}

func (s *SQLStore) GetModel(ctx context.Context, courseID, modelID int) (GradingModel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM grading_models WHERE id=$1 AND course_id=$2`,
		modelID, courseID)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GradingModel{}, fmt.Errorf("grading model %d: %w", modelID, ErrNotFound)
	}
	return m, err
}

func (s *SQLStore) ListModels(ctx context.Context, courseID int) ([]GradingModel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+modelColumns+` FROM grading_models WHERE course_id=$1 ORDER BY id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GradingModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddGrades(ctx context.Context, taskID int, grades []TaskGrade) ([]TaskGrade, error) {
	task, err := s.GetCourseTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]TaskGrade, 0, len(grades))
	for _, g := range grades {
		g = withDefaults(task, g)
		err := tx.QueryRowContext(ctx, `INSERT INTO task_grades
			(course_task_id,student_id,grade,date,expiry_date,created_at)
			VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			g.CourseTaskID, g.StudentID, g.Grade, g.Date.Unix(), unixOrNil(g.ExpiryDate), time.Now().Unix()).Scan(&g.ID)
		if err != nil {
			return nil, fmt.Errorf("insert grade for student %d: %w", g.StudentID, err)
		}
		out = append(out, g)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) ListGrades(ctx context.Context, courseID int) ([]TaskGrade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT g.id,g.course_task_id,g.student_id,g.grade,g.date,g.expiry_date
		FROM task_grades g
		JOIN course_tasks t ON t.id = g.course_task_id
		JOIN course_parts p ON p.id = t.course_part_id
		WHERE p.course_id=$1 ORDER BY g.id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskGrade
	for rows.Next() {
		var g TaskGrade
		var date int64
		var expiry sql.NullInt64
		if err := rows.Scan(&g.ID, &g.CourseTaskID, &g.StudentID, &g.Grade, &date, &expiry); err != nil {
			return nil, err
		}
		g.Date = time.Unix(date, 0).UTC()
		g.ExpiryDate = timeOrNil(expiry)
		out = append(out, g)
	}
	return out, rows.Err()
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
