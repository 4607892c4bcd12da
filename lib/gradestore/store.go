// Package gradestore persists per-course grade snapshots so the
// dashboard can chart a grade over time. One snapshot per user, course
// and day; pushing twice in a day replaces that day's values.
package gradestore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "embed"

	"gradeway-backend/lib/timezone"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Open connects to the configured database and applies the schema.
// Remote libsql DSNs and local sqlite paths share this entry point.
func Open(dsn string) (*sql.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		driver = "libsql"
	}
	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(Schema); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

var letterPoints = map[string]float64{
	"A+": 4.3, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D+": 1.3, "D": 1.0, "D-": 0.7,
	"F": 0,
}

// LetterPoints maps a letter grade to its grade-point value. The
// second return is false for letters that carry no point value.
func LetterPoints(letter string) (float64, bool) {
	value, ok := letterPoints[strings.ToUpper(strings.TrimSpace(letter))]
	return value, ok
}

type CourseSnapshot struct {
	Course string
	Value  float64
}

type UserSnapshot struct {
	User    string
	Courses []CourseSnapshot
}

type PushRequest struct {
	Time  time.Time
	Users []UserSnapshot
}

func (s Store) Push(ctx context.Context, req PushRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	startOfToday := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day(), 0, 0, 0, 0, timezone.Location).Unix()
	startOfTomorrow := time.Date(req.Time.Year(), req.Time.Month(), req.Time.Day()+1, 0, 0, 0, 0, timezone.Location).Unix()

	for _, user := range req.Users {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM grade_snapshots
			WHERE time >= ? AND time < ?
			AND user_course_id IN (SELECT id FROM user_courses WHERE user = ?)
		`, startOfToday, startOfTomorrow, user.User)
		if err != nil {
			return err
		}

		for _, course := range user.Courses {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_courses (user, course) VALUES (?, ?)
				ON CONFLICT (user, course) DO NOTHING
			`, user.User, course.Course)
			if err != nil {
				return err
			}

			var userCourseId int64
			err = tx.QueryRowContext(ctx, `
				SELECT id FROM user_courses WHERE user = ? AND course = ?
			`, user.User, course.Course).Scan(&userCourseId)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO grade_snapshots (user_course_id, time, value)
				VALUES (?, ?, ?)
			`, userCourseId, req.Time.Unix(), course.Value)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

type GradeSnapshot struct {
	Time  time.Time
	Value float64
}

type CourseSnapshotSeries struct {
	Course    string
	Snapshots []GradeSnapshot
}

func (s Store) Pull(ctx context.Context, user string) ([]CourseSnapshotSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_courses.course, grade_snapshots.time, grade_snapshots.value
		FROM grade_snapshots
		JOIN user_courses ON user_courses.id = grade_snapshots.user_course_id
		WHERE user_courses.user = ?
		ORDER BY user_courses.course, grade_snapshots.time
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []CourseSnapshotSeries
	for rows.Next() {
		var course string
		var unix int64
		var value float64
		if err := rows.Scan(&course, &unix, &value); err != nil {
			return nil, err
		}

		snapshot := GradeSnapshot{Time: time.Unix(unix, 0), Value: value}
		if len(courses) > 0 && courses[len(courses)-1].Course == course {
			last := &courses[len(courses)-1]
			last.Snapshots = append(last.Snapshots, snapshot)
			continue
		}
		courses = append(courses, CourseSnapshotSeries{
			Course:    course,
			Snapshots: []GradeSnapshot{snapshot},
		})
	}
	return courses, rows.Err()
}
