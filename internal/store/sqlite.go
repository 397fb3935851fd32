package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iscore/vendoreval/internal/services"
)

// SQLiteStore persists every collection in a single SQLite file. Structured
// fields (responses, department scores) are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(path, migrationsDir string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if err := RunMigrations(db, migrationsDir); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) AddVendor(v *services.Vendor) error {
	_, err := s.db.Exec(
		`INSERT INTO vendors (id, name, is_new, discarded, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, is_new=excluded.is_new, discarded=excluded.discarded`,
		v.ID, v.Name, boolToInt(v.IsNew), boolToInt(v.Discarded), v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetVendor(id string) (*services.Vendor, error) {
	row := s.db.QueryRow(`SELECT id, name, is_new, discarded, created_at FROM vendors WHERE id = ?`, id)
	v, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) ListVendors() ([]*services.Vendor, error) {
	rows, err := s.db.Query(`SELECT id, name, is_new, discarded, created_at FROM vendors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()
	var out []*services.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkVendorDiscarded(vendorID string) error {
	res, err := s.db.Exec(`UPDATE vendors SET discarded = 1 WHERE id = ?`, vendorID)
	if err != nil {
		return fmt.Errorf("mark vendor discarded: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("vendor not found")
	}
	return nil
}

func (s *SQLiteStore) AddQuestion(q *services.Question) error {
	_, err := s.db.Exec(
		`INSERT INTO questions (id, text, weight, criteria, source, answer_type) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET text=excluded.text, weight=excluded.weight,
		   criteria=excluded.criteria, source=excluded.source, answer_type=excluded.answer_type`,
		q.ID, q.Text, q.Weight, q.Criteria, string(q.Source), string(q.AnswerType),
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListQuestions(source services.QuestionSource) ([]*services.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, text, weight, criteria, source, answer_type FROM questions WHERE source = ? ORDER BY rowid`,
		string(source),
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	var out []*services.Question
	for rows.Next() {
		var q services.Question
		var src, answerType string
		if err := rows.Scan(&q.ID, &q.Text, &q.Weight, &q.Criteria, &src, &answerType); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Source = services.QuestionSource(src)
		q.AnswerType = services.AnswerType(answerType)
		// Rows imported from before answer_type existed carry an empty
		// string; those marked the yes/no question by its wording.
		if q.AnswerType == "" && strings.Contains(strings.ToLower(q.Text), "monopoly") {
			q.AnswerType = services.AnswerBinary
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddPrequalQuestion(q *services.PrequalQuestion) error {
	_, err := s.db.Exec(
		`INSERT INTO prequal_questions (id, criteria, text) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET criteria=excluded.criteria, text=excluded.text`,
		q.ID, q.Criteria, q.Text,
	)
	if err != nil {
		return fmt.Errorf("insert prequal question: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPrequalQuestions() ([]*services.PrequalQuestion, error) {
	rows, err := s.db.Query(`SELECT id, criteria, text FROM prequal_questions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list prequal questions: %w", err)
	}
	defer rows.Close()
	var out []*services.PrequalQuestion
	for rows.Next() {
		var q services.PrequalQuestion
		if err := rows.Scan(&q.ID, &q.Criteria, &q.Text); err != nil {
			return nil, fmt.Errorf("scan prequal question: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddCredential(c *services.Credential) error {
	_, err := s.db.Exec(
		`INSERT INTO credentials (uid, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		c.UID, c.Email, c.PassHash, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("email already registered")
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindCredentialByEmail(email string) (*services.Credential, error) {
	row := s.db.QueryRow(
		`SELECT uid, email, pass_hash, created_at FROM credentials WHERE email = ? COLLATE NOCASE`,
		email,
	)
	var c services.Credential
	err := row.Scan(&c.UID, &c.Email, &c.PassHash, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) AddUser(u *services.UserAccess) error {
	_, err := s.db.Exec(
		`INSERT INTO users (uid, name, email, role, department, access_prerequisite, access_evaluation)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET name=excluded.name, email=excluded.email, role=excluded.role,
		   department=excluded.department`,
		u.UID, u.Name, u.Email, u.Role, u.Department,
		boolToInt(u.Access.Prerequisite), boolToInt(u.Access.Evaluation),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByUID(uid string) (*services.UserAccess, error) {
	row := s.db.QueryRow(
		`SELECT uid, name, email, role, department, access_prerequisite, access_evaluation FROM users WHERE uid = ?`,
		uid,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) ListUsers() ([]*services.UserAccess, error) {
	rows, err := s.db.Query(
		`SELECT uid, name, email, role, department, access_prerequisite, access_evaluation FROM users ORDER BY uid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []*services.UserAccess
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateUserAccess(uid string, access services.AccessFlags) error {
	res, err := s.db.Exec(
		`UPDATE users SET access_prerequisite = ?, access_evaluation = ? WHERE uid = ?`,
		boolToInt(access.Prerequisite), boolToInt(access.Evaluation), uid,
	)
	if err != nil {
		return fmt.Errorf("update user access: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

func (s *SQLiteStore) AddEvaluation(rec *services.EvaluationRecord) error {
	responses, err := json.Marshal(rec.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}
	deptScores, err := json.Marshal(rec.DepartmentScores)
	if err != nil {
		return fmt.Errorf("marshal department scores: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO evaluations (id, user_id, evaluator_name, vendor_id, vendor_name, responses, total_score, department_scores, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.EvaluatorName, rec.VendorID, rec.VendorName,
		string(responses), rec.TotalScore, string(deptScores), rec.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("evaluation already submitted for this vendor")
		}
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListEvaluations() ([]*services.EvaluationRecord, error) {
	return s.queryEvaluations(
		`SELECT id, user_id, evaluator_name, vendor_id, vendor_name, responses, total_score, department_scores, submitted_at
		 FROM evaluations ORDER BY submitted_at, rowid`,
	)
}

func (s *SQLiteStore) ListEvaluationsByUser(uid string) ([]*services.EvaluationRecord, error) {
	return s.queryEvaluations(
		`SELECT id, user_id, evaluator_name, vendor_id, vendor_name, responses, total_score, department_scores, submitted_at
		 FROM evaluations WHERE user_id = ? ORDER BY submitted_at, rowid`,
		uid,
	)
}

func (s *SQLiteStore) queryEvaluations(query string, args ...any) ([]*services.EvaluationRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()
	out := []*services.EvaluationRecord{}
	for rows.Next() {
		var rec services.EvaluationRecord
		var responses, deptScores sql.NullString
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.EvaluatorName, &rec.VendorID, &rec.VendorName,
			&responses, &rec.TotalScore, &deptScores, &rec.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if responses.Valid && responses.String != "" {
			if err := json.Unmarshal([]byte(responses.String), &rec.Responses); err != nil {
				return nil, fmt.Errorf("decode responses for %s: %w", rec.ID, err)
			}
		}
		if rec.Responses == nil {
			rec.Responses = map[string]services.EvaluationResponse{}
		}
		if deptScores.Valid && deptScores.String != "" {
			if err := json.Unmarshal([]byte(deptScores.String), &rec.DepartmentScores); err != nil {
				return nil, fmt.Errorf("decode department scores for %s: %w", rec.ID, err)
			}
		}
		if rec.DepartmentScores == nil {
			rec.DepartmentScores = map[string]float64{}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddDiscard(rec *services.DiscardRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO discards (id, vendor_id, vendor_name, reason, discarded_by, discarded_at, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VendorID, rec.VendorName, rec.Reason, rec.DiscardedBy, rec.DiscardedAt, string(rec.Context),
	)
	if err != nil {
		return fmt.Errorf("insert discard: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDiscards(ctx services.EvalContext) ([]*services.DiscardRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, vendor_id, vendor_name, reason, discarded_by, discarded_at, context
		 FROM discards WHERE context = ? ORDER BY discarded_at, rowid`,
		string(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("list discards: %w", err)
	}
	defer rows.Close()
	out := []*services.DiscardRecord{}
	for rows.Next() {
		var rec services.DiscardRecord
		var evalCtx string
		err := rows.Scan(&rec.ID, &rec.VendorID, &rec.VendorName, &rec.Reason, &rec.DiscardedBy, &rec.DiscardedAt, &evalCtx)
		if err != nil {
			return nil, fmt.Errorf("scan discard: %w", err)
		}
		rec.Context = services.EvalContext(evalCtx)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetWindow() (*services.EvaluationWindow, error) {
	row := s.db.QueryRow(`SELECT start_at, end_at FROM evaluation_settings WHERE id = 1`)
	var w services.EvaluationWindow
	err := row.Scan(&w.Start, &w.End)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get window: %w", err)
	}
	return &w, nil
}

func (s *SQLiteStore) SaveWindow(w *services.EvaluationWindow) error {
	_, err := s.db.Exec(
		`INSERT INTO evaluation_settings (id, start_at, end_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET start_at=excluded.start_at, end_at=excluded.end_at`,
		w.Start, w.End,
	)
	if err != nil {
		return fmt.Errorf("save window: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*services.Vendor, error) {
	var v services.Vendor
	var isNew, discarded int
	var createdAt time.Time
	if err := row.Scan(&v.ID, &v.Name, &isNew, &discarded, &createdAt); err != nil {
		return nil, err
	}
	v.IsNew = isNew != 0
	v.Discarded = discarded != 0
	v.CreatedAt = createdAt
	return &v, nil
}

func scanUser(row rowScanner) (*services.UserAccess, error) {
	var u services.UserAccess
	var prereq, eval int
	if err := row.Scan(&u.UID, &u.Name, &u.Email, &u.Role, &u.Department, &prereq, &eval); err != nil {
		return nil, err
	}
	u.Access = services.AccessFlags{Prerequisite: prereq != 0, Evaluation: eval != 0}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
