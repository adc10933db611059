// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/school-election/auth"
	"github.com/danielhkuo/school-election/db"
	"github.com/danielhkuo/school-election/gate"
	"github.com/danielhkuo/school-election/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrVotingClosed   = errors.New("voting is closed")
	ErrAlreadyVoted   = errors.New("already voted for this role")
	ErrRoleMismatch   = errors.New("candidate does not belong to role")
	ErrUnknownRole    = errors.New("unknown role")
	ErrEmptySelection = errors.New("no selections")
)

// Store is the row store the election server reads and mutates.
type Store interface {
	Snapshot(ctx context.Context) (gate.Snapshot, error)
	Election(ctx context.Context) (gate.Snapshot, error)
	Settings(ctx context.Context) (models.Settings, error)
	VotedRoles(ctx context.Context, voterToken string) ([]string, error)
	CastBallot(ctx context.Context, voterToken string, selections map[string]string) ([]string, error)
	SetAdjustment(ctx context.Context, actor, candidateID string, value int) (int, error)
	UpdateSettings(ctx context.Context, actor string, req models.UpdateSettingsRequest) (models.Settings, error)
	CreateRole(ctx context.Context, actor string, req models.CreateRoleRequest) (string, error)
	CreateCandidate(ctx context.Context, actor string, req models.CreateCandidateRequest) (string, error)
	DeleteCandidate(ctx context.Context, actor, candidateID string) error
	AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// SQLStore implements Store on database/sql for postgres and sqlite.
type SQLStore struct {
	db     *sql.DB
	dbType string
	now    func() time.Time
}

func NewSQLStore(conn *sql.DB, dbType string) *SQLStore {
	return &SQLStore{db: conn, dbType: dbType, now: time.Now}
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) snapshotTxOptions() *sql.TxOptions {
	if s.dbType == db.TypePostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	// sqlite transactions are already serializable
	return nil
}

// Snapshot reads roles, candidates, votes and settings in one transaction.
// Any failure fails the whole snapshot.
func (s *SQLStore) Snapshot(ctx context.Context) (gate.Snapshot, error) {
	return s.read(ctx, true)
}

// Election reads roles, candidates and settings without any votes.
func (s *SQLStore) Election(ctx context.Context) (gate.Snapshot, error) {
	return s.read(ctx, false)
}

func (s *SQLStore) read(ctx context.Context, withVotes bool) (gate.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, s.snapshotTxOptions())
	if err != nil {
		return gate.Snapshot{}, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var snap gate.Snapshot
	if snap.Roles, err = listRoles(ctx, tx); err != nil {
		return gate.Snapshot{}, fmt.Errorf("failed to fetch roles: %w", err)
	}
	if snap.Candidates, err = listCandidates(ctx, tx); err != nil {
		return gate.Snapshot{}, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	if withVotes {
		if snap.Votes, err = listVotes(ctx, tx); err != nil {
			return gate.Snapshot{}, fmt.Errorf("failed to fetch votes: %w", err)
		}
	}
	if snap.Settings, err = readSettings(ctx, tx); err != nil {
		return gate.Snapshot{}, fmt.Errorf("failed to fetch settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return gate.Snapshot{}, fmt.Errorf("failed to finish snapshot: %w", err)
	}
	return snap, nil
}

// Settings returns the settings singleton, or models.DefaultSettings when the
// row has never been written.
func (s *SQLStore) Settings(ctx context.Context) (models.Settings, error) {
	return readSettings(ctx, s.db)
}

func listRoles(ctx context.Context, q queryer) ([]models.Role, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, category FROM election_role ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Title, &r.Category); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func listCandidates(ctx context.Context, q queryer) ([]models.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, role_id, manual_adjustment
		FROM candidate
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.RoleID, &c.ManualAdjustment); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func listVotes(ctx context.Context, q queryer) ([]models.Vote, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, candidate_id, role_id, voter_token, created_at
		FROM vote
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.CandidateID, &v.RoleID, &v.VoterToken, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func readSettings(ctx context.Context, q queryer) (models.Settings, error) {
	var st models.Settings
	err := q.QueryRowContext(ctx, `
		SELECT voting_open, results_visible, results_release_date
		FROM election_settings
		WHERE id = 1
	`).Scan(&st.VotingOpen, &st.ResultsVisible, &st.ResultsReleaseDate)

	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("election settings missing, using defaults")
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return st, nil
}

// VotedRoles returns the role IDs the voter token has already voted for.
func (s *SQLStore) VotedRoles(ctx context.Context, voterToken string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role_id FROM vote WHERE voter_token = $1 ORDER BY role_id
	`, voterToken)
	if err != nil {
		return nil, fmt.Errorf("failed to query voted roles: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan voted role: %w", err)
		}
		roles = append(roles, id)
	}
	return roles, rows.Err()
}

// CastBallot records one vote per selected role. A voter token may vote once
// per role; the whole ballot is rejected if any selection is invalid.
func (s *SQLStore) CastBallot(ctx context.Context, voterToken string, selections map[string]string) ([]string, error) {
	if len(selections) == 0 {
		return nil, ErrEmptySelection
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ballot: %w", err)
	}
	defer tx.Rollback()

	settings, err := readSettings(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.VotingOpen {
		return nil, ErrVotingClosed
	}

	now := s.now()
	voteIDs := make([]string, 0, len(selections))
	for roleID, candidateID := range selections {
		var candidateRole string
		err := tx.QueryRowContext(ctx, `
			SELECT role_id FROM candidate WHERE id = $1
		`, candidateID).Scan(&candidateRole)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query candidate: %w", err)
		}
		if candidateRole != roleID {
			return nil, fmt.Errorf("candidate %s for role %s: %w", candidateID, roleID, ErrRoleMismatch)
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM vote WHERE voter_token = $1 AND role_id = $2)
		`, voterToken, roleID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing vote: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("role %s: %w", roleID, ErrAlreadyVoted)
		}

		voteID := uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vote (id, candidate_id, role_id, voter_token, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, voteID, candidateID, roleID, voterToken, now)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("role %s: %w", roleID, ErrAlreadyVoted)
			}
			return nil, fmt.Errorf("failed to insert vote: %w", err)
		}
		voteIDs = append(voteIDs, voteID)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to commit ballot: %w", err)
	}
	return voteIDs, nil
}

// SetAdjustment sets a candidate's manual adjustment, clamped to zero, and
// records the change in the audit log. It returns the stored value.
func (s *SQLStore) SetAdjustment(ctx context.Context, actor, candidateID string, value int) (int, error) {
	if value < 0 {
		value = 0
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin adjustment: %w", err)
	}
	defer tx.Rollback()

	var old int
	err = tx.QueryRowContext(ctx, `
		SELECT manual_adjustment FROM candidate WHERE id = $1
	`, candidateID).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query candidate: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE candidate SET manual_adjustment = $1 WHERE id = $2
	`, value, candidateID)
	if err != nil {
		return 0, fmt.Errorf("failed to update adjustment: %w", err)
	}

	detail := strconv.Itoa(old) + " -> " + strconv.Itoa(value)
	if err := s.audit(ctx, tx, actor, models.ActionSetAdjustment, candidateID, detail); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	slog.Info("manual adjustment changed",
		"actor", actor,
		"candidate_id", candidateID,
		"old", old,
		"new", value,
	)
	return value, nil
}

// UpdateSettings applies a partial update to the settings singleton,
// creating it from defaults if it does not exist yet.
func (s *SQLStore) UpdateSettings(ctx context.Context, actor string, req models.UpdateSettingsRequest) (models.Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to begin settings update: %w", err)
	}
	defer tx.Rollback()

	st, err := readSettings(ctx, tx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	if req.VotingOpen != nil {
		st.VotingOpen = *req.VotingOpen
	}
	if req.ResultsVisible != nil {
		st.ResultsVisible = *req.ResultsVisible
	}
	if req.ResultsReleaseDate != nil {
		release := req.ResultsReleaseDate.UTC()
		st.ResultsReleaseDate = &release
	}
	if req.ClearReleaseDate {
		st.ResultsReleaseDate = nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO election_settings (id, voting_open, results_visible, results_release_date, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			voting_open = excluded.voting_open,
			results_visible = excluded.results_visible,
			results_release_date = excluded.results_release_date,
			updated_at = excluded.updated_at
	`, st.VotingOpen, st.ResultsVisible, st.ResultsReleaseDate, s.now())
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to write settings: %w", err)
	}

	detail, _ := json.Marshal(req)
	if err := s.audit(ctx, tx, actor, models.ActionUpdateSettings, "election_settings", string(detail)); err != nil {
		return models.Settings{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Settings{}, fmt.Errorf("failed to commit settings: %w", err)
	}

	slog.Info("election settings changed",
		"actor", actor,
		"voting_open", st.VotingOpen,
		"results_visible", st.ResultsVisible,
		"results_release_date", st.ResultsReleaseDate,
	)
	return st, nil
}

func (s *SQLStore) CreateRole(ctx context.Context, actor string, req models.CreateRoleRequest) (string, error) {
	roleID, err := auth.GenerateID(12)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin role insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO election_role (id, title, category, created_at)
		VALUES ($1, $2, $3, $4)
	`, roleID, req.Title, req.Category, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to insert role: %w", err)
	}

	if err := s.audit(ctx, tx, actor, models.ActionCreateRole, roleID, req.Title); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit role: %w", err)
	}
	return roleID, nil
}

func (s *SQLStore) CreateCandidate(ctx context.Context, actor string, req models.CreateCandidateRequest) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin candidate insert: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM election_role WHERE id = $1)
	`, req.RoleID).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("failed to check role: %w", err)
	}
	if !exists {
		return "", ErrUnknownRole
	}

	candidateID, err := auth.GenerateID(12)
	if err != nil {
		return "", err
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO candidate (id, role_id, name, description, manual_adjustment, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`, candidateID, req.RoleID, req.Name, description, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to insert candidate: %w", err)
	}

	if err := s.audit(ctx, tx, actor, models.ActionCreateCand, candidateID, req.Name); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit candidate: %w", err)
	}
	return candidateID, nil
}

// DeleteCandidate removes a candidate. Votes already cast for it are kept
// and show up as referential gaps when tabulated.
func (s *SQLStore) DeleteCandidate(ctx context.Context, actor, candidateID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin candidate delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM candidate WHERE id = $1`, candidateID)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := s.audit(ctx, tx, actor, models.ActionDeleteCand, candidateID, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candidate delete: %w", err)
	}

	slog.Info("candidate deleted", "actor", actor, "candidate_id", candidateID)
	return nil
}

// AuditLog returns the most recent audit entries, newest first.
func (s *SQLStore) AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, target, detail, created_at
		FROM admin_audit
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Target, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) audit(ctx context.Context, q queryer, actor, action, target, detail string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO admin_audit (id, actor, action, target, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), actor, action, target, detail, s.now())
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
