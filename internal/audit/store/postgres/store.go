// Package postgres implements the durable audit store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

// Store persists audit records in the audit_records table. This store is pure
// I/O; normalization and derivation belong to the writer.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const insertColumns = `id, action, actor_id, actor_email, session_id,
	resource_type, resource_id, before_values, after_values, changed_fields,
	source_ip, user_agent, request_path, request_method, access_reason,
	protected_data, compliance_note, risk_level, error_message, details, created_at`

// AppendBatch inserts all records in a single statement. The batch either
// lands whole or not at all, so the writer can requeue it on failure without
// duplicating rows.
func (s *Store) AppendBatch(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	var (
		placeholders []string
		args         []any
	)
	const cols = 21
	for i, r := range records {
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		before, err := marshalMap(r.BeforeValues)
		if err != nil {
			return fmt.Errorf("marshal before values: %w", err)
		}
		after, err := marshalMap(r.AfterValues)
		if err != nil {
			return fmt.Errorf("marshal after values: %w", err)
		}
		details, err := marshalMap(r.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}

		base := i * cols
		group := make([]string, cols)
		for j := range group {
			group[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(group, ", ")+")")
		args = append(args,
			id,
			r.Action,
			nullable(r.ActorID),
			nullable(r.ActorEmail),
			nullable(r.SessionID),
			nullable(r.ResourceType),
			nullable(r.ResourceID),
			before,
			after,
			pq.Array(r.ChangedFields),
			nullable(r.SourceIP),
			nullable(r.UserAgent),
			nullable(r.RequestPath),
			nullable(r.RequestMethod),
			nullable(r.AccessReason),
			r.ProtectedData,
			nullable(r.ComplianceNote),
			nullable(string(r.RiskLevel)),
			nullable(r.ErrorMessage),
			details,
			r.CreatedAt,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO audit_records (%s) VALUES %s ON CONFLICT (id) DO NOTHING",
		insertColumns, strings.Join(placeholders, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit batch: %w", err)
	}
	return nil
}

// Search returns records matching the criteria, most recent first. An empty
// result is a nil error with an empty slice.
func (s *Store) Search(ctx context.Context, criteria audit.Criteria) ([]audit.Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !criteria.StartDate.IsZero() {
		conds = append(conds, "created_at >= "+arg(criteria.StartDate))
	}
	if !criteria.EndDate.IsZero() {
		conds = append(conds, "created_at <= "+arg(criteria.EndDate))
	}
	if criteria.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(criteria.ActorID))
	}
	if criteria.Action != "" {
		conds = append(conds, "action = "+arg(criteria.Action))
	}
	if criteria.ResourceType != "" {
		conds = append(conds, "resource_type = "+arg(criteria.ResourceType))
	}
	if criteria.ProtectedData != nil {
		conds = append(conds, "protected_data = "+arg(*criteria.ProtectedData))
	}
	if criteria.SourceIP != "" {
		conds = append(conds, "source_ip = "+arg(criteria.SourceIP))
	}

	query := "SELECT " + insertColumns + " FROM audit_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if criteria.Limit > 0 {
		query += " LIMIT " + arg(criteria.Limit)
	}
	if criteria.Offset > 0 {
		query += " OFFSET " + arg(criteria.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	records := []audit.Record{}
	for rows.Next() {
		var (
			r             audit.Record
			actorID       sql.NullString
			actorEmail    sql.NullString
			sessionID     sql.NullString
			resourceType  sql.NullString
			resourceID    sql.NullString
			before, after []byte
			changed       pq.StringArray
			sourceIP      sql.NullString
			userAgent     sql.NullString
			requestPath   sql.NullString
			requestMethod sql.NullString
			accessReason  sql.NullString
			note          sql.NullString
			riskLevel     sql.NullString
			errorMessage  sql.NullString
			details       []byte
			createdAt     time.Time
		)

		err := rows.Scan(
			&r.ID, &r.Action, &actorID, &actorEmail, &sessionID,
			&resourceType, &resourceID, &before, &after, &changed,
			&sourceIP, &userAgent, &requestPath, &requestMethod, &accessReason,
			&r.ProtectedData, &note, &riskLevel, &errorMessage, &details, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		r.ActorID = actorID.String
		r.ActorEmail = actorEmail.String
		r.SessionID = sessionID.String
		r.ResourceType = resourceType.String
		r.ResourceID = resourceID.String
		r.ChangedFields = changed
		r.SourceIP = sourceIP.String
		r.UserAgent = userAgent.String
		r.RequestPath = requestPath.String
		r.RequestMethod = requestMethod.String
		r.AccessReason = accessReason.String
		r.ComplianceNote = note.String
		r.RiskLevel = audit.RiskLevel(riskLevel.String)
		r.ErrorMessage = errorMessage.String
		r.CreatedAt = createdAt

		if r.BeforeValues, err = unmarshalMap(before); err != nil {
			return nil, fmt.Errorf("unmarshal before values: %w", err)
		}
		if r.AfterValues, err = unmarshalMap(after); err != nil {
			return nil, fmt.Errorf("unmarshal after values: %w", err)
		}
		if r.Details, err = unmarshalMap(details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}

		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
