package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type metadataRow struct {
	bun.BaseModel `bun:"table:conversation_input_metadata"`

	ConversationID string            `bun:"conversation_id,pk"`
	Fields         map[string]string `bun:"fields,type:jsonb"`
	Timestamp      float64           `bun:"ts"`
}

type extractedRow struct {
	bun.BaseModel `bun:"table:conversation_extracted_data"`

	ConversationID string `bun:"conversation_id,pk"`
	Stage          string `bun:"stage,pk"`
	Payload        string `bun:"payload"`
}

// PostgresStore is the bun-backed Store for deployments that already run
// Postgres. Layout mirrors the Redis hashes: one metadata row per
// conversation, one extracted-data row per (conversation, stage).
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := &PostgresStore{db: db, now: time.Now}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate conversation tables: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*metadataRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*extractedRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *PostgresStore) SaveInputMetadata(ctx context.Context, conversationID string, metadata map[string]string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}

	fields := make(map[string]string, len(metadata))
	for k, v := range metadata {
		fields[k] = v
	}

	row := &metadataRow{
		ConversationID: conversationID,
		Fields:         fields,
		Timestamp:      float64(s.now().UnixNano()) / float64(time.Second),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (conversation_id) DO UPDATE").
		Set("fields = EXCLUDED.fields, ts = EXCLUDED.ts").
		Exec(ctx)
	return err
}

func (s *PostgresStore) SaveExtractedData(ctx context.Context, conversationID, stage string, data contractx.Record) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	if strings.TrimSpace(stage) == "" {
		return ErrEmptyStage
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal stage %q record: %w", stage, err)
	}

	row := &extractedRow{
		ConversationID: conversationID,
		Stage:          stage,
		Payload:        string(payload),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (conversation_id, stage) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Exec(ctx)
	return err
}

func (s *PostgresStore) GetConversationContext(ctx context.Context, conversationID string) (*Context, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidConversation
	}

	metadata := map[string]any{}
	var meta metadataRow
	err := s.db.NewSelect().
		Model(&meta).
		Where("conversation_id = ?", conversationID).
		Scan(ctx)
	switch {
	case err == nil:
		for k, v := range meta.Fields {
			metadata[k] = v
		}
		metadata[MetadataTimestampField] = meta.Timestamp
	case errors.Is(err, sql.ErrNoRows):
		// no metadata yet: empty map, matching the Redis store
	default:
		return nil, err
	}

	var rows []extractedRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("conversation_id = ?", conversationID).
		Scan(ctx); err != nil {
		return nil, err
	}

	extracted := make(map[string]any, len(rows))
	for _, row := range rows {
		var parsed map[string]any
		if uerr := json.Unmarshal([]byte(row.Payload), &parsed); uerr == nil {
			extracted[row.Stage] = parsed
			continue
		}
		extracted[row.Stage] = row.Payload
	}

	return &Context{
		InputMetadata: metadata,
		ExtractedData: extracted,
	}, nil
}

func (s *PostgresStore) ClearContext(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidConversation
	}
	if _, err := s.db.NewDelete().
		Model((*metadataRow)(nil)).
		Where("conversation_id = ?", conversationID).
		Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*extractedRow)(nil)).
		Where("conversation_id = ?", conversationID).
		Exec(ctx)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
