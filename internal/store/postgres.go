package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"rag-service/internal/index"
	"rag-service/internal/models"
)

// chunkRow is the bun model for one persisted index entry. The embedding
// column is fixed at vector(768) to match nomic-embed-text; a different
// embedding model needs a schema migration.
type chunkRow struct {
	bun.BaseModel `bun:"table:rag_chunks,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	DocumentID    string    `bun:"document_id,notnull"`
	ChunkID       int       `bun:"chunk_id,notnull"`
	Content       string    `bun:"content,notnull"`
	TokenCount    int       `bun:"token_count,notnull"`
	StartOffset   int       `bun:"start_offset,notnull"`
	EndOffset     int       `bun:"end_offset,notnull"`
	Section       string    `bun:"section"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
}

// PostgresStore persists indexes in a pgvector-enabled Postgres database.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, dsn string, debug bool) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*chunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, documentID string, entries []index.Entry) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*chunkRow)(nil)).Where("document_id = ?", documentID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear previous index: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		rows := make([]chunkRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, chunkRow{
				DocumentID:  documentID,
				ChunkID:     e.Chunk.ChunkID,
				Content:     e.Chunk.Text,
				TokenCount:  e.Chunk.TokenCount,
				StartOffset: e.Chunk.StartOffset,
				EndOffset:   e.Chunk.EndOffset,
				Section:     e.Chunk.Section,
				Embedding:   e.Vector,
			})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to store index: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Load(ctx context.Context, documentID string) ([]index.Entry, error) {
	var rows []chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("document_id = ?", documentID).
		Order("chunk_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	entries := make([]index.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, index.Entry{
			Chunk: models.Chunk{
				ChunkID:     r.ChunkID,
				Text:        r.Content,
				TokenCount:  r.TokenCount,
				StartOffset: r.StartOffset,
				EndOffset:   r.EndOffset,
				Section:     r.Section,
			},
			Vector: r.Embedding,
		})
	}
	return entries, nil
}

func (s *PostgresStore) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.NewDelete().Model((*chunkRow)(nil)).Where("document_id = ?", documentID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*chunkRow)(nil)).
		ColumnExpr("DISTINCT document_id").
		Order("document_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
