package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kdimtricp/otoscan/internal/models/frame_prediction"
)

type FramePredictionRepo struct {
	db *DB
}

func NewFramePredictionRepo(db *DB) *FramePredictionRepo {
	return &FramePredictionRepo{db: db}
}

// placeholders returns "$1, $2, ..." for postgres and "?, ?, ..." for sqlite,
// starting at offset+1.
func (r *FramePredictionRepo) placeholders(offset, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if r.db.dbType == "postgres" {
			parts[i] = fmt.Sprintf("$%d", offset+i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// CreateBatch stores every prediction of one run in a single transaction.
// IDs are assigned here.
func (r *FramePredictionRepo) CreateBatch(ctx context.Context, predictions []*frame_prediction.FramePredictionDB) error {
	if len(predictions) == 0 {
		return nil
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const columns = 8
	query := fmt.Sprintf(`
		INSERT INTO frame_predictions (
			id, classification_id, position, frame_index, label,
			confidence, probabilities, created_at
		) VALUES (%s)`, r.placeholders(0, columns))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range predictions {
		p.ID = uuid.New().String()

		probabilities := string(p.Probabilities)
		if probabilities == "" {
			probabilities = "[]"
		}

		if _, err := stmt.ExecContext(ctx,
			p.ID,
			p.ClassificationID,
			p.Position,
			p.FrameIndex,
			p.Label,
			p.Confidence,
			probabilities,
			p.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert frame prediction %d: %w", p.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit frame predictions: %w", err)
	}
	return nil
}

func (r *FramePredictionRepo) GetByClassificationID(ctx context.Context, classificationID string) ([]*frame_prediction.FramePredictionDB, error) {
	query := fmt.Sprintf(`
		SELECT id, classification_id, position, frame_index, label,
			   confidence, probabilities, created_at
		FROM frame_predictions
		WHERE classification_id = %s
		ORDER BY position`, r.placeholders(0, 1))

	rows, err := r.db.conn.QueryContext(ctx, query, classificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frame predictions: %w", err)
	}
	defer rows.Close()

	predictions := []*frame_prediction.FramePredictionDB{}
	for rows.Next() {
		p := &frame_prediction.FramePredictionDB{}
		var probabilities []byte
		if err := rows.Scan(
			&p.ID,
			&p.ClassificationID,
			&p.Position,
			&p.FrameIndex,
			&p.Label,
			&p.Confidence,
			&probabilities,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan frame prediction: %w", err)
		}
		if len(probabilities) > 0 {
			p.Probabilities = append([]byte(nil), probabilities...)
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}
