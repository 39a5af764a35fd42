package db

import (
	"context"
	"database/sql"
	"fmt"

	"chapter-render-service/internal/models"
	"github.com/google/uuid"
)

func (db *DB) GetChapter(ctx context.Context, id uuid.UUID) (*models.Chapter, error) {
	query := `
		SELECT
			id, project_id, chapter_number, title, status, video_url,
			created_at, updated_at
		FROM chapters
		WHERE id = $1
	`

	chapter := &models.Chapter{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&chapter.ID, &chapter.ProjectID, &chapter.ChapterNumber,
		&chapter.Title, &chapter.Status, &chapter.VideoURL,
		&chapter.CreatedAt, &chapter.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chapter not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}

	return chapter, nil
}

// GetChapterBlocks returns the chapter's script blocks in narrative order
// (ascending sequence_number).
func (db *DB) GetChapterBlocks(ctx context.Context, chapterID uuid.UUID) ([]models.ScriptBlock, error) {
	query := `
		SELECT
			id, chapter_id, sequence_number, text, assets,
			created_at, updated_at
		FROM script_blocks
		WHERE chapter_id = $1
		ORDER BY sequence_number ASC
	`

	rows, err := db.QueryContext(ctx, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query script blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.ScriptBlock
	for rows.Next() {
		var block models.ScriptBlock
		err := rows.Scan(
			&block.ID, &block.ChapterID, &block.SequenceNumber,
			&block.Text, &block.Assets,
			&block.CreatedAt, &block.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan script block: %w", err)
		}
		blocks = append(blocks, block)
	}

	return blocks, rows.Err()
}

func (db *DB) UpdateChapterStatus(ctx context.Context, id uuid.UUID, status models.ChapterStatus) error {
	query := `UPDATE chapters SET status = $1, updated_at = NOW() WHERE id = $2`

	_, err := db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update chapter status: %w", err)
	}
	return nil
}

// SetChapterRendered marks a chapter rendered and records where the final
// video ended up (remote URL, or local path when publishing was skipped).
func (db *DB) SetChapterRendered(ctx context.Context, id uuid.UUID, videoURL string) error {
	query := `
		UPDATE chapters
		SET status = $1, video_url = $2, updated_at = NOW()
		WHERE id = $3
	`

	_, err := db.ExecContext(ctx, query, models.ChapterStatusRendered, videoURL, id)
	if err != nil {
		return fmt.Errorf("failed to mark chapter rendered: %w", err)
	}
	return nil
}
