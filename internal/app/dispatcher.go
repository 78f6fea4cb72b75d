package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"pitchcast/pkg/domain"
)

// RowError reports one recipient row that could not be materialized. Sibling
// rows are unaffected.
type RowError struct {
	Row int
	Err error
}

// MaterializeVideos creates one Video per valid recipient row and submits
// each created video to the asynchronous task runner. Row failures are
// accumulated, never aborting the batch; the count of created videos plus
// row errors equals len(rows). Generation proceeds independently of the
// campaign pipeline's own stage advancement.
func (a *App) MaterializeVideos(ctx context.Context, campaignID, ownerID string, rows []domain.RecipientRow) ([]string, []RowError, error) {
	_, ok, err := a.store.GetCampaign(campaignID)
	if err != nil {
		return nil, nil, fmt.Errorf("load campaign: %w", err)
	}
	if !ok {
		return nil, nil, ErrCampaignNotFound
	}

	ids := make([]string, 0, len(rows))
	var rowErrs []RowError
	for i, row := range rows {
		email, ok := row.Email()
		if !ok {
			rowErrs = append(rowErrs, RowError{Row: i, Err: &ValidationError{Row: i, Field: domain.EmailField}})
			continue
		}
		now := time.Now().UTC()
		v := domain.Video{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			CampaignID: campaignID,
			Email:      email,
			Row:        row,
			Status:     domain.VideoCreated,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := a.store.CreateVideo(v); err != nil {
			rowErrs = append(rowErrs, RowError{Row: i, Err: fmt.Errorf("create video: %w", err)})
			continue
		}
		ids = append(ids, v.ID)
	}

	// Enqueue after all rows are materialized. A failed enqueue fails only
	// that video.
	for _, id := range ids {
		if err := a.enqueuer.Enqueue(ctx, id); err != nil {
			cause := fmt.Sprintf("enqueue generation: %v", err)
			if markErr := a.store.MarkVideoFailed(id, cause); markErr != nil {
				slog.Error("mark video failed", "video_id", id, "err", markErr)
			}
			slog.Error("enqueue video", "video_id", id, "err", err)
		}
	}
	return ids, rowErrs, nil
}
