package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"pitchcast/pkg/domain"
)

const migrateLockID int64 = 48124812

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&CampaignModel{}, &VideoModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM video_models v
				WHERE NOT EXISTS (SELECT 1 FROM campaign_models c WHERE c.id = v.campaign_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'video_models'
					AND constraint_name = 'video_models_campaign_id_fkey'
				) THEN
					ALTER TABLE video_models
					ADD CONSTRAINT video_models_campaign_id_fkey
					FOREIGN KEY (campaign_id) REFERENCES campaign_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure campaign foreign key: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateCampaign inserts a new campaign record.
func (s *GormStore) CreateCampaign(c domain.Campaign) error {
	model := campaignToModel(c)
	return s.db.Create(&model).Error
}

// GetCampaign retrieves a campaign.
func (s *GormStore) GetCampaign(id string) (domain.Campaign, bool, error) {
	var model CampaignModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Campaign{}, false, nil
		}
		return domain.Campaign{}, false, err
	}
	return campaignFromModel(model), true, nil
}

// UpdateCampaign applies a partial update without touching status.
func (s *GormStore) UpdateCampaign(id string, fields CampaignFields) error {
	updates := campaignUpdates(fields)
	return s.db.Model(&CampaignModel{}).Where("id = ?", id).Updates(updates).Error
}

// AdvanceCampaign applies fields and the from→to status transition in one
// conditional write.
func (s *GormStore) AdvanceCampaign(id string, from, to domain.CampaignStatus, fields CampaignFields) error {
	updates := campaignUpdates(fields)
	updates["status"] = string(to)
	tx := s.db.Model(&CampaignModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// ListCampaignsByOwner returns campaigns filtered by owner.
func (s *GormStore) ListCampaignsByOwner(ownerID string) ([]domain.Campaign, error) {
	var models []CampaignModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Campaign, 0, len(models))
	for _, m := range models {
		res = append(res, campaignFromModel(m))
	}
	return res, nil
}

// CreateVideo inserts a new video record.
func (s *GormStore) CreateVideo(v domain.Video) error {
	model := videoToModel(v)
	return s.db.Create(&model).Error
}

// GetVideo retrieves a video.
func (s *GormStore) GetVideo(id string) (domain.Video, bool, error) {
	var model VideoModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Video{}, false, nil
		}
		return domain.Video{}, false, err
	}
	return videoFromModel(model), true, nil
}

// AdvanceVideo applies fields and the from→to status transition in one
// conditional write.
func (s *GormStore) AdvanceVideo(id string, from, to domain.VideoStatus, fields VideoFields) error {
	updates := videoUpdates(fields)
	updates["status"] = string(to)
	tx := s.db.Model(&VideoModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkVideoFailed moves a non-completed video to failed with a recorded
// cause. Re-marking an already failed video is a no-op.
func (s *GormStore) MarkVideoFailed(id string, cause string) error {
	tx := s.db.Model(&VideoModel{}).
		Where("id = ? AND status NOT IN ?", id, []string{string(domain.VideoDone), string(domain.VideoFailed)}).
		Updates(map[string]any{
			"status":        string(domain.VideoFailed),
			"error_message": cause,
			"updated_at":    time.Now().UTC(),
		})
	return tx.Error
}

// ListVideosByStatus returns videos in a given status, oldest first.
func (s *GormStore) ListVideosByStatus(status domain.VideoStatus) ([]domain.Video, error) {
	return s.listVideos("status = ?", string(status))
}

// ListVideosByCampaign returns a campaign's videos in creation order.
func (s *GormStore) ListVideosByCampaign(campaignID string) ([]domain.Video, error) {
	return s.listVideos("campaign_id = ?", campaignID)
}

func (s *GormStore) listVideos(cond string, arg any) ([]domain.Video, error) {
	var models []VideoModel
	if err := s.db.Where(cond, arg).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Video, 0, len(models))
	for _, m := range models {
		res = append(res, videoFromModel(m))
	}
	return res, nil
}

func campaignUpdates(fields CampaignFields) map[string]any {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if fields.VideoURL != "" {
		updates["video_url"] = fields.VideoURL
	}
	if fields.SampleURL != "" {
		updates["sample_url"] = fields.SampleURL
	}
	if fields.AudioURL != "" {
		updates["audio_url"] = fields.AudioURL
	}
	if fields.Transcript != "" {
		updates["transcript"] = fields.Transcript
	}
	if fields.VoiceID != "" {
		updates["voice_id"] = fields.VoiceID
	}
	return updates
}

func videoUpdates(fields VideoFields) map[string]any {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if fields.Script != "" {
		updates["script"] = fields.Script
	}
	if fields.AudioURL != "" {
		updates["audio_url"] = fields.AudioURL
	}
	if fields.VideoURL != "" {
		updates["video_url"] = fields.VideoURL
	}
	if fields.SynthJobID != "" {
		updates["synth_job_id"] = fields.SynthJobID
	}
	return updates
}

func campaignToModel(c domain.Campaign) CampaignModel {
	return CampaignModel{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		Name:           c.Name,
		Description:    c.Description,
		Type:           c.Type,
		Model:          c.Model,
		RecipientCount: c.RecipientCount,
		VideoURL:       c.VideoURL,
		SampleURL:      c.SampleURL,
		AudioURL:       c.AudioURL,
		Transcript:     c.Transcript,
		VoiceID:        c.VoiceID,
		Status:         string(c.Status),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func campaignFromModel(m CampaignModel) domain.Campaign {
	return domain.Campaign{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		Name:           m.Name,
		Description:    m.Description,
		Type:           m.Type,
		Model:          m.Model,
		RecipientCount: m.RecipientCount,
		VideoURL:       m.VideoURL,
		SampleURL:      m.SampleURL,
		AudioURL:       m.AudioURL,
		Transcript:     m.Transcript,
		VoiceID:        m.VoiceID,
		Status:         domain.CampaignStatus(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func videoToModel(v domain.Video) VideoModel {
	rawRow, _ := json.Marshal(v.Row)
	return VideoModel{
		ID:           v.ID,
		OwnerID:      v.OwnerID,
		CampaignID:   v.CampaignID,
		Email:        v.Email,
		Row:          rawRow,
		Script:       v.Script,
		AudioURL:     v.AudioURL,
		VideoURL:     v.VideoURL,
		SynthJobID:   v.SynthJobID,
		Status:       string(v.Status),
		ErrorMessage: v.ErrorMessage,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func videoFromModel(m VideoModel) domain.Video {
	var row domain.RecipientRow
	if len(m.Row) > 0 {
		_ = json.Unmarshal(m.Row, &row)
	}
	return domain.Video{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		CampaignID:   m.CampaignID,
		Email:        m.Email,
		Row:          row,
		Script:       m.Script,
		AudioURL:     m.AudioURL,
		VideoURL:     m.VideoURL,
		SynthJobID:   m.SynthJobID,
		Status:       domain.VideoStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
