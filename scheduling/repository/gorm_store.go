package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type scheduleModel struct {
	ID              string                                           `gorm:"primaryKey;column:id"`
	Position        int                                              `gorm:"column:position;not null;index"`
	Name            string                                           `gorm:"column:name;not null"`
	Mode            string                                           `gorm:"column:mode;default:'basic'"`
	StartDate       string                                           `gorm:"column:start_date"`
	EndDate         string                                           `gorm:"column:end_date"`
	PostsPerDay     int                                              `gorm:"column:posts_per_day;default:1"`
	Days            datatypes.JSONSlice[string]                      `gorm:"column:days"`
	PostingTimes    datatypes.JSONSlice[string]                      `gorm:"column:posting_times"`
	DaySchedules    datatypes.JSONType[map[string]common.DaySchedule] `gorm:"column:day_schedules"`
	Platforms       datatypes.JSONSlice[string]                      `gorm:"column:platforms"`
	Active          bool                                             `gorm:"column:active;default:false"`
	Rules           datatypes.JSONType[common.ScheduleRules]         `gorm:"column:rules"`
	MediaDir        string                                           `gorm:"column:media_dir"`
	CaptionTemplate string                                           `gorm:"column:caption_template"`
	AICaption       bool                                             `gorm:"column:ai_caption;default:false"`
	CreatedAt       time.Time                                        `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time                                        `gorm:"column:updated_at;not null"`
}

func (scheduleModel) TableName() string { return "schedules" }

// PostColumns is shared by the pending and history tables.
type PostColumns struct {
	ScheduleID       string                                                `gorm:"column:schedule_id;not null;index"`
	ScheduleName     string                                                `gorm:"column:schedule_name"`
	MediaPath        string                                                `gorm:"column:media_path"`
	Caption          string                                                `gorm:"column:caption"`
	Platforms        datatypes.JSONSlice[string]                           `gorm:"column:platforms"`
	ScheduledTime    time.Time                                             `gorm:"column:scheduled_time;not null;index"`
	CreatedTime      time.Time                                             `gorm:"column:created_time;not null"`
	Status           string                                                `gorm:"column:status;default:'scheduled'"`
	CampaignPosition *int                                                  `gorm:"column:campaign_position"`
	PublishedTime    *time.Time                                            `gorm:"column:published_time"`
	Results          datatypes.JSONType[map[string]common.PlatformResult] `gorm:"column:results"`
}

type pendingPostModel struct {
	ID          string `gorm:"primaryKey;column:id"`
	PostColumns `gorm:"embedded"`
}

func (pendingPostModel) TableName() string { return "pending_posts" }

type postHistoryModel struct {
	Seq         int64  `gorm:"primaryKey;autoIncrement;column:seq"`
	PostID      string `gorm:"column:post_id;not null;index"`
	PostColumns `gorm:"embedded"`
}

func (postHistoryModel) TableName() string { return "post_history" }

type campaignModel struct {
	ID           string                                       `gorm:"primaryKey;column:id"`
	Position     int                                          `gorm:"column:position;not null;index"`
	Name         string                                       `gorm:"column:name;not null"`
	StartDate    string                                       `gorm:"column:start_date"`
	PostsPerDay  int                                          `gorm:"column:posts_per_day;default:1"`
	PostingTimes datatypes.JSONSlice[string]                  `gorm:"column:posting_times"`
	Platforms    datatypes.JSONSlice[string]                  `gorm:"column:platforms"`
	Active       bool                                         `gorm:"column:active;default:false"`
	Posts        datatypes.JSONType[[]common.CampaignPost]    `gorm:"column:posts"`
	CreatedAt    time.Time                                    `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time                                    `gorm:"column:updated_at;not null"`
}

func (campaignModel) TableName() string { return "campaigns" }

// --- Repository Implementation ---

// GormStore keeps the same collections as JSONStore in sqlite or postgres tables. Every
// save rewrites the whole collection inside one transaction.
type GormStore struct {
	db           *gorm.DB
	historyLimit int
}

func NewGormStore(db *gorm.DB, historyLimit int) *GormStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &GormStore{db: db, historyLimit: historyLimit}
}

func (r *GormStore) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&scheduleModel{},
		&pendingPostModel{},
		&postHistoryModel{},
		&campaignModel{},
	)
}

// Schedules

func (r *GormStore) LoadSchedules(ctx context.Context) ([]common.Schedule, error) {
	var models []scheduleModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]common.Schedule, len(models))
	for i, m := range models {
		res[i] = fromScheduleModel(m)
	}
	return res, nil
}

func (r *GormStore) SaveSchedules(ctx context.Context, schedules []common.Schedule) error {
	models := make([]scheduleModel, len(schedules))
	for i, s := range schedules {
		models[i] = toScheduleModel(s, i)
	}
	return replaceAll(ctx, r.db, models)
}

// Pending posts

func (r *GormStore) LoadPending(ctx context.Context) ([]common.ScheduledPost, error) {
	var models []pendingPostModel
	if err := r.db.WithContext(ctx).Order("scheduled_time ASC, created_time ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]common.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromPostColumns(m.ID, m.PostColumns)
	}
	return res, nil
}

func (r *GormStore) SavePending(ctx context.Context, posts []common.ScheduledPost) error {
	sorted := sortedCopy(posts)
	models := make([]pendingPostModel, len(sorted))
	for i, p := range sorted {
		models[i] = pendingPostModel{ID: p.ID, PostColumns: toPostColumns(p)}
	}
	return replaceAll(ctx, r.db, models)
}

// History

func (r *GormStore) RecordOutcome(ctx context.Context, post common.ScheduledPost) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := postHistoryModel{PostID: post.ID, PostColumns: toPostColumns(post)}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if cutoff := m.Seq - int64(r.historyLimit); cutoff > 0 {
			return tx.Where("seq <= ?", cutoff).Delete(&postHistoryModel{}).Error
		}
		return nil
	})
}

func (r *GormStore) ListHistory(ctx context.Context, limit int) ([]common.ScheduledPost, error) {
	q := r.db.WithContext(ctx).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []postHistoryModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]common.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromPostColumns(m.PostID, m.PostColumns)
	}
	return res, nil
}

// Campaigns

func (r *GormStore) LoadCampaigns(ctx context.Context) ([]common.Campaign, error) {
	var models []campaignModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]common.Campaign, len(models))
	for i, m := range models {
		res[i] = fromCampaignModel(m)
	}
	return res, nil
}

func (r *GormStore) SaveCampaigns(ctx context.Context, campaigns []common.Campaign) error {
	models := make([]campaignModel, len(campaigns))
	for i, c := range campaigns {
		models[i] = toCampaignModel(c, i)
	}
	return replaceAll(ctx, r.db, models)
}

// replaceAll rewrites a whole table with rows in one transaction.
func replaceAll[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table T
		if err := tx.Where("1 = 1").Delete(&table).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

// --- Mappers ---

func parseStoredDate(s string) timeutils.Date {
	if s == "" {
		return timeutils.Date{}
	}
	d, err := timeutils.ParseDate(s)
	if err != nil {
		return timeutils.Date{}
	}
	return d
}

func toScheduleModel(s common.Schedule, position int) scheduleModel {
	return scheduleModel{
		ID:              s.ID,
		Position:        position,
		Name:            s.Name,
		Mode:            string(s.Mode),
		StartDate:       s.StartDate.String(),
		EndDate:         s.EndDate.String(),
		PostsPerDay:     s.PostsPerDay,
		Days:            datatypes.JSONSlice[string](s.Days),
		PostingTimes:    datatypes.JSONSlice[string](s.PostingTimes),
		DaySchedules:    datatypes.NewJSONType(s.DaySchedules),
		Platforms:       datatypes.JSONSlice[string](s.Platforms),
		Active:          s.Active,
		Rules:           datatypes.NewJSONType(s.Rules),
		MediaDir:        s.MediaDir,
		CaptionTemplate: s.CaptionTemplate,
		AICaption:       s.AICaption,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func fromScheduleModel(m scheduleModel) common.Schedule {
	return common.Schedule{
		ID:              m.ID,
		Name:            m.Name,
		Mode:            common.ScheduleMode(m.Mode),
		StartDate:       parseStoredDate(m.StartDate),
		EndDate:         parseStoredDate(m.EndDate),
		PostsPerDay:     m.PostsPerDay,
		Days:            []string(m.Days),
		PostingTimes:    []string(m.PostingTimes),
		DaySchedules:    m.DaySchedules.Data(),
		Platforms:       []string(m.Platforms),
		Active:          m.Active,
		Rules:           m.Rules.Data(),
		MediaDir:        m.MediaDir,
		CaptionTemplate: m.CaptionTemplate,
		AICaption:       m.AICaption,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toPostColumns(p common.ScheduledPost) PostColumns {
	return PostColumns{
		ScheduleID:       p.ScheduleID,
		ScheduleName:     p.ScheduleName,
		MediaPath:        p.MediaPath,
		Caption:          p.Caption,
		Platforms:        datatypes.JSONSlice[string](p.Platforms),
		ScheduledTime:    p.ScheduledTime,
		CreatedTime:      p.CreatedTime,
		Status:           string(p.Status),
		CampaignPosition: p.CampaignPosition,
		PublishedTime:    p.PublishedTime,
		Results:          datatypes.NewJSONType(p.Results),
	}
}

func fromPostColumns(id string, c PostColumns) common.ScheduledPost {
	return common.ScheduledPost{
		ID:               id,
		ScheduleID:       c.ScheduleID,
		ScheduleName:     c.ScheduleName,
		MediaPath:        c.MediaPath,
		Caption:          c.Caption,
		Platforms:        []string(c.Platforms),
		ScheduledTime:    c.ScheduledTime,
		CreatedTime:      c.CreatedTime,
		Status:           common.ScheduledPostStatus(c.Status),
		CampaignPosition: c.CampaignPosition,
		PublishedTime:    c.PublishedTime,
		Results:          c.Results.Data(),
	}
}

func toCampaignModel(c common.Campaign, position int) campaignModel {
	return campaignModel{
		ID:           c.ID,
		Position:     position,
		Name:         c.Name,
		StartDate:    c.Rule.StartDate.String(),
		PostsPerDay:  c.Rule.PostsPerDay,
		PostingTimes: datatypes.JSONSlice[string](c.Rule.PostingTimes),
		Platforms:    datatypes.JSONSlice[string](c.Platforms),
		Active:       c.Active,
		Posts:        datatypes.NewJSONType(c.Posts),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromCampaignModel(m campaignModel) common.Campaign {
	return common.Campaign{
		ID:   m.ID,
		Name: m.Name,
		Rule: common.CampaignRule{
			StartDate:    parseStoredDate(m.StartDate),
			PostsPerDay:  m.PostsPerDay,
			PostingTimes: []string(m.PostingTimes),
		},
		Platforms: []string(m.Platforms),
		Active:    m.Active,
		Posts:     m.Posts.Data(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
