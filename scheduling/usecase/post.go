package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	domainPost "github.com/AzielCF/az-social/domains/post"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/kvstore"
	"github.com/AzielCF/az-social/pkg/msgworker"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/domain/platform"
	"github.com/AzielCF/az-social/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultJobTTL = time.Hour

// PostQueue is the part of the scheduler the queue endpoints drive.
type PostQueue interface {
	Pending() []common.ScheduledPost
	Enqueue(ctx context.Context, post common.ScheduledPost) (common.ScheduledPost, error)
	Remove(ctx context.Context, id string) error
}

// HistoryStore records and lists terminal posts.
type HistoryStore interface {
	RecordOutcome(ctx context.Context, post common.ScheduledPost) error
	ListHistory(ctx context.Context, limit int) ([]common.ScheduledPost, error)
}

// JobDispatcher runs publish-now jobs off the request goroutine.
type JobDispatcher interface {
	TryDispatch(job msgworker.PublishJob) bool
}

type PostServiceConfig struct {
	MediaDir string
	JobTTL   time.Duration
}

type postService struct {
	cfg        PostServiceConfig
	queue      PostQueue
	history    HistoryStore
	dispatcher *application.PublishDispatcher
	jobs       JobDispatcher
	kv         kvstore.Store
	notifier   common.Notifier
	now        func() time.Time
}

func NewPostService(cfg PostServiceConfig, queue PostQueue, history HistoryStore, dispatcher *application.PublishDispatcher, jobs JobDispatcher, kv kvstore.Store, notifier common.Notifier) domainPost.IPostUsecase {
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = DefaultJobTTL
	}
	if notifier == nil {
		notifier = common.LogNotifier{}
	}
	return &postService{
		cfg:        cfg,
		queue:      queue,
		history:    history,
		dispatcher: dispatcher,
		jobs:       jobs,
		kv:         kv,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *postService) ListPending(_ context.Context) ([]common.ScheduledPost, error) {
	pending := s.queue.Pending()
	if pending == nil {
		pending = []common.ScheduledPost{}
	}
	return pending, nil
}

func (s *postService) AddManual(ctx context.Context, request domainPost.ManualPostRequest) (common.ScheduledPost, error) {
	if err := validations.ValidateManualPost(ctx, request); err != nil {
		return common.ScheduledPost{}, err
	}
	path, err := s.mediaPath(request.MediaPath)
	if err != nil {
		return common.ScheduledPost{}, err
	}

	post, err := s.queue.Enqueue(ctx, common.ScheduledPost{
		ScheduleID:    common.ManualQueueID,
		ScheduleName:  "Manual",
		MediaPath:     path,
		Caption:       request.Caption,
		Platforms:     request.Platforms,
		ScheduledTime: request.ScheduledTime,
	})
	if err != nil {
		return common.ScheduledPost{}, translateError(err)
	}
	logrus.WithField("post_id", post.ID).Infof("[QUEUE] manual post queued for %s", post.ScheduledTime.Format(time.RFC3339))
	return post, nil
}

func (s *postService) Remove(ctx context.Context, id string) error {
	return translateError(s.queue.Remove(ctx, id))
}

func (s *postService) History(ctx context.Context, limit int) ([]common.ScheduledPost, error) {
	if limit <= 0 {
		limit = domainPost.DefaultHistoryLimit
	}
	posts, err := s.history.ListHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []common.ScheduledPost{}
	}
	return posts, nil
}

// PublishNow hands the post to the worker pool and returns the queued job. Jobs for the
// same media file run in submission order.
func (s *postService) PublishNow(ctx context.Context, request domainPost.PublishNowRequest) (domainPost.PublishJob, error) {
	if err := validations.ValidatePublishNow(ctx, request); err != nil {
		return domainPost.PublishJob{}, err
	}
	path, err := s.mediaPath(request.MediaPath)
	if err != nil {
		return domainPost.PublishJob{}, err
	}

	job := domainPost.PublishJob{
		ID:        uuid.NewString(),
		MediaPath: path,
		Caption:   request.Caption,
		Platforms: common.NormalizedPlatforms(request.Platforms),
		Status:    domainPost.JobStatusQueued,
		CreatedAt: s.now().UTC(),
	}
	if err := s.saveJob(ctx, job); err != nil {
		return domainPost.PublishJob{}, err
	}

	accepted := s.jobs.TryDispatch(msgworker.PublishJob{
		Key:     path,
		JobID:   job.ID,
		Handler: func(ctx context.Context) error { return s.runJob(ctx, job) },
	})
	if !accepted {
		_ = s.kv.Delete(ctx, jobKey(job.ID))
		return domainPost.PublishJob{}, pkgError.ServiceUnavailableError("publish queue is full, try again later")
	}
	return job, nil
}

func (s *postService) GetJob(ctx context.Context, id string) (domainPost.PublishJob, error) {
	var job domainPost.PublishJob
	found, err := kvstore.GetJSON(ctx, s.kv, jobKey(id), &job)
	if err != nil {
		return domainPost.PublishJob{}, err
	}
	if !found {
		return domainPost.PublishJob{}, pkgError.NotFoundError(fmt.Sprintf("job %s not found or expired", id))
	}
	return job, nil
}

func (s *postService) runJob(ctx context.Context, job domainPost.PublishJob) error {
	job.Status = domainPost.JobStatusRunning
	if err := s.saveJob(ctx, job); err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Warn("[PUBLISH_NOW] failed to store job state")
	}

	post := common.ScheduledPost{
		ID:            job.ID,
		ScheduleID:    common.PublishNowID,
		ScheduleName:  "Publish now",
		MediaPath:     job.MediaPath,
		Caption:       job.Caption,
		Platforms:     job.Platforms,
		ScheduledTime: job.CreatedAt,
		CreatedTime:   job.CreatedAt,
		Status:        common.ScheduledPostStatusFailed,
	}

	var runErr error
	media, err := common.NewPayload(job.MediaPath)
	if err != nil {
		runErr = err
		job.Error = err.Error()
		post.Results = make(map[string]common.PlatformResult, len(job.Platforms))
		for _, p := range job.Platforms {
			post.Results[p] = common.PlatformResult{OK: false, Message: err.Error()}
		}
	} else {
		outcome := s.dispatcher.Dispatch(platform.WithPostID(ctx, job.ID), job.Platforms, media, job.Caption)
		post.Results = outcome.Results
		if outcome.Success {
			post.Status = common.ScheduledPostStatusPublished
		} else {
			runErr = fmt.Errorf("%s could not be published to any platform", filepath.Base(job.MediaPath))
			job.Error = runErr.Error()
		}
	}

	finished := s.now().UTC()
	post.PublishedTime = &finished
	job.FinishedAt = &finished
	job.Results = post.Results
	job.Status = domainPost.JobStatusFailed
	if post.Status == common.ScheduledPostStatusPublished {
		job.Status = domainPost.JobStatusPublished
	}

	if err := s.saveJob(ctx, job); err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Warn("[PUBLISH_NOW] failed to store job result")
	}
	if err := s.history.RecordOutcome(ctx, post); err != nil {
		logrus.WithError(err).WithField("job_id", job.ID).Error("[PUBLISH_NOW] failed to record post history")
	}
	s.notifier.PostPublished(post)
	if runErr != nil {
		s.notifier.Error("Publish failed", runErr.Error())
	}
	return runErr
}

func (s *postService) saveJob(ctx context.Context, job domainPost.PublishJob) error {
	return kvstore.PutJSON(ctx, s.kv, jobKey(job.ID), job, s.cfg.JobTTL)
}

func (s *postService) mediaPath(name string) (string, error) {
	return resolveMediaPath(s.cfg.MediaDir, name)
}

// resolveMediaPath resolves names relative to dir. Absolute paths are used as given.
func resolveMediaPath(dir, name string) (string, error) {
	if filepath.IsAbs(name) || dir == "" {
		return filepath.Clean(name), nil
	}
	path, err := utils.ResolveMediaPath(dir, name)
	if err != nil {
		return "", pkgError.ValidationError(err.Error())
	}
	return path, nil
}

func jobKey(id string) string {
	return "publish_job:" + id
}
