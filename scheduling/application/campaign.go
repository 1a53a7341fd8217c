package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RecomputeCampaign assigns campaign_position and scheduled_time to every post from its
// index in posts. Published and failed posts keep their recorded time but still occupy
// their slot, so the result only depends on the order and the rule.
func RecomputeCampaign(posts []common.CampaignPost, rule common.CampaignRule, loc *time.Location) ([]common.CampaignPost, error) {
	if rule.PostsPerDay < 1 {
		return nil, fmt.Errorf("posts_per_day must be at least 1")
	}
	if len(rule.PostingTimes) == 0 {
		return nil, fmt.Errorf("posting_times must not be empty")
	}
	clocks := make([]timeutils.Clock, len(rule.PostingTimes))
	for i, raw := range rule.PostingTimes {
		c, err := timeutils.ParseClock(raw)
		if err != nil {
			return nil, err
		}
		clocks[i] = c
	}

	out := make([]common.CampaignPost, len(posts))
	currentDate := rule.StartDate
	assignedToday := 0
	timeIndex := 0

	for i, p := range posts {
		p.CampaignPosition = i
		if p.Mutable() {
			p.ScheduledTime = currentDate.At(loc, clocks[timeIndex%len(clocks)])
		}
		out[i] = p

		assignedToday++
		timeIndex++
		if assignedToday == rule.PostsPerDay {
			currentDate = currentDate.AddDays(1)
			assignedToday = 0
			timeIndex = 0
		}
	}
	return out, nil
}

// ReorderPosts returns posts arranged in the order of orderedIDs, which must name every
// post exactly once.
func ReorderPosts(posts []common.CampaignPost, orderedIDs []string) ([]common.CampaignPost, error) {
	if len(orderedIDs) != len(posts) {
		return nil, common.ErrInvalidReorder
	}
	byID := make(map[string]common.CampaignPost, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	out := make([]common.CampaignPost, 0, len(posts))
	for _, id := range orderedIDs {
		p, ok := byID[id]
		if !ok {
			return nil, common.ErrInvalidReorder
		}
		delete(byID, id)
		out = append(out, p)
	}
	return out, nil
}

// CampaignRepository is the persistence the campaign service needs.
type CampaignRepository interface {
	LoadCampaigns(ctx context.Context) ([]common.Campaign, error)
	SaveCampaigns(ctx context.Context, campaigns []common.Campaign) error
}

// CampaignQueue is the part of the scheduler campaigns push their posts into.
type CampaignQueue interface {
	ReplaceSchedule(ctx context.Context, scheduleID string, build func(ctx context.Context) ([]common.ScheduledPost, error)) error
	RemoveBySchedule(ctx context.Context, scheduleID string) error
}

// CampaignService owns campaign editing and keeps queued campaign posts in sync.
//
// mu guards the read-modify-write of the campaign file and is never held while waiting on
// the queue: the queue owner takes it itself, from HandleOutcome and from sync's build step.
type CampaignService struct {
	mu       sync.Mutex
	repo     CampaignRepository
	queue    CampaignQueue
	notifier common.Notifier
	loc      *time.Location
	now      func() time.Time
}

func NewCampaignService(repo CampaignRepository, queue CampaignQueue, notifier common.Notifier, loc *time.Location) *CampaignService {
	if notifier == nil {
		notifier = common.LogNotifier{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &CampaignService{repo: repo, queue: queue, notifier: notifier, loc: loc, now: time.Now}
}

func (s *CampaignService) List(ctx context.Context) ([]common.Campaign, error) {
	return s.repo.LoadCampaigns(ctx)
}

func (s *CampaignService) Get(ctx context.Context, id string) (common.Campaign, error) {
	campaigns, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return common.Campaign{}, err
	}
	for _, c := range campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return common.Campaign{}, common.ErrCampaignNotFound
}

func (s *CampaignService) Create(ctx context.Context, c common.Campaign) (common.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaigns, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return common.Campaign{}, err
	}
	now := s.now().UTC()
	c.ID = uuid.NewString()
	c.Platforms = common.NormalizedPlatforms(c.Platforms)
	c.CreatedAt, c.UpdatedAt = now, now
	for i := range c.Posts {
		if c.Posts[i].ID == "" {
			c.Posts[i].ID = uuid.NewString()
		}
		if c.Posts[i].Status == "" {
			c.Posts[i].Status = common.CampaignPostStatusDraft
		}
	}
	if c.Posts, err = RecomputeCampaign(c.Posts, c.Rule, s.loc); err != nil {
		return common.Campaign{}, err
	}

	campaigns = append(campaigns, c)
	if err := s.repo.SaveCampaigns(ctx, campaigns); err != nil {
		return common.Campaign{}, err
	}
	return c, nil
}

func (s *CampaignService) Delete(ctx context.Context, id string) error {
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	if s.queue != nil {
		return s.queue.RemoveBySchedule(ctx, id)
	}
	return nil
}

func (s *CampaignService) remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaigns, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return err
	}
	idx := indexOfCampaign(campaigns, id)
	if idx < 0 {
		return common.ErrCampaignNotFound
	}
	campaigns = append(campaigns[:idx], campaigns[idx+1:]...)
	return s.repo.SaveCampaigns(ctx, campaigns)
}

// AddPost appends a draft post and recomputes the campaign.
func (s *CampaignService) AddPost(ctx context.Context, id string, post common.CampaignPost) (common.Campaign, error) {
	return s.mutate(ctx, id, func(c *common.Campaign) error {
		post.ID = uuid.NewString()
		post.Status = common.CampaignPostStatusDraft
		if c.Active {
			post.Status = common.CampaignPostStatusScheduled
		}
		c.Posts = append(c.Posts, post)
		return nil
	})
}

// Reorder applies a user-chosen order (drag and drop) and recomputes every downstream time.
func (s *CampaignService) Reorder(ctx context.Context, id string, orderedIDs []string) (common.Campaign, error) {
	return s.mutate(ctx, id, func(c *common.Campaign) error {
		reordered, err := ReorderPosts(c.Posts, orderedIDs)
		if err != nil {
			return err
		}
		c.Posts = reordered
		return nil
	})
}

// Activate marks draft posts as scheduled and hands every future post to the scheduler.
func (s *CampaignService) Activate(ctx context.Context, id string) (common.Campaign, error) {
	return s.mutate(ctx, id, func(c *common.Campaign) error {
		c.Active = true
		for i := range c.Posts {
			if c.Posts[i].Status == common.CampaignPostStatusDraft {
				c.Posts[i].Status = common.CampaignPostStatusScheduled
			}
		}
		return nil
	})
}

// HandleOutcome records the terminal state of a campaign post published by the scheduler.
// It is registered as a scheduler outcome hook.
func (s *CampaignService) HandleOutcome(ctx context.Context, post common.ScheduledPost) {
	if post.CampaignPosition == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	campaigns, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		logrus.WithError(err).Error("[CAMPAIGN] failed to load campaigns for outcome")
		return
	}
	idx := indexOfCampaign(campaigns, post.ScheduleID)
	if idx < 0 {
		return
	}
	for i := range campaigns[idx].Posts {
		cp := &campaigns[idx].Posts[i]
		if cp.ID != post.ID {
			continue
		}
		if post.Status == common.ScheduledPostStatusPublished {
			cp.Status = common.CampaignPostStatusPublished
		} else {
			cp.Status = common.CampaignPostStatusFailed
		}
		cp.ScheduledTime = post.ScheduledTime
		campaigns[idx].UpdatedAt = s.now().UTC()
		if err := s.repo.SaveCampaigns(ctx, campaigns); err != nil {
			logrus.WithError(err).Error("[CAMPAIGN] failed to persist post outcome")
		}
		return
	}
}

func (s *CampaignService) mutate(ctx context.Context, id string, fn func(c *common.Campaign) error) (common.Campaign, error) {
	c, err := s.apply(ctx, id, fn)
	if err != nil {
		return common.Campaign{}, err
	}
	if c.Active {
		if err := s.sync(ctx, c.ID); err != nil {
			return c, err
		}
	}
	s.notifier.ScheduleUpdated()
	return c, nil
}

// apply edits, recomputes and saves one campaign. A change may not leave a scheduled post
// at or before now unless it already sat at that exact time.
func (s *CampaignService) apply(ctx context.Context, id string, fn func(c *common.Campaign) error) (common.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaigns, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return common.Campaign{}, err
	}
	idx := indexOfCampaign(campaigns, id)
	if idx < 0 {
		return common.Campaign{}, common.ErrCampaignNotFound
	}
	c := campaigns[idx]
	before := make(map[string]common.CampaignPost, len(c.Posts))
	for _, p := range c.Posts {
		before[p.ID] = p
	}
	c.Posts = append([]common.CampaignPost(nil), c.Posts...)
	if err := fn(&c); err != nil {
		return common.Campaign{}, err
	}
	if c.Posts, err = RecomputeCampaign(c.Posts, c.Rule, s.loc); err != nil {
		return common.Campaign{}, err
	}

	now := s.now()
	for _, p := range c.Posts {
		if p.Status != common.CampaignPostStatusScheduled || p.ScheduledTime.After(now) {
			continue
		}
		if old, ok := before[p.ID]; ok && old.Status == p.Status && old.ScheduledTime.Equal(p.ScheduledTime) {
			continue
		}
		return common.Campaign{}, fmt.Errorf("%w: %s at %s", common.ErrSlotInPast, p.MediaPath, p.ScheduledTime.Format(time.RFC3339))
	}

	c.UpdatedAt = now.UTC()
	campaigns[idx] = c
	if err := s.repo.SaveCampaigns(ctx, campaigns); err != nil {
		return common.Campaign{}, err
	}
	return c, nil
}

// sync replaces the campaign's queued posts with the scheduled posts it currently holds.
// The list is built on the queue owner, so outcomes of a tick that ran first are already
// recorded and a published post is never queued again.
func (s *CampaignService) sync(ctx context.Context, id string) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.ReplaceSchedule(ctx, id, func(ctx context.Context) ([]common.ScheduledPost, error) {
		return s.queuedPosts(ctx, id)
	})
}

func (s *CampaignService) queuedPosts(ctx context.Context, id string) ([]common.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaigns, err := s.repo.LoadCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOfCampaign(campaigns, id)
	if idx < 0 || !campaigns[idx].Active {
		return nil, nil
	}
	c := campaigns[idx]
	now := s.now()
	queued := make([]common.ScheduledPost, 0, len(c.Posts))
	for _, p := range c.Posts {
		if p.Status == common.CampaignPostStatusScheduled {
			queued = append(queued, c.ToScheduledPost(p, now))
		}
	}
	return queued, nil
}

func indexOfCampaign(campaigns []common.Campaign, id string) int {
	for i, c := range campaigns {
		if c.ID == id {
			return i
		}
	}
	return -1
}
