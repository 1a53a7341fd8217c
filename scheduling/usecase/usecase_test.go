package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeQueue stands in for the scheduler's queue owner.
type fakeQueue struct {
	mu      sync.Mutex
	pending []common.ScheduledPost
	dropped []string
}

func (q *fakeQueue) Pending() []common.ScheduledPost {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]common.ScheduledPost(nil), q.pending...)
}

func (q *fakeQueue) Enqueue(_ context.Context, post common.ScheduledPost) (common.ScheduledPost, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	post.ID = "post-" + post.MediaPath
	post.Status = common.ScheduledPostStatusScheduled
	q.pending = append(q.pending, post)
	return post, nil
}

func (q *fakeQueue) Remove(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.pending {
		if p.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return nil
		}
	}
	return common.ErrPostNotFound
}

func (q *fakeQueue) RemoveBySchedule(_ context.Context, scheduleID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropped = append(q.dropped, scheduleID)
	return nil
}

func (q *fakeQueue) droppedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.dropped...)
}

// recordingNotifier keeps the events the services emit.
type recordingNotifier struct {
	common.LogNotifier
	mu        sync.Mutex
	published []common.ScheduledPost
	updates   int
}

func (n *recordingNotifier) ScheduleUpdated() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates++
}

func (n *recordingNotifier) PostPublished(post common.ScheduledPost) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, post)
}

func (n *recordingNotifier) publishedPosts() []common.ScheduledPost {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]common.ScheduledPost(nil), n.published...)
}
