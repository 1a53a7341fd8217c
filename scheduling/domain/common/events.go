package common

import "github.com/sirupsen/logrus"

// Notifier receives the engine's outbound events (UI, logs, websocket clients).
type Notifier interface {
	StatusUpdate(message string)
	Error(title, message string)
	Warning(title, message string)
	Info(title, message string)
	ScheduleUpdated()
	PostScheduled(post ScheduledPost)
	PostPublished(post ScheduledPost)
}

// LogNotifier writes every event to logrus.
type LogNotifier struct{}

func (LogNotifier) StatusUpdate(message string) { logrus.Infof("[EVENT] %s", message) }
func (LogNotifier) Error(title, message string) { logrus.Errorf("[EVENT] %s: %s", title, message) }
func (LogNotifier) Warning(title, message string) {
	logrus.Warnf("[EVENT] %s: %s", title, message)
}
func (LogNotifier) Info(title, message string) { logrus.Infof("[EVENT] %s: %s", title, message) }
func (LogNotifier) ScheduleUpdated()            { logrus.Debug("[EVENT] schedule updated") }
func (LogNotifier) PostScheduled(post ScheduledPost) {
	logrus.WithFields(logrus.Fields{
		"post_id":     post.ID,
		"schedule_id": post.ScheduleID,
		"at":          post.ScheduledTime,
	}).Debug("[EVENT] post scheduled")
}
func (LogNotifier) PostPublished(post ScheduledPost) {
	logrus.WithFields(logrus.Fields{
		"post_id": post.ID,
		"status":  post.Status,
	}).Info("[EVENT] post published")
}

// MultiNotifier fans each event out to every wrapped notifier.
type MultiNotifier []Notifier

func (m MultiNotifier) StatusUpdate(message string) {
	for _, n := range m {
		n.StatusUpdate(message)
	}
}

func (m MultiNotifier) Error(title, message string) {
	for _, n := range m {
		n.Error(title, message)
	}
}

func (m MultiNotifier) Warning(title, message string) {
	for _, n := range m {
		n.Warning(title, message)
	}
}

func (m MultiNotifier) Info(title, message string) {
	for _, n := range m {
		n.Info(title, message)
	}
}

func (m MultiNotifier) ScheduleUpdated() {
	for _, n := range m {
		n.ScheduleUpdated()
	}
}

func (m MultiNotifier) PostScheduled(post ScheduledPost) {
	for _, n := range m {
		n.PostScheduled(post)
	}
}

func (m MultiNotifier) PostPublished(post ScheduledPost) {
	for _, n := range m {
		n.PostPublished(post)
	}
}
