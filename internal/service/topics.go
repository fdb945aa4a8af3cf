package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/pkg/changefeed"
)

// Change feed topics. Writers publish after a successful write; streams re-query on them.
const (
	TopicUnits   = "units"
	TopicPapers  = "papers"
	TopicRatings = "ratings"
)

func favoritesTopic(userID int64) string   { return fmt.Sprintf("favorites:%d", userID) }
func userTopic(userID int64) string        { return fmt.Sprintf("users:%d", userID) }
func viewsTopic(userID int64) string       { return fmt.Sprintf("views:%d", userID) }
func downloadsTopic(userID int64) string   { return fmt.Sprintf("downloads:%d", userID) }
func enrollmentsTopic(userID int64) string { return fmt.Sprintf("enrollments:%d", userID) }
func lecturersTopic(unitID int64) string   { return fmt.Sprintf("units:%d:lecturers", unitID) }

// notifier publishes invalidations. A failed publish only delays live views, so it is logged.
type notifier struct {
	feed   changefeed.Feed
	logger *zap.Logger
}

func newNotifier(feed changefeed.Feed, logger *zap.Logger) notifier {
	if feed == nil {
		feed = changefeed.NewMemory(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return notifier{feed: feed, logger: logger}
}

func (n notifier) notify(ctx context.Context, topics ...string) {
	if err := n.feed.Publish(context.WithoutCancel(ctx), topics...); err != nil {
		n.logger.Warn("change feed publish failed", zap.Strings("topics", topics), zap.Error(err))
	}
}
