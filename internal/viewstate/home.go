package viewstate

import (
	"context"
	"time"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

const recommendedLimit = 4

// HomeState is the dashboard: greeting, recommended units and recently viewed papers.
type HomeState struct {
	Status
	Greeting       string             `json:"greeting"`
	Profile        *models.User       `json:"profile,omitempty"`
	Recommended    []models.UnitItem  `json:"recommended"`
	RecentlyViewed []models.PastPaper `json:"recently_viewed"`
	OpenedPaperID  int64              `json:"opened_paper_id,omitempty"`
}

// Home is the dashboard controller.
type Home struct {
	*base[HomeState]
	deps   Deps
	userID int64
}

// NewHome constructs the dashboard for userID.
func NewHome(deps Deps, userID int64) *Home {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	initial := HomeState{
		Greeting:       Greeting(deps.Now()),
		Recommended:    []models.UnitItem{},
		RecentlyViewed: []models.PastPaper{},
	}
	return &Home{
		base:   newBase(ScreenHome, initial, func(s *HomeState) *Status { return &s.Status }, deps.Logger),
		deps:   deps,
		userID: userID,
	}
}

// Greeting returns the time of day greeting for now.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Mount starts the profile, recommendation and recently viewed streams.
func (h *Home) Mount(ctx context.Context) error {
	streams, err := h.start(ctx)
	if err != nil {
		return err
	}
	h.subscribe(streams)
	return nil
}

func (h *Home) subscribe(ctx context.Context) {
	follow(h.base, ctx, h.deps.Profiles.StreamProfile(ctx, h.userID), primaryFeed, func(s *HomeState, user *models.User) {
		s.Profile = user
	})

	// Recommendations follow the year and semester of the profile.
	recommended := stream.Switch(ctx, h.deps.Profiles.StreamProfile(ctx, h.userID),
		func(u *models.User) [2]int { return [2]int{u.YearOfStudy, u.SemesterOfStudy} },
		func(ctx context.Context, u *models.User) <-chan stream.Snapshot[[]models.UnitItem] {
			filter := models.UnitFilter{Year: u.YearOfStudy, Semester: u.SemesterOfStudy}
			return h.deps.Units.StreamUnitsWithFavorites(ctx, h.userID, filter)
		})
	follow(h.base, ctx, recommended, primaryFeed, func(s *HomeState, units []models.UnitItem) {
		if len(units) > recommendedLimit {
			units = units[:recommendedLimit]
		}
		s.Recommended = units
	})

	follow(h.base, ctx, h.deps.Papers.StreamRecentlyViewed(ctx, h.userID), quietFeed, func(s *HomeState, papers []models.PastPaper) {
		s.RecentlyViewed = papers
	})
}

// Handle applies toggle_favorite, open_paper and refresh.
func (h *Home) Handle(intent Intent) error {
	switch intent.Type {
	case "toggle_favorite":
		var p struct {
			UnitID int64 `json:"unit_id"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		return toggleFavorite(h.base, h.deps.Favorites, h.userID, p.UnitID,
			func(s *HomeState) (bool, bool) { return unitFavorite(s.Recommended, p.UnitID) },
			func(s *HomeState, favorite bool) { s.Recommended = setUnitFavorite(s.Recommended, p.UnitID, favorite) },
		)
	case "open_paper":
		var p struct {
			PaperID int64 `json:"paper_id"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		openPaper(h.base, h.deps.Activity, h.userID, p.PaperID, func(s *HomeState) { s.OpenedPaperID = p.PaperID })
		return nil
	case "refresh":
		h.update(func(s *HomeState) { s.Greeting = Greeting(h.deps.Now()) })
		h.subscribe(h.refresh())
		return nil
	default:
		return ErrUnknownIntent
	}
}

func unitFavorite(units []models.UnitItem, unitID int64) (bool, bool) {
	for _, u := range units {
		if u.ID == unitID {
			return u.IsFavorite, true
		}
	}
	return false, false
}

// setUnitFavorite returns a copy of units with the flag of unitID set.
func setUnitFavorite(units []models.UnitItem, unitID int64, favorite bool) []models.UnitItem {
	out := make([]models.UnitItem, len(units))
	copy(out, units)
	for i := range out {
		if out[i].ID == unitID {
			out[i].IsFavorite = favorite
		}
	}
	return out
}

// openPaper marks the paper as opened and records the view in the background.
func openPaper[S any](b *base[S], activity ActivityRecorder, userID, paperID int64, mark func(s *S)) {
	b.update(mark)
	b.async(func(ctx context.Context) {
		if err := activity.RecordView(ctx, userID, paperID); err != nil {
			b.fail(secondaryFeed, err)
		}
	})
}
