package viewstate

import (
	"context"

	"github.com/noah-isme/somashare-api/internal/models"
)

// UnitDetailState is a unit with its lecturers, favorite flag and papers.
type UnitDetailState struct {
	Status
	UnitID        int64                    `json:"unit_id"`
	View          *models.UnitView         `json:"view,omitempty"`
	Papers        []models.PaperWithRating `json:"papers"`
	OpenedPaperID int64                    `json:"opened_paper_id,omitempty"`
}

// UnitDetail is the unit page controller.
type UnitDetail struct {
	*base[UnitDetailState]
	deps   Deps
	userID int64
	unitID int64
}

// NewUnitDetail constructs the page of unitID.
func NewUnitDetail(deps Deps, userID, unitID int64) *UnitDetail {
	initial := UnitDetailState{UnitID: unitID, Papers: []models.PaperWithRating{}}
	return &UnitDetail{
		base:   newBase(ScreenUnitDetail, initial, func(s *UnitDetailState) *Status { return &s.Status }, deps.Logger),
		deps:   deps,
		userID: userID,
		unitID: unitID,
	}
}

// Mount starts the unit and paper streams.
func (u *UnitDetail) Mount(ctx context.Context) error {
	streams, err := u.start(ctx)
	if err != nil {
		return err
	}
	u.subscribe(streams)
	return nil
}

func (u *UnitDetail) subscribe(ctx context.Context) {
	follow(u.base, ctx, u.deps.Units.StreamUnitView(ctx, u.userID, u.unitID), primaryFeed, func(s *UnitDetailState, view models.UnitView) {
		s.View = &view
	})
	follow(u.base, ctx, u.deps.Papers.StreamUnitPapers(ctx, u.unitID), secondaryFeed, func(s *UnitDetailState, papers []models.PaperWithRating) {
		s.Papers = papers
	})
}

// Handle applies toggle_favorite, rate_paper, open_paper and refresh.
func (u *UnitDetail) Handle(intent Intent) error {
	switch intent.Type {
	case "toggle_favorite":
		return toggleFavorite(u.base, u.deps.Favorites, u.userID, u.unitID,
			func(s *UnitDetailState) (bool, bool) {
				if s.View == nil {
					return false, false
				}
				return s.View.IsFavorite, true
			},
			func(s *UnitDetailState, favorite bool) {
				view := *s.View
				view.IsFavorite = favorite
				s.View = &view
			},
		)
	case "rate_paper":
		var p struct {
			PaperID int64 `json:"paper_id"`
			models.RatePaperRequest
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		u.async(func(ctx context.Context) {
			if _, err := u.deps.Activity.RatePaper(ctx, u.userID, p.PaperID, p.RatePaperRequest); err != nil {
				u.fail(secondaryFeed, err)
				return
			}
			u.message("Thanks for rating this paper.")
		})
		return nil
	case "open_paper":
		var p struct {
			PaperID int64 `json:"paper_id"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		openPaper(u.base, u.deps.Activity, u.userID, p.PaperID, func(s *UnitDetailState) { s.OpenedPaperID = p.PaperID })
		return nil
	case "refresh":
		u.subscribe(u.refresh())
		return nil
	default:
		return ErrUnknownIntent
	}
}
