package viewstate

import (
	"context"

	"github.com/noah-isme/somashare-api/internal/models"
)

// ProfileState is the caller's profile with their uploads and downloads.
type ProfileState struct {
	Status
	Profile    *models.User             `json:"profile,omitempty"`
	Uploaded   []models.PaperWithRating `json:"uploaded"`
	Downloaded []models.Resource        `json:"downloaded"`
	Saving     bool                     `json:"saving"`
}

// Profile is the profile page controller.
type Profile struct {
	*base[ProfileState]
	deps   Deps
	userID int64
}

// NewProfile constructs the profile page of userID.
func NewProfile(deps Deps, userID int64) *Profile {
	initial := ProfileState{Uploaded: []models.PaperWithRating{}, Downloaded: []models.Resource{}}
	return &Profile{
		base:   newBase(ScreenProfile, initial, func(s *ProfileState) *Status { return &s.Status }, deps.Logger),
		deps:   deps,
		userID: userID,
	}
}

// Mount starts the profile, uploaded and downloaded streams.
func (p *Profile) Mount(ctx context.Context) error {
	streams, err := p.start(ctx)
	if err != nil {
		return err
	}
	p.subscribe(streams)
	return nil
}

func (p *Profile) subscribe(ctx context.Context) {
	follow(p.base, ctx, p.deps.Profiles.StreamProfile(ctx, p.userID), primaryFeed, func(s *ProfileState, user *models.User) {
		s.Profile = user
	})
	uploaded := p.deps.Papers.StreamPapers(ctx, models.PaperFilter{UploadedBy: p.userID, PageSize: 100})
	follow(p.base, ctx, uploaded, secondaryFeed, func(s *ProfileState, papers []models.PaperWithRating) {
		s.Uploaded = papers
	})
	follow(p.base, ctx, p.deps.Activity.StreamDownloaded(ctx, p.userID), quietFeed, func(s *ProfileState, resources []models.Resource) {
		s.Downloaded = resources
	})
}

// Handle applies update_profile, clear_messages and refresh.
func (p *Profile) Handle(intent Intent) error {
	switch intent.Type {
	case "update_profile":
		var req models.UpdateProfileRequest
		if err := decode(intent, &req); err != nil {
			return err
		}
		p.update(func(s *ProfileState) { s.Saving, s.Message = true, "" })
		p.async(func(ctx context.Context) {
			user, err := p.deps.Profiles.UpdateProfile(ctx, p.userID, req)
			p.update(func(s *ProfileState) {
				s.Saving = false
				if err != nil {
					s.Message = errorMessage(err)
					return
				}
				s.Profile = user
				s.Message = "Profile updated"
			})
		})
		return nil
	case "clear_messages":
		p.update(func(s *ProfileState) { s.Message = "" })
		return nil
	case "refresh":
		p.subscribe(p.refresh())
		return nil
	default:
		return ErrUnknownIntent
	}
}
