package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

// Screen names.
const (
	ScreenHome       = "home"
	ScreenSearch     = "search"
	ScreenUnitDetail = "unit_detail"
	ScreenUpload     = "upload"
	ScreenProfile    = "profile"
)

// ErrUnknownScreen is returned by Factory.New for an unregistered screen name.
var ErrUnknownScreen = errors.New("unknown screen")

// Intent is a user action sent to a mounted screen.
type Intent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Screen is a mounted controller. Updates emits the latest state after every
// change; intermediate states may be skipped. Unmount stops every stream and
// pending intent and closes Updates.
type Screen interface {
	Name() string
	Mount(ctx context.Context) error
	Handle(intent Intent) error
	Updates() <-chan any
	Unmount()
}

// FileReceiver is implemented by screens that accept binary frames.
type FileReceiver interface {
	ReceiveFile(chunk []byte) error
}

// ProfileSource streams and edits the caller's profile.
type ProfileSource interface {
	StreamProfile(ctx context.Context, id int64) <-chan stream.Snapshot[*models.User]
	UpdateProfile(ctx context.Context, id int64, req models.UpdateProfileRequest) (*models.User, error)
}

// UnitSource streams units joined with favorites.
type UnitSource interface {
	StreamUnitsWithFavorites(ctx context.Context, userID int64, filter models.UnitFilter) <-chan stream.Snapshot[[]models.UnitItem]
	StreamUnitView(ctx context.Context, userID, unitID int64) <-chan stream.Snapshot[models.UnitView]
}

// PaperSource streams papers.
type PaperSource interface {
	StreamPapers(ctx context.Context, filter models.PaperFilter) <-chan stream.Snapshot[[]models.PaperWithRating]
	StreamUnitPapers(ctx context.Context, unitID int64) <-chan stream.Snapshot[[]models.PaperWithRating]
	StreamRecentlyViewed(ctx context.Context, userID int64) <-chan stream.Snapshot[[]models.PastPaper]
}

// FavoriteSetter writes favorite flags.
type FavoriteSetter interface {
	SetFavorite(ctx context.Context, userID, unitID int64, favorite bool) (models.FavoriteStatus, error)
}

// ActivityRecorder records user events and streams the downloaded resource feed.
type ActivityRecorder interface {
	RecordView(ctx context.Context, userID, paperID int64) error
	RatePaper(ctx context.Context, userID, paperID int64, req models.RatePaperRequest) (*models.PaperRating, error)
	StreamDownloaded(ctx context.Context, userID int64) <-chan stream.Snapshot[[]models.Resource]
}

// Uploader runs the paper upload.
type Uploader interface {
	Upload(ctx context.Context, userID int64, req models.UploadPaperRequest, content io.Reader) (*models.UploadResult, error)
	MaxFileBytes() int64
}

// Deps are the services screens are built from.
type Deps struct {
	Profiles  ProfileSource
	Units     UnitSource
	Papers    PaperSource
	Favorites FavoriteSetter
	Activity  ActivityRecorder
	Uploads   Uploader
	Logger    *zap.Logger
	Now       func() time.Time
}

// Factory builds screens for a user session.
type Factory struct {
	deps Deps
}

// NewFactory constructs a Factory.
func NewFactory(deps Deps) *Factory {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Factory{deps: deps}
}

// New builds the named screen for userID. params carries route parameters such as unit_id.
func (f *Factory) New(screen string, userID int64, params map[string]string) (Screen, error) {
	switch screen {
	case ScreenHome:
		return NewHome(f.deps, userID), nil
	case ScreenSearch:
		return NewSearch(f.deps, userID), nil
	case ScreenUnitDetail:
		unitID, err := strconv.ParseInt(params["unit_id"], 10, 64)
		if err != nil || unitID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unit_id is required")
		}
		return NewUnitDetail(f.deps, userID, unitID), nil
	case ScreenUpload:
		return NewUpload(f.deps, userID), nil
	case ScreenProfile:
		return NewProfile(f.deps, userID), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScreen, screen)
	}
}
