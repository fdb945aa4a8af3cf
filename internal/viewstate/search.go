package viewstate

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
)

const (
	searchLimit     = 100
	paperYearsShown = 10
)

// SearchFilter holds the filters applied over the loaded papers.
type SearchFilter struct {
	Query     string           `json:"query"`
	PaperType models.PaperType `json:"paper_type,omitempty"`
	PaperYear int              `json:"paper_year,omitempty"`
}

// SearchState is the paper browser.
type SearchState struct {
	Status
	SearchFilter
	YearOfStudy int                      `json:"year_of_study,omitempty"`
	Semester    int                      `json:"semester,omitempty"`
	FiltersOpen bool                     `json:"filters_open"`
	PaperTypes  []models.PaperType       `json:"paper_types"`
	PaperYears  []int                    `json:"paper_years"`
	Results     []models.PaperWithRating `json:"results"`

	all []models.PaperWithRating
}

// Search is the paper browser controller. Year of study and semester are
// queried from the store; text, type and paper year are applied in memory.
type Search struct {
	*base[SearchState]
	deps   Deps
	userID int64
}

// NewSearch constructs the paper browser.
func NewSearch(deps Deps, userID int64) *Search {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	initial := SearchState{
		PaperTypes: models.PaperTypes,
		PaperYears: PaperYears(deps.Now()),
		Results:    []models.PaperWithRating{},
	}
	return &Search{
		base:   newBase(ScreenSearch, initial, func(s *SearchState) *Status { return &s.Status }, deps.Logger),
		deps:   deps,
		userID: userID,
	}
}

// PaperYears lists the selectable paper years, newest first.
func PaperYears(now time.Time) []int {
	current := now.Year()
	years := make([]int, 0, paperYearsShown+1)
	for y := current; y >= current-paperYearsShown; y-- {
		years = append(years, y)
	}
	return years
}

// FilterPapers keeps the papers matching f in their original order. The query
// matches paper name, unit code and unit name case-insensitively.
func FilterPapers(papers []models.PaperWithRating, f SearchFilter) []models.PaperWithRating {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.PaperWithRating, 0, len(papers))
	for _, p := range papers {
		if f.PaperType != "" && p.PaperType != f.PaperType {
			continue
		}
		if f.PaperYear != 0 && p.PaperYear != f.PaperYear {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.UnitCode), query) &&
			!strings.Contains(strings.ToLower(p.UnitName), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Mount starts the paper stream.
func (s *Search) Mount(ctx context.Context) error {
	streams, err := s.start(ctx)
	if err != nil {
		return err
	}
	s.subscribe(streams)
	return nil
}

func (s *Search) subscribe(ctx context.Context) {
	state := s.State()
	filter := models.PaperFilter{
		YearOfStudy: state.YearOfStudy,
		Semester:    state.Semester,
		PageSize:    searchLimit,
	}
	follow(s.base, ctx, s.deps.Papers.StreamPapers(ctx, filter), primaryFeed, func(st *SearchState, papers []models.PaperWithRating) {
		st.all = papers
		st.Results = FilterPapers(papers, st.SearchFilter)
	})
}

// Handle applies search, filter, toggle_filters and refresh intents.
func (s *Search) Handle(intent Intent) error {
	switch intent.Type {
	case "search":
		var p struct {
			Query string `json:"query"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		s.refilter(func(st *SearchState) { st.Query = p.Query })
	case "set_type_filter":
		var p struct {
			PaperType models.PaperType `json:"paper_type"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		if p.PaperType != "" && !p.PaperType.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "unknown paper type")
		}
		s.refilter(func(st *SearchState) { st.PaperType = p.PaperType })
	case "set_paper_year_filter":
		var p struct {
			PaperYear int `json:"paper_year"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		s.refilter(func(st *SearchState) { st.PaperYear = p.PaperYear })
	case "set_study_filter":
		var p struct {
			YearOfStudy int `json:"year_of_study"`
			Semester    int `json:"semester"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		s.update(func(st *SearchState) { st.YearOfStudy, st.Semester = p.YearOfStudy, p.Semester })
		s.subscribe(s.refresh())
	case "clear_filters":
		previous := s.State()
		s.refilter(func(st *SearchState) {
			st.SearchFilter = SearchFilter{}
			st.YearOfStudy, st.Semester = 0, 0
		})
		if previous.YearOfStudy != 0 || previous.Semester != 0 {
			s.subscribe(s.refresh())
		}
	case "toggle_filters":
		s.update(func(st *SearchState) { st.FiltersOpen = !st.FiltersOpen })
	case "refresh":
		s.subscribe(s.refresh())
	default:
		return ErrUnknownIntent
	}
	return nil
}

func (s *Search) refilter(change func(st *SearchState)) {
	s.update(func(st *SearchState) {
		change(st)
		st.Results = FilterPapers(st.all, st.SearchFilter)
	})
}
