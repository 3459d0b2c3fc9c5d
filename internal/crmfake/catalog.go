package crmfake

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/dojotv/catalog"
)

const defaultPageLimit = 10

// Catalog is the content the fake serves to any authenticated contact.
type Catalog struct {
	Categories    []catalog.StudyCategory
	SubCategories []catalog.StudySubCategory
	Content       []catalog.StudyContentItem
	Announcements []catalog.Announcement
	Programs      []catalog.ProgramTagClub
}

// DefaultCatalog is a small karate curriculum.
func DefaultCatalog() *Catalog {
	karate := catalog.StudyCategory{ID: "cat-karate", Dojo: "dojo-1", Name: "Karate"}
	bjj := catalog.StudyCategory{ID: "cat-bjj", Dojo: "dojo-1", Name: "Brazilian Jiu-Jitsu"}
	kids := catalog.ProgramTagClub{ID: "prog-kids", Name: "Little Dragons", Type: "program"}
	adults := catalog.ProgramTagClub{ID: "prog-adults", Name: "Adult Karate", Type: "program"}

	item := func(id, title string, cat catalog.StudyCategory, sub string, order int, prog catalog.ProgramTagClub) catalog.StudyContentItem {
		return catalog.StudyContentItem{
			ID:            id,
			Title:         title,
			ContentLink:   "https://vimeo.com/" + id,
			Category:      cat,
			SubCategoryID: sub,
			Order:         order,
			Tags:          []catalog.StudyTag{{ID: "tag-kata", Name: "Kata", Type: "tag"}},
			Programs:      []catalog.StudyProgram{{ID: prog.ID, Name: prog.Name, Type: prog.Type}},
			Dojo:          "dojo-1",
		}
	}

	a := catalog.Announcement{
		ID:            "notice-1",
		Title:         "Grading this Saturday",
		Description:   "Belt grading starts at 10am.",
		ContactType:   "student",
		ContactStatus: "active",
		CreatedAt:     "2024-05-01T09:00:00.000Z",
		Dojo:          "dojo-1",
	}
	a.CreatedBy.User.ID = "user-sensei"
	a.CreatedBy.User.FirstName = "Sensei"
	a.CreatedBy.Role.Name = "dojo"

	return &Catalog{
		Categories: []catalog.StudyCategory{karate, bjj},
		SubCategories: []catalog.StudySubCategory{
			{ID: "sub-beginner", Name: "Beginner", StudyCategoryID: karate.ID},
			{ID: "sub-advanced", Name: "Advanced", StudyCategoryID: karate.ID},
			{ID: "sub-bjj-beginner", Name: "Beginner", StudyCategoryID: bjj.ID},
		},
		Content: []catalog.StudyContentItem{
			item("video-1", "Heian Shodan", karate, "sub-beginner", 1, kids),
			item("video-2", "Heian Nidan", karate, "sub-beginner", 2, kids),
			item("video-3", "Bassai Dai", karate, "sub-advanced", 1, adults),
			item("video-4", "Closed Guard Basics", bjj, "sub-bjj-beginner", 1, adults),
		},
		Announcements: []catalog.Announcement{a},
		Programs:      []catalog.ProgramTagClub{kids, adults},
	}
}

func (s *Server) handleStudyForContact(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	categories := toSet(q["categoryIds[]"])
	programs := toSet(q["programIds[]"])

	var matched []catalog.StudyContentItem
	for _, it := range s.catalog.Content {
		if search != "" && !strings.Contains(strings.ToLower(it.Title), search) {
			continue
		}
		if len(categories) > 0 && !categories[it.Category.ID] {
			continue
		}
		if len(programs) > 0 && !anyProgram(it.Programs, programs) {
			continue
		}
		matched = append(matched, it)
	}

	page := paginate(matched, q.Get("limit"), q.Get("page"))
	listing := catalog.StudyContentListing{Listing: page}
	for _, c := range s.catalog.Categories {
		listing.CategoryIDs = append(listing.CategoryIDs, c.ID)
	}
	writeData(w, listing)
}

func (s *Server) handleStudyContentByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")
	for _, it := range s.catalog.Content {
		if it.ID == id {
			writeData(w, it)
			return
		}
	}
	writeFailure(w, http.StatusNotFound, "Study content not found")
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	var matched []catalog.StudyCategory
	for _, c := range s.catalog.Categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), search) {
			matched = append(matched, c)
		}
	}
	writeData(w, paginate(matched, q.Get("limit"), q.Get("page")))
}

func (s *Server) handleSubCategories(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "categoryID")
	subs := []catalog.StudySubCategory{}
	for _, sc := range s.catalog.SubCategories {
		if sc.StudyCategoryID == id {
			subs = append(subs, sc)
		}
	}
	writeData(w, subs)
}

func (s *Server) handleNoticeBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeData(w, paginate(s.catalog.Announcements, q.Get("limit"), q.Get("page")))
}

func (s *Server) handlePrograms(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.catalog.Programs)
}

func paginate[T any](items []T, limitParam, pageParam string) catalog.Listing[T] {
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	page, err := strconv.Atoi(pageParam)
	if err != nil || page <= 0 {
		page = 1
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return catalog.Listing[T]{
		Items:      append([]T{}, items[start:end]...),
		Limit:      limit,
		Page:       page,
		Total:      len(items),
		TotalPages: (len(items) + limit - 1) / limit,
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func anyProgram(programs []catalog.StudyProgram, want map[string]bool) bool {
	for _, p := range programs {
		if want[p.ID] {
			return true
		}
	}
	return false
}
