package catalog

import (
	"net/url"
	"strconv"
)

// Listing is the paginated collection shape the CRM returns.
type Listing[T any] struct {
	Items      []T `json:"items"`
	Limit      int `json:"limit"`
	Page       int `json:"page"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type StudyCategory struct {
	ID    string `json:"_id"`
	Dojo  string `json:"dojo"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// StudySubCategory is a level within a category (Beginner / Intermediate / Advanced).
type StudySubCategory struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	StudyCategoryID string `json:"studyCategoryId"`
}

type StudyTag struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedBy string `json:"createdBy,omitempty"`
	Dojo      string `json:"dojo,omitempty"`
}

type StudyProgram struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedBy string `json:"createdBy,omitempty"`
	Dojo      string `json:"dojo,omitempty"`
}

type StudyRank struct {
	ID             string        `json:"_id"`
	RankName       string        `json:"rankName"`
	RankOrder      int           `json:"rankOrder"`
	RankColor      string        `json:"rankColor"`
	StripeImage    string        `json:"stripeImage,omitempty"`
	StripeType     string        `json:"stripeType,omitempty"`
	NumberOfStripe int           `json:"numberOfStripe,omitempty"`
	StripeColor    string        `json:"stripeColor,omitempty"`
	Program        *StudyProgram `json:"program,omitempty"`
}

type StudyEvent struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// StudyContentItem is a single lesson video.
type StudyContentItem struct {
	ID            string         `json:"_id"`
	Title         string         `json:"title"`
	ContentLink   string         `json:"contentLink"`
	Category      StudyCategory  `json:"category"`
	SubCategoryID string         `json:"subCategoryId,omitempty"`
	Order         int            `json:"order"`
	Tags          []StudyTag     `json:"tags"`
	Programs      []StudyProgram `json:"programs,omitempty"`
	Ranks         []StudyRank    `json:"ranks,omitempty"`
	Event         *StudyEvent    `json:"event,omitempty"`
	Dojo          string         `json:"dojo,omitempty"`
}

// StudyContentListing carries the facet ids the CRM returns alongside the page.
type StudyContentListing struct {
	Listing[StudyContentItem]
	CategoryIDs []string `json:"categoryIds,omitempty"`
	TitlesIDs   []string `json:"titlesIds,omitempty"`
	ProgramIDs  []string `json:"programIds,omitempty"`
	TagIDsSet   []string `json:"tagIdsSet,omitempty"`
	ClubsSet    []string `json:"clubsSet,omitempty"`
}

type AnnouncementAuthor struct {
	User struct {
		ID        string `json:"_id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	} `json:"user"`
	Role struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	} `json:"role"`
}

// Announcement is a notice board entry.
type Announcement struct {
	ID            string             `json:"_id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	ContactType   string             `json:"contactType"`
	ContactStatus string             `json:"contactStatus"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt,omitempty"`
	CreatedBy     AnnouncementAuthor `json:"createdBy"`
	Dojo          string             `json:"dojo"`
	Contacts      []string           `json:"contacts"`
}

type ProgramTagClub struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// PageParams is the common search/limit/page query.
type PageParams struct {
	Search string
	Limit  int
	Page   int
}

func (p *PageParams) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

// StudySearchParams filters study content. Slice filters are sent as key[]=value.
type StudySearchParams struct {
	PageParams
	ProgramIDs  []string
	CategoryIDs []string
	Titles      []string
	TagIDs      []string
	ClubIDs     []string
}

func (p *StudySearchParams) Values() url.Values {
	if p == nil {
		return url.Values{}
	}
	v := p.PageParams.Values()
	addArray(v, "programIds", p.ProgramIDs)
	addArray(v, "categoryIds", p.CategoryIDs)
	addArray(v, "titles", p.Titles)
	addArray(v, "tagIds", p.TagIDs)
	addArray(v, "clubIds", p.ClubIDs)
	return v
}

func addArray(v url.Values, key string, values []string) {
	for _, s := range values {
		v.Add(key+"[]", s)
	}
}
