package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/dojotv/api"
	"github.com/pkg/errors"
)

const (
	studyContentFailedMessage       = "Failed to fetch study content."
	studyContentDetailFailedMessage = "Failed to fetch study content detail."
	categoriesFailedMessage         = "Failed to fetch study categories."
	subCategoriesFailedMessage      = "Failed to fetch sub-categories."
	announcementsFailedMessage      = "Failed to fetch announcements."
	programsFailedMessage           = "Failed to fetch programs."
)

// ErrMissingID is returned before any request when a lookup id is blank.
var ErrMissingID = errors.New("id is required")

// Service reads the study catalogue and notice board for the signed-in contact.
// Every call goes through the client's interceptors, so an expired token resets the session.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

func (s *Service) GetStudyContentForContact(ctx context.Context, params *StudySearchParams) (*StudyContentListing, error) {
	return api.Call[*StudyContentListing](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            api.EndpointStudyContentForContact,
		Params:          params.Values(),
		FallbackMessage: studyContentFailedMessage,
	})
}

func (s *Service) GetStudyContentByID(ctx context.Context, id string) (*StudyContentItem, error) {
	path, err := withID(api.EndpointStudyContent, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetStudyContentByID]")
	}
	return api.Call[*StudyContentItem](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            path,
		FallbackMessage: studyContentDetailFailedMessage,
	})
}

func (s *Service) GetStudyCategories(ctx context.Context, params *PageParams) (*Listing[StudyCategory], error) {
	return api.Call[*Listing[StudyCategory]](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            api.EndpointStudyCategory,
		Params:          params.Values(),
		FallbackMessage: categoriesFailedMessage,
	})
}

// GetSubCategoriesByCategoryID returns the levels of one category.
func (s *Service) GetSubCategoriesByCategoryID(ctx context.Context, categoryID string) ([]StudySubCategory, error) {
	path, err := withID(api.EndpointSubCategoryByCategoryID, categoryID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetSubCategoriesByCategoryID]")
	}
	return api.Call[[]StudySubCategory](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            path,
		FallbackMessage: subCategoriesFailedMessage,
	})
}

func (s *Service) GetAnnouncementsForContact(ctx context.Context, params *PageParams) (*Listing[Announcement], error) {
	return api.Call[*Listing[Announcement]](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            api.EndpointNoticeBoardForContact,
		Params:          params.Values(),
		FallbackMessage: announcementsFailedMessage,
	})
}

func (s *Service) GetPrograms(ctx context.Context) ([]ProgramTagClub, error) {
	return api.Call[[]ProgramTagClub](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            api.EndpointPrograms,
		FallbackMessage: programsFailedMessage,
	})
}

func withID(prefix, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingID
	}
	return strings.TrimRight(prefix, "/") + "/" + url.PathEscape(id), nil
}
