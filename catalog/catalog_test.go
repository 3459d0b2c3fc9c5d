package catalog_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/catalog"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/credentials/repofake"
	"github.com/jrsteele09/dojotv/internal/crmfake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResetter struct {
	calls int
}

func (r *fakeResetter) Reset(context.Context) error {
	r.calls++
	return nil
}

type testFixture struct {
	crm      *crmfake.Server
	store    *repofake.FakeCredentialStore
	resetter *fakeResetter
	service  *catalog.Service
}

func setupTestFixture(t *testing.T, options ...crmfake.Option) *testFixture {
	t.Helper()

	crm := crmfake.New(append([]crmfake.Option{crmfake.WithAccount(crmfake.StudentAccount())}, options...)...)
	t.Cleanup(crm.Close)

	store := repofake.NewFakeCredentialStore()
	tok, err := crm.IssueToken(crmfake.StudentAccount().UserName)
	require.NoError(t, err)
	store.Seed(credentials.SlotAccessToken, tok)

	resetter := &fakeResetter{}
	client, err := api.New(crm.URL(), store, api.WithSessionResetter(resetter))
	require.NoError(t, err)

	return &testFixture{
		crm:      crm,
		store:    store,
		resetter: resetter,
		service:  catalog.NewService(client),
	}
}

func TestStudySearchParamsValues(t *testing.T) {
	p := &catalog.StudySearchParams{
		PageParams:  catalog.PageParams{Search: "kata", Limit: 5, Page: 2},
		CategoryIDs: []string{"a", "b"},
		TagIDs:      []string{"t"},
	}
	v := p.Values()

	assert.Equal(t, "kata", v.Get("search"))
	assert.Equal(t, "5", v.Get("limit"))
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, []string{"a", "b"}, v["categoryIds[]"])
	assert.Equal(t, []string{"t"}, v["tagIds[]"])
	assert.NotContains(t, v, "programIds[]")

	var nilParams *catalog.StudySearchParams
	assert.Empty(t, nilParams.Values())
}

func TestGetStudyContentForContact(t *testing.T) {
	f := setupTestFixture(t)

	listing, err := f.service.GetStudyContentForContact(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, listing.Total)
	assert.Len(t, listing.Items, 4)
	assert.ElementsMatch(t, []string{"cat-karate", "cat-bjj"}, listing.CategoryIDs)

	listing, err = f.service.GetStudyContentForContact(context.Background(), &catalog.StudySearchParams{
		CategoryIDs: []string{"cat-karate"},
		PageParams:  catalog.PageParams{Search: "heian"},
	})
	require.NoError(t, err)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, "Heian Shodan", listing.Items[0].Title)
}

func TestGetStudyContentByID(t *testing.T) {
	f := setupTestFixture(t)

	item, err := f.service.GetStudyContentByID(context.Background(), "video-3")
	require.NoError(t, err)
	assert.Equal(t, "Bassai Dai", item.Title)
	assert.Equal(t, "cat-karate", item.Category.ID)

	_, err = f.service.GetStudyContentByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "Study content not found", api.Message(err, ""))

	_, err = f.service.GetStudyContentByID(context.Background(), " ")
	require.ErrorIs(t, err, catalog.ErrMissingID)
}

func TestCategoriesAndSubCategories(t *testing.T) {
	f := setupTestFixture(t)

	cats, err := f.service.GetStudyCategories(context.Background(), &catalog.PageParams{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, cats.Items, 1)
	assert.Equal(t, 2, cats.Total)
	assert.Equal(t, 2, cats.TotalPages)

	subs, err := f.service.GetSubCategoriesByCategoryID(context.Background(), "cat-karate")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Beginner", subs[0].Name)

	subs, err = f.service.GetSubCategoriesByCategoryID(context.Background(), "cat-none")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestAnnouncementsAndPrograms(t *testing.T) {
	f := setupTestFixture(t)

	notices, err := f.service.GetAnnouncementsForContact(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, notices.Items, 1)
	assert.Equal(t, "Sensei", notices.Items[0].CreatedBy.User.FirstName)

	programs, err := f.service.GetPrograms(context.Background())
	require.NoError(t, err)
	assert.Len(t, programs, 2)
}

func TestExpiredTokenResetsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.crm.ExpireTokens()

	_, err := f.service.GetPrograms(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, api.ErrAuthorizationExpired)
	assert.Equal(t, 1, f.resetter.calls)
	assert.Equal(t, 0, f.store.Len())
}

func TestEmptyCatalog(t *testing.T) {
	f := setupTestFixture(t, crmfake.WithCatalog(&crmfake.Catalog{}))

	listing, err := f.service.GetStudyContentForContact(context.Background(), &catalog.StudySearchParams{})
	require.NoError(t, err)
	assert.Empty(t, listing.Items)
	assert.Equal(t, 0, listing.TotalPages)

	_, err = f.service.GetStudyContentByID(context.Background(), "video-1")
	require.Error(t, err)
	assert.Equal(t, "Study content not found", api.Message(err, ""))
}
