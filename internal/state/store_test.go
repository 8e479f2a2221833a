package state

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/seriesnet/internal/mockapi"
	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/session"
)

type harness struct {
	backend  *mockapi.Server
	store    *Store
	sessions *session.MemoryStore
	requests *atomic.Int32
	ctx      context.Context
}

func newHarness(t *testing.T) harness {
	t.Helper()
	backend := mockapi.New(mockapi.Options{Secret: []byte("s"), BcryptCost: bcrypt.MinCost})
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		backend.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	client, err := seriesnet.NewClient(ts.URL)
	require.NoError(t, err)

	cache := query.New(query.Options{StaleTime: time.Hour})
	t.Cleanup(cache.Close)

	sessions := &session.MemoryStore{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return harness{
		backend:  backend,
		store:    New(client, cache, sessions, nil),
		sessions: sessions,
		requests: &requests,
		ctx:      ctx,
	}
}

func (h harness) loginAs(t *testing.T, name string, admin bool) session.Session {
	t.Helper()
	_, err := h.backend.AddUser(mockapi.Account{Username: name, Password: "pw", Admin: admin})
	require.NoError(t, err)
	sess, err := h.store.Login(h.ctx, seriesnet.Credentials{Username: name, Password: "pw"})
	require.NoError(t, err)
	return sess
}

func postIDs(posts []seriesnet.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestFeed_NextPageEnabledOnlyOnFullPage(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.backend.Seed(mockapi.Account{Username: "admin", Password: "admin"}))

	page1, _, err := Load[[]seriesnet.Post](h.ctx, h.store, h.store.Feed(seriesnet.PostFilter{Page: 1}))
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.True(t, HasNextPage(len(page1)))
	assert.False(t, HasPrevPage(1))

	page2, _, err := Load[[]seriesnet.Post](h.ctx, h.store, h.store.Feed(seriesnet.PostFilter{Page: 2}))
	require.NoError(t, err)
	assert.Len(t, page2, 3)
	assert.False(t, HasNextPage(len(page2)))
	assert.True(t, HasPrevPage(2))
}

func TestFeed_PageZeroSharesKeyWithPageOne(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, FeedKey(seriesnet.PostFilter{Page: 1}), h.store.Feed(seriesnet.PostFilter{}).Key)
	assert.Equal(t, query.K("posts", "", "", 1, ""), h.store.Feed(seriesnet.PostFilter{}).Key)
}

func TestAddComment_InvalidatesEveryFeedVariant(t *testing.T) {
	h := newHarness(t)
	sess := h.loginAs(t, "ann", false)
	p1 := h.backend.AddPost(mockapi.PostSeed{AuthorID: sess.UserID, Title: "P1", Content: "c", Tags: []string{"news"}})

	feed := h.store.Feed(seriesnet.PostFilter{Page: 1})
	tagged := h.store.Feed(seriesnet.PostFilter{Tags: "news", Page: 1, Sort: "title"})
	for _, q := range []Query{feed, tagged} {
		_, _, err := Load[[]seriesnet.Post](h.ctx, h.store, q)
		require.NoError(t, err)
	}

	require.NoError(t, h.store.AddComment(h.ctx, sess, seriesnet.TargetPost, p1, "hi"))

	for _, q := range []Query{feed, tagged} {
		snap, ok := h.store.Cache().Peek(q.Key)
		require.True(t, ok)
		assert.True(t, snap.Stale, "%s should be invalidated", q.Key)
	}

	// The next read refetches in the background; wait for it to land.
	_, _, err := Load[[]seriesnet.Post](h.ctx, h.store, feed)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, _ := h.store.Cache().Peek(feed.Key)
		posts, _ := query.Value[[]seriesnet.Post](snap)
		return len(posts) == 1 && len(posts[0].Comments) == 1
	}, 2*time.Second, 5*time.Millisecond)

	snap, _ := h.store.Cache().Peek(feed.Key)
	posts, err := query.Value[[]seriesnet.Post](snap)
	require.NoError(t, err)
	assert.Equal(t, "hi", posts[0].Comments[0].Content)
}

func TestDeletePost_ForbiddenLeavesCacheIntact(t *testing.T) {
	h := newHarness(t)
	owner, err := h.backend.AddUser(mockapi.Account{Username: "owner", Password: "pw"})
	require.NoError(t, err)
	p1 := h.backend.AddPost(mockapi.PostSeed{AuthorID: owner, Title: "P1", Content: "c"})

	intruder := h.loginAs(t, "intruder", false)

	feed := h.store.Feed(seriesnet.PostFilter{Page: 1})
	_, _, err = Load[[]seriesnet.Post](h.ctx, h.store, feed)
	require.NoError(t, err)
	_, _, err = Load[seriesnet.Post](h.ctx, h.store, h.store.Post(p1))
	require.NoError(t, err)

	beforeFeed, _ := h.store.Cache().Peek(feed.Key)
	beforePost, _ := h.store.Cache().Peek(PostKey(p1))

	err = h.store.DeletePost(h.ctx, intruder, p1)
	require.Error(t, err)
	assert.Equal(t, "forbidden", seriesnet.Message(err))

	afterFeed, _ := h.store.Cache().Peek(feed.Key)
	afterPost, _ := h.store.Cache().Peek(PostKey(p1))
	assert.Equal(t, beforeFeed, afterFeed)
	assert.Equal(t, beforePost, afterPost)

	posts, err := query.Value[[]seriesnet.Post](afterFeed)
	require.NoError(t, err)
	assert.Contains(t, postIDs(posts), p1)
}

func TestAnonymousMutationsMakeNoRequests(t *testing.T) {
	h := newHarness(t)
	anon := h.store.Session()
	require.True(t, anon.Anonymous())

	before := h.requests.Load()
	assert.ErrorIs(t, h.store.AddFavourite(h.ctx, anon, "s1"), ErrLoginRequired)
	assert.ErrorIs(t, h.store.Like(h.ctx, anon, seriesnet.TargetPost, "p1"), ErrLoginRequired)
	assert.ErrorIs(t, h.store.Logout(h.ctx, anon), ErrLoginRequired)
	_, err := h.store.CreatePost(h.ctx, anon, seriesnet.PostInput{Title: "t"})
	assert.ErrorIs(t, err, ErrLoginRequired)

	_, _, err = Load[[]seriesnet.Series](h.ctx, h.store, h.store.Favourites(anon))
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, before, h.requests.Load())
}

func TestLoginStoresSessionAndInvalidatesEverything(t *testing.T) {
	h := newHarness(t)
	h.backend.AddGenre("Drama")

	_, _, err := Load[[]seriesnet.Genre](h.ctx, h.store, h.store.Genres())
	require.NoError(t, err)

	sess := h.loginAs(t, "ann", false)
	assert.Equal(t, session.RoleUser, sess.Role)
	stored, ok := h.sessions.Get()
	require.True(t, ok)
	assert.Equal(t, sess, stored)

	snap, _ := h.store.Cache().Peek(GenresKey())
	assert.True(t, snap.Stale)
}

func TestLogout_FailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	sess := h.loginAs(t, "ann", false)

	bogus := sess
	bogus.Token = "not-a-token"
	require.Error(t, h.store.Logout(h.ctx, bogus))
	_, ok := h.sessions.Get()
	assert.True(t, ok, "failed logout keeps the session")

	require.NoError(t, h.store.Logout(h.ctx, sess))
	assert.True(t, h.store.Session().Anonymous())
}

func TestFavouriteInvalidatesListAndSeries(t *testing.T) {
	h := newHarness(t)
	sess := h.loginAs(t, "ann", false)
	seriesID, _ := h.backend.AddSeries("Steel Horizon", "d", nil, 1)

	favs := h.store.Favourites(sess)
	_, _, err := Load[[]seriesnet.Series](h.ctx, h.store, favs)
	require.NoError(t, err)
	_, _, err = Load[seriesnet.Series](h.ctx, h.store, h.store.Series(sess, seriesID))
	require.NoError(t, err)

	// A mounted list refetches as soon as it is invalidated.
	unwatch := h.store.Watch(favs)
	defer unwatch()

	require.NoError(t, h.store.AddFavourite(h.ctx, sess, seriesID))

	snap, _ := h.store.Cache().Peek(SeriesKey(seriesID))
	assert.True(t, snap.Stale)
	require.Eventually(t, func() bool {
		snap, _ := h.store.Cache().Peek(favs.Key)
		list, _ := query.Value[[]seriesnet.Series](snap)
		return len(list) == 1 && !snap.Fetching
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGenreAndSeriesInvalidation(t *testing.T) {
	h := newHarness(t)
	admin := h.loginAs(t, "root", true)

	genres := h.store.Genres()
	list := h.store.SeriesList(admin, seriesnet.SeriesFilter{})
	for _, q := range []Query{genres, list} {
		snap, err := h.store.Cache().Fetch(h.ctx, q.Key, q.Fetch)
		require.NoError(t, err)
		require.Equal(t, query.StatusSuccess, snap.Status)
	}

	g, err := h.store.CreateGenre(h.ctx, admin, "Drama")
	require.NoError(t, err)
	snap, _ := h.store.Cache().Peek(genres.Key)
	assert.True(t, snap.Stale)
	snap, _ = h.store.Cache().Peek(list.Key)
	assert.False(t, snap.Stale, "creating a genre leaves listings alone")

	// Refresh so the next check starts from fresh entries.
	for _, q := range []Query{genres, list} {
		_, err := h.store.Cache().Refetch(h.ctx, q.Key)
		require.NoError(t, err)
	}

	require.NoError(t, h.store.DeleteGenre(h.ctx, admin, g.ID))
	for _, k := range []query.Key{genres.Key, list.Key} {
		snap, _ := h.store.Cache().Peek(k)
		assert.True(t, snap.Stale, "%s should be invalidated", k)
	}
}

func TestEpisodeReactionsInvalidateOnlyTheEpisode(t *testing.T) {
	h := newHarness(t)
	sess := h.loginAs(t, "ann", false)
	_, episodes := h.backend.AddSeries("S", "d", nil, 1)

	feed := h.store.Feed(seriesnet.PostFilter{})
	ep := h.store.Episode(sess, episodes[0])
	for _, q := range []Query{feed, ep} {
		_, err := h.store.Cache().Fetch(h.ctx, q.Key, q.Fetch)
		require.NoError(t, err)
	}

	require.NoError(t, h.store.Like(h.ctx, sess, seriesnet.TargetEpisode, episodes[0]))

	snap, _ := h.store.Cache().Peek(ep.Key)
	assert.True(t, snap.Stale)
	snap, _ = h.store.Cache().Peek(feed.Key)
	assert.False(t, snap.Stale)

	_, _, err := Load[seriesnet.Episode](h.ctx, h.store, ep)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, _ := h.store.Cache().Peek(ep.Key)
		e, _ := query.Value[seriesnet.Episode](snap)
		return slices.Contains(e.Likes, sess.UserID)
	}, 2*time.Second, 5*time.Millisecond)
}
