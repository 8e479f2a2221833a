package state

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/session"
)

// ErrLoginRequired is returned, without any network call, when an operation
// needs a session and none is held.
var ErrLoginRequired = errors.New("login required")

// Query pairs a cache key with the fetch that fills it. Pages watch the key
// on mount and load it through the Store.
type Query struct {
	Key   query.Key
	Fetch query.FetchFunc
}

// Store binds backend operations to cache keys and invalidation rules.
type Store struct {
	api      seriesnet.API
	cache    *query.Cache
	sessions session.Store
	logger   *slog.Logger
}

// New builds a Store. The cache is owned by the caller.
func New(api seriesnet.API, cache *query.Cache, sessions session.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sessions == nil {
		sessions = &session.MemoryStore{}
	}
	return &Store{api: api, cache: cache, sessions: sessions, logger: logger}
}

// Cache returns the underlying cache.
func (s *Store) Cache() *query.Cache {
	return s.cache
}

// Session returns the current session, anonymous when none is held.
func (s *Store) Session() session.Session {
	return session.Current(s.sessions)
}

// Watch mounts q and returns the func that unmounts it.
func (s *Store) Watch(q Query) func() {
	return s.cache.Watch(q.Key, q.Fetch)
}

// Load reads q through the cache.
func Load[T any](ctx context.Context, s *Store, q Query) (T, query.Snapshot, error) {
	snap, err := s.cache.Fetch(ctx, q.Key, q.Fetch)
	v, _ := query.Value[T](snap)
	return v, snap, err
}

func fetcher[T any](fn func(context.Context) (T, error)) query.FetchFunc {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// Feed loads one page of posts.
func (s *Store) Feed(f seriesnet.PostFilter) Query {
	f.Page = normalizePage(f.Page)
	return Query{
		Key: FeedKey(f),
		Fetch: fetcher(func(ctx context.Context) ([]seriesnet.Post, error) {
			return s.api.ListPosts(ctx, f)
		}),
	}
}

// UserPosts loads the posts written by userID.
func (s *Store) UserPosts(userID string) Query {
	return Query{
		Key: UserPostsKey(userID),
		Fetch: fetcher(func(ctx context.Context) ([]seriesnet.Post, error) {
			return s.api.ListUserPosts(ctx, userID)
		}),
	}
}

// Post loads a single post.
func (s *Store) Post(id string) Query {
	return Query{
		Key: PostKey(id),
		Fetch: fetcher(func(ctx context.Context) (seriesnet.Post, error) {
			return s.api.GetPost(ctx, id)
		}),
	}
}

// SeriesList loads the catalogue for sess.
func (s *Store) SeriesList(sess session.Session, f seriesnet.SeriesFilter) Query {
	f.Token = sess.Token
	return Query{
		Key: SeriesListKey(f),
		Fetch: fetcher(func(ctx context.Context) ([]seriesnet.Series, error) {
			return s.api.ListSeries(ctx, f)
		}),
	}
}

// Series loads one series with its episodes.
func (s *Store) Series(sess session.Session, id string) Query {
	return Query{
		Key: SeriesKey(id),
		Fetch: fetcher(func(ctx context.Context) (seriesnet.Series, error) {
			return s.api.GetSeries(ctx, id, sess.Token)
		}),
	}
}

// Genres loads every genre.
func (s *Store) Genres() Query {
	return Query{
		Key: GenresKey(),
		Fetch: fetcher(func(ctx context.Context) ([]seriesnet.Genre, error) {
			return s.api.ListGenres(ctx)
		}),
	}
}

// Episode loads one episode with its thread.
func (s *Store) Episode(sess session.Session, id string) Query {
	return Query{
		Key: EpisodeKey(id),
		Fetch: fetcher(func(ctx context.Context) (seriesnet.Episode, error) {
			return s.api.GetEpisode(ctx, id, sess.Token)
		}),
	}
}

// Favourites loads the favourite list of sess.
func (s *Store) Favourites(sess session.Session) Query {
	return Query{
		Key: FavouritesKey(sess.Token),
		Fetch: fetcher(func(ctx context.Context) ([]seriesnet.Series, error) {
			if sess.Anonymous() {
				return nil, ErrLoginRequired
			}
			return s.api.ListFavourites(ctx, sess.Token)
		}),
	}
}

// Users loads one page of the user directory.
func (s *Store) Users(f seriesnet.UserFilter) Query {
	f.Page = normalizePage(f.Page)
	return Query{
		Key: UsersKey(f),
		Fetch: fetcher(func(ctx context.Context) ([]seriesnet.UserRef, error) {
			return s.api.ListUsers(ctx, f)
		}),
	}
}

// User loads one user.
func (s *Store) User(id string) Query {
	return Query{
		Key: UserKey(id),
		Fetch: fetcher(func(ctx context.Context) (seriesnet.UserRef, error) {
			return s.api.GetUser(ctx, id)
		}),
	}
}

// FetchAsset downloads a static file. Assets bypass the cache.
func (s *Store) FetchAsset(ctx context.Context, url string) ([]byte, error) {
	return s.api.FetchAsset(ctx, url)
}
