package state

import (
	"context"

	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/session"
)

func postPatterns(id string) []query.Key {
	keys := []query.Key{query.K("posts")}
	if id != "" {
		keys = append(keys, PostKey(id))
	}
	return keys
}

func seriesPatterns(id string) []query.Key {
	keys := []query.Key{query.K("animes"), query.K("list")}
	if id != "" {
		keys = append(keys, SeriesKey(id))
	}
	return keys
}

func targetPatterns(target, id string) []query.Key {
	if target == seriesnet.TargetEpisode {
		return []query.Key{EpisodeKey(id)}
	}
	return postPatterns(id)
}

func requireSession(sess session.Session) error {
	if sess.Anonymous() {
		return ErrLoginRequired
	}
	return nil
}

// Login exchanges credentials for a session, stores it and invalidates every
// cached query.
func (s *Store) Login(ctx context.Context, creds seriesnet.Credentials) (session.Session, error) {
	return s.authenticate(ctx, func(ctx context.Context) (seriesnet.Auth, error) {
		return s.api.Login(ctx, creds)
	})
}

// Register creates an account and logs in with it.
func (s *Store) Register(ctx context.Context, reg seriesnet.Registration) (session.Session, error) {
	return s.authenticate(ctx, func(ctx context.Context) (seriesnet.Auth, error) {
		return s.api.Register(ctx, reg)
	})
}

func (s *Store) authenticate(ctx context.Context, fn func(context.Context) (seriesnet.Auth, error)) (session.Session, error) {
	var sess session.Session
	res := s.cache.Mutate(ctx, func(ctx context.Context) (any, error) {
		auth, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		sess = session.Session{
			Token:  auth.Token,
			Role:   session.Role(auth.Role),
			UserID: auth.UserID,
			Avatar: auth.Image,
		}
		if err := s.sessions.Set(sess); err != nil {
			return nil, err
		}
		return sess, nil
	}, query.MutateOptions{Invalidates: []query.Key{query.K()}})
	if res.Err != nil {
		return session.Session{}, res.Err
	}
	s.logger.Info("logged in", "user_id", sess.UserID, "role", string(sess.Role))
	return sess, nil
}

// Logout revokes the session on the backend. The local session is cleared
// only when the backend accepts the logout.
func (s *Store) Logout(ctx context.Context, sess session.Session) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	res := s.cache.Mutate(ctx, func(ctx context.Context) (any, error) {
		if err := s.api.Logout(ctx, sess.Token); err != nil {
			return nil, err
		}
		return nil, s.sessions.Clear()
	}, query.MutateOptions{Invalidates: []query.Key{query.K()}})
	if res.Err != nil {
		return res.Err
	}
	s.logger.Info("logged out", "user_id", sess.UserID)
	return nil
}

// CreatePost publishes a post.
func (s *Store) CreatePost(ctx context.Context, sess session.Session, in seriesnet.PostInput) (seriesnet.Post, error) {
	if err := requireSession(sess); err != nil {
		return seriesnet.Post{}, err
	}
	return query.Do(ctx, s.cache, func(ctx context.Context) (seriesnet.Post, error) {
		return s.api.CreatePost(ctx, in, sess.Token)
	}, query.MutateOptions{Invalidates: postPatterns("")})
}

// EditPost updates a post.
func (s *Store) EditPost(ctx context.Context, sess session.Session, id string, in seriesnet.PostInput) (seriesnet.Post, error) {
	if err := requireSession(sess); err != nil {
		return seriesnet.Post{}, err
	}
	return query.Do(ctx, s.cache, func(ctx context.Context) (seriesnet.Post, error) {
		return s.api.EditPost(ctx, id, in, sess.Token)
	}, query.MutateOptions{Invalidates: postPatterns(id)})
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, sess session.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.DeletePost(ctx, id, sess.Token)
	}, postPatterns(id))
}

// Like toggles a like on a post or episode.
func (s *Store) Like(ctx context.Context, sess session.Session, target, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.Like(ctx, seriesnet.Reaction{Type: target, ID: id, Token: sess.Token})
	}, targetPatterns(target, id))
}

// Dislike toggles a dislike on a post or episode.
func (s *Store) Dislike(ctx context.Context, sess session.Session, target, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.Dislike(ctx, seriesnet.Reaction{Type: target, ID: id, Token: sess.Token})
	}, targetPatterns(target, id))
}

// AddComment appends a comment to a post or episode thread.
func (s *Store) AddComment(ctx context.Context, sess session.Session, target, id, content string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.AddComment(ctx, seriesnet.CommentInput{Type: target, ID: id, Content: content, Token: sess.Token})
	}, targetPatterns(target, id))
}

// CreateSeries adds a series.
func (s *Store) CreateSeries(ctx context.Context, sess session.Session, in seriesnet.SeriesInput) (seriesnet.Series, error) {
	if err := requireSession(sess); err != nil {
		return seriesnet.Series{}, err
	}
	return query.Do(ctx, s.cache, func(ctx context.Context) (seriesnet.Series, error) {
		return s.api.CreateSeries(ctx, in, sess.Token)
	}, query.MutateOptions{Invalidates: seriesPatterns("")})
}

// EditSeries updates a series.
func (s *Store) EditSeries(ctx context.Context, sess session.Session, id string, in seriesnet.SeriesInput) (seriesnet.Series, error) {
	if err := requireSession(sess); err != nil {
		return seriesnet.Series{}, err
	}
	return query.Do(ctx, s.cache, func(ctx context.Context) (seriesnet.Series, error) {
		return s.api.EditSeries(ctx, id, in, sess.Token)
	}, query.MutateOptions{Invalidates: seriesPatterns(id)})
}

// DeleteSeries removes a series.
func (s *Store) DeleteSeries(ctx context.Context, sess session.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.DeleteSeries(ctx, id, sess.Token)
	}, seriesPatterns(id))
}

// CreateGenre adds a genre.
func (s *Store) CreateGenre(ctx context.Context, sess session.Session, name string) (seriesnet.Genre, error) {
	if err := requireSession(sess); err != nil {
		return seriesnet.Genre{}, err
	}
	return query.Do(ctx, s.cache, func(ctx context.Context) (seriesnet.Genre, error) {
		return s.api.CreateGenre(ctx, name, sess.Token)
	}, query.MutateOptions{Invalidates: []query.Key{GenresKey()}})
}

// DeleteGenre removes a genre. Series listings filtered by it change too.
func (s *Store) DeleteGenre(ctx context.Context, sess session.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.DeleteGenre(ctx, id, sess.Token)
	}, []query.Key{GenresKey(), query.K("animes")})
}

// AddFavourite adds a series to the session's list.
func (s *Store) AddFavourite(ctx context.Context, sess session.Session, seriesID string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.AddFavourite(ctx, seriesID, sess.Token)
	}, []query.Key{query.K("list"), SeriesKey(seriesID)})
}

// RemoveFavourite drops a series from the session's list.
func (s *Store) RemoveFavourite(ctx context.Context, sess session.Session, seriesID string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	return s.exec(ctx, func(ctx context.Context) error {
		return s.api.RemoveFavourite(ctx, seriesID, sess.Token)
	}, []query.Key{query.K("list"), SeriesKey(seriesID)})
}

func (s *Store) exec(ctx context.Context, fn func(context.Context) error, invalidates []query.Key) error {
	res := s.cache.Mutate(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	}, query.MutateOptions{Invalidates: invalidates})
	return res.Err
}
