package mockapi

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/seriesnet/internal/seriesnet"
)

type user struct {
	id       string
	username string
	hash     []byte
	gender   string
	role     string
	profile  string
	online   bool
}

type comment struct {
	id        string
	userID    string
	content   string
	createdAt time.Time
}

type post struct {
	id           string
	title        string
	content      string
	tags         []string
	images       []string
	announcement bool
	userID       string
	likes        []string
	dislikes     []string
	comments     []comment
	createdAt    time.Time
	updatedAt    time.Time
}

type series struct {
	id          string
	name        string
	description string
	genres      []string
	poster      string
	background  string
	episodes    []string
}

type episode struct {
	id       string
	seriesID string
	number   int
	title    string
	video    string
	likes    []string
	dislikes []string
	comments []comment
}

type reactable interface {
	reactions() (likes, dislikes *[]string)
}

func (p *post) reactions() (*[]string, *[]string) {
	return &p.likes, &p.dislikes
}

func (e *episode) reactions() (*[]string, *[]string) {
	return &e.likes, &e.dislikes
}

func newID() string {
	return ulid.Make().String()
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// toggle flips userID in set, and removes it from the opposite set so a user
// is never in both.
func toggle(set, opposite *[]string, userID string) {
	if i := slices.Index(*set, userID); i >= 0 {
		*set = slices.Delete(*set, i, i+1)
		return
	}
	*set = append(*set, userID)
	if i := slices.Index(*opposite, userID); i >= 0 {
		*opposite = slices.Delete(*opposite, i, i+1)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func paginate[T any](items []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

func (s *Server) userRef(id string) seriesnet.UserRef {
	u, ok := s.users[id]
	if !ok {
		return seriesnet.UserRef{ID: id}
	}
	return seriesnet.UserRef{
		ID:       u.id,
		Username: u.username,
		Profile:  u.profile,
		Gender:   u.gender,
		Role:     u.role,
		IsOnline: u.online,
	}
}

func (s *Server) renderComments(in []comment) []seriesnet.Comment {
	out := make([]seriesnet.Comment, 0, len(in))
	for _, c := range in {
		out = append(out, seriesnet.Comment{
			ID:        c.id,
			Author:    s.userRef(c.userID),
			Content:   c.content,
			CreatedAt: c.createdAt.Format(time.RFC3339Nano),
		})
	}
	return out
}

func (s *Server) renderPost(p *post) seriesnet.Post {
	return seriesnet.Post{
		ID:           p.id,
		Title:        p.title,
		Content:      p.content,
		Tags:         slices.Clone(p.tags),
		Images:       slices.Clone(p.images),
		Announcement: p.announcement,
		Author:       s.userRef(p.userID),
		Likes:        slices.Clone(p.likes),
		Dislikes:     slices.Clone(p.dislikes),
		Comments:     s.renderComments(p.comments),
		CreatedAt:    p.createdAt.Format(time.RFC3339Nano),
		UpdatedAt:    p.updatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Server) popularity(seriesID string) int {
	n := 0
	for _, list := range s.lists {
		if slices.Contains(list, seriesID) {
			n++
		}
	}
	return n
}

func (s *Server) renderSeries(sr *series, withEpisodes bool) seriesnet.Series {
	out := seriesnet.Series{
		ID:          sr.id,
		Name:        sr.name,
		Description: sr.description,
		Poster:      sr.poster,
		Background:  sr.background,
		Popularity:  s.popularity(sr.id),
	}
	for _, gid := range sr.genres {
		ref := seriesnet.GenreRef{ID: gid}
		if g, ok := s.genres[gid]; ok {
			ref.Name = g
		}
		out.Genres = append(out.Genres, ref)
	}
	if withEpisodes {
		for _, eid := range sr.episodes {
			if e, ok := s.episodes[eid]; ok {
				out.Episodes = append(out.Episodes, seriesnet.EpisodeRef{ID: e.id, Number: e.number, Title: e.title})
			}
		}
	}
	return out
}

func (s *Server) renderEpisode(e *episode) seriesnet.Episode {
	return seriesnet.Episode{
		ID:       e.id,
		SeriesID: e.seriesID,
		Video:    e.video,
		Number:   e.number,
		Title:    e.title,
		Likes:    slices.Clone(e.likes),
		Dislikes: slices.Clone(e.dislikes),
		Comments: s.renderComments(e.comments),
	}
}

func (s *Server) filterPosts(search, tags, sortBy string) []*post {
	var out []*post
	wantTags := splitList(tags)
	for _, p := range s.posts {
		if search != "" && !containsFold(p.title, search) {
			continue
		}
		if len(wantTags) > 0 && !hasAnyTag(p.tags, wantTags) {
			continue
		}
		out = append(out, p)
	}
	switch sortBy {
	case "title":
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].title) < strings.ToLower(out[j].title)
		})
	case "popularity":
		sort.SliceStable(out, func(i, j int) bool {
			return len(out[i].likes) > len(out[j].likes)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].createdAt.After(out[j].createdAt)
		})
	}
	return out
}

func (s *Server) filterSeries(search, genre, sortBy string) []*series {
	var out []*series
	for _, sr := range s.series {
		if search != "" && !containsFold(sr.name, search) {
			continue
		}
		if genre != "" && !slices.Contains(sr.genres, genre) {
			continue
		}
		out = append(out, sr)
	}
	switch sortBy {
	case "popularity":
		sort.SliceStable(out, func(i, j int) bool {
			return s.popularity(out[i].id) > s.popularity(out[j].id)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].name) < strings.ToLower(out[j].name)
		})
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

func hasAnyTag(tags, want []string) bool {
	for _, t := range tags {
		if slices.Contains(want, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
