package mockapi

import (
	"fmt"
	"time"
)

// Account is a user created on the mock backend.
type Account struct {
	Username string
	Password string
	Admin    bool
}

// AddUser creates an account and returns its id.
func (s *Server) AddUser(a Account) (string, error) {
	role := roleUser
	if a.Admin {
		role = roleAdmin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByName(a.Username) != nil {
		return "", fmt.Errorf("user %q exists", a.Username)
	}
	u, err := s.addUser(a.Username, a.Password, "", role)
	if err != nil {
		return "", fmt.Errorf("add user: %w", err)
	}
	u.profile = "default.png"
	return u.id, nil
}

// PostSeed describes a post created directly in the store.
type PostSeed struct {
	AuthorID     string
	Title        string
	Content      string
	Tags         []string
	Announcement bool
}

// AddPost creates a post and returns its id.
func (s *Server) AddPost(p PostSeed) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	// Keep creation order stable when seeding many posts at once.
	now = now.Add(time.Duration(len(s.posts)) * time.Millisecond)
	rec := &post{
		id:           newID(),
		title:        p.Title,
		content:      p.Content,
		tags:         append([]string(nil), p.Tags...),
		announcement: p.Announcement,
		userID:       p.AuthorID,
		createdAt:    now,
		updatedAt:    now,
	}
	s.posts[rec.id] = rec
	return rec.id
}

// AddGenre creates a genre and returns its id.
func (s *Server) AddGenre(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.genres[id] = name
	return id
}

// AddSeries creates a series with numbered episodes and returns the series id
// and episode ids.
func (s *Server) AddSeries(name, description string, genreIDs []string, episodes int) (string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := &series{
		id:          newID(),
		name:        name,
		description: description,
		genres:      append([]string(nil), genreIDs...),
		poster:      "poster.png",
		background:  "background.png",
	}
	for i := 1; i <= episodes; i++ {
		e := &episode{
			id:       newID(),
			seriesID: sr.id,
			number:   i,
			title:    fmt.Sprintf("Episode %d", i),
			video:    fmt.Sprintf("videos/%s-%d.mp4", sr.id, i),
		}
		s.episodes[e.id] = e
		sr.episodes = append(sr.episodes, e.id)
	}
	s.series[sr.id] = sr
	return sr.id, sr.episodes
}

// Seed fills the store with demo content and the given admin account.
func (s *Server) Seed(admin Account) error {
	admin.Admin = true
	adminID, err := s.AddUser(admin)
	if err != nil {
		return err
	}
	userID, err := s.AddUser(Account{Username: "viewer", Password: "viewer"})
	if err != nil {
		return err
	}

	action := s.AddGenre("Action")
	drama := s.AddGenre("Drama")
	comedy := s.AddGenre("Comedy")
	s.AddSeries("Steel Horizon", "Pilots defend the last orbital city.", []string{action}, 3)
	s.AddSeries("Quiet Harbour", "A fishing town keeps its secrets.", []string{drama}, 2)
	s.AddSeries("Office Spirits", "Ghosts run a small accounting firm.", []string{comedy, drama}, 4)

	s.AddPost(PostSeed{AuthorID: adminID, Title: "Welcome to SeriesNet", Content: "Read the rules before posting.", Announcement: true})
	for i := 1; i <= 12; i++ {
		s.AddPost(PostSeed{
			AuthorID: userID,
			Title:    fmt.Sprintf("Weekly thread #%d", i),
			Content:  "What are you watching this week?",
			Tags:     []string{"weekly"},
		})
	}
	return nil
}
