package mockapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/five82/seriesnet/internal/seriesnet"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds seriesnet.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByName(creds.Username)
	if u == nil || !checkPassword(u.hash, creds.Password) {
		writeMsg(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.respondAuth(w, u)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg seriesnet.Registration
	if err := decodeBody(r, &reg); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(reg.Username) == "" || reg.Password == "" {
		writeMsg(w, http.StatusBadRequest, "All fields are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByName(reg.Username) != nil {
		writeMsg(w, http.StatusConflict, "Username already taken")
		return
	}
	u, err := s.addUser(reg.Username, reg.Password, reg.Gender, roleUser)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "Could not create user")
		return
	}
	s.respondAuth(w, u)
}

func (s *Server) respondAuth(w http.ResponseWriter, u *user) {
	token, err := s.issueToken(u)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	u.online = true
	writeJSON(w, http.StatusOK, seriesnet.Auth{Token: token, Role: u.role, UserID: u.id, Image: u.profile})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[c.ID] = true
	if u, ok := s.users[c.Subject]; ok {
		u.online = false
	}
	writeMsg(w, http.StatusOK, "Logged out")
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := paginate(s.filterPosts(q.Get("search"), q.Get("tags"), q.Get("sort")), page, pageSize)
	out := make([]seriesnet.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.renderPost(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[chi.URLParam(r, "id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, s.renderPost(p))
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []seriesnet.Post{}
	for _, p := range s.filterPosts("", "", "") {
		if p.userID == id {
			out = append(out, s.renderPost(p))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid form")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	files := r.MultipartForm.File["images"]
	if title == "" {
		writeMsg(w, http.StatusBadRequest, "Title cannot be empty.")
		return
	}
	if content == "" && len(files) == 0 {
		writeMsg(w, http.StatusBadRequest, "Please add content or upload at least one image.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	images, err := s.storeFiles("postImg", files)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Could not read image")
		return
	}
	now := s.now().UTC()
	p := &post{
		id:           newID(),
		title:        title,
		content:      content,
		tags:         formTags(r.MultipartForm),
		images:       images,
		announcement: r.FormValue("announcement") == "true" && c.Role == roleAdmin,
		userID:       c.Subject,
		createdAt:    now,
		updatedAt:    now,
	}
	s.posts[p.id] = p
	writeJSON(w, http.StatusCreated, s.renderPost(p))
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid form")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[chi.URLParam(r, "id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}
	if p.userID != c.Subject {
		writeMsg(w, http.StatusForbidden, "forbidden")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	files := r.MultipartForm.File["images"]
	if title == "" {
		writeMsg(w, http.StatusBadRequest, "Title shouldn't be empty")
		return
	}
	if content == "" && len(files) == 0 && len(p.images) == 0 {
		writeMsg(w, http.StatusBadRequest, "Type some content or upload an image")
		return
	}
	images, err := s.storeFiles("postImg", files)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Could not read image")
		return
	}
	p.title = title
	p.content = content
	p.tags = formTags(r.MultipartForm)
	p.images = append(p.images, images...)
	if c.Role == roleAdmin {
		p.announcement = r.FormValue("announcement") == "true"
	}
	p.updatedAt = s.now().UTC()
	writeJSON(w, http.StatusOK, s.renderPost(p))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	p, ok := s.posts[id]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}
	if p.userID != c.Subject && c.Role != roleAdmin {
		writeMsg(w, http.StatusForbidden, "forbidden")
		return
	}
	delete(s.posts, id)
	writeMsg(w, http.StatusOK, "Post deleted")
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.filterSeries(q.Get("search"), q.Get("genre"), q.Get("sort"))
	out := make([]seriesnet.Series, 0, len(list))
	for _, sr := range list {
		out = append(out, s.renderSeries(sr, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.series[chi.URLParam(r, "id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Series not found")
		return
	}
	writeJSON(w, http.StatusOK, s.renderSeries(sr, true))
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid form")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	desc := strings.TrimSpace(r.FormValue("description"))
	genres := splitIDs(r.FormValue("genres"))
	posters := r.MultipartForm.File["poster"]
	backgrounds := r.MultipartForm.File["background"]
	if name == "" || desc == "" || len(genres) == 0 || len(posters) == 0 || len(backgrounds) == 0 {
		writeMsg(w, http.StatusBadRequest, "All fields are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if missing := s.unknownGenre(genres); missing != "" {
		writeMsg(w, http.StatusBadRequest, "Unknown genre "+missing)
		return
	}
	poster, err := s.storeFiles("animeImg", posters[:1])
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Could not read image")
		return
	}
	background, err := s.storeFiles("animeImg", backgrounds[:1])
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Could not read image")
		return
	}
	sr := &series{id: newID(), name: name, description: desc, genres: genres, poster: poster[0], background: background[0]}
	s.series[sr.id] = sr
	writeJSON(w, http.StatusCreated, s.renderSeries(sr, true))
}

func (s *Server) handleEditSeries(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid form")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.series[chi.URLParam(r, "id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Series not found")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	desc := strings.TrimSpace(r.FormValue("description"))
	genres := splitIDs(r.FormValue("genres"))
	if name == "" || desc == "" || len(genres) == 0 {
		writeMsg(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if missing := s.unknownGenre(genres); missing != "" {
		writeMsg(w, http.StatusBadRequest, "Unknown genre "+missing)
		return
	}
	if files := r.MultipartForm.File["poster"]; len(files) > 0 {
		names, err := s.storeFiles("animeImg", files[:1])
		if err != nil {
			writeMsg(w, http.StatusBadRequest, "Could not read image")
			return
		}
		sr.poster = names[0]
	}
	if files := r.MultipartForm.File["background"]; len(files) > 0 {
		names, err := s.storeFiles("animeImg", files[:1])
		if err != nil {
			writeMsg(w, http.StatusBadRequest, "Could not read image")
			return
		}
		sr.background = names[0]
	}
	sr.name, sr.description, sr.genres = name, desc, genres
	writeJSON(w, http.StatusOK, s.renderSeries(sr, true))
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.series[id]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Series not found")
		return
	}
	for _, eid := range sr.episodes {
		delete(s.episodes, eid)
	}
	delete(s.series, id)
	for uid, list := range s.lists {
		s.lists[uid] = slices.DeleteFunc(list, func(sid string) bool { return sid == id })
	}
	writeMsg(w, http.StatusOK, "Series deleted")
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]seriesnet.Genre, 0, len(s.genres))
	for id, name := range s.genres {
		out = append(out, seriesnet.Genre{ID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b seriesnet.Genre) int { return strings.Compare(a.Name, b.Name) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeMsg(w, http.StatusBadRequest, "Genre name should not be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.genres {
		if strings.EqualFold(existing, name) {
			writeMsg(w, http.StatusConflict, "Genre already exists")
			return
		}
	}
	id := newID()
	s.genres[id] = name
	writeJSON(w, http.StatusCreated, seriesnet.Genre{ID: id, Name: name})
}

func (s *Server) handleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.genres[id]; !ok {
		writeMsg(w, http.StatusNotFound, "Genre not found")
		return
	}
	delete(s.genres, id)
	for _, sr := range s.series {
		sr.genres = slices.DeleteFunc(sr.genres, func(g string) bool { return g == id })
	}
	writeMsg(w, http.StatusOK, "Genre deleted")
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.episodes[chi.URLParam(r, "id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "Episode not found")
		return
	}
	writeJSON(w, http.StatusOK, s.renderEpisode(e))
}

func (s *Server) handleListFavourites(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []seriesnet.Series{}
	for _, id := range s.lists[c.Subject] {
		if sr, ok := s.series[id]; ok {
			out = append(out, s.renderSeries(sr, false))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddFavourite(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[id]; !ok {
		writeMsg(w, http.StatusNotFound, "Series not found")
		return
	}
	if slices.Contains(s.lists[c.Subject], id) {
		writeMsg(w, http.StatusConflict, "Already in your list")
		return
	}
	s.lists[c.Subject] = append(s.lists[c.Subject], id)
	writeMsg(w, http.StatusOK, "Added to list")
}

func (s *Server) handleRemoveFavourite(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[c.Subject]
	i := slices.Index(list, id)
	if i < 0 {
		writeMsg(w, http.StatusNotFound, "Not in your list")
		return
	}
	s.lists[c.Subject] = slices.Delete(list, i, i+1)
	writeMsg(w, http.StatusOK, "Removed from list")
}

func (s *Server) handleReaction(like bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, _ := claimsFrom(r)
		var body seriesnet.Reaction
		if err := decodeBody(r, &body); err != nil {
			writeMsg(w, http.StatusBadRequest, "Invalid request")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		target, ok := s.target(body.Type, body.ID)
		if !ok {
			writeMsg(w, http.StatusNotFound, "Not found")
			return
		}
		likes, dislikes := target.reactions()
		if like {
			toggle(likes, dislikes, c.Subject)
		} else {
			toggle(dislikes, likes, c.Subject)
		}
		writeMsg(w, http.StatusOK, "Updated")
	}
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	c, _ := claimsFrom(r)
	var body seriesnet.CommentInput
	if err := decodeBody(r, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request")
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		writeMsg(w, http.StatusBadRequest, "Content should not be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cm := comment{id: newID(), userID: c.Subject, content: content, createdAt: s.now().UTC()}
	switch body.Type {
	case seriesnet.TargetPost:
		p, ok := s.posts[body.ID]
		if !ok {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		p.comments = append(p.comments, cm)
	case seriesnet.TargetEpisode:
		e, ok := s.episodes[body.ID]
		if !ok {
			writeMsg(w, http.StatusNotFound, "Episode not found")
			return
		}
		e.comments = append(e.comments, cm)
	default:
		writeMsg(w, http.StatusBadRequest, "Unknown type")
		return
	}
	writeMsg(w, http.StatusCreated, "Comment added")
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	name := q.Get("username")
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []seriesnet.UserRef
	for id, u := range s.users {
		if name != "" && !containsFold(u.username, name) {
			continue
		}
		matched = append(matched, s.userRef(id))
	}
	slices.SortFunc(matched, func(a, b seriesnet.UserRef) int { return strings.Compare(a.Username, b.Username) })
	writeJSON(w, http.StatusOK, paginate(matched, page, pageSize))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, s.userRef(id))
}

func (s *Server) target(kind, id string) (reactable, bool) {
	switch kind {
	case seriesnet.TargetPost:
		p, ok := s.posts[id]
		return p, ok
	case seriesnet.TargetEpisode:
		e, ok := s.episodes[id]
		return e, ok
	}
	return nil, false
}

func (s *Server) userByName(name string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.username, strings.TrimSpace(name)) {
			return u
		}
	}
	return nil
}

func (s *Server) addUser(username, password, gender, role string) (*user, error) {
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &user{id: newID(), username: strings.TrimSpace(username), hash: hash, gender: gender, role: role}
	s.users[u.id] = u
	return u, nil
}

func (s *Server) unknownGenre(ids []string) string {
	for _, id := range ids {
		if _, ok := s.genres[id]; !ok {
			return id
		}
	}
	return ""
}

func (s *Server) storeFiles(dir string, files []*multipart.FileHeader) ([]string, error) {
	names := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		name := newID() + strings.ToLower(filepath.Ext(fh.Filename))
		s.assets[dir+"/"+name] = data
		names = append(names, name)
	}
	return names, nil
}

func formTags(form *multipart.Form) []string {
	var tags []string
	for _, raw := range form.Value["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
