package seriesnet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAPIURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultAPIURL)
	}

	u, err = parseBaseURL("https://api.example.com:1234/v1?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_ListEndpointsEncodeQueries(t *testing.T) {
	t.Parallel()

	queries := map[string]url.Values{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries[r.URL.Path] = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/posts":
			_ = json.NewEncoder(w).Encode([]Post{{ID: "p1", Title: "Hello"}})
		case "/animes":
			_ = json.NewEncoder(w).Encode([]Series{{ID: "s1", Genres: []GenreRef{{ID: "g1"}}}})
		case "/users":
			_ = json.NewEncoder(w).Encode([]UserRef{{ID: "u1", Username: "ann"}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	posts, err := c.ListPosts(ctx, PostFilter{Search: "naruto fans", Tags: "news", Page: 2, Sort: "likes"})
	if err != nil {
		t.Fatalf("ListPosts returned error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("ListPosts payload = %#v", posts)
	}
	q := queries["/posts"]
	if q.Get("search") != "naruto fans" || q.Get("tags") != "news" || q.Get("page") != "2" || q.Get("sort") != "likes" {
		t.Fatalf("posts query = %v", q)
	}

	if _, err := c.ListPosts(ctx, PostFilter{}); err != nil {
		t.Fatalf("ListPosts returned error: %v", err)
	}
	if len(queries["/posts"]) != 0 {
		t.Fatalf("empty filter should send no params, got %v", queries["/posts"])
	}

	series, err := c.ListSeries(ctx, SeriesFilter{Genre: "g1", Token: "tok"})
	if err != nil {
		t.Fatalf("ListSeries returned error: %v", err)
	}
	if len(series) != 1 || !series[0].HasGenre("g1") {
		t.Fatalf("ListSeries payload = %#v", series)
	}
	if q := queries["/animes"]; q.Get("genre") != "g1" || q.Get("token") != "tok" || q.Has("search") {
		t.Fatalf("animes query = %v", q)
	}

	users, err := c.ListUsers(ctx, UserFilter{Username: "an", Page: 1})
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 1 || users[0].Username != "ann" {
		t.Fatalf("ListUsers payload = %#v", users)
	}
	if q := queries["/users"]; q.Get("username") != "an" || q.Get("page") != "1" {
		t.Fatalf("users query = %v", q)
	}
}

func TestClient_SetsHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeletePost(testContext(t), "p1", "secret"); err != nil {
		t.Fatalf("DeletePost returned error: %v", err)
	}
	if got.Get("Authorization") != "Bearer secret" {
		t.Fatalf("Authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Accept") != "application/json" {
		t.Fatalf("Accept = %q", got.Get("Accept"))
	}
	if got.Get("User-Agent") != defaultUserAgent {
		t.Fatalf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID missing")
	}

	// An empty body cannot satisfy a JSON destination.
	if _, err := c.GetPost(testContext(t), "p1"); err == nil {
		t.Fatal("expected decode error for empty body")
	}
	if got.Get("Authorization") != "" {
		t.Fatalf("anonymous request sent Authorization %q", got.Get("Authorization"))
	}
}

func TestClient_LoginSendsJSONAndDecodesAuth(t *testing.T) {
	t.Parallel()

	var body Credentials
	var contentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			http.NotFound(w, r)
			return
		}
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"token":"t1","role":"Admin","_id":"u1","image":"me.png"}`)
	})

	auth, err := c.Login(testContext(t), Credentials{Username: "ann", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if auth != (Auth{Token: "t1", Role: "Admin", UserID: "u1", Image: "me.png"}) {
		t.Fatalf("auth = %#v", auth)
	}
	if contentType != "application/json" {
		t.Fatalf("Content-Type = %q", contentType)
	}
	if body.Username != "ann" || body.Password != "pw" {
		t.Fatalf("login body = %#v", body)
	}
}

func TestClient_ReactionAndCommentBodies(t *testing.T) {
	t.Parallel()

	bodies := map[string]map[string]any{}
	auths := map[string]string{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		bodies[r.URL.Path] = m
		auths[r.URL.Path] = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"msg":"ok"}`)
	})
	ctx := testContext(t)

	if err := c.Like(ctx, Reaction{Type: TargetPost, ID: "p1", Token: "T"}); err != nil {
		t.Fatalf("Like returned error: %v", err)
	}
	if err := c.Dislike(ctx, Reaction{Type: TargetEpisode, ID: "e1", Token: "T"}); err != nil {
		t.Fatalf("Dislike returned error: %v", err)
	}
	if err := c.AddComment(ctx, CommentInput{Type: TargetPost, ID: "p1", Content: "hi", Token: "T"}); err != nil {
		t.Fatalf("AddComment returned error: %v", err)
	}

	if b := bodies["/likes"]; b["type"] != "post" || b["id"] != "p1" {
		t.Fatalf("likes body = %v", b)
	}
	if _, leaked := bodies["/likes"]["Token"]; leaked {
		t.Fatal("token leaked into JSON body")
	}
	if b := bodies["/dislikes"]; b["type"] != "episode" || b["id"] != "e1" {
		t.Fatalf("dislikes body = %v", b)
	}
	if b := bodies["/comments"]; b["content"] != "hi" {
		t.Fatalf("comments body = %v", b)
	}
	for path, auth := range auths {
		if auth != "Bearer T" {
			t.Fatalf("%s Authorization = %q", path, auth)
		}
	}
}

func TestClient_CreatePostSendsMultipart(t *testing.T) {
	t.Parallel()

	type received struct {
		title, content, announcement string
		tags                         []string
		files                        []string
		data                         string
	}
	var got received
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			http.Error(w, `{"msg":"not multipart"}`, http.StatusBadRequest)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got.title = r.FormValue("title")
		got.content = r.FormValue("content")
		got.announcement = r.FormValue("announcement")
		got.tags = r.MultipartForm.Value["tags"]
		for _, fh := range r.MultipartForm.File["images"] {
			got.files = append(got.files, fh.Filename)
			f, _ := fh.Open()
			b, _ := io.ReadAll(f)
			_ = f.Close()
			got.data += string(b)
		}
		_ = json.NewEncoder(w).Encode(Post{ID: "p9", Title: got.title})
	})

	post, err := c.CreatePost(testContext(t), PostInput{
		Title:        "New arc",
		Content:      "spoilers",
		Tags:         []string{"news", " ", "arc"},
		Announcement: true,
		Images:       []Upload{{Name: "a.png", Data: []byte("AAA")}, {Name: "b.jpg", Data: []byte("BB")}},
	}, "T")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}
	if post.ID != "p9" {
		t.Fatalf("post = %#v", post)
	}
	if got.title != "New arc" || got.content != "spoilers" || got.announcement != "true" {
		t.Fatalf("fields = %#v", got)
	}
	if strings.Join(got.tags, ",") != "news,arc" {
		t.Fatalf("tags = %v", got.tags)
	}
	if strings.Join(got.files, ",") != "a.png,b.jpg" || got.data != "AAABB" {
		t.Fatalf("files = %v data = %q", got.files, got.data)
	}
}

func TestClient_SeriesFormJoinsGenreIDs(t *testing.T) {
	t.Parallel()

	var genres, method string
	var hasPoster, hasBackground bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		genres = r.FormValue("genres")
		_, hasPoster = r.MultipartForm.File["poster"]
		_, hasBackground = r.MultipartForm.File["background"]
		_ = json.NewEncoder(w).Encode(Series{ID: "s1"})
	})

	_, err := c.EditSeries(testContext(t), "s1", SeriesInput{
		Name:        "Show",
		Description: "desc",
		GenreIDs:    []string{"g1", "", "g2"},
		Poster:      &Upload{Name: "p.png", Data: []byte{1}},
	}, "T")
	if err != nil {
		t.Fatalf("EditSeries returned error: %v", err)
	}
	if method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", method)
	}
	if genres != "g1,g2" {
		t.Fatalf("genres = %q, want g1,g2", genres)
	}
	if !hasPoster || hasBackground {
		t.Fatalf("poster=%v background=%v, want only poster", hasPoster, hasBackground)
	}
}

func TestClient_DecodesBackendErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts/p1":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"msg":"forbidden"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "<html>oops</html>")
		}
	})
	ctx := testContext(t)

	err := c.DeletePost(ctx, "p1", "T")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Msg != "forbidden" || apiErr.Path != "/posts/p1" {
		t.Fatalf("apiErr = %#v", apiErr)
	}
	if Message(err) != "forbidden" {
		t.Fatalf("Message = %q", Message(err))
	}
	if !IsUnauthorized(err) {
		t.Fatal("403 should count as unauthorized")
	}

	_, err = c.ListGenres(ctx)
	if !errors.As(err, &apiErr) || apiErr.Msg != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("fallback message = %v", err)
	}
	if IsUnauthorized(err) {
		t.Fatal("500 should not count as unauthorized")
	}
}

func TestClient_RejectsEmptyIDs(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()
	if _, err := c.GetPost(ctx, " "); err == nil {
		t.Fatal("GetPost accepted empty id")
	}
	if err := c.AddFavourite(ctx, "", "T"); err == nil {
		t.Fatal("AddFavourite accepted empty id")
	}
}

func TestClient_PathSegmentsAreEscaped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		escaped string
		decoded string
	}{
		{id: "a/b", escaped: "/posts/a%2Fb", decoded: "/posts/a/b"},
		{id: "a b", escaped: "/posts/a%20b", decoded: "/posts/a b"},
		{id: "50%", escaped: "/posts/50%25", decoded: "/posts/50%"},
		{id: "p1", escaped: "/posts/p1", decoded: "/posts/p1"},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			var escaped, decoded string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				escaped = r.URL.EscapedPath()
				decoded = r.URL.Path
				_ = json.NewEncoder(w).Encode(Post{ID: tc.id})
			})
			if _, err := c.GetPost(testContext(t), tc.id); err != nil {
				t.Fatalf("GetPost returned error: %v", err)
			}
			if escaped != tc.escaped {
				t.Fatalf("escaped path = %q, want %q", escaped, tc.escaped)
			}
			if decoded != tc.decoded {
				t.Fatalf("decoded path = %q, want %q", decoded, tc.decoded)
			}
		})
	}
}

func TestClient_NestedPathKeepsSegments(t *testing.T) {
	t.Parallel()

	var escaped string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		escaped = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode([]Post{})
	})
	if _, err := c.ListUserPosts(testContext(t), "u 1/x"); err != nil {
		t.Fatalf("ListUserPosts returned error: %v", err)
	}
	if escaped != "/users/u%201%2Fx/posts" {
		t.Fatalf("path = %q", escaped)
	}
}

func TestMultipartForm_SetReplacesAddAppends(t *testing.T) {
	var form multipartForm
	form.set("title", "first")
	form.add("tags", "a")
	form.add("tags", "b")
	form.set("title", "second")

	var titles, tags []string
	for _, part := range form {
		switch part.name {
		case "title":
			titles = append(titles, part.value)
		case "tags":
			tags = append(tags, part.value)
		}
	}
	if len(titles) != 1 || titles[0] != "second" {
		t.Fatalf("titles = %v", titles)
	}
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestClient_FetchAssetLimitsAndFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/postImg/a.png" {
			_, _ = w.Write([]byte("PNGDATA"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	assets := NewAssets(server.URL)
	data, err := c.FetchAsset(testContext(t), assets.PostImage("a.png"))
	if err != nil {
		t.Fatalf("FetchAsset returned error: %v", err)
	}
	if string(data) != "PNGDATA" {
		t.Fatalf("data = %q", data)
	}
	if _, err := c.FetchAsset(testContext(t), assets.PostImage("missing.png")); err == nil {
		t.Fatal("expected error for missing asset")
	}
}

func TestAssets_BuildsURLs(t *testing.T) {
	a := NewAssets("http://host:3000/")
	cases := map[string]string{
		a.ProfileImage("me.png"):         "http://host:3000/profileImg/me.png",
		a.PostImage("x y.jpg"):           "http://host:3000/postImg/x%20y.jpg",
		a.SeriesImage("poster.png"):      "http://host:3000/animeImg/poster.png",
		a.Video("/videos/e1.mp4"):        "http://host:3000/videos/e1.mp4",
		a.Video("https://cdn/x.mp4"):     "https://cdn/x.mp4",
		a.ProfileImage("http://o/p.png"): "http://o/p.png",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if a.PostImage("") != "" {
		t.Fatal("empty name should produce empty URL")
	}
}

func TestWithOptions(t *testing.T) {
	h := &http.Client{}
	c, err := NewClient("example.com", WithHTTPClient(h), WithTimeout(3*time.Second), WithUserAgent("custom/1"))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.http != h || h.Timeout != 3*time.Second {
		t.Fatalf("http client not applied: %#v", c.http)
	}
	if c.userAgent != "custom/1" {
		t.Fatalf("userAgent = %q", c.userAgent)
	}
	if c.BaseURL() != "http://example.com" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
}
