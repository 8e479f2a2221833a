package seriesnet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	qs "github.com/google/go-querystring/query"
	"github.com/google/uuid"
)

// API defines every backend operation the client performs. *Client
// implements it; tests and the domain layer may substitute their own.
type API interface {
	Login(ctx context.Context, creds Credentials) (Auth, error)
	Register(ctx context.Context, reg Registration) (Auth, error)
	Logout(ctx context.Context, token string) error

	ListPosts(ctx context.Context, filter PostFilter) ([]Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	ListUserPosts(ctx context.Context, userID string) ([]Post, error)
	CreatePost(ctx context.Context, in PostInput, token string) (Post, error)
	EditPost(ctx context.Context, id string, in PostInput, token string) (Post, error)
	DeletePost(ctx context.Context, id, token string) error

	ListSeries(ctx context.Context, filter SeriesFilter) ([]Series, error)
	GetSeries(ctx context.Context, id, token string) (Series, error)
	CreateSeries(ctx context.Context, in SeriesInput, token string) (Series, error)
	EditSeries(ctx context.Context, id string, in SeriesInput, token string) (Series, error)
	DeleteSeries(ctx context.Context, id, token string) error

	ListGenres(ctx context.Context) ([]Genre, error)
	CreateGenre(ctx context.Context, name, token string) (Genre, error)
	DeleteGenre(ctx context.Context, id, token string) error

	GetEpisode(ctx context.Context, id, token string) (Episode, error)

	ListFavourites(ctx context.Context, token string) ([]Series, error)
	AddFavourite(ctx context.Context, seriesID, token string) error
	RemoveFavourite(ctx context.Context, seriesID, token string) error

	Like(ctx context.Context, r Reaction) error
	Dislike(ctx context.Context, r Reaction) error
	AddComment(ctx context.Context, in CommentInput) error

	ListUsers(ctx context.Context, filter UserFilter) ([]UserRef, error)
	GetUser(ctx context.Context, id string) (UserRef, error)

	FetchAsset(ctx context.Context, rawURL string) ([]byte, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the SeriesNet HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

const (
	defaultAPIURL    = "127.0.0.1:3000"
	defaultUserAgent = "seriesnet/0.1"
	requestTimeout   = 10 * time.Second
	maxAssetBytes    = 16 << 20
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the API at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration are the register form fields.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Gender   string `json:"gender,omitempty"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (Auth, error) {
	var out Auth
	if err := c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/login"}, "", creds, &out); err != nil {
		return Auth{}, err
	}
	return out, nil
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, reg Registration) (Auth, error) {
	var out Auth
	if err := c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/register"}, "", reg, &out); err != nil {
		return Auth{}, err
	}
	return out, nil
}

// Logout revokes the token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/logout"}, token, nil, nil)
}

// PostFilter configures /posts listing requests.
type PostFilter struct {
	Search string `url:"search,omitempty"`
	Tags   string `url:"tags,omitempty"`
	Page   int    `url:"page,omitempty"`
	Sort   string `url:"sort,omitempty"`
}

// ListPosts returns one page of the feed.
func (c *Client) ListPosts(ctx context.Context, filter PostFilter) ([]Post, error) {
	rel, err := withQuery("/posts", filter)
	if err != nil {
		return nil, err
	}
	var out []Post
	if err := c.doJSON(ctx, http.MethodGet, rel, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPost returns a single post.
func (c *Client) GetPost(ctx context.Context, id string) (Post, error) {
	if err := requireID(id); err != nil {
		return Post{}, err
	}
	var out Post
	if err := c.doJSON(ctx, http.MethodGet, pathURL("posts", id), "", nil, &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

// ListUserPosts returns the posts authored by userID.
func (c *Client) ListUserPosts(ctx context.Context, userID string) ([]Post, error) {
	if err := requireID(userID); err != nil {
		return nil, err
	}
	var out []Post
	if err := c.doJSON(ctx, http.MethodGet, pathURL("users", userID, "posts"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload is a file attached to a multipart request.
type Upload struct {
	Name string
	Data []byte
}

// PostInput carries the post compose/edit form.
type PostInput struct {
	Title        string
	Content      string
	Tags         []string
	Images       []Upload
	Announcement bool
}

func (in PostInput) fields() multipartForm {
	form := multipartForm{}
	form.set("title", in.Title)
	form.set("content", in.Content)
	for _, tag := range in.Tags {
		if t := strings.TrimSpace(tag); t != "" {
			form.add("tags", t)
		}
	}
	form.set("announcement", fmt.Sprintf("%t", in.Announcement))
	for _, img := range in.Images {
		form.file("images", img)
	}
	return form
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, in PostInput, token string) (Post, error) {
	var out Post
	if err := c.doMultipart(ctx, http.MethodPost, &url.URL{Path: "/posts"}, token, in.fields(), &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

// EditPost replaces a post's fields. New images are appended by the backend.
func (c *Client) EditPost(ctx context.Context, id string, in PostInput, token string) (Post, error) {
	if err := requireID(id); err != nil {
		return Post{}, err
	}
	var out Post
	if err := c.doMultipart(ctx, http.MethodPut, pathURL("posts", id), token, in.fields(), &out); err != nil {
		return Post{}, err
	}
	return out, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id, token string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, pathURL("posts", id), token, nil, nil)
}

// SeriesFilter configures /animes listing requests.
type SeriesFilter struct {
	Search string `url:"search,omitempty"`
	Genre  string `url:"genre,omitempty"`
	Sort   string `url:"sort,omitempty"`
	Token  string `url:"token,omitempty"`
}

// ListSeries returns the series catalogue.
func (c *Client) ListSeries(ctx context.Context, filter SeriesFilter) ([]Series, error) {
	rel, err := withQuery("/animes", filter)
	if err != nil {
		return nil, err
	}
	var out []Series
	if err := c.doJSON(ctx, http.MethodGet, rel, filter.Token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSeries returns one series with its episode list.
func (c *Client) GetSeries(ctx context.Context, id, token string) (Series, error) {
	if err := requireID(id); err != nil {
		return Series{}, err
	}
	var out Series
	if err := c.doJSON(ctx, http.MethodGet, pathURL("animes", id), token, nil, &out); err != nil {
		return Series{}, err
	}
	return out, nil
}

// SeriesInput carries the series compose/edit form. Nil images are left
// unchanged on edit.
type SeriesInput struct {
	Name        string
	Description string
	GenreIDs    []string
	Poster      *Upload
	Background  *Upload
}

func (in SeriesInput) fields() multipartForm {
	form := multipartForm{}
	form.set("name", in.Name)
	form.set("description", in.Description)
	ids := make([]string, 0, len(in.GenreIDs))
	for _, id := range in.GenreIDs {
		if t := strings.TrimSpace(id); t != "" {
			ids = append(ids, t)
		}
	}
	form.set("genres", strings.Join(ids, ","))
	if in.Poster != nil {
		form.file("poster", *in.Poster)
	}
	if in.Background != nil {
		form.file("background", *in.Background)
	}
	return form
}

// CreateSeries adds a series. Admin only.
func (c *Client) CreateSeries(ctx context.Context, in SeriesInput, token string) (Series, error) {
	var out Series
	if err := c.doMultipart(ctx, http.MethodPost, &url.URL{Path: "/animes"}, token, in.fields(), &out); err != nil {
		return Series{}, err
	}
	return out, nil
}

// EditSeries updates a series. Admin only.
func (c *Client) EditSeries(ctx context.Context, id string, in SeriesInput, token string) (Series, error) {
	if err := requireID(id); err != nil {
		return Series{}, err
	}
	var out Series
	if err := c.doMultipart(ctx, http.MethodPut, pathURL("animes", id), token, in.fields(), &out); err != nil {
		return Series{}, err
	}
	return out, nil
}

// DeleteSeries removes a series. Admin only.
func (c *Client) DeleteSeries(ctx context.Context, id, token string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, pathURL("animes", id), token, nil, nil)
}

// ListGenres returns every genre.
func (c *Client) ListGenres(ctx context.Context) ([]Genre, error) {
	var out []Genre
	if err := c.doJSON(ctx, http.MethodGet, &url.URL{Path: "/genres"}, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGenre adds a genre. Admin only.
func (c *Client) CreateGenre(ctx context.Context, name, token string) (Genre, error) {
	var out Genre
	body := map[string]string{"name": name}
	if err := c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/genres"}, token, body, &out); err != nil {
		return Genre{}, err
	}
	return out, nil
}

// DeleteGenre removes a genre. Admin only.
func (c *Client) DeleteGenre(ctx context.Context, id, token string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, pathURL("genres", id), token, nil, nil)
}

// GetEpisode returns an episode with its thread.
func (c *Client) GetEpisode(ctx context.Context, id, token string) (Episode, error) {
	if err := requireID(id); err != nil {
		return Episode{}, err
	}
	var out Episode
	if err := c.doJSON(ctx, http.MethodGet, pathURL("episodes", id), token, nil, &out); err != nil {
		return Episode{}, err
	}
	return out, nil
}

// ListFavourites returns the series in the user's list.
func (c *Client) ListFavourites(ctx context.Context, token string) ([]Series, error) {
	var out []Series
	if err := c.doJSON(ctx, http.MethodGet, &url.URL{Path: "/lists"}, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddFavourite adds a series to the user's list.
func (c *Client) AddFavourite(ctx context.Context, seriesID, token string) error {
	if err := requireID(seriesID); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, pathURL("lists", seriesID), token, nil, nil)
}

// RemoveFavourite drops a series from the user's list.
func (c *Client) RemoveFavourite(ctx context.Context, seriesID, token string) error {
	if err := requireID(seriesID); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, pathURL("lists", seriesID), token, nil, nil)
}

// Reaction identifies what a like or dislike applies to.
type Reaction struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Token string `json:"-"`
}

// Like toggles a like on the target.
func (c *Client) Like(ctx context.Context, r Reaction) error {
	return c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/likes"}, r.Token, r, nil)
}

// Dislike toggles a dislike on the target.
func (c *Client) Dislike(ctx context.Context, r Reaction) error {
	return c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/dislikes"}, r.Token, r, nil)
}

// CommentInput appends a comment to a post or episode thread.
type CommentInput struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Content string `json:"content"`
	Token   string `json:"-"`
}

// AddComment appends a comment.
func (c *Client) AddComment(ctx context.Context, in CommentInput) error {
	return c.doJSON(ctx, http.MethodPost, &url.URL{Path: "/comments"}, in.Token, in, nil)
}

// UserFilter configures /users listing requests.
type UserFilter struct {
	Username string `url:"username,omitempty"`
	Page     int    `url:"page,omitempty"`
}

// ListUsers returns one page of the user directory.
func (c *Client) ListUsers(ctx context.Context, filter UserFilter) ([]UserRef, error) {
	rel, err := withQuery("/users", filter)
	if err != nil {
		return nil, err
	}
	var out []UserRef
	if err := c.doJSON(ctx, http.MethodGet, rel, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, id string) (UserRef, error) {
	if err := requireID(id); err != nil {
		return UserRef{}, err
	}
	var out UserRef
	if err := c.doJSON(ctx, http.MethodGet, pathURL("users", id), "", nil, &out); err != nil {
		return UserRef{}, err
	}
	return out, nil
}

// FetchAsset downloads a static asset (images, unauthenticated).
func (c *Client) FetchAsset(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Path: req.URL.Path, Msg: http.StatusText(resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, method string, rel *url.URL, token string, body, dest any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, method, rel, token, reader, contentType, dest)
}

func (c *Client) doMultipart(ctx context.Context, method string, rel *url.URL, token string, form multipartForm, dest any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := form.write(w); err != nil {
		return fmt.Errorf("encode multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode multipart: %w", err)
	}
	return c.do(ctx, method, rel, token, &buf, w.FormDataContentType(), dest)
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, token string, body io.Reader, contentType string, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", rel.Path, "request_id", requestID, "error", err)
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request done",
		"method", method,
		"path", rel.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return decodeError(resp, rel.Path)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response, path string) error {
	apiErr := &APIError{Status: resp.StatusCode, Path: path}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && strings.TrimSpace(body.Msg) != "" {
		apiErr.Msg = body.Msg
	} else {
		apiErr.Msg = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Msg    string
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Msg)
}

// IsUnauthorized reports whether err is an authorization failure, which is how
// an expired token is discovered.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// Message returns the text to show a user for err: the backend's message for
// API errors, the error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Msg != "" {
		return apiErr.Msg
	}
	return err.Error()
}

type multipartPart struct {
	name   string
	value  string
	upload *Upload
}

type multipartForm []multipartPart

// set replaces any earlier value for name; add appends another one.
func (f *multipartForm) set(name, value string) {
	for i, part := range *f {
		if part.name == name && part.upload == nil {
			(*f)[i].value = value
			return
		}
	}
	*f = append(*f, multipartPart{name: name, value: value})
}

func (f *multipartForm) add(name, value string) {
	*f = append(*f, multipartPart{name: name, value: value})
}

func (f *multipartForm) file(name string, u Upload) {
	up := u
	*f = append(*f, multipartPart{name: name, upload: &up})
}

func (f multipartForm) write(w *multipart.Writer) error {
	for _, part := range f {
		if part.upload == nil {
			if err := w.WriteField(part.name, part.value); err != nil {
				return err
			}
			continue
		}
		fw, err := w.CreateFormFile(part.name, part.upload.Name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(part.upload.Data); err != nil {
			return err
		}
	}
	return nil
}

func withQuery(path string, params any) (*url.URL, error) {
	values, err := qs.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return &url.URL{Path: path, RawQuery: values.Encode()}, nil
}

// pathURL keeps each segment opaque: Path holds the decoded form and RawPath
// the escaped one, so a "/" inside an id is sent as %2F.
func pathURL(segments ...string) *url.URL {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return &url.URL{
		Path:    "/" + strings.Join(segments, "/"),
		RawPath: "/" + strings.Join(escaped, "/"),
	}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id required")
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
