// Package mockapi is an in-memory SeriesNet backend for local development and
// end-to-end tests of the client.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	roleAdmin    = "Admin"
	roleUser     = "User"
	pageSize     = 10
	tokenTTL     = 24 * time.Hour
	maxFormBytes = 32 << 20
)

// Options configures a Server.
type Options struct {
	Secret []byte
	Logger *slog.Logger
	Now    func() time.Time
	// BcryptCost is the password hashing cost. Zero uses bcrypt.DefaultCost.
	BcryptCost int
}

// Server holds the backend state. All handlers serialise on one mutex.
type Server struct {
	secret     []byte
	logger     *slog.Logger
	now        func() time.Time
	router     chi.Router
	bcryptCost int

	mu       sync.Mutex
	users    map[string]*user
	posts    map[string]*post
	series   map[string]*series
	genres   map[string]string
	episodes map[string]*episode
	lists    map[string][]string
	assets   map[string][]byte
	revoked  map[string]bool
}

// New builds an empty Server.
func New(opts Options) *Server {
	secret := opts.Secret
	if len(secret) == 0 {
		secret = []byte(newID())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &Server{
		secret:     secret,
		logger:     logger,
		now:        now,
		bcryptCost: cost,
		users:      make(map[string]*user),
		posts:      make(map[string]*post),
		series:     make(map[string]*series),
		genres:     make(map[string]string),
		episodes:   make(map[string]*episode),
		lists:      make(map[string][]string),
		assets:     make(map[string][]byte),
		revoked:    make(map[string]bool),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API and static assets.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.authenticate)

	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)
	r.With(requireAuth).Post("/logout", s.handleLogout)

	r.Get("/posts", s.handleListPosts)
	r.Get("/posts/{id}", s.handleGetPost)
	r.With(requireAuth).Post("/posts", s.handleCreatePost)
	r.With(requireAuth).Put("/posts/{id}", s.handleEditPost)
	r.With(requireAuth).Delete("/posts/{id}", s.handleDeletePost)

	r.Get("/animes", s.handleListSeries)
	r.Get("/animes/{id}", s.handleGetSeries)
	r.With(requireAdmin).Post("/animes", s.handleCreateSeries)
	r.With(requireAdmin).Put("/animes/{id}", s.handleEditSeries)
	r.With(requireAdmin).Delete("/animes/{id}", s.handleDeleteSeries)

	r.Get("/genres", s.handleListGenres)
	r.With(requireAdmin).Post("/genres", s.handleCreateGenre)
	r.With(requireAdmin).Delete("/genres/{id}", s.handleDeleteGenre)

	r.Get("/episodes/{id}", s.handleGetEpisode)

	r.With(requireAuth).Get("/lists", s.handleListFavourites)
	r.With(requireAuth).Post("/lists/{id}", s.handleAddFavourite)
	r.With(requireAuth).Delete("/lists/{id}", s.handleRemoveFavourite)

	r.With(requireAuth).Post("/likes", s.handleReaction(true))
	r.With(requireAuth).Post("/dislikes", s.handleReaction(false))
	r.With(requireAuth).Post("/comments", s.handleComment)

	r.Get("/users", s.handleListUsers)
	r.Get("/users/{id}", s.handleGetUser)
	r.Get("/users/{id}/posts", s.handleUserPosts)

	for _, dir := range []string{"profileImg", "postImg", "animeImg", "videos"} {
		r.Get("/"+dir+"/{name}", s.handleAsset(dir))
	}
	return r
}

type claimsKey struct{}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u *user) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: u.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id,
			ID:        newID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// authenticate attaches the caller's claims to the request when a valid,
// unrevoked bearer token (or token query param) is present.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if raw == "" {
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			writeMsg(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.mu.Lock()
		revoked := s.revoked[claims.ID]
		_, known := s.users[claims.Subject]
		s.mu.Unlock()
		if revoked || !known {
			writeMsg(w, http.StatusUnauthorized, "Session expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func claimsFrom(r *http.Request) (*tokenClaims, bool) {
	c, ok := r.Context().Value(claimsKey{}).(*tokenClaims)
	return c, ok
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := claimsFrom(r); !ok {
			writeMsg(w, http.StatusUnauthorized, "You need to login first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := claimsFrom(r)
		if c.Role != roleAdmin {
			writeMsg(w, http.StatusForbidden, "Admin only")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", r.Header.Get("X-Request-ID"),
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) handleAsset(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(chi.URLParam(r, "name"))
		s.mu.Lock()
		data, ok := s.assets[dir+"/"+name]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		_, _ = w.Write(data)
	}
}
