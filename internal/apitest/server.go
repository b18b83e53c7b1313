// Package apitest is an in-memory implementation of the expense tracker
// backend. It serves every route the client uses and is meant for tests and
// local development, not production.
//
// Tests drive request ordering with Hold, which parks the next matching
// request until released, and inject failures with FailNext.
package apitest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendsync/internal/auth"
	"github.com/mmynk/spendsync/internal/middleware"
	"github.com/mmynk/spendsync/internal/models"
)

const (
	// DefaultPageSize is the number of expenses per listing page.
	DefaultPageSize = 10
	// DefaultBudget is the monthly budget of new accounts.
	DefaultBudget = 2000
	// DefaultCurrency is the currency of new accounts.
	DefaultCurrency = "USD"
)

// Options configure a Server.
type Options struct {
	// Secret signs session tokens.
	Secret string
	// TokenTTL is the lifetime of issued tokens. Defaults to 24h.
	TokenTTL time.Duration
	// PageSize defaults to DefaultPageSize.
	PageSize int
	// Now defaults to time.Now.
	Now func() time.Time
	// BcryptCost defaults to bcrypt.MinCost to keep tests fast.
	BcryptCost int
	// Logger enables request logging when set.
	Logger *slog.Logger
}

// Server is the fake backend.
type Server struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	auth     *auth.PasswordAuthenticator
	db       *memoryDB
	pageSize int
	now      func() time.Time

	hookMu   sync.Mutex
	gates    map[string][]*Gate
	failures map[string][]failure
}

type failure struct {
	status  int
	message string
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = "apitest-secret"
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 4
	}

	db := newMemoryDB()
	s := &Server{
		jwt:      auth.NewJWTManager(opts.Secret, opts.TokenTTL, opts.Now),
		auth:     auth.NewPasswordAuthenticator(db, opts.BcryptCost),
		db:       db,
		pageSize: opts.PageSize,
		now:      opts.Now,
		gates:    make(map[string][]*Gate),
		failures: make(map[string][]failure),
	}
	s.router = s.routes(opts.Logger)
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if logger != nil {
		r.Use(middleware.RequestLogger(logger))
	}
	r.Use(middleware.CORS(), s.hooks)

	r.POST("/auth/login", s.handleLogin)
	r.POST("/auth/register", s.handleRegister)

	api := r.Group("/", middleware.RequireAuth(s.jwt))
	{
		api.GET("/auth/me", s.handleMe)
		api.GET("/user/profile", s.handleGetProfile)
		api.PUT("/user/profile", s.handleUpdateProfile)

		api.GET("/expenses", s.handleListExpenses)
		api.POST("/expenses", s.handleCreateExpense)
		api.PUT("/expenses/:id", s.handleUpdateExpense)
		api.DELETE("/expenses/:id", s.handleDeleteExpense)
		api.POST("/expenses/:id/receipt", s.handleUploadReceipt)

		api.GET("/dashboard", s.handleDashboard)
		api.GET("/dashboard/trend", s.handleTrend)

		api.POST("/ai/chat", s.handleChat)
		api.GET("/ai/insights", s.handleInsights)
		api.POST("/ai/ocr", s.handleOCR)
		api.GET("/ai/predict-expenses", s.handlePredict)
	}
	return r
}

// Gate parks one request until released.
type Gate struct {
	arrived  chan struct{}
	released chan struct{}
	once     sync.Once
}

// Arrived is closed once the held request has reached the server.
func (g *Gate) Arrived() <-chan struct{} {
	return g.arrived
}

// Release lets the held request continue. It is safe to call more than once.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.released) })
}

// Hold parks the next request to route until the returned gate is released.
// route is "METHOD /path" using gin route patterns, e.g. "PUT /expenses/:id".
func (s *Server) Hold(route string) *Gate {
	g := &Gate{arrived: make(chan struct{}), released: make(chan struct{})}
	s.hookMu.Lock()
	s.gates[route] = append(s.gates[route], g)
	s.hookMu.Unlock()
	return g
}

// FailNext makes the next request to route answer with status. An empty
// message produces a body without a message field.
func (s *Server) FailNext(route string, status int, message string) {
	s.hookMu.Lock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
	s.hookMu.Unlock()
}

// hooks applies pending Hold and FailNext entries. A held request fails
// instead of proceeding if its client goes away first.
func (s *Server) hooks(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	s.hookMu.Lock()
	var gate *Gate
	if q := s.gates[route]; len(q) > 0 {
		gate, s.gates[route] = q[0], q[1:]
	}
	var fail *failure
	if q := s.failures[route]; len(q) > 0 {
		fail, s.failures[route] = &q[0], q[1:]
	}
	s.hookMu.Unlock()

	if gate != nil {
		close(gate.arrived)
		select {
		case <-gate.released:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if fail != nil {
		// Drain the body so the client sees the response, not a reset.
		_, _ = io.Copy(io.Discard, c.Request.Body)
		if fail.message == "" {
			c.AbortWithStatusJSON(fail.status, gin.H{})
		} else {
			abort(c, fail.status, fail.message)
		}
		return
	}
	c.Next()
}

// CreateUser registers an account directly and returns it with a token.
func (s *Server) CreateUser(email, password, name string) (models.AuthResponse, error) {
	user, err := s.auth.Register(context.Background(), email, name, password)
	if err != nil {
		return models.AuthResponse{}, err
	}
	s.db.initProfile(user, DefaultCurrency, decimal.NewFromInt(DefaultBudget))
	token, err := s.jwt.Generate(user)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{User: user, Token: token}, nil
}

// SeedExpense stores e for userID, assigning an ID when e has none.
func (s *Server) SeedExpense(userID string, e models.Expense) models.Expense {
	return s.db.insertExpense(userID, e)
}

// Expenses returns the stored expenses of userID, newest first.
func (s *Server) Expenses(userID string) []models.Expense {
	return s.db.listExpenses(userID)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
