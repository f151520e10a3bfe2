// Package http exposes the engine as a small JSON API: wallets and
// transactions, statement lifecycle, credit-card payments, alerts and
// balance reconciliation.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"hogar/internal/core"
	"hogar/internal/events"
	"hogar/internal/log"
	"hogar/internal/notifications"
	"hogar/internal/payments"
	"hogar/internal/reconcile"
	"hogar/internal/statements"
)

type Server struct {
	http.Server

	store  core.Store
	clock  core.Clock
	ids    core.IDGenerator
	events *events.Client

	statements    *statements.Manager
	payments      *payments.Processor
	notifications *notifications.Generator
	reconcile     *reconcile.Service

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. eventsClient may be nil; change events are then dropped.
func NewServer(addr string, store core.Store, eventsClient *events.Client, logger *log.Logger) *Server {
	clock := core.SystemClock{}
	ids := core.UUIDGenerator{}

	s := &Server{
		store:         store,
		clock:         clock,
		ids:           ids,
		events:        eventsClient,
		statements:    statements.NewManager(store, clock, ids),
		payments:      payments.NewProcessor(store, clock, ids),
		notifications: notifications.NewGenerator(store, clock),
		reconcile:     reconcile.NewService(store, clock),
		rateLimiter:   newRateLimiter(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /wallets", s.handleCreateWallet)
	mux.HandleFunc("GET /wallets", s.handleListWallets)
	mux.HandleFunc("GET /wallets/{id}", s.handleGetWallet)
	mux.HandleFunc("GET /wallets/{id}/statement", s.handleCurrentStatement)
	mux.HandleFunc("GET /wallets/{id}/balance", s.handleRecalculateBalance)
	mux.HandleFunc("POST /wallets/{id}/balance/fix", s.handleFixBalance)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/{id}/void", s.handleVoidTransaction)

	mux.HandleFunc("GET /statements/{id}", s.handleGetStatement)
	mux.HandleFunc("POST /statements/{id}/close", s.handleCloseStatement)
	mux.HandleFunc("GET /statements/{id}/suggestions", s.handleSuggestions)
	mux.HandleFunc("POST /statements/{id}/payments", s.handleProcessPayment)
	mux.HandleFunc("POST /statements/{id}/payments/minimum", s.handleMinimumPayment)
	mux.HandleFunc("POST /statements/{id}/payments/full", s.handleFullPayment)

	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("GET /notifications/summary", s.handleNotificationSummary)

	var handler http.Handler = mux
	handler = s.withSecurityHeaders(handler)
	handler = log.RequestLogger(logger)(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter's cleanup goroutine and then shuts
// down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Mutating requests are rate limited per client.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory rate limiter: up to 60 mutating requests per client
// per minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}
