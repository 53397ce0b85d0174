package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pokerbank/internal/config"
	"pokerbank/internal/db"
	"pokerbank/internal/logger"
	"pokerbank/internal/middleware"
	"pokerbank/internal/stream"
)

// Deps wires the handler to its stores and services.
type Deps struct {
	TxRunner     db.TxRunner
	Config       config.Config
	Users        UserStore
	Banks        BankStore
	Transactions TransactionStore
	Audit        AuditStore
	Sessions     SessionService
	Transfers    TransferService
	Broadcaster  *stream.Broadcaster
	Gatherer     prometheus.Gatherer
	Logger       *logger.Logger
}

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	banks        BankStore
	transactions TransactionStore
	audit        AuditStore
	sessions     SessionService
	transfers    TransferService
	broadcaster  *stream.Broadcaster
	gatherer     prometheus.Gatherer
	log          *logger.Logger
}

func New(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		txRunner:     deps.TxRunner,
		cfg:          deps.Config,
		users:        deps.Users,
		banks:        deps.Banks,
		transactions: deps.Transactions,
		audit:        deps.Audit,
		sessions:     deps.Sessions,
		transfers:    deps.Transfers,
		broadcaster:  deps.Broadcaster,
		gatherer:     deps.Gatherer,
		log:          log,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID(h.log))
	router.Use(middleware.Logging(h.log))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	authenticated := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})
	router.With(authenticated).Get("/banks", h.ListBanks)
	router.With(authenticated).Post("/banks", h.CreateBank)
	router.With(authenticated).Get("/transactions", h.ListTransactions)
	router.With(authenticated).Post("/transfers", h.CreateTransfer)

	router.Route("/sessions", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.CreateSession)
		r.Post("/join", h.JoinSession)
		r.Get("/{id}", h.GetSession)
		r.Patch("/{id}", h.UpdateSession)
		r.Post("/{id}/participants", h.UpdateParticipant)
		r.Get("/{id}/transfers", h.ListTransfers)
		r.Get("/{id}/stream", h.StreamSession)
		r.Get("/{id}/ws", h.WSSession)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return router
}
