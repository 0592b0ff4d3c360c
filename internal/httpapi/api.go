package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
	"lexvault.org/internal/console"
	"lexvault.org/internal/obs"
	"lexvault.org/internal/qr"
	"lexvault.org/internal/registry"
)

const sessionTTL = 12 * time.Hour

// Registry is the slice of registry service operations the HTTP layer
// dispatches to.
type Registry interface {
	RegisterUser(ctx context.Context, email, password string) (registry.User, error)
	Authenticate(ctx context.Context, email, password string) (registry.User, error)
	RegisterFirm(ctx context.Context, actor auth.Principal, name, slug string) (registry.Organization, error)
	AddMember(ctx context.Context, actor auth.Principal, orgID, userID string, role registry.MemberRole) (registry.OrgMembership, error)
	InviteClient(ctx context.Context, actor auth.Principal, orgID, name, email string) (registry.Client, registry.ClientInvite, error)
	LookupInvite(ctx context.Context, token string) (registry.ClientInvite, registry.Client, error)
	AcceptInvite(ctx context.Context, actor auth.Principal, token string) (registry.AcceptResult, error)
	ReactivateInvite(ctx context.Context, actor auth.Principal, inviteID string) (registry.ClientInvite, error)
	VerifyAttorney(ctx context.Context, actor auth.Principal, userID string) (registry.User, error)
	GetClient(ctx context.Context, actor auth.Principal, clientID string) (registry.Client, error)
	GrantAccess(ctx context.Context, actor auth.Principal, attorneyID, clientID, orgID string) (registry.AttorneyClientAccess, error)
	RevokeAccess(ctx context.Context, actor auth.Principal, attorneyID, clientID string) (registry.AttorneyClientAccess, error)
	GlobalSearch(ctx context.Context, actor auth.Principal, query string, limit int) ([]registry.Client, error)
	Trail(ctx context.Context, actor auth.Principal, clientID string) ([]audit.TrailEntry, error)
}

// Console runs whitelisted admin commands.
type Console interface {
	Run(ctx context.Context, actor auth.Principal, req console.Request) (console.Result, error)
}

// EmailSender delivers invite links. Delivery is best-effort; the invite
// stands either way and the link is also returned in the API response.
type EmailSender interface {
	SendInvite(ctx context.Context, email, link string) error
}

// LogSender is the default EmailSender: it only logs the would-be
// delivery.
type LogSender struct{}

func (LogSender) SendInvite(_ context.Context, email, link string) error {
	obs.Emit("info", "invite_email", map[string]any{"to": email, "link": link})
	return nil
}

// ReadyProbe checks backing-store readiness.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Sessions       *auth.Sessions
	APITokens      *auth.APITokens
	Registry       Registry
	QR             *qr.Signer
	Console        Console
	ConsoleEnabled bool
	Ready          ReadyProbe
	Email          EmailSender
	Version        string
	BaseURL        string
}

// API is the HTTP layer.
type API struct {
	mux            *http.ServeMux
	sessions       *auth.Sessions
	apiTokens      *auth.APITokens
	registry       Registry
	qr             *qr.Signer
	console        Console
	consoleEnabled bool
	ready          ReadyProbe
	email          EmailSender
	version        string
	baseURL        string
}

func New(cfg Config) *API {
	a := &API{
		mux:            http.NewServeMux(),
		sessions:       cfg.Sessions,
		apiTokens:      cfg.APITokens,
		registry:       cfg.Registry,
		qr:             cfg.QR,
		console:        cfg.Console,
		consoleEnabled: cfg.ConsoleEnabled,
		ready:          cfg.Ready,
		email:          cfg.Email,
		version:        cfg.Version,
		baseURL:        cfg.BaseURL,
	}
	if a.email == nil {
		a.email = LogSender{}
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// accounts and sessions
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/session", a.handleSession)

	// firms
	a.mux.HandleFunc("/v1/orgs", a.handleOrgs)
	a.mux.HandleFunc("/v1/orgs/", a.handleOrgResource)

	// invites
	a.mux.HandleFunc("/v1/clients/invite", a.handleClientsInvite)
	a.mux.HandleFunc("/v1/invites/accept", a.handleInvitesAccept)
	a.mux.HandleFunc("/v1/invites/", a.handleInviteResource)
	a.mux.HandleFunc("/invite/", a.handleInviteLookup)

	// clients
	a.mux.HandleFunc("/v1/clients/", a.handleClientResource)
	a.mux.HandleFunc("/v1/search/global", a.handleGlobalSearch)
	a.mux.HandleFunc("/qr-update/", a.handleQRUpdate)

	// admin
	a.mux.HandleFunc("/v1/admin/attorneys/verify", a.handleAttorneysVerify)
	a.mux.HandleFunc("/v1/admin/console", a.handleConsole)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = LoggingJSON(h)
	h = obs.Instrument(h)
	h = RateLimit(h, 20, 10)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "lexvault-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "lexvault-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
