// Package console executes a closed set of administrative commands over
// the registry. Every attempt is written to the audit log before any
// authorization or execution; if the audit write fails the command is
// refused.
package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
	"lexvault.org/internal/registry"
)

var (
	ErrUnknownCommand   = errors.New("console: unknown command")
	ErrMissingArgument  = errors.New("console: missing argument")
	ErrRateLimited      = errors.New("console: rate limited")
	ErrAuditUnavailable = errors.New("console: audit log unavailable")
)

const defaultListLimit = 50

// Registry is the slice of registry operations the console dispatches to.
type Registry interface {
	VerifyAttorney(ctx context.Context, actor auth.Principal, userID string) (registry.User, error)
	ReactivateInvite(ctx context.Context, actor auth.Principal, inviteID string) (registry.ClientInvite, error)
	RevokeAccess(ctx context.Context, actor auth.Principal, attorneyID, clientID string) (registry.AttorneyClientAccess, error)
	GrantRole(ctx context.Context, actor auth.Principal, userID string, role auth.Role) (registry.User, error)
	RevokeRole(ctx context.Context, actor auth.Principal, userID string, role auth.Role) (registry.User, error)
	Trail(ctx context.Context, actor auth.Principal, clientID string) ([]audit.TrailEntry, error)
}

// OrgLister lists organizations for the list-orgs command.
type OrgLister interface {
	ListOrganizations(ctx context.Context, limit int) ([]registry.Organization, error)
}

// Request is one console invocation.
type Request struct {
	Command string            `json:"command"`
	Args    map[string]string `json:"args,omitempty"`
}

// Result carries the command output back to the transport layer.
type Result struct {
	Command string `json:"command"`
	AuditID string `json:"audit_id"`
	Output  any    `json:"output"`
}

// Runner dispatches whitelisted console commands.
type Runner struct {
	reg     Registry
	orgs    OrgLister
	audit   *audit.Writer
	limiter Limiter
}

// New constructs a Runner. A nil limiter disables rate limiting.
func New(reg Registry, orgs OrgLister, auditor *audit.Writer, limiter Limiter) *Runner {
	if limiter == nil {
		limiter = allowAll{}
	}
	return &Runner{reg: reg, orgs: orgs, audit: auditor, limiter: limiter}
}

// Run executes one command. Order is fixed: rate limit, audit the
// attempt, authorize, execute. Authorization failures are therefore
// visible in the audit trail.
func (r *Runner) Run(ctx context.Context, actor auth.Principal, req Request) (Result, error) {
	if actor.Kind == "" {
		return Result{}, auth.ErrUnauthenticated
	}
	if !r.limiter.Allow(actorKey(actor)) {
		return Result{}, ErrRateLimited
	}

	entry, err := r.audit.Append(ctx, audit.Entry{
		Action:      audit.ActionConsoleCommand,
		ActorUserID: actor.UserID,
		Message:     describe(req),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}

	if !authorized(actor) {
		return Result{}, auth.ErrForbidden
	}

	out, err := r.dispatch(ctx, execPrincipal(actor), req)
	if err != nil {
		return Result{}, err
	}
	return Result{Command: req.Command, AuditID: entry.ID, Output: out}, nil
}

func (r *Runner) dispatch(ctx context.Context, actor auth.Principal, req Request) (any, error) {
	switch req.Command {
	case "list-orgs":
		limit := defaultListLimit
		if raw, ok := req.Args["limit"]; ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: limit must be a positive integer", registry.ErrInvalidInput)
			}
			limit = n
		}
		return r.orgs.ListOrganizations(ctx, limit)
	case "verify-attorney":
		userID, err := arg(req, "user")
		if err != nil {
			return nil, err
		}
		return r.reg.VerifyAttorney(ctx, actor, userID)
	case "reactivate-invite":
		inviteID, err := arg(req, "invite")
		if err != nil {
			return nil, err
		}
		return r.reg.ReactivateInvite(ctx, actor, inviteID)
	case "revoke-access":
		attorneyID, err := arg(req, "attorney")
		if err != nil {
			return nil, err
		}
		clientID, err := arg(req, "client")
		if err != nil {
			return nil, err
		}
		return r.reg.RevokeAccess(ctx, actor, attorneyID, clientID)
	case "grant-role":
		return r.roleChange(ctx, actor, req, r.reg.GrantRole)
	case "revoke-role":
		return r.roleChange(ctx, actor, req, r.reg.RevokeRole)
	case "audit-trail":
		clientID, err := arg(req, "client")
		if err != nil {
			return nil, err
		}
		return r.reg.Trail(ctx, actor, clientID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
}

func (r *Runner) roleChange(ctx context.Context, actor auth.Principal, req Request, fn func(context.Context, auth.Principal, string, auth.Role) (registry.User, error)) (any, error) {
	userID, err := arg(req, "user")
	if err != nil {
		return nil, err
	}
	raw, err := arg(req, "role")
	if err != nil {
		return nil, err
	}
	role, err := auth.ParseRole(raw)
	if err != nil {
		return nil, err
	}
	return fn(ctx, actor, userID, role)
}

func arg(req Request, name string) (string, error) {
	v := strings.TrimSpace(req.Args[name])
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	return v, nil
}

func authorized(actor auth.Principal) bool {
	switch actor.Kind {
	case auth.KindUser:
		return actor.HasRole(auth.RoleAdmin)
	case auth.KindAPIToken:
		return actor.HasScope(auth.ScopeConsole)
	default:
		return false
	}
}

// execPrincipal maps a console-scoped API token onto an admin principal
// carrying the token's subject, so registry-level admin checks see the
// same authority the console check already established.
func execPrincipal(actor auth.Principal) auth.Principal {
	if actor.Kind == auth.KindAPIToken {
		return auth.Principal{
			Kind:   auth.KindUser,
			UserID: actor.UserID,
			Roles:  auth.NewRoleSet(auth.RoleAdmin),
		}
	}
	return actor
}

func actorKey(actor auth.Principal) string {
	if actor.UserID != "" {
		return string(actor.Kind) + ":" + actor.UserID
	}
	return string(actor.Kind)
}

func describe(req Request) string {
	if len(req.Args) == 0 {
		return req.Command
	}
	keys := make([]string, 0, len(req.Args))
	for k := range req.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(req.Command)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(req.Args[k])
	}
	return b.String()
}
