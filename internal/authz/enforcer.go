// internal/authz/enforcer.go
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/libranexus/discovery/internal/logging"
)

//go:embed model.conf
var rbacModel string

//go:embed policy.csv
var rbacPolicy string

// Authorizer decides whether a request may reach a route.
type Authorizer struct {
	cfg      Config
	enforcer *casbin.SyncedEnforcer
}

// New builds an Authorizer from the embedded RBAC model and policy. It returns
// nil when cfg.Secret is empty; a nil Authorizer allows every request.
func New(cfg Config) (*Authorizer, error) {
	if cfg.Secret == "" {
		return nil, nil
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = RoleAnonymous
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	if err := loadPolicy(e, rbacPolicy); err != nil {
		return nil, err
	}

	return &Authorizer{cfg: cfg, enforcer: e}, nil
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		var err error
		switch {
		case parts[0] == "p" && len(parts) == 4:
			_, err = e.AddPolicy(parts[1], parts[2], parts[3])
		case parts[0] == "g" && len(parts) == 3:
			_, err = e.AddGroupingPolicy(parts[1], parts[2])
		default:
			err = fmt.Errorf("malformed rule %q", line)
		}
		if err != nil {
			return fmt.Errorf("failed to load policy: %w", err)
		}
	}
	return nil
}

// Allowed reports whether role may perform method on path.
func (a *Authorizer) Allowed(role, path, method string) (bool, error) {
	ok, err := a.enforcer.Enforce(role, path, method)
	if err != nil {
		return false, fmt.Errorf("failed to enforce policy: %w", err)
	}
	return ok, nil
}

// Check authorizes r. Anonymous callers denied access get ErrUnauthenticated,
// authenticated ones ErrForbidden.
func (a *Authorizer) Check(r *http.Request) error {
	if a == nil {
		return nil
	}

	role, err := a.Role(r)
	if err != nil {
		return errors.Join(ErrUnauthenticated, err)
	}
	ok, err := a.Allowed(role, r.URL.Path, r.Method)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	logging.Ctx(r.Context()).Debug().
		Str("role", role).
		Str("path", r.URL.Path).
		Msg("request denied by policy")
	if role == a.cfg.DefaultRole {
		return ErrUnauthenticated
	}
	return ErrForbidden
}
