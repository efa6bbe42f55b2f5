package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/portfolio-core/pkg/analysis"
	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/fallback"
	"github.com/dd0wney/portfolio-core/pkg/health"
	"github.com/dd0wney/portfolio-core/pkg/localstore"
	"github.com/dd0wney/portfolio-core/pkg/remote"
	"github.com/dd0wney/portfolio-core/pkg/validation"
)

// sessionManager is the optional remote surface for token lifecycle. The
// HTTP client implements it; fakes used in tests usually don't.
type sessionManager interface {
	RefreshSession(ctx context.Context) (*remote.Session, error)
	Session() *remote.Session
	SessionNeedsRefresh() bool
	ClearSession()
}

// registerBuiltins installs the five built-in services: auth, database,
// local, realtime, and analysis.
func (o *Orchestrator) registerBuiltins() {
	o.register("auth", o.authMethods(), o.restartAuth)
	o.register("database", o.databaseMethods(), o.restartDatabase)
	o.register("local", o.localMethods(), func(context.Context) error { return nil })
	o.register("realtime", o.realtimeMethods(), o.restartRealtime)
	o.register("analysis", o.analysisMethods(), func(context.Context) error { return nil })
}

func (o *Orchestrator) authMethods() map[string]Method {
	return map[string]Method{
		"signIn": func(ctx context.Context, params map[string]any) (any, error) {
			email, err := requireString(params, "email")
			if err != nil {
				return nil, executor.ValidationError("auth.signIn", err)
			}
			password, err := requireString(params, "password")
			if err != nil {
				return nil, executor.ValidationError("auth.signIn", err)
			}
			return o.deps.Remote.Authenticate(ctx, email, password)
		},
		"refresh": func(ctx context.Context, _ map[string]any) (any, error) {
			sm, ok := o.deps.Remote.(sessionManager)
			if !ok {
				return nil, executor.ValidationError("auth.refresh", errors.New("provider does not manage sessions"))
			}
			return sm.RefreshSession(ctx)
		},
		"session": func(_ context.Context, _ map[string]any) (any, error) {
			sm, ok := o.deps.Remote.(sessionManager)
			if !ok {
				return nil, executor.ValidationError("auth.session", errors.New("provider does not manage sessions"))
			}
			return sm.Session(), nil
		},
		"signOut": func(_ context.Context, _ map[string]any) (any, error) {
			if sm, ok := o.deps.Remote.(sessionManager); ok {
				sm.ClearSession()
			}
			return nil, nil
		},
	}
}

func (o *Orchestrator) databaseMethods() map[string]Method {
	route := func(kind fallback.Kind) Method {
		return func(ctx context.Context, params map[string]any) (any, error) {
			collection, err := requireString(params, "collection")
			if err != nil {
				return nil, executor.ValidationError("database."+string(kind), err)
			}
			payload, _ := params["payload"].(map[string]any)
			if payload == nil {
				payload = map[string]any{}
			}
			if id, ok := params["id"].(string); ok {
				payload["id"] = id
			}
			switch kind {
			case fallback.KindCreate, fallback.KindUpdate, fallback.KindDelete:
				if err := validateMutation(collection, kind, payload); err != nil {
					return nil, executor.ValidationError("database."+string(kind), err)
				}
			}
			return o.deps.Router.PerformOperation(ctx, collection, kind, payload)
		}
	}

	return map[string]Method{
		"read":   route(fallback.KindRead),
		"list":   route(fallback.KindList),
		"create": route(fallback.KindCreate),
		"update": route(fallback.KindUpdate),
		"delete": route(fallback.KindDelete),
	}
}

// validateMutation rejects malformed writes before they reach the router,
// so bad input is never optimistically applied or queued for replay.
// Collections with a known shape get field-level checks on top of the
// generic mutation rules.
func validateMutation(collection string, kind fallback.Kind, payload map[string]any) error {
	req := &validation.MutationRequest{
		Collection: collection,
		Kind:       string(kind),
		Payload:    payload,
	}
	if err := validation.ValidateMutationRequest(req); err != nil {
		return err
	}
	if kind == fallback.KindDelete {
		return nil
	}

	switch collection {
	case "skills":
		skill := &validation.SkillRequest{}
		skill.Name, _ = payload["name"].(string)
		skill.Level, _ = payload["level"].(string)
		return validation.ValidateSkillRequest(skill)
	case "projects":
		project := &validation.ProjectRequest{}
		project.Title, _ = payload["title"].(string)
		project.Description, _ = payload["description"].(string)
		project.URL, _ = payload["url"].(string)
		if tags, ok := payload["tags"].([]any); ok {
			for _, raw := range tags {
				if tag, ok := raw.(string); ok {
					project.Tags = append(project.Tags, tag)
				}
			}
		}
		return validation.ValidateProjectRequest(project)
	}
	return nil
}

func (o *Orchestrator) localMethods() map[string]Method {
	return map[string]Method{
		"get": func(_ context.Context, params map[string]any) (any, error) {
			collection, err := requireString(params, "collection")
			if err != nil {
				return nil, executor.ValidationError("local.get", err)
			}
			id, err := requireString(params, "id")
			if err != nil {
				return nil, executor.ValidationError("local.get", err)
			}
			record, err := o.deps.Local.Get(collection, id)
			if errors.Is(err, localstore.ErrNotFound) {
				return nil, executor.NotFoundError("local.get", collection, id)
			}
			return record, err
		},
		"list": func(_ context.Context, params map[string]any) (any, error) {
			collection, err := requireString(params, "collection")
			if err != nil {
				return nil, executor.ValidationError("local.list", err)
			}
			return o.deps.Local.List(collection)
		},
		"collections": func(_ context.Context, _ map[string]any) (any, error) {
			return o.deps.Local.Collections()
		},
	}
}

func (o *Orchestrator) realtimeMethods() map[string]Method {
	return map[string]Method{
		"status": func(_ context.Context, _ map[string]any) (any, error) {
			return o.deps.Monitor.GetState(), nil
		},
		"reconnect": func(_ context.Context, _ map[string]any) (any, error) {
			return o.deps.Monitor.ForceReconnect(), nil
		},
		"stable": func(_ context.Context, _ map[string]any) (any, error) {
			return o.deps.Monitor.IsStable(), nil
		},
	}
}

func (o *Orchestrator) analysisMethods() map[string]Method {
	return map[string]Method{
		"score": func(_ context.Context, params map[string]any) (any, error) {
			portfolio, err := portfolioFromParams(params)
			if err != nil {
				return nil, executor.ValidationError("analysis.score", err)
			}
			return analysis.Score(portfolio), nil
		},
	}
}

// restartAuth drops the cached session; the next signIn starts clean.
func (o *Orchestrator) restartAuth(context.Context) error {
	if sm, ok := o.deps.Remote.(sessionManager); ok {
		sm.ClearSession()
	}
	return nil
}

// restartDatabase clears cached reads so the next operation hits the
// remote provider. Queued mutations survive the restart.
func (o *Orchestrator) restartDatabase(context.Context) error {
	o.deps.Cache.Clear()
	return nil
}

func (o *Orchestrator) restartRealtime(context.Context) error {
	o.deps.Monitor.ForceReconnect()
	return nil
}

// registerHealthChecks maps each subsystem onto the aggregate checker.
func (o *Orchestrator) registerHealthChecks() {
	o.deps.Health.RegisterCheck("connection", func() health.Check {
		state := o.deps.Monitor.GetState()
		check := health.Check{
			Name:   "connection",
			Status: health.StatusHealthy,
			Details: map[string]any{
				"status":  string(state.Status),
				"quality": string(state.Quality),
			},
		}
		switch state.Status {
		case connmon.StatusOnline:
			if state.Quality == connmon.QualityPoor || state.Quality == connmon.QualityCritical {
				check.Status = health.StatusDegraded
				check.Message = "connection quality " + string(state.Quality)
			}
		case connmon.StatusUnstable, connmon.StatusReconnecting:
			check.Status = health.StatusDegraded
			check.Message = "connection " + string(state.Status)
		default:
			check.Status = health.StatusDown
			check.Message = "connection offline"
		}
		return check
	})

	o.deps.Health.RegisterCheck("cache", func() health.Check {
		stats := o.deps.Cache.Stats()
		return health.Check{
			Name:   "cache",
			Status: health.StatusHealthy,
			Details: map[string]any{
				"entries":  stats.Entries,
				"hit_rate": stats.HitRate,
			},
		}
	})

	o.deps.Health.RegisterCheck("localstore", func() health.Check {
		collections, err := o.deps.Local.Collections()
		if err != nil {
			return health.Check{
				Name:    "localstore",
				Status:  health.StatusDown,
				Message: err.Error(),
			}
		}
		return health.Check{
			Name:    "localstore",
			Status:  health.StatusHealthy,
			Details: map[string]any{"collections": len(collections)},
		}
	})

	o.deps.Health.RegisterCheck("queue", func() health.Check {
		depth := o.deps.Router.QueueDepth()
		dead := len(o.deps.Router.DeadLetters())
		check := health.Check{
			Name:   "queue",
			Status: health.StatusHealthy,
			Details: map[string]any{
				"depth":        depth,
				"dead_letters": dead,
			},
		}
		if dead > 0 {
			check.Status = health.StatusDegraded
			check.Message = fmt.Sprintf("%d operations dead-lettered", dead)
		}
		return check
	})
}

func requireString(params map[string]any, key string) (string, error) {
	value, ok := params[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("params missing %q", key)
	}
	return value, nil
}

// portfolioFromParams decodes the loosely-typed params blob the dispatch
// surface carries into the analysis input.
func portfolioFromParams(params map[string]any) (analysis.Portfolio, error) {
	p := analysis.Portfolio{}
	p.Bio, _ = params["bio"].(string)

	if skills, ok := params["skills"].([]any); ok {
		for _, raw := range skills {
			m, ok := raw.(map[string]any)
			if !ok {
				return p, errors.New("skills entries must be objects")
			}
			name, _ := m["name"].(string)
			level, _ := m["level"].(string)
			p.Skills = append(p.Skills, analysis.Skill{Name: name, Level: level})
		}
	}

	if projects, ok := params["projects"].([]any); ok {
		for _, raw := range projects {
			m, ok := raw.(map[string]any)
			if !ok {
				return p, errors.New("projects entries must be objects")
			}
			project := analysis.Project{}
			project.Title, _ = m["title"].(string)
			project.Description, _ = m["description"].(string)
			project.URL, _ = m["url"].(string)
			if tags, ok := m["tags"].([]any); ok {
				for _, t := range tags {
					if tag, ok := t.(string); ok {
						project.Tags = append(project.Tags, tag)
					}
				}
			}
			p.Projects = append(p.Projects, project)
		}
	}

	return p, nil
}
