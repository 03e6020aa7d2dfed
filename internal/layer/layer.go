// Package layer implements jin's nine precedence-ordered layers: their
// ref-path grammar, precedence numbers, required-context predicates, and
// the routing/active-stack logic that sits between CLI flags and the
// object/ref store.
package layer

import (
	"fmt"
	"regexp"

	"github.com/jinconfig/jin/internal/jinerr"
)

// Kind identifies one of the nine layer variants.
type Kind int

const (
	GlobalBase Kind = iota + 1
	UserLocal
	ModeBase
	ScopeBase
	ModeScope
	ProjectBase
	ModeProject
	ModeScopeProject
	WorkspaceActive
)

func (k Kind) String() string {
	switch k {
	case GlobalBase:
		return "global"
	case UserLocal:
		return "local"
	case ModeBase:
		return "mode"
	case ScopeBase:
		return "scope"
	case ModeScope:
		return "mode-scope"
	case ProjectBase:
		return "project"
	case ModeProject:
		return "mode-project"
	case ModeScopeProject:
		return "mode-scope-project"
	case WorkspaceActive:
		return "workspace"
	default:
		return "unknown"
	}
}

// Precedence returns the layer's priority number, 1 (lowest) through 8
// (highest); WorkspaceActive has no ref-backed precedence and returns 0.
func (k Kind) Precedence() int {
	switch k {
	case GlobalBase:
		return 1
	case UserLocal:
		return 2
	case ModeBase:
		return 3
	case ScopeBase:
		return 4
	case ModeScope:
		return 5
	case ProjectBase:
		return 6
	case ModeProject:
		return 7
	case ModeScopeProject:
		return 8
	default:
		return 0
	}
}

// Layer is one concrete instance of a Kind with its naming parameters bound.
type Layer struct {
	Kind    Kind
	Mode    string
	Scope   string
	Project string
}

// Context describes the active mode/scope/project a workspace has chosen.
type Context struct {
	Mode    string
	Scope   string
	Project string
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var reservedWords = map[string]bool{
	"default": true,
	"global":  true,
	"base":    true,
	"local":   true,
}

// ValidateName checks a mode/scope/project name against the grammar and
// reserved-word rules.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return &jinerr.ValidationError{Rule: "layer-name-charset", Input: name}
	}
	if reservedWords[name] {
		return &jinerr.ValidationError{Rule: "layer-name-reserved", Input: name}
	}
	return nil
}

// RefPath returns the layer's ref-path under the private namespace, not
// including the caller's reserved prefix (e.g. "refs/jin/").
func (l Layer) RefPath() (string, error) {
	switch l.Kind {
	case GlobalBase:
		return "layers/global", nil
	case UserLocal:
		return "layers/local", nil
	case ModeBase:
		if l.Mode == "" {
			return "", fmt.Errorf("mode layer requires a mode name")
		}
		return fmt.Sprintf("layers/mode/%s", l.Mode), nil
	case ScopeBase:
		if l.Scope == "" {
			return "", fmt.Errorf("scope layer requires a scope name")
		}
		return fmt.Sprintf("layers/scope/%s", l.Scope), nil
	case ModeScope:
		if l.Mode == "" || l.Scope == "" {
			return "", fmt.Errorf("mode-scope layer requires both a mode and a scope name")
		}
		return fmt.Sprintf("layers/mode/%s/scope/%s", l.Mode, l.Scope), nil
	case ProjectBase:
		if l.Project == "" {
			return "", fmt.Errorf("project layer requires a project name")
		}
		return fmt.Sprintf("layers/project/%s", l.Project), nil
	case ModeProject:
		if l.Mode == "" || l.Project == "" {
			return "", fmt.Errorf("mode-project layer requires both a mode and a project name")
		}
		return fmt.Sprintf("layers/mode/%s/project/%s", l.Mode, l.Project), nil
	case ModeScopeProject:
		if l.Mode == "" || l.Scope == "" || l.Project == "" {
			return "", fmt.Errorf("mode-scope-project layer requires a mode, scope, and project name")
		}
		return fmt.Sprintf("layers/mode/%s/scope/%s/project/%s", l.Mode, l.Scope, l.Project), nil
	case WorkspaceActive:
		return "", fmt.Errorf("workspace-active layer is derived and has no ref path")
	default:
		return "", fmt.Errorf("unknown layer kind %d", l.Kind)
	}
}

// RequiredContextSatisfied reports whether ctx provides everything this
// layer needs to exist (e.g. ModeScope requires both ctx.Mode and ctx.Scope).
func (l Layer) RequiredContextSatisfied(ctx Context) bool {
	switch l.Kind {
	case GlobalBase, UserLocal:
		return true
	case ModeBase:
		return ctx.Mode != ""
	case ScopeBase:
		return ctx.Scope != ""
	case ModeScope:
		return ctx.Mode != "" && ctx.Scope != ""
	case ProjectBase:
		return ctx.Project != ""
	case ModeProject:
		return ctx.Mode != "" && ctx.Project != ""
	case ModeScopeProject:
		return ctx.Mode != "" && ctx.Scope != "" && ctx.Project != ""
	default:
		return false
	}
}

// RouteOptions mirrors the CLI routing flags of spec.md §4.B / §6.
type RouteOptions struct {
	Global  bool
	Local   bool
	Mode    string // non-empty if --mode was given
	Scope   string // non-empty if --scope was given
	Project bool   // --project was given (uses ctx.Project)
}

// Route implements the first-match-wins priority order of spec.md §4.B.
func Route(opts RouteOptions, ctx Context) (Layer, error) {
	if opts.Global && (opts.Local || opts.Mode != "" || opts.Scope != "" || opts.Project) {
		return Layer{}, &jinerr.ValidationError{Rule: "global-exclusive", Input: "global combined with another flag"}
	}
	if opts.Local && (opts.Global || opts.Mode != "" || opts.Scope != "" || opts.Project) {
		return Layer{}, &jinerr.ValidationError{Rule: "local-exclusive", Input: "local combined with another flag"}
	}

	if opts.Global {
		return Layer{Kind: GlobalBase}, nil
	}
	if opts.Local {
		return Layer{Kind: UserLocal}, nil
	}

	if opts.Mode != "" {
		if err := ValidateName(opts.Mode); err != nil {
			return Layer{}, err
		}
		if ctx.Mode == "" {
			return Layer{}, &jinerr.ValidationError{Rule: "mode-requires-active-mode", Input: opts.Mode}
		}
		switch {
		case opts.Scope != "" && opts.Project:
			if ctx.Scope == "" {
				return Layer{}, &jinerr.ValidationError{Rule: "mode-scope-requires-active-scope", Input: opts.Scope}
			}
			if ctx.Project == "" {
				return Layer{}, &jinerr.ValidationError{Rule: "mode-project-requires-active-project", Input: ctx.Project}
			}
			return Layer{Kind: ModeScopeProject, Mode: ctx.Mode, Scope: opts.Scope, Project: ctx.Project}, nil
		case opts.Scope != "":
			if ctx.Scope == "" {
				return Layer{}, &jinerr.ValidationError{Rule: "mode-scope-requires-active-scope", Input: opts.Scope}
			}
			return Layer{Kind: ModeScope, Mode: ctx.Mode, Scope: ctx.Scope}, nil
		case opts.Project:
			if ctx.Project == "" {
				return Layer{}, &jinerr.ValidationError{Rule: "mode-project-requires-active-project", Input: ctx.Project}
			}
			return Layer{Kind: ModeProject, Mode: ctx.Mode, Project: ctx.Project}, nil
		default:
			return Layer{Kind: ModeBase, Mode: ctx.Mode}, nil
		}
	}

	if opts.Scope != "" {
		if err := ValidateName(opts.Scope); err != nil {
			return Layer{}, err
		}
		return Layer{Kind: ScopeBase, Scope: opts.Scope}, nil
	}

	if opts.Project {
		if ctx.Project == "" {
			return Layer{}, &jinerr.ValidationError{Rule: "project-requires-active-project", Input: ""}
		}
		return Layer{Kind: ProjectBase, Project: ctx.Project}, nil
	}

	if ctx.Project != "" {
		return Layer{Kind: ProjectBase, Project: ctx.Project}, nil
	}
	return Layer{}, &jinerr.ValidationError{Rule: "no-routing-target", Input: "no flags given and no active project"}
}

// RefResolver is the narrow capability the active-stack computation needs
// from the ref store, letting internal/layer stay independent of
// internal/objstore's concrete type.
type RefResolver interface {
	Read(refPath string) (string, bool, error)
}

// ActiveStack returns, in ascending precedence order (1..8), every layer
// whose required context is satisfied by ctx and whose ref currently
// exists. L9 (WorkspaceActive) is never included; it is the applier's
// computed output, not a stored layer.
func ActiveStack(ctx Context, refs RefResolver) ([]Layer, error) {
	candidates := []Layer{
		{Kind: GlobalBase},
		{Kind: UserLocal},
	}
	if ctx.Mode != "" {
		candidates = append(candidates, Layer{Kind: ModeBase, Mode: ctx.Mode})
	}
	if ctx.Scope != "" {
		candidates = append(candidates, Layer{Kind: ScopeBase, Scope: ctx.Scope})
	}
	if ctx.Mode != "" && ctx.Scope != "" {
		candidates = append(candidates, Layer{Kind: ModeScope, Mode: ctx.Mode, Scope: ctx.Scope})
	}
	if ctx.Project != "" {
		candidates = append(candidates, Layer{Kind: ProjectBase, Project: ctx.Project})
	}
	if ctx.Mode != "" && ctx.Project != "" {
		candidates = append(candidates, Layer{Kind: ModeProject, Mode: ctx.Mode, Project: ctx.Project})
	}
	if ctx.Mode != "" && ctx.Scope != "" && ctx.Project != "" {
		candidates = append(candidates, Layer{Kind: ModeScopeProject, Mode: ctx.Mode, Scope: ctx.Scope, Project: ctx.Project})
	}

	var active []Layer
	for _, l := range candidates {
		if !l.RequiredContextSatisfied(ctx) {
			continue
		}
		path, err := l.RefPath()
		if err != nil {
			return nil, err
		}
		_, ok, err := refs.Read(path)
		if err != nil {
			return nil, &jinerr.StoreError{Op: "read-ref", Err: err}
		}
		if ok {
			active = append(active, l)
		}
	}
	return active, nil
}
