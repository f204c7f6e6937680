// Package tplengine renders and validates prompt templates.
//
// Templates use text/template syntax extended with the sprig function
// library. Each prompt slot may only reference the variables it is
// rendered with; Validate enforces this by walking the parse tree.
package tplengine

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"

	"github.com/Masterminds/sprig/v3"

	"github.com/didact-labs/didact/internal/core/domain"
)

// Engine parses, caches and renders templates. Safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewEngine creates a template engine with an empty cache.
func NewEngine() *Engine {
	return &Engine{cache: make(map[string]*template.Template)}
}

// HasTemplate returns true if the string contains template markers.
func HasTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

func (e *Engine) parse(src string) (*template.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[src]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
	}

	e.mu.Lock()
	e.cache[src] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

// Render executes a template string against a variable map.
func (e *Engine) Render(src string, vars map[string]any) (string, error) {
	if !HasTemplate(src) {
		return src, nil
	}
	tmpl, err := e.parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return buf.String(), nil
}

// Variables returns the top-level variables a template references, sorted.
func (e *Engine) Variables(src string) ([]string, error) {
	tmpl, err := e.parse(src)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{})
	if tmpl.Tree != nil {
		collect(tmpl.Tree.Root, true, found)
	}
	vars := make([]string, 0, len(found))
	for v := range found {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars, nil
}

// Validate checks that a template parses and only references the
// variables its slot provides. Open slots accept any variable.
func (e *Engine) Validate(slot domain.PromptSlot, src string) error {
	if !slot.IsValid() {
		return fmt.Errorf("%w: unknown prompt slot %q", domain.ErrInvalidTemplate, slot)
	}
	if src == "" {
		if slot.IsOptional() {
			return nil
		}
		return fmt.Errorf("%w: %s prompt is empty", domain.ErrInvalidTemplate, slot)
	}

	used, err := e.Variables(src)
	if err != nil {
		return fmt.Errorf("%s: %w", slot, err)
	}
	allowed, open := slot.AllowedVariables()
	if open {
		return nil
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = struct{}{}
	}
	var unknown []string
	for _, v := range used {
		if _, ok := allowedSet[v]; !ok {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s prompt can only use variables %s, found %s",
			domain.ErrInvalidTemplate, slot, strings.Join(allowed, ", "), strings.Join(unknown, ", "))
	}
	return nil
}

// ValidateSet validates every slot of a prompt set.
func (e *Engine) ValidateSet(p domain.PromptSet) error {
	for _, slot := range domain.AllPromptSlots() {
		if err := e.Validate(slot, p.Get(slot)); err != nil {
			return err
		}
	}
	return nil
}

// collect records field references rooted at the template's top-level dot.
// Inside range and with bodies dot is rebound, so only $-rooted
// references are recorded there.
func collect(node parse.Node, topDot bool, out map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collect(child, topDot, out)
		}
	case *parse.ActionNode:
		collect(n.Pipe, topDot, out)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			collect(cmd, topDot, out)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			collect(arg, topDot, out)
		}
	case *parse.FieldNode:
		if topDot && len(n.Ident) > 0 {
			out[n.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			out[n.Ident[1]] = struct{}{}
		}
	case *parse.ChainNode:
		collect(n.Node, topDot, out)
	case *parse.IfNode:
		collect(n.Pipe, topDot, out)
		collect(n.List, topDot, out)
		collect(n.ElseList, topDot, out)
	case *parse.RangeNode:
		collect(n.Pipe, topDot, out)
		collect(n.List, false, out)
		collect(n.ElseList, topDot, out)
	case *parse.WithNode:
		collect(n.Pipe, topDot, out)
		collect(n.List, false, out)
		collect(n.ElseList, topDot, out)
	case *parse.TemplateNode:
		collect(n.Pipe, topDot, out)
	}
}
