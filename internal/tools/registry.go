// Package tools exposes compaction as callable tools with stable names,
// semantic versions and JSON Schema arguments, encodable as OpenAI-compatible
// function specs.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Handler runs a tool with raw JSON arguments and returns the text result.
// Errors are surfaced to the caller verbatim as an error Result.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Result is what a caller receives from a tool call: human-readable text and
// a failure flag. There are no structured error codes.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// ToolDefinition describes a callable tool.
// StableName must be lowercase snake_case and never change across versions.
type ToolDefinition struct {
	StableName   string
	SemVer       string
	Description  string
	JSONSchema   json.RawMessage
	Capabilities []string
	Handler      Handler
}

// ToolMeta is the serializable view used in listings and logs.
type ToolMeta struct {
	StableName   string   `json:"stable_name"`
	SemVer       string   `json:"semver"`
	Capabilities []string `json:"capabilities"`
}

// Registry holds tools keyed by stable name.
type Registry struct {
	byName map[string]ToolDefinition
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]ToolDefinition)}
}

var (
	nameRe   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	semverRe = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)
)

// Register adds or replaces a tool after validating its name, version,
// schema and handler.
func (r *Registry) Register(def ToolDefinition) error {
	if !nameRe.MatchString(def.StableName) {
		return fmt.Errorf("invalid stable name %q: must be lowercase snake_case starting with a letter", def.StableName)
	}
	if !semverRe.MatchString(def.SemVer) {
		return fmt.Errorf("invalid semver %q", def.SemVer)
	}
	if !isJSONObject(def.JSONSchema) {
		return errors.New("json schema must be a non-empty JSON object")
	}
	if def.Handler == nil {
		return errors.New("handler must not be nil")
	}
	caps := make([]string, 0, len(def.Capabilities))
	for _, c := range def.Capabilities {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}
	def.Capabilities = caps
	if r.byName == nil {
		r.byName = make(map[string]ToolDefinition)
	}
	r.byName[def.StableName] = def
	return nil
}

func (r *Registry) Get(name string) (ToolDefinition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Call runs the named tool. Every failure, including an unknown tool name,
// comes back as a Result with IsError set.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) Result {
	def, ok := r.Get(name)
	if !ok {
		return Result{Text: fmt.Sprintf("unknown tool %q", name), IsError: true}
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	text, err := def.Handler(ctx, args)
	if err != nil {
		return Result{Text: err.Error(), IsError: true}
	}
	return Result{Text: text}
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns tool specs sorted by stable name.
func (r *Registry) Specs() []ToolSpec {
	names := r.names()
	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		def := r.byName[name]
		specs = append(specs, ToolSpec{
			Name:        def.StableName,
			Description: fmt.Sprintf("%s (version %s)", def.Description, def.SemVer),
			JSONSchema:  def.JSONSchema,
		})
	}
	return specs
}

// Catalog returns ToolMeta sorted by stable name.
func (r *Registry) Catalog() []ToolMeta {
	names := r.names()
	out := make([]ToolMeta, 0, len(names))
	for _, name := range names {
		def := r.byName[name]
		out = append(out, ToolMeta{
			StableName:   def.StableName,
			SemVer:       def.SemVer,
			Capabilities: append([]string(nil), def.Capabilities...),
		})
	}
	return out
}

func isJSONObject(raw json.RawMessage) bool {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	_, ok := v.(map[string]interface{})
	return ok
}
