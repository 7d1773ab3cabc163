// Package plugin implements the builtin plugin registry and dispatcher
// (spec.md §4.4): resolves DatasourceType -> Plugin, enforces routing
// uniqueness, and validates config against each plugin's schema before
// dispatch.
package plugin

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"contextengine/internal/apperr"
	"contextengine/internal/pluginlib"
)

// Registry maps a DatasourceType's full_type to the plugin that
// handles it.
type Registry struct {
	plugins  map[string]pluginlib.Plugin
	validate *validator.Validate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]pluginlib.Plugin),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register adds p's supported types to the registry. On a full_type
// already claimed by another plugin, it fails with
// apperr.ErrDuplicatePlugin naming both providers, per spec.md §4.4 and
// the "plugin uniqueness" property in §8.
func (r *Registry) Register(p pluginlib.Plugin) error {
	for _, fullType := range p.SupportedTypes() {
		if existing, ok := r.plugins[fullType]; ok {
			return fmt.Errorf("%w: %q claimed by both %q and %q",
				apperr.ErrDuplicatePlugin, fullType, existing.ID(), p.ID())
		}
	}
	for _, fullType := range p.SupportedTypes() {
		r.plugins[fullType] = p
	}
	return nil
}

// RegisterAll loads plugins into the registry, failing at the first
// collision. Plugins unavailable due to a missing optional dependency
// should be omitted by the caller before this is invoked (§4.4
// "silently omit"), not passed in and rejected here.
func (r *Registry) RegisterAll(plugins ...pluginlib.Plugin) error {
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the plugin for fullType, or (nil, false) if none is
// registered.
func (r *Registry) Lookup(fullType string) (pluginlib.Plugin, bool) {
	p, ok := r.plugins[fullType]
	return p, ok
}

// ValidateConfig checks decoded (a value of p's ConfigSchema type,
// already decoded from YAML) against its struct tags, returning nil on
// success. Failure maps to apperr.ErrValidation per the "INVALID
// validation status" in spec.md §4.4.
func (r *Registry) ValidateConfig(p pluginlib.BuildDatasourcePlugin, decoded any) error {
	if err := r.validate.Struct(decoded); err != nil {
		return fmt.Errorf("%w: config for plugin %q: %v", apperr.ErrValidation, p.ID(), err)
	}
	return nil
}

// CheckConnection calls p's connection check if it implements
// ConnectionChecker, or returns apperr.ErrNotSupported otherwise.
func CheckConnection(ctx context.Context, p pluginlib.BuildDatasourcePlugin, validatedConfig any) error {
	checker, ok := p.(pluginlib.ConnectionChecker)
	if !ok {
		return fmt.Errorf("%w: plugin %q does not support connection checks", apperr.ErrNotSupported, p.ID())
	}
	return checker.CheckConnection(ctx, validatedConfig)
}
