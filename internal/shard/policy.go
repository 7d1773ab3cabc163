// Package shard resolves an (embedder, model_id, dim) triple to a
// physical shard table, creating the table and its HNSW index
// idempotently the first time a new triple is seen.
package shard

import (
	"fmt"
	"regexp"
	"strings"

	"contextengine/internal/apperr"
)

// namePattern is the only shape a shard table name may ever take.
// Every repository that interpolates a table name into SQL must
// validate against this, even for names it did not itself construct.
var namePattern = regexp.MustCompile(`^embedding_[a-z0-9_]+$`)

var nameReplacer = strings.NewReplacer(":", "_", "-", "_", ".", "_", " ", "_")

// TableNamePolicy builds and validates shard table names.
type TableNamePolicy struct{}

// Build renders the canonical table name for (embedder, modelID, dim):
// embedding_<embedder>__<safe_model>__<dim>, lowercased, with
// ':', '-', '.', ' ' replaced by '_'.
func (TableNamePolicy) Build(embedder, modelID string, dim int) (string, error) {
	safeEmbedder := nameReplacer.Replace(strings.ToLower(embedder))
	safeModel := nameReplacer.Replace(strings.ToLower(modelID))
	name := fmt.Sprintf("embedding_%s__%s__%d", safeEmbedder, safeModel, dim)
	if err := Validate(name); err != nil {
		return "", err
	}
	return name, nil
}

// Validate rejects any name not matching the shard table policy. It
// must be called before interpolating name into SQL from any source
// that did not just construct it via Build (defense in depth against
// injection through a stale or tampered registry row).
func Validate(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: shard table name %q does not match policy %s", apperr.ErrValidation, name, namePattern.String())
	}
	return nil
}
