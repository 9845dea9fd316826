package label

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/gateway/artifact"
	"weather-inference/internal/domain/model/external"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
)

// DefaultCacheDir is where the training pipeline drops label artifacts.
const DefaultCacheDir = "/opt/airflow/models"

var errEmptyArtifact = errors.New("label artifact has no classes")

// Resolver returns the label mapping of a model variant.
type Resolver interface {
	// Resolve walks remote artifact, local cache and default table in order.
	// It always returns a mapping; tier failures are only logged.
	Resolve(ctx context.Context, variant entity.ModelVariant, modelURI string) Mapping
}

type runResolver struct {
	artifacts artifact.Gateway
	cacheDir  string

	mu       sync.Mutex
	resolved map[entity.ModelVariant]Mapping
}

// NewRunResolver creates a resolver scoped to one pipeline run. The first
// resolution of each variant is memoized so every location in the run is
// decoded against the same mapping.
func NewRunResolver(artifacts artifact.Gateway, cacheDir string) Resolver {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir
	}
	return &runResolver{
		artifacts: artifacts,
		cacheDir:  cacheDir,
		resolved:  make(map[entity.ModelVariant]Mapping),
	}
}

func (r *runResolver) Resolve(ctx context.Context, variant entity.ModelVariant, modelURI string) Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mapping, ok := r.resolved[variant]; ok {
		return mapping
	}

	mapping := r.resolveChain(ctx, variant, modelURI)
	r.resolved[variant] = mapping

	log.Info(msg.GetMessage("label.resolved", variant, mapping.Source(), mapping.Size()),
		zap.String("model_variant", string(variant)),
		zap.String("label_source", string(mapping.Source())),
		zap.Int("classes", mapping.Size()))
	return mapping
}

func (r *runResolver) resolveChain(ctx context.Context, variant entity.ModelVariant, modelURI string) Mapping {
	name := ArtifactName(variant)

	mapping, raw, err := r.fromRemote(ctx, modelURI, name)
	if err == nil {
		r.writeCache(name, raw)
		return mapping
	}
	degraded(variant, SourceRemote, err)

	mapping, err = r.fromLocal(name)
	if err == nil {
		return mapping
	}
	degraded(variant, SourceLocal, err)

	return Default()
}

func (r *runResolver) fromRemote(ctx context.Context, modelURI, name string) (Mapping, []byte, error) {
	if r.artifacts == nil {
		return nil, nil, errors.New("no artifact store configured")
	}

	runID, err := RunIDFromModelURI(modelURI)
	if err != nil {
		return nil, nil, err
	}

	raw, err := r.artifacts.Download(ctx, runID, name)
	if err != nil {
		return nil, nil, fmt.Errorf("download %s for run %s: %w", name, runID, err)
	}

	classes, err := ParseArtifact(raw)
	if err != nil {
		return nil, nil, err
	}
	return NewMapping(classes, SourceRemote), raw, nil
}

func (r *runResolver) fromLocal(name string) (Mapping, error) {
	raw, err := os.ReadFile(r.cachePath(name))
	if err != nil {
		return nil, err
	}
	classes, err := ParseArtifact(raw)
	if err != nil {
		return nil, err
	}
	return NewMapping(classes, SourceLocal), nil
}

// writeCache refreshes the local copy; a failure only costs the next run its cache tier.
func (r *runResolver) writeCache(name string, raw []byte) {
	path := r.cachePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn(msg.GetMessage("label.cache-write-failed", path, err), zap.Error(err))
		return
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		log.Warn(msg.GetMessage("label.cache-write-failed", path, err), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		log.Warn(msg.GetMessage("label.cache-write-failed", path, err), zap.Error(err))
	}
}

func (r *runResolver) cachePath(name string) string {
	return filepath.Join(r.cacheDir, name)
}

func degraded(variant entity.ModelVariant, tier Source, err error) {
	log.Warn(msg.GetMessage("label.degraded", variant, tier, err),
		zap.String("event", "LabelResolutionDegraded"),
		zap.String("model_variant", string(variant)),
		zap.String("tier", string(tier)),
		zap.Error(err))
}

// ArtifactName is the label artifact stored with a model run of the variant.
func ArtifactName(variant entity.ModelVariant) string {
	switch variant {
	case entity.VariantHistorical:
		return "label_encoder_historical.json"
	case entity.VariantForecast6h:
		return "label_encoder_6h.json"
	default:
		return "label_encoder_" + string(variant) + ".json"
	}
}

// RunIDFromModelURI extracts <run_id> from a runs:/<run_id>/<path> model URI.
func RunIDFromModelURI(modelURI string) (string, error) {
	rest, ok := strings.CutPrefix(modelURI, "runs:/")
	if !ok {
		return "", fmt.Errorf("model uri %q is not a runs:/ uri", modelURI)
	}
	runID, _, _ := strings.Cut(strings.TrimLeft(rest, "/"), "/")
	if runID == "" {
		return "", fmt.Errorf("model uri %q has no run id", modelURI)
	}
	return runID, nil
}

// ParseArtifact reads either {"classes": [...]} or a bare JSON array of class names.
func ParseArtifact(raw []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)

	var classes []string
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &classes); err != nil {
			return nil, fmt.Errorf("decode label artifact: %w", err)
		}
	} else {
		var artifact external.LabelArtifact
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return nil, fmt.Errorf("decode label artifact: %w", err)
		}
		classes = artifact.Classes
	}

	if len(classes) == 0 {
		return nil, errEmptyArtifact
	}
	return classes, nil
}
