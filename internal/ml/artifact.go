package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/oddsflow/predictor/internal/features"
)

// ErrNoArtifact is returned when no model artifact has been produced yet.
var ErrNoArtifact = errors.New("no model artifact available")

// Artifact is the immutable, versioned output of one training run: the
// fitted pipeline, the lookup tables the inference path must reuse, and the
// evaluation the run shipped with.
type Artifact struct {
	Version    string          `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	Tables     features.Tables `json:"tables"`
	Pipeline   *Pipeline       `json:"pipeline"`
	Evaluation Evaluation      `json:"evaluation"`
}

// NewVersion mints a unique, time-ordered version identifier.
func NewVersion(now time.Time) string {
	return fmt.Sprintf("v%s-%s", now.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// ArtifactStore persists artifacts as versioned JSON files in one directory.
// current.json always points at the newest artifact and is replaced with an
// atomic rename so readers never observe a partial write.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the artifact directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Save writes the versioned artifact file and swaps the current pointer.
func (s *ArtifactStore) Save(a *Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	versioned := filepath.Join(s.dir, "model-"+a.Version+".json")
	if err := os.WriteFile(versioned, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}

	tmp := filepath.Join(s.dir, ".current.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing current artifact: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, "current.json")); err != nil {
		return fmt.Errorf("swapping current artifact: %w", err)
	}

	return nil
}

// LoadCurrent loads the newest artifact.
func (s *ArtifactStore) LoadCurrent() (*Artifact, error) {
	return s.load(filepath.Join(s.dir, "current.json"))
}

// LoadVersion loads one specific artifact version for audit.
func (s *ArtifactStore) LoadVersion(version string) (*Artifact, error) {
	return s.load(filepath.Join(s.dir, "model-"+version+".json"))
}

func (s *ArtifactStore) load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", a.Version, err)
	}
	return &a, nil
}

// validate rejects artifacts that cannot serve predictions, so a truncated or
// hand-edited artifact file fails at load instead of panicking at inference.
func (a *Artifact) validate() error {
	if a.Pipeline == nil {
		return errors.New("no pipeline")
	}
	c := a.Pipeline.Classifier
	if c.NumClasses < 2 || len(c.Weights) != c.NumClasses {
		return fmt.Errorf("classifier has %d classes and %d weight vectors", c.NumClasses, len(c.Weights))
	}
	if len(a.Tables.Labels) != c.NumClasses {
		return fmt.Errorf("%d labels for %d classes", len(a.Tables.Labels), c.NumClasses)
	}
	return nil
}
