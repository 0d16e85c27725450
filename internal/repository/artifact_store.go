package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/predictor"
	applogger "StockPred/pkg/logger"
)

const (
	pooledDir    = "_pooled"
	stampLayout  = "20060102_150405"
	latestSuffix = "latest"
)

// FSArtifactStore keeps artifacts as JSON files under dir/<class>/<scope>/.
// Each save writes a timestamped file and replaces <class>_model_latest.json;
// both go through a temp file and rename so readers never see a partial write.
type FSArtifactStore struct {
	dir string
	l   *applogger.Logger
	mu  sync.Mutex
}

var _ predictor.Store = (*FSArtifactStore)(nil)

func NewFSArtifactStore(dir string, l *applogger.Logger) (*FSArtifactStore, error) {
	if dir == "" {
		return nil, errors.New("artifact dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &FSArtifactStore{dir: dir, l: l.With("artifact_store")}, nil
}

func (s *FSArtifactStore) scopeDir(class models.PredictionClass, scope string) string {
	if scope == "" {
		scope = pooledDir
	}
	return filepath.Join(s.dir, string(class), sanitize(scope))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
}

func (s *FSArtifactStore) Save(ctx context.Context, a *predictor.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := a.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.scopeDir(a.Class, a.Scope)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scope dir: %w", err)
	}
	base := fmt.Sprintf("%s_model_%s", a.Class, a.CreatedAt.UTC().Format(stampLayout))
	path := filepath.Join(dir, base+".json")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", base, i))
	}
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	if err := writeAtomic(s.latestPath(a.Class, a.Scope), data); err != nil {
		return "", err
	}
	s.l.Info("artifact saved",
		applogger.String("class", string(a.Class)),
		applogger.String("scope", a.Scope),
		applogger.String("path", path),
		applogger.Int("bytes", len(data)),
	)
	return path, nil
}

func (s *FSArtifactStore) latestPath(class models.PredictionClass, scope string) string {
	return filepath.Join(s.scopeDir(class, scope), fmt.Sprintf("%s_model_%s.json", class, latestSuffix))
}

func (s *FSArtifactStore) Latest(ctx context.Context, class models.PredictionClass, scope string) (*predictor.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Load(s.latestPath(class, scope))
}

// Load reads one artifact file. A missing file wraps ErrModelNotTrained.
func (s *FSArtifactStore) Load(path string) (*predictor.Artifact, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrModelNotTrained, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a predictor.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	return &a, nil
}

// List returns the artifacts of class, newest first. Latest copies are flagged
// on the timestamped entry with the same ID rather than listed twice.
func (s *FSArtifactStore) List(ctx context.Context, class models.PredictionClass) ([]models.ArtifactInfo, error) {
	root := filepath.Join(s.dir, string(class))
	var out []models.ArtifactInfo
	latest := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		h, err := readHeader(path)
		if err != nil {
			s.l.Warn("skipping unreadable artifact", applogger.String("path", path), applogger.Error(err))
			return nil
		}
		if strings.HasSuffix(path, "_"+latestSuffix+".json") {
			latest[h.ID] = true
			return nil
		}
		out = append(out, models.ArtifactInfo{ID: h.ID, Class: h.Class, Scope: h.Scope, Path: path, CreatedAt: h.CreatedAt})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	for i := range out {
		out[i].Latest = latest[out[i].ID]
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Path > out[j].Path
	})
	return out, nil
}

type header struct {
	ID        string                 `json:"id"`
	Class     models.PredictionClass `json:"class"`
	Scope     string                 `json:"scope"`
	CreatedAt time.Time              `json:"created_at"`
}

func readHeader(path string) (header, error) {
	f, err := os.Open(path)
	if err != nil {
		return header{}, err
	}
	defer f.Close()
	var h header
	err = json.NewDecoder(f).Decode(&h)
	return h, err
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write %s: %w", filepath.Base(path), err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync %s: %w", filepath.Base(path), err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
