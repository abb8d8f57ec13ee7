package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// Persisted file names inside the model directory.
const (
	ClassifierFile = "alert_classifier.json"
	ScalerFile     = "scaler.json"

	formatVersion = 1
)

// ErrNoState is returned by Store.Load when nothing has been persisted yet.
var ErrNoState = errors.New("no persisted model state")

// State is a fitted model: scaler, forest and training metadata.
type State struct {
	Scaler *Scaler
	Forest *Forest
	Info   Info
}

// Store persists model state.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
}

type classifierFile struct {
	Version      int               `json:"version"`
	FeatureCount int               `json:"feature_count"`
	Classes      []triage.Severity `json:"classes"`
	TrainedAt    time.Time         `json:"trained_at"`
	Samples      int               `json:"samples"`
	Bootstrapped bool              `json:"bootstrapped"`
	Forest       *Forest           `json:"forest"`
}

type scalerFile struct {
	Version      int       `json:"version"`
	FeatureCount int       `json:"feature_count"`
	TrainedAt    time.Time `json:"trained_at"`
	Scaler
}

// scalerBackupSuffix names the previous scaler kept while a Save commits.
const scalerBackupSuffix = ".prev"

// FileStore keeps model state as two JSON files in a directory.
type FileStore struct {
	Dir string

	// rename is os.Rename unless a test injects a failure.
	rename func(oldpath, newpath string) error
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Load reads and validates the persisted state. Missing files yield ErrNoState;
// any other failure means the state is corrupt.
func (st *FileStore) Load(_ context.Context) (*State, error) {
	var cf classifierFile
	if err := readJSON(filepath.Join(st.Dir, ClassifierFile), &cf); err != nil {
		return nil, err
	}
	sf, err := st.loadScaler(cf.TrainedAt)
	if err != nil {
		return nil, err
	}

	if cf.Version != formatVersion || sf.Version != formatVersion {
		return nil, fmt.Errorf("unsupported model format version %d/%d", cf.Version, sf.Version)
	}
	if cf.FeatureCount != triage.FeatureCount || sf.FeatureCount != triage.FeatureCount {
		return nil, fmt.Errorf("model feature arity %d/%d, want %d", cf.FeatureCount, sf.FeatureCount, triage.FeatureCount)
	}
	if len(cf.Classes) != triage.SeverityClassCount {
		return nil, fmt.Errorf("model has %d classes, want %d", len(cf.Classes), triage.SeverityClassCount)
	}
	for i, c := range cf.Classes {
		if c != triage.SeverityFromClass(i) {
			return nil, fmt.Errorf("model class %d is %q, want %q", i, c, triage.SeverityFromClass(i))
		}
	}
	if cf.Forest == nil {
		return nil, errors.New("classifier has no forest")
	}
	if err := cf.Forest.validate(); err != nil {
		return nil, fmt.Errorf("invalid forest: %w", err)
	}
	if cf.Forest.Classes != triage.SeverityClassCount {
		return nil, fmt.Errorf("forest has %d classes, want %d", cf.Forest.Classes, triage.SeverityClassCount)
	}
	scaler := sf.Scaler
	if !scaler.valid() {
		return nil, errors.New("invalid scaler parameters")
	}

	return &State{
		Scaler: &scaler,
		Forest: cf.Forest,
		Info: Info{
			Bootstrapped: cf.Bootstrapped,
			TrainedAt:    cf.TrainedAt,
			Samples:      cf.Samples,
			Trees:        len(cf.Forest.Trees),
		},
	}, nil
}

// loadScaler reads the scaler matching trainedAt. The current file wins; the
// backup left by an interrupted Save is used when the current one is missing
// or belongs to a different training.
func (st *FileStore) loadScaler(trainedAt time.Time) (scalerFile, error) {
	var sf scalerFile
	err := readJSON(filepath.Join(st.Dir, ScalerFile), &sf)
	if err == nil && sf.TrainedAt.Equal(trainedAt) {
		return sf, nil
	}
	if err != nil && !errors.Is(err, ErrNoState) {
		return sf, err
	}

	var prev scalerFile
	if perr := readJSON(filepath.Join(st.Dir, ScalerFile+scalerBackupSuffix), &prev); perr == nil && prev.TrainedAt.Equal(trainedAt) {
		return prev, nil
	}
	if err != nil {
		return sf, err
	}
	return sf, errors.New("classifier and scaler are from different trainings")
}

// Save stages both files before touching the live ones, then renames them
// into place. If the classifier cannot be committed the previous scaler is
// put back, so the directory always holds a matching pair.
func (st *FileStore) Save(_ context.Context, s *State) error {
	if err := os.MkdirAll(st.Dir, 0o750); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	classes := make([]triage.Severity, triage.SeverityClassCount)
	for i := range classes {
		classes[i] = triage.SeverityFromClass(i)
	}

	scalerTmp, err := stageJSON(st.Dir, ScalerFile, scalerFile{
		Version:      formatVersion,
		FeatureCount: triage.FeatureCount,
		TrainedAt:    s.Info.TrainedAt,
		Scaler:       *s.Scaler,
	})
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(scalerTmp) }()

	classifierTmp, err := stageJSON(st.Dir, ClassifierFile, classifierFile{
		Version:      formatVersion,
		FeatureCount: triage.FeatureCount,
		Classes:      classes,
		TrainedAt:    s.Info.TrainedAt,
		Samples:      s.Info.Samples,
		Bootstrapped: s.Info.Bootstrapped,
		Forest:       s.Forest,
	})
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(classifierTmp) }()

	scalerPath := filepath.Join(st.Dir, ScalerFile)
	backupPath := scalerPath + scalerBackupSuffix
	classifierPath := filepath.Join(st.Dir, ClassifierFile)

	hadPrev := true
	if err := st.doRename(scalerPath, backupPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("back up %s: %w", ScalerFile, err)
		}
		hadPrev = false
	}
	restore := func() {
		if hadPrev {
			_ = st.doRename(backupPath, scalerPath)
			return
		}
		_ = os.Remove(scalerPath)
	}

	if err := st.doRename(scalerTmp, scalerPath); err != nil {
		restore()
		return fmt.Errorf("rename %s: %w", ScalerFile, err)
	}
	if err := st.doRename(classifierTmp, classifierPath); err != nil {
		restore()
		return fmt.Errorf("rename %s: %w", ClassifierFile, err)
	}
	if hadPrev {
		_ = os.Remove(backupPath)
	}
	return nil
}

func (st *FileStore) doRename(oldpath, newpath string) error {
	if st.rename != nil {
		return st.rename(oldpath, newpath)
	}
	return os.Rename(oldpath, newpath)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator configured
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoState
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// stageJSON writes v to a temp file next to name in dir and returns its path.
func stageJSON(dir, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return tmp.Name(), nil
}
