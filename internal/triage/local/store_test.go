package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

func trainedState(t *testing.T) *State {
	t.Helper()

	xs, ys := separableData()
	scaler, err := FitScaler(xs)
	if err != nil {
		t.Fatal(err)
	}
	forest, err := TrainForest(xs, ys, triage.SeverityClassCount, DefaultForestParams())
	if err != nil {
		t.Fatal(err)
	}
	return &State{
		Scaler: scaler,
		Forest: forest,
		Info: Info{
			TrainedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Samples:   len(xs),
			Trees:     len(forest.Trees),
		},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := NewFileStore(filepath.Join(dir, "models"))
	want := trainedState(t)

	if err := st.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, name := range []string{ClassifierFile, ScalerFile} {
		if _, err := os.Stat(filepath.Join(dir, "models", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Info.TrainedAt.Equal(want.Info.TrainedAt) || got.Info.Samples != want.Info.Samples ||
		got.Info.Trees != want.Info.Trees || got.Info.Bootstrapped != want.Info.Bootstrapped {
		t.Errorf("Info = %+v, want %+v", got.Info, want.Info)
	}
	if *got.Scaler != *want.Scaler {
		t.Errorf("Scaler = %+v, want %+v", got.Scaler, want.Scaler)
	}

	xs, _ := separableData()
	for _, x := range xs[:8] {
		pw := want.Forest.PredictProba(x)
		pg := got.Forest.PredictProba(x)
		for c := range pw {
			if pw[c] != pg[c] {
				t.Fatalf("PredictProba after reload = %v, want %v", pg, pw)
			}
		}
	}
}

func TestFileStore_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore(t.TempDir()).Load(context.Background())
	if !errors.Is(err, ErrNoState) {
		t.Errorf("err = %v, want ErrNoState", err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(t *testing.T, dir string)
		wantMsg string
	}{
		{
			"garbage classifier",
			func(t *testing.T, dir string) { writeFile(t, dir, ClassifierFile, "not json") },
			"decode",
		},
		{
			"wrong arity",
			func(t *testing.T, dir string) { replaceIn(t, dir, ClassifierFile, `"feature_count":5`, `"feature_count":4`) },
			"arity",
		},
		{
			"wrong version",
			func(t *testing.T, dir string) { replaceIn(t, dir, ScalerFile, `"version":1`, `"version":9`) },
			"version",
		},
		{
			"mismatched training",
			func(t *testing.T, dir string) {
				replaceIn(t, dir, ScalerFile, `"trained_at":"2026-03-01T12:00:00Z"`, `"trained_at":"2026-03-02T12:00:00Z"`)
			},
			"different trainings",
		},
		{
			"zero scale",
			func(t *testing.T, dir string) { replaceIn(t, dir, ScalerFile, `"scale":[`, `"scale":[0,`) },
			"scaler",
		},
		{
			"scaler missing",
			func(t *testing.T, dir string) {
				if err := os.Remove(filepath.Join(dir, ScalerFile)); err != nil {
					t.Fatal(err)
				}
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			st := NewFileStore(dir)
			if err := st.Save(context.Background(), trainedState(t)); err != nil {
				t.Fatal(err)
			}
			tt.mutate(t, dir)

			_, err := st.Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func retrainedState(t *testing.T) *State {
	t.Helper()

	s := trainedState(t)
	s.Info.TrainedAt = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	s.Scaler.Mean[0] += 1
	return s
}

func TestFileStore_FailedSaveKeepsPreviousModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		failOn  string
		wantMsg string
	}{
		{"classifier rename fails", ClassifierFile, "rename " + ClassifierFile},
		{"scaler rename fails", ScalerFile, "rename " + ScalerFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			st := NewFileStore(dir)
			prev := trainedState(t)
			if err := st.Save(context.Background(), prev); err != nil {
				t.Fatalf("Save: %v", err)
			}

			st.rename = func(oldpath, newpath string) error {
				if strings.HasSuffix(oldpath, ".tmp") && filepath.Base(newpath) == tt.failOn {
					return errors.New("disk full")
				}
				return os.Rename(oldpath, newpath)
			}
			err := st.Save(context.Background(), retrainedState(t))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("Save err = %v, want containing %q", err, tt.wantMsg)
			}

			got, err := NewFileStore(dir).Load(context.Background())
			if err != nil {
				t.Fatalf("Load after failed save: %v", err)
			}
			if !got.Info.TrainedAt.Equal(prev.Info.TrainedAt) {
				t.Errorf("TrainedAt = %v, want %v", got.Info.TrainedAt, prev.Info.TrainedAt)
			}
			if *got.Scaler != *prev.Scaler {
				t.Errorf("Scaler = %+v, want previous %+v", got.Scaler, prev.Scaler)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), ".tmp") || strings.HasSuffix(e.Name(), scalerBackupSuffix) {
					t.Errorf("leftover file %s", e.Name())
				}
			}
		})
	}
}

func TestFileStore_FirstSaveFailureLeavesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := NewFileStore(dir)
	st.rename = func(oldpath, newpath string) error {
		if filepath.Base(newpath) == ClassifierFile {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}
	if err := st.Save(context.Background(), trainedState(t)); err == nil {
		t.Fatal("expected error")
	}

	if _, err := NewFileStore(dir).Load(context.Background()); !errors.Is(err, ErrNoState) {
		t.Errorf("Load err = %v, want ErrNoState", err)
	}
}

func TestFileStore_LoadUsesScalerBackupAfterInterruptedSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := NewFileStore(dir)
	prev := trainedState(t)
	if err := st.Save(context.Background(), prev); err != nil {
		t.Fatal(err)
	}

	// State after the new scaler landed but before the classifier did.
	scalerPath := filepath.Join(dir, ScalerFile)
	if err := os.Rename(scalerPath, scalerPath+scalerBackupSuffix); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(scalerPath + scalerBackupSuffix)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, ScalerFile, strings.Replace(string(data),
		`"trained_at":"2026-03-01T12:00:00Z"`, `"trained_at":"2026-03-08T12:00:00Z"`, 1))

	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Info.TrainedAt.Equal(prev.Info.TrainedAt) || *got.Scaler != *prev.Scaler {
		t.Errorf("Load = %+v, want previous model", got.Info)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func replaceIn(t *testing.T, dir, name, old, repl string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), old) {
		t.Fatalf("%s does not contain %q", name, old)
	}
	writeFile(t, dir, name, strings.Replace(string(data), old, repl, 1))
}
