package gallery

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.bin")

	in := [][]float32{
		{3, 4},
		{0, 1},
	}
	if err := WriteEmbeddings(path, in); err != nil {
		t.Fatalf("WriteEmbeddings failed: %v", err)
	}

	out, err := ReadEmbeddings(path)
	if err != nil {
		t.Fatalf("ReadEmbeddings failed: %v", err)
	}

	if len(out) != 2 || len(out[0]) != 2 {
		t.Fatalf("read %d vectors, want 2 of dim 2", len(out))
	}

	// Vectors are stored unit-normalized.
	want := [][]float32{
		{0.6, 0.8},
		{0, 1},
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(float64(out[i][j]-want[i][j])) > 1e-6 {
				t.Errorf("vector %d[%d] = %f; want %f", i, j, out[i][j], want[i][j])
			}
		}
	}
}

func TestEmbeddingsRoundTripEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.bin")

	if err := WriteEmbeddings(path, nil); err != nil {
		t.Fatalf("WriteEmbeddings failed: %v", err)
	}

	out, err := ReadEmbeddings(path)
	if err != nil {
		t.Fatalf("ReadEmbeddings failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("read %d vectors from empty artifact, want 0", len(out))
	}
}

func TestWriteEmbeddingsRagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.bin")

	err := WriteEmbeddings(path, [][]float32{{1, 0}, {1, 0, 0}})
	if err == nil {
		t.Error("expected error for ragged embedding matrix")
	}
}

func TestReadEmbeddingsCorrupt(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.bin")
	if err := WriteEmbeddings(good, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("WriteEmbeddings failed: %v", err)
	}
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty file", nil},
		{"short header", data[:8]},
		{"bad magic", append([]byte("XXXX"), data[4:]...)},
		{"truncated body", data[:len(data)-4]},
		{"trailing bytes", append(append([]byte{}, data...), 0, 0, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.bin")
			if err := os.WriteFile(path, tc.data, 0600); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}

			_, err := ReadEmbeddings(path)
			if !errors.Is(err, ErrCorruptArtifact) {
				t.Errorf("ReadEmbeddings() error = %v; want ErrCorruptArtifact", err)
			}
		})
	}
}

func TestReadEmbeddingsMissingFile(t *testing.T) {
	_, err := ReadEmbeddings(filepath.Join(t.TempDir(), "nope.bin"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadEmbeddings() error = %v; want os.ErrNotExist", err)
	}
}

func TestNamesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.json")

	in := []string{"Tomáš Novák", "Jana Dvořáková", "Unknown Person #3"}
	if err := WriteNames(path, in); err != nil {
		t.Fatalf("WriteNames failed: %v", err)
	}

	out, err := ReadNames(path)
	if err != nil {
		t.Fatalf("ReadNames failed: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("read %d names, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("name %d = %q; want %q", i, out[i], in[i])
		}
	}
}

func TestReadNamesBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"}`), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := ReadNames(path); err == nil {
		t.Error("expected error for non-array names artifact")
	}
}

func TestAppendEntry(t *testing.T) {
	dir := t.TempDir()
	embPath := filepath.Join(dir, "emb.bin")
	namesPath := filepath.Join(dir, "names.json")

	if err := AppendEntry(embPath, namesPath, "alice", []float32{1, 0, 0}); err != nil {
		t.Fatalf("first AppendEntry failed: %v", err)
	}
	if err := AppendEntry(embPath, namesPath, "bob", []float32{0, 1, 0}); err != nil {
		t.Fatalf("second AppendEntry failed: %v", err)
	}

	vectors, err := ReadEmbeddings(embPath)
	if err != nil {
		t.Fatalf("ReadEmbeddings failed: %v", err)
	}
	names, err := ReadNames(namesPath)
	if err != nil {
		t.Fatalf("ReadNames failed: %v", err)
	}

	if len(vectors) != 2 || len(names) != 2 {
		t.Fatalf("gallery holds %d vectors / %d names, want 2 / 2", len(vectors), len(names))
	}
	if names[0] != "alice" || names[1] != "bob" {
		t.Errorf("names = %v; want [alice bob]", names)
	}
}

func TestAppendEntryDimMismatch(t *testing.T) {
	dir := t.TempDir()
	embPath := filepath.Join(dir, "emb.bin")
	namesPath := filepath.Join(dir, "names.json")

	if err := AppendEntry(embPath, namesPath, "alice", []float32{1, 0, 0}); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}

	if err := AppendEntry(embPath, namesPath, "bob", []float32{1, 0}); err == nil {
		t.Error("expected error for dimension mismatch")
	}
}

func TestAppendEntryRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	embPath := filepath.Join(dir, "emb.bin")
	namesPath := filepath.Join(dir, "names.json")

	if err := AppendEntry(embPath, namesPath, "", []float32{1}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := AppendEntry(embPath, namesPath, "alice", nil); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.json")

	if err := WriteNames(path, []string{"first"}); err != nil {
		t.Fatalf("WriteNames failed: %v", err)
	}
	if err := WriteNames(path, []string{"second", "third"}); err != nil {
		t.Fatalf("second WriteNames failed: %v", err)
	}

	names, err := ReadNames(path)
	if err != nil {
		t.Fatalf("ReadNames failed: %v", err)
	}
	if len(names) != 2 || names[0] != "second" {
		t.Errorf("names = %v; want [second third]", names)
	}
}
