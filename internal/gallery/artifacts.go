package gallery

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attend/internal/face"
)

// Embedding artifact layout: 4-byte magic, uint32 count, uint32 dim,
// then count*dim little-endian float32 values in row-major order.
const (
	artifactMagic = "FAV1"
	headerSize    = 12
)

// ErrCorruptArtifact marks an embedding artifact whose header or size
// does not match the declared shape.
var ErrCorruptArtifact = errors.New("corrupt gallery artifact")

// WriteEmbeddings persists the embedding matrix. Vectors are normalized
// to unit length on the way out, so the artifact always holds unit
// vectors and Match can treat cosine similarity as a dot product.
func WriteEmbeddings(path string, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	buf := make([]byte, headerSize, headerSize+len(vectors)*dim*4)
	copy(buf, artifactMagic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(dim))

	scratch := make([]float32, dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("embedding %d has %d values, expected %d", i, len(vec), dim)
		}
		copy(scratch, vec)
		face.Normalize(scratch)
		for _, v := range scratch {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}

	return writeFileAtomic(path, buf)
}

// ReadEmbeddings loads the embedding matrix written by WriteEmbeddings.
func ReadEmbeddings(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading embeddings artifact: %w", err)
	}

	if len(data) < headerSize || string(data[:4]) != artifactMagic {
		return nil, fmt.Errorf("%w: bad header in %s", ErrCorruptArtifact, path)
	}
	count := int(binary.LittleEndian.Uint32(data[4:]))
	dim := int(binary.LittleEndian.Uint32(data[8:]))

	expected := int64(headerSize) + int64(count)*int64(dim)*4
	if int64(len(data)) != expected {
		return nil, fmt.Errorf("%w: %s holds %d bytes, expected %d for %dx%d",
			ErrCorruptArtifact, path, len(data), expected, count, dim)
	}

	vectors := make([][]float32, count)
	off := headerSize
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// WriteNames persists the parallel name list as a JSON array.
func WriteNames(path string, names []string) error {
	if names == nil {
		names = []string{}
	}

	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshaling names: %w", err)
	}

	return writeFileAtomic(path, data)
}

// ReadNames loads the name list written by WriteNames.
func ReadNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading names artifact: %w", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parsing names artifact %s: %w", path, err)
	}

	return names, nil
}

// AppendEntry adds one identity to the artifact pair, creating both
// files when they do not exist yet.
func AppendEntry(embeddingsPath, namesPath, name string, embedding []float32) error {
	if name == "" {
		return errors.New("empty subject name")
	}
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}

	vectors, err := ReadEmbeddings(embeddingsPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	names, err := ReadNames(namesPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if len(names) != len(vectors) {
		return fmt.Errorf("gallery cardinality mismatch: %d embeddings, %d names", len(vectors), len(names))
	}
	if len(vectors) > 0 && len(vectors[0]) != len(embedding) {
		return fmt.Errorf("embedding has %d values, gallery uses %d", len(embedding), len(vectors[0]))
	}

	vectors = append(vectors, embedding)
	names = append(names, name)

	if err := WriteEmbeddings(embeddingsPath, vectors); err != nil {
		return err
	}
	return WriteNames(namesPath, names)
}

// writeFileAtomic writes data to a temp file next to the target and
// renames it into place, so a concurrent reload never sees a partial
// artifact. The artifact directory is created on first write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing temp artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return nil
}
