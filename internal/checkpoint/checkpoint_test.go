package checkpoint

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/internal/tensor"
)

func newFloat32(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attn.strata")

	weight := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	bias := newFloat32(t, tensor.Shape{2}, []float32{-0.5, 0.25})

	ids, err := tensor.NewRaw(tensor.Shape{4}, tensor.Int32)
	require.NoError(t, err)
	copy(ids.AsInt32(), []int32{0, 0, 1, 1})

	stateDict := map[string]*tensor.RawTensor{
		"linear_out.weight": weight,
		"linear_out.bias":   bias,
		"units":             ids,
	}

	require.NoError(t, Save(path, stateDict, map[string]string{"dim": "3"}))

	loaded, header, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, header.FormatVersion)
	assert.Equal(t, "3", header.Metadata["dim"])
	require.Len(t, loaded, 3)

	got := loaded["linear_out.weight"]
	require.NotNil(t, got)
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got.AsFloat32())

	assert.Equal(t, []float32{-0.5, 0.25}, loaded["linear_out.bias"].AsFloat32())
	assert.Equal(t, []int32{0, 0, 1, 1}, loaded["units"].AsInt32())
}

func TestSaveDeterministicLayout(t *testing.T) {
	dir := t.TempDir()
	stateDict := map[string]*tensor.RawTensor{
		"b": newFloat32(t, tensor.Shape{2}, []float32{1, 2}),
		"a": newFloat32(t, tensor.Shape{2}, []float32{3, 4}),
	}

	_, header, err := save2(t, filepath.Join(dir, "x.strata"), stateDict)
	require.NoError(t, err)

	// Sorted name order, not map order.
	require.Len(t, header.Tensors, 2)
	assert.Equal(t, "a", header.Tensors[0].Name)
	assert.Equal(t, "b", header.Tensors[1].Name)
	assert.Equal(t, int64(0), header.Tensors[0].Offset)
	assert.Equal(t, int64(8), header.Tensors[1].Offset)
}

func save2(t *testing.T, path string, sd map[string]*tensor.RawTensor) (map[string]*tensor.RawTensor, *Header, error) {
	t.Helper()
	require.NoError(t, Save(path, sd, nil))
	return Load(path)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.strata")
	require.NoError(t, os.WriteFile(path, []byte("BORNxxxxxxxxxxxx"), 0o600))

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a strata checkpoint")
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.strata")

	buf := []byte(Magic)
	buf = binary.LittleEndian.AppendUint32(buf, 99)
	buf = binary.LittleEndian.AppendUint64(buf, 0)
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format version")
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.strata"))
	assert.Error(t, err)
}
