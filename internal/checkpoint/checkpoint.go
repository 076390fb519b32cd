// Package checkpoint persists attention parameters to disk.
//
// The file layout is: 4-byte magic "STRA", uint32 format version,
// uint64 header size, a JSON header describing every tensor, zero
// padding up to a 64-byte boundary, then the raw tensor payloads in
// header order. All integers are little-endian.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/strata-ml/strata/internal/logger"
	"github.com/strata-ml/strata/internal/tensor"
)

const (
	// Magic identifies a strata checkpoint file.
	Magic = "STRA"
	// FormatVersion is the current file format version.
	FormatVersion = 1
	// payloadAlignment aligns the tensor payload section.
	payloadAlignment = 64
	// maxHeaderSize bounds the JSON header when reading untrusted files.
	maxHeaderSize = 64 << 20
)

const strataVersion = "0.1.0"

// Header is the JSON header of a checkpoint file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	StrataVersion string            `json:"strata_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the payload section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the payload section
	Size   int64  `json:"size"`
}

// Save writes a state dictionary to path. Tensors are laid out in
// sorted name order so identical state produces identical files.
// metadata may be nil.
func Save(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		StrataVersion: strataVersion,
		CreatedAt:     time.Now().UTC(),
		Metadata:      metadata,
	}

	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.NumElements() * raw.DType().Size())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint header")
	}

	file, err := os.Create(path) //nolint:gosec // G304: checkpoint path is caller-chosen
	if err != nil {
		return errors.Wrapf(err, "create checkpoint %s", path)
	}
	defer file.Close()

	if _, err := file.WriteString(Magic); err != nil {
		return errors.Wrap(err, "write magic")
	}
	if err := binary.Write(file, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return errors.Wrap(err, "write format version")
	}
	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "write header size")
	}
	if _, err := file.Write(headerJSON); err != nil {
		return errors.Wrap(err, "write header")
	}

	pos := int64(len(Magic)) + 4 + 8 + int64(len(headerJSON))
	if pad := (payloadAlignment - pos%payloadAlignment) % payloadAlignment; pad > 0 {
		if _, err := file.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "write padding")
		}
	}

	for _, name := range names {
		if _, err := file.Write(stateDict[name].Bytes()); err != nil {
			return errors.Wrapf(err, "write tensor %s", name)
		}
	}

	if err := file.Sync(); err != nil {
		return errors.Wrapf(err, "sync checkpoint %s", path)
	}

	logger.Log.Info("checkpoint saved",
		"path", path,
		"tensors", len(names))
	return nil
}

// Load reads a checkpoint written by Save and returns the state
// dictionary and the file header.
func Load(path string) (map[string]*tensor.RawTensor, *Header, error) {
	file, err := os.Open(path) //nolint:gosec // G304: checkpoint path is caller-chosen
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open checkpoint %s", path)
	}
	defer file.Close()

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(file, magic); err != nil {
		return nil, nil, errors.Wrap(err, "read magic")
	}
	if string(magic) != Magic {
		return nil, nil, errors.Errorf("not a strata checkpoint: magic %q", magic)
	}

	var version uint32
	if err := binary.Read(file, binary.LittleEndian, &version); err != nil {
		return nil, nil, errors.Wrap(err, "read format version")
	}
	if version != FormatVersion {
		return nil, nil, errors.Errorf("unsupported format version %d (want %d)", version, FormatVersion)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, errors.Wrap(err, "read header size")
	}
	if headerSize > maxHeaderSize {
		return nil, nil, errors.Errorf("header size %d exceeds limit %d", headerSize, maxHeaderSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerJSON); err != nil {
		return nil, nil, errors.Wrap(err, "read header")
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, nil, errors.Wrap(err, "parse header")
	}

	payloadStart := int64(len(Magic)) + 4 + 8 + int64(headerSize) //nolint:gosec // G115: bounded by maxHeaderSize
	payloadStart += (payloadAlignment - payloadStart%payloadAlignment) % payloadAlignment

	stateDict := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		dtype, ok := parseDType(meta.DType)
		if !ok {
			return nil, nil, errors.Errorf("tensor %s: unknown dtype %q", meta.Name, meta.DType)
		}

		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "tensor %s: invalid shape", meta.Name)
		}
		if want := int64(len(raw.Bytes())); want != meta.Size {
			return nil, nil, errors.Errorf("tensor %s: size %d disagrees with shape %v (%d bytes)",
				meta.Name, meta.Size, meta.Shape, want)
		}

		if _, err := file.ReadAt(raw.Bytes(), payloadStart+meta.Offset); err != nil {
			return nil, nil, errors.Wrapf(err, "read tensor %s", meta.Name)
		}
		stateDict[meta.Name] = raw
	}

	logger.Log.Info("checkpoint loaded",
		"path", path,
		"tensors", len(stateDict))
	return stateDict, &header, nil
}

func parseDType(s string) (tensor.DataType, bool) {
	switch s {
	case "float32":
		return tensor.Float32, true
	case "float64":
		return tensor.Float64, true
	case "int32":
		return tensor.Int32, true
	case "bool":
		return tensor.Bool, true
	default:
		return 0, false
	}
}
