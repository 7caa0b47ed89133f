package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Index file layout:
//
//	magic   4 bytes "CWIX"
//	header  msgpack map, see Header
//	body    zstd stream of front-coded keys in ascending order:
//	        uvarint shared prefix length, uvarint suffix length, suffix bytes
const (
	Magic   = "CWIX"
	Version = 1
)

var (
	// ErrCorrupt is returned for files that do not decode as an index.
	ErrCorrupt = errors.New("index: corrupt file")
	// ErrVersion is returned for index files written by an incompatible version.
	ErrVersion = errors.New("index: unsupported version")
)

// Header describes a persisted index.
type Header struct {
	Version     int    `msgpack:"version"`
	Count       int    `msgpack:"count"`
	RunID       string `msgpack:"run_id"`
	CreatedUnix int64  `msgpack:"created_unix"`
}

func writeIndex(w io.Writer, hdr Header, keys []string) error {
	if _, err := io.WriteString(w, Magic); err != nil {
		return err
	}
	if err := msgpack.NewEncoder(w).Encode(&hdr); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if err := encodeKeys(zw, keys); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func encodeKeys(w io.Writer, keys []string) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	var buf [binary.MaxVarintLen64]byte
	prev := ""
	for _, key := range keys {
		shared := commonPrefix(prev, key)
		n := binary.PutUvarint(buf[:], uint64(shared))
		n += binary.PutUvarint(buf[n:], uint64(len(key)-shared))
		if _, err := bw.Write(buf[:n]); err != nil {
			return err
		}
		if _, err := bw.WriteString(key[shared:]); err != nil {
			return err
		}
		prev = key
	}
	return bw.Flush()
}

func readIndex(r io.Reader) (Header, []string, error) {
	var hdr Header

	// msgpack reads straight from a ByteScanner, so the header decoder and the
	// zstd body share this buffer without losing bytes.
	br := bufio.NewReader(r)
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil || string(magic) != Magic {
		return hdr, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if err := msgpack.NewDecoder(br).Decode(&hdr); err != nil {
		return hdr, nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if hdr.Version != Version {
		return hdr, nil, fmt.Errorf("%w: %d", ErrVersion, hdr.Version)
	}
	if hdr.Count < 0 {
		return hdr, nil, fmt.Errorf("%w: negative key count", ErrCorrupt)
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		return hdr, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	keys, err := decodeKeys(bufio.NewReaderSize(zr, 64*1024), hdr.Count)
	if err != nil {
		return hdr, nil, err
	}
	return hdr, keys, nil
}

func decodeKeys(r *bufio.Reader, count int) ([]string, error) {
	keys := make([]string, 0, min(count, 1<<16))
	prev := ""
	for i := 0; i < count; i++ {
		shared, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %v", ErrCorrupt, i, err)
		}
		size, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %v", ErrCorrupt, i, err)
		}
		if shared > uint64(len(prev)) || size == 0 || size > 1<<20 {
			return nil, fmt.Errorf("%w: key %d: bad lengths", ErrCorrupt, i)
		}
		suffix := make([]byte, size)
		if _, err := io.ReadFull(r, suffix); err != nil {
			return nil, fmt.Errorf("%w: key %d: %v", ErrCorrupt, i, err)
		}
		key := prev[:shared] + string(suffix)
		if i > 0 && key <= prev {
			return nil, fmt.Errorf("%w: keys out of order at %d", ErrCorrupt, i)
		}
		keys = append(keys, key)
		prev = key
	}

	if _, err := r.ReadByte(); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data after %d keys", ErrCorrupt, count)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return keys, nil
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
