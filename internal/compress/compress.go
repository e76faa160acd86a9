// Package compress wraps zstd encode/decode behind pooled encoders and
// decoders, grounded on the teacher's internal/safe compressionManager, for
// the session store's checkpoint blobs.
package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Options configures the Manager. Checkpoint blobs are small (serialized
// commit-stack snapshots), so unlike the teacher's file-oriented version
// there is no streaming threshold or extension skip-list — only a minimum
// size below which compression isn't worth the framing overhead.
type Options struct {
	MinSize int
	Level   int
}

func DefaultOptions() Options {
	return Options{MinSize: 256, Level: 2}
}

const zstdMagic = "\x28\xB5\x2F\xFD"

// Manager holds pooled zstd encoders/decoders so repeated checkpoint saves
// don't pay encoder-setup cost each time.
type Manager struct {
	opts     Options
	encoders sync.Pool
	decoders sync.Pool
}

func NewManager(opts Options) (*Manager, error) {
	level := zstd.EncoderLevelFromZstd(opts.Level)
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating test encoder: %w", err)
	}
	enc.Close()

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating test decoder: %w", err)
	}
	dec.Close()

	return &Manager{
		opts: opts,
		encoders: sync.Pool{
			New: func() any {
				e, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
				return e
			},
		},
		decoders: sync.Pool{
			New: func() any {
				d, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				return d
			},
		},
	}, nil
}

// Compress returns content unchanged when it's below MinSize, otherwise
// its zstd-compressed form.
func (m *Manager) Compress(content []byte) []byte {
	if len(content) < m.opts.MinSize {
		return content
	}
	enc := m.encoders.Get().(*zstd.Encoder)
	defer m.encoders.Put(enc)
	return enc.EncodeAll(content, make([]byte, 0, len(content)))
}

// Decompress reverses Compress, detecting the zstd magic header so it
// round-trips content that was left uncompressed.
func (m *Manager) Decompress(content []byte) ([]byte, error) {
	if len(content) < 4 || !bytes.Equal(content[:4], []byte(zstdMagic)) {
		return content, nil
	}
	dec := m.decoders.Get().(*zstd.Decoder)
	defer m.decoders.Put(dec)
	return dec.DecodeAll(content, nil)
}
