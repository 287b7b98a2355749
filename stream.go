package jailconf

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

var (
	// globalCache stores blocks keyed by (source_hash:index).
	// This allows efficient lookup without keeping full documents in
	// memory. Blocks are keyed by index, not name, so duplicate block
	// definitions survive intact.
	globalCache sync.Map

	// globalRegistry tracks source metadata by source hash.
	globalRegistry sync.Map
)

// state tracks parsing state and the block name list for a source.
type state struct {
	once    sync.Once
	names   []string     // block names, in source order
	globals []*Parameter // top-level parameters, in source order
	err     error
}

// Stream provides lazy, cached access to the blocks of a jail.conf
// source. The source is parsed exactly once, on first access, and
// individual blocks are cached by source hash.
type Stream struct {
	reader    io.Reader
	source    string
	sourceKey string
	metadata  *state
}

// NewStream creates a stream from an io.Reader.
// The reader is not consumed until first block access.
func NewStream(r io.Reader) *Stream {
	var s Stream

	s.reader = r
	s.metadata = new(state)

	return &s
}

// NewStreamFromString creates a stream from a source string.
func NewStreamFromString(source string) *Stream {
	// Source key (hash) for caching - using xxhash3 for performance
	hash := xxh3.Hash([]byte(source))
	sourceKey := strconv.FormatUint(hash, 36)

	// Get or create metadata entry
	entry := new(state)
	value, _ := globalRegistry.LoadOrStore(sourceKey, entry)
	metadata := value.(*state)

	return &Stream{
		source:    source,
		sourceKey: sourceKey,
		metadata:  metadata,
	}
}

// ensureParsed ensures the source has been read and parsed.
// This extracts and caches individual blocks on first access.
func (s *Stream) ensureParsed() error {
	s.metadata.once.Do(func() {
		// Read source if from reader
		if s.source == "" && s.reader != nil {
			// Wrap reader with async read-ahead so data is pre-fetched
			// while earlier chunks are still being copied.
			ra := readahead.NewReader(s.reader)
			defer ra.Close()

			data, err := io.ReadAll(ra)
			if err != nil {
				s.metadata.err = ErrReadInput.Wrap(err).
					With(slog.String("source", "reader"))

				return
			}

			s.source = string(data)

			hash := xxh3.Hash(data)
			s.sourceKey = strconv.FormatUint(hash, 36)
		}

		doc, err := ParseString(context.Background(), s.source)
		if err != nil {
			s.metadata.err = err

			return
		}

		// Cache each block individually and track names
		s.metadata.names = make([]string, len(doc.Blocks))
		s.metadata.globals = doc.Globals

		for i, block := range doc.Blocks {
			s.metadata.names[i] = block.Name
			cacheKey := s.sourceKey + ":" + strconv.Itoa(i)
			globalCache.Store(cacheKey, block)
		}
	})

	return s.metadata.err
}

// GetBlock retrieves the first block with the given name.
// Returns an error if parsing fails or the block is not found.
func (s *Stream) GetBlock(name string) (*JailBlock, error) {
	err := s.ensureParsed()
	if err != nil {
		return nil, err
	}

	for i, candidate := range s.metadata.names {
		if candidate != name {
			continue
		}

		cacheKey := s.sourceKey + ":" + strconv.Itoa(i)
		if value, ok := globalCache.Load(cacheKey); ok {
			return value.(*JailBlock), nil
		}
	}

	return nil, ErrBlockNotFound.With(slog.String("name", name))
}

// Blocks returns an iterator over all blocks in the source, in source
// order. If parsing fails, the iterator yields no values.
func (s *Stream) Blocks() iter.Seq[*JailBlock] {
	return func(yield func(*JailBlock) bool) {
		err := s.ensureParsed()
		if err != nil {
			return
		}

		for i := range s.metadata.names {
			cacheKey := s.sourceKey + ":" + strconv.Itoa(i)
			if value, ok := globalCache.Load(cacheKey); ok {
				if !yield(value.(*JailBlock)) {
					return
				}
			}
		}
	}
}

// Document returns the complete parsed document.
// This reconstructs the document from cached blocks. Use sparingly -
// prefer GetBlock or Blocks for efficiency.
func (s *Stream) Document() (*Document, error) {
	err := s.ensureParsed()
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Blocks:  make([]*JailBlock, len(s.metadata.names)),
		Globals: s.metadata.globals,
	}

	for i := range s.metadata.names {
		cacheKey := s.sourceKey + ":" + strconv.Itoa(i)
		if value, ok := globalCache.Load(cacheKey); ok {
			doc.Blocks[i] = value.(*JailBlock)
		}
	}

	return doc, nil
}

// Functional-style interfaces for direct use without creating a Stream
// instance.

// GetBlockFrom retrieves a block by name from an io.Reader.
func GetBlockFrom(r io.Reader, name string) (*JailBlock, error) {
	return NewStream(r).GetBlock(name)
}

// BlocksFrom returns an iterator over all blocks from an io.Reader.
func BlocksFrom(r io.Reader) iter.Seq[*JailBlock] {
	return NewStream(r).Blocks()
}

// ClearCache removes all cached blocks and source metadata.
// This is primarily useful for testing or when memory needs to be
// reclaimed.
func ClearCache() {
	globalCache = sync.Map{}
	globalRegistry = sync.Map{}
}
