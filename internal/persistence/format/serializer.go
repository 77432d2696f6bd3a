package format

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// DefaultStrategies is the fallback chain, most faithful first.
func DefaultStrategies() []Strategy {
	return []Strategy{LibraryStrategy{}, HandRolledStrategy{}, RawStrategy{}}
}

type Serializer struct {
	strategies []Strategy
	logger     *log.Logger
}

type WriteResult struct {
	Path     string
	Strategy string
	Size     int64
	// Failures holds a *StrategyError for every strategy tried before the
	// one that succeeded.
	Failures []error
}

// NewSerializer uses DefaultStrategies when none are given.
func NewSerializer(logger *log.Logger, strategies ...Strategy) *Serializer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Serializer{strategies: strategies, logger: logger}
}

// Write tries each strategy supporting f in order. A strategy's output is
// written to path+".tmp", verified, and only then renamed over path, so
// path never holds unverified bytes.
func (s *Serializer) Write(path string, f Format, doc *Document) (WriteResult, error) {
	res := WriteResult{Path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return res, err
	}
	tmp := path + ".tmp"

	for _, st := range s.strategies {
		if !st.Supports(f) {
			continue
		}
		size, err := s.attempt(st, tmp, path, f, doc)
		if err != nil {
			_ = os.Remove(tmp)
			s.logger.Printf("format=%s strategy=%s failed: %v", f, st.Name(), err)
			res.Failures = append(res.Failures, err)
			continue
		}
		res.Strategy = st.Name()
		res.Size = size
		s.logger.Printf("format=%s strategy=%s wrote %s (%s)", f, st.Name(), path, humanize.Bytes(uint64(size)))
		return res, nil
	}
	if len(res.Failures) == 0 {
		return res, fmt.Errorf("%w: no strategy supports %s", ErrAllStrategiesFailed, f)
	}
	return res, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(res.Failures...))
}

// attempt runs one strategy. A panicking encoder counts as an encode failure
// so the chain moves on to the next strategy.
func (s *Serializer) attempt(st Strategy, tmp, path string, f Format, doc *Document) (size int64, err error) {
	fail := func(stage string, err error) (int64, error) {
		return 0, &StrategyError{Strategy: st.Name(), Stage: stage, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			size, err = fail("encode", fmt.Errorf("panic: %v", r))
		}
	}()
	if err := encodeToFile(st, tmp, f, doc); err != nil {
		return fail("encode", err)
	}
	size, err = Verify(tmp, f)
	if err != nil {
		return fail("verify", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fail("commit", err)
	}
	return size, nil
}

func encodeToFile(st Strategy, path string, f Format, doc *Document) (err error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if err := st.Encode(out, f, doc); err != nil {
		return err
	}
	return out.Sync()
}

// Verify reopens an artifact and checks it is non-empty and well formed for
// its container: gzip formats must decompress fully, FlatJSON must parse.
func Verify(path string, f Format) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.Size() == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrVerification, path)
	}
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	br := bufio.NewReader(in)

	if f.Gzipped() {
		head, err := br.Peek(2)
		if err != nil || !bytes.Equal(head, gzipMagic) {
			return 0, fmt.Errorf("%w: %s missing gzip header", ErrVerification, path)
		}
		zr, err := gzip.NewReader(br)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrVerification, err)
		}
		defer zr.Close()
		n, err := io.Copy(io.Discard, zr)
		if err != nil {
			return 0, fmt.Errorf("%w: decompress: %v", ErrVerification, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("%w: %s decompresses to nothing", ErrVerification, path)
		}
		return fi.Size(), nil
	}

	raw, err := io.ReadAll(br)
	if err != nil {
		return 0, err
	}
	if !json.Valid(raw) {
		return 0, fmt.Errorf("%w: %s is not valid json", ErrVerification, path)
	}
	return fi.Size(), nil
}
