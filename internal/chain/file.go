package chain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"trueAnalytics/internal/model"
)

// FileSource replays recorded Sidecar block responses, one JSON document per
// line. It serves as both the head source and the block querier.
type FileSource struct {
	refs   []model.BlockRef
	blocks map[string]model.Block
}

// LoadFile reads every block in path. Lines that fail to parse are reported
// to onError and skipped.
func LoadFile(path string, fields FieldNames, onError func(line int, err error)) (*FileSource, error) {
	if fields == nil {
		fields = DefaultEventFields()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	src := &FileSource{blocks: make(map[string]model.Block)}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		block, err := parseBlockLine(line, fields)
		if err != nil {
			if onError != nil {
				onError(lineNo, err)
			}
			continue
		}
		src.refs = append(src.refs, model.BlockRef{Number: block.Number, Hash: block.Hash})
		src.blocks[block.Hash] = block
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return src, nil
}

func parseBlockLine(line []byte, fields FieldNames) (model.Block, error) {
	var raw sidecarBlock
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return model.Block{}, fmt.Errorf("decode block: %w", err)
	}
	if raw.Hash == "" {
		return model.Block{}, fmt.Errorf("block without hash")
	}
	return raw.toBlock(fields)
}

// Len returns the number of blocks loaded.
func (f *FileSource) Len() int {
	return len(f.refs)
}

// Heads delivers every loaded block in file order, then closes.
func (f *FileSource) Heads(ctx context.Context) (<-chan model.BlockRef, <-chan error) {
	refs := make(chan model.BlockRef)
	errs := make(chan error)
	go func() {
		defer close(refs)
		for _, ref := range f.refs {
			select {
			case refs <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()
	return refs, errs
}

func (f *FileSource) Block(_ context.Context, ref model.BlockRef) (model.Block, error) {
	block, ok := f.blocks[ref.Hash]
	if !ok {
		return model.Block{}, fmt.Errorf("block %s not in input", ref.Hash)
	}
	return block, nil
}
