package chain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSourceReplaysBlocks(t *testing.T) {
	second := strings.ReplaceAll(strings.ReplaceAll(sampleBlock, `"100"`, `"101"`), "0xblock", "0xnext")
	input := strings.Join([]string{
		strings.ReplaceAll(sampleBlock, "\n", " "),
		"not json",
		"",
		strings.ReplaceAll(second, "\n", " "),
	}, "\n")

	path := filepath.Join(t.TempDir(), "blocks.jsonl")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	var badLines []int
	src, err := LoadFile(path, nil, func(line int, err error) { badLines = append(badLines, line) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("expected 2 blocks, got %d", src.Len())
	}
	if len(badLines) != 1 || badLines[0] != 2 {
		t.Fatalf("unexpected bad lines %v", badLines)
	}

	ctx := context.Background()
	refs, _ := src.Heads(ctx)
	var numbers []uint64
	for ref := range refs {
		block, err := src.Block(ctx, ref)
		if err != nil {
			t.Fatalf("block %s: %v", ref.Hash, err)
		}
		numbers = append(numbers, block.Number)
	}
	if len(numbers) != 2 || numbers[0] != 100 || numbers[1] != 101 {
		t.Fatalf("unexpected replay order %v", numbers)
	}
}
