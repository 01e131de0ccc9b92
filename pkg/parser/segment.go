package parser

// Segment splits lines into blocks closed by any of the terminator tokens.
//
// The first block starts at offset. Every later block starts after its
// predecessor's terminator, skipping one separator line when that line is
// blank. Lines after the final terminator never form a block, and an input
// without terminators yields no blocks.
func Segment(lines []string, offset int, terminators ...string) []Block {
	if offset < 0 {
		offset = 0
	}

	var blocks []Block
	start := offset
	for i := offset; i < len(lines); i++ {
		if !isTerminator(trim(lines[i]), terminators) {
			continue
		}

		from := start
		if len(blocks) > 0 && from < i && trim(lines[from]) == "" {
			from++
		}

		block := make([]string, i-from)
		copy(block, lines[from:i])
		blocks = append(blocks, Block{Start: from, Lines: block})
		start = i + 1
	}
	return blocks
}

func isTerminator(line string, terminators []string) bool {
	for _, t := range terminators {
		if line == t {
			return true
		}
	}
	return false
}
