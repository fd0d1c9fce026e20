package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"sentinel-be/internal/entity"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// maxLineSize bounds one JSONL record.
const maxLineSize = 1 << 20

// LoadJSONL reads the corpus at path. File order is kept; it is the
// chronological order runs consume cases in.
func LoadJSONL(path string) ([]entity.RawCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode validates every non-blank line into a case. The first bad line
// fails the whole load, naming its line number.
func Decode(r io.Reader) ([]entity.RawCase, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var cases []entity.RawCase
	seen := make(map[string]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c entity.RawCase
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if prev, dup := seen[c.CaseId]; dup {
			return nil, fmt.Errorf("line %d: duplicate case_id %q (first on line %d)", lineNo, c.CaseId, prev)
		}
		seen[c.CaseId] = lineNo
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return cases, nil
}
