package types

import (
	"encoding/json"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Position is a 0-indexed (line, column) pair. Columns count bytes, as tree-sitter and
// LSP servers configured for UTF-8 do.
type Position struct {
	Line   int
	Column int
}

// MarshalJSON encodes the position as [line, col]
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Line, p.Column})
}

// UnmarshalJSON decodes a [line, col] pair
func (p *Position) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("position must have 2 elements, got %d", len(pair))
	}
	p.Line, p.Column = pair[0], pair[1]
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// CallCandidate is the call chosen as the focal call of a test
type CallCandidate struct {
	Name     string
	Position Position
}

// TestFunction is a unit test found by a discoverer.
// Node is owned by the tree the test was discovered in and is only valid while that tree is open.
type TestFunction struct {
	Name       string
	Node       *tree_sitter.Node
	DeclaredAt Position
	// Fuzz marks fuzz targets, which use a looser locator fallback.
	Fuzz bool
}

// DefinitionLocation is the resolved target of a focal call
type DefinitionLocation struct {
	FilePath string
	Start    Position
	End      Position
}

func (d DefinitionLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", d.FilePath, d.Start.Line, d.Start.Column)
}

// Source is the extracted text of a declaration with its docstring and stable id
type Source struct {
	Code string
	Doc  *string
	ID   string
}

// SourcePair joins a test with its focal function
type SourcePair struct {
	TestID      string
	TestSource  string
	FocalID     *string
	FocalSource *string
	Docstring   *string
}

// FocalRecord is one line of the focal JSONL output
type FocalRecord struct {
	TestID   string    `json:"test_id"`
	TestLoc  Position  `json:"test_loc"`
	Test     string    `json:"test"`
	FocalID  *string   `json:"focal_id"`
	FocalLoc *Position `json:"focal_loc"`
}

// DatasetRecord is one line of the final dataset JSONL output
type DatasetRecord struct {
	TestID    string  `json:"test_id"`
	Test      string  `json:"test"`
	CodeID    string  `json:"code_id"`
	Code      string  `json:"code"`
	Docstring *string `json:"docstring"`
}

// Pair converts the record into a SourcePair
func (r DatasetRecord) Pair() SourcePair {
	codeID, code := r.CodeID, r.Code
	return SourcePair{
		TestID:      r.TestID,
		TestSource:  r.Test,
		FocalID:     &codeID,
		FocalSource: &code,
		Docstring:   r.Docstring,
	}
}
