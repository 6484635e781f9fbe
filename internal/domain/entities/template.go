package entities

import (
	"fmt"
	"time"
)

// BlockKind identifies what a template block renders into
type BlockKind string

const (
	BlockKindText  BlockKind = "text"
	BlockKindList  BlockKind = "list"
	BlockKindTable BlockKind = "table"
)

// ConditionOp is the predicate applied by a conditional block
type ConditionOp string

const (
	ConditionEquals    ConditionOp = "equals"
	ConditionNotEquals ConditionOp = "not_equals"
	ConditionTruthy    ConditionOp = "truthy"
	ConditionFalsy     ConditionOp = "falsy"
	ConditionContains  ConditionOp = "contains"
)

// Template is the structural definition used to render a packet
type Template struct {
	ID             string            `json:"id" yaml:"id" db:"id"`
	Name           string            `json:"name" yaml:"name" db:"name"`
	DocumentType   DocumentType      `json:"document_type" yaml:"document_type" db:"document_type"`
	Classification Classification    `json:"classification,omitempty" yaml:"classification,omitempty" db:"classification"`
	Version        int               `json:"version" yaml:"version" db:"version"`
	Title          string            `json:"title" yaml:"title"`
	Sections       []TemplateSection `json:"sections" yaml:"sections"`
	CreatedAt      time.Time         `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" yaml:"-" db:"updated_at"`
}

// TemplateSection is an ordered group of blocks
type TemplateSection struct {
	Key       string     `json:"key" yaml:"key"`
	Title     string     `json:"title" yaml:"title"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Blocks    []Block    `json:"blocks" yaml:"blocks"`
}

// Block is a literal text, list or table definition with placeholders
type Block struct {
	Kind      BlockKind  `json:"kind" yaml:"kind"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Text      string     `json:"text,omitempty" yaml:"text,omitempty"`
	Items     []string   `json:"items,omitempty" yaml:"items,omitempty"`
	Columns   []string   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows      [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Condition guards a block or section with a test over a context path
type Condition struct {
	Path  string      `json:"path" yaml:"path"`
	Op    ConditionOp `json:"op" yaml:"op"`
	Value interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// Validate checks the template is renderable
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("template is nil")
	}
	if !t.DocumentType.Valid() {
		return fmt.Errorf("template %q: unknown document type %q", t.Name, t.DocumentType)
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template %q: no sections", t.Name)
	}
	for i, s := range t.Sections {
		if err := s.Condition.validate(); err != nil {
			return fmt.Errorf("template %q section %d: %w", t.Name, i, err)
		}
		for j, b := range s.Blocks {
			switch b.Kind {
			case BlockKindText, BlockKindList:
			case BlockKindTable:
				if len(b.Columns) == 0 {
					return fmt.Errorf("template %q section %d block %d: table without columns", t.Name, i, j)
				}
				for _, row := range b.Rows {
					if len(row) != len(b.Columns) {
						return fmt.Errorf("template %q section %d block %d: row width %d, want %d", t.Name, i, j, len(row), len(b.Columns))
					}
				}
			default:
				return fmt.Errorf("template %q section %d block %d: unknown kind %q", t.Name, i, j, b.Kind)
			}
			if err := b.Condition.validate(); err != nil {
				return fmt.Errorf("template %q section %d block %d: %w", t.Name, i, j, err)
			}
		}
	}
	return nil
}

func (c *Condition) validate() error {
	if c == nil {
		return nil
	}
	if c.Path == "" {
		return fmt.Errorf("condition without path")
	}
	switch c.Op {
	case ConditionEquals, ConditionNotEquals, ConditionTruthy, ConditionFalsy, ConditionContains:
		return nil
	case "":
		return fmt.Errorf("condition on %q without op", c.Path)
	default:
		return fmt.Errorf("condition on %q: unknown op %q", c.Path, c.Op)
	}
}
