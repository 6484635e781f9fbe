package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SectionKind tags the payload a Section carries
type SectionKind string

const (
	SectionKindText   SectionKind = "text"
	SectionKindList   SectionKind = "list"
	SectionKindTable  SectionKind = "table"
	SectionKindNested SectionKind = "nested"
)

// Content is the generated document tree stored on a packet
type Content struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is a tagged union: exactly the fields belonging to Kind are set.
//
//	text   -> Text
//	list   -> Items
//	table  -> Columns, Rows
//	nested -> Children
type Section struct {
	Key      string      `json:"key,omitempty"`
	Title    string      `json:"title,omitempty"`
	Kind     SectionKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Items    []string    `json:"items,omitempty"`
	Columns  []string    `json:"columns,omitempty"`
	Rows     [][]string  `json:"rows,omitempty"`
	Children []Section   `json:"children,omitempty"`
}

func TextSection(key, title, text string) Section {
	return Section{Key: key, Title: title, Kind: SectionKindText, Text: text}
}

func ListSection(key, title string, items ...string) Section {
	return Section{Key: key, Title: title, Kind: SectionKindList, Items: items}
}

func TableSection(key, title string, columns []string, rows [][]string) Section {
	return Section{Key: key, Title: title, Kind: SectionKindTable, Columns: columns, Rows: rows}
}

func NestedSection(key, title string, children ...Section) Section {
	return Section{Key: key, Title: title, Kind: SectionKindNested, Children: children}
}

// Validate checks that every section only carries the payload of its kind
func (c *Content) Validate() error {
	if c == nil {
		return fmt.Errorf("content is nil")
	}
	for i := range c.Sections {
		if err := c.Sections[i].validate(fmt.Sprintf("sections[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Section) validate(path string) error {
	hasText := s.Text != ""
	hasItems := len(s.Items) > 0
	hasTable := len(s.Columns) > 0 || len(s.Rows) > 0
	hasChildren := len(s.Children) > 0

	switch s.Kind {
	case SectionKindText:
		if hasItems || hasTable || hasChildren {
			return fmt.Errorf("%s: text section carries non-text payload", path)
		}
	case SectionKindList:
		if hasText || hasTable || hasChildren {
			return fmt.Errorf("%s: list section carries non-list payload", path)
		}
	case SectionKindTable:
		if hasText || hasItems || hasChildren {
			return fmt.Errorf("%s: table section carries non-table payload", path)
		}
		if len(s.Columns) == 0 {
			return fmt.Errorf("%s: table section has no columns", path)
		}
		for r, row := range s.Rows {
			if len(row) != len(s.Columns) {
				return fmt.Errorf("%s: row %d has %d cells, want %d", path, r, len(row), len(s.Columns))
			}
		}
	case SectionKindNested:
		if hasText || hasItems || hasTable {
			return fmt.Errorf("%s: nested section carries leaf payload", path)
		}
		for i := range s.Children {
			if err := s.Children[i].validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unknown section kind %q", path, s.Kind)
	}
	return nil
}

// FindSection returns the first section, depth first, with the given title
func (c *Content) FindSection(title string) (*Section, bool) {
	if c == nil {
		return nil, false
	}
	return findSection(c.Sections, func(s *Section) bool { return s.Title == title })
}

// FindSectionByKey returns the first section, depth first, with the given key
func (c *Content) FindSectionByKey(key string) (*Section, bool) {
	if c == nil {
		return nil, false
	}
	return findSection(c.Sections, func(s *Section) bool { return s.Key == key })
}

func findSection(sections []Section, match func(*Section) bool) (*Section, bool) {
	for i := range sections {
		if match(&sections[i]) {
			return &sections[i], true
		}
		if found, ok := findSection(sections[i].Children, match); ok {
			return found, true
		}
	}
	return nil, false
}

// AddSection appends a section, replacing an existing top-level section with the same key
func (c *Content) AddSection(s Section) {
	if s.Key != "" {
		for i := range c.Sections {
			if c.Sections[i].Key == s.Key {
				c.Sections[i] = s
				return
			}
		}
	}
	c.Sections = append(c.Sections, s)
}

// Clone returns a deep copy
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := &Content{Title: c.Title, Sections: cloneSections(c.Sections)}
	return out
}

func cloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s
		if s.Items != nil {
			out[i].Items = append([]string(nil), s.Items...)
		}
		if s.Columns != nil {
			out[i].Columns = append([]string(nil), s.Columns...)
		}
		if s.Rows != nil {
			out[i].Rows = make([][]string, len(s.Rows))
			for r, row := range s.Rows {
				out[i].Rows[r] = append([]string(nil), row...)
			}
		}
		out[i].Children = cloneSections(s.Children)
	}
	return out
}

// Value implements driver.Valuer so content can be written to a JSONB column
func (c *Content) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner for JSONB content columns
func (c *Content) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported content column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, c)
}
