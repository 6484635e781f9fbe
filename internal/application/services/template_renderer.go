package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/pkg/utils"
)

// Context roots addressable from placeholders and conditions
const (
	RootClient     = "client"
	RootCalculated = "calculated"
	RootResponses  = "responses"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// TemplateContext is the data a template renders against. It is built per
// generation and never persisted.
type TemplateContext struct {
	Client     map[string]interface{}
	Calculated map[string]interface{}
	Responses  map[string]interface{}
}

// NewTemplateContext assembles the context for a client profile
func NewTemplateContext(profile *entities.ClientProfile) TemplateContext {
	responses := profile.Answers
	if responses == nil {
		responses = map[string]interface{}{}
	}
	return TemplateContext{
		Client:     profile.Fields(),
		Calculated: Calculated(profile),
		Responses:  responses,
	}
}

// Lookup resolves a dotted path such as "calculated.nutrition.bmr".
// Numeric segments index into lists.
func (tc TemplateContext) Lookup(path string) (interface{}, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	if len(segments) < 2 {
		return nil, false
	}

	var current interface{}
	switch segments[0] {
	case RootClient:
		current = tc.Client
	case RootCalculated:
		current = tc.Calculated
	case RootResponses:
		current = tc.Responses
	default:
		return nil, false
	}

	for _, seg := range segments[1:] {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		case []string:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, current != nil
}

// Interpolate replaces every placeholder in s. Missing values render empty.
func (tc TemplateContext) Interpolate(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := tc.Lookup(path)
		if !ok {
			return ""
		}
		return utils.AsString(v)
	})
}

// Evaluate reports whether a guard holds. A nil condition always holds.
func (tc TemplateContext) Evaluate(c *entities.Condition) bool {
	if c == nil {
		return true
	}
	v, _ := tc.Lookup(c.Path)

	switch c.Op {
	case entities.ConditionTruthy:
		return truthy(v)
	case entities.ConditionFalsy:
		return !truthy(v)
	case entities.ConditionEquals:
		return valuesEqual(v, c.Value)
	case entities.ConditionNotEquals:
		return !valuesEqual(v, c.Value)
	case entities.ConditionContains:
		return contains(v, c.Value)
	default:
		return false
	}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "false", "no", "0", "none":
			return false
		}
		return true
	case []interface{}:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	}
	if f, ok := utils.AsFloat(v); ok {
		return f != 0
	}
	return true
}

func valuesEqual(v, want interface{}) bool {
	return strings.EqualFold(strings.TrimSpace(utils.AsString(v)), strings.TrimSpace(utils.AsString(want)))
}

func contains(v, want interface{}) bool {
	needle := utils.AsString(want)
	if items, ok := utils.AsStringSlice(v); ok {
		target := utils.NormalizeToken(needle)
		for _, item := range items {
			if utils.NormalizeToken(item) == target {
				return true
			}
		}
		return false
	}
	return needle != "" && strings.Contains(strings.ToLower(utils.AsString(v)), strings.ToLower(needle))
}

// Render produces a content tree from a template. It is pure: identical
// inputs give deep-equal output. A section with a single block takes that
// block's shape; one with several becomes a nested section.
func Render(tmpl *entities.Template, tc TemplateContext) *entities.Content {
	content := &entities.Content{
		Title:    strings.TrimSpace(tc.Interpolate(tmpl.Title)),
		Sections: []entities.Section{},
	}

	for _, ts := range tmpl.Sections {
		if !tc.Evaluate(ts.Condition) {
			continue
		}

		var children []entities.Section
		for i, block := range ts.Blocks {
			if !tc.Evaluate(block.Condition) {
				continue
			}
			children = append(children, renderBlock(fmt.Sprintf("%s-%d", ts.Key, i+1), block, tc))
		}

		switch len(children) {
		case 0:
			continue
		case 1:
			section := children[0]
			section.Key = ts.Key
			section.Title = tc.Interpolate(ts.Title)
			content.Sections = append(content.Sections, section)
		default:
			content.Sections = append(content.Sections, entities.NestedSection(ts.Key, tc.Interpolate(ts.Title), children...))
		}
	}

	return content
}

func renderBlock(key string, b entities.Block, tc TemplateContext) entities.Section {
	title := tc.Interpolate(b.Title)

	switch b.Kind {
	case entities.BlockKindList:
		items := make([]string, 0, len(b.Items))
		for _, item := range b.Items {
			if rendered := strings.TrimSpace(tc.Interpolate(item)); rendered != "" {
				items = append(items, rendered)
			}
		}
		return entities.ListSection(key, title, items...)
	case entities.BlockKindTable:
		columns := make([]string, len(b.Columns))
		for i, c := range b.Columns {
			columns[i] = tc.Interpolate(c)
		}
		rows := make([][]string, len(b.Rows))
		for r, row := range b.Rows {
			rows[r] = make([]string, len(row))
			for c, cell := range row {
				rows[r][c] = tc.Interpolate(cell)
			}
		}
		return entities.TableSection(key, title, columns, rows)
	default:
		return entities.TextSection(key, title, tc.Interpolate(b.Text))
	}
}
