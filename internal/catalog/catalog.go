package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-yaml"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidYear     = errors.New("year outside category range")
)

// Role says what a positional column means in the domain schema.
type Role string

const (
	RoleKey      Role = "key"
	RoleQuantity Role = "quantity"
	RoleValue    Role = "value"
)

// GroupTarget names the record field that receives a row's hierarchy group.
type GroupTarget string

const (
	GroupToTipo           GroupTarget = "tipo"
	GroupToCaracteristica GroupTarget = "caracteristica"
	GroupToNone           GroupTarget = "none"
)

// Column is one positional column of a category's domain schema.
type Column struct {
	Name string `yaml:"name" json:"name"`
	Role Role   `yaml:"role" json:"role"`
}

// Variant is a report sub-type reached through a sub-option code.
type Variant struct {
	Name      string `yaml:"name" json:"name"`
	SubOption string `yaml:"sub_option" json:"sub_option"`
}

// YearRange is an inclusive range of report years.
type YearRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Category describes one report of the site.
type Category struct {
	Name       string      `yaml:"name" json:"name"`
	Title      string      `yaml:"title" json:"title"`
	Option     string      `yaml:"option" json:"option"`
	GroupLabel GroupTarget `yaml:"group_label" json:"group_label"`
	Years      YearRange   `yaml:"years" json:"years"`
	Columns    []Column    `yaml:"columns" json:"columns"`
	Variants   []Variant   `yaml:"variants" json:"variants,omitempty"`
}

// Catalog is the validated set of categories.
type Catalog struct {
	Categories []Category `yaml:"categories"`

	byName map[string]*Category
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalWithOptions(data, &c, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, errors.New("catalog has no categories")
	}

	c.byName = make(map[string]*Category, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.GroupLabel == "" {
			cat.GroupLabel = GroupToNone
		}
		if err := cat.validate(); err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		if _, dup := c.byName[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		c.byName[cat.Name] = cat
	}
	return &c, nil
}

// Default returns the embedded catalog of the vitibrasil site.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Get looks a category up by name.
func (c *Catalog) Get(name string) (*Category, error) {
	cat, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return cat, nil
}

// Names returns the category names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

func (cat *Category) validate() error {
	if cat.Name == "" || cat.Option == "" {
		return errors.New("name and option are required")
	}
	switch cat.GroupLabel {
	case GroupToTipo, GroupToCaracteristica, GroupToNone:
	default:
		return fmt.Errorf("invalid group_label %q", cat.GroupLabel)
	}
	if cat.Years.From <= 0 || cat.Years.From > cat.Years.To || cat.Years.To > 9999 {
		return fmt.Errorf("invalid year range %d-%d", cat.Years.From, cat.Years.To)
	}
	if len(cat.Columns) < 2 || cat.Columns[0].Role != RoleKey {
		return errors.New("columns must start with the key column and include a measure")
	}

	seen := map[Role]bool{}
	names := map[string]bool{}
	for _, col := range cat.Columns {
		switch col.Role {
		case RoleKey, RoleQuantity, RoleValue:
		default:
			return fmt.Errorf("column %q: invalid role %q", col.Name, col.Role)
		}
		if seen[col.Role] {
			return fmt.Errorf("role %q used twice", col.Role)
		}
		if names[col.Name] {
			return fmt.Errorf("column %q declared twice", col.Name)
		}
		seen[col.Role] = true
		names[col.Name] = true
	}

	variants := map[string]bool{}
	for _, v := range cat.Variants {
		if v.Name == "" || v.SubOption == "" {
			return errors.New("variants need name and sub_option")
		}
		if variants[v.Name] {
			return fmt.Errorf("variant %q declared twice", v.Name)
		}
		variants[v.Name] = true
	}
	return nil
}

// KeyColumn is the domain name of the entity column.
func (cat *Category) KeyColumn() string {
	return cat.Columns[0].Name
}

// ColumnFor returns the domain column with role, if the category has one.
func (cat *Category) ColumnFor(role Role) (string, bool) {
	for _, col := range cat.Columns {
		if col.Role == role {
			return col.Name, true
		}
	}
	return "", false
}

// NumericColumns lists the measure columns in schema order.
func (cat *Category) NumericColumns() []string {
	var out []string
	for _, col := range cat.Columns[1:] {
		out = append(out, col.Name)
	}
	return out
}

// HasCharacteristic reports whether records carry a caracteristica field.
func (cat *Category) HasCharacteristic() bool {
	return cat.GroupLabel == GroupToCaracteristica
}

// Schema is the ordered list of output field names.
func (cat *Category) Schema() []string {
	schema := make([]string, 0, len(cat.Columns)+3)
	for _, col := range cat.Columns {
		schema = append(schema, col.Name)
	}
	schema = append(schema, "tipo")
	if cat.HasCharacteristic() {
		schema = append(schema, "caracteristica")
	}
	return append(schema, "ano")
}

// SweepVariants returns the variants to fetch. Categories without
// sub-options are fetched once with an unnamed variant.
func (cat *Category) SweepVariants() []Variant {
	if len(cat.Variants) == 0 {
		return []Variant{{}}
	}
	return cat.Variants
}

// ValidateYears checks every year against the category range and returns
// them sorted and de-duplicated.
func (cat *Category) ValidateYears(years []int) ([]int, error) {
	seen := make(map[int]bool, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if y < cat.Years.From || y > cat.Years.To {
			return nil, fmt.Errorf("%w: %d not in %d-%d", ErrInvalidYear, y, cat.Years.From, cat.Years.To)
		}
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out, nil
}

// AllYears returns the full year range.
func (cat *Category) AllYears() []int {
	years := make([]int, 0, cat.Years.To-cat.Years.From+1)
	for y := cat.Years.From; y <= cat.Years.To; y++ {
		years = append(years, y)
	}
	return years
}

// LatestYear is the most recent year the category publishes.
func (cat *Category) LatestYear() int {
	return cat.Years.To
}
