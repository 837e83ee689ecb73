package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/scraper"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/gin-gonic/gin"
)

// queryArray returns every value of a repeated parameter, also splitting
// comma-separated lists.
func queryArray(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// queryYears parses ano against the category range. It writes a 400 and
// returns false on bad input.
func queryYears(c *gin.Context, cat *catalog.Category) ([]int, bool) {
	raw := queryArray(c, "ano")
	if len(raw) == 0 {
		return nil, true
	}
	years := make([]int, 0, len(raw))
	for _, s := range raw {
		y, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid ano %q", s)})
			return nil, false
		}
		years = append(years, y)
	}
	years, err := cat.ValidateYears(years)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return years, true
}

// queryFilter parses the label and range filters.
func queryFilter(c *gin.Context) (sweep.Filter, bool) {
	f := sweep.Filter{
		Entities: queryArray(c, "chave"),
		Tipos:    queryArray(c, "tipo"),
	}
	bounds := []struct {
		key string
		dst **float64
	}{
		{"quantidadeMinima", &f.MinQuantity},
		{"quantidadeMaxima", &f.MaxQuantity},
		{"valorMinimo", &f.MinValue},
		{"valorMaximo", &f.MaxValue},
	}
	for _, b := range bounds {
		raw := c.Query(b.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s %q", b.key, raw)})
			return f, false
		}
		*b.dst = &v
	}
	if err := f.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return f, false
	}
	return f.Normalize(), true
}

// decodeRecord builds a record from a JSON object keyed by the category's
// field names.
func decodeRecord(cat *catalog.Category, body map[string]any) (sweep.Record, error) {
	r := sweep.Record{Category: cat.Name}

	key, ok := body[cat.KeyColumn()].(string)
	if !ok || strings.TrimSpace(key) == "" {
		return r, fmt.Errorf("%s is required", cat.KeyColumn())
	}
	r.Entity = scraper.NormalizeEntity(key)

	for _, col := range cat.Columns[1:] {
		raw, present := body[col.Name]
		if !present || raw == nil {
			continue
		}
		v, ok := raw.(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return r, fmt.Errorf("%s must be a number", col.Name)
		}
		switch col.Role {
		case catalog.RoleQuantity:
			r.Quantity = &v
		case catalog.RoleValue:
			r.Value = &v
		}
	}

	var err error
	if r.Tipo, err = optionalLabel(body, "tipo"); err != nil {
		return r, err
	}
	if cat.HasCharacteristic() {
		if r.Caracteristica, err = optionalLabel(body, "caracteristica"); err != nil {
			return r, err
		}
	}

	var year int
	switch v := body["ano"].(type) {
	case float64:
		year = int(v)
		if float64(year) != v {
			return r, fmt.Errorf("ano must be an integer")
		}
	case string:
		if year, err = strconv.Atoi(v); err != nil {
			return r, fmt.Errorf("invalid ano %q", v)
		}
	default:
		return r, fmt.Errorf("ano is required")
	}
	if _, err := cat.ValidateYears([]int{year}); err != nil {
		return r, err
	}
	r.Year = fmt.Sprintf("%04d", year)
	return r, nil
}

func optionalLabel(body map[string]any, field string) (*string, error) {
	raw, present := body[field]
	if !present || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", field)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}
