package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/pkg/errors"
)

const (
	DefaultThermoKey = "thermo.csv"
	DefaultStoichKey = "stoich.csv"
)

// ErrDatasetInvalid reports a malformed or inconsistent dataset.
var ErrDatasetInvalid = errors.New(errors.CodeDatasetInvalid, "dataset is invalid")

// Dataset bundles the loaded tables and the filter built over them.
type Dataset struct {
	Thermo *thermo.Table
	Stoich *stoich.Table
	Filter *stoich.Filter
}

// Load reads both tables from src and checks that every stoich formula is
// present in the thermo table.
func Load(ctx context.Context, src Source, thermoKey, stoichKey string) (*Dataset, error) {
	if thermoKey == "" {
		thermoKey = DefaultThermoKey
	}
	if stoichKey == "" {
		stoichKey = DefaultStoichKey
	}

	rows, err := readObject(ctx, src, thermoKey, ParseThermo)
	if err != nil {
		return nil, err
	}
	th, err := thermo.NewTable(rows)
	if err != nil {
		return nil, err
	}

	entries, err := readObject(ctx, src, stoichKey, ParseStoich)
	if err != nil {
		return nil, err
	}
	st, err := stoich.NewTable(entries)
	if err != nil {
		return nil, err
	}

	if err := Validate(th, st); err != nil {
		return nil, err
	}
	return &Dataset{Thermo: th, Stoich: st, Filter: stoich.NewFilter(st, th)}, nil
}

func readObject[T any](ctx context.Context, src Source, key string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	rc, err := src.Open(ctx, key)
	if err != nil {
		return zero, err
	}
	defer rc.Close()
	v, err := parse(rc)
	if err != nil {
		return zero, errors.Wrap(err, errors.CodeDatasetInvalid, "failed to parse dataset").WithDetail(key)
	}
	return v, nil
}

// Validate fails when a stoich formula has no thermo row.
func Validate(th *thermo.Table, st *stoich.Table) error {
	var missing []string
	for _, e := range st.Entries() {
		if rows, err := th.Lookup(e.Formula); err != nil || len(rows) == 0 {
			missing = append(missing, e.Formula)
		}
	}
	if len(missing) > 0 {
		return ErrDatasetInvalid.WithDetail("stoich formulas missing from thermo: " + strings.Join(missing, ", "))
	}
	return nil
}

// ParseThermo reads rows with header formula,G,mass,name,abbrv. The name and
// abbrv columns are optional.
func ParseThermo(r io.Reader) ([]thermo.Species, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	col := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	fi, gi, mi, ni, ai := col("formula"), col("G"), col("mass"), col("name"), col("abbrv")
	if fi < 0 || gi < 0 || mi < 0 {
		return nil, fmt.Errorf("thermo header must contain formula, G and mass: %v", header)
	}

	rows := make([]thermo.Species, 0, len(records))
	for n, rec := range records {
		line := n + 2
		g, err := strconv.ParseFloat(field(rec, gi), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad G %q", line, field(rec, gi))
		}
		mass, err := strconv.ParseFloat(field(rec, mi), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad mass %q", line, field(rec, mi))
		}
		rows = append(rows, thermo.Species{
			Formula: field(rec, fi),
			G:       g,
			Mass:    mass,
			Name:    field(rec, ni),
			Abbrv:   field(rec, ai),
		})
	}
	return rows, nil
}

// ParseStoich reads rows with header formula followed by atomic numbers, where
// column 0 carries the charge.
func ParseStoich(r io.Reader) ([]stoich.Entry, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "formula") {
		return nil, fmt.Errorf("stoich header must start with formula: %v", header)
	}
	keys := make([]int, len(header)-1)
	for i, h := range header[1:] {
		z, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil || z < formula.ChargeKey || z > formula.MaxAtomicNumber {
			return nil, fmt.Errorf("stoich column %q is not an atomic number", h)
		}
		keys[i] = z
	}

	entries := make([]stoich.Entry, 0, len(records))
	for n, rec := range records {
		comp := make(formula.Composition, len(keys))
		for i, z := range keys {
			raw := field(rec, i+1)
			if raw == "" {
				continue
			}
			v, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad count %q for column %d", n+2, raw, z)
			}
			comp[z] = v
		}
		entries = append(entries, stoich.Entry{Formula: field(rec, 0), Composition: comp})
	}
	return entries, nil
}

func readCSV(r io.Reader) ([][]string, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("empty csv")
	}
	return all[1:], all[0], nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
