package testutil

import (
	"testing"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
)

// ThermoRows is a small thermodynamic table (G in J/mol) covering the
// aluminium/oxygen, methane reforming and sodium chloride systems.
func ThermoRows() []thermo.Species {
	return []thermo.Species{
		{Formula: "Al(s)", G: 0, Mass: 26.98, Name: "aluminium"},
		{Formula: "Al(g)", G: 289400, Mass: 26.98},
		{Formula: "O2(g)", G: 0, Mass: 32.00, Name: "oxygen"},
		{Formula: "O(g)", G: 231700, Mass: 16.00, Name: "atomic oxygen"},
		{Formula: "O3(g)", G: 163200, Mass: 48.00, Name: "ozone"},
		{Formula: "Al2O3(s)", G: -1582300, Mass: 101.96, Name: "aluminium oxide", Abbrv: "alumina"},
		{Formula: "AlO(g)", G: 65300, Mass: 42.98},
		{Formula: "Al2O(g)", G: -159000, Mass: 69.96},
		{Formula: "H2(g)", G: 0, Mass: 2.016, Name: "hydrogen"},
		{Formula: "H2O(l)", G: -237100, Mass: 18.015, Name: "water"},
		{Formula: "H2O(g)", G: -228600, Mass: 18.015, Name: "steam"},
		{Formula: "H2O2(l)", G: -120400, Mass: 34.015, Name: "hydrogen peroxide"},
		{Formula: "C(s)", G: 0, Mass: 12.011, Name: "graphite"},
		{Formula: "CO(g)", G: -137200, Mass: 28.01, Name: "carbon monoxide"},
		{Formula: "CO2(g)", G: -394400, Mass: 44.01, Name: "carbon dioxide"},
		{Formula: "CH4(g)", G: -50500, Mass: 16.04, Name: "methane"},
		{Formula: "C2H5OH(l)", G: -174800, Mass: 46.07, Name: "ethanol", Abbrv: "EtOH"},
		{Formula: "CH3OCH3(g)", G: -112600, Mass: 46.07, Name: "dimethyl ether", Abbrv: "DME"},
		{Formula: "Na(s)", G: 0, Mass: 22.99, Name: "sodium"},
		{Formula: "Cl2(g)", G: 0, Mass: 70.90, Name: "chlorine"},
		{Formula: "NaCl(s)", G: -384100, Mass: 58.44, Name: "sodium chloride", Abbrv: "salt"},
		{Formula: "NaCl(aq)", G: -393100, Mass: 58.44},
		{Formula: "NaOH(s)", G: -379500, Mass: 40.00, Name: "sodium hydroxide"},
		{Formula: "Na+(aq)", G: -261900, Mass: 22.99},
		{Formula: "Cl-(aq)", G: -131200, Mass: 35.45},
	}
}

// ThermoTable builds the fixture thermodynamic table.
func ThermoTable(t testing.TB) *thermo.Table {
	t.Helper()
	tbl, err := thermo.NewTable(ThermoRows())
	if err != nil {
		t.Fatalf("thermo fixture: %v", err)
	}
	return tbl
}

// StoichEntries derives composition entries from ThermoRows, in the same order.
func StoichEntries() []stoich.Entry {
	rows := ThermoRows()
	out := make([]stoich.Entry, len(rows))
	for i, r := range rows {
		out[i] = stoich.Entry{Formula: r.Formula, Composition: formula.MustParse(r.Formula)}
	}
	return out
}

// StoichTable builds the fixture composition table.
func StoichTable(t testing.TB) *stoich.Table {
	t.Helper()
	tbl, err := stoich.NewTable(StoichEntries())
	if err != nil {
		t.Fatalf("stoich fixture: %v", err)
	}
	return tbl
}

// Tables returns both fixture tables and a Filter over them.
func Tables(t testing.TB) (*thermo.Table, *stoich.Table, *stoich.Filter) {
	t.Helper()
	th := ThermoTable(t)
	st := StoichTable(t)
	return th, st, stoich.NewFilter(st, th)
}
