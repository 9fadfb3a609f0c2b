package formula

import "regexp"

// States recognised in a formula suffix: aqueous, gas, liquid, solid.
const (
	StateAqueous = "aq"
	StateGas     = "g"
	StateLiquid  = "l"
	StateSolid   = "s"
)

var stateRe = regexp.MustCompile(`\(([aglsq]+)`)

// SplitState splits "NaCl(aq)" into ("NaCl", "aq"). A formula without a state
// suffix is returned unchanged with an empty state.
func SplitState(f string) (base, state string) {
	loc := stateRe.FindStringSubmatchIndex(f)
	if loc == nil {
		return f, ""
	}
	return f[:loc[0]], f[loc[2]:loc[3]]
}

// SeparateState returns f without its state suffix.
func SeparateState(f string) string {
	base, _ := SplitState(f)
	return base
}

// HasState reports whether f carries a state suffix.
func HasState(f string) bool {
	return stateRe.MatchString(f)
}

// WithState appends "(state)" to base. An empty state returns base.
func WithState(base, state string) string {
	if state == "" {
		return base
	}
	return base + "(" + state + ")"
}
