package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// predict
// ─────────────────────────────────────────────────────────────────────────────

// PredictionView is the printable form of a prediction.
type PredictionView struct {
	Reactants    []string       `json:"reactants" yaml:"reactants"`
	Equation     string         `json:"equation" yaml:"equation"`
	DeltaG       float64        `json:"delta_g" yaml:"delta_g"`
	Unit         string         `json:"unit" yaml:"unit"`
	Candidates   []string       `json:"candidates" yaml:"candidates"`
	Combinations int            `json:"combinations" yaml:"combinations"`
	Valid        int            `json:"valid" yaml:"valid"`
	Attempts     map[string]int `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

func newPredictionView(reactants []string, p *reaction.Prediction) *PredictionView {
	return &PredictionView{
		Reactants:    reactants,
		Equation:     p.Reaction.String(),
		DeltaG:       p.DeltaG,
		Unit:         string(p.Unit),
		Candidates:   p.Candidates,
		Combinations: p.Combinations,
		Valid:        p.Valid,
		Attempts:     p.Attempts,
	}
}

func (v *PredictionView) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, v.Equation)
	fmt.Fprintf(&b, "ΔG° = %.1f %s\n", v.DeltaG, v.Unit)
	fmt.Fprintf(&b, "candidates: %s\n", strings.Join(v.Candidates, ", "))
	fmt.Fprintf(&b, "combinations tried: %d (%d balanced)", v.Combinations, v.Valid)
	return b.String()
}

func (v *PredictionView) TableHeaders() []string {
	return []string{"Equation", "ΔG°", "Unit", "Combinations", "Balanced"}
}

func (v *PredictionView) TableRows() [][]string {
	return [][]string{{
		v.Equation,
		strconv.FormatFloat(v.DeltaG, 'f', 1, 64),
		v.Unit,
		strconv.Itoa(v.Combinations),
		strconv.Itoa(v.Valid),
	}}
}

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	var (
		maxCandidates int
		maxSize       int
		unit          string
		pdfPath       string
	)
	cmd := &cobra.Command{
		Use:   "predict FORMULA...",
		Short: "Predict the most favourable reaction of the given reactants",
		Example: `  alchemist predict Al O2
  alchemist predict CH4 H2O --unit J -o json
  alchemist predict Na Cl2 --pdf reaction.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			ds, err := cliCtx.Dataset(ctx)
			if err != nil {
				return err
			}
			u, err := reaction.ParseUnit(firstNonEmpty(unit, cliCtx.Config.Predictor.EnergyUnit))
			if err != nil {
				return err
			}
			if maxCandidates <= 0 {
				maxCandidates = cliCtx.Config.Predictor.MaxCandidates
			}
			if maxSize <= 0 {
				maxSize = cliCtx.Config.Predictor.MaxCombinationSize
			}

			cliCtx.Logger.Info("Predicting reaction",
				logging.Strings("reactants", args),
				logging.Int("max_candidates", maxCandidates))

			p, err := reaction.NewPredictor(ds.Thermo, ds.Filter).Predict(ctx, args, reaction.Options{
				MaxCandidates: maxCandidates,
				MaxSize:       maxSize,
				Unit:          u,
			})
			if err != nil {
				return err
			}
			view := newPredictionView(args, p)
			if pdfPath != "" {
				if err := writePredictionPDF(pdfPath, view); err != nil {
					return err
				}
				cliCtx.Logger.Info("Report written", logging.String("path", pdfPath))
			}
			return PrintResult(cmd, view)
		},
	}
	cmd.Flags().IntVar(&maxCandidates, "max-candidates", 0, "products considered (default from config)")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "largest product combination (default from config)")
	cmd.Flags().StringVar(&unit, "unit", "", "energy unit: kJ or J (default from config)")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "also write a PDF report to this path")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// balance
// ─────────────────────────────────────────────────────────────────────────────

// EnergyView is the printable form of a balanced reaction and its ΔG°.
type EnergyView struct {
	Equation string            `json:"equation" yaml:"equation"`
	Reaction reaction.Reaction `json:"reaction" yaml:"reaction"`
	DeltaG   float64           `json:"delta_g" yaml:"delta_g"`
	Unit     string            `json:"unit" yaml:"unit"`
}

func (v *EnergyView) String() string {
	return fmt.Sprintf("%s\nΔG° = %.1f %s", v.Equation, v.DeltaG, v.Unit)
}

func (v *EnergyView) TableHeaders() []string { return []string{"Formula", "Side", "Coefficient"} }

func (v *EnergyView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Reaction.Reactants)+len(v.Reaction.Products))
	for _, t := range v.Reaction.Reactants {
		rows = append(rows, []string{t.Formula, "reactant", strconv.FormatInt(t.Coefficient, 10)})
	}
	for _, t := range v.Reaction.Products {
		rows = append(rows, []string{t.Formula, "product", strconv.FormatInt(t.Coefficient, 10)})
	}
	return rows
}

// NewBalanceCmd creates the balance command.
func NewBalanceCmd() *cobra.Command {
	var (
		reactants []string
		products  []string
		unit      string
	)
	cmd := &cobra.Command{
		Use:     "balance",
		Short:   "Balance a reaction and compute its standard Gibbs free energy",
		Example: `  alchemist balance --reactants Al,O2 --products Al2O3`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			ds, err := cliCtx.Dataset(ctx)
			if err != nil {
				return err
			}
			u, err := reaction.ParseUnit(firstNonEmpty(unit, cliCtx.Config.Predictor.EnergyUnit))
			if err != nil {
				return err
			}
			g, err := reaction.StandardGibbsEnergy(ds.Thermo, reactants, products, u)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &EnergyView{
				Equation: g.Reaction.String(),
				Reaction: g.Reaction,
				DeltaG:   g.DeltaG,
				Unit:     string(g.Unit),
			})
		},
	}
	cmd.Flags().StringSliceVar(&reactants, "reactants", nil, "reactant formulas (required)")
	cmd.Flags().StringSliceVar(&products, "products", nil, "product formulas (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "energy unit: kJ or J (default from config)")
	_ = cmd.MarkFlagRequired("reactants")
	_ = cmd.MarkFlagRequired("products")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// lookup
// ─────────────────────────────────────────────────────────────────────────────

// SpeciesView lists thermodynamic rows.
type SpeciesView struct {
	Query   string           `json:"query" yaml:"query"`
	State   string           `json:"state,omitempty" yaml:"state,omitempty"`
	Species []thermo.Species `json:"species" yaml:"species"`
}

func (v *SpeciesView) String() string {
	var b strings.Builder
	if v.State != "" {
		fmt.Fprintf(&b, "most stable: %s\n", v.State)
	}
	for i, s := range v.Species {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-12s G=%.0f J/mol  M=%.3f g/mol", s.Formula, s.G, s.Mass)
		if s.Name != "" {
			fmt.Fprintf(&b, "  %s", s.Name)
		}
	}
	return b.String()
}

func (v *SpeciesView) TableHeaders() []string {
	return []string{"Formula", "G (J/mol)", "Mass (g/mol)", "Name", "Abbrv"}
}

func (v *SpeciesView) TableRows() [][]string {
	rows := make([][]string, len(v.Species))
	for i, s := range v.Species {
		rows[i] = []string{
			s.Formula,
			strconv.FormatFloat(s.G, 'f', 0, 64),
			strconv.FormatFloat(s.Mass, 'f', 3, 64),
			s.Name,
			s.Abbrv,
		}
	}
	return rows
}

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	var state bool
	cmd := &cobra.Command{
		Use:   "lookup FORMULA",
		Short: "Show the thermodynamic rows of a formula",
		Example: `  alchemist lookup H2O
  alchemist lookup H2O --state`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			ds, err := cliCtx.Dataset(ctx)
			if err != nil {
				return err
			}
			rows, err := ds.Thermo.Lookup(args[0])
			if err != nil {
				return err
			}
			view := &SpeciesView{Query: args[0], Species: rows}
			if state {
				if view.State, err = ds.Thermo.PredictState(args[0]); err != nil {
					return err
				}
			}
			return PrintResult(cmd, view)
		},
	}
	cmd.Flags().BoolVar(&state, "state", false, "also report the lowest-G state")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// candidates
// ─────────────────────────────────────────────────────────────────────────────

// CandidatesView lists products composed of the input elements.
type CandidatesView struct {
	Formulas   []string `json:"formulas" yaml:"formulas"`
	Candidates []string `json:"candidates" yaml:"candidates"`
}

func (v *CandidatesView) String() string {
	if len(v.Candidates) == 0 {
		return "no candidates"
	}
	return strings.Join(v.Candidates, "\n")
}

func (v *CandidatesView) TableHeaders() []string { return []string{"#", "Formula"} }

func (v *CandidatesView) TableRows() [][]string {
	rows := make([][]string, len(v.Candidates))
	for i, c := range v.Candidates {
		rows[i] = []string{strconv.Itoa(i + 1), c}
	}
	return rows
}

// NewCandidatesCmd creates the candidates command.
func NewCandidatesCmd() *cobra.Command {
	var exact, thorough, sorted bool
	cmd := &cobra.Command{
		Use:   "candidates FORMULA...",
		Short: "List table species made only of the given formulas' elements",
		Example: `  alchemist candidates Al O2
  alchemist candidates C2H6O --exact`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			ds, err := cliCtx.Dataset(ctx)
			if err != nil {
				return err
			}
			out, err := ds.Filter.Candidates(args, stoich.Options{Exact: exact, Thorough: thorough})
			if err != nil {
				return err
			}
			if out == nil {
				out = []string{}
			}
			if sorted {
				sort.Strings(out)
			}
			return PrintResult(cmd, &CandidatesView{Formulas: args, Candidates: out})
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "only species with exactly the composition of the first formula")
	cmd.Flags().BoolVar(&thorough, "thorough", false, "raw table formulas, without state prediction")
	cmd.Flags().BoolVar(&sorted, "sort", false, "sort alphabetically instead of table order")
	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
