package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/infrastructure/dataset"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/pubchem"
	"github.com/turtacn/alchemist/internal/infrastructure/textextract"
	"github.com/turtacn/alchemist/internal/intelligence/chem_extractor"
	"github.com/turtacn/alchemist/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// resolve
// ─────────────────────────────────────────────────────────────────────────────

// ResolutionRow is one name and its formula or failure.
type ResolutionRow struct {
	Name    string `json:"name" yaml:"name"`
	Formula string `json:"formula,omitempty" yaml:"formula,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResolutionsView lists resolved names in input order.
type ResolutionsView []ResolutionRow

func (v ResolutionsView) String() string {
	lines := make([]string, len(v))
	for i, r := range v {
		if r.Error != "" {
			lines[i] = fmt.Sprintf("%s: unresolved (%s)", r.Name, r.Error)
			continue
		}
		lines[i] = fmt.Sprintf("%s → %s [%s]", r.Name, r.Formula, r.Source)
	}
	return strings.Join(lines, "\n")
}

func (v ResolutionsView) TableHeaders() []string {
	return []string{"Name", "Formula", "Source", "Error"}
}

func (v ResolutionsView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, r := range v {
		rows[i] = []string{r.Name, r.Formula, r.Source, r.Error}
	}
	return rows
}

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	var usePubChem bool
	cmd := &cobra.Command{
		Use:   "resolve NAME...",
		Short: "Map chemical names to table formulas",
		Example: `  alchemist resolve water "hydrogen peroxide" EtOH
  alchemist resolve "ethyl alcohol" --pubchem`,
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
			resolver := cliCtx.newResolver(ds, usePubChem)

			view := make(ResolutionsView, 0, len(args))
			unresolved := 0
			for _, name := range args {
				res, err := resolver.Resolve(ctx, name)
				if err != nil {
					if !errors.IsNotFound(err) {
						return err
					}
					unresolved++
					view = append(view, ResolutionRow{Name: name, Error: errors.GetCode(err).String()})
					continue
				}
				view = append(view, ResolutionRow{Name: name, Formula: res.Formula, Source: res.Source})
			}
			if err := PrintResult(cmd, view); err != nil {
				return err
			}
			if unresolved == len(args) {
				return chem_extractor.ErrNameUnresolved.WithDetail(strings.Join(args, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&usePubChem, "pubchem", false, "ask PubChem for names the tables do not know")
	return cmd
}

func (c *CLIContext) newResolver(ds *dataset.Dataset, usePubChem bool) *chem_extractor.NameResolver {
	var opts []chem_extractor.ResolverOption
	if usePubChem {
		pc := c.Config.PubChem
		opts = append(opts, chem_extractor.WithPubChem(pubchem.NewClient(c.Logger,
			pubchem.WithBaseURL(pc.BaseURL),
			pubchem.WithTimeout(pc.Timeout),
			pubchem.WithRateLimit(pc.RateLimit),
		)))
	}
	return chem_extractor.NewNameResolver(ds.Thermo, ds.Filter, c.Logger, opts...)
}

func (c *CLIContext) newExtractor(ds *dataset.Dataset) *chem_extractor.Extractor {
	return chem_extractor.NewExtractor(chem_extractor.NewTableDictionary(ds.Thermo), chem_extractor.ExtractorConfig{
		MinConfidence: c.Config.Extractor.MinConfidence,
		MaxTextLength: c.Config.Extractor.MaxTextLength,
	}, c.Logger)
}

// ─────────────────────────────────────────────────────────────────────────────
// extract
// ─────────────────────────────────────────────────────────────────────────────

// EntitiesView lists the chemical mentions of one text or paragraph.
type EntitiesView struct {
	Paragraph string                              `json:"paragraph,omitempty" yaml:"paragraph,omitempty"`
	Entities  []*chem_extractor.RawChemicalEntity `json:"entities" yaml:"entities"`
}

// ExtractionView is the extract command result.
type ExtractionView struct {
	Source string         `json:"source" yaml:"source"`
	Title  string         `json:"title,omitempty" yaml:"title,omitempty"`
	Blocks []EntitiesView `json:"blocks" yaml:"blocks"`
}

func (v *ExtractionView) String() string {
	var b strings.Builder
	if v.Title != "" {
		fmt.Fprintf(&b, "# %s\n", v.Title)
	}
	for i, blk := range v.Blocks {
		if i > 0 {
			b.WriteByte('\n')
		}
		if blk.Paragraph != "" {
			fmt.Fprintf(&b, "¶ %s\n", blk.Paragraph)
		}
		if len(blk.Entities) == 0 {
			b.WriteString("  (no chemicals)")
			continue
		}
		for j, e := range blk.Entities {
			if j > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "  %s\t%s", e.Text, e.EntityType)
			if e.Formula != "" {
				fmt.Fprintf(&b, "\t%s", e.Formula)
			}
		}
	}
	return b.String()
}

func (v *ExtractionView) TableHeaders() []string {
	return []string{"Paragraph", "Text", "Type", "Formula", "Confidence"}
}

func (v *ExtractionView) TableRows() [][]string {
	var rows [][]string
	for i, blk := range v.Blocks {
		for _, e := range blk.Entities {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				e.Text,
				string(e.EntityType),
				e.Formula,
				strconv.FormatFloat(e.Confidence, 'f', 2, 64),
			})
		}
	}
	return rows
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	var (
		file       string
		paragraphs bool
		predict    bool
	)
	cmd := &cobra.Command{
		Use:   "extract [TEXT...]",
		Short: "Find chemicals in text or a document, optionally predicting their reaction",
		Example: `  alchemist extract "What happens when aluminium reacts with oxygen?"
  alchemist extract --file paper.html --paragraphs
  alchemist extract --predict "Sodium burns in chlorine"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			if (file == "") == (len(args) == 0) {
				return errors.InvalidParam("give either TEXT or --file")
			}
			doc := textextract.Document{Text: strings.Join(args, " ")}
			source := "args"
			if file != "" {
				if doc, err = cliCtx.readDocument(ctx, file); err != nil {
					return err
				}
				source = file
			}

			ds, err := cliCtx.Dataset(ctx)
			if err != nil {
				return err
			}
			extractor := cliCtx.newExtractor(ds)

			if predict {
				svc := transmuter.NewService(transmuter.Dependencies{
					Extractor: extractor,
					Resolver:  cliCtx.newResolver(ds, false),
					Predictor: reaction.NewPredictor(ds.Thermo, ds.Filter),
				}, transmuter.Config{
					MaxCandidates: cliCtx.Config.Predictor.MaxCandidates,
					MaxSize:       cliCtx.Config.Predictor.MaxCombinationSize,
					Unit:          cliCtx.Config.Predictor.EnergyUnit,
				}, cliCtx.Logger)
				res, err := svc.Transmute(ctx, doc.Text)
				if err != nil {
					return err
				}
				return PrintResult(cmd, newPredictionView(res.Reactants, res.Prediction))
			}

			view := &ExtractionView{Source: source, Title: doc.Title}
			blocks := []string{doc.Text}
			if paragraphs {
				blocks = textextract.MakeParagraphs(doc.Text)
			}
			for _, blk := range blocks {
				ents, err := extractor.Extract(ctx, blk)
				if err != nil {
					return err
				}
				ev := EntitiesView{Entities: ents}
				if paragraphs {
					ev.Paragraph = blk
				}
				view.Blocks = append(view.Blocks, ev)
			}
			cliCtx.Logger.Debug("Extraction finished", logging.Int("blocks", len(view.Blocks)))
			return PrintResult(cmd, view)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a document (html, txt, or anything Tika parses)")
	cmd.Flags().BoolVar(&paragraphs, "paragraphs", false, "split into paragraphs and extract per paragraph")
	cmd.Flags().BoolVar(&predict, "predict", false, "resolve the chemicals and predict their reaction")
	return cmd
}

// readDocument returns the text of path. HTML and plain text are read
// locally; other formats go to Tika.
func (c *CLIContext) readDocument(ctx context.Context, path string) (textextract.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".html", ".htm", ".xhtml", ".txt", ".md", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return textextract.Document{}, errors.Wrap(err, errors.CodeInvalidParam, "cannot read document").WithDetail(path)
		}
		if ext == ".html" || ext == ".htm" || ext == ".xhtml" {
			return textextract.FromHTML(data), nil
		}
		return textextract.Document{Text: string(data)}, nil
	}

	if c.Config.Tika.URL == "" {
		return textextract.Document{}, errors.Unavailable("document parser is not configured").WithDetail("set tika.url to read " + ext + " files")
	}
	f, err := os.Open(path)
	if err != nil {
		return textextract.Document{}, errors.Wrap(err, errors.CodeInvalidParam, "cannot read document").WithDetail(path)
	}
	defer f.Close()

	tika := textextract.NewTikaClient(textextract.TikaConfig{
		URL:        c.Config.Tika.URL,
		MaxRetries: c.Config.Tika.MaxRetries,
		RetryDelay: c.Config.Tika.RetryDelay,
		Timeout:    c.Config.Tika.Timeout,
	}, c.Logger)
	text, err := tika.GetText(ctx, filepath.Base(path), f)
	if err != nil {
		return textextract.Document{}, err
	}
	return textextract.Document{Text: text}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// classify
// ─────────────────────────────────────────────────────────────────────────────

// ClassificationView wraps a classification for printing.
type ClassificationView struct {
	transmuter.Classification `yaml:",inline"`
}

func (v *ClassificationView) String() string {
	s := fmt.Sprintf("%s (score %.3f, threshold %.2f)", v.Label, v.Score, v.Threshold)
	if len(v.Anchors) > 0 {
		s += "; anchors: " + strings.Join(v.Anchors, ", ")
	}
	return s
}

func (v *ClassificationView) TableHeaders() []string {
	return []string{"Label", "Score", "Threshold", "Anchors"}
}

func (v *ClassificationView) TableRows() [][]string {
	return [][]string{{
		v.Label,
		strconv.FormatFloat(v.Score, 'f', 3, 64),
		strconv.FormatFloat(v.Threshold, 'f', 2, 64),
		strings.Join(v.Anchors, ","),
	}}
}

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:     "classify TEXT...",
		Short:   "Decide whether a question is about stoichiometry",
		Example: `  alchemist classify "How many moles of water form?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if threshold == 0 {
				threshold = cliCtx.Config.Classifier.Threshold
			}
			c := transmuter.NewClassifier(cliCtx.Config.Classifier.Keywords, threshold)
			return PrintResult(cmd, &ClassificationView{Classification: c.Classify(strings.Join(args, " "))})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "score threshold in (0,1] (default from config)")
	return cmd
}
