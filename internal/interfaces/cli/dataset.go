package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/alchemist/internal/infrastructure/dataset"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

// DatasetView summarises loaded tables.
type DatasetView struct {
	Source        string `json:"source" yaml:"source"`
	ThermoRows    int    `json:"thermo_rows" yaml:"thermo_rows"`
	StoichEntries int    `json:"stoich_entries" yaml:"stoich_entries"`
}

func (v *DatasetView) String() string {
	return fmt.Sprintf("%s: %d thermodynamic rows, %d compositions", v.Source, v.ThermoRows, v.StoichEntries)
}

func (v *DatasetView) TableHeaders() []string {
	return []string{"Source", "Thermo rows", "Stoich entries"}
}

func (v *DatasetView) TableRows() [][]string {
	return [][]string{{v.Source, strconv.Itoa(v.ThermoRows), strconv.Itoa(v.StoichEntries)}}
}

// UploadView lists pushed objects.
type UploadView struct {
	Bucket  string   `json:"bucket" yaml:"bucket"`
	Objects []string `json:"objects" yaml:"objects"`
}

func (v *UploadView) TableHeaders() []string { return []string{"Bucket", "Object"} }

func (v *UploadView) TableRows() [][]string {
	rows := make([][]string, len(v.Objects))
	for i, o := range v.Objects {
		rows[i] = []string{v.Bucket, o}
	}
	return rows
}

// NewDatasetCmd creates the dataset command group.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect and publish the thermodynamic and stoichiometric tables",
	}
	cmd.AddCommand(newDatasetVerifyCmd(), newDatasetPushCmd())
	return cmd
}

func newDatasetVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Load the configured dataset and check it is consistent",
		Args:  cobra.NoArgs,
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
			source := cliCtx.dataDir
			if source == "" {
				source = cliCtx.Config.Dataset.Source
				if source == "file" {
					source = cliCtx.Config.Dataset.Dir
				}
			}
			return PrintResult(cmd, &DatasetView{
				Source:        source,
				ThermoRows:    ds.Thermo.Len(),
				StoichEntries: ds.Stoich.Len(),
			})
		},
	}
}

func newDatasetPushCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:     "push",
		Short:   "Validate a local dataset directory and upload it to the MinIO bucket",
		Example: `  alchemist dataset push --dir data`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			if dir == "" {
				dir = firstNonEmpty(cliCtx.dataDir, cliCtx.Config.Dataset.Dir)
			}
			keys := []string{
				firstNonEmpty(cliCtx.Config.Dataset.ThermoKey, dataset.DefaultThermoKey),
				firstNonEmpty(cliCtx.Config.Dataset.StoichKey, dataset.DefaultStoichKey),
			}
			// Validate locally before uploading.
			if _, err := dataset.Load(ctx, dataset.NewFileSource(dir), keys[0], keys[1]); err != nil {
				return err
			}

			store, err := cliCtx.ObjectStore(ctx)
			if err != nil {
				return err
			}
			view := &UploadView{Bucket: cliCtx.Config.MinIO.Bucket}
			for _, key := range keys {
				path := filepath.Join(dir, key)
				f, err := os.Open(path)
				if err != nil {
					return errors.Wrap(err, errors.CodeStorageError, "cannot open dataset file").WithDetail(path)
				}
				info, err := f.Stat()
				if err != nil {
					f.Close()
					return errors.Wrap(err, errors.CodeStorageError, "cannot stat dataset file").WithDetail(path)
				}
				res, err := store.Upload(ctx, key, f, info.Size(), "text/csv")
				f.Close()
				if err != nil {
					return err
				}
				cliCtx.Logger.Info("Dataset object uploaded",
					logging.String("key", res.ObjectKey),
					logging.Int64("size", res.Size))
				view.Objects = append(view.Objects, res.ObjectKey)
			}
			return PrintResult(cmd, view)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the CSV files (default: dataset.dir)")
	return cmd
}
