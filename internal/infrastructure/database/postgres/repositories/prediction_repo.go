package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/internal/infrastructure/database/postgres"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

const predictionColumns = `id, input, reactants, status, reaction, delta_g, unit, candidates,
	combinations, attempts, error_code, error, created_at, updated_at, completed_at`

type postgresPredictionRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresPredictionRepo returns a prediction.Repository over conn.
func NewPostgresPredictionRepo(conn *postgres.Connection, log logging.Logger) prediction.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresPredictionRepo{conn: conn, log: log}
}

func (r *postgresPredictionRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresPredictionRepo) Create(ctx context.Context, p *prediction.Record) error {
	query := `
		INSERT INTO predictions (
			id, input, reactants, status, reaction, delta_g, unit, candidates,
			combinations, attempts, error_code, error, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	reactants, candidates, attempts, err := marshalJSONColumns(p)
	if err != nil {
		return err
	}
	_, err = r.executor().ExecContext(ctx, query,
		p.ID, p.Input, reactants, string(p.Status), p.Reaction, p.DeltaG, p.Unit, candidates,
		p.Combinations, attempts, p.ErrorCode, p.Error, p.CreatedAt, p.UpdatedAt, p.CompletedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create prediction")
	}
	return nil
}

func (r *postgresPredictionRepo) Update(ctx context.Context, p *prediction.Record) error {
	query := `
		UPDATE predictions
		SET status = $1, reaction = $2, delta_g = $3, unit = $4, candidates = $5,
			combinations = $6, attempts = $7, error_code = $8, error = $9,
			updated_at = $10, completed_at = $11
		WHERE id = $12
	`
	_, candidates, attempts, err := marshalJSONColumns(p)
	if err != nil {
		return err
	}
	res, err := r.executor().ExecContext(ctx, query,
		string(p.Status), p.Reaction, p.DeltaG, p.Unit, candidates,
		p.Combinations, attempts, p.ErrorCode, p.Error,
		p.UpdatedAt, p.CompletedAt, p.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update prediction")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prediction.ErrRecordNotFound.WithDetail(p.ID.String())
	}
	return nil
}

func (r *postgresPredictionRepo) GetByID(ctx context.Context, id uuid.UUID) (*prediction.Record, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	p, err := scanPrediction(r.executor().QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, prediction.ErrRecordNotFound.WithDetail(id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get prediction")
	}
	return p, nil
}

func (r *postgresPredictionRepo) List(ctx context.Context, limit, offset int) ([]*prediction.Record, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.executor().QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to count predictions")
	}

	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.executor().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to list predictions")
	}
	defer rows.Close()

	out := make([]*prediction.Record, 0, limit)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan prediction")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to iterate predictions")
	}
	return out, total, nil
}

func marshalJSONColumns(p *prediction.Record) (reactants, candidates, attempts []byte, err error) {
	rs := p.Reactants
	if rs == nil {
		rs = []string{}
	}
	cs := p.Candidates
	if cs == nil {
		cs = []string{}
	}
	as := p.Attempts
	if as == nil {
		as = map[string]int{}
	}
	if reactants, err = json.Marshal(rs); err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode reactants")
	}
	if candidates, err = json.Marshal(cs); err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode candidates")
	}
	if attempts, err = json.Marshal(as); err != nil {
		return nil, nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode attempts")
	}
	return reactants, candidates, attempts, nil
}

func scanPrediction(row scanner) (*prediction.Record, error) {
	var (
		p                               prediction.Record
		status                          string
		deltaG                          sql.NullFloat64
		completedAt                     sql.NullTime
		reactants, candidates, attempts []byte
	)
	err := row.Scan(
		&p.ID, &p.Input, &reactants, &status, &p.Reaction, &deltaG, &p.Unit, &candidates,
		&p.Combinations, &attempts, &p.ErrorCode, &p.Error, &p.CreatedAt, &p.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = prediction.Status(status)
	if deltaG.Valid {
		v := deltaG.Float64
		p.DeltaG = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	if err := json.Unmarshal(reactants, &p.Reactants); err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		if err := json.Unmarshal(candidates, &p.Candidates); err != nil {
			return nil, err
		}
	}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &p.Attempts); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
