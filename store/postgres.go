package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quarry/folio"
)

// Postgres implements Store using PostgreSQL as the source of truth.
// Monetary values are stored as NUMERIC for exact decimal precision and
// round-tripped as text; beta and probability maps are stored as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prices (
			ticker TEXT NOT NULL,
			date   DATE NOT NULL,
			close  DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (ticker, date)
		);
		CREATE TABLE IF NOT EXISTS price_coverage (
			ticker    TEXT PRIMARY KEY,
			from_date DATE NOT NULL,
			to_date   DATE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			portfolio_id    TEXT NOT NULL,
			date            DATE NOT NULL,
			total_value     NUMERIC NOT NULL,
			positions_value NUMERIC NOT NULL,
			cash            NUMERIC NOT NULL,
			interest_earned NUMERIC NOT NULL,
			currency        TEXT NOT NULL,
			PRIMARY KEY (portfolio_id, date)
		);
		CREATE TABLE IF NOT EXISTS exposures (
			date   DATE NOT NULL,
			ticker TEXT NOT NULL,
			betas  JSONB NOT NULL,
			PRIMARY KEY (date, ticker)
		);
		CREATE TABLE IF NOT EXISTS factor_returns (
			date    DATE PRIMARY KEY,
			factors JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS position_returns (
			ticker TEXT NOT NULL,
			date   DATE NOT NULL,
			return DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (ticker, date)
		);
		CREATE TABLE IF NOT EXISTS regime_probabilities (
			as_of         DATE PRIMARY KEY,
			probabilities JSONB NOT NULL
		)`)
	return err
}

func (s *Postgres) SavePrices(ctx context.Context, ticker string, points []folio.PricePoint) error {
	for _, p := range points {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO prices (ticker, date, close)
			 VALUES ($1, $2::DATE, $3)
			 ON CONFLICT (ticker, date) DO UPDATE SET close = EXCLUDED.close`,
			ticker, p.Date.String(), p.Close)
		if err != nil {
			return fmt.Errorf("save price %s %s: %w", ticker, p.Date, err)
		}
	}
	return nil
}

func (s *Postgres) Prices(ctx context.Context, ticker string, r folio.Range) ([]folio.PricePoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date::TEXT, close
		 FROM prices
		 WHERE ticker = $1 AND date BETWEEN $2::DATE AND $3::DATE
		 ORDER BY date`,
		ticker, r.From.String(), r.To.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []folio.PricePoint
	for rows.Next() {
		var dateS string
		var p folio.PricePoint
		if err := rows.Scan(&dateS, &p.Close); err != nil {
			return nil, err
		}
		if p.Date, err = folio.ParseDate(dateS); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Postgres) Coverage(ctx context.Context, ticker string) (folio.Range, bool, error) {
	var fromS, toS string
	err := s.pool.QueryRow(ctx,
		`SELECT from_date::TEXT, to_date::TEXT FROM price_coverage WHERE ticker = $1`,
		ticker).Scan(&fromS, &toS)
	if err != nil {
		if isNoRows(err) {
			return folio.Range{}, false, nil
		}
		return folio.Range{}, false, fmt.Errorf("coverage %s: %w", ticker, err)
	}

	var r folio.Range
	if r.From, err = folio.ParseDate(fromS); err != nil {
		return folio.Range{}, false, err
	}
	if r.To, err = folio.ParseDate(toS); err != nil {
		return folio.Range{}, false, err
	}
	return r, true, nil
}

func (s *Postgres) SaveCoverage(ctx context.Context, ticker string, r folio.Range) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_coverage (ticker, from_date, to_date)
		 VALUES ($1, $2::DATE, $3::DATE)
		 ON CONFLICT (ticker) DO UPDATE
		 SET from_date = EXCLUDED.from_date, to_date = EXCLUDED.to_date`,
		ticker, r.From.String(), r.To.String())
	return err
}

func (s *Postgres) Snapshots(ctx context.Context, portfolioID string, r folio.Range) ([]folio.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date::TEXT,
		        total_value::TEXT, positions_value::TEXT,
		        cash::TEXT, interest_earned::TEXT, currency
		 FROM snapshots
		 WHERE portfolio_id = $1 AND date BETWEEN $2::DATE AND $3::DATE
		 ORDER BY date`,
		portfolioID, r.From.String(), r.To.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []folio.Snapshot
	for rows.Next() {
		var dateS, totalS, positionsS, cashS, interestS, currency string
		if err := rows.Scan(&dateS, &totalS, &positionsS, &cashS, &interestS, &currency); err != nil {
			return nil, err
		}
		snap := folio.Snapshot{PortfolioID: portfolioID}
		if snap.Date, err = folio.ParseDate(dateS); err != nil {
			return nil, err
		}
		if snap.TotalValue, err = scanMoney(totalS, currency); err != nil {
			return nil, err
		}
		if snap.PositionsValue, err = scanMoney(positionsS, currency); err != nil {
			return nil, err
		}
		if snap.Cash, err = scanMoney(cashS, currency); err != nil {
			return nil, err
		}
		if snap.InterestEarned, err = scanMoney(interestS, currency); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *Postgres) SaveSnapshots(ctx context.Context, snapshots []folio.Snapshot) error {
	for _, snap := range snapshots {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO snapshots (portfolio_id, date, total_value, positions_value, cash, interest_earned, currency)
			 VALUES ($1, $2::DATE, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)
			 ON CONFLICT (portfolio_id, date) DO UPDATE
			 SET total_value = EXCLUDED.total_value,
			     positions_value = EXCLUDED.positions_value,
			     cash = EXCLUDED.cash,
			     interest_earned = EXCLUDED.interest_earned,
			     currency = EXCLUDED.currency`,
			snap.PortfolioID, snap.Date.String(),
			snap.TotalValue.Amount().String(), snap.PositionsValue.Amount().String(),
			snap.Cash.Amount().String(), snap.InterestEarned.Amount().String(),
			snap.TotalValue.Currency())
		if err != nil {
			return fmt.Errorf("save snapshot %s %s: %w", snap.PortfolioID, snap.Date, err)
		}
	}
	return nil
}

func (s *Postgres) SaveExposure(ctx context.Context, e folio.Exposure) error {
	betas, err := json.Marshal(e.Betas)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exposures (date, ticker, betas)
		 VALUES ($1::DATE, $2, $3)
		 ON CONFLICT (date, ticker) DO UPDATE SET betas = EXCLUDED.betas`,
		e.Date.String(), e.Ticker, betas)
	if err != nil {
		return fmt.Errorf("save exposure %s %s: %w", e.Ticker, e.Date, err)
	}
	return nil
}

func (s *Postgres) LatestExposures(ctx context.Context, tickers []string) ([]folio.Exposure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (ticker) date::TEXT, ticker, betas
		 FROM exposures
		 WHERE ticker = ANY($1)
		 ORDER BY ticker, date DESC`,
		tickers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exposures []folio.Exposure
	for rows.Next() {
		var dateS string
		var betas []byte
		var e folio.Exposure
		if err := rows.Scan(&dateS, &e.Ticker, &betas); err != nil {
			return nil, err
		}
		if e.Date, err = folio.ParseDate(dateS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(betas, &e.Betas); err != nil {
			return nil, err
		}
		exposures = append(exposures, e)
	}
	return exposures, rows.Err()
}

func (s *Postgres) FactorReturns(ctx context.Context, r folio.Range) ([]folio.FactorReturn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date::TEXT, factors
		 FROM factor_returns
		 WHERE date BETWEEN $1::DATE AND $2::DATE
		 ORDER BY date`,
		r.From.String(), r.To.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []folio.FactorReturn
	for rows.Next() {
		var dateS string
		var factors []byte
		var row folio.FactorReturn
		if err := rows.Scan(&dateS, &factors); err != nil {
			return nil, err
		}
		if row.Date, err = folio.ParseDate(dateS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factors, &row.Factors); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Postgres) PositionReturns(ctx context.Context, ticker string, r folio.Range) ([]folio.PositionReturn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date::TEXT, return
		 FROM position_returns
		 WHERE ticker = $1 AND date BETWEEN $2::DATE AND $3::DATE
		 ORDER BY date`,
		ticker, r.From.String(), r.To.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []folio.PositionReturn
	for rows.Next() {
		var dateS string
		row := folio.PositionReturn{Ticker: ticker}
		if err := rows.Scan(&dateS, &row.Return); err != nil {
			return nil, err
		}
		if row.Date, err = folio.ParseDate(dateS); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Postgres) SaveFactorReturns(ctx context.Context, rows []folio.FactorReturn) error {
	for _, row := range rows {
		factors, err := json.Marshal(row.Factors)
		if err != nil {
			return err
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO factor_returns (date, factors)
			 VALUES ($1::DATE, $2)
			 ON CONFLICT (date) DO UPDATE SET factors = EXCLUDED.factors`,
			row.Date.String(), factors)
		if err != nil {
			return fmt.Errorf("save factor returns %s: %w", row.Date, err)
		}
	}
	return nil
}

func (s *Postgres) SavePositionReturns(ctx context.Context, rows []folio.PositionReturn) error {
	for _, row := range rows {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO position_returns (ticker, date, return)
			 VALUES ($1, $2::DATE, $3)
			 ON CONFLICT (ticker, date) DO UPDATE SET return = EXCLUDED.return`,
			row.Ticker, row.Date.String(), row.Return)
		if err != nil {
			return fmt.Errorf("save position return %s %s: %w", row.Ticker, row.Date, err)
		}
	}
	return nil
}

func (s *Postgres) SaveRegimeProbabilities(ctx context.Context, p folio.RegimeProbabilities) error {
	probabilities, err := json.Marshal(p.Probabilities)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO regime_probabilities (as_of, probabilities)
		 VALUES ($1::DATE, $2)
		 ON CONFLICT (as_of) DO UPDATE SET probabilities = EXCLUDED.probabilities`,
		p.AsOf.String(), probabilities)
	return err
}

func (s *Postgres) LatestRegimeProbabilities(ctx context.Context) (folio.RegimeProbabilities, error) {
	var asOfS string
	var probabilities []byte
	err := s.pool.QueryRow(ctx,
		`SELECT as_of::TEXT, probabilities
		 FROM regime_probabilities
		 ORDER BY as_of DESC LIMIT 1`).Scan(&asOfS, &probabilities)
	if err != nil {
		if isNoRows(err) {
			return folio.RegimeProbabilities{}, nil
		}
		return folio.RegimeProbabilities{}, err
	}

	var p folio.RegimeProbabilities
	if p.AsOf, err = folio.ParseDate(asOfS); err != nil {
		return folio.RegimeProbabilities{}, err
	}
	if err := json.Unmarshal(probabilities, &p.Probabilities); err != nil {
		return folio.RegimeProbabilities{}, err
	}
	return p, nil
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

func scanMoney(amount, currency string) (folio.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return folio.Money{}, fmt.Errorf("bad numeric %q: %w", amount, err)
	}
	return folio.M(d, currency), nil
}
