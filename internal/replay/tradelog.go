package replay

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// TradeStore persists the append-only trade log of a replay session in an
// in-memory DuckDB database so it can be queried and exported after the
// run.
type TradeStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewTradeStore opens an in-memory store and creates the trades table.
func NewTradeStore(log *logger.Logger) (*TradeStore, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		log.Error("failed to open trade store", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to connect to database", err)
	}

	store := &TradeStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *TradeStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			bar_index INTEGER,
			time TIMESTAMP,
			signal TEXT,
			price DOUBLE,
			quantity DOUBLE,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to create trades table", err)
	}

	return nil
}

// Append records one fill.
func (s *TradeStore) Append(trade types.TradeRecord) error {
	insert := s.sq.
		Insert("trades").
		Columns("id", "bar_index", "time", "signal", "price", "quantity", "reason").
		Values(trade.ID, trade.BarIndex, trade.Time, string(trade.Signal), trade.Price, trade.Quantity, trade.Reason).
		RunWith(s.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to insert trade", err)
	}

	return nil
}

// Trades returns the full trade log in fill order.
func (s *TradeStore) Trades() ([]types.TradeRecord, error) {
	query := s.sq.
		Select("id", "bar_index", "time", "signal", "price", "quantity", "reason").
		From("trades").
		OrderBy("bar_index ASC").
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var trade types.TradeRecord

		var signal string

		if err := rows.Scan(
			&trade.ID,
			&trade.BarIndex,
			&trade.Time,
			&signal,
			&trade.Price,
			&trade.Quantity,
			&trade.Reason,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to scan trade", err)
		}

		trade.Signal = types.SignalType(signal)
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTradeStoreFailed, "error iterating trades", err)
	}

	return trades, nil
}

// Count returns the number of recorded fills.
func (s *TradeStore) Count() (int, error) {
	var count int

	query := s.sq.Select("COUNT(*)").From("trades").RunWith(s.db)
	if err := query.QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to count trades", err)
	}

	return count, nil
}

// Cleanup drops and recreates the trades table.
func (s *TradeStore) Cleanup() error {
	if _, err := s.db.Exec(`DROP TABLE IF EXISTS trades`); err != nil {
		return errors.Wrap(errors.ErrCodeTradeStoreFailed, "failed to drop trades table", err)
	}

	return s.initialize()
}

// Close closes the database connection.
func (s *TradeStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}
