package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// DuckDBLoader reads historical bar files (CSV) into a Series using an
// in-memory DuckDB instance. DuckDB's read_csv_auto handles header and
// type sniffing, so the loader accepts both tick-style files
// (time,price,volume) and OHLCV files (time,open,high,low,close,volume).
type DuckDBLoader struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewDuckDBLoader creates a loader backed by an in-memory DuckDB database.
func NewDuckDBLoader(log *logger.Logger) (*DuckDBLoader, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to open duckdb", err)
	}

	return &DuckDBLoader{
		db:     db,
		logger: log,
	}, nil
}

// LoadCSV loads all bars from the given CSV file, ordered by time.
func (l *DuckDBLoader) LoadCSV(path string) (*Series, error) {
	// Create a view over the file. DuckDB does not support parameter
	// binding in DDL, so the path is interpolated directly.
	_, err := l.db.Exec(fmt.Sprintf(`
		CREATE OR REPLACE VIEW bars AS
		SELECT * FROM read_csv_auto('%s');
	`, path))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to read csv %s", path)
	}

	columns, err := l.viewColumns()
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows

	if columns["close"] {
		rows, err = l.db.Query(`
			SELECT time, open, high, low, close, volume
			FROM bars
			ORDER BY time ASC
		`)
	} else {
		rows, err = l.db.Query(`
			SELECT time, price, volume
			FROM bars
			ORDER BY time ASC
		`)
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	series := NewSeries()

	for rows.Next() {
		var bar types.Bar

		var barTime time.Time

		if columns["close"] {
			if err := rows.Scan(&barTime, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
			}

			bar.Price = bar.Close
		} else {
			if err := rows.Scan(&barTime, &bar.Price, &bar.Volume); err != nil {
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
			}
		}

		bar.Time = barTime
		series.Append(bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err)
	}

	if series.Len() == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars loaded from %s", path)
	}

	l.logger.Debug("Loaded bar history",
		zap.String("path", path),
		zap.Int("bars", series.Len()),
	)

	return series, nil
}

// viewColumns returns the set of column names exposed by the bars view.
func (l *DuckDBLoader) viewColumns() (map[string]bool, error) {
	rows, err := l.db.Query(`SELECT column_name FROM information_schema.columns WHERE table_name = 'bars'`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to inspect csv columns", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns[name] = true
	}

	return columns, rows.Err()
}

// Close releases the underlying database.
func (l *DuckDBLoader) Close() error {
	return l.db.Close()
}
