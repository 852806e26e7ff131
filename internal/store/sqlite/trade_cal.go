package sqlite

import (
	"database/sql"
	"time"
)

// ReplaceTradeDates swaps the whole trade_cal table for dates in one transaction.
func ReplaceTradeDates(db *sql.DB, dates []time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM trade_cal`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO trade_cal(cal_date) VALUES (?) ON CONFLICT(cal_date) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range dates {
		if _, err := stmt.Exec(formatTradeDate(d)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadTradeDates returns every stored trading day in ascending order.
func LoadTradeDates(db *sql.DB) ([]time.Time, error) {
	rows, err := db.Query(`SELECT cal_date FROM trade_cal ORDER BY cal_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := parseTradeDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
