package historydb

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// maxRangeRows caps a single range query.
const maxRangeRows = 10_000

// Summary holds aggregate counters over the stored history.
type Summary struct {
	Count     int64
	MinHeight uint64
	MaxHeight uint64
	HaveRows  bool
}

// Insert upserts the record row for e.Height and rewrites its asset rows.
// Already-indexed heights are replaced, so replaying a range is idempotent.
func (d *DB) Insert(ctx context.Context, e *recordstore.Entry) error {
	if d.db == nil {
		return ErrDatabaseClosed
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return newQueryError("insert", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := d.rebind(`INSERT INTO pricing_records
		(height, version, spot, moving_average, quote_time, signature,
		 coin_burnt, coin_minted, asset_burnt, asset_minted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (height) DO UPDATE SET
		version = EXCLUDED.version,
		spot = EXCLUDED.spot,
		moving_average = EXCLUDED.moving_average,
		quote_time = EXCLUDED.quote_time,
		signature = EXCLUDED.signature,
		coin_burnt = EXCLUDED.coin_burnt,
		coin_minted = EXCLUDED.coin_minted,
		asset_burnt = EXCLUDED.asset_burnt,
		asset_minted = EXCLUDED.asset_minted`)

	_, err = tx.ExecContext(ctx, query,
		int64(e.Height),
		int64(e.Record.Version),
		strconv.FormatUint(e.Record.Spot, 10),
		strconv.FormatUint(e.Record.MovingAverage, 10),
		int64(e.Record.Timestamp),
		e.Record.SignatureHex(),
		strconv.FormatUint(e.Supply.CoinBurnt, 10),
		strconv.FormatUint(e.Supply.CoinMinted, 10),
		strconv.FormatUint(e.Supply.AssetBurnt, 10),
		strconv.FormatUint(e.Supply.AssetMinted, 10))
	if err != nil {
		return newQueryError("insert", "failed to upsert record", err)
	}

	_, err = tx.ExecContext(ctx, d.rebind(`DELETE FROM pricing_assets WHERE height = ?`), int64(e.Height))
	if err != nil {
		return newQueryError("insert", "failed to clear asset rows", err)
	}

	assetQuery := d.rebind(`INSERT INTO pricing_assets (height, asset_id, spot, moving_average)
		VALUES (?, ?, ?, ?)`)
	for i := range e.Assets {
		_, err = tx.ExecContext(ctx, assetQuery,
			int64(e.Height),
			int64(e.Assets[i].AssetID),
			strconv.FormatUint(e.Assets[i].Spot, 10),
			strconv.FormatUint(e.Assets[i].MovingAverage, 10))
		if err != nil {
			return newQueryError("insert", "failed to insert asset row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newQueryError("insert", "failed to commit", err)
	}
	return nil
}

const recordColumns = `height, version, spot, moving_average, quote_time, signature,
	coin_burnt, coin_minted, asset_burnt, asset_minted`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one pricing_records row. Asset rows are attached
// separately.
func scanEntry(row rowScanner) (*recordstore.Entry, error) {
	var height, version, quoteTime int64
	var spot, movingAverage, signature string
	var coinBurnt, coinMinted, assetBurnt, assetMinted string

	err := row.Scan(&height, &version, &spot, &movingAverage, &quoteTime, &signature,
		&coinBurnt, &coinMinted, &assetBurnt, &assetMinted)
	if err != nil {
		return nil, err
	}

	e := &recordstore.Entry{Height: uint64(height)}
	e.Record.Version = uint64(version)
	e.Record.Timestamp = uint64(quoteTime)

	if e.Record.Spot, err = strconv.ParseUint(spot, 10, 64); err != nil {
		return nil, err
	}
	if e.Record.MovingAverage, err = strconv.ParseUint(movingAverage, 10, 64); err != nil {
		return nil, err
	}
	if e.Record.Signature, err = oracle.ParseSignatureHex(signature); err != nil {
		return nil, err
	}
	if e.Supply.CoinBurnt, err = strconv.ParseUint(coinBurnt, 10, 64); err != nil {
		return nil, err
	}
	if e.Supply.CoinMinted, err = strconv.ParseUint(coinMinted, 10, 64); err != nil {
		return nil, err
	}
	if e.Supply.AssetBurnt, err = strconv.ParseUint(assetBurnt, 10, 64); err != nil {
		return nil, err
	}
	if e.Supply.AssetMinted, err = strconv.ParseUint(assetMinted, 10, 64); err != nil {
		return nil, err
	}
	return e, nil
}

// loadAssets attaches the asset rows for a single height.
func (d *DB) loadAssets(ctx context.Context, e *recordstore.Entry) error {
	query := d.rebind(`SELECT asset_id, spot, moving_average FROM pricing_assets
		WHERE height = ? ORDER BY asset_id`)

	rows, err := d.db.QueryContext(ctx, query, int64(e.Height))
	if err != nil {
		return newQueryError("load_assets", "failed to query asset rows", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assetID int64
		var spot, movingAverage string
		if err := rows.Scan(&assetID, &spot, &movingAverage); err != nil {
			return newQueryError("load_assets", "failed to scan asset row", err)
		}

		var a oracle.AssetData
		a.AssetID = uint64(assetID)
		if a.Spot, err = strconv.ParseUint(spot, 10, 64); err != nil {
			return newQueryError("load_assets", "corrupt asset spot", err)
		}
		if a.MovingAverage, err = strconv.ParseUint(movingAverage, 10, 64); err != nil {
			return newQueryError("load_assets", "corrupt asset moving average", err)
		}
		e.Assets = append(e.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return newQueryError("load_assets", "error iterating asset rows", err)
	}
	return nil
}

// GetByHeight returns the indexed entry at height.
func (d *DB) GetByHeight(ctx context.Context, height uint64) (*recordstore.Entry, error) {
	if d.db == nil {
		return nil, ErrDatabaseClosed
	}

	query := d.rebind(`SELECT ` + recordColumns + ` FROM pricing_records WHERE height = ?`)
	e, err := scanEntry(d.db.QueryRowContext(ctx, query, int64(height)))
	if err == sql.ErrNoRows {
		return nil, newDataError("get_by_height", "record not found", ErrRecordNotFound)
	}
	if err != nil {
		return nil, newQueryError("get_by_height", "failed to query record", err)
	}

	if err := d.loadAssets(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetLatest returns the entry at the highest indexed height.
func (d *DB) GetLatest(ctx context.Context) (*recordstore.Entry, error) {
	if d.db == nil {
		return nil, ErrDatabaseClosed
	}

	query := d.rebind(`SELECT ` + recordColumns + ` FROM pricing_records
		ORDER BY height DESC LIMIT 1`)
	e, err := scanEntry(d.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, newDataError("get_latest", "history is empty", ErrRecordNotFound)
	}
	if err != nil {
		return nil, newQueryError("get_latest", "failed to query latest record", err)
	}

	if err := d.loadAssets(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetRange returns indexed entries with from <= height <= to in ascending
// order, at most limit rows.
func (d *DB) GetRange(ctx context.Context, from, to uint64, limit int) ([]*recordstore.Entry, error) {
	if d.db == nil {
		return nil, ErrDatabaseClosed
	}
	if from > to {
		return nil, ErrInvalidRange
	}
	if limit <= 0 || limit > maxRangeRows {
		return nil, ErrInvalidLimit
	}

	query := d.rebind(`SELECT ` + recordColumns + ` FROM pricing_records
		WHERE height >= ? AND height <= ? ORDER BY height ASC LIMIT ?`)

	rows, err := d.db.QueryContext(ctx, query, int64(from), int64(to), limit)
	if err != nil {
		return nil, newQueryError("get_range", "failed to query records", err)
	}
	defer rows.Close()

	var entries []*recordstore.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, newQueryError("get_range", "failed to scan record row", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, newQueryError("get_range", "error iterating record rows", err)
	}

	for _, e := range entries {
		if err := d.loadAssets(ctx, e); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Count returns the number of indexed records.
func (d *DB) Count(ctx context.Context) (int64, error) {
	if d.db == nil {
		return 0, ErrDatabaseClosed
	}

	var count int64
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pricing_records`).Scan(&count)
	if err != nil {
		return 0, newQueryError("count", "failed to count records", err)
	}
	return count, nil
}

// GetSummary returns count and height bounds of the stored history.
func (d *DB) GetSummary(ctx context.Context) (Summary, error) {
	if d.db == nil {
		return Summary{}, ErrDatabaseClosed
	}

	var count int64
	var minHeight, maxHeight sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(height), MAX(height) FROM pricing_records`).Scan(&count, &minHeight, &maxHeight)
	if err != nil {
		return Summary{}, newQueryError("get_summary", "failed to query summary", err)
	}

	s := Summary{Count: count}
	if minHeight.Valid && maxHeight.Valid {
		s.MinHeight = uint64(minHeight.Int64)
		s.MaxHeight = uint64(maxHeight.Int64)
		s.HaveRows = true
	}
	return s, nil
}

// PruneBelow deletes rows with height < cutoff and returns the number of
// record rows removed.
func (d *DB) PruneBelow(ctx context.Context, cutoff uint64) (int64, error) {
	if d.db == nil {
		return 0, ErrDatabaseClosed
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newQueryError("prune_below", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM pricing_assets WHERE height < ?`), int64(cutoff)); err != nil {
		return 0, newQueryError("prune_below", "failed to delete asset rows", err)
	}

	res, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM pricing_records WHERE height < ?`), int64(cutoff))
	if err != nil {
		return 0, newQueryError("prune_below", "failed to delete record rows", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, newQueryError("prune_below", "failed to count deleted rows", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, newQueryError("prune_below", "failed to commit", err)
	}

	if pruned > 0 {
		d.log.Info().Uint64("cutoff", cutoff).Int64("pruned", pruned).Msg("pruned record history")
	}
	return pruned, nil
}
