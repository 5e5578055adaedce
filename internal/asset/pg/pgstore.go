package pg

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"meams.org/internal/asset"
)

// newAssetID returns a 32-char hex identifier for new records.
func newAssetID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Store implements asset.Store on PostgreSQL. Embedded histories and
// documents are stored as jsonb so the schema stays close to the document
// model the API exposes.
type Store struct {
	db *sql.DB
}

var _ asset.Store = (*Store)(nil)

// Open connects with pool settings tuned for the API workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const supplyColumns = `id, item_code, name, category, location, status, quantity, unit, qr_tracking_id, image, documents, transactions, created_at, updated_at`

func (s *Store) CreateSupply(ctx context.Context, sup *asset.Supply) error {
	if sup.Name == "" {
		return asset.ErrInvalidInput
	}
	if sup.ID == "" {
		sup.ID = newAssetID()
	} else if !asset.ValidID(sup.ID) {
		return asset.ErrInvalidID
	}
	docs, _ := json.Marshal(sup.Documents)
	txs, _ := json.Marshal(sup.Transactions)
	_, err := s.db.ExecContext(ctx, `
		insert into supplies(id, item_code, name, category, location, status, quantity, unit, image, documents, transactions)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sup.ID, sup.ItemCode, sup.Name, sup.Category, sup.Location, sup.Status,
		sup.Quantity, sup.Unit, sup.Image, docs, txs,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return asset.ErrConflict
	}
	return err
}

func (s *Store) GetSupply(ctx context.Context, id string) (*asset.Supply, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+supplyColumns+` from supplies where id=$1`, id)
	return scanSupply(row)
}

func (s *Store) ListSupplies(ctx context.Context) ([]*asset.Supply, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+supplyColumns+` from supplies order by item_code asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*asset.Supply
	for rows.Next() {
		sup, err := scanSupply(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSupply(ctx context.Context, sup *asset.Supply) error {
	res, err := s.db.ExecContext(ctx, `
		update supplies
		set item_code=$2, name=$3, category=$4, location=$5, status=$6,
		    quantity=$7, unit=$8, updated_at=now()
		where id=$1`,
		sup.ID, sup.ItemCode, sup.Name, sup.Category, sup.Location, sup.Status,
		sup.Quantity, sup.Unit,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteSupply(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from supplies where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) AppendTransaction(ctx context.Context, id string, tx asset.Transaction) error {
	entry, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update supplies
		set transactions = coalesce(transactions, '[]'::jsonb) || $2::jsonb,
		    quantity = $3, updated_at = now()
		where id=$1`,
		id, entry, tx.Balance,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const equipmentColumns = `id, item_code, name, category, location, status, useful_life_years, purchase_amount, purchase_date, report, repairs, qr_tracking_id, image, documents, created_at, updated_at`

func (s *Store) CreateEquipment(ctx context.Context, eq *asset.Equipment) error {
	if eq.Name == "" {
		return asset.ErrInvalidInput
	}
	if eq.ID == "" {
		eq.ID = newAssetID()
	} else if !asset.ValidID(eq.ID) {
		return asset.ErrInvalidID
	}
	report, _ := json.Marshal(eq.Report)
	repairs, _ := json.Marshal(eq.Repairs)
	docs, _ := json.Marshal(eq.Documents)
	_, err := s.db.ExecContext(ctx, `
		insert into equipment(id, item_code, name, category, location, status, useful_life_years, purchase_amount, purchase_date, report, repairs, image, documents)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		eq.ID, eq.ItemCode, eq.Name, eq.Category, eq.Location, eq.Status,
		eq.UsefulLifeYears, eq.PurchaseAmount, eq.PurchaseDate, report, repairs,
		eq.Image, docs,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return asset.ErrConflict
	}
	return err
}

func (s *Store) GetEquipment(ctx context.Context, id string) (*asset.Equipment, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+equipmentColumns+` from equipment where id=$1`, id)
	return scanEquipment(row)
}

func (s *Store) ListEquipment(ctx context.Context) ([]*asset.Equipment, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+equipmentColumns+` from equipment order by item_code asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*asset.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEquipment(ctx context.Context, eq *asset.Equipment) error {
	report, _ := json.Marshal(eq.Report)
	res, err := s.db.ExecContext(ctx, `
		update equipment
		set item_code=$2, name=$3, category=$4, location=$5, status=$6,
		    useful_life_years=$7, purchase_amount=$8, purchase_date=$9,
		    report=$10, updated_at=now()
		where id=$1`,
		eq.ID, eq.ItemCode, eq.Name, eq.Category, eq.Location, eq.Status,
		eq.UsefulLifeYears, eq.PurchaseAmount, eq.PurchaseDate, report,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteEquipment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from equipment where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) AppendRepair(ctx context.Context, id string, rep asset.Repair) error {
	entry, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update equipment
		set repairs = coalesce(repairs, '[]'::jsonb) || $2::jsonb,
		    updated_at = now()
		where id=$1`,
		id, entry,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) GetAny(ctx context.Context, id string) (*asset.Resolved, error) {
	sup, err := s.GetSupply(ctx, id)
	if err == nil {
		return &asset.Resolved{Kind: asset.KindSupply, Supply: sup}, nil
	}
	if !errors.Is(err, asset.ErrNotFound) {
		return nil, err
	}
	eq, err := s.GetEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	return &asset.Resolved{Kind: asset.KindEquipment, Equipment: eq}, nil
}

func (s *Store) BindTrackingID(ctx context.Context, kind asset.Kind, id, candidate string) (string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", err
	}
	// Conditional bind: losers of a concurrent race fall through to the
	// re-read and observe the winner's ID.
	if _, err := s.db.ExecContext(ctx,
		`update `+table+` set qr_tracking_id=$2, updated_at=now() where id=$1 and qr_tracking_id is null`,
		id, candidate,
	); err != nil {
		return "", err
	}
	var bound sql.NullString
	err = s.db.QueryRowContext(ctx,
		`select qr_tracking_id from `+table+` where id=$1`, id,
	).Scan(&bound)
	if errors.Is(err, sql.ErrNoRows) {
		return "", asset.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !bound.Valid || bound.String == "" {
		return "", asset.ErrNotFound
	}
	return bound.String, nil
}

// ClearTrackingID releases a bound tracking ID. Operator tooling only; the
// printed-label contract makes this a deliberate, rare act.
func (s *Store) ClearTrackingID(ctx context.Context, kind asset.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`update `+table+` set qr_tracking_id=null, updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) FindByTrackingID(ctx context.Context, trackingID string) (*asset.Resolved, error) {
	if trackingID == "" {
		return nil, asset.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`select `+supplyColumns+` from supplies where qr_tracking_id=$1`, trackingID)
	sup, err := scanSupply(row)
	if err == nil {
		return &asset.Resolved{Kind: asset.KindSupply, Supply: sup}, nil
	}
	if !errors.Is(err, asset.ErrNotFound) {
		return nil, err
	}
	row = s.db.QueryRowContext(ctx,
		`select `+equipmentColumns+` from equipment where qr_tracking_id=$1`, trackingID)
	eq, err := scanEquipment(row)
	if err != nil {
		return nil, err
	}
	return &asset.Resolved{Kind: asset.KindEquipment, Equipment: eq}, nil
}

func tableFor(kind asset.Kind) (string, error) {
	switch kind {
	case asset.KindSupply:
		return "supplies", nil
	case asset.KindEquipment:
		return "equipment", nil
	default:
		return "", asset.ErrInvalidInput
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupply(row rowScanner) (*asset.Supply, error) {
	var (
		sup        asset.Supply
		tracking   sql.NullString
		documents  []byte
		txHistory  []byte
	)
	err := row.Scan(
		&sup.ID, &sup.ItemCode, &sup.Name, &sup.Category, &sup.Location,
		&sup.Status, &sup.Quantity, &sup.Unit, &tracking, &sup.Image,
		&documents, &txHistory, &sup.CreatedAt, &sup.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, asset.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sup.TrackingID = tracking.String
	_ = json.Unmarshal(documents, &sup.Documents)
	_ = json.Unmarshal(txHistory, &sup.Transactions)
	return &sup, nil
}

func scanEquipment(row rowScanner) (*asset.Equipment, error) {
	var (
		eq        asset.Equipment
		tracking  sql.NullString
		report    []byte
		repairs   []byte
		documents []byte
	)
	err := row.Scan(
		&eq.ID, &eq.ItemCode, &eq.Name, &eq.Category, &eq.Location, &eq.Status,
		&eq.UsefulLifeYears, &eq.PurchaseAmount, &eq.PurchaseDate, &report,
		&repairs, &tracking, &eq.Image, &documents, &eq.CreatedAt, &eq.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, asset.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	eq.TrackingID = tracking.String
	if len(report) > 0 && string(report) != "null" {
		var rep asset.Report
		if json.Unmarshal(report, &rep) == nil {
			eq.Report = &rep
		}
	}
	_ = json.Unmarshal(repairs, &eq.Repairs)
	_ = json.Unmarshal(documents, &eq.Documents)
	return &eq, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return asset.ErrNotFound
	}
	return nil
}
