package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// GridTariffStore implements storage.GridTariffStore using SQLite.
type GridTariffStore struct {
	db *DB
}

// NewGridTariffStore creates a new GridTariffStore.
func NewGridTariffStore(db *DB) *GridTariffStore {
	return &GridTariffStore{db: db}
}

// Compile-time interface check.
var _ storage.GridTariffStore = (*GridTariffStore)(nil)

// ReplaceAll atomically replaces every stored grid tariff.
func (s *GridTariffStore) ReplaceAll(ctx context.Context, tariffs []*domain.GridTariff) error {
	for _, t := range tariffs {
		if t == nil || t.Country == "" || t.Provider == "" || !t.Direction.IsValid() {
			return fmt.Errorf("grid tariff: %w", storage.ErrInvalidInput)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grid_tariffs`); err != nil {
		return fmt.Errorf("clear grid tariffs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO grid_tariffs (`+gridTariffColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare grid tariff insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tariffs {
		_, err := stmt.ExecContext(ctx,
			t.Country,
			t.Provider,
			string(t.Direction),
			t.PeakUsageAvgMonthlyCost,
			t.PeakUsageKWh,
			t.DataManagementStandard,
			t.DataManagementDynamic,
			t.PublicServicesKWh,
			t.SurchargesKWh,
			t.TransmissionChargesKWh,
		)
		if err != nil {
			return fmt.Errorf("insert grid tariff: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const gridTariffColumns = `
	country, provider, direction,
	peak_usage_avg_monthly_cost, peak_usage_kwh,
	data_management_standard, data_management_dynamic,
	public_services_kwh, surcharges_kwh, transmission_charges_kwh
`

// Get retrieves one tariff. Returns ErrNotFound if not exists.
func (s *GridTariffStore) Get(ctx context.Context, country, provider string, direction domain.Direction) (*domain.GridTariff, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gridTariffColumns+`
		FROM grid_tariffs
		WHERE country = ? AND provider = ? AND direction = ?
	`, country, provider, string(direction))

	t, err := scanGridTariff(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get grid tariff: %w", err)
	}
	return t, nil
}

// List retrieves all tariffs ordered by (country, provider, direction).
func (s *GridTariffStore) List(ctx context.Context) ([]*domain.GridTariff, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gridTariffColumns+`
		FROM grid_tariffs
		ORDER BY country, provider, direction
	`)
	if err != nil {
		return nil, fmt.Errorf("list grid tariffs: %w", err)
	}
	defer rows.Close()

	var result []*domain.GridTariff
	for rows.Next() {
		t, err := scanGridTariff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grid tariff: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grid tariffs: %w", err)
	}
	return result, nil
}

func scanGridTariff(row scanner) (*domain.GridTariff, error) {
	var (
		t         domain.GridTariff
		direction string
	)
	err := row.Scan(
		&t.Country,
		&t.Provider,
		&direction,
		&t.PeakUsageAvgMonthlyCost,
		&t.PeakUsageKWh,
		&t.DataManagementStandard,
		&t.DataManagementDynamic,
		&t.PublicServicesKWh,
		&t.SurchargesKWh,
		&t.TransmissionChargesKWh,
	)
	if err != nil {
		return nil, err
	}
	t.Direction = domain.Direction(direction)
	return &t, nil
}

// ExciseTariffStore implements storage.ExciseTariffStore using SQLite.
// Brackets are stored as a JSON array.
type ExciseTariffStore struct {
	db *DB
}

// NewExciseTariffStore creates a new ExciseTariffStore.
func NewExciseTariffStore(db *DB) *ExciseTariffStore {
	return &ExciseTariffStore{db: db}
}

// Compile-time interface check.
var _ storage.ExciseTariffStore = (*ExciseTariffStore)(nil)

// ReplaceAll atomically replaces every stored excise tariff.
func (s *ExciseTariffStore) ReplaceAll(ctx context.Context, tariffs []*domain.ExciseTariff) error {
	for _, t := range tariffs {
		if t == nil || t.Country == "" {
			return fmt.Errorf("excise tariff: %w", storage.ErrInvalidInput)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM excise_tariffs`); err != nil {
		return fmt.Errorf("clear excise tariffs: %w", err)
	}

	for _, t := range tariffs {
		brackets := t.Brackets
		if brackets == nil {
			brackets = []domain.Bracket{}
		}
		raw, err := json.Marshal(brackets)
		if err != nil {
			return fmt.Errorf("encode brackets of %s: %w", t.Country, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO excise_tariffs (country, brackets, energy_contribution)
			VALUES (?, ?, ?)
		`, t.Country, string(raw), t.EnergyContribution)
		if err != nil {
			return fmt.Errorf("insert excise tariff: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves the tariff of a country. Returns ErrNotFound if not exists.
func (s *ExciseTariffStore) Get(ctx context.Context, country string) (*domain.ExciseTariff, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT country, brackets, energy_contribution
		FROM excise_tariffs
		WHERE country = ?
	`, country)

	t, err := scanExciseTariff(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get excise tariff: %w", err)
	}
	return t, nil
}

// List retrieves all tariffs ordered by country.
func (s *ExciseTariffStore) List(ctx context.Context) ([]*domain.ExciseTariff, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, brackets, energy_contribution
		FROM excise_tariffs
		ORDER BY country
	`)
	if err != nil {
		return nil, fmt.Errorf("list excise tariffs: %w", err)
	}
	defer rows.Close()

	var result []*domain.ExciseTariff
	for rows.Next() {
		t, err := scanExciseTariff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan excise tariff: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate excise tariffs: %w", err)
	}
	return result, nil
}

func scanExciseTariff(row scanner) (*domain.ExciseTariff, error) {
	var (
		t   domain.ExciseTariff
		raw string
	)
	if err := row.Scan(&t.Country, &raw, &t.EnergyContribution); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &t.Brackets); err != nil {
		return nil, fmt.Errorf("decode brackets of %s: %w", t.Country, err)
	}
	return &t, nil
}
