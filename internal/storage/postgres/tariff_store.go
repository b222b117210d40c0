package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// GridTariffStore implements storage.GridTariffStore using PostgreSQL.
type GridTariffStore struct {
	pool *Pool
}

// NewGridTariffStore creates a new GridTariffStore.
func NewGridTariffStore(pool *Pool) *GridTariffStore {
	return &GridTariffStore{pool: pool}
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM grid_tariffs`); err != nil {
		return fmt.Errorf("clear grid tariffs: %w", err)
	}

	query := `
		INSERT INTO grid_tariffs (
			country, provider, direction,
			peak_usage_avg_monthly_cost, peak_usage_kwh,
			data_management_standard, data_management_dynamic,
			public_services_kwh, surcharges_kwh, transmission_charges_kwh
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, t := range tariffs {
		_, err := tx.Exec(ctx, query,
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

	if err := tx.Commit(ctx); err != nil {
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
	query := `SELECT ` + gridTariffColumns + `
		FROM grid_tariffs
		WHERE country = $1 AND provider = $2 AND direction = $3
	`

	row := s.pool.QueryRow(ctx, query, country, provider, string(direction))
	t, err := scanGridTariff(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get grid tariff: %w", err)
	}
	return t, nil
}

// List retrieves all tariffs ordered by (country, provider, direction).
func (s *GridTariffStore) List(ctx context.Context) ([]*domain.GridTariff, error) {
	query := `SELECT ` + gridTariffColumns + `
		FROM grid_tariffs
		ORDER BY country, provider, direction
	`

	rows, err := s.pool.Query(ctx, query)
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

// scanGridTariff scans a single row into GridTariff.
func scanGridTariff(row pgx.Row) (*domain.GridTariff, error) {
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

// ExciseTariffStore implements storage.ExciseTariffStore using PostgreSQL.
type ExciseTariffStore struct {
	pool *Pool
}

// NewExciseTariffStore creates a new ExciseTariffStore.
func NewExciseTariffStore(pool *Pool) *ExciseTariffStore {
	return &ExciseTariffStore{pool: pool}
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM excise_tariffs`); err != nil {
		return fmt.Errorf("clear excise tariffs: %w", err)
	}

	query := `
		INSERT INTO excise_tariffs (country, brackets, energy_contribution)
		VALUES ($1, $2, $3)
	`

	for _, t := range tariffs {
		brackets := t.Brackets
		if brackets == nil {
			brackets = []domain.Bracket{}
		}
		if _, err := tx.Exec(ctx, query, t.Country, brackets, t.EnergyContribution); err != nil {
			return fmt.Errorf("insert excise tariff: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves the tariff of a country. Returns ErrNotFound if not exists.
func (s *ExciseTariffStore) Get(ctx context.Context, country string) (*domain.ExciseTariff, error) {
	query := `
		SELECT country, brackets, energy_contribution
		FROM excise_tariffs
		WHERE country = $1
	`

	row := s.pool.QueryRow(ctx, query, country)
	t, err := scanExciseTariff(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get excise tariff: %w", err)
	}
	return t, nil
}

// List retrieves all tariffs ordered by country.
func (s *ExciseTariffStore) List(ctx context.Context) ([]*domain.ExciseTariff, error) {
	query := `
		SELECT country, brackets, energy_contribution
		FROM excise_tariffs
		ORDER BY country
	`

	rows, err := s.pool.Query(ctx, query)
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

// scanExciseTariff scans a single row into ExciseTariff. The JSONB column is
// decoded by pgx straight into the bracket slice.
func scanExciseTariff(row pgx.Row) (*domain.ExciseTariff, error) {
	var t domain.ExciseTariff

	if err := row.Scan(&t.Country, &t.Brackets, &t.EnergyContribution); err != nil {
		return nil, err
	}
	return &t, nil
}
