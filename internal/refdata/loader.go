package refdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/storage"
)

// GridSource names one operator workbook.
type GridSource struct {
	Provider string `yaml:"provider"`
	Path     string `yaml:"path"`
}

// Sources lists the reference files to load.
type Sources struct {
	Grid   []GridSource `yaml:"grid"`
	Excise string       `yaml:"excise"`
}

// Empty reports whether no files are configured.
func (s Sources) Empty() bool {
	return len(s.Grid) == 0 && s.Excise == ""
}

// Loader replaces stored tariffs with the contents of reference files.
type Loader struct {
	grid   storage.GridTariffStore
	excise storage.ExciseTariffStore
	logger *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(grid storage.GridTariffStore, excise storage.ExciseTariffStore, logger *zap.Logger) *Loader {
	return &Loader{grid: grid, excise: excise, logger: logging.OrNop(logger)}
}

// Load reads every configured file before writing, so a bad file leaves
// the stores untouched. A set with no grid files keeps stored grid tariffs,
// likewise for excise.
func (l *Loader) Load(ctx context.Context, src Sources) error {
	grid := make([]*domain.GridTariff, 0, len(src.Grid))
	for _, g := range src.Grid {
		t, err := ReadGridFile(g.Path, g.Provider)
		if err != nil {
			return err
		}
		grid = append(grid, t)
	}

	var excise []*domain.ExciseTariff
	if src.Excise != "" {
		var err error
		if excise, err = ReadExciseFile(src.Excise); err != nil {
			return err
		}
	}

	if len(grid) > 0 {
		if err := l.grid.ReplaceAll(ctx, grid); err != nil {
			return fmt.Errorf("replace grid tariffs: %w", err)
		}
		l.logger.Info("grid tariffs loaded", zap.Int("count", len(grid)))
	}
	if len(excise) > 0 {
		if err := l.excise.ReplaceAll(ctx, excise); err != nil {
			return fmt.Errorf("replace excise tariffs: %w", err)
		}
		l.logger.Info("excise tariffs loaded", zap.Int("count", len(excise)))
	}
	return nil
}
