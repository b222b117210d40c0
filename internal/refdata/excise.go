package refdata

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

type exciseFile struct {
	Excise []exciseEntry `toml:"excise"`
}

type exciseEntry struct {
	Country            string         `toml:"country"`
	EnergyContribution float64        `toml:"energy_contribution"`
	Brackets           []bracketEntry `toml:"brackets"`
}

type bracketEntry struct {
	LowerBound float64 `toml:"lower_bound"`
	Rate       float64 `toml:"rate"`
}

// ReadExcise decodes excise tables from TOML:
//
//	[[excise]]
//	country = "BE"
//	energy_contribution = 0.0019261
//	  [[excise.brackets]]
//	  lower_bound = 0
//	  rate = 0.0425755
func ReadExcise(r io.Reader) ([]*domain.ExciseTariff, error) {
	var doc exciseFile
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: decode excise: %w", storage.ErrInvalidInput, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown excise key %q", storage.ErrInvalidInput, undecoded[0].String())
	}

	seen := make(map[string]bool, len(doc.Excise))
	out := make([]*domain.ExciseTariff, 0, len(doc.Excise))
	for i, e := range doc.Excise {
		country := strings.ToUpper(strings.TrimSpace(e.Country))
		if country == "" {
			return nil, fmt.Errorf("%w: excise[%d]: country is required", storage.ErrInvalidInput, i)
		}
		if seen[country] {
			return nil, fmt.Errorf("%w: excise[%d]: duplicate country %s", storage.ErrInvalidInput, i, country)
		}
		if len(e.Brackets) == 0 {
			return nil, fmt.Errorf("%w: excise[%d]: %s has no brackets", storage.ErrInvalidInput, i, country)
		}
		seen[country] = true
		brackets := make([]domain.Bracket, len(e.Brackets))
		for j, b := range e.Brackets {
			brackets[j] = domain.Bracket{LowerBound: b.LowerBound, Rate: b.Rate}
		}
		out = append(out, &domain.ExciseTariff{
			Country:            country,
			Brackets:           brackets,
			EnergyContribution: e.EnergyContribution,
		})
	}
	return out, nil
}

// ReadExciseFile is ReadExcise for a file on disk.
func ReadExciseFile(path string) ([]*domain.ExciseTariff, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open excise file: %w", err)
	}
	defer f.Close()

	tariffs, err := ReadExcise(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tariffs, nil
}
