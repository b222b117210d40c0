package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/storage"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TARIFFS_CONFIG", "")
	t.Setenv("STORE_BACKEND", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--use-memory"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDerive_NothingStored(t *testing.T) {
	out, err := execute(t, "", "derive", "--month", "2023-05")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing derived")

	deriveMonth = ""
}

func TestDerive_RefusesOpenMonth(t *testing.T) {
	next := derivation.MonthOf(time.Now()).Next()
	_, err := execute(t, "", "derive", "--month", next.String())
	assert.ErrorIs(t, err, derivation.ErrMonthNotElapsed)

	deriveMonth = ""
}

func TestPrice_ExciseFromRefData(t *testing.T) {
	dir := t.TempDir()
	excise := filepath.Join(dir, "excise.toml")
	require.NoError(t, os.WriteFile(excise, []byte(`
[[excise]]
country = "BE"
energy_contribution = 0.0019261
  [[excise.brackets]]
  lower_bound = 0
  rate = 0.0425755
  [[excise.brackets]]
  lower_bound = 3000
  rate = 0.04748
`), 0o644))
	t.Setenv("TARIFFS_CONFIG", "")

	cfgPath := filepath.Join(dir, "tariffs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("refdata:\n  excise: "+excise+"\n"), 0o644))

	out, err := execute(t, `{"COUNTRY":"BE","ENERGY":1000}`, "--config", cfgPath, "price", "--route", "excise")
	require.NoError(t, err)
	assert.Contains(t, out, `"EXCISE_COST"`)

	cfgFile = ""
	priceRoute = "endprice"
}

func TestExport_Markdown(t *testing.T) {
	out, err := execute(t, "", "export", "--month", "2023-05", "--format", "md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Index Statement 2023-05"))
	assert.Contains(t, out, "No monthly values available.")
}

func TestRefdataLoad_BadGridFlag(t *testing.T) {
	_, err := execute(t, "", "refdata", "load", "--grid", "no-separator")
	assert.ErrorContains(t, err, "provider=path")
	refdataGrid = nil
}

func TestCatalog_UnknownID(t *testing.T) {
	_, err := execute(t, "", "catalog", "--id", "0OIl")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	catalogID = ""
}
