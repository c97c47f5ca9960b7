package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadJobsCSV_SkipsHeaderAndBlankRows(t *testing.T) {
	path := writeCSV(t, "company_name,seed_url\nAcme,https://acme.test\nGlobex,\n")

	jobs, err := readJobsCSV(path)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Acme", jobs[0].CompanyName)
	assert.Equal(t, "https://acme.test", jobs[0].SeedURL)
	assert.Equal(t, "Globex", jobs[1].CompanyName)
	assert.Empty(t, jobs[1].SeedURL)
}

func TestReadJobsCSV_NoHeader(t *testing.T) {
	path := writeCSV(t, "Acme,https://acme.test\n")

	jobs, err := readJobsCSV(path)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Acme", jobs[0].CompanyName)
}

func TestReadJobsCSV_NameOnlyColumn(t *testing.T) {
	path := writeCSV(t, "name\nAcme\n")

	jobs, err := readJobsCSV(path)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Acme", jobs[0].CompanyName)
}

func TestReadJobsCSV_MissingFile(t *testing.T) {
	_, err := readJobsCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
