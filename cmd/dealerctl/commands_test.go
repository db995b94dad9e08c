package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryCSV = `marca,modelo,ano,km,preco,descricao
Toyota,Corolla,2022,35000,125000.00,Revisado
Chevrolet,Onix,2023,1000,89000,Zero km
Honda,Civic,2021
`

// execute runs dealerctl with args and returns everything it printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	// cobra keeps flag values between executions
	_ = importCmd.Flags().Set("seller", "")
	_ = importCmd.Flags().Set("dry-run", "false")
	_ = templateCmd.Flags().Set("output", "")
	backendURL, token, verbose = "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeBackend struct {
	mu     sync.Mutex
	inputs []models.CarInput
	auth   []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/api/admin/cars" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var input models.CarInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.inputs = append(b.inputs, input)
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if input.Brand == "Chevrolet" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Seller not found"}`))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(models.Car{ID: "car-1", Brand: input.Brand, Model: input.Model})
}

func (b *fakeBackend) requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs)
}

func TestImport_DryRunOnlyPrintsPreview(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	out, err := execute(t, "import", "--backend", srv.URL, "--seller", "seller-1", "--dry-run",
		writeCSV(t, "estoque.csv", inventoryCSV))
	require.NoError(t, err)

	assert.Contains(t, out, "Corolla")
	assert.Contains(t, out, "Onix")
	assert.Contains(t, out, "2 vehicles ready to import")
	assert.Contains(t, out, "Skipped line 4: expected at least 6 fields, got 3 (3 fields)")
	assert.NotContains(t, out, "vehicles imported")
	assert.Equal(t, 0, backend.requests(), "a dry run never contacts the backend")
}

func TestImport_PrintsOutcomeAndRowErrors(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	out, err := execute(t, "import", "--backend", srv.URL, "--token", "tok", "--seller", "seller-1",
		writeCSV(t, "estoque.csv", inventoryCSV))
	require.NoError(t, err)

	assert.Contains(t, out, "1 of 2 vehicles imported")
	assert.Contains(t, out, "1 errors:")
	assert.Contains(t, out, "  Line 3 (Chevrolet Onix): Seller not found")

	require.Equal(t, 2, backend.requests(), "each row is submitted exactly once")
	for i, input := range backend.inputs {
		assert.Equal(t, "seller-1", input.SellerID)
		assert.Equal(t, "Bearer tok", backend.auth[i])
	}
	assert.Equal(t, []string{importer.DefaultPlaceholderImage}, backend.inputs[0].Images)
}

func TestImport_RequiresSeller(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	_, err := execute(t, "import", "--backend", srv.URL, writeCSV(t, "estoque.csv", inventoryCSV))
	require.Error(t, err)
	assert.Equal(t, "select a seller before importing", err.Error())
	assert.Equal(t, 0, backend.requests())
}

func TestImport_RejectsNonCSV(t *testing.T) {
	_, err := execute(t, "import", "--seller", "seller-1", writeCSV(t, "estoque.xlsx", inventoryCSV))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "please select a CSV file")
}

func TestTemplate_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelo.csv")

	out, err := execute(t, "template", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Template written to "+path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, importer.Template, written)
}

func TestTemplate_Stdout(t *testing.T) {
	out, err := execute(t, "template")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "marca,modelo,ano,km,preco,descricao"))
}
