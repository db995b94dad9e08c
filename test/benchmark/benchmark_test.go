package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/mocks"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/validation"
)

// inventoryCSV builds a template-shaped file with n vehicles
func inventoryCSV(n int) string {
	var sb strings.Builder
	sb.WriteString("marca,modelo,ano,km,preco,descricao,status,destaque,imagem1,imagem2,imagem3\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Toyota,Corolla %d,2020,%d,\"89.900,00\",\"Revisado, único dono\",available,%t,https://img/%d.jpg,,\n",
			i, 1000*i, i%5 == 0, i)
	}
	return sb.String()
}

// BenchmarkSplitLine benchmarks quote-aware field splitting
func BenchmarkSplitLine(b *testing.B) {
	line := `Honda,Civic,2021,42000,118500.00,"Único dono, revisado na concessionária",available,true,https://img/a.jpg,https://img/b.jpg,`

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(line)))

	for i := 0; i < b.N; i++ {
		importer.SplitLine(line)
	}
}

// BenchmarkParseText benchmarks coercion of a 1000-vehicle file
func BenchmarkParseText(b *testing.B) {
	text := inventoryCSV(1000)
	now := time.Now()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))

	for i := 0; i < b.N; i++ {
		importer.ParseText(text, now)
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkParse benchmarks the reader path including BOM and encoding handling
func BenchmarkParse(b *testing.B) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, inventoryCSV(1000)...)

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		if _, err := importer.Parse(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

type discardCreator struct{}

func (discardCreator) CreateCar(ctx context.Context, input *models.CarInput) (*models.Car, error) {
	return &models.Car{Brand: input.Brand, Model: input.Model}, nil
}

// BenchmarkSubmitter benchmarks the sequential submission loop overhead
func BenchmarkSubmitter(b *testing.B) {
	preview := importer.ParseText(inventoryCSV(1000), time.Now())
	submitter := importer.NewSubmitter(discardCreator{})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := submitter.Run(context.Background(), preview.Rows, "seller-1"); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkValidation benchmarks car payload validation
func BenchmarkValidation(b *testing.B) {
	validator := validation.NewValidator()

	input := &models.CarInput{
		Brand:       "Toyota",
		Model:       "Corolla",
		Year:        2020,
		Km:          45000,
		Price:       89900,
		Description: "Único dono",
		Images:      []string{"https://img/1.jpg"},
		SellerID:    "seller-1",
		Status:      models.CarStatusAvailable,
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		validator.ValidateCar(input)
	}
}

// BenchmarkWriteCSV benchmarks the inventory export
func BenchmarkWriteCSV(b *testing.B) {
	repos := mocks.NewRepos()
	for i := 0; i < 1000; i++ {
		car := &models.Car{
			ID:          fmt.Sprintf("car-%04d", i),
			Brand:       "Fiat",
			Model:       "Uno",
			Year:        2010,
			Price:       19900,
			Description: "Econômico",
			Status:      models.CarStatusAvailable,
			Images:      []string{"https://img/uno.jpg"},
		}
		repos.Car.Create(context.Background(), car)
	}
	cars := repos.Car.All()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := importer.WriteCSV(io.Discard, cars); err != nil {
			b.Fatal(err)
		}
	}
}
