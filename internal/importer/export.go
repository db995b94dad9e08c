package importer

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/car-storefront-api/internal/models"
)

// Header is the column row of the template and of exported inventories
var Header = []string{
	"marca", "modelo", "ano", "km", "preco", "descricao",
	"status", "destaque", "imagem1", "imagem2", "imagem3",
}

// WriteCSV writes cars in the template layout so an export can be imported
// again. Only the first three images fit the layout.
func WriteCSV(w io.Writer, cars []*models.Car) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, car := range cars {
		record := []string{
			flatten(car.Brand),
			flatten(car.Model),
			strconv.Itoa(car.Year),
			strconv.Itoa(car.Km),
			strconv.FormatFloat(car.Price, 'f', 2, 64),
			flatten(car.Description),
			string(car.Status),
			strconv.FormatBool(car.Featured),
			"", "", "",
		}
		for i := 0; i < len(car.Images) && i < 3; i++ {
			record[colImage1+i] = flatten(car.Images[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

var flattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", `"`, "'")

// flatten keeps a value on one line and swaps double quotes, which
// SplitLine treats as quoting toggles, for single ones
func flatten(s string) string {
	return flattener.Replace(s)
}
