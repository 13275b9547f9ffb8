package sheets

import (
	"fmt"

	"github.com/dvloznov/gg-parser/internal/pipeline"
)

// HeaderRow labels the five columns written for every transaction.
var HeaderRow = []interface{}{"Fecha", "Hora", "Comercio", "Tipo Tarjeta", "Monto"}

// HeaderRange is the range HeaderRow occupies on sheetName.
func HeaderRange(sheetName string) string {
	return tabOrDefault(sheetName) + "!A1:E1"
}

// PageRange addresses up to limit data rows after skipping offset of them.
// Row 1 holds the header, so data starts at row 2.
func PageRange(sheetName string, limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 1
	}
	first := 2 + offset
	last := first + limit - 1
	return fmt.Sprintf("%s!A%d:E%d", tabOrDefault(sheetName), first, last)
}

func tabOrDefault(sheetName string) string {
	if sheetName == "" {
		return pipeline.DefaultSheetName
	}
	return sheetName
}
