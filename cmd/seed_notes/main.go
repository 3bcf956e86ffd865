// seed_notes genera un script SQL con notas fiscales de prueba a partir de una exportación CSV
// en ISO-8859-1 (una fila por línea de nota, separador ';').
//
// Uso: go run ./cmd/seed_notes [ruta/notas.csv] [salida.sql]
// Columnas: access_key;number;series;issue_date;operation;counterparty_tax_id;counterparty_name;
// product_code;description;unit_measure;quantity;unit_value
// Por defecto escribe testdata/seed_notes.sql en la raíz del módulo.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const columns = 12

type noteRow struct {
	accessKey, number, series, operation string
	taxID, counterparty                  string
	issueDate                            time.Time
	lines                                []lineRow
}

type lineRow struct {
	code, description, unit string
	quantity, unitValue     decimal.Decimal
}

func main() {
	csvPath := "notas.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	outPath := filepath.Join(findModuleRoot(), "testdata", "seed_notes.sql")
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	notes, err := readNotes(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	lines := writeSQL(out, notes)
	fmt.Printf("Generado %s: %d notas, %d líneas\n", outPath, len(notes), lines)
}

// readNotes agrupa las filas por clave de acceso conservando el orden de aparición.
func readNotes(r io.Reader) ([]*noteRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = columns

	var (
		order []*noteRow
		byKey = make(map[string]*noteRow)
	)
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}

		key := rec[0]
		n, ok := byKey[key]
		if !ok {
			issued, err := time.Parse("2006-01-02", rec[3])
			if err != nil {
				return nil, fmt.Errorf("nota %s: fecha %q: %w", key, rec[3], err)
			}
			op := strings.ToLower(rec[4])
			if op != "inbound" && op != "outbound" {
				return nil, fmt.Errorf("nota %s: operación %q", key, rec[4])
			}
			n = &noteRow{
				accessKey: key, number: rec[1], series: rec[2], issueDate: issued,
				operation: op, taxID: rec[5], counterparty: rec[6],
			}
			byKey[key] = n
			order = append(order, n)
		}

		// Formato numérico local: coma decimal
		qty, err := decimal.NewFromString(strings.ReplaceAll(rec[10], ",", "."))
		if err != nil {
			return nil, fmt.Errorf("nota %s: cantidad %q: %w", key, rec[10], err)
		}
		unitValue, err := decimal.NewFromString(strings.ReplaceAll(rec[11], ",", "."))
		if err != nil {
			return nil, fmt.Errorf("nota %s: valor unitario %q: %w", key, rec[11], err)
		}
		n.lines = append(n.lines, lineRow{
			code: rec[7], description: rec[8], unit: rec[9], quantity: qty, unitValue: unitValue,
		})
	}
	return order, nil
}

func writeSQL(out io.Writer, notes []*noteRow) int {
	fmt.Fprintln(out, "-- Notas fiscales de desarrollo (estado Pending)")
	fmt.Fprintln(out, "-- Generado por cmd/seed_notes")
	fmt.Fprintln(out)

	total := 0
	for _, n := range notes {
		noteID := uuid.New().String()
		value := decimal.Zero
		for _, l := range n.lines {
			value = value.Add(l.quantity.Mul(l.unitValue))
		}
		fmt.Fprintf(out, "INSERT INTO fiscal_notes (id, number, series, access_key, counterparty_tax_id, counterparty_name, issue_date, total_value, operation_kind, status)\n")
		fmt.Fprintf(out, "VALUES ('%s', '%s', '%s', '%s', '%s', '%s', '%s', %s, '%s', 'Pending');\n",
			noteID, escapeSQL(n.number), escapeSQL(n.series), escapeSQL(n.accessKey),
			escapeSQL(n.taxID), escapeSQL(n.counterparty), n.issueDate.Format(time.RFC3339),
			value.StringFixed(2), n.operation)
		for i, l := range n.lines {
			fmt.Fprintf(out, "INSERT INTO fiscal_note_lines (id, note_id, line_number, product_code, description, unit_measure, quantity, unit_value, line_total)\n")
			fmt.Fprintf(out, "VALUES ('%s', '%s', %d, '%s', '%s', '%s', %s, %s, %s);\n",
				uuid.New().String(), noteID, i+1, escapeSQL(l.code), escapeSQL(l.description),
				escapeSQL(l.unit), l.quantity.String(), l.unitValue.String(),
				l.quantity.Mul(l.unitValue).StringFixed(2))
			total++
		}
		fmt.Fprintln(out)
	}
	return total
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
