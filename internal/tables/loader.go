package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/castelao/bufr/internal/descriptor"
)

// parseFXY splits a 6-character "FXXYYY" descriptor code, e.g. "307080", into
// its F, X, Y parts. This is the textual form used by the WMO catalogue
// CSVs, distinct from the 2-byte wire form Parse/Encode operate on.
func parseFXY(s string) (f, x, y uint8, err error) {
	s = strings.TrimSpace(s)
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("tables: malformed FXY code %q", s)
	}
	fv, err := strconv.Atoi(s[0:1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("tables: malformed FXY code %q: %w", s, err)
	}
	xv, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("tables: malformed FXY code %q: %w", s, err)
	}
	yv, err := strconv.Atoi(s[3:6])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("tables: malformed FXY code %q: %w", s, err)
	}
	return uint8(fv), uint8(xv), uint8(yv), nil
}

// col resolves a header name to a column index, -1 if absent.
func col(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// loadTableB decodes one Table B CSV (the "RecordF1" shape in the original
// tabular format: ClassNo, ClassName_en, FXY, ElementName_en, Note_en,
// BUFR_Unit, BUFR_Scale, BUFR_ReferenceValue, BUFR_DataWidth_Bits, Status)
// into a slice of ElementDescriptor, one per row.
func loadTableB(r io.Reader) ([]ElementDescriptor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("tables: reading Table B header: %w", err)
	}

	fxyCol := col(header, "FXY")
	nameCol := col(header, "ElementName_en")
	unitCol := col(header, "BUFR_Unit")
	scaleCol := col(header, "BUFR_Scale")
	refCol := col(header, "BUFR_ReferenceValue")
	widthCol := col(header, "BUFR_DataWidth_Bits")
	statusCol := col(header, "Status")
	if fxyCol < 0 {
		return nil, fmt.Errorf("tables: Table B CSV missing FXY column")
	}

	var out []ElementDescriptor
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tables: reading Table B row: %w", err)
		}
		f, x, y, err := parseFXY(row[fxyCol])
		if err != nil {
			return nil, err
		}
		if f != 0 {
			continue // Table B holds only F=0 element rows
		}
		ed := ElementDescriptor{X: x, Y: y}
		if nameCol >= 0 {
			ed.Name = strings.TrimSpace(row[nameCol])
		}
		if unitCol >= 0 {
			u, other, _ := parseUnit(strings.TrimSpace(row[unitCol]))
			ed.Unit = u
			ed.UnitText = other
		}
		if scaleCol >= 0 && row[scaleCol] != "" {
			v, err := strconv.Atoi(strings.TrimSpace(row[scaleCol]))
			if err != nil {
				return nil, fmt.Errorf("tables: bad scale for %s: %w", row[fxyCol], err)
			}
			ed.Scale = v
		}
		if refCol >= 0 && row[refCol] != "" {
			v, err := strconv.ParseInt(strings.TrimSpace(row[refCol]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("tables: bad reference for %s: %w", row[fxyCol], err)
			}
			ed.Reference = v
		}
		if widthCol >= 0 && row[widthCol] != "" {
			v, err := strconv.Atoi(strings.TrimSpace(row[widthCol]))
			if err != nil {
				return nil, fmt.Errorf("tables: bad data width for %s: %w", row[fxyCol], err)
			}
			ed.DataWidth = v
		}
		if statusCol >= 0 {
			ed.Status = strings.TrimSpace(row[statusCol])
		}
		out = append(out, ed)
	}
	return out, nil
}

// loadTableD decodes one Table D CSV (the "RecordF3" shape: Category,
// CategoryOfSequences_en, FXY1, Title_en, SubTitle_en, FXY2,
// ElementName_en, ElementDescription_en, Note_en, Status). Rows sharing the
// same FXY1 aggregate into a single Sequence, children ordered by row
// order as they appear in the file.
func loadTableD(r io.Reader) ([]Sequence, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("tables: reading Table D header: %w", err)
	}

	fxy1Col := col(header, "FXY1")
	titleCol := col(header, "Title_en")
	fxy2Col := col(header, "FXY2")
	if fxy1Col < 0 || fxy2Col < 0 {
		return nil, fmt.Errorf("tables: Table D CSV missing FXY1/FXY2 columns")
	}

	order := make([]string, 0)
	byKey := make(map[string]*Sequence)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tables: reading Table D row: %w", err)
		}
		_, x1, y1, err := parseFXY(row[fxy1Col])
		if err != nil {
			return nil, err
		}
		f2, x2, y2, err := parseFXY(row[fxy2Col])
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%d-%d", x1, y1)
		seq, ok := byKey[key]
		if !ok {
			seq = &Sequence{X: x1, Y: y1}
			if titleCol >= 0 {
				seq.Title = strings.TrimSpace(row[titleCol])
			}
			byKey[key] = seq
			order = append(order, key)
		}
		seq.Children = append(seq.Children, descriptor.Descriptor{F: f2, X: x2, Y: y2})
	}

	out := make([]Sequence, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}
