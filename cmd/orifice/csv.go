package main

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/orifice"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReadCurve reads a boundary curve stored as one "x,y,z" row per point.
// Lines starting with '#' are ignored.
func ReadCurve(r io.Reader) ([]r3.Vec, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read curve")
	}
	curve := make([]r3.Vec, 0, len(records))
	for i, rec := range records {
		var xyz [3]float64
		for j, field := range rec {
			xyz[j], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "curve row %d", i+1)
			}
		}
		curve = append(curve, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return curve, nil
}

// WriteRegions writes one "label,x,y,z,area" row per region after a header row.
func WriteRegions(w io.Writer, regions []orifice.Region) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"label", "x", "y", "z", "area"})
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range regions {
		cw.Write([]string{
			r.Label,
			format(r.Position.X),
			format(r.Position.Y),
			format(r.Position.Z),
			format(r.Area),
		})
	}
	cw.Flush()
	return cw.Error()
}
