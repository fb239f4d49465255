// Package telemetry reads telemetry samples exported by the simulator bridge
// as CSV, either from a finished recording or from a file still being
// written.
package telemetry

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/verte-zerg/schneider/internal/model"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing telemetry column")

type field int

const (
	fieldRPM field = iota
	fieldOilTemp
	fieldOilPressure
	fieldCoolantTemp
	fieldLat
	fieldLon
	fieldAlt
	fieldLocalTime
	fieldCount
)

var fieldNames = [fieldCount][]string{
	fieldRPM:         {"rpm"},
	fieldOilTemp:     {"oil_temp"},
	fieldOilPressure: {"oil_pressure"},
	fieldCoolantTemp: {"coolant_temp"},
	fieldLat:         {"lat", "latitude"},
	fieldLon:         {"lon", "longitude"},
	fieldAlt:         {"alt", "altitude"},
	fieldLocalTime:   {"local_time"},
}

// columns maps each field to its CSV index, -1 when absent.
type columns [fieldCount]int

func parseHeader(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var cols columns
	for f := field(0); f < fieldCount; f++ {
		cols[f] = -1
		for _, name := range fieldNames[f] {
			if i, ok := index[name]; ok {
				cols[f] = i
				break
			}
		}
		if cols[f] < 0 && f != fieldOilPressure {
			return cols, fmt.Errorf("%w: %s", ErrMissingColumn, fieldNames[f][0])
		}
	}
	return cols, nil
}

// Reader decodes samples line by line.
type Reader struct {
	br      *bufio.Reader
	cols    columns
	header  bool
	line    int
	pending string
	// follow keeps a trailing line without newline for the next read.
	follow bool
}

// NewReader reads the header from r and returns a Reader for the rows.
func NewReader(r io.Reader) (*Reader, error) {
	rd := &Reader{br: bufio.NewReader(r)}
	if err := rd.readHeader(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("telemetry is empty: missing header")
		}
		return nil, err
	}
	return rd, nil
}

func newFollowReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r), follow: true}
}

// Next returns the next sample, or io.EOF when no complete row is left.
func (r *Reader) Next() (model.TelemetrySample, error) {
	if !r.header {
		if err := r.readHeader(); err != nil {
			return model.TelemetrySample{}, err
		}
	}
	for {
		line, err := r.readLine()
		if err != nil {
			return model.TelemetrySample{}, err
		}
		if line == "" {
			continue
		}
		return r.parseRow(line)
	}
}

func (r *Reader) readHeader() error {
	for {
		line, err := r.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		record, err := splitRecord(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
		cols, err := parseHeader(record)
		if err != nil {
			return err
		}
		r.cols = cols
		r.header = true
		return nil
	}
}

func (r *Reader) readLine() (string, error) {
	s, err := r.br.ReadString('\n')
	r.pending += s
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if r.follow || r.pending == "" {
			return "", io.EOF
		}
	}
	line := strings.TrimRight(r.pending, "\r\n")
	r.pending = ""
	r.line++
	return strings.TrimSpace(line), nil
}

func (r *Reader) parseRow(line string) (model.TelemetrySample, error) {
	record, err := splitRecord(line)
	if err != nil {
		return model.TelemetrySample{}, fmt.Errorf("line %d: %w", r.line, err)
	}

	var values [fieldCount]float64
	for f := field(0); f < fieldCount; f++ {
		idx := r.cols[f]
		if idx < 0 {
			continue
		}
		if idx >= len(record) {
			return model.TelemetrySample{}, fmt.Errorf("line %d: %d fields, want at least %d", r.line, len(record), idx+1)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return model.TelemetrySample{}, fmt.Errorf("line %d: column %s: %w", r.line, fieldNames[f][0], err)
		}
		values[f] = v
	}

	return model.TelemetrySample{
		RPM:         values[fieldRPM],
		OilTemp:     values[fieldOilTemp],
		OilPressure: values[fieldOilPressure],
		CoolantTemp: values[fieldCoolantTemp],
		Latitude:    values[fieldLat],
		Longitude:   values[fieldLon],
		Altitude:    values[fieldAlt],
		LocalTime:   values[fieldLocalTime],
	}, nil
}

func splitRecord(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	return cr.Read()
}
