package resample

import (
	"fmt"
	"strings"

	"TFoldSV/internal/domain/models"
)

// Role is the meaning of a column in a raw OHLC(V) table.
type Role string

const (
	RoleTimestamp Role = "timestamp"
	RoleOpen      Role = "open"
	RoleHigh      Role = "high"
	RoleLow       Role = "low"
	RoleClose     Role = "close"
	RoleVolume    Role = "volume"
)

var roleAliases = map[string]Role{
	"timestamp": RoleTimestamp, "time": RoleTimestamp, "date": RoleTimestamp, "datetime": RoleTimestamp, "ts": RoleTimestamp,
	"open": RoleOpen, "o": RoleOpen,
	"high": RoleHigh, "h": RoleHigh,
	"low": RoleLow, "l": RoleLow,
	"close": RoleClose, "c": RoleClose,
	"volume": RoleVolume, "vol": RoleVolume, "v": RoleVolume,
}

// DefaultColumns returns the positional column names assumed for an n-column table.
func DefaultColumns(n int) []string {
	cols := []string{"timestamp", "open", "high", "low", "close", "volume"}
	if n < 0 || n > len(cols) {
		return nil
	}
	return cols[:n]
}

// Schema is the resolved column layout of a raw table. Value positions index into
// RawTable.Values, which excludes the timestamp column.
type Schema struct {
	Columns   []Role
	open      int
	high      int
	low       int
	close     int
	volume    int
	HasVolume bool
}

// NewSchema validates column names once and maps them to roles. Exactly 5 (OHLC) or
// 6 (OHLCV) columns, timestamp included, are accepted.
func NewSchema(names []string) (Schema, error) {
	if len(names) != 5 && len(names) != 6 {
		return Schema{}, fmt.Errorf("%w: expected 5 or 6 columns, got %d", models.ErrSchema, len(names))
	}
	s := Schema{Columns: make([]Role, 0, len(names)), volume: -1}
	seen := make(map[Role]bool, len(names))
	pos := 0
	for _, name := range names {
		role, ok := roleAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return Schema{}, fmt.Errorf("%w: unknown column %q", models.ErrSchema, name)
		}
		if seen[role] {
			return Schema{}, fmt.Errorf("%w: duplicate column role %q", models.ErrSchema, role)
		}
		seen[role] = true
		s.Columns = append(s.Columns, role)
		if role == RoleTimestamp {
			continue
		}
		switch role {
		case RoleOpen:
			s.open = pos
		case RoleHigh:
			s.high = pos
		case RoleLow:
			s.low = pos
		case RoleClose:
			s.close = pos
		case RoleVolume:
			s.volume = pos
			s.HasVolume = true
		}
		pos++
	}
	for _, r := range []Role{RoleTimestamp, RoleOpen, RoleHigh, RoleLow, RoleClose} {
		if !seen[r] {
			return Schema{}, fmt.Errorf("%w: missing %s column", models.ErrSchema, r)
		}
	}
	return s, nil
}

// ResolveSchema picks the column names for raw according to opts: positional defaults
// when AutoNames is set, explicit ColNames when given, the table's own names otherwise.
func ResolveSchema(columns []string, opts Options) (Schema, error) {
	n := len(columns)
	if n != 5 && n != 6 {
		return Schema{}, fmt.Errorf("%w: expected 5 or 6 columns, got %d", models.ErrSchema, n)
	}
	switch {
	case opts.AutoNames:
		return NewSchema(DefaultColumns(n))
	case len(opts.ColNames) > 0:
		if len(opts.ColNames) != n {
			return Schema{}, fmt.Errorf("%w: %d column names for %d columns", models.ErrSchema, len(opts.ColNames), n)
		}
		return NewSchema(opts.ColNames)
	default:
		return NewSchema(columns)
	}
}

func (s Schema) bar(row []float64) (o, h, l, c, v float64) {
	o, h, l, c = row[s.open], row[s.high], row[s.low], row[s.close]
	if s.HasVolume {
		v = row[s.volume]
	}
	return
}
