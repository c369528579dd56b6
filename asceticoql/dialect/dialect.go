package dialect

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// Func names a SQL fragment template. Templates refer to their arguments
// as {0}, {1}, ...
type Func string

const (
	FuncConcat           Func = "concat"
	FuncSubstring        Func = "substring"
	FuncSubstringFrom    Func = "substring from"
	FuncLocate           Func = "locate"
	FuncLocateFrom       Func = "locate from"
	FuncTrimBoth         Func = "trim both"
	FuncTrimLeading      Func = "trim leading"
	FuncTrimTrailing     Func = "trim trailing"
	FuncTrimBothChar     Func = "trim both char"
	FuncTrimLeadingChar  Func = "trim leading char"
	FuncTrimTrailingChar Func = "trim trailing char"
	FuncLower            Func = "lower"
	FuncUpper            Func = "upper"
	FuncLength           Func = "length"
	FuncAbs              Func = "abs"
	FuncSqrt             Func = "sqrt"
	FuncMod              Func = "mod"
	FuncCurrentDate      Func = "current date"
	FuncCurrentTime      Func = "current time"
	FuncCurrentTimestamp Func = "current timestamp"
	FuncCast             Func = "cast"
	FuncXPath            Func = "xpath"
	FuncConcatCast       Func = "concat cast"
)

// Dialect supplies the vendor specific parts of generated SQL.
type Dialect interface {
	Name() string
	// PlaceholderFormat rewrites ? markers into the driver's placeholders.
	PlaceholderFormat() squirrel.PlaceholderFormat
	// PlaceholderPrefix is the prefix of numbered placeholders, or "" when
	// placeholders are not numbered.
	PlaceholderPrefix() string
	// InClauseLimit is the largest IN list, 0 for no limit.
	InClauseLimit() int
	SupportsSubselect() bool
	SupportsCountDistinctMultiColumn() bool
	BoolLiteral(b bool) string
	// Literal renders v inline. It reports false when v must be bound.
	Literal(v any) (string, bool)
	// Template returns the fragment for f, or an UnsupportedError.
	Template(f Func) (string, error)
	CastType(k types.Kind) (string, error)
	// CastsParameters reports whether bound parameters used as function
	// arguments need an explicit cast for the server to type them.
	CastsParameters() bool
	// CaseInsensitiveLike returns the native operator, or "" when LIKE must
	// compare LOWER() of both sides.
	CaseInsensitiveLike() string
}

type sqlDialect struct {
	name               string
	format             squirrel.PlaceholderFormat
	prefix             string
	inClauseLimit      int
	subselect          bool
	countDistinctMulti bool
	castsParameters    bool
	trueLiteral        string
	falseLiteral       string
	ilike              string
	timestampLiteral   string
	templates          map[Func]string
	casts              map[types.Kind]string
	quoteBackslash     bool
}

func (d *sqlDialect) Name() string {
	return d.name
}

func (d *sqlDialect) PlaceholderFormat() squirrel.PlaceholderFormat {
	return d.format
}

func (d *sqlDialect) PlaceholderPrefix() string {
	return d.prefix
}

func (d *sqlDialect) InClauseLimit() int {
	return d.inClauseLimit
}

func (d *sqlDialect) SupportsSubselect() bool {
	return d.subselect
}

func (d *sqlDialect) SupportsCountDistinctMultiColumn() bool {
	return d.countDistinctMulti
}

func (d *sqlDialect) CastsParameters() bool {
	return d.castsParameters
}

func (d *sqlDialect) CaseInsensitiveLike() string {
	return d.ilike
}

func (d *sqlDialect) BoolLiteral(b bool) string {
	if b {
		return d.trueLiteral
	}
	return d.falseLiteral
}

func (d *sqlDialect) Template(f Func) (string, error) {
	if t, ok := d.templates[f]; ok {
		if t == "" {
			return "", q.Unsupported(string(f), d.name)
		}
		return t, nil
	}
	if t, ok := standard[f]; ok {
		return t, nil
	}
	return "", q.Unsupported(string(f), d.name)
}

func (d *sqlDialect) CastType(k types.Kind) (string, error) {
	if t, ok := d.casts[k]; ok {
		return t, nil
	}
	return "", q.Unsupported("cast to "+k.String(), d.name)
}

func (d *sqlDialect) Literal(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "NULL", true
	case bool:
		return d.BoolLiteral(x), true
	case int:
		return strconv.Itoa(x), true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := types.Convert(x, types.KindInt)
		if err != nil {
			u, uerr := types.Convert(x, types.KindUint)
			if uerr != nil {
				return "", false
			}
			return strconv.FormatUint(u.(uint64), 10), true
		}
		return strconv.FormatInt(n.(int64), 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case decimal.Decimal:
		return x.String(), true
	case string:
		return d.quote(x)
	case uuid.UUID:
		return d.quote(x.String())
	case time.Time:
		if d.timestampLiteral == "" {
			return "", false
		}
		return strings.ReplaceAll(d.timestampLiteral, "{0}", x.UTC().Format("2006-01-02 15:04:05.999999")), true
	case []byte:
		if d.name != "postgres" {
			return "", false
		}
		return `'\x` + hex.EncodeToString(x) + `'::bytea`, true
	}
	return "", false
}

// quote returns a string literal. Text holding a placeholder marker is
// never inlined.
func (d *sqlDialect) quote(s string) (string, bool) {
	if strings.Contains(s, "?") {
		return "", false
	}
	if d.quoteBackslash && strings.Contains(s, `\`) {
		return "", false
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", true
}

var standard = map[Func]string{
	FuncConcat:           "({0} || {1})",
	FuncSubstring:        "SUBSTRING({0} FROM {1} FOR {2})",
	FuncSubstringFrom:    "SUBSTRING({0} FROM {1})",
	FuncLocate:           "POSITION({1} IN {0})",
	FuncTrimBoth:         "TRIM({0})",
	FuncTrimLeading:      "LTRIM({0})",
	FuncTrimTrailing:     "RTRIM({0})",
	FuncTrimBothChar:     "TRIM(BOTH {1} FROM {0})",
	FuncTrimLeadingChar:  "TRIM(LEADING {1} FROM {0})",
	FuncTrimTrailingChar: "TRIM(TRAILING {1} FROM {0})",
	FuncLower:            "LOWER({0})",
	FuncUpper:            "UPPER({0})",
	FuncLength:           "LENGTH({0})",
	FuncAbs:              "ABS({0})",
	FuncSqrt:             "SQRT({0})",
	FuncMod:              "MOD({0}, {1})",
	FuncCurrentDate:      "CURRENT_DATE",
	FuncCurrentTime:      "CURRENT_TIME",
	FuncCurrentTimestamp: "CURRENT_TIMESTAMP",
	FuncCast:             "CAST({0} AS {1})",
}

// FormatPlaceholders rewrites the ? markers of sql for d. Numbered
// placeholders start after offset.
func FormatPlaceholders(d Dialect, sql string, offset int) (string, error) {
	out, err := d.PlaceholderFormat().ReplacePlaceholders(sql)
	if err != nil {
		return "", errors.Wrap(err, "unable to format placeholders")
	}
	if offset == 0 || d.PlaceholderPrefix() == "" {
		return out, nil
	}
	return shiftPlaceholders(out, d.PlaceholderPrefix(), offset), nil
}

func shiftPlaceholders(sql, prefix string, offset int) string {
	var sb strings.Builder
	inString := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == '\'' {
			inString = !inString
		}
		if inString || !strings.HasPrefix(sql[i:], prefix) {
			sb.WriteByte(c)
			continue
		}
		j := i + len(prefix)
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			j++
		}
		if j == i+len(prefix) {
			sb.WriteByte(c)
			continue
		}
		n, _ := strconv.Atoi(sql[i+len(prefix) : j])
		sb.WriteString(prefix + strconv.Itoa(n+offset))
		i = j - 1
	}
	return sb.String()
}

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "oracle":
		return Oracle, nil
	}
	return nil, errors.Errorf("dialect: unknown dialect %q", name)
}
