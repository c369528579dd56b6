package dialect

import (
	"github.com/Masterminds/squirrel"

	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// Postgres renders $N placeholders, || concatenation and native ILIKE.
var Postgres Dialect = &sqlDialect{
	name:             "postgres",
	format:           squirrel.Dollar,
	prefix:           "$",
	subselect:        true,
	castsParameters:  true,
	trueLiteral:      "TRUE",
	falseLiteral:     "FALSE",
	ilike:            "ILIKE",
	timestampLiteral: "TIMESTAMP '{0}'",
	templates: map[Func]string{
		FuncLocateFrom: "(POSITION({1} IN SUBSTRING({0} FROM {2})) - 1 + {2})",
		FuncLength:     "CHAR_LENGTH({0})",
		FuncXPath:      "(xpath('/*/{1}/text()', {0}))[1]::text",
		FuncConcatCast: "CAST({0} AS VARCHAR)",
	},
	casts: map[types.Kind]string{
		types.KindBool:    "BOOLEAN",
		types.KindUint:    "BIGINT",
		types.KindInt:     "BIGINT",
		types.KindFloat:   "DOUBLE PRECISION",
		types.KindDecimal: "NUMERIC",
		types.KindString:  "VARCHAR",
		types.KindTime:    "TIMESTAMP",
		types.KindBytes:   "BYTEA",
		types.KindUUID:    "UUID",
	},
}

// MySQL renders ? placeholders, CONCAT() and counts distinct column lists
// natively.
var MySQL Dialect = &sqlDialect{
	name:               "mysql",
	format:             squirrel.Question,
	subselect:          true,
	countDistinctMulti: true,
	trueLiteral:        "1",
	falseLiteral:       "0",
	timestampLiteral:   "TIMESTAMP '{0}'",
	quoteBackslash:     true,
	templates: map[Func]string{
		FuncConcat:        "CONCAT({0}, {1})",
		FuncSubstring:     "SUBSTRING({0}, {1}, {2})",
		FuncSubstringFrom: "SUBSTRING({0}, {1})",
		FuncLocate:        "LOCATE({1}, {0})",
		FuncLocateFrom:    "LOCATE({1}, {0}, {2})",
		FuncLength:        "CHAR_LENGTH({0})",
		FuncXPath:         "ExtractValue({0}, '/*/{1}')",
		FuncConcatCast:    "CAST({0} AS CHAR)",
	},
	casts: map[types.Kind]string{
		types.KindBool:    "SIGNED",
		types.KindUint:    "UNSIGNED",
		types.KindInt:     "SIGNED",
		types.KindFloat:   "DOUBLE",
		types.KindDecimal: "DECIMAL(65,30)",
		types.KindString:  "CHAR",
		types.KindTime:    "DATETIME",
		types.KindBytes:   "BINARY",
		types.KindUUID:    "CHAR(36)",
	},
}

// SQLite renders ? placeholders and has neither XPath nor LOCATE with a
// start position.
var SQLite Dialect = &sqlDialect{
	name:         "sqlite",
	format:       squirrel.Question,
	subselect:    true,
	trueLiteral:  "1",
	falseLiteral: "0",
	templates: map[Func]string{
		FuncSubstring:        "SUBSTR({0}, {1}, {2})",
		FuncSubstringFrom:    "SUBSTR({0}, {1})",
		FuncLocate:           "INSTR({0}, {1})",
		FuncTrimBothChar:     "TRIM({0}, {1})",
		FuncTrimLeadingChar:  "LTRIM({0}, {1})",
		FuncTrimTrailingChar: "RTRIM({0}, {1})",
		FuncMod:              "({0} % {1})",
		FuncConcatCast:       "CAST({0} AS TEXT)",
	},
	casts: map[types.Kind]string{
		types.KindBool:    "INTEGER",
		types.KindUint:    "INTEGER",
		types.KindInt:     "INTEGER",
		types.KindFloat:   "REAL",
		types.KindDecimal: "NUMERIC",
		types.KindString:  "TEXT",
		types.KindTime:    "TEXT",
		types.KindBytes:   "BLOB",
		types.KindUUID:    "TEXT",
	},
}

// Oracle renders :N placeholders and limits IN lists to 1000 values.
var Oracle Dialect = &sqlDialect{
	name:             "oracle",
	format:           squirrel.Colon,
	prefix:           ":",
	inClauseLimit:    1000,
	subselect:        true,
	trueLiteral:      "1",
	falseLiteral:     "0",
	timestampLiteral: "TIMESTAMP '{0}'",
	templates: map[Func]string{
		FuncSubstring:     "SUBSTR({0}, {1}, {2})",
		FuncSubstringFrom: "SUBSTR({0}, {1})",
		FuncLocate:        "INSTR({0}, {1})",
		FuncLocateFrom:    "INSTR({0}, {1}, {2})",
		FuncXPath:         "EXTRACTVALUE({0}, '/*/{1}')",
		FuncCurrentTime:   "",
		FuncConcatCast:    "TO_CHAR({0})",
	},
	casts: map[types.Kind]string{
		types.KindBool:    "NUMBER(1)",
		types.KindUint:    "NUMBER(20)",
		types.KindInt:     "NUMBER(19)",
		types.KindFloat:   "BINARY_DOUBLE",
		types.KindDecimal: "NUMBER",
		types.KindString:  "VARCHAR2(4000)",
		types.KindTime:    "TIMESTAMP",
		types.KindBytes:   "BLOB",
		types.KindUUID:    "VARCHAR2(36)",
	},
}
