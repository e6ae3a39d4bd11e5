package postgres

import "github.com/koustreak/DatBridge/internal/driver"

// typeMapping translates pg catalog type names into the generic taxonomy.
// Keys are the names pgtype reports for the column's OID.
var typeMapping = driver.TypeMapping{
	"bool":        driver.TypeBoolean,
	"int2":        driver.TypeInt,
	"int4":        driver.TypeInt,
	"int8":        driver.TypeBigInt,
	"float4":      driver.TypeDouble,
	"float8":      driver.TypeDouble,
	"numeric":     driver.TypeDecimal,
	"money":       driver.TypeDecimal,
	"varchar":     driver.TypeString,
	"bpchar":      driver.TypeString,
	"name":        driver.TypeString,
	"uuid":        driver.TypeString,
	"text":        driver.TypeText,
	"json":        driver.TypeText,
	"jsonb":       driver.TypeText,
	"xml":         driver.TypeText,
	"date":        driver.TypeDate,
	"time":        driver.TypeTime,
	"timetz":      driver.TypeTime,
	"timestamp":   driver.TypeTimestamp,
	"timestamptz": driver.TypeTimestamp,
}
