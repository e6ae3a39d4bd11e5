package mysql

import "github.com/koustreak/DatBridge/internal/driver"

// typeMapping translates MySQL column type names (as reported by
// DatabaseTypeName, matched case-insensitively) into the generic taxonomy.
var typeMapping = driver.TypeMapping{
	"bit":        driver.TypeBoolean,
	"tinyint":    driver.TypeInt,
	"smallint":   driver.TypeInt,
	"mediumint":  driver.TypeInt,
	"int":        driver.TypeInt,
	"year":       driver.TypeInt,
	"bigint":     driver.TypeBigInt,
	"float":      driver.TypeDouble,
	"double":     driver.TypeDouble,
	"decimal":    driver.TypeDecimal,
	"char":       driver.TypeString,
	"varchar":    driver.TypeString,
	"enum":       driver.TypeString,
	"set":        driver.TypeString,
	"text":       driver.TypeText,
	"tinytext":   driver.TypeText,
	"mediumtext": driver.TypeText,
	"longtext":   driver.TypeText,
	"json":       driver.TypeText,
	"date":       driver.TypeDate,
	"time":       driver.TypeTime,
	"datetime":   driver.TypeTimestamp,
	"timestamp":  driver.TypeTimestamp,
}
