package models

import (
	"fmt"
	"strings"
)

// Field - инженерное направление выпускника. Единый набор значений для заявок,
// справочника, отчётов и назначения полевых администраторов.
type Field string

const (
	FieldComputer    Field = "Computer"
	FieldCivil       Field = "Civil"
	FieldElectrical  Field = "Electrical"
	FieldMechanical  Field = "Mechanical"
	FieldChemical    Field = "Chemical"
	FieldElectronics Field = "Electronics"
	FieldMining      Field = "Mining"
	FieldTextile     Field = "Textile"
	FieldMaterials   Field = "Materials"
)

var allFields = []Field{
	FieldComputer,
	FieldCivil,
	FieldElectrical,
	FieldMechanical,
	FieldChemical,
	FieldElectronics,
	FieldMining,
	FieldTextile,
	FieldMaterials,
}

// Legacy spellings still sent by older clients.
var fieldAliases = map[string]Field{
	"electronic": FieldElectronics,
	"material":   FieldMaterials,
}

// AllFields возвращает копию канонического списка направлений.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

func (f Field) Valid() bool {
	for _, known := range allFields {
		if f == known {
			return true
		}
	}
	return false
}

func (f Field) String() string {
	return string(f)
}

// ParseField нормализует ввод пользователя к каноническому значению.
func ParseField(s string) (Field, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("field is empty")
	}
	lower := strings.ToLower(trimmed)
	for _, known := range allFields {
		if strings.ToLower(string(known)) == lower {
			return known, nil
		}
	}
	if alias, ok := fieldAliases[lower]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown engineering field %q", s)
}
