package models

import "fmt"

type Category string

const (
	CategoryHealth    Category = "SALUD"
	CategoryHygiene   Category = "HIGIENE"
	CategoryGroceries Category = "COMESTIBLES"
	CategoryOther     Category = "OTROS"
)

// Categories lists every category with its display label, in menu order.
var Categories = []struct {
	Code  Category `json:"code"`
	Label string   `json:"label"`
}{
	{CategoryHealth, "Salud y Belleza"},
	{CategoryHygiene, "Higiene"},
	{CategoryGroceries, "Comestibles"},
	{CategoryOther, "Otros"},
}

func ParseCategory(raw string) (Category, error) {
	if raw == "" {
		return CategoryOther, nil
	}
	for _, c := range Categories {
		if string(c.Code) == raw {
			return c.Code, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}
