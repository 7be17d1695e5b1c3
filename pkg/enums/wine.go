package enums

import "fmt"

// WineType classifies an item by how it is made.
type WineType string

const (
	WineTypeSparkling WineType = "sparkling"
	WineTypeFortified WineType = "fortified"
	WineTypeDessert   WineType = "dessert"
	WineTypeRed       WineType = "red"
	WineTypeWhite     WineType = "white"
	WineTypeRose      WineType = "rose"
)

var validWineTypes = []WineType{
	WineTypeSparkling,
	WineTypeFortified,
	WineTypeDessert,
	WineTypeRed,
	WineTypeWhite,
	WineTypeRose,
}

func (w WineType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WineType.
func (w WineType) IsValid() bool {
	for _, candidate := range validWineTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWineType converts raw input into a WineType.
func ParseWineType(value string) (WineType, error) {
	for _, candidate := range validWineTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wine type %q", value)
}

// Sweetness is the residual sugar level of a style.
type Sweetness string

const (
	SweetnessDry    Sweetness = "dry"
	SweetnessOffDry Sweetness = "off-dry"
	SweetnessSweet  Sweetness = "sweet"
)

var validSweetness = []Sweetness{
	SweetnessDry,
	SweetnessOffDry,
	SweetnessSweet,
}

func (s Sweetness) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Sweetness.
func (s Sweetness) IsValid() bool {
	for _, candidate := range validSweetness {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSweetness converts raw input into a Sweetness.
func ParseSweetness(value string) (Sweetness, error) {
	for _, candidate := range validSweetness {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sweetness %q", value)
}

// WineBody is the weight of a style on the palate.
type WineBody string

const (
	WineBodyLight  WineBody = "light"
	WineBodyMedium WineBody = "medium"
	WineBodyFull   WineBody = "full"
)

var validWineBodies = []WineBody{
	WineBodyLight,
	WineBodyMedium,
	WineBodyFull,
}

func (b WineBody) String() string {
	return string(b)
}

// IsValid reports whether the value is a known WineBody.
func (b WineBody) IsValid() bool {
	for _, candidate := range validWineBodies {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseWineBody converts raw input into a WineBody.
func ParseWineBody(value string) (WineBody, error) {
	for _, candidate := range validWineBodies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wine body %q", value)
}
