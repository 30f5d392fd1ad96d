package validation

import (
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	phonePattern    = regexp.MustCompile(`^(\+?84|0)[0-9]{9,10}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// NormalizePhone removes the separators people type inside phone numbers.
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// New returns a configured validator with the custom field tags and the
// struct-level rules registered. Field errors are keyed by JSON name.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// errors are impossible here: tags are non-empty and not reserved
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("address", validateAddress)
	_ = v.RegisterValidation("notblank", validateNotBlank)

	// one product can only appear once in an order
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

// Check runs v over req and converts failures into *Error.
func Check(v *validatorv10.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return FromValidator(err)
	}
	return nil
}

func validatePhone(fl validatorv10.FieldLevel) bool {
	return phonePattern.MatchString(NormalizePhone(fl.Field().String()))
}

func validateAddress(fl validatorv10.FieldLevel) bool {
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= MinAddressLength
}

func validateNotBlank(fl validatorv10.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	seen := make(map[string]struct{}, len(req.OrderItems))
	for _, it := range req.OrderItems {
		if _, dup := seen[it.ProductID]; dup {
			sl.ReportError(req.OrderItems, "orderItems", "OrderItems", "unique_products", it.ProductID)
			return
		}
		seen[it.ProductID] = struct{}{}
	}
}
