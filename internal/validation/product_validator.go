package validation

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"

	"productapi/internal/models"
)

// rule is a single check on one product field. Every rule is evaluated on its own so
// that a value breaking several rules yields one message per broken rule.
type rule struct {
	field   string
	tag     string
	value   func(p *models.Product) any
	message func(field string, value any) string
}

// ProductValidator checks candidate products before they reach the store.
type ProductValidator struct {
	validate *validator.Validate
	rules    []rule
}

// NewProductValidator creates a ProductValidator with the product rule set.
func NewProductValidator() *ProductValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "positive", validatePositive)

	name := func(p *models.Product) any { return p.Name }
	color := func(p *models.Product) any { return p.Color }
	price := func(p *models.Product) any { return p.Price }

	return &ProductValidator{
		validate: v,
		rules: []rule{
			{field: "Name", tag: "notblank", value: name, message: notEmpty},
			{field: "Name", tag: "min=2", value: name, message: minLength(2)},
			{field: "Name", tag: "max=100", value: name, message: maxLength(100)},
			{field: "Color", tag: "notblank", value: color, message: notEmpty},
			{field: "Color", tag: "max=50", value: color, message: maxLength(50)},
			{field: "Price", tag: "positive", value: price, message: greaterThanZero},
		},
	}
}

// mustRegister registers a custom tag and panics when the validator refuses it, so a
// rule can never silently pass for want of its tag.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Validate returns one message per violated rule. An empty result means the product is valid.
func (pv *ProductValidator) Validate(p *models.Product) []string {
	var errs []string
	for _, r := range pv.rules {
		v := r.value(p)
		if err := pv.validate.Var(v, r.tag); err != nil {
			errs = append(errs, r.message(r.field, v))
		}
	}
	return errs
}

// decimalValue lets built-in tags see a decimal as its string form.
func decimalValue(v reflect.Value) any {
	d, ok := v.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	return d.String()
}

func validatePositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}

func notEmpty(field string, _ any) string {
	return fmt.Sprintf("'%s' must not be empty.", field)
}

func minLength(n int) func(string, any) string {
	return func(field string, value any) string {
		return fmt.Sprintf("The length of '%s' must be at least %d characters. You entered %d characters.",
			field, n, runeCount(value))
	}
}

func maxLength(n int) func(string, any) string {
	return func(field string, value any) string {
		return fmt.Sprintf("The length of '%s' must be %d characters or fewer. You entered %d characters.",
			field, n, runeCount(value))
	}
}

func greaterThanZero(field string, _ any) string {
	return fmt.Sprintf("'%s' must be greater than '0'.", field)
}

func runeCount(value any) int {
	s, _ := value.(string)
	return utf8.RuneCountInString(s)
}
