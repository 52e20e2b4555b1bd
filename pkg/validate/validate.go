// Package validate checks request structs against their `validate` tags.
//
// Rules are comma separated and run in order; the first failing rule sets
// the field's message. Field names in the result are the json names.
//
//	required          not empty (strings are trimmed first)
//	nullable          empty values skip every other rule
//	email, url        format checks; url needs http or https
//	alpha_num         letters and digits
//	alpha_dash        letters, digits, '-' and '_'
//	numeric, integer  parseable number / whole number
//	money             non-negative, at most two decimals
//	min=N, max=N      length for strings, value for numbers
//	size=N            exact string length
//	gte=N             numeric value >= N, strings are parsed
//	between=lo,hi     inclusive range, value or length
//	in=a,b,c          one of the listed values, which may contain spaces
//	confirmed         equals the sibling <field>_confirmation (or, on the
//	                  _confirmation field itself, the original)
//
//	type ListProductInput struct {
//	    Name     string      `json:"name"     validate:"required,max=120"`
//	    Quantity json.Number `json:"quantity" validate:"required,integer,gte=0"`
//	    Type     string      `json:"type"     validate:"required,in=Waste Product,By Product"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// field is the value a rule inspects.
type field struct {
	name   string
	value  reflect.Value
	raw    string
	parent reflect.Value
}

// rule returns a message when f fails, "" otherwise.
type rule func(f field, param string) string

var rules map[string]rule

// listRules take comma separated parameters.
var listRules = map[string]bool{"in": true, "between": true}

func init() {
	rules = map[string]rule{
		"required":   required,
		"nullable":   func(field, string) string { return "" },
		"email":      matches(emailRE, "The %s must be a valid email address."),
		"url":        validURL,
		"alpha_num":  runesOnly(func(c rune) bool { return unicode.IsLetter(c) || unicode.IsDigit(c) }, "The %s field must contain only letters and numbers."),
		"alpha_dash": runesOnly(func(c rune) bool { return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_' }, "The %s field may only contain letters, numbers, dashes, and underscores."),
		"numeric":    numeric,
		"integer":    integer,
		"money":      money,
		"min":        bound(-1),
		"max":        bound(1),
		"size":       size,
		"gte":        gte,
		"between":    between,
		"in":         oneOf,
		"confirmed":  confirmed,
	}
}

// Struct validates the tagged exported fields of v, which may be a struct or
// a pointer to one. The result maps json field names to messages.
//
// An unknown rule name panics: tags are fixed at compile time, so a typo
// is a programming error.
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}

		f := field{name: jsonName(sf), value: rv.Field(i), parent: rv}
		f.raw = fmt.Sprint(f.value.Interface())

		parsed := splitRules(tag)
		if hasRule(parsed, "nullable") && isEmpty(f.value) {
			continue
		}
		for _, r := range parsed {
			name, param, _ := strings.Cut(r, "=")
			check, ok := rules[name]
			if !ok {
				panic(fmt.Sprintf("validate: unknown rule %q on %s.%s", name, rt.Name(), sf.Name))
			}
			if msg := check(f, param); msg != "" {
				errs[f.name] = msg
				break
			}
		}
	}
	return errs
}

// HasErrors reports whether Struct found anything.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	moneyRE = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

func required(f field, _ string) string {
	if isEmpty(f.value) {
		return fmt.Sprintf("The %s field is required.", f.name)
	}
	return ""
}

func matches(re *regexp.Regexp, msg string) rule {
	return func(f field, _ string) string {
		if !re.MatchString(f.raw) {
			return fmt.Sprintf(msg, f.name)
		}
		return ""
	}
}

func runesOnly(ok func(rune) bool, msg string) rule {
	return func(f field, _ string) string {
		for _, c := range f.raw {
			if !ok(c) {
				return fmt.Sprintf(msg, f.name)
			}
		}
		return ""
	}
}

func validURL(f field, _ string) string {
	u, err := url.ParseRequestURI(f.raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Sprintf("The %s must be a valid URL.", f.name)
	}
	return ""
}

func numeric(f field, _ string) string {
	if _, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64); err != nil {
		return fmt.Sprintf("The %s field must be a number.", f.name)
	}
	return ""
}

func integer(f field, _ string) string {
	if _, err := strconv.ParseInt(strings.TrimSpace(f.raw), 10, 64); err != nil {
		return fmt.Sprintf("The %s field must be an integer.", f.name)
	}
	return ""
}

func money(f field, _ string) string {
	if !moneyRE.MatchString(strings.TrimSpace(f.raw)) {
		return fmt.Sprintf("The %s must be a non-negative amount with at most two decimals.", f.name)
	}
	return ""
}

// bound builds min (dir -1) and max (dir 1).
func bound(dir int) rule {
	return func(f field, param string) string {
		limit := parseFloat(param)
		if isNumber(f.value) {
			n := toFloat(f.value)
			switch {
			case dir < 0 && n < limit:
				return fmt.Sprintf("The %s must be at least %s.", f.name, param)
			case dir > 0 && n > limit:
				return fmt.Sprintf("The %s must not be greater than %s.", f.name, param)
			}
			return ""
		}
		n := float64(len([]rune(f.raw)))
		switch {
		case dir < 0 && n < limit:
			return fmt.Sprintf("The %s must be at least %s characters.", f.name, param)
		case dir > 0 && n > limit:
			return fmt.Sprintf("The %s must not exceed %s characters.", f.name, param)
		}
		return ""
	}
}

func size(f field, param string) string {
	if float64(len([]rune(f.raw))) != parseFloat(param) {
		return fmt.Sprintf("The %s must be exactly %s characters.", f.name, param)
	}
	return ""
}

func gte(f field, param string) string {
	if toFloat(f.value) < parseFloat(param) {
		return fmt.Sprintf("The %s must be greater than or equal to %s.", f.name, param)
	}
	return ""
}

func between(f field, param string) string {
	lo, hi, ok := strings.Cut(param, ",")
	if !ok {
		return ""
	}
	low, high := parseFloat(lo), parseFloat(hi)
	if isNumber(f.value) {
		if n := toFloat(f.value); n < low || n > high {
			return fmt.Sprintf("The %s must be between %s and %s.", f.name, lo, hi)
		}
		return ""
	}
	if n := float64(len([]rune(f.raw))); n < low || n > high {
		return fmt.Sprintf("The %s must be between %s and %s characters.", f.name, lo, hi)
	}
	return ""
}

func oneOf(f field, param string) string {
	for _, allowed := range strings.Split(param, ",") {
		if f.raw == strings.TrimSpace(allowed) {
			return ""
		}
	}
	return fmt.Sprintf("The selected %s is invalid.", f.name)
}

func confirmed(f field, _ string) string {
	const suffix = "_confirmation"
	other := f.name + suffix
	if base, ok := strings.CutSuffix(f.name, suffix); ok {
		other = base
	}
	sibling, ok := fieldByJSONName(f.parent, other)
	if !ok || fmt.Sprint(sibling.Interface()) != f.raw {
		return fmt.Sprintf("The %s confirmation does not match.", strings.TrimSuffix(f.name, suffix))
	}
	return ""
}

func fieldByJSONName(parent reflect.Value, name string) (reflect.Value, bool) {
	rt := parent.Type()
	for i := 0; i < rt.NumField(); i++ {
		if jsonName(rt.Field(i)) == name {
			return parent.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// splitRules cuts a tag at commas, except inside the parameters of a list
// rule, which run until the next token naming a known rule.
//
//	"required,in=Waste Product,By Product,max=20" -> [required in=Waste Product,By Product max=20]
func splitRules(tag string) []string {
	var out []string
	for _, tok := range strings.Split(tag, ",") {
		tok = strings.TrimSpace(tok)
		if n := len(out); n > 0 && !isRuleToken(tok) {
			if name, _, _ := strings.Cut(out[n-1], "="); listRules[name] {
				out[n-1] += "," + tok
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

func isRuleToken(tok string) bool {
	name, _, _ := strings.Cut(tok, "=")
	_, ok := rules[name]
	return ok
}

func hasRule(parsed []string, name string) bool {
	for _, r := range parsed {
		if r == name {
			return true
		}
	}
	return false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toFloat reads numeric kinds directly and parses anything else, so
// json.Number and decimal strings compare by value. Unparseable input is 0.
func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return parseFloat(fmt.Sprint(v.Interface()))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}
