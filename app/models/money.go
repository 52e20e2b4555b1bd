package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money is a non-negative price stored as Decimal128.
type Money struct {
	decimal.Decimal
}

// NewMoney parses a decimal string such as "100" or "99.50".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// MustMoney is NewMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Equal(o Money) bool { return m.Decimal.Equal(o.Decimal) }

func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(m.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("money: %w", err)
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue accepts Decimal128 and the numeric or string forms
// older documents were written with.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}

	var (
		d   decimal.Decimal
		err error
	)
	switch t {
	case bsontype.Decimal128:
		d, err = decimal.NewFromString(rv.Decimal128().String())
	case bsontype.Double:
		d = decimal.NewFromFloat(rv.Double())
	case bsontype.Int32:
		d = decimal.NewFromInt32(rv.Int32())
	case bsontype.Int64:
		d = decimal.NewFromInt(rv.Int64())
	case bsontype.String:
		d, err = decimal.NewFromString(rv.StringValue())
	case bsontype.Null, bsontype.Undefined:
		d = decimal.Zero
	default:
		return fmt.Errorf("money: cannot decode BSON %s", t)
	}
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	m.Decimal = d
	return nil
}
