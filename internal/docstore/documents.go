package docstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fintrack/internal/core"
)

var errMalformedValue = errors.New("malformed stored value")

// Documents are decoded with raw amount and date fields so that rows written
// by older clients (float amounts, Date-typed dates) still load.
type (
	transactionDoc struct {
		ID          primitive.ObjectID `bson:"_id,omitempty"`
		Amount      bson.RawValue      `bson:"amount"`
		Date        bson.RawValue      `bson:"date"`
		Description string             `bson:"description"`
		Type        string             `bson:"type"`
		Category    string             `bson:"category"`
	}

	budgetDoc struct {
		ID       primitive.ObjectID `bson:"_id,omitempty"`
		Category string             `bson:"category"`
		Amount   bson.RawValue      `bson:"amount"`
		Month    string             `bson:"month"`
	}

	categoryDoc struct {
		ID   primitive.ObjectID `bson:"_id,omitempty"`
		Name string             `bson:"name"`
	}

	categoryTotalDoc struct {
		Category string        `bson:"_id"`
		Total    bson.RawValue `bson:"total"`
	}

	monthTotalDoc struct {
		ID struct {
			Year  int `bson:"year"`
			Month int `bson:"month"`
		} `bson:"_id"`
		Total bson.RawValue `bson:"total"`
	}

	listFacetDoc struct {
		Items []transactionDoc `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
)

// decimalFromRaw converts any numeric BSON value to a decimal. It never
// panics; unsupported or non-finite values return an error.
func decimalFromRaw(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bsontype.Decimal128:
		d128, ok := v.Decimal128OK()
		if !ok {
			break
		}
		d, err := decimal.NewFromString(d128.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: decimal %s", errMalformedValue, d128.String())
		}
		return d, nil
	case bsontype.Double:
		f, ok := v.DoubleOK()
		if !ok {
			break
		}
		d, err := decimal.NewFromString(fmt.Sprint(f))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: double %v", errMalformedValue, f)
		}
		return d, nil
	case bsontype.Int32:
		if i, ok := v.Int32OK(); ok {
			return decimal.NewFromInt32(i), nil
		}
	case bsontype.Int64:
		if i, ok := v.Int64OK(); ok {
			return decimal.NewFromInt(i), nil
		}
	case bsontype.String:
		if s, ok := v.StringValueOK(); ok {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return decimal.Zero, fmt.Errorf("%w: amount %q", errMalformedValue, s)
			}
			return d, nil
		}
	case bsontype.Null, bsontype.Undefined, 0:
		return decimal.Zero, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s is not numeric", errMalformedValue, v.Type)
}

func moneyFromRaw(v bson.RawValue) (core.Money, error) {
	d, err := decimalFromRaw(v)
	if err != nil {
		return core.Money{}, err
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: amount %s", errMalformedValue, d)
	}
	return m, nil
}

func dateFromRaw(v bson.RawValue) (core.Date, error) {
	switch v.Type {
	case bsontype.String:
		return core.ParseDate(v.StringValue())
	case bsontype.DateTime:
		return core.DateOf(time.UnixMilli(v.DateTime())), nil
	}
	return core.Date{}, fmt.Errorf("%w: date of type %s", errMalformedValue, v.Type)
}

func decimal128(m core.Money) primitive.Decimal128 {
	d, err := primitive.ParseDecimal128(m.Decimal().String())
	if err != nil {
		// Every int64 cent value fits in a Decimal128.
		panic(err)
	}
	return d
}

func (d transactionDoc) toCore() (core.Transaction, error) {
	amount, err := moneyFromRaw(d.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID.Hex(), err)
	}
	date, err := dateFromRaw(d.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID.Hex(), err)
	}
	return core.Transaction{
		ID:          d.ID.Hex(),
		Amount:      amount,
		Date:        date,
		Description: d.Description,
		Type:        core.TransactionType(d.Type),
		Category:    d.Category,
	}, nil
}

func (d budgetDoc) toCore() (core.Budget, error) {
	amount, err := moneyFromRaw(d.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s: %w", d.ID.Hex(), err)
	}
	m, err := core.ParseYearMonth(d.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s: %w", d.ID.Hex(), err)
	}
	return core.Budget{
		ID:       d.ID.Hex(),
		Category: d.Category,
		Amount:   amount,
		Month:    m,
	}, nil
}

func transactionFields(t core.Transaction) bson.D {
	return bson.D{
		{Key: "amount", Value: decimal128(t.Amount)},
		{Key: "date", Value: t.Date.String()},
		{Key: "description", Value: t.Description},
		{Key: "type", Value: string(t.Type)},
		{Key: "category", Value: t.Category},
	}
}

func budgetFields(b core.Budget) bson.D {
	return bson.D{
		{Key: "category", Value: b.Category},
		{Key: "amount", Value: decimal128(b.Amount)},
		{Key: "month", Value: b.Month.String()},
	}
}

func categoryTotals(docs []categoryTotalDoc) ([]core.CategoryAmount, error) {
	out := make([]core.CategoryAmount, 0, len(docs))
	for _, d := range docs {
		m, err := moneyFromRaw(d.Total)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", d.Category, err)
		}
		out = append(out, core.CategoryAmount{Name: d.Category, Amount: m})
	}
	return out, nil
}

func monthTotals(docs []monthTotalDoc) ([]core.MonthAmount, error) {
	out := make([]core.MonthAmount, 0, len(docs))
	for _, d := range docs {
		if d.ID.Month < 1 || d.ID.Month > 12 {
			return nil, fmt.Errorf("%w: month %d", errMalformedValue, d.ID.Month)
		}
		m, err := moneyFromRaw(d.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthAmount{
			Month:  core.YearMonth{Year: d.ID.Year, Month: time.Month(d.ID.Month)},
			Amount: m,
		})
	}
	return out, nil
}
