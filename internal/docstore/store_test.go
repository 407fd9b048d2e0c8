package docstore

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/ports/porttest"
)

// rawField marshals v under key "v" and returns the raw value.
func rawField(t *testing.T, v any) bson.RawValue {
	t.Helper()
	b, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	require.NoError(t, err)
	return bson.Raw(b).Lookup("v")
}

func TestDecimalFromRaw(t *testing.T) {
	d128, err := primitive.ParseDecimal128("199.99")
	require.NoError(t, err)
	nan, err := primitive.ParseDecimal128("NaN")
	require.NoError(t, err)

	cases := []struct {
		name  string
		in    any
		cents int64
		ok    bool
	}{
		{"decimal128", d128, 19999, true},
		{"double", 12.5, 1250, true},
		{"int32", int32(7), 700, true},
		{"int64", int64(3), 300, true},
		{"string", "0.1", 10, true},
		{"null", nil, 0, true},
		{"nan decimal", nan, 0, false},
		{"nan double", math.NaN(), 0, false},
		{"inf double", math.Inf(1), 0, false},
		{"bool", true, 0, false},
		{"bad string", "ten", 0, false},
		{"overflowing double", 1.8446744073709552e17, 0, false},
		{"overflowing string", "1e30", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				got core.Money
				err error
			)
			assert.NotPanics(t, func() { got, err = moneyFromRaw(rawField(t, tc.in)) })
			if !tc.ok {
				assert.ErrorIs(t, err, errMalformedValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cents, got.Cents)
		})
	}
}

func TestTransactionDocDecodesLegacyShapes(t *testing.T) {
	oid := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: oid},
		{Key: "amount", Value: 42.1},
		{Key: "date", Value: primitive.NewDateTimeFromTime(time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC))},
		{Key: "description", Value: "Dinner"},
		{Key: "type", Value: "expense"},
		{Key: "category", Value: "Food"},
	})
	require.NoError(t, err)

	var doc transactionDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.toCore()
	require.NoError(t, err)
	assert.Equal(t, core.Transaction{
		ID:          oid.Hex(),
		Amount:      core.Money{Cents: 4210},
		Date:        core.NewDate(2024, 3, 9),
		Description: "Dinner",
		Type:        core.Expense,
		Category:    "Food",
	}, got)
}

func TestTransactionFieldsRoundTrip(t *testing.T) {
	in := core.Transaction{
		Amount:      core.Money{Cents: 1005},
		Date:        core.NewDate(2024, 1, 31),
		Description: "Books",
		Type:        core.Expense,
		Category:    "Education",
	}
	raw, err := bson.Marshal(transactionFields(in))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-31", bson.Raw(raw).Lookup("date").StringValue())
	d128, ok := bson.Raw(raw).Lookup("amount").Decimal128OK()
	require.True(t, ok, "amount is stored as Decimal128")
	assert.Equal(t, "10.05", d128.String())

	var doc transactionDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.toCore()
	require.NoError(t, err)
	got.ID = ""
	assert.Equal(t, in, got)
}

func TestBudgetDocRejectsBadMonth(t *testing.T) {
	doc := budgetDoc{ID: primitive.NewObjectID(), Category: "Food", Amount: rawField(t, 10.0), Month: "March"}
	_, err := doc.toCore()
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestTransactionFilter(t *testing.T) {
	assert.Empty(t, transactionFilter(ports.TransactionFilter{}))

	start, end := core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)
	f := transactionFilter(ports.TransactionFilter{
		Type:        core.Income,
		Description: "a+b",
		Category:    "Salary",
		StartDate:   &start,
		EndDate:     &end,
	})
	m := f.Map()
	assert.Equal(t, "income", m["type"])
	assert.Equal(t, "Salary", m["category"])
	assert.Equal(t, bson.D{{Key: "$regex", Value: `a\+b`}, {Key: "$options", Value: "i"}}, m["description"])

	expr, ok := m["$expr"].(bson.D)
	require.True(t, ok)
	bounds := expr.Map()["$and"].(bson.A)
	require.Len(t, bounds, 2)
	assert.Equal(t, bson.D{{Key: "$gte", Value: bson.A{asDate, start.Time}}}, bounds[0])
	assert.Equal(t, bson.D{{Key: "$lt", Value: bson.A{asDate, core.NewDate(2024, 3, 1).Time}}}, bounds[1])
}

func TestListPipelinePaging(t *testing.T) {
	p := listPipeline(ports.TransactionFilter{}, ports.PageRequest{Page: 3, PageSize: 5}.Normalize())
	facet := p[len(p)-1].(bson.D).Map()["$facet"].(bson.D).Map()
	items := facet["items"].(bson.A)
	assert.Equal(t, bson.D{{Key: "$skip", Value: int64(10)}}, items[0])
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(5)}}, items[1])
}

func TestSumByMonthOfCategoryPipelineMatchesCalendarParts(t *testing.T) {
	p := sumByMonthOfCategoryPipeline(core.YearMonth{Year: 2024, Month: time.March}, core.Expense)
	match := p[1].(bson.D).Map()["$match"].(bson.D).Map()
	assert.Equal(t, "expense", match["type"])
	and := match["$expr"].(bson.D).Map()["$and"].(bson.A)
	assert.Equal(t, bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$year", Value: "$dateObj"}}, 2024}}}, and[0])
	assert.Equal(t, bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$month", Value: "$dateObj"}}, 3}}}, and[1])
}

func TestMonthTotalsRejectsBadMonth(t *testing.T) {
	doc := monthTotalDoc{Total: rawField(t, int32(1))}
	doc.ID.Year, doc.ID.Month = 2024, 13
	_, err := monthTotals([]monthTotalDoc{doc})
	assert.ErrorIs(t, err, errMalformedValue)
}

func TestObjectIDRejectsMalformed(t *testing.T) {
	_, ok := objectID("999999")
	assert.False(t, ok)
	_, ok = objectID(primitive.NewObjectID().Hex())
	assert.True(t, ok)
}

// TestStoreConformance runs against a live server when FINTRACK_TEST_MONGO_URI is set.
func TestStoreConformance(t *testing.T) {
	uri := os.Getenv("FINTRACK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FINTRACK_TEST_MONGO_URI not set")
	}
	n := 0
	porttest.Run(t, func(t *testing.T) ports.Store {
		n++
		ctx := context.Background()
		name := fmt.Sprintf("fintrack_test_%d_%d", time.Now().UnixNano(), n)
		s, err := Connect(ctx, uri, name)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.client.Database(name).Drop(context.Background())
			_ = s.Close()
		})
		return s
	}, primitive.NewObjectID().Hex())
}
