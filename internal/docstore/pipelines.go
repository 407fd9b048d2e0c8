package docstore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// asDate converts the stored date, string or Date, for comparisons.
var asDate = bson.D{{Key: "$toDate", Value: "$date"}}

// transactionFilter builds the $match stage for a list query.
func transactionFilter(f ports.TransactionFilter) bson.D {
	filter := bson.D{}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "type", Value: string(f.Type)})
	}
	if f.Description != "" {
		filter = append(filter, bson.E{Key: "description", Value: containsFold(f.Description)})
	}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	var bounds bson.A
	if f.StartDate != nil {
		bounds = append(bounds, bson.D{{Key: "$gte", Value: bson.A{asDate, f.StartDate.Time}}})
	}
	if f.EndDate != nil {
		// inclusive end: anything before the next day
		bounds = append(bounds, bson.D{{Key: "$lt", Value: bson.A{asDate, f.EndDate.AddDays(1).Time}}})
	}
	if len(bounds) > 0 {
		filter = append(filter, bson.E{Key: "$expr", Value: bson.D{{Key: "$and", Value: bounds}}})
	}
	return filter
}

func containsFold(s string) bson.D {
	return bson.D{
		{Key: "$regex", Value: regexp.QuoteMeta(s)},
		{Key: "$options", Value: "i"},
	}
}

// listPipeline sorts newest first and returns the page and the total count
// in a single $facet document.
func listPipeline(f ports.TransactionFilter, p ports.PageRequest) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: transactionFilter(f)}},
		bson.D{{Key: "$addFields", Value: bson.D{{Key: "_sortDate", Value: asDate}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_sortDate", Value: -1}, {Key: "_id", Value: -1}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_sortDate", Value: 0}}}},
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "items", Value: bson.A{
				bson.D{{Key: "$skip", Value: int64(p.Offset())}},
				bson.D{{Key: "$limit", Value: int64(p.PageSize)}},
			}},
			{Key: "total", Value: bson.A{
				bson.D{{Key: "$count", Value: "n"}},
			}},
		}}},
	}
}

var sumAmount = bson.D{{Key: "$sum", Value: bson.D{{Key: "$toDecimal", Value: "$amount"}}}}

func groupByCategory() bson.A {
	return bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "total", Value: sumAmount},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// sumByRangePipeline totals amounts per category for dates within r.
func sumByRangePipeline(r ports.DateRange, t core.TransactionType) bson.A {
	match := bson.D{{Key: "$match", Value: bson.D{
		{Key: "type", Value: string(t)},
		{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$gte", Value: bson.A{asDate, r.From.Time}}},
			bson.D{{Key: "$lt", Value: bson.A{asDate, r.To.AddDays(1).Time}}},
		}}}},
	}}}
	return append(bson.A{match}, groupByCategory()...)
}

// sumByMonthOfCategoryPipeline matches the calendar year and month of each
// date rather than a string prefix, so timestamps of any precision qualify.
func sumByMonthOfCategoryPipeline(m core.YearMonth, t core.TransactionType) bson.A {
	return append(bson.A{
		bson.D{{Key: "$addFields", Value: bson.D{{Key: "dateObj", Value: asDate}}}},
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "type", Value: string(t)},
			{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$year", Value: "$dateObj"}}, m.Year}}},
				bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$month", Value: "$dateObj"}}, int(m.Month)}}},
			}}}},
		}}},
	}, groupByCategory()...)
}

func sumByMonthPipeline(t core.TransactionType) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "type", Value: string(t)}}}},
		bson.D{{Key: "$addFields", Value: bson.D{{Key: "dateObj", Value: asDate}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$dateObj"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$dateObj"}}},
			}},
			{Key: "total", Value: sumAmount},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
	}
}
