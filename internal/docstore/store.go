// Package docstore implements ports.Store on MongoDB collections named
// transactions, categories and budgets.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const (
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
	categoriesCollection   = "categories"
)

type Store struct {
	client       *mongo.Client
	transactions *mongo.Collection
	budgets      *mongo.Collection
	categories   *mongo.Collection

	// upsertMu serializes UpsertBudget within this process. Without a unique
	// index MongoDB may insert twice for concurrent upserts of one key.
	upsertMu sync.Mutex
}

var _ ports.Store = (*Store)(nil)

// Connect dials uri, verifies the connection and ensures indexes on database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:       client,
		transactions: db.Collection(transactionsCollection),
		budgets:      db.Collection(budgetsCollection),
		categories:   db.Collection(categoriesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.transactions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		}},
		// (month, category) is not unique: plain inserts may duplicate a pair.
		{s.budgets, []mongo.IndexModel{
			{Keys: bson.D{{Key: "month", Value: 1}, {Key: "category", Value: 1}}},
		}},
		{s.categories, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}},
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateMany(ctx, ix.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// objectID reports false for ids that cannot exist in this store.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func insertedID(res *mongo.InsertOneResult) (string, error) {
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *Store) ListTransactions(ctx context.Context, f ports.TransactionFilter, p ports.PageRequest) (ports.TransactionPage, error) {
	p = p.Normalize()
	cur, err := s.transactions.Aggregate(ctx, listPipeline(f, p))
	if err != nil {
		return ports.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	var facets []listFacetDoc
	if err := cur.All(ctx, &facets); err != nil {
		return ports.TransactionPage{}, fmt.Errorf("decode transactions: %w", err)
	}

	page := ports.TransactionPage{Items: []core.Transaction{}, Page: p.Page}
	if len(facets) == 0 {
		return page, nil
	}
	if len(facets[0].Total) > 0 {
		page.Total = int(facets[0].Total[0].N)
	}
	page.TotalPages = ports.TotalPages(page.Total, p.PageSize)
	for _, doc := range facets[0].Items {
		t, err := doc.toCore()
		if err != nil {
			return ports.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	return page, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	oid, ok := objectID(id)
	if !ok {
		return core.Transaction{}, ports.ErrNotFound
	}
	var doc transactionDoc
	err := s.transactions.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return doc.toCore()
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	res, err := s.transactions.InsertOne(ctx, transactionFields(t))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	return insertedID(res)
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, t core.Transaction) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	if _, err := s.transactions.UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: transactionFields(t)}}); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	if _, err := s.transactions.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}}); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (s *Store) aggregateCategories(ctx context.Context, pipeline bson.A) ([]core.CategoryAmount, error) {
	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []categoryTotalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return categoryTotals(docs)
}

func (s *Store) SumByCategory(ctx context.Context, r ports.DateRange, t core.TransactionType) ([]core.CategoryAmount, error) {
	out, err := s.aggregateCategories(ctx, sumByRangePipeline(r, t))
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	return out, nil
}

func (s *Store) SumByCategoryForMonth(ctx context.Context, m core.YearMonth, t core.TransactionType) ([]core.CategoryAmount, error) {
	out, err := s.aggregateCategories(ctx, sumByMonthOfCategoryPipeline(m, t))
	if err != nil {
		return nil, fmt.Errorf("sum by category for month %s: %w", m, err)
	}
	return out, nil
}

func (s *Store) SumByMonth(ctx context.Context, t core.TransactionType) ([]core.MonthAmount, error) {
	cur, err := s.transactions.Aggregate(ctx, sumByMonthPipeline(t))
	if err != nil {
		return nil, fmt.Errorf("sum by month: %w", err)
	}
	var docs []monthTotalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode month totals: %w", err)
	}
	out, err := monthTotals(docs)
	if err != nil {
		return nil, fmt.Errorf("sum by month: %w", err)
	}
	return out, nil
}

func (s *Store) findBudgets(ctx context.Context, filter bson.D, sort bson.D) ([]core.Budget, error) {
	cur, err := s.budgets.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var docs []budgetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(docs))
	for _, d := range docs {
		b, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	out, err := s.findBudgets(ctx, bson.D{},
		bson.D{{Key: "month", Value: 1}, {Key: "category", Value: 1}, {Key: "_id", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (s *Store) ListBudgetsByMonth(ctx context.Context, m core.YearMonth) ([]core.Budget, error) {
	out, err := s.findBudgets(ctx, bson.D{{Key: "month", Value: m.String()}},
		bson.D{{Key: "category", Value: 1}, {Key: "_id", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", m, err)
	}
	return out, nil
}

func (s *Store) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	oid, ok := objectID(id)
	if !ok {
		return core.Budget{}, ports.ErrNotFound
	}
	var doc budgetDoc
	err := s.budgets.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Budget{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return doc.toCore()
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	res, err := s.budgets.InsertOne(ctx, budgetFields(b))
	if err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	return insertedID(res)
}

func (s *Store) UpdateBudget(ctx context.Context, id string, b core.Budget) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	if _, err := s.budgets.UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: budgetFields(b)}}); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	if _, err := s.budgets.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}}); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// UpsertBudget is a single conditional write keyed on (category, month). The
// oldest matching record wins when duplicates already exist. Writers in other
// processes can still race and leave a duplicate, which reports sum.
func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (string, error) {
	s.upsertMu.Lock()
	defer s.upsertMu.Unlock()

	filter := bson.D{
		{Key: "category", Value: b.Category},
		{Key: "month", Value: b.Month.String()},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "amount", Value: decimal128(b.Amount)}}}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	var doc budgetDoc
	if err := s.budgets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return "", fmt.Errorf("upsert budget: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	cur, err := s.categories.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Category{ID: d.ID.Hex(), Name: d.Name})
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (string, error) {
	res, err := s.categories.InsertOne(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return "", fmt.Errorf("create category: %w", err)
	}
	return insertedID(res)
}

func (s *Store) RenameCategory(ctx context.Context, id, name string) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: name}}}}
	if _, err := s.categories.UpdateByID(ctx, oid, update); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return nil
	}
	if _, err := s.categories.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}}); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
