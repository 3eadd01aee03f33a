package employee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Artexxx/employee-registry/internal/dto"
)

type CollectionIface interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type Repository struct {
	coll CollectionIface
	log  zerolog.Logger
}

func NewRepository(coll CollectionIface, log zerolog.Logger) *Repository {
	return &Repository{
		coll: coll,
		log:  log.With().Str("component", "employeeRepository").Logger(),
	}
}

// EnsureIndexes создаёт уникальный индекс по employee_id.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "employee_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("employee_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("indexes.CreateOne: %w", err)
	}

	return nil
}

// storedEmployee — документ в том виде, в каком он лежит в коллекции.
// joining_date читается как сырое значение: его могли записать строкой или датой.
type storedEmployee struct {
	EmployeeID  string        `bson:"employee_id"`
	Name        string        `bson:"name"`
	Department  string        `bson:"department"`
	Salary      float64       `bson:"salary"`
	JoiningDate bson.RawValue `bson:"joining_date"`
	Skills      []string      `bson:"skills"`
}

var withoutID = bson.M{"_id": 0}

func (r *Repository) Insert(ctx context.Context, e dto.Employee) error {
	if e.Skills == nil {
		e.Skills = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dto.ErrAlreadyExists
		}

		return fmt.Errorf("coll.InsertOne: %w", err)
	}

	return nil
}

func (r *Repository) FindByID(ctx context.Context, employeeID string) (*dto.Employee, error) {
	var doc storedEmployee

	err := r.coll.FindOne(ctx, bson.M{"employee_id": employeeID}, options.FindOne().SetProjection(withoutID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, dto.ErrNotFound
		}

		return nil, fmt.Errorf("coll.FindOne: %w", err)
	}

	out := r.toEmployee(doc)

	return &out, nil
}

// ListByDepartment: пустой department возвращает всю коллекцию. Сортировка по дате приёма, новые первыми.
func (r *Repository) ListByDepartment(ctx context.Context, department string) ([]dto.Employee, error) {
	filter := bson.M{}
	if department != "" {
		filter["department"] = department
	}

	opts := options.Find().
		SetProjection(withoutID).
		SetSort(bson.D{{Key: "joining_date", Value: -1}})

	return r.find(ctx, filter, opts)
}

func (r *Repository) AverageSalaryByDepartment(ctx context.Context) ([]dto.DepartmentSalary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "avg_salary", Value: bson.D{{Key: "$avg", Value: "$salary"}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("coll.Aggregate: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]dto.DepartmentSalary, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("cursor.All: %w", err)
	}

	return out, nil
}

// SearchBySkill ищет точное совпадение элемента массива skills, с учётом регистра.
func (r *Repository) SearchBySkill(ctx context.Context, skill string) ([]dto.Employee, error) {
	out, err := r.find(ctx, bson.M{"skills": skill}, options.Find().SetProjection(withoutID))
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, dto.ErrNotFound
	}

	return out, nil
}

func (r *Repository) Update(ctx context.Context, employeeID string, patch dto.EmployeePatch) error {
	filter := bson.M{"employee_id": employeeID}

	if patch.IsEmpty() {
		// $set с пустым документом сервер отклоняет, поэтому только проверяем существование
		err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return dto.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("coll.FindOne: %w", err)
		}

		return nil
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": setFields(patch)})
	if err != nil {
		return fmt.Errorf("coll.UpdateOne: %w", err)
	}
	if res.MatchedCount == 0 {
		return dto.ErrNotFound
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, employeeID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"employee_id": employeeID})
	if err != nil {
		return fmt.Errorf("coll.DeleteOne: %w", err)
	}
	if res.DeletedCount == 0 {
		return dto.ErrNotFound
	}

	return nil
}

func (r *Repository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]dto.Employee, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("coll.Find: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]dto.Employee, 0)
	for cur.Next(ctx) {
		var doc storedEmployee
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("cursor.Decode: %w", err)
		}

		out = append(out, r.toEmployee(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor.Err: %w", err)
	}

	return out, nil
}

func setFields(p dto.EmployeePatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Department != nil {
		set["department"] = *p.Department
	}
	if p.Salary != nil {
		set["salary"] = *p.Salary
	}
	if p.JoiningDate != nil {
		set["joining_date"] = *p.JoiningDate
	}
	if p.Skills != nil {
		set["skills"] = p.Skills
	}

	return set
}

func (r *Repository) toEmployee(doc storedEmployee) dto.Employee {
	skills := doc.Skills
	if skills == nil {
		skills = []string{}
	}

	return dto.Employee{
		EmployeeID:  doc.EmployeeID,
		Name:        doc.Name,
		Department:  doc.Department,
		Salary:      doc.Salary,
		JoiningDate: r.serializeDate(doc.EmployeeID, doc.JoiningDate),
		Skills:      skills,
	}
}

// форматы ISO-8601, которые распознаются при чтении сохранённой строки
var isoLayouts = []string{
	time.DateOnly,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// serializeDate приводит сохранённую дату к YYYY-MM-DD. Нераспознанная строка
// возвращается как есть, с предупреждением в лог.
func (r *Repository) serializeDate(employeeID string, raw bson.RawValue) string {
	switch raw.Type {
	case bson.TypeDateTime:
		return raw.Time().UTC().Format(time.DateOnly)
	case bson.TypeString:
		s := raw.StringValue()
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(time.DateOnly)
			}
		}

		r.log.Warn().
			Str("employee_id", employeeID).
			Str("joining_date", s).
			Msg("stored joining_date is not ISO-8601, returned as is")

		return s
	case 0, bson.TypeNull, bson.TypeUndefined:
		return ""
	default:
		r.log.Warn().
			Str("employee_id", employeeID).
			Str("bson_type", raw.Type.String()).
			Msg("unexpected joining_date type")

		return ""
	}
}
