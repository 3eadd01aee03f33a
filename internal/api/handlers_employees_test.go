package api

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Artexxx/employee-registry/internal/dto"
	"github.com/Artexxx/employee-registry/internal/validation"
)

// memoryRepo: EmployeeRepository в памяти с той же семантикой, что и Mongo-реализация.
type memoryRepo struct {
	mu    sync.Mutex
	items map[string]dto.Employee
	order []string
	err   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]dto.Employee{}}
}

func (m *memoryRepo) Insert(_ context.Context, e dto.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[e.EmployeeID]; ok {
		return dto.ErrAlreadyExists
	}
	m.items[e.EmployeeID] = e
	m.order = append(m.order, e.EmployeeID)
	return nil
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (*dto.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.items[id]
	if !ok {
		return nil, dto.ErrNotFound
	}
	return &e, nil
}

func (m *memoryRepo) ListByDepartment(_ context.Context, department string) ([]dto.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]dto.Employee, 0)
	for _, id := range m.order {
		e, ok := m.items[id]
		if !ok || (department != "" && e.Department != department) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoiningDate > out[j].JoiningDate })
	return out, nil
}

func (m *memoryRepo) AverageSalaryByDepartment(_ context.Context) ([]dto.DepartmentSalary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := map[string]float64{}
	cnt := map[string]int{}
	for _, e := range m.items {
		sum[e.Department] += e.Salary
		cnt[e.Department]++
	}

	out := make([]dto.DepartmentSalary, 0, len(sum))
	for d, s := range sum {
		out = append(out, dto.DepartmentSalary{Department: d, AvgSalary: s / float64(cnt[d])})
	}
	return out, nil
}

func (m *memoryRepo) SearchBySkill(_ context.Context, skill string) ([]dto.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []dto.Employee
	for _, id := range m.order {
		e, ok := m.items[id]
		if !ok {
			continue
		}
		for _, s := range e.Skills {
			if s == skill {
				out = append(out, e)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, dto.ErrNotFound
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, id string, p dto.EmployeePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[id]
	if !ok {
		return dto.ErrNotFound
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Department != nil {
		e.Department = *p.Department
	}
	if p.Salary != nil {
		e.Salary = *p.Salary
	}
	if p.JoiningDate != nil {
		e.JoiningDate = *p.JoiningDate
	}
	if p.Skills != nil {
		e.Skills = p.Skills
	}
	m.items[id] = e
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return dto.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type recordingPublisher struct {
	kinds []string
	err   error
}

func (p *recordingPublisher) PublishCreated(_ context.Context, _ dto.Employee) error {
	p.kinds = append(p.kinds, "created")
	return p.err
}

func (p *recordingPublisher) PublishUpdated(_ context.Context, _ string, _ dto.EmployeePatch) error {
	p.kinds = append(p.kinds, "updated")
	return p.err
}

func (p *recordingPublisher) PublishDeleted(_ context.Context, _ string) error {
	p.kinds = append(p.kinds, "deleted")
	return p.err
}

type stubEvents struct{}

func (stubEvents) ListEvents(context.Context) ([]dto.KafkaEvent, error) {
	return []dto.KafkaEvent{}, nil
}
func (stubEvents) ListDLQ(context.Context) ([]dto.KafkaDLQ, error) { return []dto.KafkaDLQ{}, nil }
func (stubEvents) ResetAll(context.Context) error                  { return nil }

func newTestService(repo EmployeeRepository, pub Publisher) *Service {
	deps := ServiceDeps{
		EmployeeRepo: repo,
		EventsRepo:   stubEvents{},
		Validator:    validation.New(),
	}
	if pub != nil {
		deps.Publisher = pub
	}
	return NewService(deps)
}

func do(t *testing.T, s *Service, method, uri, body string) (int, []byte) {
	t.Helper()

	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)

	s.Handler()(&ctx)

	return ctx.Response.StatusCode(), append([]byte(nil), ctx.Response.Body()...)
}

const employeeE1 = `{
	"employee_id": "E1",
	"name": "John Doe",
	"department": "Engineering",
	"salary": 75000,
	"joining_date": "2023-1-15",
	"skills": "Go, Python, SQL"
}`

func TestCreateAndGetEmployee(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	status, body := do(t, s, fasthttp.MethodPost, "/employees", employeeE1)
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `{"message":"Employee added successfully"}`, string(body))

	status, body = do(t, s, fasthttp.MethodGet, "/employees/E1", "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `{
		"employee_id": "E1",
		"name": "John Doe",
		"department": "Engineering",
		"salary": 75000,
		"joining_date": "2023-01-15",
		"skills": ["Go", "Python", "SQL"]
	}`, string(body))
}

func TestCreateEmployee_DuplicateIsConflict(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestService(repo, nil)

	status, _ := do(t, s, fasthttp.MethodPost, "/employees", employeeE1)
	require.Equal(t, fasthttp.StatusOK, status)

	status, body := do(t, s, fasthttp.MethodPost, "/employees", employeeE1)
	require.Equal(t, fasthttp.StatusConflict, status)
	require.Contains(t, string(body), ErrEmployeeAlreadyExists.Error())
	require.Len(t, repo.items, 1)
}

func TestCreateEmployee_ValidationError(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	status, body := do(t, s, fasthttp.MethodPost, "/employees", `{"employee_id":"E1","salary":"x"}`)
	require.Equal(t, fasthttp.StatusUnprocessableEntity, status)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Contains(t, resp.Details, "salary")

	status, body = do(t, s, fasthttp.MethodPost, "/employees", `{"employee_id":"E1"}`)
	require.Equal(t, fasthttp.StatusUnprocessableEntity, status)

	resp = errorResponse{}
	require.NoError(t, json.Unmarshal(body, &resp))
	for _, field := range []string{"name", "department", "salary", "joining_date", "skills"} {
		require.Equal(t, "field required", resp.Details[field], field)
	}
}

func TestCreateEmployee_MalformedBody(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	status, _ := do(t, s, fasthttp.MethodPost, "/employees", `{"employee_id":`)
	require.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestCreateEmployee_StorageFailureIs500(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("server selection timeout")
	s := newTestService(repo, nil)

	status, body := do(t, s, fasthttp.MethodPost, "/employees", employeeE1)
	require.Equal(t, fasthttp.StatusInternalServerError, status)
	require.NotContains(t, string(body), "server selection timeout")
}

func TestGetEmployee_NotFound(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	status, body := do(t, s, fasthttp.MethodGet, "/employees/nope", "")
	require.Equal(t, fasthttp.StatusNotFound, status)
	require.Contains(t, string(body), "Employee not found")
}

func TestUpdateEmployee_OnlySalaryChanges(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)
	_, _ = do(t, s, fasthttp.MethodPost, "/employees", employeeE1)

	status, body := do(t, s, fasthttp.MethodPut, "/employees/E1", `{"salary": 99000, "name": null}`)
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `{"message":"Employee updated successfully"}`, string(body))

	_, body = do(t, s, fasthttp.MethodGet, "/employees/E1", "")
	var got dto.Employee
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, dto.Employee{
		EmployeeID:  "E1",
		Name:        "John Doe",
		Department:  "Engineering",
		Salary:      99000,
		JoiningDate: "2023-01-15",
		Skills:      []string{"Go", "Python", "SQL"},
	}, got)
}

func TestUpdateEmployee_NotFound(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	status, _ := do(t, s, fasthttp.MethodPut, "/employees/nope", `{"salary": 1}`)
	require.Equal(t, fasthttp.StatusNotFound, status)
}

func TestUpdateEmployee_InvalidDate(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)
	_, _ = do(t, s, fasthttp.MethodPost, "/employees", employeeE1)

	status, _ := do(t, s, fasthttp.MethodPut, "/employees/E1", `{"joining_date": "soon"}`)
	require.Equal(t, fasthttp.StatusUnprocessableEntity, status)
}

func TestDeleteEmployee(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)
	_, _ = do(t, s, fasthttp.MethodPost, "/employees", employeeE1)

	status, body := do(t, s, fasthttp.MethodDelete, "/employees/E1", "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `{"message":"Employee deleted successfully"}`, string(body))

	status, _ = do(t, s, fasthttp.MethodGet, "/employees/E1", "")
	require.Equal(t, fasthttp.StatusNotFound, status)

	status, _ = do(t, s, fasthttp.MethodDelete, "/employees/E1", "")
	require.Equal(t, fasthttp.StatusNotFound, status)
}

func TestListEmployees(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	for _, body := range []string{
		`{"employee_id":"E1","name":"A","department":"Engineering","salary":1,"joining_date":"2021-05-01","skills":[]}`,
		`{"employee_id":"E2","name":"B","department":"Sales","salary":1,"joining_date":"2022-05-01","skills":[]}`,
		`{"employee_id":"E3","name":"C","department":"Engineering","salary":1,"joining_date":"2023-05-01","skills":[]}`,
	} {
		status, _ := do(t, s, fasthttp.MethodPost, "/employees", body)
		require.Equal(t, fasthttp.StatusOK, status)
	}

	status, body := do(t, s, fasthttp.MethodGet, "/employees", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var all []dto.Employee
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 3)

	_, body = do(t, s, fasthttp.MethodGet, "/employees?department=Engineering", "")

	var eng []dto.Employee
	require.NoError(t, json.Unmarshal(body, &eng))
	require.Len(t, eng, 2)
	require.Equal(t, "E3", eng[0].EmployeeID)
	require.Equal(t, "E1", eng[1].EmployeeID)
}

func TestListEmployees_EmptyIsArray(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	status, body := do(t, s, fasthttp.MethodGet, "/employees", "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `[]`, string(body))
}

func TestAverageSalary(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	for _, body := range []string{
		`{"employee_id":"S1","name":"A","department":"Sales","salary":50000,"joining_date":"2021-05-01","skills":"x"}`,
		`{"employee_id":"S2","name":"B","department":"Sales","salary":70000,"joining_date":"2022-05-01","skills":"y"}`,
	} {
		status, _ := do(t, s, fasthttp.MethodPost, "/employees", body)
		require.Equal(t, fasthttp.StatusOK, status)
	}

	status, body := do(t, s, fasthttp.MethodGet, "/employees/avg-salary", "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `[{"department":"Sales","avg_salary":60000}]`, string(body))
}

func TestSearchEmployees(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)
	_, _ = do(t, s, fasthttp.MethodPost, "/employees", employeeE1)

	status, body := do(t, s, fasthttp.MethodGet, "/employees/search?skill=Python", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var found []dto.Employee
	require.NoError(t, json.Unmarshal(body, &found))
	require.Len(t, found, 1)
	require.Equal(t, "E1", found[0].EmployeeID)

	status, _ = do(t, s, fasthttp.MethodGet, "/employees/search?skill=python", "")
	require.Equal(t, fasthttp.StatusNotFound, status)

	status, _ = do(t, s, fasthttp.MethodGet, "/employees/search?skill=Pyth", "")
	require.Equal(t, fasthttp.StatusNotFound, status)

	status, _ = do(t, s, fasthttp.MethodGet, "/employees/search", "")
	require.Equal(t, fasthttp.StatusUnprocessableEntity, status)
}

func TestFixedRoutesAreNotShadowed(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestService(repo, nil)

	// сотрудник с id, совпадающим с фиксированным сегментом пути
	require.NoError(t, repo.Insert(context.Background(), dto.Employee{EmployeeID: "avg-salary", Department: "X", Salary: 10}))

	status, body := do(t, s, fasthttp.MethodGet, "/employees/avg-salary", "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.JSONEq(t, `[{"department":"X","avg_salary":10}]`, string(body))
}

func TestPublisherCalledOnWrites(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestService(newMemoryRepo(), pub)

	_, _ = do(t, s, fasthttp.MethodPost, "/employees", employeeE1)
	_, _ = do(t, s, fasthttp.MethodPut, "/employees/E1", `{"salary": 1}`)
	_, _ = do(t, s, fasthttp.MethodPut, "/employees/E1", `{}`)
	_, _ = do(t, s, fasthttp.MethodDelete, "/employees/E1", "")
	_, _ = do(t, s, fasthttp.MethodDelete, "/employees/E1", "")

	require.Equal(t, []string{"created", "updated", "deleted"}, pub.kinds)
}

func TestPublisherFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := newTestService(newMemoryRepo(), pub)

	status, _ := do(t, s, fasthttp.MethodPost, "/employees", employeeE1)
	require.Equal(t, fasthttp.StatusOK, status)
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)

	var req fasthttp.Request
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI("/health")

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.Handler()(&ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.NotEmpty(t, ctx.Response.Header.Peek("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestService(newMemoryRepo(), nil)
	_, _ = do(t, s, fasthttp.MethodGet, "/employees", "")

	status, body := do(t, s, fasthttp.MethodGet, "/metrics", "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.Contains(t, string(body), "employee_registry_http_requests_total")
}

func TestCreateEmployee_AcceptsEmptyNameAndNegativeSalary(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestService(repo, nil)

	status, body := do(t, s, fasthttp.MethodPost, "/employees",
		`{"employee_id":"E9","name":"","department":"Ops","salary":-100.5,"joining_date":"2023-01-15","skills":[]}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))

	status, body = do(t, s, fasthttp.MethodGet, "/employees/E9", "")
	require.Equal(t, fasthttp.StatusOK, status)

	var got dto.Employee
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "", got.Name)
	require.Equal(t, -100.5, got.Salary)
}

func TestCreateEmployee_EmployeeIDStoredAsSent(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestService(repo, nil)

	status, _ := do(t, s, fasthttp.MethodPost, "/employees",
		`{"employee_id":" E1 ","name":"A","department":"Ops","salary":1,"joining_date":"2023-01-15","skills":[]}`)
	require.Equal(t, fasthttp.StatusOK, status)

	_, err := repo.FindByID(context.Background(), " E1 ")
	require.NoError(t, err)
	_, err = repo.FindByID(context.Background(), "E1")
	require.ErrorIs(t, err, dto.ErrNotFound)
}
