package api

import (
	"context"
	"fmt"
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/Artexxx/employee-registry/internal/dto"
)

// @title           Employee Registry
// @version         1.0
// @description     CRUD сотрудников поверх MongoDB: создание, чтение, частичное обновление, удаление, выборка по отделу, поиск по навыку, средняя зарплата по отделам.
//
// @license.name  MIT
// @license.url   https://opensource.org/license/mit
//
// @BasePath  /
// @schemes   http
// @accept    json
// @produce   json

type EmployeeRepository interface {
	Insert(ctx context.Context, e dto.Employee) error
	FindByID(ctx context.Context, employeeID string) (*dto.Employee, error)
	ListByDepartment(ctx context.Context, department string) ([]dto.Employee, error)
	AverageSalaryByDepartment(ctx context.Context) ([]dto.DepartmentSalary, error)
	SearchBySkill(ctx context.Context, skill string) ([]dto.Employee, error)
	Update(ctx context.Context, employeeID string, patch dto.EmployeePatch) error
	Delete(ctx context.Context, employeeID string) error
}

type EventsRepository interface {
	ListEvents(ctx context.Context) ([]dto.KafkaEvent, error)
	ListDLQ(ctx context.Context) ([]dto.KafkaDLQ, error)
	ResetAll(ctx context.Context) error
}

type Validator interface {
	DecodeCreate(body []byte) (dto.EmployeeCreateRequest, error)
	ValidateCreate(req dto.EmployeeCreateRequest) (dto.Employee, error)
	DecodeUpdate(body []byte) (dto.EmployeeUpdateRequest, error)
	ValidateUpdate(req dto.EmployeeUpdateRequest) (dto.EmployeePatch, error)
}

// Publisher отправляет события об изменениях сотрудников. Может быть nil, если Kafka выключена.
type Publisher interface {
	PublishCreated(ctx context.Context, e dto.Employee) error
	PublishUpdated(ctx context.Context, employeeID string, patch dto.EmployeePatch) error
	PublishDeleted(ctx context.Context, employeeID string) error
}

type ServiceDeps struct {
	Port int

	EmployeeRepo EmployeeRepository
	EventsRepo   EventsRepository
	Validator    Validator

	Publisher Publisher
}

type Service struct {
	r      *router.Router
	server *fasthttp.Server
	port   int

	employees EmployeeRepository
	events    EventsRepository
	validator Validator
	publisher Publisher
}

func NewService(d ServiceDeps) *Service {
	rt := router.New()
	rt.SaveMatchedRoutePath = true

	s := &Service{
		r:         rt,
		port:      d.Port,
		employees: d.EmployeeRepo,
		events:    d.EventsRepo,
		validator: d.Validator,
		publisher: d.Publisher,
	}

	s.mountRoutes()

	s.server = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "employee-registry",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       15 * time.Second,
		MaxRequestBodySize: 2 << 20, // 2 MiB
	}

	return s
}

// Handler возвращает роутер, обёрнутый в middleware.
func (s *Service) Handler() fasthttp.RequestHandler {
	return RecoveryMiddleware(LoggingMiddleware(MetricsMiddleware(CORS(s.r.Handler))))
}

func (s *Service) Start(ctx context.Context) error {
	log.Info().Int("port", s.port).Msg("Starting employee API")

	emergencyShutdown := make(chan error, 1)
	go func() {
		emergencyShutdown <- s.server.ListenAndServe(fmt.Sprintf(":%d", s.port))
	}()

	select {
	case <-ctx.Done():
		return s.server.Shutdown()
	case e := <-emergencyShutdown:
		return e
	}
}

func (s *Service) mountRoutes() {
	// Employees: фиксированные пути до параметризованного {employee_id}
	s.r.GET("/employees/avg-salary", s.averageSalary)
	s.r.GET("/employees/search", s.searchEmployees)
	s.r.POST("/employees", s.createEmployee)
	s.r.GET("/employees", s.listEmployees)
	s.r.GET("/employees/{employee_id}", s.getEmployee)
	s.r.PUT("/employees/{employee_id}", s.updateEmployee)
	s.r.DELETE("/employees/{employee_id}", s.deleteEmployee)

	// Import events/DLQ
	s.r.GET("/events", s.listEvents)
	s.r.GET("/dlq", s.listDLQ)

	// Admin, Health & Metrics
	s.r.GET("/health", s.healthHandler)
	s.r.GET("/metrics", metricsHandler)
	s.r.POST("/admin/reset", s.resetHandler)
}
