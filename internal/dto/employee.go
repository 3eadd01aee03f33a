package dto

// Employee — нормализованная запись сотрудника. Дата приёма хранится строкой YYYY-MM-DD.
type Employee struct {
	EmployeeID  string   `json:"employee_id" bson:"employee_id" example:"E123"`
	Name        string   `json:"name" bson:"name" example:"John Doe"`
	Department  string   `json:"department" bson:"department" example:"Engineering"`
	Salary      float64  `json:"salary" bson:"salary" example:"75000"`
	JoiningDate string   `json:"joining_date" bson:"joining_date" example:"2023-01-15"`
	Skills      []string `json:"skills" bson:"skills" example:"Go,MongoDB,APIs"`
}

// EmployeePatch — набор полей частичного обновления. nil означает «не менять».
type EmployeePatch struct {
	Name        *string
	Department  *string
	Salary      *float64
	JoiningDate *string
	Skills      []string
}

func (p EmployeePatch) IsEmpty() bool {
	return p.Name == nil && p.Department == nil && p.Salary == nil && p.JoiningDate == nil && p.Skills == nil
}

// DepartmentSalary — строка агрегата средней зарплаты по отделу.
type DepartmentSalary struct {
	Department string  `json:"department" bson:"_id" example:"Sales"`
	AvgSalary  float64 `json:"avg_salary" bson:"avg_salary" example:"60000"`
}
