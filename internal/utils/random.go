package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda", "David", "Elizabeth",
	"William", "Barbara", "Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah", "Carlos", "Maria",
	"Daniel", "Karen", "Matthew", "Nancy", "Anthony", "Lisa", "Mark", "Sofia", "Wei", "Aisha",
}
var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
	"Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris", "Clark", "Lewis", "Walker", "Chen", "Patel",
}

func GenerateRandomName() string {
	return firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
}

// 随机员工只会是临床岗位，管理岗位由种子数据固定创建
var clinicalRoles = []domain.Role{
	domain.RoleDoctor,
	domain.RoleNurse,
	domain.RoleStaff,
}

func GenerateRandomClinicalRole() domain.Role {
	return clinicalRoles[rand.Intn(len(clinicalRoles))]
}

// DisplayName 医生的姓名前加上 Dr. 前缀
func DisplayName(name string, role domain.Role) string {
	if role == domain.RoleDoctor {
		return "Dr. " + name
	}
	return name
}

var digits = "0123456789"

func GenerateUsernameFromName(name string) string {
	parts := strings.Fields(strings.ToLower(name))
	username := ""

	if len(parts) > 1 {
		username = parts[0][:1] + parts[len(parts)-1]
	} else if len(parts) == 1 {
		username = parts[0]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string, departmentID *int64) (*domain.User, error) {
	name := GenerateRandomName()
	username := GenerateUsernameFromName(name)
	role := GenerateRandomClinicalRole()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     DisplayName(name, role),
		Email:        username + "@" + emailDomainName,
		Role:         role,
		DepartmentID: departmentID,
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

// 三班倒：早班、中班、夜班
var shiftStartHours = []int{7, 15, 23}

// GenerateRandomShift 在 day 当天随机生成一个八小时的班次
func GenerateRandomShift(departmentID int64, day time.Time) *domain.Shift {
	start := time.Date(day.Year(), day.Month(), day.Day(), shiftStartHours[rand.Intn(len(shiftStartHours))], 0, 0, 0, day.Location())

	return &domain.Shift{
		DepartmentID:  departmentID,
		StartTime:     start,
		EndTime:       start.Add(8 * time.Hour),
		RequiredRole:  GenerateRandomClinicalRole(),
		RequiredCount: int32(rand.Intn(3) + 1),
	}
}

func GenerateRandomDepartmentName() string {
	wards := []string{"Cardiology", "Oncology", "Neurology", "Pediatrics", "Orthopedics", "Radiology", "Maternity"}
	return fmt.Sprintf("%s Ward %d", wards[rand.Intn(len(wards))], rand.Intn(9)+1)
}
