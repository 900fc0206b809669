package domain

import "strings"

// UserRole описывает тариф пользователя.
type UserRole string

const (
	UserRoleFree      UserRole = "free"
	UserRolePlus      UserRole = "plus"
	UserRolePro       UserRole = "pro"
	UserRoleDeveloper UserRole = "developer"
)

// rank задаёт порядок тарифов для проверки доступа к командам.
var rank = map[UserRole]int{
	UserRoleFree:      0,
	UserRolePlus:      1,
	UserRolePro:       2,
	UserRoleDeveloper: 3,
}

// AtLeast сообщает, покрывает ли роль требуемый тариф.
func (r UserRole) AtLeast(required UserRole) bool {
	if required == "" {
		return true
	}
	return rank[r] >= rank[required]
}

// UserPlan описывает ограничения тарифа.
type UserPlan struct {
	Role             UserRole
	Name             string
	ScheduledJobs    int
	ManualDailyLimit int
}

var plans = map[UserRole]UserPlan{
	UserRoleFree: {
		Role:             UserRoleFree,
		Name:             "Free",
		ScheduledJobs:    1,
		ManualDailyLimit: 3,
	},
	UserRolePlus: {
		Role:             UserRolePlus,
		Name:             "Plus",
		ScheduledJobs:    3,
		ManualDailyLimit: 10,
	},
	UserRolePro: {
		Role:             UserRolePro,
		Name:             "Pro",
		ScheduledJobs:    10,
		ManualDailyLimit: 30,
	},
	UserRoleDeveloper: {
		Role:             UserRoleDeveloper,
		Name:             "Developer",
		ScheduledJobs:    0,
		ManualDailyLimit: 0,
	},
}

// PlanForRole возвращает тариф для роли.
func PlanForRole(role UserRole) UserPlan {
	if plan, ok := plans[UserRole(strings.ToLower(string(role)))]; ok {
		return plan
	}
	return plans[UserRoleFree]
}

// Plan возвращает тариф пользователя.
func (u User) Plan() UserPlan {
	return PlanForRole(u.Role)
}
