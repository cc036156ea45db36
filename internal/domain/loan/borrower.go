package loan

import (
	"strings"
)

// Borrower 借阅人信息(只随借阅记录保存,没有独立的读者表)
type Borrower struct {
	FirstName string
	LastName  string
	Email     string
}

// NewBorrower 校验并规范化借阅人信息
// 在访问存储之前完成,失败时不产生任何副作用
func NewBorrower(firstName, lastName, email string) (Borrower, error) {
	b := Borrower{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
	}
	if b.FirstName == "" || b.LastName == "" || b.Email == "" {
		return Borrower{}, ErrMissingFields
	}
	if !IsValidEmail(b.Email) {
		return Borrower{}, ErrInvalidEmail
	}
	return b, nil
}

// IsValidEmail 宽松的邮箱校验:包含@,且最后一个@之后的部分包含.
// 不做RFC校验,保持与柜台系统一致
func IsValidEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
