package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPascal(t *testing.T) {
	tests := map[string]string{
		"users":      "Users",
		"Users":      "Users",
		"user_posts": "UserPosts",
		"getUser":    "GetUser",
		"USER_ID":    "UserId",
		"order-line": "OrderLine",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Pascal(in), in)
	}
}

func TestCamel(t *testing.T) {
	tests := map[string]string{
		"created_at": "createdAt",
		"id":         "id",
		"ID":         "id",
		"GetUser":    "getUser",
		"URLPath":    "urlPath",
		"user_ID":    "userId",
	}
	for in, want := range tests {
		assert.Equal(t, want, Camel(in), in)
	}
}

func TestSnake(t *testing.T) {
	tests := map[string]string{
		"GetUser":    "get_user",
		"created_at": "created_at",
		"HTTPServer": "http_server",
		"listUsers":  "list_users",
	}
	for in, want := range tests {
		assert.Equal(t, want, Snake(in), in)
	}
}

func TestClass(t *testing.T) {
	tests := map[string]string{
		"users":    "Users",
		"list":     "ListRow",
		"CLASS":    "ClassRow",
		"string":   "StringRow",
		"lists":    "Lists",
		"user_int": "UserInt",
		"":         "Row",
	}
	for in, want := range tests {
		assert.Equal(t, want, Class(in), in)
	}

	digits := Class("2fa_codes")
	assert.True(t, strings.HasPrefix(digits, "_2"), digits)
	assert.True(t, strings.HasSuffix(digits, "Codes"), digits)

	assert.True(t, IsReservedClass("Match"))
	assert.False(t, IsReservedClass("Users"))
}
