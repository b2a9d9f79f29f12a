package validate

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	tests := []struct {
		pw   string
		want bool
	}{
		{"Test123!", true},
		{"test123!", false},
		{"TEST123!", false},
		{"Testabc!", false},
		{"Test1234", false},
		{"Te1!", false},
		{"Test123!" + strings.Repeat("a", 8), false},
		{"Test123!abcdefg", true},
		{"Test 123!", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Password(tt.pw), tt.pw)
	}
}

func TestUserName(t *testing.T) {
	assert.True(t, UserName("alice99"))
	assert.False(t, UserName("alice_99"))
	assert.False(t, UserName("al ice"))
	assert.False(t, UserName(""))
	assert.False(t, UserName(strings.Repeat("a", UserNameMaxLen+1)))
	assert.False(t, UserName("Admin"))
	assert.True(t, UserNameFormat("Admin"))
}

func TestSetReserved(t *testing.T) {
	t.Cleanup(func() { SetReserved(nil) })

	SetReserved([]string{"bob"})
	assert.False(t, UserName("BOB"))
	assert.True(t, UserName("admin"))
}

func TestContact(t *testing.T) {
	assert.Equal(t, ContactEmail, Contact("alice@example.com"))
	assert.Equal(t, ContactPhone, Contact("+1 (555) 123-4567"))
	assert.Equal(t, ContactPhone, Contact("5551234567"))
	assert.Equal(t, ContactInvalid, Contact("12345"))
	assert.Equal(t, ContactInvalid, Contact("alice@"))
}

func TestRegisterTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, register(v))

	type signup struct {
		UserName string `validate:"username"`
		Password string `validate:"password"`
		Contact  string `validate:"contact"`
	}

	assert.NoError(t, v.Struct(signup{UserName: "alice", Password: "Test123!", Contact: "a@b.co"}))
	assert.Error(t, v.Struct(signup{UserName: "alice", Password: "test123!", Contact: "a@b.co"}))
	assert.Error(t, v.Struct(signup{UserName: "root", Password: "Test123!", Contact: "a@b.co"}))
}
