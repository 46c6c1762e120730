package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		wantErr error
	}{
		{"合法的短别名", "ab", nil},
		{"合法的带点别名", "john.doe", nil},
		{"合法的带连字符别名", "john-doe", nil},
		{"合法的数字别名", "user2024", nil},
		{"单字符别名被拒绝", "a", ErrAliasTooShort},
		{"空别名被拒绝", "", ErrAliasTooShort},
		{"超长别名被拒绝", "abcdefghijklmnopqrstuvwxyz01234", ErrAliasTooLong},
		{"大写字母归一化后通过", "John", nil},
		{"at符号被拒绝", "john@doe", ErrInvalidAlias},
		{"下划线被拒绝", "john_doe", ErrInvalidAlias},
		{"空格被拒绝", "john doe", ErrInvalidAlias},
		{"点开头被拒绝", ".john", ErrInvalidAlias},
		{"连字符结尾被拒绝", "john-", ErrInvalidAlias},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlias(tt.alias)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeAlias(t *testing.T) {
	assert.Equal(t, "john", NormalizeAlias("  John  "))
	assert.Equal(t, "a.b-c", NormalizeAlias("A.B-C"))
}

func TestValidateEmail(t *testing.T) {
	t.Run("合法邮箱", func(t *testing.T) {
		assert.NoError(t, ValidateEmail("user@example.com"))
		assert.NoError(t, ValidateEmail("a.b+c@sub.example.org"))
	})

	t.Run("非法邮箱", func(t *testing.T) {
		assert.ErrorIs(t, ValidateEmail(""), ErrInvalidEmail)
		assert.ErrorIs(t, ValidateEmail("no-at-sign"), ErrInvalidEmail)
		assert.ErrorIs(t, ValidateEmail("user@nodot"), ErrInvalidEmail)
		assert.ErrorIs(t, ValidateEmail("user @example.com"), ErrInvalidEmail)
	})
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("12345678"))
	assert.ErrorIs(t, ValidatePassword("1234567"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(""), ErrPasswordTooShort)
}

func TestAliasFromAddress(t *testing.T) {
	assert.Equal(t, "john", AliasFromAddress("John@Example.com"))
	assert.Equal(t, "john", AliasFromAddress("john"))
	assert.Equal(t, "a.b-c", AliasFromAddress(" A.B-C@mail.example.org "))
}
