package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConst(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"None", Null},
		{"True", Concrete(true)},
		{"False", Concrete(false)},
		{"42", Concrete(42)},
		{"-3", Concrete(-3)},
		{"2.5", Concrete(2.5)},
		{`"hello"`, Concrete("hello")},
		{"'world'", Concrete("world")},
		{"bare", Concrete("bare")},
		{"''", Concrete("")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseConst(tt.raw)
			assert.True(t, tt.want.Equal(got), "got %s", Describe(got))
		})
	}
}

func TestResolveOperand(t *testing.T) {
	s := NewState()
	s.PushFrame(NewFrame(MainFrameName))
	s.CurrentFrame().Registers["%1"] = Concrete(99)

	t.Run("register hit", func(t *testing.T) {
		assert.True(t, ResolveOperand(s, "%1").Equal(Concrete(99)))
	})

	t.Run("register miss is a literal", func(t *testing.T) {
		assert.True(t, ResolveOperand(s, "%404").Equal(Concrete("%404")))
	})

	t.Run("literal strings go through the const parse", func(t *testing.T) {
		assert.True(t, ResolveOperand(s, "5").Equal(Concrete(5)))
		assert.True(t, ResolveOperand(s, "'hi'").Equal(Concrete("hi")))
		assert.True(t, ResolveOperand(s, "plain").Equal(Concrete("plain")))
	})

	t.Run("non-string wire value", func(t *testing.T) {
		assert.True(t, ResolveOperand(s, int64(3)).Equal(Concrete(3)))
	})
}
