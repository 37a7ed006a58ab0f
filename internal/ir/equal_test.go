package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want bool
	}{
		{"same string", IRString("x"), IRString("x"), true},
		{"different string", IRString("x"), IRString("y"), false},
		{"int vs float same number", IRInt(5), IRFloat(5), true},
		{"int vs float different", IRInt(5), IRFloat(5.5), false},
		{"large ints exact", IRInt(9007199254740993), IRInt(9007199254740992), false},
		{"nil vs null", nil, IRNull{}, true},
		{"null vs string", IRNull{}, IRString(""), false},
		{"bool", IRBool(true), IRBool(true), true},
		{"string vs number", IRString("5"), IRInt(5), false},
		{"arrays", IRArray{IRInt(1), IRString("a")}, IRArray{IRInt(1), IRString("a")}, true},
		{"array length", IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}, false},
		{"array order", IRArray{IRInt(1), IRInt(2)}, IRArray{IRInt(2), IRInt(1)}, false},
		{"objects", IRObject{"a": IRObject{"b": IRInt(1)}}, IRObject{"a": IRObject{"b": IRFloat(1)}}, true},
		{"object missing key", IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}, false},
		{"object vs array", IRObject{}, IRArray{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := IRObject{
		"meta": IRObject{"min": IRInt(0)},
		"list": IRArray{IRObject{"k": IRString("v")}},
	}

	cp := Clone(orig).(IRObject)
	cp["meta"].(IRObject)["min"] = IRInt(9)
	cp["list"].(IRArray)[0].(IRObject)["k"] = IRString("changed")

	assert.Equal(t, IRInt(0), orig["meta"].(IRObject)["min"])
	assert.Equal(t, IRString("v"), orig["list"].(IRArray)[0].(IRObject)["k"])
}

func TestCloneObject_Nil(t *testing.T) {
	assert.Nil(t, CloneObject(nil))
}
