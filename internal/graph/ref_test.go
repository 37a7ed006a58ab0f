package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		in        string
		wantKind  RefKind
		wantValue string
	}{
		{"", RefNone, ""},
		{"/1/4", RefPath, "/1/4"},
		{"/", RefPath, "/"},
		{"@name:Foo", RefName, "Foo"},
		{"@meta:FCO", RefMeta, "FCO"},
		{"@name:a:b", RefName, "a:b"},
		{"@name:", RefName, ""},
		{"018f3a2e-0000-7000-8000-000000000001", RefGUID, "018f3a2e-0000-7000-8000-000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ref, err := ParseReference(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ref.Kind)
			assert.Equal(t, tt.wantValue, ref.Value)
			assert.Equal(t, tt.in, ref.String())
		})
	}
}

func TestParseReference_UnknownTag(t *testing.T) {
	for _, in := range []string{"@guid:abc", "name:Foo", ":x"} {
		_, err := ParseReference(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrUnknownTag)
	}
}

func TestRefBuilders(t *testing.T) {
	assert.Equal(t, "@name:Foo", NameRef("Foo"))
	assert.Equal(t, "@meta:FCO", MetaRef("FCO"))
}

func TestRefKindString(t *testing.T) {
	assert.Equal(t, "path", RefPath.String())
	assert.Equal(t, "guid", RefGUID.String())
	assert.Equal(t, "none", RefNone.String())
}

type fakeNode string

func (f fakeNode) Path() string { return string(f) }
func (f fakeNode) GUID() string { return "g" + string(f) }

func TestSameNode(t *testing.T) {
	assert.True(t, SameNode(fakeNode("/1"), fakeNode("/1")))
	assert.False(t, SameNode(fakeNode("/1"), fakeNode("/2")))
	assert.False(t, SameNode(fakeNode("/1"), nil))
	assert.True(t, SameNode(nil, nil))
}
