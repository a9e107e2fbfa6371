package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceSpec_Validate(t *testing.T) {
	valid := func() ServiceSpec {
		return ServiceSpec{
			Name:     "posts",
			BasePath: "/posts",
			Operations: []Operation{
				{Name: "list", Method: MethodGet, Path: ""},
				{
					Name:   "getById",
					Method: MethodGet,
					Path:   "/{id}",
					Params: []ParamBinding{{Name: "id", Source: SourcePath}},
				},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceSpec)
		wantErr bool
	}{
		{
			name:   "valid spec",
			mutate: func(s *ServiceSpec) {},
		},
		{
			name:    "missing name",
			mutate:  func(s *ServiceSpec) { s.Name = "" },
			wantErr: true,
		},
		{
			name:    "relative base path",
			mutate:  func(s *ServiceSpec) { s.BasePath = "posts" },
			wantErr: true,
		},
		{
			name:    "duplicate operation names",
			mutate:  func(s *ServiceSpec) { s.Operations[1].Name = "list" },
			wantErr: true,
		},
		{
			name:    "unknown method",
			mutate:  func(s *ServiceSpec) { s.Operations[0].Method = "FETCH" },
			wantErr: true,
		},
		{
			name:    "operation without a name",
			mutate:  func(s *ServiceSpec) { s.Operations[0].Name = "" },
			wantErr: true,
		},
		{
			name: "two body bindings",
			mutate: func(s *ServiceSpec) {
				s.Operations[0].Params = []ParamBinding{
					{Name: "a", Source: SourceBody},
					{Name: "b", Source: SourceBody},
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid()
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsType(err, ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSpecRegistry_RegisterAndGet(t *testing.T) {
	r := NewSpecRegistry()

	require.NoError(t, r.Register(postsSpec()))
	require.NoError(t, r.Register(commentsTestSpec()))

	spec, ok := r.Get("posts")
	require.True(t, ok)
	assert.Equal(t, "/posts", spec.BasePath)

	_, ok = r.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"comments", "posts"}, r.Names())
}

func TestSpecRegistry_DuplicateName(t *testing.T) {
	r := NewSpecRegistry()

	require.NoError(t, r.Register(postsSpec()))
	err := r.Register(postsSpec())

	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfig))
}

func TestSpecRegistry_RejectsInvalidSpec(t *testing.T) {
	r := NewSpecRegistry()

	err := r.Register(ServiceSpec{Name: "bad", BasePath: "no-slash"})
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfig))
}

func TestOperation_Lookup(t *testing.T) {
	spec := postsSpec()

	op, ok := spec.Operation("getById")
	require.True(t, ok)
	assert.Equal(t, MethodGet, op.Method)

	_, ok = spec.Operation("delete")
	assert.False(t, ok)
}
